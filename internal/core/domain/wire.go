package domain

import "encoding/json"

// Live channel message types.
const (
	// client -> server
	MsgJoinShop  = "join_shop"
	MsgLeaveShop = "leave_shop"
	MsgPing      = "ping"

	// server -> client
	MsgJoinedShop     = "joined_shop"
	MsgLeftShop       = "left_shop"
	MsgError          = "error"
	MsgPong           = "pong"
	MsgSessionExpired = "session_expired"
)

// Error codes carried by MsgError.
const (
	CodeForbidden    = "FORBIDDEN"
	CodeShopNotFound = "SHOP_NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeBadRequest   = "BAD_REQUEST"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// CloseSessionInvalid is the websocket close code sent when the session
// behind a connection is no longer valid. Clients must not reconnect.
const CloseSessionInvalid = 4001

// Envelope frames every live channel message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ShopRef is the payload of join_shop, leave_shop and left_shop.
type ShopRef struct {
	ShopID int64 `json:"shopId"`
}

// JoinedShop acknowledges a successful join.
type JoinedShop struct {
	ShopID   int64  `json:"shopId"`
	ShopName string `json:"shopName"`
}

// ErrorMessage reports a failed request to the requesting connection only.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ShopID  int64  `json:"shopId,omitempty"`
}

// EncodeEnvelope marshals a typed message. A nil payload is omitted.
func EncodeEnvelope(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
