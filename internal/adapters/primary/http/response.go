package http

import (
	"encoding/json"
	"net/http"
)

// ListResponse wraps a list of items (non-paginated)
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// AcceptedResponse acknowledges work handed to the dispatcher
type AcceptedResponse struct {
	Accepted bool   `json:"accepted"`
	Kind     string `json:"kind,omitempty"`
	OrderID  string `json:"orderId,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header is already out; an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteNoContent writes a no content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteList writes a simple list response. A nil slice is rendered as [].
func WriteList[T any](w http.ResponseWriter, data []T) {
	if data == nil {
		data = []T{}
	}
	WriteJSON(w, http.StatusOK, ListResponse[T]{
		Data:  data,
		Count: len(data),
	})
}
