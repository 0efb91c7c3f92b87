package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRoomKey is returned when a room identifier cannot be parsed.
var ErrInvalidRoomKey = errors.New("invalid room key")

// RoomKind discriminates room keys.
type RoomKind string

const (
	RoomKindShop RoomKind = "shop"
)

// RoomKey identifies a multicast group. Keys are compared by value, so two
// keys built for the same shop always address the same room.
type RoomKey struct {
	Kind   RoomKind
	ShopID int64
}

// ShopRoom returns the room key for a shop.
func ShopRoom(shopID int64) RoomKey {
	return RoomKey{Kind: RoomKindShop, ShopID: shopID}
}

// String returns the canonical room identifier, e.g. "shop:42".
func (k RoomKey) String() string {
	return string(k.Kind) + ":" + strconv.FormatInt(k.ShopID, 10)
}

// ParseRoomKey converts a canonical identifier back into a RoomKey.
func ParseRoomKey(s string) (RoomKey, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || RoomKind(kind) != RoomKindShop {
		return RoomKey{}, fmt.Errorf("%w: %q", ErrInvalidRoomKey, s)
	}

	shopID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || shopID <= 0 {
		return RoomKey{}, fmt.Errorf("%w: %q", ErrInvalidRoomKey, s)
	}

	return ShopRoom(shopID), nil
}
