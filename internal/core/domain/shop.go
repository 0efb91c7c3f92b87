package domain

import "github.com/google/uuid"

// Shop is the merchant storefront that owns a notification room.
type Shop struct {
	ID      int64
	Name    string
	OwnerID uuid.UUID
}
