package domain

import "github.com/google/uuid"

// Role is the marketplace role attached to a session.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated context behind a connection or request.
// ShopID is zero unless the user is a seller bound to a shop.
type Identity struct {
	UserID uuid.UUID
	Role   Role
	ShopID int64
}

// Valid reports whether the identity carries enough information to be admitted.
func (i Identity) Valid() bool {
	return i.UserID != uuid.Nil && i.Role.IsValid()
}

// OperatesShop reports whether the identity's own shop binding matches shopID.
// Staff memberships are resolved by the shop access service, not here.
func (i Identity) OperatesShop(shopID int64) bool {
	return i.Role == RoleSeller && i.ShopID != 0 && i.ShopID == shopID
}
