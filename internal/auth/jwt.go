package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	apperrors "github.com/axondapurkita/order-notify/internal/core/errors"
	"github.com/axondapurkita/order-notify/internal/core/ports"
)

// Claims is the session payload issued by the storefront login.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	ShopID int64     `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies session credentials. This service only
// verifies in production; signing is used by tests and local tooling.
type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
}

var _ ports.SessionVerifier = (*TokenManager)(nil)

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secretKey: []byte(secret), ttl: ttl}
}

// GenerateToken creates a session token for the identity
func (tm *TokenManager) GenerateToken(identity domain.Identity) (string, error) {
	claims := &Claims{
		UserID: identity.UserID,
		Role:   string(identity.Role),
		ShopID: identity.ShopID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   identity.UserID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Verify resolves a session credential into an identity. Any failure is
// reported as ErrUnauthorized so callers treat it as identity invalidation.
func (tm *TokenManager) Verify(_ context.Context, credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, apperrors.ErrUnauthorized
	}

	claims, err := tm.ValidateToken(credential)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	identity := domain.Identity{
		UserID: claims.UserID,
		Role:   domain.Role(claims.Role),
		ShopID: claims.ShopID,
	}
	if !identity.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: incomplete session claims", apperrors.ErrUnauthorized)
	}
	return identity, nil
}
