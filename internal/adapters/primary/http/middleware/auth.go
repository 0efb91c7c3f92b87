package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/axondapurkita/order-notify/internal/core/domain"
	"github.com/axondapurkita/order-notify/internal/core/ports"
	"github.com/axondapurkita/order-notify/internal/infrastructure/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// IdentityKey is the key used to store the session identity in the request context.
const IdentityKey contextKey = "identity"

// InternalKeyHeader carries the shared key of internal callers.
const InternalKeyHeader = "X-Internal-Key"

// SessionCredential extracts the session credential from the request cookie.
func SessionCredential(r *http.Request, cookieName string) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SessionMiddleware resolves the session cookie into an identity. Requests
// without a valid session are rejected with 401.
func SessionMiddleware(verifier ports.SessionVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := SessionCredential(r, cookieName)
			if credential == "" {
				writeUnauthorized(w, "Session cookie is required")
				return
			}

			identity, err := verifier.Verify(r.Context(), credential)
			if err != nil {
				writeUnauthorized(w, "Invalid or expired session")
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			ctx = logging.WithUserID(ctx, identity.UserID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireInternalKey guards endpoints that only order processing may call.
func RequireInternalKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(InternalKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeUnauthorized(w, "Invalid internal key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity stores the identity in the context
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity retrieves the session identity from the context
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `","code":"UNAUTHORIZED"}`))
}
