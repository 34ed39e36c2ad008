package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pixelsmith/pixelsmith/internal/platform/httpx"
)

// CookieName is the cookie carrying the access token for browser clients.
const CookieName = "access_token"

type userContextKey struct{}

// ContextWithUser stores the resolved user in context.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the resolved user from context.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// Authenticator guards routes behind token verification. It validates the
// token cryptographically and resolves the user record, but does not re-check
// the session's active flag: logout revokes the session row while an already
// issued token keeps authenticating until natural expiry.
type Authenticator struct {
	issuer  *TokenIssuer
	service *Service
}

// NewAuthenticator constructs the request authentication boundary.
func NewAuthenticator(issuer *TokenIssuer, service *Service) *Authenticator {
	return &Authenticator{issuer: issuer, service: service}
}

// TokenFromRequest extracts the bearer token from the Authorization header,
// falling back to the access token cookie. Header takes precedence.
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			return token, nil
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", ErrUnauthenticated
}

// RequireUser rejects requests without a valid token and resolves the acting
// user into the request context.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := TokenFromRequest(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpx.Unauthorized(w, "Not authenticated")
			return
		}
		userID, _, err := a.issuer.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpx.Unauthorized(w, "Invalid or expired token")
			return
		}
		user, err := a.service.CurrentUser(r.Context(), userID)
		if err != nil {
			// A token that outlived its account is indistinguishable from a
			// missing one; do not leak that the token itself was valid.
			if errors.Is(err, ErrNotFound) {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httpx.Unauthorized(w, "Not authenticated")
				return
			}
			httpx.Internal(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}
