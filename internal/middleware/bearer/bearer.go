// Package bearer authenticates API requests with a JWT bearer token and puts
// the member id in the request context.
package bearer

import (
	"context"
	"net/http"
	"strings"

	"famspese/internal/auth"
)

type contextKey struct{}

// TokenValidator is satisfied by *auth.JWTManager.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, err error)

// Require rejects requests without a valid bearer token with 401.
func Require(v TokenValidator, onError ErrorWriter) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, err error) {
			http.Error(w, err.Error(), status)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := tokenFrom(r)
			if !ok {
				onError(w, r, http.StatusUnauthorized, auth.ErrMissingToken)
				return
			}
			claims, err := v.Validate(token)
			if err != nil {
				onError(w, r, http.StatusUnauthorized, auth.ErrInvalidToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithMemberID(r.Context(), claims.MemberID)))
		})
	}
}

func tokenFrom(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func WithMemberID(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, contextKey{}, memberID)
}

// MemberID returns the authenticated member id, or "" outside Require.
func MemberID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
