package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/loftside/swingbridge/internal/httputil"
)

// ContextKey is a typed key for request context values.
type ContextKey string

// SubjectKey holds the authenticated caller identity ("sub" claim).
const SubjectKey ContextKey = "subject"

// Auth validates HMAC-signed bearer tokens against the shared API secret.
// Requests without a valid token never reach the wrapped handler.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.Unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httputil.Unauthorized(w, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				httputil.Unauthorized(w, "invalid token")
				return
			}

			ctx := r.Context()
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				if sub, ok := claims["sub"].(string); ok && sub != "" {
					ctx = context.WithValue(ctx, SubjectKey, sub)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject returns the authenticated caller identity, or "" for
// unauthenticated requests.
func Subject(ctx context.Context) string {
	sub, _ := ctx.Value(SubjectKey).(string)
	return sub
}

// NewToken mints a signed bearer token for the API. Used by the token
// subcommand so operators can issue credentials for callers.
func NewToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("auth secret is empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
