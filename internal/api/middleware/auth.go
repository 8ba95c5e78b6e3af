package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/examvault/internal/api"
)

type contextKey string

const OperatorKey contextKey = "operator"

const adminOperator = "admin"

// AdminAuth accepts requests carrying "Authorization: Bearer <token>" that
// matches the configured admin token. An empty token rejects every request.
func AdminAuth(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			presented := []byte(strings.TrimPrefix(authHeader, "Bearer "))
			if len(expected) == 0 || subtle.ConstantTimeCompare(presented, expected) != 1 {
				api.Error(w, http.StatusUnauthorized, "invalid admin token")
				return
			}

			if tags, ok := r.Context().Value(requestTagsKey).(*requestTags); ok {
				tags.operator = adminOperator
			}
			ctx := context.WithValue(r.Context(), OperatorKey, adminOperator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOperator returns the authenticated operator, also from contexts that
// wrap the authenticated one.
func GetOperator(ctx context.Context) string {
	if op, ok := ctx.Value(OperatorKey).(string); ok {
		return op
	}
	if tags, ok := ctx.Value(requestTagsKey).(*requestTags); ok {
		return tags.operator
	}
	return ""
}
