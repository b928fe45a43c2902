package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wemeetoffline/server/internal/api/problem"
	"github.com/wemeetoffline/server/internal/auth"
)

// UserIDKey is the context key for the authenticated user id.
const UserIDKey contextKey = "user_id"

// Authenticate validates the bearer session token and stores the subject
// user id in the request context.
func Authenticate(tokens *auth.JWTManager, environment string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Unauthorized(w, r, err, environment)
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				problem.Unauthorized(w, r, err, environment)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			ctx = zerolog.Ctx(ctx).With().Str("user_id", claims.Subject).Logger().WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the authenticated user id from context. Empty outside an
// authenticated route.
func UserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
