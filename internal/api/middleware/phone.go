package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/wemeetoffline/server/internal/api/problem"
)

// PhoneChecker reports whether the given user has a verified phone number.
type PhoneChecker interface {
	IsPhoneVerified(ctx context.Context, userID string) (bool, error)
}

// RequirePhoneVerified gates actions that put people in a room together
// behind a verified phone number. Must run after Authenticate.
func RequirePhoneVerified(checker PhoneChecker, environment string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			if userID == "" {
				problem.Unauthorized(w, r, errors.New("missing authenticated user"), environment)
				return
			}

			verified, err := checker.IsPhoneVerified(r.Context(), userID)
			if err != nil {
				problem.Internal(w, r, err, environment)
				return
			}
			if !verified {
				problem.Forbidden(w, r, errors.New("phone number not verified"), environment)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
