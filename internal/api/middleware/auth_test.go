package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemeetoffline/server/internal/auth"
)

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewJWTManager("test-secret", time.Hour, "test")
	signed, _, err := tokens.Generate("64b0c0ffee64b0c0ffee64b0")
	require.NoError(t, err)

	otherTokens := auth.NewJWTManager("other-secret", time.Hour, "test")
	forged, _, err := otherTokens.Generate("64b0c0ffee64b0c0ffee64b0")
	require.NoError(t, err)

	var gotUserID string
	handler := Authenticate(tokens, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUserID string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + forged, wantStatus: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + signed, wantStatus: http.StatusOK, wantUserID: "64b0c0ffee64b0c0ffee64b0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUserID = ""
			r := httptest.NewRequest(http.MethodPost, "/get-userid", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantUserID, gotUserID)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			}
		})
	}
}

type stubPhoneChecker struct {
	verified bool
	err      error
}

func (s stubPhoneChecker) IsPhoneVerified(context.Context, string) (bool, error) {
	return s.verified, s.err
}

func TestRequirePhoneVerified(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	run := func(checker PhoneChecker, userID string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/add-event", nil)
		if userID != "" {
			r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
		}
		w := httptest.NewRecorder()
		RequirePhoneVerified(checker, "test")(next).ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, run(stubPhoneChecker{verified: true}, "someone").Code)
	assert.Equal(t, http.StatusForbidden, run(stubPhoneChecker{verified: false}, "someone").Code)
	assert.Equal(t, http.StatusUnauthorized, run(stubPhoneChecker{verified: true}, "").Code)
	assert.Equal(t, http.StatusInternalServerError, run(stubPhoneChecker{err: errors.New("db down")}, "someone").Code)
}
