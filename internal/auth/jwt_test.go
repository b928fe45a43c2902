package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, "we-meet-offline")

	token, expiresAt, err := manager.Generate("64f1c0ffee0000000000abcd")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "64f1c0ffee0000000000abcd", claims.Subject)
	require.Equal(t, "we-meet-offline", claims.Issuer)
}

func TestJWTRejectsEmptySubject(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, "we-meet-offline")

	_, _, err := manager.Generate("")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour, "we-meet-offline")
	other := NewJWTManager("different", time.Hour, "we-meet-offline")

	token, _, err := manager.Generate("user")
	require.NoError(t, err)

	_, err = other.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("secret", -time.Minute, "we-meet-offline")

	token, _, err := manager.Generate("user")
	require.NoError(t, err)

	_, err = manager.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromHeader(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"case insensitive scheme", "bearer abc", "abc", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic abc", "", true},
		{"no token", "Bearer", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := TokenFromHeader(tc.header)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrMissingToken)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, token)
		})
	}
}

func TestEmailHashIsStableAndKeyed(t *testing.T) {
	hasher := NewEmailHasher("secret")

	first := hasher.Hash("alice@example.com")
	second := hasher.Hash("alice@example.com")
	require.Equal(t, first, second)
	require.Len(t, first, 64)

	trimmed := hasher.Hash("  alice@example.com ")
	require.Equal(t, first, trimmed)

	other := NewEmailHasher("other-secret")
	require.NotEqual(t, first, other.Hash("alice@example.com"))
}
