package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("EMAIL_HASH_SECRET", "hash-secret")
	t.Setenv("ENCRYPTION_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	t.Setenv("ENCRYPTION_IV", "000102030405060708090a0b0c0d0e0f")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "we-meet-offline", cfg.Database.Database)
	require.Equal(t, 12, cfg.Auth.BcryptCost)
	require.Equal(t, "development", cfg.Environment)
	require.Len(t, cfg.Auth.EncryptionKey, 32)
	require.Len(t, cfg.Auth.EncryptionIV, 16)
}

func TestLoadMissingRequired(t *testing.T) {
	cases := []struct {
		name  string
		unset string
	}{
		{"missing mongo uri", "MONGO_URI"},
		{"missing jwt secret", "JWT_SECRET"},
		{"missing email hash secret", "EMAIL_HASH_SECRET"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.unset, "")

			_, err := Load()

			require.Error(t, err)
		})
	}
}

func TestLoadRejectsBadKeyMaterial(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENCRYPTION_KEY", "not-hex")

	_, err := Load()

	require.Error(t, err)
	require.Contains(t, err.Error(), "ENCRYPTION_KEY")
}

func TestLoadJWTExpiryMinutes(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_EXPIRY_MINUTES", "90")

	cfg, err := Load()

	require.NoError(t, err)
	require.Equal(t, "1h30m0s", cfg.Auth.JWTExpiry.String())
}
