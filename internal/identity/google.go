package identity

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/wemeetoffline/server/internal/domain/users"
)

// GoogleVerifier validates Google-issued ID tokens against the configured
// OAuth client id.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*users.Identity, error) {
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("validating google id token: %w", err)
	}

	identity := &users.Identity{
		Email:   claimString(payload.Claims, "email"),
		Name:    claimString(payload.Claims, "name"),
		Picture: claimString(payload.Claims, "picture"),
	}
	if identity.Email == "" {
		return nil, fmt.Errorf("google id token carries no email claim")
	}
	return identity, nil
}

func claimString(claims map[string]interface{}, key string) string {
	value, _ := claims[key].(string)
	return value
}
