package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"google.golang.org/api/idtoken"
)

// validateFunc matches idtoken.Validate
type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// GoogleVerifier checks Google ID tokens against the configured OAuth
// client ID and returns the verified email address.
type GoogleVerifier struct {
	clientID string
	validate validateFunc
}

// NewGoogleVerifier creates a verifier for tokens issued to clientID
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

var _ domain.FederatedVerifier = (*GoogleVerifier)(nil)

// Verify implements domain.FederatedVerifier
func (g *GoogleVerifier) Verify(ctx context.Context, assertion string) (string, error) {
	if strings.TrimSpace(assertion) == "" || g.clientID == "" {
		return "", domain.ErrFederatedTokenInvalid
	}

	payload, err := g.validate(ctx, assertion, g.clientID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFederatedTokenInvalid, err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("%w: token carries no email", domain.ErrFederatedTokenInvalid)
	}

	// Google sends email_verified as a bool, older tokens as a string
	switch v := payload.Claims["email_verified"].(type) {
	case bool:
		if !v {
			return "", fmt.Errorf("%w: email not verified", domain.ErrFederatedTokenInvalid)
		}
	case string:
		if v != "true" {
			return "", fmt.Errorf("%w: email not verified", domain.ErrFederatedTokenInvalid)
		}
	default:
		return "", fmt.Errorf("%w: email not verified", domain.ErrFederatedTokenInvalid)
	}

	return domain.NormalizeEmail(email), nil
}
