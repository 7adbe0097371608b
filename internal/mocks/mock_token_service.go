package mocks

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	IssueFunc    func(handle, sessionID string) (string, error)
	ValidateFunc func(token string) (*domain.TokenClaims, error)
	TTLValue     time.Duration
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{TTLValue: 7 * 24 * time.Hour}
}

// Issue signs a token for the handle and session
func (m *MockTokenService) Issue(handle, sessionID string) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(handle, sessionID)
	}
	// Default behavior: return a readable mock token
	return fmt.Sprintf("token_%s_%s", handle, sessionID), nil
}

// Validate parses a token
func (m *MockTokenService) Validate(token string) (*domain.TokenClaims, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(token)
	}
	// Default behavior: accept tokens produced by the default Issue
	parts := strings.SplitN(token, "_", 3)
	if len(parts) != 3 || parts[0] != "token" {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now()
	return &domain.TokenClaims{
		Handle:    parts[1],
		SessionID: parts[2],
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(m.TTL()).Unix(),
	}, nil
}

// TTL returns the configured token lifetime
func (m *MockTokenService) TTL() time.Duration {
	return m.TTLValue
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
