package mocks

import (
	"context"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// MockFederatedVerifier implements domain.FederatedVerifier interface for testing
type MockFederatedVerifier struct {
	VerifyFunc func(ctx context.Context, assertion string) (string, error)
}

// NewMockFederatedVerifier creates a new MockFederatedVerifier with default behaviors
func NewMockFederatedVerifier() *MockFederatedVerifier {
	return &MockFederatedVerifier{}
}

// Verify checks the assertion
func (m *MockFederatedVerifier) Verify(ctx context.Context, assertion string) (string, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, assertion)
	}
	// Default behavior: the assertion is the verified address
	if assertion == "" {
		return "", domain.ErrFederatedTokenInvalid
	}
	return domain.NormalizeEmail(assertion), nil
}

// Compile-time interface compliance verification
var _ domain.FederatedVerifier = (*MockFederatedVerifier)(nil)
