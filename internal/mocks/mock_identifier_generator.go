package mocks

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// MockIdentifierGenerator implements domain.IdentifierGenerator interface for testing
type MockIdentifierGenerator struct {
	AllocateFunc func(ctx context.Context) (*domain.Identifiers, error)

	seq atomic.Int64
}

// NewMockIdentifierGenerator creates a new MockIdentifierGenerator with default behaviors
func NewMockIdentifierGenerator() *MockIdentifierGenerator {
	return &MockIdentifierGenerator{}
}

// Allocate returns identifiers
func (m *MockIdentifierGenerator) Allocate(ctx context.Context) (*domain.Identifiers, error) {
	if m.AllocateFunc != nil {
		return m.AllocateFunc(ctx)
	}
	// Default behavior: a well-formed sequence abc0001a, abc0002a, ...
	n := m.seq.Add(1)
	return &domain.Identifiers{
		Handle:       fmt.Sprintf("abc%04da", n%10000),
		ReferralCode: fmt.Sprintf("%08d", 10_000_000+n),
	}, nil
}

// Compile-time interface compliance verification
var _ domain.IdentifierGenerator = (*MockIdentifierGenerator)(nil)
