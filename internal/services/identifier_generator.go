package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// DefaultMaxAllocationAttempts caps the collision-retry loop
const DefaultMaxAllocationAttempts = 256

const letters = "abcdefghijklmnopqrstuvwxyz"

// IdentifierGeneratorImpl implements domain.IdentifierGenerator
type IdentifierGeneratorImpl struct {
	accounts    domain.AccountRepository
	maxAttempts int
	random      io.Reader
}

// NewIdentifierGenerator creates a generator that checks candidates against accounts
func NewIdentifierGenerator(accounts domain.AccountRepository, maxAttempts int) *IdentifierGeneratorImpl {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAllocationAttempts
	}
	return &IdentifierGeneratorImpl{
		accounts:    accounts,
		maxAttempts: maxAttempts,
		random:      rand.Reader,
	}
}

var _ domain.IdentifierGenerator = (*IdentifierGeneratorImpl)(nil)

// Allocate implements domain.IdentifierGenerator. Uniqueness holds at the
// moment of the check only; the store's unique indexes catch later races.
func (g *IdentifierGeneratorImpl) Allocate(ctx context.Context) (*domain.Identifiers, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		handle, err := g.handle()
		if err != nil {
			return nil, err
		}
		code, err := g.referralCode()
		if err != nil {
			return nil, err
		}

		taken, err := g.accounts.IdentifiersTaken(ctx, handle, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check identifiers: %w", err)
		}
		if !taken {
			return &domain.Identifiers{Handle: handle, ReferralCode: code}, nil
		}
	}
	return nil, domain.ErrIdentifierSpaceExhausted
}

// handle draws 3 letters, 4 digits and 1 letter
func (g *IdentifierGeneratorImpl) handle() (string, error) {
	buf := make([]byte, 0, 8)
	for i := 0; i < 8; i++ {
		if i >= 3 && i < 7 {
			d, err := g.intn(10)
			if err != nil {
				return "", err
			}
			buf = append(buf, byte('0'+d))
			continue
		}
		l, err := g.intn(len(letters))
		if err != nil {
			return "", err
		}
		buf = append(buf, letters[l])
	}
	return string(buf), nil
}

// referralCode draws an 8-digit number with a non-zero leading digit
func (g *IdentifierGeneratorImpl) referralCode() (string, error) {
	n, err := g.intn(90_000_000)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%08d", 10_000_000+n), nil
}

func (g *IdentifierGeneratorImpl) intn(n int) (int, error) {
	v, err := rand.Int(g.random, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random identifier: %w", err)
	}
	return int(v.Int64()), nil
}
