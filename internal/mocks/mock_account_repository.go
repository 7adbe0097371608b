package mocks

import (
	"context"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// MockAccountRepository implements domain.AccountRepository interface for testing
type MockAccountRepository struct {
	RunInTxFunc            func(ctx context.Context, fn func(ctx context.Context) error) error
	CreateFunc             func(ctx context.Context, account *domain.Account) error
	FindByEmailFunc        func(ctx context.Context, email string) (*domain.Account, error)
	FindByHandleFunc       func(ctx context.Context, handle string) (*domain.Account, error)
	FindByReferralCodeFunc func(ctx context.Context, code string) (*domain.Account, error)
	IdentifiersTakenFunc   func(ctx context.Context, handle, referralCode string) (bool, error)
	CreditReferralFunc     func(ctx context.Context, referrerID uint, event domain.ReferralEvent, bonus int64) error
	SaveRateWindowFunc     func(ctx context.Context, accountID uint, prev *domain.RateWindow, next domain.RateWindow) (bool, error)
	SetLockoutFunc         func(ctx context.Context, accountID uint, until time.Time) error
	ClearLockoutFunc       func(ctx context.Context, accountID uint) error
	ResetCredentialFunc    func(ctx context.Context, accountID uint, passwordHash string) error
}

// NewMockAccountRepository creates a new MockAccountRepository with default behaviors
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{}
}

// RunInTx runs fn directly unless overridden
func (m *MockAccountRepository) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.RunInTxFunc != nil {
		return m.RunInTxFunc(ctx, fn)
	}
	return fn(ctx)
}

// Create creates a new account
func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	// Default behavior: success
	return nil
}

// FindByEmail finds an account by email
func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// FindByHandle finds an account by handle
func (m *MockAccountRepository) FindByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	if m.FindByHandleFunc != nil {
		return m.FindByHandleFunc(ctx, handle)
	}
	return nil, domain.ErrAccountNotFound
}

// FindByReferralCode finds an account by referral code
func (m *MockAccountRepository) FindByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	if m.FindByReferralCodeFunc != nil {
		return m.FindByReferralCodeFunc(ctx, code)
	}
	return nil, domain.ErrAccountNotFound
}

// IdentifiersTaken reports identifier collisions
func (m *MockAccountRepository) IdentifiersTaken(ctx context.Context, handle, referralCode string) (bool, error) {
	if m.IdentifiersTakenFunc != nil {
		return m.IdentifiersTakenFunc(ctx, handle, referralCode)
	}
	// Default behavior: everything is free
	return false, nil
}

// CreditReferral credits a referrer
func (m *MockAccountRepository) CreditReferral(ctx context.Context, referrerID uint, event domain.ReferralEvent, bonus int64) error {
	if m.CreditReferralFunc != nil {
		return m.CreditReferralFunc(ctx, referrerID, event, bonus)
	}
	return nil
}

// SaveRateWindow persists a request window
func (m *MockAccountRepository) SaveRateWindow(ctx context.Context, accountID uint, prev *domain.RateWindow, next domain.RateWindow) (bool, error) {
	if m.SaveRateWindowFunc != nil {
		return m.SaveRateWindowFunc(ctx, accountID, prev, next)
	}
	return true, nil
}

// SetLockout locks an account
func (m *MockAccountRepository) SetLockout(ctx context.Context, accountID uint, until time.Time) error {
	if m.SetLockoutFunc != nil {
		return m.SetLockoutFunc(ctx, accountID, until)
	}
	return nil
}

// ClearLockout unlocks an account
func (m *MockAccountRepository) ClearLockout(ctx context.Context, accountID uint) error {
	if m.ClearLockoutFunc != nil {
		return m.ClearLockoutFunc(ctx, accountID)
	}
	return nil
}

// ResetCredential replaces the password hash
func (m *MockAccountRepository) ResetCredential(ctx context.Context, accountID uint, passwordHash string) error {
	if m.ResetCredentialFunc != nil {
		return m.ResetCredentialFunc(ctx, accountID, passwordHash)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AccountRepository = (*MockAccountRepository)(nil)
