package mocks

import (
	"context"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// MockOnboardingService implements domain.OnboardingService interface for testing
type MockOnboardingService struct {
	SendRegistrationCodeFunc func(ctx context.Context, email string) (*domain.CodeIssue, error)
	SendResetCodeFunc        func(ctx context.Context, email string) (*domain.CodeIssue, error)
	RegisterFunc             func(ctx context.Context, email, password, code, referralCode string) (*domain.AuthResult, error)
	ResetPasswordFunc        func(ctx context.Context, email, code, newPassword string) error
	LoginFunc                func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	FederatedSignInFunc      func(ctx context.Context, assertion, referralCode string) (*domain.AuthResult, error)
	ProfileFunc              func(ctx context.Context, handle string) (*domain.Account, error)
	LogoutFunc               func(ctx context.Context, sessionID string) error
}

// NewMockOnboardingService creates a new MockOnboardingService with default behaviors
func NewMockOnboardingService() *MockOnboardingService {
	return &MockOnboardingService{}
}

// SendRegistrationCode issues a registration code
func (m *MockOnboardingService) SendRegistrationCode(ctx context.Context, email string) (*domain.CodeIssue, error) {
	if m.SendRegistrationCodeFunc != nil {
		return m.SendRegistrationCodeFunc(ctx, email)
	}
	return &domain.CodeIssue{Email: email, Code: "1234", Purpose: domain.PurposeRegister}, nil
}

// SendResetCode issues a reset code
func (m *MockOnboardingService) SendResetCode(ctx context.Context, email string) (*domain.CodeIssue, error) {
	if m.SendResetCodeFunc != nil {
		return m.SendResetCodeFunc(ctx, email)
	}
	return &domain.CodeIssue{Email: email, Code: "1234", Purpose: domain.PurposeReset}, nil
}

// Register creates an account
func (m *MockOnboardingService) Register(ctx context.Context, email, password, code, referralCode string) (*domain.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, code, referralCode)
	}
	return nil, domain.ErrCodeExpired
}

// ResetPassword replaces a credential
func (m *MockOnboardingService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, email, code, newPassword)
	}
	return nil
}

// Login authenticates with a password
func (m *MockOnboardingService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, domain.ErrInvalidCredentials
}

// FederatedSignIn authenticates with a third-party assertion
func (m *MockOnboardingService) FederatedSignIn(ctx context.Context, assertion, referralCode string) (*domain.AuthResult, error) {
	if m.FederatedSignInFunc != nil {
		return m.FederatedSignInFunc(ctx, assertion, referralCode)
	}
	return nil, domain.ErrFederatedTokenInvalid
}

// Profile returns an account by handle
func (m *MockOnboardingService) Profile(ctx context.Context, handle string) (*domain.Account, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, handle)
	}
	return nil, domain.ErrAccountNotFound
}

// Logout ends a session
func (m *MockOnboardingService) Logout(ctx context.Context, sessionID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.OnboardingService = (*MockOnboardingService)(nil)
