package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

// OnboardingConfig holds orchestrator settings
type OnboardingConfig struct {
	// MaxCreateAttempts bounds re-allocation after a write-time identifier clash
	MaxCreateAttempts int
	RegisterSubject   string
	ResetSubject      string
}

// DefaultOnboardingConfig returns the standard settings
func DefaultOnboardingConfig() OnboardingConfig {
	return OnboardingConfig{
		MaxCreateAttempts: 8,
		RegisterSubject:   "Your VELoop verification code",
		ResetSubject:      "Reset your VELoop password",
	}
}

// OnboardingDeps are the collaborators of the onboarding service
type OnboardingDeps struct {
	Accounts    domain.AccountRepository
	Sessions    domain.SessionRepository
	Ledger      domain.VerificationLedger
	Lockout     domain.LockoutPolicy
	Identifiers domain.IdentifierGenerator
	Referrals   domain.ReferralEngine
	Passwords   domain.PasswordService
	Tokens      domain.TokenService
	Notifier    domain.Notifier
	Federated   domain.FederatedVerifier
	Audit       domain.AuditLogger
	Metrics     Metrics
	Logger      logrus.FieldLogger
	Clock       Clock
}

// OnboardingServiceImpl implements domain.OnboardingService
type OnboardingServiceImpl struct {
	deps     OnboardingDeps
	config   OnboardingConfig
	validate *validator.Validate
}

// NewOnboardingService creates the onboarding orchestrator
func NewOnboardingService(deps OnboardingDeps, config OnboardingConfig) *OnboardingServiceImpl {
	if deps.Audit == nil {
		deps.Audit = noopAudit{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if deps.Logger == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)
		deps.Logger = logger
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if config.MaxCreateAttempts <= 0 {
		config.MaxCreateAttempts = DefaultOnboardingConfig().MaxCreateAttempts
	}
	return &OnboardingServiceImpl{
		deps:     deps,
		config:   config,
		validate: validator.New(),
	}
}

var _ domain.OnboardingService = (*OnboardingServiceImpl)(nil)

// SendRegistrationCode implements domain.OnboardingService
func (s *OnboardingServiceImpl) SendRegistrationCode(ctx context.Context, email string) (*domain.CodeIssue, error) {
	issue, err := s.deps.Ledger.RequestCode(ctx, email, domain.PurposeRegister)
	if err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, issue, s.config.RegisterSubject); err != nil {
		return nil, err
	}
	return issue, nil
}

// SendResetCode implements domain.OnboardingService
func (s *OnboardingServiceImpl) SendResetCode(ctx context.Context, email string) (*domain.CodeIssue, error) {
	issue, err := s.deps.Ledger.RequestCode(ctx, email, domain.PurposeReset)
	if err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, issue, s.config.ResetSubject); err != nil {
		return nil, err
	}
	return issue, nil
}

// dispatch hands the code to the notifier. Throttling state is already
// committed and the code stays valid when delivery fails.
func (s *OnboardingServiceImpl) dispatch(ctx context.Context, issue *domain.CodeIssue, subject string) error {
	minutes := int(issue.ExpiresAt.Sub(s.deps.Clock()).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	body := fmt.Sprintf(`<h3>Your verification code</h3>
<p>Use <strong>%s</strong> to continue. It expires in %d minutes.</p>
<p>If you did not request this code you can ignore this email.</p>`, html.EscapeString(issue.Code), minutes)

	if err := s.deps.Notifier.SendEmail(ctx, issue.Email, subject, body); err != nil {
		s.deps.Metrics.CodeRequested(string(issue.Purpose), "dispatch_failed")
		s.deps.Audit.LogEvent(ctx, domain.NewAuditEvent(domain.NotifierFailureEvent, issue.Email).
			WithError(err).
			WithMetadata("purpose", string(issue.Purpose)))
		if errors.Is(err, domain.ErrNotifierUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrNotifierUnavailable, err)
	}
	return nil
}

// Register implements domain.OnboardingService
func (s *OnboardingServiceImpl) Register(ctx context.Context, email, password, code, referralCode string) (*domain.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, domain.ErrWeakPassword
	}
	if referralCode != "" && !domain.WellFormedReferralInput(referralCode) {
		return nil, domain.ErrReferralInvalidFormat
	}

	existing, err := findAccount(ctx, s.deps.Accounts, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyRegistered
	}

	entry, err := s.deps.Ledger.VerifyCode(ctx, email, code, domain.PurposeRegister)
	if err != nil {
		return nil, err
	}

	// Referral is checked before anything is written so a bad code leaves
	// the verification entry usable for a corrected retry.
	if _, err := s.deps.Referrals.Validate(ctx, referralCode, email); err != nil {
		return nil, err
	}

	hash, err := s.deps.Passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.createAccount(ctx, email, hash, domain.ProviderEmail, referralCode, entry)
	if err != nil {
		return nil, err
	}

	return s.startSession(ctx, account)
}

// createAccount allocates identifiers and persists the account together
// with its referral credit in one transaction. A write-time clash on handle
// or referral code rolls back and retries with fresh identifiers. When entry
// is set it is consumed before commit; losing it to another request rolls
// the account back.
func (s *OnboardingServiceImpl) createAccount(ctx context.Context, email, credential string, provider domain.Provider, referralCode string, entry *domain.VerificationEntry) (*domain.Account, error) {
	for attempt := 0; attempt < s.config.MaxCreateAttempts; attempt++ {
		ids, err := s.deps.Identifiers.Allocate(ctx)
		if err != nil {
			return nil, err
		}

		now := s.deps.Clock().UTC()
		account := &domain.Account{
			Handle:       ids.Handle,
			Email:        email,
			PasswordHash: credential,
			Provider:     provider,
			ReferralCode: ids.ReferralCode,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = s.deps.Accounts.RunInTx(ctx, func(txCtx context.Context) error {
			outcome, err := s.deps.Referrals.Apply(txCtx, referralCode, account.Handle, email)
			if err != nil {
				return err
			}
			if outcome.Status == domain.ReferralApplied {
				referrer := outcome.ReferrerHandle
				account.ReferredBy = &referrer
			}
			if err := s.deps.Accounts.Create(txCtx, account); err != nil {
				return err
			}
			if entry == nil {
				return nil
			}
			return s.deps.Ledger.Consume(txCtx, entry)
		})
		if errors.Is(err, domain.ErrIdentifierConflict) {
			s.deps.Logger.WithField("attempt", attempt+1).Warn("identifier clash on create, reallocating")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.deps.Metrics.AccountRegistered(string(provider))
		event := domain.NewAuditEvent(domain.AccountRegisteredEvent, email).
			WithHandle(account.Handle).
			WithMetadata("provider", string(provider))
		if account.ReferredBy != nil {
			event.WithMetadata("referred_by", *account.ReferredBy)
		}
		s.deps.Audit.LogEvent(ctx, event)
		return account, nil
	}
	return nil, domain.ErrIdentifierSpaceExhausted
}

// ResetPassword implements domain.OnboardingService
func (s *OnboardingServiceImpl) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = domain.NormalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return domain.ErrInvalidEmail
	}
	if len(newPassword) < MinPasswordLength {
		return domain.ErrWeakPassword
	}

	account, err := s.deps.Accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account.IsFederated() {
		return domain.ErrFederatedAccount
	}

	entry, err := s.deps.Ledger.VerifyCode(ctx, email, code, domain.PurposeReset)
	if err != nil {
		return err
	}

	hash, err := s.deps.Passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	err = s.deps.Accounts.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.deps.Accounts.ResetCredential(txCtx, account.ID, hash); err != nil {
			return fmt.Errorf("failed to reset credential: %w", err)
		}
		// The code is spent before commit so one code resets at most once
		return s.deps.Ledger.Consume(txCtx, entry)
	})
	if err != nil {
		return err
	}

	if err := s.deps.Lockout.Clear(ctx, email); err != nil {
		s.deps.Logger.WithError(err).WithField("handle", account.Handle).Warn("failed to clear lockout after reset")
	}

	s.deps.Audit.LogEvent(ctx, domain.NewAuditEvent(domain.PasswordResetEvent, email).WithHandle(account.Handle))
	return nil
}

// Login implements domain.OnboardingService
func (s *OnboardingServiceImpl) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = domain.NormalizeEmail(email)

	account, err := s.deps.Accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.deps.Audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, email).WithError(domain.ErrInvalidCredentials))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if account.IsFederated() {
		return nil, domain.ErrFederatedAccount
	}
	if account.LockedAt(s.deps.Clock()) {
		return nil, &domain.LockedError{Until: *account.LockUntil}
	}

	if !s.deps.Passwords.Verify(account.PasswordHash, password) {
		s.deps.Audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, email).
			WithHandle(account.Handle).
			WithError(domain.ErrInvalidCredentials))
		return nil, domain.ErrInvalidCredentials
	}

	result, err := s.startSession(ctx, account)
	if err != nil {
		return nil, err
	}
	s.deps.Audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginEvent, email).
		WithHandle(account.Handle).
		WithMetadata("session_id", result.SessionID))
	return result, nil
}

// FederatedSignIn implements domain.OnboardingService. An unknown address
// gets a federated-only account; a known one gets a session unless it is
// locked, the same as Login.
func (s *OnboardingServiceImpl) FederatedSignIn(ctx context.Context, assertion, referralCode string) (*domain.AuthResult, error) {
	if referralCode != "" && !domain.WellFormedReferralInput(referralCode) {
		return nil, domain.ErrReferralInvalidFormat
	}

	email, err := s.deps.Federated.Verify(ctx, assertion)
	if err != nil {
		return nil, err
	}

	account, err := findAccount(ctx, s.deps.Accounts, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		if _, err := s.deps.Referrals.Validate(ctx, referralCode, email); err != nil {
			return nil, err
		}
		account, err = s.createAccount(ctx, email, domain.FederatedCredential, domain.ProviderGoogle, referralCode, nil)
		if err != nil {
			return nil, err
		}
	} else if account.LockedAt(s.deps.Clock()) {
		return nil, &domain.LockedError{Until: *account.LockUntil}
	}

	result, err := s.startSession(ctx, account)
	if err != nil {
		return nil, err
	}
	s.deps.Audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLoginEvent, email).
		WithHandle(account.Handle).
		WithMetadata("provider", string(domain.ProviderGoogle)))
	return result, nil
}

// Profile implements domain.OnboardingService
func (s *OnboardingServiceImpl) Profile(ctx context.Context, handle string) (*domain.Account, error) {
	return s.deps.Accounts.FindByHandle(ctx, handle)
}

// Logout implements domain.OnboardingService
func (s *OnboardingServiceImpl) Logout(ctx context.Context, sessionID string) error {
	if err := s.deps.Sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.deps.Audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserLogoutEvent, "").
		WithMetadata("session_id", sessionID))
	return nil
}

// startSession persists a session and signs a token for it
func (s *OnboardingServiceImpl) startSession(ctx context.Context, account *domain.Account) (*domain.AuthResult, error) {
	now := s.deps.Clock()
	ttl := s.deps.Tokens.TTL()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Handle:    account.Handle,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.deps.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.deps.Tokens.Issue(account.Handle, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &domain.AuthResult{
		Account:   account,
		Token:     token,
		SessionID: session.ID,
		ExpiresIn: int64(ttl.Seconds()),
	}, nil
}
