package domain

import (
	"context"
	"time"
)

// AccountRepository defines account data access operations.
// Implementations must enforce uniqueness of handle, email and referral
// code at the storage layer.
type AccountRepository interface {
	// RunInTx runs fn in a transaction; repository calls made with the ctx
	// passed to fn join it.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, account *Account) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByHandle(ctx context.Context, handle string) (*Account, error)
	FindByReferralCode(ctx context.Context, code string) (*Account, error)
	IdentifiersTaken(ctx context.Context, handle, referralCode string) (bool, error)
	// CreditReferral appends event to the referrer unless it is already
	// present and increments the balance, atomically.
	CreditReferral(ctx context.Context, referrerID uint, event ReferralEvent, bonus int64) error
	// SaveRateWindow replaces the request window only if the row still holds
	// prev (nil for no window). It reports whether the write applied.
	SaveRateWindow(ctx context.Context, accountID uint, prev *RateWindow, next RateWindow) (bool, error)
	SetLockout(ctx context.Context, accountID uint, until time.Time) error
	ClearLockout(ctx context.Context, accountID uint) error
	ResetCredential(ctx context.Context, accountID uint, passwordHash string) error
}

// SessionRepository defines session data access operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// VerificationStore is a keyed store for ephemeral verification state.
// Every write assigns a new, never reused version. Get returns a nil value
// and version 0 for an absent or expired key. CompareAndSwap replaces the
// value only when the stored version equals expected (0 means "absent")
// and reports whether the swap happened. A ttl of zero means no expiry.
type VerificationStore interface {
	Get(ctx context.Context, key string) ([]byte, int64, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
	CompareAndSwap(ctx context.Context, key string, expected int64, value []byte, ttl time.Duration) (bool, int64, error)
	CompareAndDelete(ctx context.Context, key string, expected int64) (bool, error)
}

// IdentifierGenerator allocates collision-checked identifiers
type IdentifierGenerator interface {
	Allocate(ctx context.Context) (*Identifiers, error)
}

// VerificationLedger issues and checks one-time codes
type VerificationLedger interface {
	RequestCode(ctx context.Context, email string, purpose Purpose) (*CodeIssue, error)
	VerifyCode(ctx context.Context, email, code string, purpose Purpose) (*VerificationEntry, error)
	// Consume deletes a verified entry; a second consumer gets ErrCodeExpired
	Consume(ctx context.Context, entry *VerificationEntry) error
	Discard(ctx context.Context, email string) error
}

// LockoutPolicy derives and enforces temporary suspension of an address
type LockoutPolicy interface {
	Check(ctx context.Context, email string) (*time.Time, error)
	Lock(ctx context.Context, email string) (time.Time, error)
	Clear(ctx context.Context, email string) error
}

// ReferralEngine validates and applies referral codes
type ReferralEngine interface {
	Validate(ctx context.Context, code, newEmail string) (*Account, error)
	Apply(ctx context.Context, code, newHandle, newEmail string) (*ReferralOutcome, error)
}

// OnboardingService composes the registration, reset and sign-in flows
type OnboardingService interface {
	SendRegistrationCode(ctx context.Context, email string) (*CodeIssue, error)
	SendResetCode(ctx context.Context, email string) (*CodeIssue, error)
	Register(ctx context.Context, email, password, code, referralCode string) (*AuthResult, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	FederatedSignIn(ctx context.Context, assertion, referralCode string) (*AuthResult, error)
	Profile(ctx context.Context, handle string) (*Account, error)
	Logout(ctx context.Context, sessionID string) error
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService issues and validates bearer credentials
type TokenService interface {
	Issue(handle, sessionID string) (string, error)
	Validate(token string) (*TokenClaims, error)
	TTL() time.Duration
}

// Notifier delivers a message to an email address
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// FederatedVerifier checks a third-party identity assertion and returns the
// verified email address it vouches for
type FederatedVerifier interface {
	Verify(ctx context.Context, assertion string) (string, error)
}
