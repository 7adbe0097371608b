package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/go-playground/validator/v10"
)

// casRetries bounds the optimistic update loops against the store
const casRetries = 16

// LedgerConfig holds verification code policy
type LedgerConfig struct {
	CodeLength    int
	CodeTTL       time.Duration
	MaxAttempts   int
	RequestWindow time.Duration
	MaxRequests   int
}

// DefaultLedgerConfig returns 4-digit codes valid for 5 minutes, 3 attempts
// per code and 3 requests per 10-minute window
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		CodeLength:    4,
		CodeTTL:       5 * time.Minute,
		MaxAttempts:   3,
		RequestWindow: 10 * time.Minute,
		MaxRequests:   3,
	}
}

// VerificationLedgerImpl implements domain.VerificationLedger on top of a
// domain.VerificationStore. Every read-modify-write of an entry or a rate
// window is a compare-and-swap on the stored version.
type VerificationLedgerImpl struct {
	store    domain.VerificationStore
	accounts domain.AccountRepository
	lockout  domain.LockoutPolicy
	audit    domain.AuditLogger
	metrics  Metrics
	config   LedgerConfig
	now      Clock
	validate *validator.Validate
}

// NewVerificationLedger creates a ledger. audit and metrics may be nil.
func NewVerificationLedger(
	store domain.VerificationStore,
	accounts domain.AccountRepository,
	lockout domain.LockoutPolicy,
	audit domain.AuditLogger,
	metrics Metrics,
	config LedgerConfig,
	now Clock,
) *VerificationLedgerImpl {
	if audit == nil {
		audit = noopAudit{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if now == nil {
		now = time.Now
	}
	return &VerificationLedgerImpl{
		store:    store,
		accounts: accounts,
		lockout:  lockout,
		audit:    audit,
		metrics:  metrics,
		config:   config,
		now:      now,
		validate: validator.New(),
	}
}

var _ domain.VerificationLedger = (*VerificationLedgerImpl)(nil)

func entryKey(email string) string {
	return "otp:entry:" + email
}

func windowKey(email string) string {
	return "otp:window:" + email
}

// RequestCode implements domain.VerificationLedger
func (l *VerificationLedgerImpl) RequestCode(ctx context.Context, email string, purpose domain.Purpose) (*domain.CodeIssue, error) {
	email = domain.NormalizeEmail(email)
	if err := l.validate.Var(email, "required,email"); err != nil {
		return nil, domain.ErrInvalidEmail
	}

	account, err := findAccount(ctx, l.accounts, email)
	if err != nil {
		return nil, err
	}
	switch purpose {
	case domain.PurposeRegister:
		if account != nil {
			return nil, domain.ErrAlreadyRegistered
		}
	case domain.PurposeReset:
		if account == nil {
			return nil, domain.ErrAccountNotFound
		}
		if account.IsFederated() {
			return nil, domain.ErrFederatedAccount
		}
	default:
		return nil, fmt.Errorf("unknown verification purpose %q", purpose)
	}

	until, err := l.lockout.Check(ctx, email)
	if err != nil {
		return nil, err
	}
	if until != nil {
		l.metrics.CodeRequested(string(purpose), "locked")
		return nil, &domain.LockedError{Until: *until}
	}

	if err := l.admit(ctx, email, account); err != nil {
		var limited *domain.RateLimitedError
		if errors.As(err, &limited) {
			l.metrics.CodeRequested(string(purpose), "rate_limited")
			l.audit.LogEvent(ctx, domain.NewAuditEvent(domain.CodeRateLimitedEvent, email).
				WithError(err).
				WithMetadata("purpose", string(purpose)))
		}
		return nil, err
	}

	code, err := l.generateCode()
	if err != nil {
		return nil, err
	}

	now := l.now()
	entry := domain.VerificationEntry{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(l.config.CodeTTL),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return nil, err
	}
	// Supersedes any earlier entry for the address
	if _, err := l.store.Set(ctx, entryKey(email), data, l.config.CodeTTL); err != nil {
		return nil, fmt.Errorf("failed to store verification code: %w", err)
	}

	l.metrics.CodeRequested(string(purpose), "issued")
	l.audit.LogEvent(ctx, domain.NewAuditEvent(domain.CodeRequestedEvent, email).
		WithMetadata("purpose", string(purpose)).
		WithMetadata("expires_at", entry.ExpiresAt))

	return &domain.CodeIssue{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: entry.ExpiresAt,
	}, nil
}

// admit advances the request window for email and rejects the request once
// the window holds MaxRequests. The window is committed before returning.
func (l *VerificationLedgerImpl) admit(ctx context.Context, email string, account *domain.Account) error {
	now := l.now()

	if account != nil {
		for i := 0; i < casRetries; i++ {
			if i > 0 {
				fresh, err := l.accounts.FindByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("failed to reload request window: %w", err)
				}
				account = fresh
			}
			var current *domain.RateWindow
			if account.OTPRequestWindow != nil {
				current = &domain.RateWindow{Start: *account.OTPRequestWindow, Count: account.OTPRequestCount}
			}
			next, err := l.advance(current, now)
			if err != nil {
				return err
			}
			ok, err := l.accounts.SaveRateWindow(ctx, account.ID, current, next)
			if err != nil {
				return fmt.Errorf("failed to persist request window: %w", err)
			}
			if ok {
				return nil
			}
		}
		return domain.ErrStoreConflict
	}

	key := windowKey(email)
	for i := 0; i < casRetries; i++ {
		data, version, err := l.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read request window: %w", err)
		}

		var current *domain.RateWindow
		if version != 0 {
			current = &domain.RateWindow{}
			if err := json.Unmarshal(data, current); err != nil {
				return fmt.Errorf("failed to decode request window: %w", err)
			}
		}

		next, err := l.advance(current, now)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return err
		}
		ttl := next.Start.Add(l.config.RequestWindow).Sub(now)
		ok, _, err := l.store.CompareAndSwap(ctx, key, version, encoded, ttl)
		if err != nil {
			return fmt.Errorf("failed to persist request window: %w", err)
		}
		if ok {
			return nil
		}
	}
	return domain.ErrStoreConflict
}

// advance returns the window after admitting one more request at now
func (l *VerificationLedgerImpl) advance(current *domain.RateWindow, now time.Time) (domain.RateWindow, error) {
	if current == nil || now.Sub(current.Start) >= l.config.RequestWindow {
		return domain.RateWindow{Start: now, Count: 1}, nil
	}
	if current.Count >= l.config.MaxRequests {
		return *current, &domain.RateLimitedError{RetryAt: current.Start.Add(l.config.RequestWindow)}
	}
	return domain.RateWindow{Start: current.Start, Count: current.Count + 1}, nil
}

// VerifyCode implements domain.VerificationLedger. A matching code leaves
// the entry in place; the caller consumes it once its own write succeeds.
func (l *VerificationLedgerImpl) VerifyCode(ctx context.Context, email, code string, purpose domain.Purpose) (*domain.VerificationEntry, error) {
	email = domain.NormalizeEmail(email)
	code = strings.TrimSpace(code)

	until, err := l.lockout.Check(ctx, email)
	if err != nil {
		return nil, err
	}
	if until != nil {
		l.metrics.CodeVerified("locked")
		return nil, &domain.LockedError{Until: *until}
	}

	key := entryKey(email)
	for i := 0; i < casRetries; i++ {
		data, version, err := l.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read verification code: %w", err)
		}
		if version == 0 {
			l.metrics.CodeVerified("expired")
			return nil, domain.ErrCodeExpired
		}

		var entry domain.VerificationEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode verification code: %w", err)
		}
		entry.Version = version

		now := l.now()
		if entry.ExpiredAt(now) || entry.Purpose != purpose {
			l.metrics.CodeVerified("expired")
			return nil, domain.ErrCodeExpired
		}

		if subtle.ConstantTimeCompare([]byte(code), []byte(entry.Code)) == 1 {
			l.metrics.CodeVerified("verified")
			l.audit.LogEvent(ctx, domain.NewAuditEvent(domain.CodeVerifiedEvent, email).
				WithMetadata("purpose", string(purpose)))
			return &entry, nil
		}

		entry.Attempts++
		if entry.Attempts >= l.config.MaxAttempts {
			ok, err := l.store.CompareAndDelete(ctx, key, version)
			if err != nil {
				return nil, fmt.Errorf("failed to discard verification code: %w", err)
			}
			if !ok {
				continue
			}
			lockedUntil, err := l.lockout.Lock(ctx, email)
			if err != nil {
				return nil, err
			}
			l.metrics.CodeVerified("locked")
			l.metrics.AddressLocked()
			l.audit.LogEvent(ctx, domain.NewAuditEvent(domain.AddressLockedEvent, email).
				WithError(domain.ErrLocked).
				WithMetadata("locked_until", lockedUntil))
			return nil, &domain.LockedError{Until: lockedUntil}
		}

		updated, err := json.Marshal(&entry)
		if err != nil {
			return nil, err
		}
		ok, _, err := l.store.CompareAndSwap(ctx, key, version, updated, entry.ExpiresAt.Sub(now))
		if err != nil {
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		if !ok {
			continue
		}

		remaining := l.config.MaxAttempts - entry.Attempts
		l.metrics.CodeVerified("invalid")
		l.audit.LogEvent(ctx, domain.NewAuditEvent(domain.CodeFailedEvent, email).
			WithError(domain.ErrCodeInvalid).
			WithMetadata("attempts_remaining", remaining))
		return nil, &domain.InvalidCodeError{Remaining: remaining}
	}
	return nil, domain.ErrStoreConflict
}

// Consume implements domain.VerificationLedger
func (l *VerificationLedgerImpl) Consume(ctx context.Context, entry *domain.VerificationEntry) error {
	ok, err := l.store.CompareAndDelete(ctx, entryKey(entry.Email), entry.Version)
	if err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}
	if !ok {
		return domain.ErrCodeExpired
	}
	return nil
}

// Discard implements domain.VerificationLedger
func (l *VerificationLedgerImpl) Discard(ctx context.Context, email string) error {
	if err := l.store.Delete(ctx, entryKey(domain.NormalizeEmail(email))); err != nil {
		return fmt.Errorf("failed to discard verification code: %w", err)
	}
	return nil
}

// generateCode returns a uniformly random zero-padded decimal code
func (l *VerificationLedgerImpl) generateCode() (string, error) {
	length := l.config.CodeLength
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}
