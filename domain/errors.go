package domain

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors
var (
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrWeakPassword          = errors.New("password must be at least 6 characters")
	ErrReferralInvalidFormat = errors.New("referral code must be exactly 8 digits")
)

// Policy errors
var (
	ErrAlreadyRegistered = errors.New("account already registered")
	ErrRateLimited       = errors.New("too many code requests")
	ErrLocked            = errors.New("address is temporarily locked")
)

// Verification errors
var (
	ErrCodeInvalid = errors.New("invalid verification code")
	ErrCodeExpired = errors.New("verification code expired or not found")
)

// Referral errors
var (
	ErrReferralNotFound = errors.New("referral code not found")
	ErrSelfReferral     = errors.New("self referral is not allowed")
	ErrAlreadyReferred  = errors.New("account already referred by this referrer")
)

// Account errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrFederatedAccount   = errors.New("account uses federated sign-in")
	ErrIdentifierConflict = errors.New("handle or referral code already taken")
)

// Infrastructure errors
var (
	ErrIdentifierSpaceExhausted = errors.New("could not allocate unique identifiers")
	ErrNotifierUnavailable      = errors.New("notifier unavailable")
	ErrStoreConflict            = errors.New("verification store write conflict")
	ErrFederatedTokenInvalid    = errors.New("federated token rejected")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

// LockedError carries the lockout expiry so callers know when to retry
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrLocked, e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error { return ErrLocked }

// RateLimitedError carries the moment the current request window closes
type RateLimitedError struct {
	RetryAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited, e.RetryAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// InvalidCodeError carries the remaining attempt budget
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%s, %d attempts remaining", ErrCodeInvalid, e.Remaining)
}

func (e *InvalidCodeError) Unwrap() error { return ErrCodeInvalid }
