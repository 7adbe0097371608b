package domain

import (
	"regexp"
	"strings"
	"time"
)

// Provider identifies how an account was created
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
)

// Purpose tags a verification code with the flow that requested it
type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeReset    Purpose = "reset"
)

// FederatedCredential is stored in place of a password hash for accounts
// that only sign in through a federated provider.
const FederatedCredential = "!federated"

// ReferralBonus is the number of coins credited to a referrer per referral.
const ReferralBonus int64 = 137

var (
	handlePattern       = regexp.MustCompile(`^[a-z]{3}[0-9]{4}[a-z]$`)
	referralCodePattern = regexp.MustCompile(`^[1-9][0-9]{7}$`)
	referralInputFormat = regexp.MustCompile(`^[0-9]{8}$`)
)

// Account represents an onboarded identity
type Account struct {
	ID                uint
	Handle            string
	Email             string
	PasswordHash      string
	Provider          Provider
	Coins             int64
	ReferralCode      string
	ReferredBy        *string
	Referrals         []ReferralEvent
	FailedOTPAttempts int
	LockUntil         *time.Time
	OTPRequestCount   int
	OTPRequestWindow  *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsFederated reports whether the account has no local credential
func (a *Account) IsFederated() bool {
	return a.PasswordHash == FederatedCredential
}

// LockedAt reports whether the account lockout is still in force at now
func (a *Account) LockedAt(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// HasReferred reports whether handle already appears in the referral list
func (a *Account) HasReferred(handle string) bool {
	for _, r := range a.Referrals {
		if r.ReferredHandle == handle {
			return true
		}
	}
	return false
}

// ReferralEvent records one successful referral credited to a referrer
type ReferralEvent struct {
	ReferredHandle string
	ReferredEmail  string
	CreatedAt      time.Time
}

// Identifiers is a freshly allocated handle and referral code pair
type Identifiers struct {
	Handle       string
	ReferralCode string
}

// RateWindow tracks how many codes were requested since Start
type RateWindow struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// VerificationEntry is the ephemeral one-time-code record for an address
type VerificationEntry struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	Purpose   Purpose   `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	// Version is bumped on every write and used for compare-and-swap.
	Version int64 `json:"version"`
}

// ExpiredAt reports whether the entry can no longer be verified at now
func (e *VerificationEntry) ExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// CodeIssue is returned when a code has been generated for dispatch
type CodeIssue struct {
	Email     string
	Code      string
	Purpose   Purpose
	ExpiresAt time.Time
}

// ReferralStatus is the non-error outcome of applying a referral
type ReferralStatus string

const (
	ReferralApplied ReferralStatus = "applied"
	ReferralSkipped ReferralStatus = "skipped"
)

// ReferralOutcome describes a successfully applied or skipped referral
type ReferralOutcome struct {
	Status         ReferralStatus
	ReferrerHandle string
}

// AuthResult represents a successful onboarding or sign-in
type AuthResult struct {
	Account   *Account
	Token     string
	SessionID string
	ExpiresIn int64
}

// Session represents a signed-in session
type Session struct {
	ID        string
	Handle    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	Handle    string `json:"handle"`
	SessionID string `json:"session_id,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// NormalizeEmail lower-cases and trims an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidHandle reports whether s has the handle shape aaa0000a
func ValidHandle(s string) bool {
	return handlePattern.MatchString(s)
}

// ValidReferralCode reports whether s is an issuable referral code
func ValidReferralCode(s string) bool {
	return referralCodePattern.MatchString(s)
}

// WellFormedReferralInput reports whether s is exactly eight decimal digits.
// Looser than ValidReferralCode: a leading zero is well formed but can never
// match an account.
func WellFormedReferralInput(s string) bool {
	return referralInputFormat.MatchString(s)
}
