package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// DefaultLockoutDuration is how long an address stays locked
const DefaultLockoutDuration = 24 * time.Hour

// LockoutPolicyImpl implements domain.LockoutPolicy. Accounts carry their
// lock on the row; addresses without an account use a store key.
type LockoutPolicyImpl struct {
	accounts domain.AccountRepository
	store    domain.VerificationStore
	duration time.Duration
	now      Clock
}

// NewLockoutPolicy creates a lockout policy
func NewLockoutPolicy(accounts domain.AccountRepository, store domain.VerificationStore, duration time.Duration, now Clock) *LockoutPolicyImpl {
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	if now == nil {
		now = time.Now
	}
	return &LockoutPolicyImpl{
		accounts: accounts,
		store:    store,
		duration: duration,
		now:      now,
	}
}

var _ domain.LockoutPolicy = (*LockoutPolicyImpl)(nil)

func lockKey(email string) string {
	return "otp:lock:" + email
}

// Check implements domain.LockoutPolicy. It returns the lock expiry when
// the address is locked and nil otherwise; elapsed locks count as unlocked.
func (p *LockoutPolicyImpl) Check(ctx context.Context, email string) (*time.Time, error) {
	email = domain.NormalizeEmail(email)
	now := p.now()

	account, err := findAccount(ctx, p.accounts, email)
	if err != nil {
		return nil, err
	}
	if account != nil && account.LockedAt(now) {
		until := *account.LockUntil
		return &until, nil
	}

	data, version, err := p.store.Get(ctx, lockKey(email))
	if err != nil {
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}
	if version == 0 {
		return nil, nil
	}
	var until time.Time
	if err := json.Unmarshal(data, &until); err != nil {
		return nil, fmt.Errorf("failed to decode lock: %w", err)
	}
	if !now.Before(until) {
		return nil, nil
	}
	return &until, nil
}

// Lock implements domain.LockoutPolicy. Re-locking overwrites the expiry.
func (p *LockoutPolicyImpl) Lock(ctx context.Context, email string) (time.Time, error) {
	email = domain.NormalizeEmail(email)
	until := p.now().Add(p.duration).UTC()

	account, err := findAccount(ctx, p.accounts, email)
	if err != nil {
		return time.Time{}, err
	}
	if account != nil {
		if err := p.accounts.SetLockout(ctx, account.ID, until); err != nil {
			return time.Time{}, fmt.Errorf("failed to persist lock: %w", err)
		}
		return until, nil
	}

	data, err := json.Marshal(until)
	if err != nil {
		return time.Time{}, err
	}
	if _, err := p.store.Set(ctx, lockKey(email), data, p.duration); err != nil {
		return time.Time{}, fmt.Errorf("failed to persist lock: %w", err)
	}
	return until, nil
}

// Clear implements domain.LockoutPolicy
func (p *LockoutPolicyImpl) Clear(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	account, err := findAccount(ctx, p.accounts, email)
	if err != nil {
		return err
	}
	if account != nil {
		if err := p.accounts.ClearLockout(ctx, account.ID); err != nil {
			return fmt.Errorf("failed to clear lock: %w", err)
		}
	}
	if err := p.store.Delete(ctx, lockKey(email)); err != nil {
		return fmt.Errorf("failed to clear lock: %w", err)
	}
	return nil
}
