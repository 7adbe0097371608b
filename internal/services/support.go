package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// Clock returns the current time. Services take one so tests can move time.
type Clock func() time.Time

// Metrics receives onboarding counters
type Metrics interface {
	CodeRequested(purpose, outcome string)
	CodeVerified(outcome string)
	AddressLocked()
	AccountRegistered(provider string)
	Referral(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) CodeRequested(string, string) {}
func (noopMetrics) CodeVerified(string) {}
func (noopMetrics) AddressLocked() {}
func (noopMetrics) AccountRegistered(string) {}
func (noopMetrics) Referral(string) {}

type noopAudit struct{}

func (noopAudit) LogEvent(context.Context, *domain.AuditEvent) {}

// findAccount returns nil without error when no account has the address
func findAccount(ctx context.Context, accounts domain.AccountRepository, email string) (*domain.Account, error) {
	account, err := accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	return account, nil
}
