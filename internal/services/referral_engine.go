package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// ReferralEngineImpl implements domain.ReferralEngine
type ReferralEngineImpl struct {
	accounts domain.AccountRepository
	audit    domain.AuditLogger
	metrics  Metrics
	bonus    int64
	now      Clock
}

// NewReferralEngine creates a referral engine crediting bonus coins per referral
func NewReferralEngine(accounts domain.AccountRepository, audit domain.AuditLogger, metrics Metrics, bonus int64, now Clock) *ReferralEngineImpl {
	if audit == nil {
		audit = noopAudit{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if bonus <= 0 {
		bonus = domain.ReferralBonus
	}
	if now == nil {
		now = time.Now
	}
	return &ReferralEngineImpl{
		accounts: accounts,
		audit:    audit,
		metrics:  metrics,
		bonus:    bonus,
		now:      now,
	}
}

var _ domain.ReferralEngine = (*ReferralEngineImpl)(nil)

// Validate implements domain.ReferralEngine. It returns the referrer, or
// nil without error when no code was supplied.
func (e *ReferralEngineImpl) Validate(ctx context.Context, code, newEmail string) (*domain.Account, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	if !domain.WellFormedReferralInput(code) {
		return nil, domain.ErrReferralInvalidFormat
	}

	referrer, err := e.accounts.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrReferralNotFound
		}
		return nil, fmt.Errorf("failed to look up referrer: %w", err)
	}

	if referrer.Email == domain.NormalizeEmail(newEmail) {
		return nil, domain.ErrSelfReferral
	}
	return referrer, nil
}

// Apply implements domain.ReferralEngine. The event insert and the balance
// increment are one atomic store operation; a duplicate pair is rejected by
// the store even when two registrations race.
func (e *ReferralEngineImpl) Apply(ctx context.Context, code, newHandle, newEmail string) (*domain.ReferralOutcome, error) {
	outcome, err := e.apply(ctx, code, newHandle, newEmail)
	if err != nil {
		e.metrics.Referral("rejected")
		e.audit.LogEvent(ctx, domain.NewAuditEvent(domain.ReferralRejectedEvent, newEmail).
			WithHandle(newHandle).
			WithError(err).
			WithMetadata("referral_code", code))
		return nil, err
	}

	e.metrics.Referral(string(outcome.Status))
	if outcome.Status == domain.ReferralApplied {
		e.audit.LogEvent(ctx, domain.NewAuditEvent(domain.ReferralAppliedEvent, newEmail).
			WithHandle(newHandle).
			WithMetadata("referrer", outcome.ReferrerHandle).
			WithMetadata("bonus", e.bonus))
	}
	return outcome, nil
}

func (e *ReferralEngineImpl) apply(ctx context.Context, code, newHandle, newEmail string) (*domain.ReferralOutcome, error) {
	referrer, err := e.Validate(ctx, code, newEmail)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return &domain.ReferralOutcome{Status: domain.ReferralSkipped}, nil
	}
	if referrer.Handle == newHandle {
		return nil, domain.ErrSelfReferral
	}
	if referrer.HasReferred(newHandle) {
		return nil, domain.ErrAlreadyReferred
	}

	event := domain.ReferralEvent{
		ReferredHandle: newHandle,
		ReferredEmail:  domain.NormalizeEmail(newEmail),
		CreatedAt:      e.now().UTC(),
	}
	if err := e.accounts.CreditReferral(ctx, referrer.ID, event, e.bonus); err != nil {
		if errors.Is(err, domain.ErrAlreadyReferred) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to credit referrer: %w", err)
	}

	return &domain.ReferralOutcome{
		Status:         domain.ReferralApplied,
		ReferrerHandle: referrer.Handle,
	}, nil
}
