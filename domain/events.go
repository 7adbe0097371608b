package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Verification events
	CodeRequestedEvent   AuditEventType = "OTP_REQUESTED"
	CodeRateLimitedEvent AuditEventType = "OTP_RATE_LIMITED"
	CodeVerifiedEvent    AuditEventType = "OTP_VERIFIED"
	CodeFailedEvent      AuditEventType = "OTP_VERIFICATION_FAILED"
	AddressLockedEvent   AuditEventType = "ADDRESS_LOCKED"
	NotifierFailureEvent AuditEventType = "OTP_DISPATCH_FAILED"

	// Onboarding events
	AccountRegisteredEvent AuditEventType = "ACCOUNT_REGISTERED"
	PasswordResetEvent     AuditEventType = "PASSWORD_RESET"
	UserLoginEvent         AuditEventType = "USER_LOGIN"
	UserLoginFailureEvent  AuditEventType = "USER_LOGIN_FAILED"
	UserLogoutEvent        AuditEventType = "USER_LOGOUT"

	// Referral events
	ReferralAppliedEvent  AuditEventType = "REFERRAL_APPLIED"
	ReferralRejectedEvent AuditEventType = "REFERRAL_REJECTED"
)

// AuditEvent represents a business event that occurred in the system
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	Handle    string                 `json:"handle,omitempty"`
	Email     string                 `json:"email,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records audit events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent)
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, email string) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		Email:     email,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithHandle sets the account handle
func (e *AuditEvent) WithHandle(handle string) *AuditEvent {
	e.Handle = handle
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
