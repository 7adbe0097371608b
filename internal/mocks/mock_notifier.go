package mocks

import (
	"context"
	"sync"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
)

// SentEmail is a message captured by MockNotifier
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockNotifier implements domain.Notifier interface for testing and
// records every message it accepts
type MockNotifier struct {
	SendEmailFunc func(ctx context.Context, to, subject, body string) error

	mu   sync.Mutex
	sent []SentEmail
}

// NewMockNotifier creates a new MockNotifier with default behaviors
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// SendEmail records the message, then delegates to SendEmailFunc if set
func (m *MockNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, Body: body})
	m.mu.Unlock()

	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, to, subject, body)
	}
	return nil
}

// Sent returns a copy of the recorded messages
func (m *MockNotifier) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.sent...)
}

// Compile-time interface compliance verification
var _ domain.Notifier = (*MockNotifier)(nil)
