package notifications

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/config"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestSMTPNotifier_SendEmail(t *testing.T) {
	d := &fakeDialer{}
	n := NewSMTPNotifier("smtp.example.com", 587, "noreply@example.com", "pw", "", "VELoop")
	n.dialer = d

	err := n.SendEmail(context.Background(), "user@example.com", "Your code", "<p>123456</p>")
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	assert.Equal(t, []string{"user@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Your code"}, msg.GetHeader("Subject"))
	require.Len(t, msg.GetHeader("From"), 1)
	assert.Contains(t, msg.GetHeader("From")[0], "noreply@example.com")

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "123456")
}

func TestSMTPNotifier_Failure(t *testing.T) {
	n := NewSMTPNotifier("smtp.example.com", 587, "noreply@example.com", "pw", "", "")
	n.dialer = &fakeDialer{err: errors.New("connection refused")}

	err := n.SendEmail(context.Background(), "user@example.com", "s", "b")
	assert.ErrorIs(t, err, domain.ErrNotifierUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.SendEmail(ctx, "user@example.com", "s", "b"), context.Canceled)
}

func TestSendGridNotifier_SendEmail(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		sendErr       error
		expectedError error
	}{
		{name: "accepted", status: 202},
		{name: "rejected", status: 401, expectedError: domain.ErrNotifierUnavailable},
		{name: "transport failure", sendErr: errors.New("timeout"), expectedError: domain.ErrNotifierUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *mail.SGMailV3
			n := NewSendGridNotifier("key", "noreply@example.com", "VELoop")
			n.send = func(ctx context.Context, msg *mail.SGMailV3) (int, string, error) {
				captured = msg
				return tt.status, "", tt.sendErr
			}

			err := n.SendEmail(context.Background(), "user@example.com", "Your code", "<b>123456</b>")
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, captured)
			assert.Equal(t, "Your code", captured.Subject)
			assert.Equal(t, "noreply@example.com", captured.From.Address)
			require.Len(t, captured.Content, 2)
			assert.Equal(t, "123456", captured.Content[0].Value)
		})
	}
}

func TestLogNotifier_SendEmail(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewLogNotifier(logger)

	require.NoError(t, n.SendEmail(context.Background(), "user@example.com", "Your code", "<p>Code: <b>123456</b></p>"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "user@example.com", entry.Data["to"])
	assert.Equal(t, "Code: 123456", entry.Data["body"])
}

func TestNew(t *testing.T) {
	logger, _ := test.NewNullLogger()

	tests := []struct {
		name        string
		cfg         config.Config
		expectedTyp interface{}
		expectError bool
	}{
		{name: "log", cfg: config.Config{MailProvider: "log"}, expectedTyp: &LogNotifier{}},
		{name: "empty defaults to log", cfg: config.Config{}, expectedTyp: &LogNotifier{}},
		{name: "smtp", cfg: config.Config{MailProvider: "smtp", SMTPHost: "h", SMTPPort: 587}, expectedTyp: &SMTPNotifier{}},
		{name: "sendgrid", cfg: config.Config{MailProvider: "sendgrid", SendGridAPIKey: "k"}, expectedTyp: &SendGridNotifier{}},
		{name: "sendgrid without key", cfg: config.Config{MailProvider: "sendgrid"}, expectError: true},
		{name: "unknown", cfg: config.Config{MailProvider: "pigeon"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := New(&tt.cfg, logger)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.expectedTyp, n)
		})
	}
}
