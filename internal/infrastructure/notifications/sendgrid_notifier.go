package notifications

import (
	"context"
	"fmt"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendFunc func(ctx context.Context, msg *mail.SGMailV3) (status int, body string, err error)

// SendGridNotifier sends email through the SendGrid v3 API
type SendGridNotifier struct {
	send     sendFunc
	from     string
	fromName string
}

// NewSendGridNotifier creates a notifier authenticated with apiKey
func NewSendGridNotifier(apiKey, from, fromName string) *SendGridNotifier {
	client := sendgrid.NewSendClient(apiKey)
	return &SendGridNotifier{
		send: func(ctx context.Context, msg *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, msg)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
		from:     from,
		fromName: fromName,
	}
}

var _ domain.Notifier = (*SendGridNotifier)(nil)

// SendEmail implements domain.Notifier
func (s *SendGridNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.from)
	recipient := mail.NewEmail("", to)
	msg := mail.NewSingleEmail(from, subject, recipient, stripTags(body), body)

	status, respBody, err := s.send(ctx, msg)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %v", domain.ErrNotifierUnavailable, err)
	}
	if status >= 300 {
		return fmt.Errorf("%w: sendgrid status %d: %s", domain.ErrNotifierUnavailable, status, respBody)
	}
	return nil
}
