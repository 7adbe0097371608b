package notifications

import (
	"context"
	"fmt"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends HTML email through an SMTP relay
type SMTPNotifier struct {
	dialer   dialer
	from     string
	fromName string
}

// NewSMTPNotifier creates a notifier for the given relay. Gmail app
// passwords work with host smtp.gmail.com and port 587.
func NewSMTPNotifier(host string, port int, user, password, from, fromName string) *SMTPNotifier {
	if from == "" {
		from = user
	}
	return &SMTPNotifier{
		dialer:   gomail.NewDialer(host, port, user, password),
		from:     from,
		fromName: fromName,
	}
}

var _ domain.Notifier = (*SMTPNotifier)(nil)

// SendEmail implements domain.Notifier
func (s *SMTPNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	if s.fromName != "" {
		m.SetAddressHeader("From", s.from, s.fromName)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: smtp: %v", domain.ErrNotifierUnavailable, err)
	}
	return nil
}
