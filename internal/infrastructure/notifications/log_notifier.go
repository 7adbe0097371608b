package notifications

import (
	"context"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/sirupsen/logrus"
)

// LogNotifier writes messages to the log instead of delivering them.
// Used in development and when no mail provider is configured.
type LogNotifier struct {
	logger logrus.FieldLogger
}

// NewLogNotifier creates a notifier that logs through logger
func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ domain.Notifier = (*LogNotifier)(nil)

// SendEmail implements domain.Notifier
func (l *LogNotifier) SendEmail(_ context.Context, to, subject, body string) error {
	l.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
		"body":    stripTags(body),
	}).Info("[MOCK EMAIL] message not delivered")
	return nil
}
