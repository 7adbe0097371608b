package notifications

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/config"
	"github.com/sirupsen/logrus"
)

// New selects a notifier by cfg.MailProvider
func New(cfg *config.Config, logger logrus.FieldLogger) (domain.Notifier, error) {
	switch cfg.MailProvider {
	case "smtp":
		return NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, cfg.MailFromName), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid provider requires SENDGRID_API_KEY")
		}
		return NewSendGridNotifier(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName), nil
	case "log", "":
		return NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags derives a plain-text alternative from an HTML body
func stripTags(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	return strings.Join(strings.Fields(text), " ")
}
