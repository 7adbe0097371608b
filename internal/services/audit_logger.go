package services

import (
	"context"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"github.com/sirupsen/logrus"
)

// AuditLoggerImpl writes audit events as structured log entries
type AuditLoggerImpl struct {
	logger logrus.FieldLogger
}

// NewAuditLogger creates an audit logger
func NewAuditLogger(logger logrus.FieldLogger) *AuditLoggerImpl {
	return &AuditLoggerImpl{logger: logger}
}

var _ domain.AuditLogger = (*AuditLoggerImpl)(nil)

// LogEvent implements domain.AuditLogger
func (a *AuditLoggerImpl) LogEvent(_ context.Context, event *domain.AuditEvent) {
	fields := logrus.Fields{
		"audit":     true,
		"event":     string(event.EventType),
		"success":   event.Success,
		"timestamp": event.Timestamp,
	}
	if event.Email != "" {
		fields["email"] = event.Email
	}
	if event.Handle != "" {
		fields["handle"] = event.Handle
	}
	for k, v := range event.Metadata {
		fields["meta."+k] = v
	}

	entry := a.logger.WithFields(fields)
	if event.Success {
		entry.Info("audit event")
		return
	}
	entry.WithField("error", event.ErrorMsg).Warn("audit event")
}
