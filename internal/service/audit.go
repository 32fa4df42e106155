// internal/service/audit.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/isp-broadcast/internal/model"
)

// AuditPublisher receives terminal dispatch outcomes. Failures are logged and never block dispatch.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, e model.AuditEvent) error
}

func publishAudit(ctx context.Context, p AuditPublisher, log logrus.FieldLogger, e model.AuditEvent) {
	if p == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if err := p.PublishAudit(ctx, e); err != nil {
		log.WithError(err).WithField("action", e.Action).Warn("audit publish failed")
	}
}
