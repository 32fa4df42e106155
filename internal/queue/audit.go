// internal/queue/audit.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/isp-broadcast/internal/model"
	"github.com/unclebandit/isp-broadcast/internal/repository"
)

// AuditPublisher puts dispatch outcomes on TopicDispatchAudit.
type AuditPublisher struct {
	Queue Queue
}

func (p *AuditPublisher) PublishAudit(ctx context.Context, e model.AuditEvent) error {
	return p.Queue.Publish(TopicDispatchAudit, e)
}

// StartAuditSubscriber stores every audit event received on q.
func StartAuditSubscriber(q Queue, repo repository.AuditRepositoryInterface, log logrus.FieldLogger) error {
	return q.Subscribe(TopicDispatchAudit, func(payload any) error {
		e, err := decodeAudit(payload)
		if err != nil {
			return err
		}
		if err := repo.Insert(context.Background(), e); err != nil {
			return fmt.Errorf("store audit %s: %w", e.ID, err)
		}
		log.WithFields(logrus.Fields{"audit": e.ID, "action": e.Action, "reference": e.Reference}).Info("audit event stored")
		return nil
	})
}

func decodeAudit(payload any) (*model.AuditEvent, error) {
	switch p := payload.(type) {
	case model.AuditEvent:
		return &p, nil
	case *model.AuditEvent:
		return p, nil
	case []byte:
		var e model.AuditEvent
		if err := json.Unmarshal(p, &e); err != nil {
			return nil, fmt.Errorf("invalid audit payload: %w", err)
		}
		return &e, nil
	}
	return nil, fmt.Errorf("invalid audit payload type %T", payload)
}
