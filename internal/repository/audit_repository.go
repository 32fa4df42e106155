// internal/repository/audit_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/unclebandit/isp-broadcast/internal/model"
)

type AuditRepositoryInterface interface {
	Insert(ctx context.Context, e *model.AuditEvent) error
	List(ctx context.Context, offset, limit int, action string) ([]*model.AuditEvent, int, error)
}

type AuditRepository struct {
	DB *sql.DB
}

// Insert is idempotent on the event id so redelivered queue messages are harmless.
func (r *AuditRepository) Insert(ctx context.Context, e *model.AuditEvent) error {
	query := `
        INSERT INTO dispatch_audit (id, action, reference, recipients, sent_count, failed_count, detail, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING
    `
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, string(e.Action), e.Reference, pq.Array(e.Recipients),
		e.SentCount, e.FailedCount, e.Detail, e.OccurredAt,
	)
	return err
}

func (r *AuditRepository) List(ctx context.Context, offset, limit int, action string) ([]*model.AuditEvent, int, error) {
	events := []*model.AuditEvent{}
	query := `SELECT id, action, reference, recipients, sent_count, failed_count, detail, occurred_at FROM dispatch_audit WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if action != "" {
		query += fmt.Sprintf(" AND action=$%d", argPos)
		args = append(args, action)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		e := &model.AuditEvent{}
		var act string
		if err := rows.Scan(&e.ID, &act, &e.Reference, pq.Array(&e.Recipients), &e.SentCount, &e.FailedCount, &e.Detail, &e.OccurredAt); err != nil {
			return nil, 0, err
		}
		e.Action = model.AuditAction(act)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM dispatch_audit WHERE 1=1`
	countArgs := []interface{}{}
	if action != "" {
		countQuery += " AND action=$1"
		countArgs = append(countArgs, action)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

var _ AuditRepositoryInterface = (*AuditRepository)(nil)
