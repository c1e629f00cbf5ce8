package repository

import (
	"context"
	"fmt"

	"github.com/feedloop/securenotes/internal/models"
	"github.com/jmoiron/sqlx"
)

// AuditRepository stores audit events in the append-only audit_events table.
// It is used directly as an audit sink.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Write(ctx context.Context, event models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, kind, actor, target, resource, origin, reason, request_id, occurred_at)
		VALUES (:id, :kind, :actor, :target, :resource, :origin, :reason, :request_id, :occurred_at)`

	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	events := []models.AuditEvent{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, kind, actor, target, resource, origin, reason, request_id, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}
