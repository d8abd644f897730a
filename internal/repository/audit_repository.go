package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rfeflow/rfe-api/internal/models"
)

// AuditRepository provides append-only access to the audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit log entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, tenant_id, user_id, action, entity_kind, entity_id, changes, ip_address, user_agent, created_at) VALUES (:id, :tenant_id, :user_id, :action, :entity_kind, :entity_id, :changes, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByEntity returns the newest entries for one entity within the tenant.
func (r *AuditRepository) ListByEntity(ctx context.Context, tenantID string, ref models.EntityRef, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, tenant_id, user_id, action, entity_kind, entity_id, changes, ip_address, user_agent, created_at FROM audit_logs WHERE tenant_id = $1 AND entity_kind = $2 AND entity_id = $3 ORDER BY created_at DESC LIMIT %d`, limit)
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, tenantID, ref.Kind, ref.ID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan purges entries past the tenant's retention horizon and
// returns how many rows were removed.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, tenantID string, before time.Time) (int64, error) {
	const query = `DELETE FROM audit_logs WHERE tenant_id = $1 AND created_at < $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, before)
	if err != nil {
		return 0, fmt.Errorf("purge audit logs: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit logs rows: %w", err)
	}
	return rows, nil
}
