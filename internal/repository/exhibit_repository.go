package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rfeflow/rfe-api/internal/models"
)

const exhibitColumns = `id, tenant_id, case_id, rfe_document_id, label, title, description, page_range, position, created_at, updated_at`

// ExhibitRepository provides database access for exhibit entries.
type ExhibitRepository struct {
	db *sqlx.DB
}

// NewExhibitRepository creates a new instance of ExhibitRepository.
func NewExhibitRepository(db *sqlx.DB) *ExhibitRepository {
	return &ExhibitRepository{db: db}
}

// FindByID returns an exhibit belonging to the case within the tenant.
func (r *ExhibitRepository) FindByID(ctx context.Context, tenantID, caseID, id string) (*models.Exhibit, error) {
	query := fmt.Sprintf(`SELECT %s FROM exhibits WHERE id = $1 AND tenant_id = $2 AND case_id = $3 LIMIT 1`, exhibitColumns)
	var exhibit models.Exhibit
	if err := r.db.GetContext(ctx, &exhibit, query, id, tenantID, caseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find exhibit by id: %w", err)
	}
	return &exhibit, nil
}

// ListByCase returns exhibits in packet order.
func (r *ExhibitRepository) ListByCase(ctx context.Context, tenantID, caseID string) ([]models.Exhibit, error) {
	query := fmt.Sprintf(`SELECT %s FROM exhibits WHERE tenant_id = $1 AND case_id = $2 ORDER BY position ASC, label ASC`, exhibitColumns)
	var exhibits []models.Exhibit
	if err := r.db.SelectContext(ctx, &exhibits, query, tenantID, caseID); err != nil {
		return nil, fmt.Errorf("list exhibits: %w", err)
	}
	return exhibits, nil
}

// ExistsLabel reports whether the case already uses an exhibit label.
func (r *ExhibitRepository) ExistsLabel(ctx context.Context, tenantID, caseID, label, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM exhibits WHERE tenant_id = $1 AND case_id = $2 AND label = $3`
	args := []interface{}{tenantID, caseID, label}
	if excludeID != "" {
		query += ` AND id <> $4`
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check exhibit label: %w", err)
	}
	return count > 0, nil
}

// NextPosition returns the next free packet position for the case.
func (r *ExhibitRepository) NextPosition(ctx context.Context, tenantID, caseID string) (int, error) {
	const query = `SELECT COALESCE(MAX(position), 0) + 1 FROM exhibits WHERE tenant_id = $1 AND case_id = $2`
	var next int
	if err := r.db.GetContext(ctx, &next, query, tenantID, caseID); err != nil {
		return 0, fmt.Errorf("next exhibit position: %w", err)
	}
	return next, nil
}

// Create inserts a new exhibit.
func (r *ExhibitRepository) Create(ctx context.Context, exhibit *models.Exhibit) error {
	if exhibit.ID == "" {
		exhibit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exhibit.CreatedAt = now
	exhibit.UpdatedAt = now

	const query = `INSERT INTO exhibits (id, tenant_id, case_id, rfe_document_id, label, title, description, page_range, position, created_at, updated_at) VALUES (:id, :tenant_id, :case_id, :rfe_document_id, :label, :title, :description, :page_range, :position, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exhibit); err != nil {
		return fmt.Errorf("create exhibit: %w", err)
	}
	return nil
}

// Update persists editable exhibit fields.
func (r *ExhibitRepository) Update(ctx context.Context, exhibit *models.Exhibit) error {
	exhibit.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exhibits SET rfe_document_id = :rfe_document_id, label = :label, title = :title, description = :description, page_range = :page_range, position = :position, updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id AND case_id = :case_id`
	result, err := r.db.NamedExecContext(ctx, query, exhibit)
	if err != nil {
		return fmt.Errorf("update exhibit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update exhibit rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an exhibit.
func (r *ExhibitRepository) Delete(ctx context.Context, tenantID, caseID, id string) error {
	const query = `DELETE FROM exhibits WHERE id = $1 AND tenant_id = $2 AND case_id = $3`
	result, err := r.db.ExecContext(ctx, query, id, tenantID, caseID)
	if err != nil {
		return fmt.Errorf("delete exhibit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete exhibit rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
