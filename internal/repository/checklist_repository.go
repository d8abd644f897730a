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

const checklistColumns = `id, tenant_id, case_id, rfe_section_id, position, priority, document_name, description, guidance, is_collected, linked_document_id, attorney_notes, created_at, updated_at`

// ChecklistRepository provides database access for evidence checklist items.
type ChecklistRepository struct {
	db *sqlx.DB
}

// NewChecklistRepository creates a new instance of ChecklistRepository.
func NewChecklistRepository(db *sqlx.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// FindByID returns a checklist item belonging to the case within the tenant.
func (r *ChecklistRepository) FindByID(ctx context.Context, tenantID, caseID, id string) (*models.EvidenceChecklistItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM evidence_checklists WHERE id = $1 AND tenant_id = $2 AND case_id = $3 LIMIT 1`, checklistColumns)
	var item models.EvidenceChecklistItem
	if err := r.db.GetContext(ctx, &item, query, id, tenantID, caseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find checklist item by id: %w", err)
	}
	return &item, nil
}

// ListByCase returns items in section order.
func (r *ChecklistRepository) ListByCase(ctx context.Context, tenantID, caseID string) ([]models.EvidenceChecklistItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM evidence_checklists WHERE tenant_id = $1 AND case_id = $2 ORDER BY position ASC, document_name ASC`, checklistColumns)
	var items []models.EvidenceChecklistItem
	if err := r.db.SelectContext(ctx, &items, query, tenantID, caseID); err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	return items, nil
}

// Create inserts a new checklist item.
func (r *ChecklistRepository) Create(ctx context.Context, item *models.EvidenceChecklistItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	const query = `INSERT INTO evidence_checklists (id, tenant_id, case_id, rfe_section_id, position, priority, document_name, description, guidance, is_collected, linked_document_id, attorney_notes, created_at, updated_at) VALUES (:id, :tenant_id, :case_id, :rfe_section_id, :position, :priority, :document_name, :description, :guidance, :is_collected, :linked_document_id, :attorney_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create checklist item: %w", err)
	}
	return nil
}

// Update persists editable checklist fields.
func (r *ChecklistRepository) Update(ctx context.Context, item *models.EvidenceChecklistItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE evidence_checklists SET priority = :priority, document_name = :document_name, description = :description, guidance = :guidance, is_collected = :is_collected, linked_document_id = :linked_document_id, attorney_notes = :attorney_notes, updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id AND case_id = :case_id`
	result, err := r.db.NamedExecContext(ctx, query, item)
	if err != nil {
		return fmt.Errorf("update checklist item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update checklist item rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ToggleCollected flips the collected flag in place and returns the new
// value, so two racing toggles land on the stored state, not a stale read.
func (r *ChecklistRepository) ToggleCollected(ctx context.Context, tenantID, caseID, id string) (bool, error) {
	const query = `UPDATE evidence_checklists SET is_collected = NOT is_collected, updated_at = $4 WHERE id = $1 AND tenant_id = $2 AND case_id = $3 RETURNING is_collected`
	var collected bool
	if err := r.db.GetContext(ctx, &collected, query, id, tenantID, caseID, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return false, err
		}
		return false, fmt.Errorf("toggle checklist item: %w", err)
	}
	return collected, nil
}

// Delete removes a checklist item.
func (r *ChecklistRepository) Delete(ctx context.Context, tenantID, caseID, id string) error {
	const query = `DELETE FROM evidence_checklists WHERE id = $1 AND tenant_id = $2 AND case_id = $3`
	result, err := r.db.ExecContext(ctx, query, id, tenantID, caseID)
	if err != nil {
		return fmt.Errorf("delete checklist item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete checklist item rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
