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

const draftColumns = `id, tenant_id, case_id, rfe_section_id, position, title, ai_generated_content, edited_content, final_content, status, version, attorney_feedback, created_at, updated_at`

// DraftRepository provides database access for draft responses.
type DraftRepository struct {
	db *sqlx.DB
}

// NewDraftRepository creates a new instance of DraftRepository.
func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// FindByID returns a draft belonging to the case within the tenant.
func (r *DraftRepository) FindByID(ctx context.Context, tenantID, caseID, id string) (*models.DraftResponse, error) {
	query := fmt.Sprintf(`SELECT %s FROM draft_responses WHERE id = $1 AND tenant_id = $2 AND case_id = $3 LIMIT 1`, draftColumns)
	var draft models.DraftResponse
	if err := r.db.GetContext(ctx, &draft, query, id, tenantID, caseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find draft by id: %w", err)
	}
	return &draft, nil
}

// ListByCase returns drafts in section order.
func (r *DraftRepository) ListByCase(ctx context.Context, tenantID, caseID string) ([]models.DraftResponse, error) {
	query := fmt.Sprintf(`SELECT %s FROM draft_responses WHERE tenant_id = $1 AND case_id = $2 ORDER BY position ASC, created_at ASC`, draftColumns)
	var drafts []models.DraftResponse
	if err := r.db.SelectContext(ctx, &drafts, query, tenantID, caseID); err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, nil
}

// Create inserts a new draft; the analysis pipeline seeds one per section.
func (r *DraftRepository) Create(ctx context.Context, draft *models.DraftResponse) error {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.Version == 0 {
		draft.Version = 1
	}
	if draft.Status == "" {
		draft.Status = models.DraftPending
	}
	now := time.Now().UTC()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	const query = `INSERT INTO draft_responses (id, tenant_id, case_id, rfe_section_id, position, title, ai_generated_content, edited_content, final_content, status, version, attorney_feedback, created_at, updated_at) VALUES (:id, :tenant_id, :case_id, :rfe_section_id, :position, :title, :ai_generated_content, :edited_content, :final_content, :status, :version, :attorney_feedback, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, draft); err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

// Update persists attorney edits to the draft body and feedback.
func (r *DraftRepository) Update(ctx context.Context, draft *models.DraftResponse) error {
	draft.UpdatedAt = time.Now().UTC()
	const query = `UPDATE draft_responses SET edited_content = :edited_content, attorney_feedback = :attorney_feedback, status = :status, updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id AND case_id = :case_id`
	result, err := r.db.NamedExecContext(ctx, query, draft)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update draft rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Approve freezes the draft: final content snapshots the chosen body,
// optional feedback is stored, and status becomes approved.
func (r *DraftRepository) Approve(ctx context.Context, tenantID, caseID, id, finalContent string, feedback *string) error {
	const query = `UPDATE draft_responses SET status = $4, final_content = $5, attorney_feedback = COALESCE($6, attorney_feedback), updated_at = $7 WHERE id = $1 AND tenant_id = $2 AND case_id = $3`
	result, err := r.db.ExecContext(ctx, query, id, tenantID, caseID, models.DraftApproved, finalContent, feedback, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("approve draft: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve draft rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Regenerate replaces the AI body with a fresh generation, bumps the
// version, and resets status. Attorney edits are preserved.
func (r *DraftRepository) Regenerate(ctx context.Context, tenantID, caseID, id, aiContent string) error {
	const query = `UPDATE draft_responses SET ai_generated_content = $4, status = $5, version = version + 1, updated_at = $6 WHERE id = $1 AND tenant_id = $2 AND case_id = $3`
	result, err := r.db.ExecContext(ctx, query, id, tenantID, caseID, aiContent, models.DraftPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("regenerate draft: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("regenerate draft rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
