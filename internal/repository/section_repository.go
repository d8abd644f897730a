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

const sectionColumns = `id, tenant_id, case_id, rfe_document_id, position, section_type, title, original_text, summary, cfr_reference, confidence_score, created_at, updated_at`

// SectionRepository provides database access for parsed RFE sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new instance of SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section belonging to the case within the tenant.
func (r *SectionRepository) FindByID(ctx context.Context, tenantID, caseID, id string) (*models.RFESection, error) {
	query := fmt.Sprintf(`SELECT %s FROM rfe_sections WHERE id = $1 AND tenant_id = $2 AND case_id = $3 LIMIT 1`, sectionColumns)
	var section models.RFESection
	if err := r.db.GetContext(ctx, &section, query, id, tenantID, caseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find section by id: %w", err)
	}
	return &section, nil
}

// ListByCase returns sections in document order.
func (r *SectionRepository) ListByCase(ctx context.Context, tenantID, caseID string) ([]models.RFESection, error) {
	query := fmt.Sprintf(`SELECT %s FROM rfe_sections WHERE tenant_id = $1 AND case_id = $2 ORDER BY position ASC`, sectionColumns)
	var sections []models.RFESection
	if err := r.db.SelectContext(ctx, &sections, query, tenantID, caseID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// CountByCase returns how many sections the case has.
func (r *SectionRepository) CountByCase(ctx context.Context, tenantID, caseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM rfe_sections WHERE tenant_id = $1 AND case_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, caseID); err != nil {
		return 0, fmt.Errorf("count sections: %w", err)
	}
	return count, nil
}

// Create inserts a new section; the analysis pipeline is the usual caller.
func (r *SectionRepository) Create(ctx context.Context, section *models.RFESection) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now

	const query = `INSERT INTO rfe_sections (id, tenant_id, case_id, rfe_document_id, position, section_type, title, original_text, summary, cfr_reference, confidence_score, created_at, updated_at) VALUES (:id, :tenant_id, :case_id, :rfe_document_id, :position, :section_type, :title, :original_text, :summary, :cfr_reference, :confidence_score, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update persists editable section fields. Original text is immutable.
func (r *SectionRepository) Update(ctx context.Context, section *models.RFESection) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rfe_sections SET section_type = :section_type, title = :title, summary = :summary, cfr_reference = :cfr_reference, updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id AND case_id = :case_id`
	result, err := r.db.NamedExecContext(ctx, query, section)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update section rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
