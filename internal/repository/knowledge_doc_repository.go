package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rfeflow/rfe-api/internal/models"
)

const knowledgeDocColumns = `id, tenant_id, uploaded_by_id, doc_type, title, content, visa_type, rfe_category, is_active, created_at, updated_at`

// KnowledgeDocRepository provides database access for the firm knowledge base.
type KnowledgeDocRepository struct {
	db *sqlx.DB
}

// NewKnowledgeDocRepository creates a new instance of KnowledgeDocRepository.
func NewKnowledgeDocRepository(db *sqlx.DB) *KnowledgeDocRepository {
	return &KnowledgeDocRepository{db: db}
}

// FindByID returns a knowledge document within the tenant.
func (r *KnowledgeDocRepository) FindByID(ctx context.Context, tenantID, id string) (*models.KnowledgeDoc, error) {
	query := fmt.Sprintf(`SELECT %s FROM knowledge_docs WHERE id = $1 AND tenant_id = $2 LIMIT 1`, knowledgeDocColumns)
	var doc models.KnowledgeDoc
	if err := r.db.GetContext(ctx, &doc, query, id, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find knowledge doc by id: %w", err)
	}
	return &doc, nil
}

// List returns knowledge documents for the tenant with total count.
func (r *KnowledgeDocRepository) List(ctx context.Context, tenantID string, filter models.KnowledgeDocFilter) ([]models.KnowledgeDoc, int, error) {
	baseQuery := `FROM knowledge_docs WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	var conditions []string

	if filter.DocType != nil {
		conditions = append(conditions, fmt.Sprintf("doc_type = $%d", len(args)+1))
		args = append(args, *filter.DocType)
	}
	if filter.VisaType != "" {
		conditions = append(conditions, fmt.Sprintf("visa_type = $%d", len(args)+1))
		args = append(args, filter.VisaType)
	}
	if filter.RFECategory != "" {
		conditions = append(conditions, fmt.Sprintf("rfe_category = $%d", len(args)+1))
		args = append(args, filter.RFECategory)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY updated_at DESC LIMIT %d OFFSET %d", knowledgeDocColumns, baseQuery, pageSize, offset)

	var docs []models.KnowledgeDoc
	if err := r.db.SelectContext(ctx, &docs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list knowledge docs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count knowledge docs: %w", err)
	}

	return docs, total, nil
}

// Create inserts a new knowledge document.
func (r *KnowledgeDocRepository) Create(ctx context.Context, doc *models.KnowledgeDoc) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	const query = `INSERT INTO knowledge_docs (id, tenant_id, uploaded_by_id, doc_type, title, content, visa_type, rfe_category, is_active, created_at, updated_at) VALUES (:id, :tenant_id, :uploaded_by_id, :doc_type, :title, :content, :visa_type, :rfe_category, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create knowledge doc: %w", err)
	}
	return nil
}

// Update persists editable fields.
func (r *KnowledgeDocRepository) Update(ctx context.Context, doc *models.KnowledgeDoc) error {
	doc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE knowledge_docs SET doc_type = :doc_type, title = :title, content = :content, visa_type = :visa_type, rfe_category = :rfe_category, is_active = :is_active, updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, doc)
	if err != nil {
		return fmt.Errorf("update knowledge doc: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update knowledge doc rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a knowledge document.
func (r *KnowledgeDocRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM knowledge_docs WHERE id = $1 AND tenant_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete knowledge doc: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete knowledge doc rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
