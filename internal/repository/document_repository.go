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

const documentColumns = `id, tenant_id, case_id, uploaded_by_id, document_type, filename, content_type, file_size, storage_key, processing_status, extracted_text, ocr_text, created_at, updated_at`

// DocumentRepository provides database access for uploaded RFE documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new instance of DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// FindByID returns a document belonging to the case within the tenant.
func (r *DocumentRepository) FindByID(ctx context.Context, tenantID, caseID, id string) (*models.RFEDocument, error) {
	query := fmt.Sprintf(`SELECT %s FROM rfe_documents WHERE id = $1 AND tenant_id = $2 AND case_id = $3 LIMIT 1`, documentColumns)
	var doc models.RFEDocument
	if err := r.db.GetContext(ctx, &doc, query, id, tenantID, caseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return &doc, nil
}

// ListByCase returns every document on the case, newest first.
func (r *DocumentRepository) ListByCase(ctx context.Context, tenantID, caseID string) ([]models.RFEDocument, error) {
	query := fmt.Sprintf(`SELECT %s FROM rfe_documents WHERE tenant_id = $1 AND case_id = $2 ORDER BY created_at DESC`, documentColumns)
	var docs []models.RFEDocument
	if err := r.db.SelectContext(ctx, &docs, query, tenantID, caseID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Create inserts a new document record.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.RFEDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	const query = `INSERT INTO rfe_documents (id, tenant_id, case_id, uploaded_by_id, document_type, filename, content_type, file_size, storage_key, processing_status, created_at, updated_at) VALUES (:id, :tenant_id, :case_id, :uploaded_by_id, :document_type, :filename, :content_type, :file_size, :storage_key, :processing_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// UpdateProcessing records the outcome of text extraction.
func (r *DocumentRepository) UpdateProcessing(ctx context.Context, tenantID, id string, status models.ProcessingStatus, extractedText, ocrText *string) error {
	const query = `UPDATE rfe_documents SET processing_status = $3, extracted_text = COALESCE($4, extracted_text), ocr_text = COALESCE($5, ocr_text), updated_at = $6 WHERE id = $1 AND tenant_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, tenantID, status, extractedText, ocrText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document processing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document processing rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a document record.
func (r *DocumentRepository) Delete(ctx context.Context, tenantID, caseID, id string) error {
	const query = `DELETE FROM rfe_documents WHERE id = $1 AND tenant_id = $2 AND case_id = $3`
	result, err := r.db.ExecContext(ctx, query, id, tenantID, caseID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
