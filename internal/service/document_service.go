package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/policy"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type documentRepository interface {
	FindByID(ctx context.Context, tenantID, caseID, id string) (*models.RFEDocument, error)
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.RFEDocument, error)
	Create(ctx context.Context, doc *models.RFEDocument) error
	UpdateProcessing(ctx context.Context, tenantID, id string, status models.ProcessingStatus, extractedText, ocrText *string) error
}

type documentCaseRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Case, error)
}

// DocumentConfig bounds what uploads the service accepts.
type DocumentConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// CreateDocumentRequest registers an uploaded file. The bytes live in
// external storage; this call records the metadata and storage key.
type CreateDocumentRequest struct {
	DocumentType models.DocumentType `json:"document_type" validate:"required"`
	FileName     string              `json:"file_name" validate:"required,max=255"`
	ContentType  string              `json:"content_type" validate:"required,max=128"`
	FileSize     int64               `json:"file_size" validate:"required,gt=0"`
}

// DocumentService manages RFE document records on a case.
type DocumentService struct {
	repo      documentRepository
	cases     documentCaseRepository
	audit     *AuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    DocumentConfig
}

// NewDocumentService constructs a DocumentService instance.
func NewDocumentService(repo documentRepository, cases documentCaseRepository, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger, config DocumentConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentService{repo: repo, cases: cases, audit: audit, validator: validate, logger: logger, config: config}
}

// List returns the documents on a case.
func (s *DocumentService) List(ctx context.Context, claims *models.JWTClaims, caseID string) ([]models.RFEDocument, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	docs, err := s.repo.ListByCase(ctx, claims.TenantID, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Get returns one document.
func (s *DocumentService) Get(ctx context.Context, claims *models.JWTClaims, caseID, id string) (*models.RFEDocument, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	doc, err := s.repo.FindByID(ctx, claims.TenantID, caseID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

// Create registers a document and leaves it pending for text extraction.
func (s *DocumentService) Create(ctx context.Context, claims *models.JWTClaims, caseID string, req CreateDocumentRequest, meta RequestMeta) (*models.RFEDocument, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionCreateDocument); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	if !req.DocumentType.Valid() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown document_type")
	}
	if s.config.MaxFileSizeBytes > 0 && req.FileSize > s.config.MaxFileSizeBytes {
		return nil, appErrors.WithDetails(appErrors.ErrValidation,
			fmt.Sprintf("file exceeds the %d byte limit", s.config.MaxFileSizeBytes))
	}
	if len(s.config.AllowedMIMEs) > 0 && !s.mimeAllowed(req.ContentType) {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unsupported content type")
	}

	storageKey := storageKeyFor(claims.TenantID, caseID, req.FileName)
	doc := &models.RFEDocument{
		TenantID:         claims.TenantID,
		CaseID:           caseID,
		UploadedByID:     claims.UserID,
		DocumentType:     req.DocumentType,
		Filename:         req.FileName,
		ContentType:      &req.ContentType,
		FileSize:         &req.FileSize,
		StorageKey:       &storageKey,
		ProcessingStatus: models.ProcessingPending,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionCreate,
		models.EntityRef{Kind: models.EntityRFEDocument, ID: doc.ID},
		map[string]string{"filename": doc.Filename}, meta)

	return doc, nil
}

// RecordProcessing is the collaborator callback: the extraction pipeline
// reports completion or failure together with any recovered text.
func (s *DocumentService) RecordProcessing(ctx context.Context, tenantID, id string, status models.ProcessingStatus, extractedText, ocrText *string) error {
	if !status.Valid() {
		return appErrors.WithDetails(appErrors.ErrValidation, "unknown processing status")
	}
	if err := s.repo.UpdateProcessing(ctx, tenantID, id, status, extractedText, ocrText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record processing result")
	}
	return nil
}

func (s *DocumentService) ensureCase(ctx context.Context, tenantID, caseID string) error {
	if _, err := s.cases.FindByID(ctx, tenantID, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return nil
}

func (s *DocumentService) mimeAllowed(contentType string) bool {
	for _, allowed := range s.config.AllowedMIMEs {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func storageKeyFor(tenantID, caseID, fileName string) string {
	return filepath.ToSlash(filepath.Join(tenantID, caseID, uuid.NewString()+filepath.Ext(fileName)))
}
