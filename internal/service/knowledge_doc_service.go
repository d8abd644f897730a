package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/policy"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type knowledgeDocRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.KnowledgeDoc, error)
	List(ctx context.Context, tenantID string, filter models.KnowledgeDocFilter) ([]models.KnowledgeDoc, int, error)
	Create(ctx context.Context, doc *models.KnowledgeDoc) error
	Update(ctx context.Context, doc *models.KnowledgeDoc) error
	Delete(ctx context.Context, tenantID, id string) error
}

// CreateKnowledgeDocRequest adds reference material to the firm knowledge base.
type CreateKnowledgeDocRequest struct {
	DocType     models.KnowledgeDocType `json:"doc_type" validate:"required"`
	Title       string                  `json:"title" validate:"required,max=255"`
	Content     *string                 `json:"content"`
	VisaType    *string                 `json:"visa_type" validate:"omitempty,max=32"`
	RFECategory *string                 `json:"rfe_category" validate:"omitempty,max=64"`
}

// UpdateKnowledgeDocRequest edits a knowledge doc; nil means unchanged.
type UpdateKnowledgeDocRequest struct {
	DocType     *models.KnowledgeDocType `json:"doc_type"`
	Title       *string                  `json:"title" validate:"omitempty,max=255"`
	Content     *string                  `json:"content"`
	VisaType    *string                  `json:"visa_type" validate:"omitempty,max=32"`
	RFECategory *string                  `json:"rfe_category" validate:"omitempty,max=64"`
	IsActive    *bool                    `json:"is_active"`
}

// ListKnowledgeDocsRequest captures list filters from the query string.
type ListKnowledgeDocsRequest struct {
	DocType     string `form:"doc_type"`
	VisaType    string `form:"visa_type"`
	RFECategory string `form:"rfe_category"`
	ActiveOnly  bool   `form:"active_only"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// KnowledgeDocService manages the tenant knowledge base the drafting engine
// draws from.
type KnowledgeDocService struct {
	repo      knowledgeDocRepository
	audit     *AuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewKnowledgeDocService constructs a KnowledgeDocService instance.
func NewKnowledgeDocService(repo knowledgeDocRepository, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger) *KnowledgeDocService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &KnowledgeDocService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns knowledge docs matching the filters.
func (s *KnowledgeDocService) List(ctx context.Context, claims *models.JWTClaims, req ListKnowledgeDocsRequest) ([]models.KnowledgeDoc, int, error) {
	filter := models.KnowledgeDocFilter{
		VisaType:    req.VisaType,
		RFECategory: req.RFECategory,
		ActiveOnly:  req.ActiveOnly,
		Page:        req.Page,
		PageSize:    req.PageSize,
	}
	if req.DocType != "" {
		docType := models.KnowledgeDocType(req.DocType)
		if !docType.Valid() {
			return nil, 0, appErrors.WithDetails(appErrors.ErrValidation, "unknown doc type")
		}
		filter.DocType = &docType
	}

	docs, total, err := s.repo.List(ctx, claims.TenantID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list knowledge docs")
	}
	return docs, total, nil
}

// Get returns one knowledge doc.
func (s *KnowledgeDocService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.KnowledgeDoc, error) {
	return s.loadDoc(ctx, claims.TenantID, id)
}

// Create adds a knowledge doc.
func (s *KnowledgeDocService) Create(ctx context.Context, claims *models.JWTClaims, req CreateKnowledgeDocRequest, meta RequestMeta) (*models.KnowledgeDoc, error) {
	if err := policy.Authorize(claims.Role, policy.ActionCreateKnowledge); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid knowledge doc payload")
	}
	if !req.DocType.Valid() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown doc type")
	}

	doc := &models.KnowledgeDoc{
		TenantID:     claims.TenantID,
		UploadedByID: claims.UserID,
		DocType:      req.DocType,
		Title:        req.Title,
		Content:      req.Content,
		VisaType:     req.VisaType,
		RFECategory:  req.RFECategory,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create knowledge doc")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionCreate,
		models.EntityRef{Kind: models.EntityKnowledgeDoc, ID: doc.ID},
		map[string]string{"title": doc.Title}, meta)

	return doc, nil
}

// Update edits a knowledge doc.
func (s *KnowledgeDocService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateKnowledgeDocRequest, meta RequestMeta) (*models.KnowledgeDoc, error) {
	doc, err := s.loadDoc(ctx, claims.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionUpdateKnowledge); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid knowledge doc payload")
	}

	if req.DocType != nil {
		if !req.DocType.Valid() {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown doc type")
		}
		doc.DocType = *req.DocType
	}
	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Content != nil {
		doc.Content = req.Content
	}
	if req.VisaType != nil {
		doc.VisaType = req.VisaType
	}
	if req.RFECategory != nil {
		doc.RFECategory = req.RFECategory
	}
	if req.IsActive != nil {
		doc.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "knowledge doc not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update knowledge doc")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionUpdate,
		models.EntityRef{Kind: models.EntityKnowledgeDoc, ID: doc.ID}, nil, meta)

	return doc, nil
}

// Delete removes a knowledge doc. Admin only.
func (s *KnowledgeDocService) Delete(ctx context.Context, claims *models.JWTClaims, id string, meta RequestMeta) error {
	if _, err := s.loadDoc(ctx, claims.TenantID, id); err != nil {
		return err
	}
	if err := policy.Authorize(claims.Role, policy.ActionDeleteKnowledge); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, claims.TenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "knowledge doc not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete knowledge doc")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionDelete,
		models.EntityRef{Kind: models.EntityKnowledgeDoc, ID: id}, nil, meta)

	return nil
}

func (s *KnowledgeDocService) loadDoc(ctx context.Context, tenantID, id string) (*models.KnowledgeDoc, error) {
	doc, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "knowledge doc not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load knowledge doc")
	}
	return doc, nil
}
