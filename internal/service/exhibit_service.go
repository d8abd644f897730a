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

type exhibitRepository interface {
	FindByID(ctx context.Context, tenantID, caseID, id string) (*models.Exhibit, error)
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.Exhibit, error)
	ExistsLabel(ctx context.Context, tenantID, caseID, label, excludeID string) (bool, error)
	NextPosition(ctx context.Context, tenantID, caseID string) (int, error)
	Create(ctx context.Context, exhibit *models.Exhibit) error
	Update(ctx context.Context, exhibit *models.Exhibit) error
	Delete(ctx context.Context, tenantID, caseID, id string) error
}

// CreateExhibitRequest adds one labeled exhibit to the packet.
type CreateExhibitRequest struct {
	RFEDocumentID *string `json:"rfe_document_id"`
	Label         string  `json:"label" validate:"required,max=16"`
	Title         *string `json:"title" validate:"omitempty,max=255"`
	Description   *string `json:"description"`
	PageRange     *string `json:"page_range" validate:"omitempty,max=32"`
	Position      *int    `json:"position" validate:"omitempty,gte=0"`
}

// UpdateExhibitRequest edits an exhibit; nil means unchanged.
type UpdateExhibitRequest struct {
	RFEDocumentID *string `json:"rfe_document_id"`
	Label         *string `json:"label" validate:"omitempty,max=16"`
	Title         *string `json:"title" validate:"omitempty,max=255"`
	Description   *string `json:"description"`
	PageRange     *string `json:"page_range" validate:"omitempty,max=32"`
	Position      *int    `json:"position" validate:"omitempty,gte=0"`
}

// ExhibitService manages exhibit entries on a case.
type ExhibitService struct {
	repo      exhibitRepository
	cases     documentCaseRepository
	audit     *AuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExhibitService constructs an ExhibitService instance.
func NewExhibitService(repo exhibitRepository, cases documentCaseRepository, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger) *ExhibitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExhibitService{repo: repo, cases: cases, audit: audit, validator: validate, logger: logger}
}

// List returns the case's exhibits in packet order.
func (s *ExhibitService) List(ctx context.Context, claims *models.JWTClaims, caseID string) ([]models.Exhibit, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	exhibits, err := s.repo.ListByCase(ctx, claims.TenantID, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exhibits")
	}
	return exhibits, nil
}

// Get returns one exhibit.
func (s *ExhibitService) Get(ctx context.Context, claims *models.JWTClaims, caseID, id string) (*models.Exhibit, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	return s.loadExhibit(ctx, claims.TenantID, caseID, id)
}

// Create adds an exhibit. Labels are unique within the case.
func (s *ExhibitService) Create(ctx context.Context, claims *models.JWTClaims, caseID string, req CreateExhibitRequest, meta RequestMeta) (*models.Exhibit, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionCreateExhibit); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exhibit payload")
	}

	taken, err := s.repo.ExistsLabel(ctx, claims.TenantID, caseID, req.Label, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check exhibit label")
	}
	if taken {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "label is already used in this case")
	}

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		position, err = s.repo.NextPosition(ctx, claims.TenantID, caseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to determine exhibit position")
		}
	}

	exhibit := &models.Exhibit{
		TenantID:      claims.TenantID,
		CaseID:        caseID,
		RFEDocumentID: req.RFEDocumentID,
		Label:         req.Label,
		Title:         req.Title,
		Description:   req.Description,
		PageRange:     req.PageRange,
		Position:      position,
	}
	if err := s.repo.Create(ctx, exhibit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exhibit")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionCreate,
		models.EntityRef{Kind: models.EntityExhibit, ID: exhibit.ID},
		map[string]string{"label": exhibit.Label}, meta)

	return exhibit, nil
}

// Update edits an exhibit, re-checking label uniqueness when it changes.
func (s *ExhibitService) Update(ctx context.Context, claims *models.JWTClaims, caseID, id string, req UpdateExhibitRequest, meta RequestMeta) (*models.Exhibit, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	exhibit, err := s.loadExhibit(ctx, claims.TenantID, caseID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionUpdateExhibit); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exhibit payload")
	}

	if req.Label != nil && *req.Label != exhibit.Label {
		taken, err := s.repo.ExistsLabel(ctx, claims.TenantID, caseID, *req.Label, exhibit.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check exhibit label")
		}
		if taken {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "label is already used in this case")
		}
		exhibit.Label = *req.Label
	}
	if req.RFEDocumentID != nil {
		exhibit.RFEDocumentID = req.RFEDocumentID
	}
	if req.Title != nil {
		exhibit.Title = req.Title
	}
	if req.Description != nil {
		exhibit.Description = req.Description
	}
	if req.PageRange != nil {
		exhibit.PageRange = req.PageRange
	}
	if req.Position != nil {
		exhibit.Position = *req.Position
	}

	if err := s.repo.Update(ctx, exhibit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exhibit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exhibit")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionUpdate,
		models.EntityRef{Kind: models.EntityExhibit, ID: exhibit.ID}, nil, meta)

	return exhibit, nil
}

// Delete removes an exhibit. Unlike case delete, the whole edit group may
// do this.
func (s *ExhibitService) Delete(ctx context.Context, claims *models.JWTClaims, caseID, id string, meta RequestMeta) error {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return err
	}
	if _, err := s.loadExhibit(ctx, claims.TenantID, caseID, id); err != nil {
		return err
	}
	if err := policy.Authorize(claims.Role, policy.ActionDeleteExhibit); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, claims.TenantID, caseID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exhibit not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exhibit")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionDelete,
		models.EntityRef{Kind: models.EntityExhibit, ID: id}, nil, meta)

	return nil
}

func (s *ExhibitService) ensureCase(ctx context.Context, tenantID, caseID string) error {
	if _, err := s.cases.FindByID(ctx, tenantID, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return nil
}

func (s *ExhibitService) loadExhibit(ctx context.Context, tenantID, caseID, id string) (*models.Exhibit, error) {
	exhibit, err := s.repo.FindByID(ctx, tenantID, caseID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exhibit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exhibit")
	}
	return exhibit, nil
}
