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

type sectionRepository interface {
	FindByID(ctx context.Context, tenantID, caseID, id string) (*models.RFESection, error)
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.RFESection, error)
	Update(ctx context.Context, section *models.RFESection) error
}

// UpdateSectionRequest edits the reviewer-facing fields of a section.
type UpdateSectionRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=255"`
	Summary      *string `json:"summary"`
	CFRReference *string `json:"cfr_reference" validate:"omitempty,max=128"`
}

// SectionService manages parsed RFE sections on a case.
type SectionService struct {
	repo      sectionRepository
	cases     documentCaseRepository
	audit     *AuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs a SectionService instance.
func NewSectionService(repo sectionRepository, cases documentCaseRepository, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SectionService{repo: repo, cases: cases, audit: audit, validator: validate, logger: logger}
}

// List returns the case's sections in document order.
func (s *SectionService) List(ctx context.Context, claims *models.JWTClaims, caseID string) ([]models.RFESection, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	sections, err := s.repo.ListByCase(ctx, claims.TenantID, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}

// Get returns one section.
func (s *SectionService) Get(ctx context.Context, claims *models.JWTClaims, caseID, id string) (*models.RFESection, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	return s.loadSection(ctx, claims.TenantID, caseID, id)
}

// Update edits the title, summary, or CFR reference. The original excerpt
// text never changes.
func (s *SectionService) Update(ctx context.Context, claims *models.JWTClaims, caseID, id string, req UpdateSectionRequest, meta RequestMeta) (*models.RFESection, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	section, err := s.loadSection(ctx, claims.TenantID, caseID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionUpdateSection); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	if req.Title != nil {
		section.Title = req.Title
	}
	if req.Summary != nil {
		section.Summary = req.Summary
	}
	if req.CFRReference != nil {
		section.CFRReference = req.CFRReference
	}

	if err := s.repo.Update(ctx, section); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionUpdate,
		models.EntityRef{Kind: models.EntityRFESection, ID: section.ID}, nil, meta)

	return section, nil
}

// Reclassify changes the section's legal classification. Classification is
// audited separately from ordinary edits because it drives the response
// strategy downstream.
func (s *SectionService) Reclassify(ctx context.Context, claims *models.JWTClaims, caseID, id string, sectionType models.SectionType, meta RequestMeta) (*models.RFESection, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	section, err := s.loadSection(ctx, claims.TenantID, caseID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionReclassify); err != nil {
		return nil, err
	}
	if !sectionType.Valid() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown section_type")
	}

	previous := section.SectionType
	section.SectionType = sectionType
	if err := s.repo.Update(ctx, section); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reclassify section")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionReclassify,
		models.EntityRef{Kind: models.EntityRFESection, ID: section.ID},
		map[string]string{"from": string(previous), "to": string(sectionType)}, meta)

	return section, nil
}

func (s *SectionService) ensureCase(ctx context.Context, tenantID, caseID string) error {
	if _, err := s.cases.FindByID(ctx, tenantID, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return nil
}

func (s *SectionService) loadSection(ctx context.Context, tenantID, caseID, id string) (*models.RFESection, error) {
	section, err := s.repo.FindByID(ctx, tenantID, caseID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}
