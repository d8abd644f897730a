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

type checklistRepository interface {
	FindByID(ctx context.Context, tenantID, caseID, id string) (*models.EvidenceChecklistItem, error)
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.EvidenceChecklistItem, error)
	Update(ctx context.Context, item *models.EvidenceChecklistItem) error
	ToggleCollected(ctx context.Context, tenantID, caseID, id string) (bool, error)
}

// UpdateChecklistItemRequest edits one evidence ask; nil means unchanged.
type UpdateChecklistItemRequest struct {
	Priority         *models.ChecklistPriority `json:"priority"`
	DocumentName     *string                   `json:"document_name" validate:"omitempty,max=255"`
	Description      *string                   `json:"description"`
	Guidance         *string                   `json:"guidance"`
	LinkedDocumentID *string                   `json:"linked_document_id"`
	AttorneyNotes    *string                   `json:"attorney_notes"`
}

// ChecklistService manages evidence checklist items on a case.
type ChecklistService struct {
	repo      checklistRepository
	cases     documentCaseRepository
	audit     *AuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChecklistService constructs a ChecklistService instance.
func NewChecklistService(repo checklistRepository, cases documentCaseRepository, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger) *ChecklistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChecklistService{repo: repo, cases: cases, audit: audit, validator: validate, logger: logger}
}

// List returns the case's checklist in section order.
func (s *ChecklistService) List(ctx context.Context, claims *models.JWTClaims, caseID string) ([]models.EvidenceChecklistItem, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByCase(ctx, claims.TenantID, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list checklist items")
	}
	return items, nil
}

// Update edits one checklist item.
func (s *ChecklistService) Update(ctx context.Context, claims *models.JWTClaims, caseID, id string, req UpdateChecklistItemRequest, meta RequestMeta) (*models.EvidenceChecklistItem, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, claims.TenantID, caseID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionUpdateChecklist); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid checklist payload")
	}

	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown priority")
		}
		item.Priority = *req.Priority
	}
	if req.DocumentName != nil {
		item.DocumentName = *req.DocumentName
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.Guidance != nil {
		item.Guidance = req.Guidance
	}
	if req.LinkedDocumentID != nil {
		item.LinkedDocumentID = req.LinkedDocumentID
	}
	if req.AttorneyNotes != nil {
		item.AttorneyNotes = req.AttorneyNotes
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "checklist item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update checklist item")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionUpdate,
		models.EntityRef{Kind: models.EntityChecklist, ID: item.ID}, nil, meta)

	return item, nil
}

// ToggleCollected flips the collected flag and nothing else. Toggling twice
// restores the original value.
func (s *ChecklistService) ToggleCollected(ctx context.Context, claims *models.JWTClaims, caseID, id string, meta RequestMeta) (*models.EvidenceChecklistItem, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	if _, err := s.loadItem(ctx, claims.TenantID, caseID, id); err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionToggleCollected); err != nil {
		return nil, err
	}

	collected, err := s.repo.ToggleCollected(ctx, claims.TenantID, caseID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "checklist item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle checklist item")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionToggleCollected,
		models.EntityRef{Kind: models.EntityChecklist, ID: id},
		map[string]bool{"is_collected": collected}, meta)

	return s.loadItem(ctx, claims.TenantID, caseID, id)
}

func (s *ChecklistService) ensureCase(ctx context.Context, tenantID, caseID string) error {
	if _, err := s.cases.FindByID(ctx, tenantID, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return nil
}

func (s *ChecklistService) loadItem(ctx context.Context, tenantID, caseID, id string) (*models.EvidenceChecklistItem, error) {
	item, err := s.repo.FindByID(ctx, tenantID, caseID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "checklist item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load checklist item")
	}
	return item, nil
}
