package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/policy"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type draftRepository interface {
	FindByID(ctx context.Context, tenantID, caseID, id string) (*models.DraftResponse, error)
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.DraftResponse, error)
	Update(ctx context.Context, draft *models.DraftResponse) error
	Approve(ctx context.Context, tenantID, caseID, id, finalContent string, feedback *string) error
}

// draftRegenerator hands a draft back to the generation pipeline.
type draftRegenerator interface {
	DispatchDraft(tenantID, caseID, draftID string)
}

// UpdateDraftRequest carries attorney edits; nil means unchanged.
type UpdateDraftRequest struct {
	EditedContent    *string `json:"edited_content"`
	AttorneyFeedback *string `json:"attorney_feedback"`
}

// ApproveDraftRequest optionally attaches feedback at approval time.
type ApproveDraftRequest struct {
	AttorneyFeedback *string `json:"attorney_feedback"`
}

// DraftService manages generated draft responses on a case.
type DraftService struct {
	repo        draftRepository
	cases       documentCaseRepository
	regenerator draftRegenerator
	audit       *AuditRecorder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewDraftService constructs a DraftService instance.
func NewDraftService(repo draftRepository, cases documentCaseRepository, regenerator draftRegenerator, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DraftService{repo: repo, cases: cases, regenerator: regenerator, audit: audit, validator: validate, logger: logger}
}

// List returns the case's drafts in section order.
func (s *DraftService) List(ctx context.Context, claims *models.JWTClaims, caseID string) ([]models.DraftResponse, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	drafts, err := s.repo.ListByCase(ctx, claims.TenantID, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drafts")
	}
	return drafts, nil
}

// Get returns one draft.
func (s *DraftService) Get(ctx context.Context, claims *models.JWTClaims, caseID, id string) (*models.DraftResponse, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	return s.loadDraft(ctx, claims.TenantID, caseID, id)
}

// Update stores an attorney edit. Editing moves the draft to editing status;
// the machine-generated content is never overwritten.
func (s *DraftService) Update(ctx context.Context, claims *models.JWTClaims, caseID, id string, req UpdateDraftRequest, meta RequestMeta) (*models.DraftResponse, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	draft, err := s.loadDraft(ctx, claims.TenantID, caseID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionUpdateDraft); err != nil {
		return nil, err
	}

	if req.EditedContent != nil {
		draft.EditedContent = *req.EditedContent
		if draft.Status == models.DraftPending {
			draft.Status = models.DraftEditing
		}
	}
	if req.AttorneyFeedback != nil {
		draft.AttorneyFeedback = req.AttorneyFeedback
	}

	if err := s.repo.Update(ctx, draft); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionUpdate,
		models.EntityRef{Kind: models.EntityDraft, ID: draft.ID}, nil, meta)

	return draft, nil
}

// Approve freezes the draft. Final content is the attorney's edit when one
// exists, otherwise the machine draft; the two are never merged. Approving
// an already approved draft is a no-op in effect but is audited per call.
func (s *DraftService) Approve(ctx context.Context, claims *models.JWTClaims, caseID, id string, req ApproveDraftRequest, meta RequestMeta) (*models.DraftResponse, error) {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	draft, err := s.loadDraft(ctx, claims.TenantID, caseID, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionApproveDraft); err != nil {
		return nil, err
	}

	finalContent := draft.EditedContent
	if strings.TrimSpace(finalContent) == "" {
		finalContent = draft.AIGeneratedContent
	}

	if err := s.repo.Approve(ctx, claims.TenantID, caseID, id, finalContent, req.AttorneyFeedback); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve draft")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionApproveDraft,
		models.EntityRef{Kind: models.EntityDraft, ID: id}, nil, meta)

	return s.loadDraft(ctx, claims.TenantID, caseID, id)
}

// Regenerate queues a fresh generation for the draft and returns
// immediately; the pipeline bumps the version when it lands.
func (s *DraftService) Regenerate(ctx context.Context, claims *models.JWTClaims, caseID, id string, meta RequestMeta) error {
	if err := s.ensureCase(ctx, claims.TenantID, caseID); err != nil {
		return err
	}
	if _, err := s.loadDraft(ctx, claims.TenantID, caseID, id); err != nil {
		return err
	}
	if err := policy.Authorize(claims.Role, policy.ActionRegenerateDraft); err != nil {
		return err
	}

	if s.regenerator != nil {
		s.regenerator.DispatchDraft(claims.TenantID, caseID, id)
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionRegenerate,
		models.EntityRef{Kind: models.EntityDraft, ID: id}, nil, meta)

	return nil
}

func (s *DraftService) ensureCase(ctx context.Context, tenantID, caseID string) error {
	if _, err := s.cases.FindByID(ctx, tenantID, caseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return nil
}

func (s *DraftService) loadDraft(ctx context.Context, tenantID, caseID, id string) (*models.DraftResponse, error) {
	draft, err := s.repo.FindByID(ctx, tenantID, caseID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
	}
	return draft, nil
}
