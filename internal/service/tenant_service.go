package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/policy"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type tenantRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
}

// UpdateTenantRequest edits firm settings; nil means unchanged.
type UpdateTenantRequest struct {
	Name              *string         `json:"name" validate:"omitempty,max=255"`
	DataRetentionDays *int            `json:"data_retention_days" validate:"omitempty,min=0,max=3650"`
	Settings          json.RawMessage `json:"settings"`
}

// TenantService exposes the caller's own firm record. There is no cross-tenant
// surface; the id always comes from the token.
type TenantService struct {
	repo      tenantRepository
	audit     *AuditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTenantService constructs a TenantService instance.
func NewTenantService(repo tenantRepository, audit *AuditRecorder, validate *validator.Validate, logger *zap.Logger) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TenantService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Get returns the caller's firm.
func (s *TenantService) Get(ctx context.Context, claims *models.JWTClaims) (*models.Tenant, error) {
	return s.loadTenant(ctx, claims.TenantID)
}

// Update edits firm name, retention window, or settings. Admin only.
func (s *TenantService) Update(ctx context.Context, claims *models.JWTClaims, req UpdateTenantRequest, meta RequestMeta) (*models.Tenant, error) {
	tenant, err := s.loadTenant(ctx, claims.TenantID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionUpdateTenant); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tenant payload")
	}

	if req.Name != nil {
		tenant.Name = *req.Name
	}
	if req.DataRetentionDays != nil {
		tenant.DataRetentionDays = *req.DataRetentionDays
	}
	if req.Settings != nil {
		if !json.Valid(req.Settings) {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "settings must be valid JSON")
		}
		tenant.Settings = req.Settings
	}

	if err := s.repo.Update(ctx, tenant); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tenant")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionUpdate,
		models.EntityRef{Kind: models.EntityTenant, ID: tenant.ID}, nil, meta)

	return tenant, nil
}

func (s *TenantService) loadTenant(ctx context.Context, id string) (*models.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}
	return tenant, nil
}
