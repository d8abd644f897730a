package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/models"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type auditQueryRepository interface {
	ListByEntity(ctx context.Context, tenantID string, ref models.EntityRef, limit int) ([]models.AuditLog, error)
}

// AuditQueryService reads the audit trail for one entity.
type AuditQueryService struct {
	repo   auditQueryRepository
	logger *zap.Logger
}

// NewAuditQueryService constructs an AuditQueryService instance.
func NewAuditQueryService(repo auditQueryRepository, logger *zap.Logger) *AuditQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditQueryService{repo: repo, logger: logger}
}

// ListForEntity returns the newest audit entries for one entity, capped at
// limit (default 50, max 200).
func (s *AuditQueryService) ListForEntity(ctx context.Context, claims *models.JWTClaims, kind models.EntityKind, entityID string, limit int) ([]models.AuditLog, error) {
	if !kind.Valid() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown entity kind")
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	entries, err := s.repo.ListByEntity(ctx, claims.TenantID, models.EntityRef{Kind: kind, ID: entityID}, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
	}
	return entries, nil
}
