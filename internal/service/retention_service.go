package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/models"
)

type retentionTenantRepository interface {
	ListWithRetention(ctx context.Context) ([]models.Tenant, error)
}

type retentionAuditRepository interface {
	DeleteOlderThan(ctx context.Context, tenantID string, before time.Time) (int64, error)
}

// RetentionService purges audit rows past each tenant's retention window.
// This purge is the only path that ever deletes audit rows.
type RetentionService struct {
	tenants retentionTenantRepository
	audit   retentionAuditRepository
	logger  *zap.Logger
}

// NewRetentionService constructs a RetentionService instance.
func NewRetentionService(tenants retentionTenantRepository, audit retentionAuditRepository, logger *zap.Logger) *RetentionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionService{tenants: tenants, audit: audit, logger: logger}
}

// Sweep runs one purge pass over every tenant with a retention window. A
// failure for one tenant is logged and does not stop the others.
func (s *RetentionService) Sweep(ctx context.Context) {
	tenants, err := s.tenants.ListWithRetention(ctx)
	if err != nil {
		s.logger.Error("retention sweep failed to list tenants", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, tenant := range tenants {
		cutoff := now.AddDate(0, 0, -tenant.DataRetentionDays)
		removed, err := s.audit.DeleteOlderThan(ctx, tenant.ID, cutoff)
		if err != nil {
			s.logger.Error("retention purge failed",
				zap.String("tenant_id", tenant.ID),
				zap.Error(err))
			continue
		}
		if removed > 0 {
			s.logger.Info("retention purge removed audit rows",
				zap.String("tenant_id", tenant.ID),
				zap.Int64("removed", removed),
				zap.Time("cutoff", cutoff))
		}
	}
}

// Run sweeps on the given interval until the context is cancelled.
func (s *RetentionService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
