package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/pkg/crypto"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type dashboardCaseRepository interface {
	CountByStatus(ctx context.Context, tenantID string) ([]models.CaseStatusCount, error)
	CountApproachingDeadlines(ctx context.Context, tenantID string, window time.Duration) (int, error)
	Recent(ctx context.Context, tenantID string, limit int) ([]models.Case, error)
}

const (
	dashboardCachePrefix = "dashboard:summary:"
	recentCasesLimit     = 5
	deadlineWindow       = 14 * 24 * time.Hour
)

// DashboardService aggregates tenant-wide case statistics. Summaries are
// cached per tenant in Redis; a cache miss or Redis outage falls through to
// the database.
type DashboardService struct {
	repo     dashboardCaseRepository
	redis    *redis.Client
	cipher   *crypto.FieldCipher
	metrics  *MetricsService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(repo dashboardCaseRepository, redisClient *redis.Client, cipher *crypto.FieldCipher, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{repo: repo, redis: redisClient, cipher: cipher, metrics: metrics, cacheTTL: cacheTTL, logger: logger}
}

// Summary returns the tenant dashboard: case counts by status, cases with an
// RFE deadline inside the next two weeks, and the most recently updated cases.
func (s *DashboardService) Summary(ctx context.Context, claims *models.JWTClaims) (*models.DashboardSummary, error) {
	cacheKey := dashboardCachePrefix + claims.TenantID

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var summary models.DashboardSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				s.metrics.RecordCacheOperation(true)
				return &summary, nil
			}
		}
		s.metrics.RecordCacheOperation(false)
	}

	counts, err := s.repo.CountByStatus(ctx, claims.TenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count cases")
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}

	approaching, err := s.repo.CountApproachingDeadlines(ctx, claims.TenantID, deadlineWindow)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count deadlines")
	}

	recent, err := s.repo.Recent(ctx, claims.TenantID, recentCasesLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent cases")
	}
	for i := range recent {
		s.decryptBeneficiary(&recent[i])
	}

	summary := &models.DashboardSummary{
		TotalCases:           total,
		CasesByStatus:        counts,
		ApproachingDeadlines: approaching,
		RecentCases:          recent,
		GeneratedAt:          time.Now().UTC(),
	}

	if s.redis != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.redis.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.String("tenant_id", claims.TenantID), zap.Error(err))
			}
		}
	}

	return summary, nil
}

func (s *DashboardService) decryptBeneficiary(c *models.Case) {
	if s.cipher == nil {
		return
	}
	name, err := s.cipher.Decrypt(c.BeneficiaryNameEnc)
	if err != nil {
		s.logger.Warn("failed to decrypt beneficiary name", zap.String("case_id", c.ID), zap.Error(err))
		return
	}
	c.BeneficiaryName = name
}
