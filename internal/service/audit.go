package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/models"
)

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditRecorder appends audit trail entries on behalf of the services. A
// failed write never fails the business operation; it is logged and dropped.
type AuditRecorder struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditRecorder constructs an AuditRecorder instance.
func NewAuditRecorder(repo auditRepository, logger *zap.Logger) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRecorder{repo: repo, logger: logger}
}

// RequestMeta carries the client address and agent captured by the handler.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Record appends one entry. Changes may be nil; any non-nil value is
// marshalled to JSON.
func (a *AuditRecorder) Record(ctx context.Context, tenantID string, userID *string, action string, ref models.EntityRef, changes interface{}, meta RequestMeta) {
	if a == nil || a.repo == nil {
		return
	}
	var payload []byte
	if changes != nil {
		b, err := json.Marshal(changes)
		if err != nil {
			a.logger.Warn("failed to marshal audit changes", zap.Error(err))
		} else {
			payload = b
		}
	}
	entry := &models.AuditLog{
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		EntityKind: ref.Kind,
		EntityID:   ref.ID,
		Changes:    payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if err := a.repo.Create(ctx, entry); err != nil {
		a.logger.Warn("failed to record audit log",
			zap.String("action", action),
			zap.String("entity_kind", string(ref.Kind)),
			zap.Error(err))
	}
}
