package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/lifecycle"
	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/repository"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/jobs"
)

type analysisCaseRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Case, error)
	TransitionStatus(ctx context.Context, tenantID, id string, from, to models.CaseStatus, stamp repository.CaseTransitionStamp) (int64, error)
}

type analysisSectionRepository interface {
	Create(ctx context.Context, section *models.RFESection) error
}

type analysisChecklistRepository interface {
	Create(ctx context.Context, item *models.EvidenceChecklistItem) error
}

type analysisDraftRepository interface {
	Create(ctx context.Context, draft *models.DraftResponse) error
	Regenerate(ctx context.Context, tenantID, caseID, id, aiContent string) error
}

const (
	signalKindCase  = "case_analysis"
	signalKindDraft = "draft_regeneration"
)

// analysisSignal is the message published to the engine channel. The external
// analysis engine subscribes and pulls the referenced documents itself.
type analysisSignal struct {
	Kind     string `json:"kind"`
	TenantID string `json:"tenant_id"`
	CaseID   string `json:"case_id"`
	DraftID  string `json:"draft_id,omitempty"`
}

// ChecklistResult is one evidence ask proposed by the engine for a section.
type ChecklistResult struct {
	Priority     models.ChecklistPriority `json:"priority"`
	DocumentName string                   `json:"document_name" validate:"required"`
	Description  *string                  `json:"description"`
	Guidance     *string                  `json:"guidance"`
}

// SectionResult is one classified RFE excerpt plus its generated response.
type SectionResult struct {
	RFEDocumentID   *string            `json:"rfe_document_id"`
	SectionType     models.SectionType `json:"section_type" validate:"required"`
	Title           *string            `json:"title"`
	OriginalText    *string            `json:"original_text"`
	Summary         *string            `json:"summary"`
	CFRReference    *string            `json:"cfr_reference"`
	ConfidenceScore *float64           `json:"confidence_score"`
	DraftContent    string             `json:"draft_content"`
	Checklist       []ChecklistResult  `json:"checklist"`
}

// AnalysisResult is the full payload the engine posts back when a case
// analysis completes.
type AnalysisResult struct {
	Sections []SectionResult `json:"sections"`
}

// AnalysisService bridges the API and the external analysis engine. Dispatch
// methods publish work signals over Redis without blocking the caller; the
// ingest methods persist what the engine sends back.
type AnalysisService struct {
	cases     analysisCaseRepository
	sections  analysisSectionRepository
	checklist analysisChecklistRepository
	drafts    analysisDraftRepository

	redis   *redis.Client
	channel string
	queue   *jobs.Queue
	audit   *AuditRecorder
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAnalysisService constructs an AnalysisService. Call StartWorkers before
// serving traffic and StopWorkers during shutdown.
func NewAnalysisService(cases analysisCaseRepository, sections analysisSectionRepository, checklist analysisChecklistRepository, drafts analysisDraftRepository, redisClient *redis.Client, channel string, queueCfg jobs.QueueConfig, audit *AuditRecorder, metrics *MetricsService, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "rfe:analysis:requests"
	}
	s := &AnalysisService{
		cases:     cases,
		sections:  sections,
		checklist: checklist,
		drafts:    drafts,
		redis:     redisClient,
		channel:   channel,
		audit:     audit,
		metrics:   metrics,
		logger:    logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("analysis", s.publish, queueCfg)
	return s
}

// StartWorkers launches the signal publishers.
func (s *AnalysisService) StartWorkers(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopWorkers drains the signal publishers.
func (s *AnalysisService) StopWorkers() {
	s.queue.Stop()
}

// DispatchCase signals the engine to analyze a case. Best-effort: a queue
// failure is logged, never surfaced, because the status transition that
// triggered it has already committed.
func (s *AnalysisService) DispatchCase(tenantID, caseID string) {
	s.enqueue(analysisSignal{Kind: signalKindCase, TenantID: tenantID, CaseID: caseID})
}

// DispatchDraft signals the engine to regenerate one draft.
func (s *AnalysisService) DispatchDraft(tenantID, caseID, draftID string) {
	s.enqueue(analysisSignal{Kind: signalKindDraft, TenantID: tenantID, CaseID: caseID, DraftID: draftID})
}

func (s *AnalysisService) enqueue(signal analysisSignal) {
	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    signal.Kind,
		Payload: signal,
	}); err != nil {
		s.logger.Error("failed to queue analysis signal",
			zap.String("kind", signal.Kind),
			zap.String("case_id", signal.CaseID),
			zap.Error(err))
	}
}

func (s *AnalysisService) publish(ctx context.Context, job jobs.Job) error {
	signal, ok := job.Payload.(analysisSignal)
	if !ok {
		return fmt.Errorf("unexpected analysis payload type %T", job.Payload)
	}
	payload, err := json.Marshal(signal)
	if err != nil {
		return fmt.Errorf("marshal analysis signal: %w", err)
	}
	if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish analysis signal: %w", err)
	}
	s.metrics.RecordAnalysisSignal(signal.Kind)
	s.logger.Info("analysis signal published",
		zap.String("kind", signal.Kind),
		zap.String("case_id", signal.CaseID))
	return nil
}

// IngestResults persists the engine's output for a case: sections in order,
// their checklist items, and one pending draft per section, then advances the
// case from analyzing to review. The case must still be analyzing.
func (s *AnalysisService) IngestResults(ctx context.Context, tenantID, caseID string, result AnalysisResult) error {
	c, err := s.cases.FindByID(ctx, tenantID, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	if c.Status != models.CaseAnalyzing {
		return appErrors.WithDetails(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot ingest analysis results for a case in status %s", c.Status))
	}

	for i, sectionResult := range result.Sections {
		if !sectionResult.SectionType.Valid() {
			return appErrors.WithDetails(appErrors.ErrValidation, "unknown section type")
		}
		section := &models.RFESection{
			TenantID:        tenantID,
			CaseID:          caseID,
			RFEDocumentID:   sectionResult.RFEDocumentID,
			Position:        i + 1,
			SectionType:     sectionResult.SectionType,
			Title:           sectionResult.Title,
			OriginalText:    sectionResult.OriginalText,
			Summary:         sectionResult.Summary,
			CFRReference:    sectionResult.CFRReference,
			ConfidenceScore: sectionResult.ConfidenceScore,
		}
		if err := s.sections.Create(ctx, section); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
		}

		for j, ask := range sectionResult.Checklist {
			priority := ask.Priority
			if !priority.Valid() {
				priority = models.PriorityRecommended
			}
			item := &models.EvidenceChecklistItem{
				TenantID:     tenantID,
				CaseID:       caseID,
				RFESectionID: section.ID,
				Position:     j + 1,
				Priority:     priority,
				DocumentName: ask.DocumentName,
				Description:  ask.Description,
				Guidance:     ask.Guidance,
			}
			if err := s.checklist.Create(ctx, item); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create checklist item")
			}
		}

		if sectionResult.DraftContent != "" {
			draft := &models.DraftResponse{
				TenantID:           tenantID,
				CaseID:             caseID,
				RFESectionID:       section.ID,
				Position:           i + 1,
				Title:              sectionResult.Title,
				AIGeneratedContent: sectionResult.DraftContent,
			}
			if err := s.drafts.Create(ctx, draft); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create draft")
			}
		}
	}

	next, err := lifecycle.Next(c.Status, lifecycle.CompleteAnalysis)
	if err != nil {
		return err
	}
	rows, err := s.cases.TransitionStatus(ctx, tenantID, caseID, c.Status, next, repository.CaseTransitionStamp{})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance case")
	}
	if rows == 0 {
		return appErrors.WithDetails(appErrors.ErrInvalidTransition, "case moved while ingesting results")
	}

	s.logger.Info("analysis results ingested",
		zap.String("case_id", caseID),
		zap.Int("sections", len(result.Sections)))

	// Engine writes carry no acting user.
	s.audit.Record(ctx, tenantID, nil, models.AuditActionStatusTransition,
		models.EntityRef{Kind: models.EntityCase, ID: caseID},
		map[string]string{"from": string(c.Status), "to": string(next)}, RequestMeta{})

	return nil
}

// IngestDraft stores regenerated content for one draft, bumping its version
// and resetting it to pending review.
func (s *AnalysisService) IngestDraft(ctx context.Context, tenantID, caseID, draftID, content string) error {
	if content == "" {
		return appErrors.WithDetails(appErrors.ErrValidation, "draft content is required")
	}
	if err := s.drafts.Regenerate(ctx, tenantID, caseID, draftID, content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "draft not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store regenerated draft")
	}

	s.audit.Record(ctx, tenantID, nil, models.AuditActionRegenerate,
		models.EntityRef{Kind: models.EntityDraft, ID: draftID}, nil, RequestMeta{})

	return nil
}
