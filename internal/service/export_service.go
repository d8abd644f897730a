package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rfeflow/rfe-api/internal/models"
	"github.com/rfeflow/rfe-api/internal/policy"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
	"github.com/rfeflow/rfe-api/pkg/export"
	"github.com/rfeflow/rfe-api/pkg/jobs"
	"github.com/rfeflow/rfe-api/pkg/storage"
)

type exportJobRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.ExportJob, error)
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.ExportJob, error)
	Create(ctx context.Context, job *models.ExportJob) error
	MarkProcessing(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, resultPath, resultURL string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

type exportCaseRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Case, error)
	MarkExported(ctx context.Context, tenantID, id string, ts time.Time) error
}

type exportSectionRepository interface {
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.RFESection, error)
}

type exportDraftRepository interface {
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.DraftResponse, error)
}

type exportChecklistRepository interface {
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.EvidenceChecklistItem, error)
}

type exportExhibitRepository interface {
	ListByCase(ctx context.Context, tenantID, caseID string) ([]models.Exhibit, error)
}

type fieldDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}

const exportJobType = "case_packet"

type exportJobPayload struct {
	JobID    string
	TenantID string
	CaseID   string
}

// ExportService renders case packets in the background. Enqueue returns as
// soon as the job row exists; the queue worker builds the PDF, stores it, and
// stamps the case.
type ExportService struct {
	repo      exportJobRepository
	cases     exportCaseRepository
	sections  exportSectionRepository
	drafts    exportDraftRepository
	checklist exportChecklistRepository
	exhibits  exportExhibitRepository

	cipher fieldDecrypter
	pdf    *export.PDFExporter
	csv    *export.CSVExporter
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner

	queue   *jobs.Queue
	audit   *AuditRecorder
	metrics *MetricsService
	logger  *zap.Logger
}

// ExportServiceDeps collects the collaborators wired in from main.
type ExportServiceDeps struct {
	Jobs      exportJobRepository
	Cases     exportCaseRepository
	Sections  exportSectionRepository
	Drafts    exportDraftRepository
	Checklist exportChecklistRepository
	Exhibits  exportExhibitRepository
	Cipher    fieldDecrypter
	Store     *storage.LocalStorage
	Signer    *storage.SignedURLSigner
	Audit     *AuditRecorder
	Metrics   *MetricsService
	Logger    *zap.Logger
}

// NewExportService constructs an ExportService. Call StartWorkers before
// serving traffic and StopWorkers during shutdown.
func NewExportService(deps ExportServiceDeps, queueCfg jobs.QueueConfig) *ExportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		repo:      deps.Jobs,
		cases:     deps.Cases,
		sections:  deps.Sections,
		drafts:    deps.Drafts,
		checklist: deps.Checklist,
		exhibits:  deps.Exhibits,
		cipher:    deps.Cipher,
		pdf:       export.NewPDFExporter(),
		csv:       export.NewCSVExporter(),
		store:     deps.Store,
		signer:    deps.Signer,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		logger:    logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("exports", s.process, queueCfg)
	return s
}

// StartWorkers launches the render workers.
func (s *ExportService) StartWorkers(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopWorkers drains the render workers.
func (s *ExportService) StopWorkers() {
	s.queue.Stop()
}

// Enqueue creates a queued export job for the case and hands it to the
// workers. Handlers answer 202 with the returned job.
func (s *ExportService) Enqueue(ctx context.Context, claims *models.JWTClaims, caseID string, meta RequestMeta) (*models.ExportJob, error) {
	if _, err := s.loadCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	if err := policy.Authorize(claims.Role, policy.ActionExportCase); err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		TenantID:    claims.TenantID,
		CaseID:      caseID,
		RequestedBy: claims.UserID,
		Status:      models.ExportQueued,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{
		ID:      job.ID,
		Type:    exportJobType,
		Payload: exportJobPayload{JobID: job.ID, TenantID: claims.TenantID, CaseID: caseID},
	}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "queue unavailable"); markErr != nil {
			s.logger.Error("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	s.audit.Record(ctx, claims.TenantID, &claims.UserID, models.AuditActionExport,
		models.EntityRef{Kind: models.EntityCase, ID: caseID},
		map[string]string{"job_id": job.ID}, meta)

	return job, nil
}

// GetJob returns one export job.
func (s *ExportService) GetJob(ctx context.Context, claims *models.JWTClaims, id string) (*models.ExportJob, error) {
	job, err := s.repo.FindByID(ctx, claims.TenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

// ListJobs returns the case's export jobs, newest first.
func (s *ExportService) ListJobs(ctx context.Context, claims *models.JWTClaims, caseID string) ([]models.ExportJob, error) {
	if _, err := s.loadCase(ctx, claims.TenantID, caseID); err != nil {
		return nil, err
	}
	jobsList, err := s.repo.ListByCase(ctx, claims.TenantID, caseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list export jobs")
	}
	return jobsList, nil
}

// OpenArtifact validates a signed download token and opens the packet file.
// The caller owns closing the handle.
func (s *ExportService) OpenArtifact(ctx context.Context, claims *models.JWTClaims, token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired")
	}

	job, err := s.GetJob(ctx, claims, jobID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != models.ExportFinished || job.ResultPath == nil || *job.ResultPath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export artifact not available")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export artifact not available")
	}
	return file, filepath.Base(relPath), nil
}

// Cleanup deletes finished jobs older than the cutoff along with their files.
func (s *ExportService) Cleanup(ctx context.Context, maxAge time.Duration) error {
	paths, err := s.repo.DeleteFinishedBefore(ctx, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return err
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := s.store.Delete(path); err != nil {
			s.logger.Warn("failed to delete export artifact", zap.String("path", path), zap.Error(err))
		}
	}
	if len(paths) > 0 {
		s.logger.Info("export cleanup removed artifacts", zap.Int("count", len(paths)))
	}
	return nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportJobPayload)
	if !ok {
		return fmt.Errorf("unexpected export payload type %T", job.Payload)
	}

	if err := s.repo.MarkProcessing(ctx, payload.JobID); err != nil {
		return err
	}

	relPath, err := s.render(ctx, payload)
	if err != nil {
		s.logger.Error("export render failed",
			zap.String("job_id", payload.JobID),
			zap.String("case_id", payload.CaseID),
			zap.Error(err))
		if markErr := s.repo.MarkFailed(ctx, payload.JobID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark export job failed", zap.String("job_id", payload.JobID), zap.Error(markErr))
		}
		s.metrics.RecordExportJob("failed")
		return nil
	}

	token, _, err := s.signer.Generate(payload.JobID, relPath)
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, payload.JobID, "failed to sign download link"); markErr != nil {
			s.logger.Error("failed to mark export job failed", zap.String("job_id", payload.JobID), zap.Error(markErr))
		}
		s.metrics.RecordExportJob("failed")
		return nil
	}
	resultURL := "/api/v1/exports/download?token=" + token

	if err := s.repo.MarkFinished(ctx, payload.JobID, relPath, resultURL); err != nil {
		return err
	}
	if err := s.cases.MarkExported(ctx, payload.TenantID, payload.CaseID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to stamp case exported_at", zap.String("case_id", payload.CaseID), zap.Error(err))
	}

	s.metrics.RecordExportJob("finished")
	s.logger.Info("export packet finished",
		zap.String("job_id", payload.JobID),
		zap.String("case_id", payload.CaseID),
		zap.String("path", relPath))
	return nil
}

func (s *ExportService) render(ctx context.Context, payload exportJobPayload) (string, error) {
	c, err := s.cases.FindByID(ctx, payload.TenantID, payload.CaseID)
	if err != nil {
		return "", fmt.Errorf("load case: %w", err)
	}
	beneficiary := ""
	if name, err := s.cipher.Decrypt(c.BeneficiaryNameEnc); err == nil {
		beneficiary = name
	}

	sections, err := s.sections.ListByCase(ctx, payload.TenantID, payload.CaseID)
	if err != nil {
		return "", fmt.Errorf("load sections: %w", err)
	}
	drafts, err := s.drafts.ListByCase(ctx, payload.TenantID, payload.CaseID)
	if err != nil {
		return "", fmt.Errorf("load drafts: %w", err)
	}
	checklist, err := s.checklist.ListByCase(ctx, payload.TenantID, payload.CaseID)
	if err != nil {
		return "", fmt.Errorf("load checklist: %w", err)
	}
	exhibits, err := s.exhibits.ListByCase(ctx, payload.TenantID, payload.CaseID)
	if err != nil {
		return "", fmt.Errorf("load exhibits: %w", err)
	}

	packet := buildPacket(c, beneficiary, sections, drafts, checklist, exhibits)

	pdfBytes, err := s.pdf.Render(packet)
	if err != nil {
		return "", fmt.Errorf("render pdf: %w", err)
	}
	csvBytes, err := s.csv.Render(checklistDataset(checklist))
	if err != nil {
		return "", fmt.Errorf("render checklist csv: %w", err)
	}

	dir := filepath.Join(payload.TenantID, payload.CaseID)
	pdfPath := filepath.Join(dir, payload.JobID+".pdf")
	csvPath := filepath.Join(dir, payload.JobID+"-checklist.csv")
	if _, err := s.store.Save(pdfPath, pdfBytes); err != nil {
		return "", fmt.Errorf("store pdf: %w", err)
	}
	if _, err := s.store.Save(csvPath, csvBytes); err != nil {
		return "", fmt.Errorf("store checklist csv: %w", err)
	}
	return pdfPath, nil
}

func buildPacket(c *models.Case, beneficiary string, sections []models.RFESection, drafts []models.DraftResponse, checklist []models.EvidenceChecklistItem, exhibits []models.Exhibit) export.Packet {
	// Only approved responses make it into the packet; everything else
	// renders as pending.
	responseBySection := make(map[string]string, len(drafts))
	for _, d := range drafts {
		if d.Status == models.DraftApproved && d.FinalContent != "" {
			responseBySection[d.RFESectionID] = d.FinalContent
		}
	}

	packet := export.Packet{
		CaseNumber:      c.CaseNumber,
		PetitionerName:  c.PetitionerName,
		BeneficiaryName: beneficiary,
		VisaType:        c.VisaType,
	}
	if c.USCISReceiptNumber != nil {
		packet.ReceiptNumber = *c.USCISReceiptNumber
	}
	if c.RFEDeadline != nil {
		packet.Deadline = c.RFEDeadline.Format("January 2, 2006")
	}

	for _, section := range sections {
		ps := export.PacketSection{
			SectionType: string(section.SectionType),
			Response:    responseBySection[section.ID],
		}
		if section.Title != nil {
			ps.Title = *section.Title
		}
		if section.Summary != nil {
			ps.Summary = *section.Summary
		}
		packet.Sections = append(packet.Sections, ps)
	}

	for _, item := range checklist {
		packet.Checklist = append(packet.Checklist, export.PacketChecklistItem{
			DocumentName: item.DocumentName,
			Priority:     string(item.Priority),
			Collected:    item.IsCollected,
		})
	}

	for _, exhibit := range exhibits {
		pe := export.PacketExhibit{Label: exhibit.Label}
		if exhibit.Title != nil {
			pe.Title = *exhibit.Title
		}
		if exhibit.PageRange != nil {
			pe.PageRange = *exhibit.PageRange
		}
		packet.Exhibits = append(packet.Exhibits, pe)
	}

	return packet
}

func checklistDataset(items []models.EvidenceChecklistItem) export.Dataset {
	data := export.Dataset{Headers: []string{"document_name", "priority", "is_collected", "attorney_notes"}}
	for _, item := range items {
		collected := "no"
		if item.IsCollected {
			collected = "yes"
		}
		notes := ""
		if item.AttorneyNotes != nil {
			notes = *item.AttorneyNotes
		}
		data.Rows = append(data.Rows, map[string]string{
			"document_name":  item.DocumentName,
			"priority":       string(item.Priority),
			"is_collected":   collected,
			"attorney_notes": notes,
		})
	}
	return data
}

func (s *ExportService) loadCase(ctx context.Context, tenantID, caseID string) (*models.Case, error) {
	c, err := s.cases.FindByID(ctx, tenantID, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return c, nil
}
