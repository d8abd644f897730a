package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rfeflow/rfe-api/internal/models"
)

const exportJobColumns = `id, tenant_id, case_id, requested_by, status, result_path, result_url, error_message, created_at, finished_at`

// ExportJobRepository provides database access for packet export jobs.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository creates a new instance of ExportJobRepository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// FindByID returns an export job within the tenant.
func (r *ExportJobRepository) FindByID(ctx context.Context, tenantID, id string) (*models.ExportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM export_jobs WHERE id = $1 AND tenant_id = $2 LIMIT 1`, exportJobColumns)
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find export job by id: %w", err)
	}
	return &job, nil
}

// ListByCase returns export jobs for the case, newest first.
func (r *ExportJobRepository) ListByCase(ctx context.Context, tenantID, caseID string) ([]models.ExportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM export_jobs WHERE tenant_id = $1 AND case_id = $2 ORDER BY created_at DESC`, exportJobColumns)
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, tenantID, caseID); err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, nil
}

// Create inserts a new queued export job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportQueued
	}
	job.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO export_jobs (id, tenant_id, case_id, requested_by, status, created_at) VALUES (:id, :tenant_id, :case_id, :requested_by, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// MarkProcessing moves a queued job into processing.
func (r *ExportJobRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE export_jobs SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportProcessing); err != nil {
		return fmt.Errorf("mark export job processing: %w", err)
	}
	return nil
}

// MarkFinished records a successful export with its artifact location.
func (r *ExportJobRepository) MarkFinished(ctx context.Context, id, resultPath, resultURL string) error {
	const query = `UPDATE export_jobs SET status = $2, result_path = $3, result_url = $4, finished_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportFinished, resultPath, resultURL, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export job finished: %w", err)
	}
	return nil
}

// MarkFailed records a failed export with its error.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	const query = `UPDATE export_jobs SET status = $2, error_message = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportFailed, errMsg, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export job failed: %w", err)
	}
	return nil
}

// DeleteFinishedBefore removes finished jobs older than the cutoff and
// returns their artifact paths so the caller can unlink the files.
func (r *ExportJobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `DELETE FROM export_jobs WHERE status = $1 AND finished_at < $2 RETURNING result_path`
	var paths []string
	if err := r.db.SelectContext(ctx, &paths, query, models.ExportFinished, cutoff); err != nil {
		return nil, fmt.Errorf("delete finished export jobs: %w", err)
	}
	return paths, nil
}
