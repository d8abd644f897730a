package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rfeflow/rfe-api/internal/models"
)

const caseColumns = `id, tenant_id, created_by_id, assigned_attorney_id, case_number, uscis_receipt_number, visa_type, status, petitioner_name, beneficiary_name_enc, beneficiary_name_bidx, rfe_received_date, rfe_deadline, notes, attorney_reviewed, attorney_reviewed_at, exported_at, submitted_at, created_at, updated_at`

// CaseRepository provides database access for the case aggregate. Every
// query is scoped by tenant id; a row from another tenant behaves exactly
// like a missing row.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository creates a new instance of CaseRepository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// FindByID returns a case within the tenant.
func (r *CaseRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE id = $1 AND tenant_id = $2 LIMIT 1`, caseColumns)
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, id, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find case by id: %w", err)
	}
	return &c, nil
}

// ExistsCaseNumber reports whether the tenant already uses a case number.
func (r *CaseRepository) ExistsCaseNumber(ctx context.Context, tenantID, caseNumber, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM cases WHERE tenant_id = $1 AND case_number = $2`
	args := []interface{}{tenantID, caseNumber}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check case number: %w", err)
	}
	return count > 0, nil
}

// List returns cases for the tenant, newest first, with total count.
func (r *CaseRepository) List(ctx context.Context, tenantID string, filter models.CaseFilter) ([]models.Case, int, error) {
	baseQuery := `FROM cases WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	var conditions []string

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.VisaType != "" {
		conditions = append(conditions, fmt.Sprintf("visa_type = $%d", len(args)+1))
		args = append(args, filter.VisaType)
	}
	if filter.AssignedTo != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_attorney_id = $%d", len(args)+1))
		args = append(args, filter.AssignedTo)
	}
	if filter.BeneficiaryBidx != "" {
		conditions = append(conditions, fmt.Sprintf("beneficiary_name_bidx = $%d", len(args)+1))
		args = append(args, filter.BeneficiaryBidx)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(case_number) LIKE $%d OR LOWER(petitioner_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", caseColumns, baseQuery, pageSize, offset)

	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	return cases, total, nil
}

// Create inserts a new case.
func (r *CaseRepository) Create(ctx context.Context, c *models.Case) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	const query = `INSERT INTO cases (id, tenant_id, created_by_id, assigned_attorney_id, case_number, uscis_receipt_number, visa_type, status, petitioner_name, beneficiary_name_enc, beneficiary_name_bidx, rfe_received_date, rfe_deadline, notes, attorney_reviewed, created_at, updated_at) VALUES (:id, :tenant_id, :created_by_id, :assigned_attorney_id, :case_number, :uscis_receipt_number, :visa_type, :status, :petitioner_name, :beneficiary_name_enc, :beneficiary_name_bidx, :rfe_received_date, :rfe_deadline, :notes, :attorney_reviewed, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

// Update persists mutable intake fields. Status is never written here; use
// TransitionStatus so the lifecycle guard always applies.
func (r *CaseRepository) Update(ctx context.Context, c *models.Case) error {
	c.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cases SET case_number = :case_number, uscis_receipt_number = :uscis_receipt_number, visa_type = :visa_type, petitioner_name = :petitioner_name, beneficiary_name_enc = :beneficiary_name_enc, beneficiary_name_bidx = :beneficiary_name_bidx, rfe_received_date = :rfe_received_date, rfe_deadline = :rfe_deadline, notes = :notes, updated_at = :updated_at WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TransitionStatus atomically moves a case from one status to another. The
// WHERE clause re-verifies the source status at commit time, so of two
// racing transitions exactly one sees a row and wins. Returns the number of
// rows changed; zero means the row is gone, foreign, or no longer in from.
func (r *CaseRepository) TransitionStatus(ctx context.Context, tenantID, id string, from, to models.CaseStatus, stamp CaseTransitionStamp) (int64, error) {
	now := time.Now().UTC()
	query := `UPDATE cases SET status = $1, updated_at = $2`
	args := []interface{}{to, now}

	if stamp.AttorneyReviewed {
		query += fmt.Sprintf(", attorney_reviewed = TRUE, attorney_reviewed_at = $%d", len(args)+1)
		args = append(args, now)
	}
	if stamp.Submitted {
		query += fmt.Sprintf(", submitted_at = $%d", len(args)+1)
		args = append(args, now)
	}

	query += fmt.Sprintf(" WHERE id = $%d AND tenant_id = $%d AND status = $%d", len(args)+1, len(args)+2, len(args)+3)
	args = append(args, id, tenantID, from)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("transition case status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transition case rows: %w", err)
	}
	return rows, nil
}

// CaseTransitionStamp selects the derived timestamps written together with a
// status transition so the whole mutation commits atomically.
type CaseTransitionStamp struct {
	AttorneyReviewed bool
	Submitted        bool
}

// AssignAttorney sets the assigned attorney for a case.
func (r *CaseRepository) AssignAttorney(ctx context.Context, tenantID, id, attorneyID string) error {
	const query = `UPDATE cases SET assigned_attorney_id = $3, updated_at = $4 WHERE id = $1 AND tenant_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, tenantID, attorneyID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("assign attorney: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign attorney rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkExported stamps the last successful packet export.
func (r *CaseRepository) MarkExported(ctx context.Context, tenantID, id string, ts time.Time) error {
	const query = `UPDATE cases SET exported_at = $3, updated_at = $3 WHERE id = $1 AND tenant_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, tenantID, ts); err != nil {
		return fmt.Errorf("mark case exported: %w", err)
	}
	return nil
}

// Delete removes the case; child rows cascade at the database level.
func (r *CaseRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM cases WHERE id = $1 AND tenant_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete case rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates case counts per status for the tenant.
func (r *CaseRepository) CountByStatus(ctx context.Context, tenantID string) ([]models.CaseStatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM cases WHERE tenant_id = $1 GROUP BY status`
	var counts []models.CaseStatusCount
	if err := r.db.SelectContext(ctx, &counts, query, tenantID); err != nil {
		return nil, fmt.Errorf("count cases by status: %w", err)
	}
	return counts, nil
}

// CountApproachingDeadlines counts unarchived cases due within the window.
func (r *CaseRepository) CountApproachingDeadlines(ctx context.Context, tenantID string, window time.Duration) (int, error) {
	const query = `SELECT COUNT(*) FROM cases WHERE tenant_id = $1 AND rfe_deadline IS NOT NULL AND rfe_deadline <= $2 AND status <> $3`
	cutoff := time.Now().UTC().Add(window)
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, cutoff, models.CaseArchived); err != nil {
		return 0, fmt.Errorf("count approaching deadlines: %w", err)
	}
	return count, nil
}

// Recent returns the most recently created cases for the tenant.
func (r *CaseRepository) Recent(ctx context.Context, tenantID string, limit int) ([]models.Case, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT %d`, caseColumns, limit)
	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, query, tenantID); err != nil {
		return nil, fmt.Errorf("recent cases: %w", err)
	}
	return cases, nil
}
