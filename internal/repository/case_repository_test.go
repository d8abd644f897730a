package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfeflow/rfe-api/internal/models"
)

func newCaseMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func caseRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "created_by_id", "assigned_attorney_id", "case_number",
		"uscis_receipt_number", "visa_type", "status", "petitioner_name",
		"beneficiary_name_enc", "beneficiary_name_bidx", "rfe_received_date",
		"rfe_deadline", "notes", "attorney_reviewed", "attorney_reviewed_at",
		"exported_at", "submitted_at", "created_at", "updated_at",
	}).AddRow(
		"case-1", "tenant-1", "user-1", nil, "CASE-2026-001",
		"WAC2190012345", "H-1B", models.CaseDraft, "Acme Corp",
		"enc", "bidx", nil,
		nil, nil, false, nil,
		nil, nil, now, now,
	)
}

func TestCaseRepositoryFindByIDScopesTenant(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+caseColumns+` FROM cases WHERE id = $1 AND tenant_id = $2 LIMIT 1`)).
		WithArgs("case-1", "tenant-1").
		WillReturnRows(caseRows())

	c, err := repo.FindByID(context.Background(), "tenant-1", "case-1")
	require.NoError(t, err)
	assert.Equal(t, "case-1", c.ID)
	assert.Equal(t, models.CaseDraft, c.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryFindByIDWrongTenantIsNoRows(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+caseColumns+` FROM cases WHERE id = $1 AND tenant_id = $2 LIMIT 1`)).
		WithArgs("case-1", "tenant-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "tenant-2", "case-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectExec("INSERT INTO cases").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c := &models.Case{
		TenantID:       "tenant-1",
		CreatedByID:    "user-1",
		CaseNumber:     "CASE-2026-001",
		VisaType:       "H-1B",
		Status:         models.CaseDraft,
		PetitionerName: "Acme Corp",
	}
	err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryTransitionStatusGuardsSourceState(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cases SET status = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4 AND status = $5`)).
		WithArgs(models.CaseAnalyzing, sqlmock.AnyArg(), "case-1", "tenant-1", models.CaseDraft).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := repo.TransitionStatus(context.Background(), "tenant-1", "case-1", models.CaseDraft, models.CaseAnalyzing, CaseTransitionStamp{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryTransitionStatusLostRaceAffectsZeroRows(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cases SET status = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4 AND status = $5`)).
		WithArgs(models.CaseAnalyzing, sqlmock.AnyArg(), "case-1", "tenant-1", models.CaseDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.TransitionStatus(context.Background(), "tenant-1", "case-1", models.CaseDraft, models.CaseAnalyzing, CaseTransitionStamp{})
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryTransitionStatusWithStamps(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE cases SET status = $1, updated_at = $2, submitted_at = $3 WHERE id = $4 AND tenant_id = $5 AND status = $6`)).
		WithArgs(models.CaseResponded, sqlmock.AnyArg(), sqlmock.AnyArg(), "case-1", "tenant-1", models.CaseReview).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := repo.TransitionStatus(context.Background(), "tenant-1", "case-1", models.CaseReview, models.CaseResponded, CaseTransitionStamp{Submitted: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryList(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+caseColumns+` FROM cases WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0`)).
		WithArgs("tenant-1").
		WillReturnRows(caseRows())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM cases WHERE tenant_id = $1`)).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	cases, total, err := repo.List(context.Background(), "tenant-1", models.CaseFilter{})
	require.NoError(t, err)
	assert.Len(t, cases, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryListFiltersByStatusAndBidx(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	status := models.CaseReview
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+caseColumns+` FROM cases WHERE tenant_id = $1 AND status = $2 AND beneficiary_name_bidx = $3 ORDER BY created_at DESC LIMIT 20 OFFSET 0`)).
		WithArgs("tenant-1", status, "bidx").
		WillReturnRows(caseRows())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM cases WHERE tenant_id = $1 AND status = $2 AND beneficiary_name_bidx = $3`)).
		WithArgs("tenant-1", status, "bidx").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, total, err := repo.List(context.Background(), "tenant-1", models.CaseFilter{Status: &status, BeneficiaryBidx: "bidx"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cases WHERE id = $1 AND tenant_id = $2`)).
		WithArgs("case-1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "tenant-1", "case-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newCaseMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, COUNT(*) AS count FROM cases WHERE tenant_id = $1 GROUP BY status`)).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow(models.CaseDraft, 3).
			AddRow(models.CaseReview, 1))

	counts, err := repo.CountByStatus(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Len(t, counts, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
