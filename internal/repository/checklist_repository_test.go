package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecklistMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestChecklistRepositoryToggleCollectedFlipsInPlace(t *testing.T) {
	db, mock, cleanup := newChecklistMock(t)
	defer cleanup()
	repo := NewChecklistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE evidence_checklists SET is_collected = NOT is_collected, updated_at = $4 WHERE id = $1 AND tenant_id = $2 AND case_id = $3 RETURNING is_collected`)).
		WithArgs("item-1", "tenant-1", "case-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"is_collected"}).AddRow(true))

	collected, err := repo.ToggleCollected(context.Background(), "tenant-1", "case-1", "item-1")
	require.NoError(t, err)
	assert.True(t, collected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChecklistRepositoryToggleCollectedMissingRow(t *testing.T) {
	db, mock, cleanup := newChecklistMock(t)
	defer cleanup()
	repo := NewChecklistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE evidence_checklists SET is_collected = NOT is_collected, updated_at = $4 WHERE id = $1 AND tenant_id = $2 AND case_id = $3 RETURNING is_collected`)).
		WithArgs("item-1", "tenant-2", "case-1", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ToggleCollected(context.Background(), "tenant-2", "case-1", "item-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
