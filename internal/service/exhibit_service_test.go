package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfeflow/rfe-api/internal/models"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type mockExhibitRepo struct {
	mu       sync.Mutex
	exhibits map[string]*models.Exhibit
}

func newMockExhibitRepo() *mockExhibitRepo {
	return &mockExhibitRepo{exhibits: map[string]*models.Exhibit{}}
}

func (m *mockExhibitRepo) FindByID(_ context.Context, tenantID, caseID, id string) (*models.Exhibit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exhibits[id]
	if !ok || e.TenantID != tenantID || e.CaseID != caseID {
		return nil, sql.ErrNoRows
	}
	copy := *e
	return &copy, nil
}

func (m *mockExhibitRepo) ListByCase(_ context.Context, tenantID, caseID string) ([]models.Exhibit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Exhibit
	for _, e := range m.exhibits {
		if e.TenantID == tenantID && e.CaseID == caseID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockExhibitRepo) ExistsLabel(_ context.Context, tenantID, caseID, label, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.exhibits {
		if e.TenantID == tenantID && e.CaseID == caseID && e.Label == label && e.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockExhibitRepo) NextPosition(_ context.Context, tenantID, caseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, e := range m.exhibits {
		if e.TenantID == tenantID && e.CaseID == caseID && e.Position > max {
			max = e.Position
		}
	}
	return max + 1, nil
}

func (m *mockExhibitRepo) Create(_ context.Context, exhibit *models.Exhibit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exhibit.ID == "" {
		exhibit.ID = uuid.NewString()
	}
	stored := *exhibit
	m.exhibits[exhibit.ID] = &stored
	return nil
}

func (m *mockExhibitRepo) Update(_ context.Context, exhibit *models.Exhibit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.exhibits[exhibit.ID]
	if !ok || stored.TenantID != exhibit.TenantID || stored.CaseID != exhibit.CaseID {
		return sql.ErrNoRows
	}
	updated := *exhibit
	m.exhibits[exhibit.ID] = &updated
	return nil
}

func (m *mockExhibitRepo) Delete(_ context.Context, tenantID, caseID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exhibits[id]
	if !ok || e.TenantID != tenantID || e.CaseID != caseID {
		return sql.ErrNoRows
	}
	delete(m.exhibits, id)
	return nil
}

func newExhibitFixture(t *testing.T) (*ExhibitService, *mockExhibitRepo) {
	t.Helper()
	cases := newMockCaseRepo()
	cases.cases["case-1"] = &models.Case{ID: "case-1", TenantID: "tenant-1", Status: models.CaseReview}
	repo := newMockExhibitRepo()
	svc := NewExhibitService(repo, cases, nil, nil, nil)
	return svc, repo
}

func TestExhibitServiceCreateAssignsNextPosition(t *testing.T) {
	svc, _ := newExhibitFixture(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, attorneyClaims(), "case-1", CreateExhibitRequest{Label: "A"}, RequestMeta{})
	require.NoError(t, err)
	second, err := svc.Create(ctx, attorneyClaims(), "case-1", CreateExhibitRequest{Label: "B"}, RequestMeta{})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)
}

func TestExhibitServiceCreateDuplicateLabelRejected(t *testing.T) {
	svc, repo := newExhibitFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, attorneyClaims(), "case-1", CreateExhibitRequest{Label: "A"}, RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Create(ctx, attorneyClaims(), "case-1", CreateExhibitRequest{Label: "A"}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.exhibits, 1)
}

func TestExhibitServiceCreateNegativePositionRejected(t *testing.T) {
	svc, repo := newExhibitFixture(t)

	neg := -5
	_, err := svc.Create(context.Background(), attorneyClaims(), "case-1", CreateExhibitRequest{Label: "A", Position: &neg}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.exhibits)
}

func TestExhibitServiceUpdateNegativePositionRejected(t *testing.T) {
	svc, _ := newExhibitFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, attorneyClaims(), "case-1", CreateExhibitRequest{Label: "A"}, RequestMeta{})
	require.NoError(t, err)

	neg := -1
	_, err = svc.Update(ctx, attorneyClaims(), "case-1", created.ID, UpdateExhibitRequest{Position: &neg}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExhibitServiceUpdateLabelCollisionRejected(t *testing.T) {
	svc, _ := newExhibitFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, attorneyClaims(), "case-1", CreateExhibitRequest{Label: "A"}, RequestMeta{})
	require.NoError(t, err)
	second, err := svc.Create(ctx, attorneyClaims(), "case-1", CreateExhibitRequest{Label: "B"}, RequestMeta{})
	require.NoError(t, err)

	taken := "A"
	_, err = svc.Update(ctx, attorneyClaims(), "case-1", second.ID, UpdateExhibitRequest{Label: &taken}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// re-submitting its own label is not a collision
	same := "B"
	_, err = svc.Update(ctx, attorneyClaims(), "case-1", second.ID, UpdateExhibitRequest{Label: &same}, RequestMeta{})
	require.NoError(t, err)
}

func TestExhibitServiceDeleteAllowedForParalegal(t *testing.T) {
	svc, repo := newExhibitFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, attorneyClaims(), "case-1", CreateExhibitRequest{Label: "A"}, RequestMeta{})
	require.NoError(t, err)

	paralegal := &models.JWTClaims{UserID: "para-1", TenantID: "tenant-1", Role: models.RoleParalegal}
	require.NoError(t, svc.Delete(ctx, paralegal, "case-1", created.ID, RequestMeta{}))
	assert.Empty(t, repo.exhibits)
}

func TestExhibitServiceViewerCannotCreate(t *testing.T) {
	svc, _ := newExhibitFixture(t)

	_, err := svc.Create(context.Background(), viewerClaims(), "case-1", CreateExhibitRequest{Label: "A"}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExhibitServiceCrossTenantIsNotFound(t *testing.T) {
	svc, _ := newExhibitFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, attorneyClaims(), "case-1", CreateExhibitRequest{Label: "A"}, RequestMeta{})
	require.NoError(t, err)

	foreign := &models.JWTClaims{UserID: "u2", TenantID: "tenant-2", Role: models.RoleAdmin}
	_, err = svc.Get(ctx, foreign, "case-1", created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
