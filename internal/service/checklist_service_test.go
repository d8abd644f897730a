package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfeflow/rfe-api/internal/models"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type mockChecklistRepo struct {
	items map[string]*models.EvidenceChecklistItem
}

func (m *mockChecklistRepo) FindByID(_ context.Context, tenantID, caseID, id string) (*models.EvidenceChecklistItem, error) {
	item, ok := m.items[id]
	if !ok || item.TenantID != tenantID || item.CaseID != caseID {
		return nil, sql.ErrNoRows
	}
	copy := *item
	return &copy, nil
}

func (m *mockChecklistRepo) ListByCase(_ context.Context, tenantID, caseID string) ([]models.EvidenceChecklistItem, error) {
	var out []models.EvidenceChecklistItem
	for _, item := range m.items {
		if item.TenantID == tenantID && item.CaseID == caseID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockChecklistRepo) Update(_ context.Context, item *models.EvidenceChecklistItem) error {
	stored, ok := m.items[item.ID]
	if !ok || stored.TenantID != item.TenantID || stored.CaseID != item.CaseID {
		return sql.ErrNoRows
	}
	updated := *item
	m.items[item.ID] = &updated
	return nil
}

func (m *mockChecklistRepo) ToggleCollected(_ context.Context, tenantID, caseID, id string) (bool, error) {
	item, ok := m.items[id]
	if !ok || item.TenantID != tenantID || item.CaseID != caseID {
		return false, sql.ErrNoRows
	}
	item.IsCollected = !item.IsCollected
	return item.IsCollected, nil
}

func newChecklistFixture(t *testing.T) (*ChecklistService, *mockChecklistRepo) {
	t.Helper()
	cases := newMockCaseRepo()
	cases.cases["case-1"] = &models.Case{ID: "case-1", TenantID: "tenant-1", Status: models.CaseReview}
	desc := "most recent three pay periods"
	repo := &mockChecklistRepo{items: map[string]*models.EvidenceChecklistItem{
		"item-1": {
			ID:           "item-1",
			TenantID:     "tenant-1",
			CaseID:       "case-1",
			RFESectionID: "section-1",
			Priority:     models.PriorityRequired,
			DocumentName: "Pay stubs",
			Description:  &desc,
		},
	}}
	svc := NewChecklistService(repo, cases, nil, nil, nil)
	return svc, repo
}

func TestChecklistServiceToggleOnceFlips(t *testing.T) {
	svc, repo := newChecklistFixture(t)

	item, err := svc.ToggleCollected(context.Background(), attorneyClaims(), "case-1", "item-1", RequestMeta{})
	require.NoError(t, err)
	assert.True(t, item.IsCollected)

	// Only the flag changed.
	assert.Equal(t, "Pay stubs", repo.items["item-1"].DocumentName)
	assert.Equal(t, models.PriorityRequired, repo.items["item-1"].Priority)
}

func TestChecklistServiceToggleTwiceIsIdentity(t *testing.T) {
	svc, _ := newChecklistFixture(t)
	ctx := context.Background()

	first, err := svc.ToggleCollected(ctx, attorneyClaims(), "case-1", "item-1", RequestMeta{})
	require.NoError(t, err)
	assert.True(t, first.IsCollected)

	second, err := svc.ToggleCollected(ctx, attorneyClaims(), "case-1", "item-1", RequestMeta{})
	require.NoError(t, err)
	assert.False(t, second.IsCollected)
}

func TestChecklistServiceToggleForbiddenForViewer(t *testing.T) {
	svc, _ := newChecklistFixture(t)

	_, err := svc.ToggleCollected(context.Background(), viewerClaims(), "case-1", "item-1", RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestChecklistServiceUpdateEditsFields(t *testing.T) {
	svc, _ := newChecklistFixture(t)

	name := "Recent pay stubs"
	priority := models.PriorityRecommended
	item, err := svc.Update(context.Background(), attorneyClaims(), "case-1", "item-1", UpdateChecklistItemRequest{
		DocumentName: &name,
		Priority:     &priority,
	}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Recent pay stubs", item.DocumentName)
	assert.Equal(t, models.PriorityRecommended, item.Priority)
}

func TestChecklistServiceCrossTenantIsNotFound(t *testing.T) {
	svc, _ := newChecklistFixture(t)

	foreign := &models.JWTClaims{UserID: "u2", TenantID: "tenant-2", Role: models.RoleAdmin}
	_, err := svc.ToggleCollected(context.Background(), foreign, "case-1", "item-1", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
