package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfeflow/rfe-api/internal/models"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type mockDraftRepo struct {
	mu     sync.Mutex
	drafts map[string]*models.DraftResponse
}

func newMockDraftRepo() *mockDraftRepo {
	return &mockDraftRepo{drafts: map[string]*models.DraftResponse{}}
}

func (m *mockDraftRepo) FindByID(_ context.Context, tenantID, caseID, id string) (*models.DraftResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok || d.TenantID != tenantID || d.CaseID != caseID {
		return nil, sql.ErrNoRows
	}
	copy := *d
	return &copy, nil
}

func (m *mockDraftRepo) ListByCase(_ context.Context, tenantID, caseID string) ([]models.DraftResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DraftResponse
	for _, d := range m.drafts {
		if d.TenantID == tenantID && d.CaseID == caseID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDraftRepo) Update(_ context.Context, draft *models.DraftResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.drafts[draft.ID]
	if !ok || stored.TenantID != draft.TenantID || stored.CaseID != draft.CaseID {
		return sql.ErrNoRows
	}
	updated := *draft
	m.drafts[draft.ID] = &updated
	return nil
}

func (m *mockDraftRepo) Approve(_ context.Context, tenantID, caseID, id, finalContent string, feedback *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok || d.TenantID != tenantID || d.CaseID != caseID {
		return sql.ErrNoRows
	}
	d.Status = models.DraftApproved
	d.FinalContent = finalContent
	if feedback != nil {
		d.AttorneyFeedback = feedback
	}
	return nil
}

func newDraftFixture(t *testing.T) (*DraftService, *mockDraftRepo, *mockDispatcher) {
	t.Helper()
	cases := newMockCaseRepo()
	cases.cases["case-1"] = &models.Case{ID: "case-1", TenantID: "tenant-1", Status: models.CaseReview}
	repo := newMockDraftRepo()
	repo.drafts["draft-1"] = &models.DraftResponse{
		ID:                 "draft-1",
		TenantID:           "tenant-1",
		CaseID:             "case-1",
		RFESectionID:       "section-1",
		AIGeneratedContent: "machine draft",
		Status:             models.DraftPending,
		Version:            1,
	}
	dispatcher := &mockDispatcher{}
	svc := NewDraftService(repo, cases, dispatcher, nil, nil, nil)
	return svc, repo, dispatcher
}

func (m *mockDispatcher) DispatchDraft(tenantID, caseID, draftID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch = append(m.dispatch, draftID)
}

func TestDraftServiceApproveUsesAIContentWhenNoEdit(t *testing.T) {
	svc, repo, _ := newDraftFixture(t)

	approved, err := svc.Approve(context.Background(), attorneyClaims(), "case-1", "draft-1", ApproveDraftRequest{}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.DraftApproved, approved.Status)
	assert.Equal(t, "machine draft", approved.FinalContent)
	assert.Equal(t, "machine draft", repo.drafts["draft-1"].FinalContent)
}

func TestDraftServiceApproveEditedContentWins(t *testing.T) {
	svc, _, _ := newDraftFixture(t)
	ctx := context.Background()

	edit := "attorney rewrite"
	_, err := svc.Update(ctx, attorneyClaims(), "case-1", "draft-1", UpdateDraftRequest{EditedContent: &edit}, RequestMeta{})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, attorneyClaims(), "case-1", "draft-1", ApproveDraftRequest{}, RequestMeta{})
	require.NoError(t, err)
	// The edit replaces the machine draft wholesale; never a merge.
	assert.Equal(t, "attorney rewrite", approved.FinalContent)
	assert.NotContains(t, approved.FinalContent, "machine draft")
}

func TestDraftServiceApproveBlankEditFallsBackToAIContent(t *testing.T) {
	svc, _, _ := newDraftFixture(t)
	ctx := context.Background()

	edit := "   \n\t"
	_, err := svc.Update(ctx, attorneyClaims(), "case-1", "draft-1", UpdateDraftRequest{EditedContent: &edit}, RequestMeta{})
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, attorneyClaims(), "case-1", "draft-1", ApproveDraftRequest{}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "machine draft", approved.FinalContent)
}

func TestDraftServiceDoubleApproveStable(t *testing.T) {
	svc, _, _ := newDraftFixture(t)
	ctx := context.Background()

	first, err := svc.Approve(ctx, attorneyClaims(), "case-1", "draft-1", ApproveDraftRequest{}, RequestMeta{})
	require.NoError(t, err)

	second, err := svc.Approve(ctx, attorneyClaims(), "case-1", "draft-1", ApproveDraftRequest{}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.FinalContent, second.FinalContent)
}

func TestDraftServiceApproveStoresFeedback(t *testing.T) {
	svc, _, _ := newDraftFixture(t)

	feedback := "tighten the second paragraph"
	approved, err := svc.Approve(context.Background(), attorneyClaims(), "case-1", "draft-1", ApproveDraftRequest{AttorneyFeedback: &feedback}, RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, approved.AttorneyFeedback)
	assert.Equal(t, feedback, *approved.AttorneyFeedback)
}

func TestDraftServiceApproveForbiddenForParalegal(t *testing.T) {
	svc, _, _ := newDraftFixture(t)

	paralegal := &models.JWTClaims{UserID: "para-1", TenantID: "tenant-1", Role: models.RoleParalegal}
	_, err := svc.Approve(context.Background(), paralegal, "case-1", "draft-1", ApproveDraftRequest{}, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDraftServiceUpdateMovesPendingToEditing(t *testing.T) {
	svc, repo, _ := newDraftFixture(t)

	edit := "first pass"
	updated, err := svc.Update(context.Background(), attorneyClaims(), "case-1", "draft-1", UpdateDraftRequest{EditedContent: &edit}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.DraftEditing, updated.Status)
	// The machine content survives the edit untouched.
	assert.Equal(t, "machine draft", repo.drafts["draft-1"].AIGeneratedContent)
}

func TestDraftServiceRegenerateDispatches(t *testing.T) {
	svc, _, dispatcher := newDraftFixture(t)

	err := svc.Regenerate(context.Background(), attorneyClaims(), "case-1", "draft-1", RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, []string{"draft-1"}, dispatcher.dispatch)
}

func TestDraftServiceCrossTenantDraftIsNotFound(t *testing.T) {
	svc, _, _ := newDraftFixture(t)

	foreign := &models.JWTClaims{UserID: "u2", TenantID: "tenant-2", Role: models.RoleAdmin}
	_, err := svc.Get(context.Background(), foreign, "case-1", "draft-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
