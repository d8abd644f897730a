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
	"github.com/rfeflow/rfe-api/internal/repository"
	"github.com/rfeflow/rfe-api/pkg/crypto"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

type mockCaseRepo struct {
	mu    sync.Mutex
	cases map[string]*models.Case
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{cases: map[string]*models.Case{}}
}

func (m *mockCaseRepo) FindByID(_ context.Context, tenantID, id string) (*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok || c.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	copy := *c
	return &copy, nil
}

func (m *mockCaseRepo) ExistsCaseNumber(_ context.Context, tenantID, caseNumber, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cases {
		if c.TenantID == tenantID && c.CaseNumber == caseNumber && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCaseRepo) List(_ context.Context, tenantID string, filter models.CaseFilter) ([]models.Case, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Case
	for _, c := range m.cases {
		if c.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.BeneficiaryBidx != "" && c.BeneficiaryNameBidx != filter.BeneficiaryBidx {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCaseRepo) Create(_ context.Context, c *models.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	stored := *c
	m.cases[c.ID] = &stored
	return nil
}

func (m *mockCaseRepo) Update(_ context.Context, c *models.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.cases[c.ID]
	if !ok || stored.TenantID != c.TenantID {
		return sql.ErrNoRows
	}
	status := stored.Status
	updated := *c
	updated.Status = status
	m.cases[c.ID] = &updated
	return nil
}

func (m *mockCaseRepo) TransitionStatus(_ context.Context, tenantID, id string, from, to models.CaseStatus, stamp repository.CaseTransitionStamp) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok || c.TenantID != tenantID || c.Status != from {
		return 0, nil
	}
	c.Status = to
	if stamp.AttorneyReviewed {
		c.AttorneyReviewed = true
	}
	return 1, nil
}

func (m *mockCaseRepo) AssignAttorney(_ context.Context, tenantID, id, attorneyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok || c.TenantID != tenantID {
		return sql.ErrNoRows
	}
	c.AssignedAttorneyID = &attorneyID
	return nil
}

func (m *mockCaseRepo) Delete(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok || c.TenantID != tenantID {
		return sql.ErrNoRows
	}
	delete(m.cases, id)
	return nil
}

type mockCaseUsers struct {
	users map[string]*models.User
}

func (m *mockCaseUsers) FindByID(_ context.Context, tenantID, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type mockDispatcher struct {
	mu       sync.Mutex
	dispatch []string
}

func (m *mockDispatcher) DispatchCase(tenantID, caseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch = append(m.dispatch, caseID)
}

func testCipher(t *testing.T) *crypto.FieldCipher {
	t.Helper()
	cipher, err := crypto.NewFieldCipher("test-encryption-key", "test-bidx-secret")
	require.NoError(t, err)
	return cipher
}

func newCaseFixture(t *testing.T) (*CaseService, *mockCaseRepo, *mockDispatcher) {
	repo := newMockCaseRepo()
	users := &mockCaseUsers{users: map[string]*models.User{
		"atty-1": {ID: "atty-1", TenantID: "tenant-1", Role: models.RoleAttorney, Status: models.UserActive},
		"para-1": {ID: "para-1", TenantID: "tenant-1", Role: models.RoleParalegal, Status: models.UserActive},
		"atty-2": {ID: "atty-2", TenantID: "tenant-2", Role: models.RoleAttorney, Status: models.UserActive},
	}}
	dispatcher := &mockDispatcher{}
	svc := NewCaseService(repo, users, testCipher(t), nil, dispatcher, nil, nil)
	return svc, repo, dispatcher
}

func attorneyClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "atty-1", TenantID: "tenant-1", Role: models.RoleAttorney}
}

func viewerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "view-1", TenantID: "tenant-1", Role: models.RoleViewer}
}

func createDraftCase(t *testing.T, svc *CaseService) *models.Case {
	t.Helper()
	c, err := svc.Create(context.Background(), attorneyClaims(), CreateCaseRequest{
		CaseNumber:      "CASE-2026-001",
		VisaType:        "H-1B",
		PetitionerName:  "Acme Corp",
		BeneficiaryName: "Maria Santos",
	}, RequestMeta{})
	require.NoError(t, err)
	return c
}

func TestCaseServiceCreateStartsInDraft(t *testing.T) {
	svc, repo, _ := newCaseFixture(t)
	c := createDraftCase(t, svc)

	assert.Equal(t, models.CaseDraft, c.Status)
	assert.Equal(t, "Maria Santos", c.BeneficiaryName)

	// The stored row never holds the plaintext.
	stored := repo.cases[c.ID]
	assert.NotEqual(t, "Maria Santos", stored.BeneficiaryNameEnc)
	assert.NotEmpty(t, stored.BeneficiaryNameBidx)
}

func TestCaseServiceCreateDuplicateNumberRejected(t *testing.T) {
	svc, _, _ := newCaseFixture(t)
	createDraftCase(t, svc)

	_, err := svc.Create(context.Background(), attorneyClaims(), CreateCaseRequest{
		CaseNumber:      "CASE-2026-001",
		VisaType:        "L-1",
		PetitionerName:  "Other Corp",
		BeneficiaryName: "Ivan Petrov",
	}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceViewerCannotWrite(t *testing.T) {
	svc, _, _ := newCaseFixture(t)
	c := createDraftCase(t, svc)

	_, err := svc.Create(context.Background(), viewerClaims(), CreateCaseRequest{
		CaseNumber:      "CASE-2026-099",
		VisaType:        "H-1B",
		PetitionerName:  "Acme Corp",
		BeneficiaryName: "Someone",
	}, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.StartAnalysis(context.Background(), viewerClaims(), c.ID, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Reads stay open.
	_, err = svc.Get(context.Background(), viewerClaims(), c.ID)
	assert.NoError(t, err)
}

func TestCaseServiceCrossTenantFetchIsNotFound(t *testing.T) {
	svc, _, _ := newCaseFixture(t)
	c := createDraftCase(t, svc)

	foreign := &models.JWTClaims{UserID: "u2", TenantID: "tenant-2", Role: models.RoleAdmin}
	_, err := svc.Get(context.Background(), foreign, c.ID)
	require.Error(t, err)
	crossTenant := appErrors.FromError(err)

	_, err = svc.Get(context.Background(), foreign, "no-such-id")
	require.Error(t, err)
	missing := appErrors.FromError(err)

	// Foreign row and missing row are indistinguishable.
	assert.Equal(t, missing.Code, crossTenant.Code)
	assert.Equal(t, missing.Message, crossTenant.Message)
	assert.Equal(t, missing.Status, crossTenant.Status)
}

func TestCaseServiceStartAnalysisDispatches(t *testing.T) {
	svc, repo, dispatcher := newCaseFixture(t)
	c := createDraftCase(t, svc)

	updated, err := svc.StartAnalysis(context.Background(), attorneyClaims(), c.ID, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.CaseAnalyzing, updated.Status)
	assert.Equal(t, []string{c.ID}, dispatcher.dispatch)
	assert.Equal(t, models.CaseAnalyzing, repo.cases[c.ID].Status)
}

func TestCaseServiceStartAnalysisFromAnalyzingRejected(t *testing.T) {
	svc, _, _ := newCaseFixture(t)
	c := createDraftCase(t, svc)

	_, err := svc.StartAnalysis(context.Background(), attorneyClaims(), c.ID, RequestMeta{})
	require.NoError(t, err)

	_, err = svc.StartAnalysis(context.Background(), attorneyClaims(), c.ID, RequestMeta{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrInvalidTransition.Status, appErr.Status)
}

func TestCaseServiceConcurrentStartAnalysisExactlyOneWins(t *testing.T) {
	svc, _, dispatcher := newCaseFixture(t)
	c := createDraftCase(t, svc)

	const workers = 8
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.StartAnalysis(context.Background(), attorneyClaims(), c.ID, RequestMeta{})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		rejected++
		assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, rejected)
	assert.Len(t, dispatcher.dispatch, 1)
}

func TestCaseServiceMarkReviewedStampsAttorney(t *testing.T) {
	svc, repo, _ := newCaseFixture(t)
	c := createDraftCase(t, svc)

	_, err := svc.StartAnalysis(context.Background(), attorneyClaims(), c.ID, RequestMeta{})
	require.NoError(t, err)

	updated, err := svc.MarkReviewed(context.Background(), attorneyClaims(), c.ID, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.CaseReview, updated.Status)
	assert.True(t, repo.cases[c.ID].AttorneyReviewed)
}

func TestCaseServiceMarkReviewedForbiddenForParalegal(t *testing.T) {
	svc, _, _ := newCaseFixture(t)
	c := createDraftCase(t, svc)

	_, err := svc.StartAnalysis(context.Background(), attorneyClaims(), c.ID, RequestMeta{})
	require.NoError(t, err)

	paralegal := &models.JWTClaims{UserID: "para-1", TenantID: "tenant-1", Role: models.RoleParalegal}
	_, err = svc.MarkReviewed(context.Background(), paralegal, c.ID, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceFullLifecycle(t *testing.T) {
	svc, _, _ := newCaseFixture(t)
	c := createDraftCase(t, svc)
	claims := attorneyClaims()
	ctx := context.Background()

	_, err := svc.StartAnalysis(ctx, claims, c.ID, RequestMeta{})
	require.NoError(t, err)
	_, err = svc.CompleteAnalysis(ctx, claims, c.ID, RequestMeta{})
	require.NoError(t, err)
	responded, err := svc.MarkResponded(ctx, claims, c.ID, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.CaseResponded, responded.Status)

	archived, err := svc.Archive(ctx, claims, c.ID, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.CaseArchived, archived.Status)

	reopened, err := svc.Reopen(ctx, claims, c.ID, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.CaseDraft, reopened.Status)
}

func TestCaseServiceAssignAttorneyValidatesAssignee(t *testing.T) {
	svc, _, _ := newCaseFixture(t)
	c := createDraftCase(t, svc)
	ctx := context.Background()

	updated, err := svc.AssignAttorney(ctx, attorneyClaims(), c.ID, "atty-1", RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedAttorneyID)
	assert.Equal(t, "atty-1", *updated.AssignedAttorneyID)

	// A paralegal cannot be the responsible attorney.
	_, err = svc.AssignAttorney(ctx, attorneyClaims(), c.ID, "para-1", RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// A user from another tenant is invisible.
	_, err = svc.AssignAttorney(ctx, attorneyClaims(), c.ID, "atty-2", RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCaseServiceListByBeneficiaryBlindIndex(t *testing.T) {
	svc, _, _ := newCaseFixture(t)
	createDraftCase(t, svc)
	_, err := svc.Create(context.Background(), attorneyClaims(), CreateCaseRequest{
		CaseNumber:      "CASE-2026-002",
		VisaType:        "O-1",
		PetitionerName:  "Beta LLC",
		BeneficiaryName: "Ivan Petrov",
	}, RequestMeta{})
	require.NoError(t, err)

	cases, _, err := svc.List(context.Background(), attorneyClaims(), ListCasesRequest{BeneficiaryName: "maria santos"})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	// Blind index matching is case-insensitive; decryption restores plaintext.
	assert.Equal(t, "Maria Santos", cases[0].BeneficiaryName)
}

func TestCaseServiceDeleteAdminOnly(t *testing.T) {
	svc, repo, _ := newCaseFixture(t)
	c := createDraftCase(t, svc)
	ctx := context.Background()

	err := svc.Delete(ctx, attorneyClaims(), c.ID, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	admin := &models.JWTClaims{UserID: "adm-1", TenantID: "tenant-1", Role: models.RoleAdmin}
	require.NoError(t, svc.Delete(ctx, admin, c.ID, RequestMeta{}))
	assert.Empty(t, repo.cases)
}
