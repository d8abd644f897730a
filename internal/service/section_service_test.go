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

type mockSectionRepo struct {
	mu       sync.Mutex
	sections map[string]*models.RFESection
}

func newMockSectionRepo() *mockSectionRepo {
	return &mockSectionRepo{sections: map[string]*models.RFESection{}}
}

func (m *mockSectionRepo) FindByID(_ context.Context, tenantID, caseID, id string) (*models.RFESection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sections[id]
	if !ok || s.TenantID != tenantID || s.CaseID != caseID {
		return nil, sql.ErrNoRows
	}
	copy := *s
	return &copy, nil
}

func (m *mockSectionRepo) ListByCase(_ context.Context, tenantID, caseID string) ([]models.RFESection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RFESection
	for _, s := range m.sections {
		if s.TenantID == tenantID && s.CaseID == caseID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSectionRepo) Update(_ context.Context, section *models.RFESection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sections[section.ID]
	if !ok || stored.TenantID != section.TenantID || stored.CaseID != section.CaseID {
		return sql.ErrNoRows
	}
	updated := *section
	m.sections[section.ID] = &updated
	return nil
}

func newSectionFixture(t *testing.T) (*SectionService, *mockSectionRepo) {
	t.Helper()
	cases := newMockCaseRepo()
	cases.cases["case-1"] = &models.Case{ID: "case-1", TenantID: "tenant-1", Status: models.CaseReview}
	repo := newMockSectionRepo()
	excerpt := "The petitioner has not established that the proffered position qualifies..."
	repo.sections["section-1"] = &models.RFESection{
		ID:           "section-1",
		TenantID:     "tenant-1",
		CaseID:       "case-1",
		Position:     1,
		SectionType:  models.SectionGeneral,
		OriginalText: &excerpt,
	}
	svc := NewSectionService(repo, cases, nil, nil, nil)
	return svc, repo
}

func TestSectionServiceReclassifySetsType(t *testing.T) {
	svc, repo := newSectionFixture(t)

	section, err := svc.Reclassify(context.Background(), attorneyClaims(), "case-1", "section-1", models.SectionSpecialtyOccupation, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.SectionSpecialtyOccupation, section.SectionType)
	assert.Equal(t, models.SectionSpecialtyOccupation, repo.sections["section-1"].SectionType)
}

func TestSectionServiceReclassifyInvalidTypeRejected(t *testing.T) {
	svc, repo := newSectionFixture(t)

	_, err := svc.Reclassify(context.Background(), attorneyClaims(), "case-1", "section-1", "nonsense", RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.SectionGeneral, repo.sections["section-1"].SectionType)
}

func TestSectionServiceReclassifyForbiddenForViewer(t *testing.T) {
	svc, _ := newSectionFixture(t)

	_, err := svc.Reclassify(context.Background(), viewerClaims(), "case-1", "section-1", models.SectionSpecialtyOccupation, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSectionServiceUpdateKeepsOriginalText(t *testing.T) {
	svc, repo := newSectionFixture(t)

	title := "Specialty occupation evidence"
	summary := "USCIS questions the degree requirement."
	updated, err := svc.Update(context.Background(), attorneyClaims(), "case-1", "section-1", UpdateSectionRequest{Title: &title, Summary: &summary}, RequestMeta{})
	require.NoError(t, err)

	require.NotNil(t, updated.Title)
	assert.Equal(t, title, *updated.Title)
	require.NotNil(t, repo.sections["section-1"].OriginalText)
	assert.Contains(t, *repo.sections["section-1"].OriginalText, "proffered position")
}

func TestSectionServiceCrossTenantIsNotFound(t *testing.T) {
	svc, _ := newSectionFixture(t)

	foreign := &models.JWTClaims{UserID: "u2", TenantID: "tenant-2", Role: models.RoleAdmin}
	_, err := svc.Get(context.Background(), foreign, "case-1", "section-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
