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
	"github.com/rfeflow/rfe-api/pkg/jobs"
)

type engineSectionRepo struct {
	mu       sync.Mutex
	sections []models.RFESection
}

func (m *engineSectionRepo) Create(_ context.Context, section *models.RFESection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	m.sections = append(m.sections, *section)
	return nil
}

type engineChecklistRepo struct {
	mu    sync.Mutex
	items []models.EvidenceChecklistItem
}

func (m *engineChecklistRepo) Create(_ context.Context, item *models.EvidenceChecklistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	m.items = append(m.items, *item)
	return nil
}

type engineDraftRepo struct {
	mu          sync.Mutex
	drafts      []models.DraftResponse
	regenerated map[string]string
}

func (m *engineDraftRepo) Create(_ context.Context, draft *models.DraftResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	m.drafts = append(m.drafts, *draft)
	return nil
}

func (m *engineDraftRepo) Regenerate(_ context.Context, _, _, id, aiContent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.regenerated == nil {
		m.regenerated = map[string]string{}
	}
	if id != "draft-1" {
		return sql.ErrNoRows
	}
	m.regenerated[id] = aiContent
	return nil
}

func newAnalysisFixture(status models.CaseStatus) (*AnalysisService, *mockCaseRepo, *engineSectionRepo, *engineChecklistRepo, *engineDraftRepo) {
	cases := newMockCaseRepo()
	cases.cases["case-1"] = &models.Case{ID: "case-1", TenantID: "tenant-1", Status: status}
	sections := &engineSectionRepo{}
	checklist := &engineChecklistRepo{}
	drafts := &engineDraftRepo{}
	svc := NewAnalysisService(cases, sections, checklist, drafts, nil, "", jobs.QueueConfig{}, nil, nil, nil)
	return svc, cases, sections, checklist, drafts
}

func strPtr(s string) *string { return &s }

func sampleResult() AnalysisResult {
	return AnalysisResult{Sections: []SectionResult{
		{
			SectionType:  models.SectionSpecialtyOccupation,
			Title:        strPtr("Specialty occupation"),
			DraftContent: "The position qualifies because...",
			Checklist: []ChecklistResult{
				{Priority: models.PriorityRequired, DocumentName: "Degree certificate"},
				{Priority: "bogus", DocumentName: "Org chart"},
			},
		},
		{
			SectionType: models.SectionBeneficiaryQualifications,
		},
	}}
}

func TestAnalysisIngestResultsSeedsCase(t *testing.T) {
	svc, cases, sections, checklist, drafts := newAnalysisFixture(models.CaseAnalyzing)

	err := svc.IngestResults(context.Background(), "tenant-1", "case-1", sampleResult())
	require.NoError(t, err)

	require.Len(t, sections.sections, 2)
	assert.Equal(t, 1, sections.sections[0].Position)
	assert.Equal(t, 2, sections.sections[1].Position)

	require.Len(t, checklist.items, 2)
	assert.Equal(t, sections.sections[0].ID, checklist.items[0].RFESectionID)
	assert.Equal(t, models.PriorityRequired, checklist.items[0].Priority)
	assert.Equal(t, models.PriorityRecommended, checklist.items[1].Priority)

	require.Len(t, drafts.drafts, 1)
	assert.Equal(t, sections.sections[0].ID, drafts.drafts[0].RFESectionID)
	assert.Equal(t, "The position qualifies because...", drafts.drafts[0].AIGeneratedContent)

	c, err := cases.FindByID(context.Background(), "tenant-1", "case-1")
	require.NoError(t, err)
	assert.Equal(t, models.CaseReview, c.Status)
}

func TestAnalysisIngestResultsEmptyStillAdvances(t *testing.T) {
	svc, cases, sections, _, _ := newAnalysisFixture(models.CaseAnalyzing)

	err := svc.IngestResults(context.Background(), "tenant-1", "case-1", AnalysisResult{})
	require.NoError(t, err)
	assert.Empty(t, sections.sections)

	c, err := cases.FindByID(context.Background(), "tenant-1", "case-1")
	require.NoError(t, err)
	assert.Equal(t, models.CaseReview, c.Status)
}

func TestAnalysisIngestResultsRejectsNonAnalyzingCase(t *testing.T) {
	svc, _, sections, _, _ := newAnalysisFixture(models.CaseDraft)

	err := svc.IngestResults(context.Background(), "tenant-1", "case-1", sampleResult())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, sections.sections)
}

func TestAnalysisIngestResultsCrossTenantIsNotFound(t *testing.T) {
	svc, _, _, _, _ := newAnalysisFixture(models.CaseAnalyzing)

	err := svc.IngestResults(context.Background(), "tenant-2", "case-1", sampleResult())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAnalysisIngestResultsUnknownSectionType(t *testing.T) {
	svc, cases, _, _, _ := newAnalysisFixture(models.CaseAnalyzing)

	result := AnalysisResult{Sections: []SectionResult{{SectionType: "nonsense"}}}
	err := svc.IngestResults(context.Background(), "tenant-1", "case-1", result)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	c, err := cases.FindByID(context.Background(), "tenant-1", "case-1")
	require.NoError(t, err)
	assert.Equal(t, models.CaseAnalyzing, c.Status)
}

func TestAnalysisIngestDraftStoresContent(t *testing.T) {
	svc, _, _, _, drafts := newAnalysisFixture(models.CaseReview)

	err := svc.IngestDraft(context.Background(), "tenant-1", "case-1", "draft-1", "revised content")
	require.NoError(t, err)
	assert.Equal(t, "revised content", drafts.regenerated["draft-1"])
}

func TestAnalysisIngestDraftRequiresContent(t *testing.T) {
	svc, _, _, _, _ := newAnalysisFixture(models.CaseReview)

	err := svc.IngestDraft(context.Background(), "tenant-1", "case-1", "draft-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAnalysisIngestDraftUnknownDraftIsNotFound(t *testing.T) {
	svc, _, _, _, _ := newAnalysisFixture(models.CaseReview)

	err := svc.IngestDraft(context.Background(), "tenant-1", "case-1", "draft-9", "revised content")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
