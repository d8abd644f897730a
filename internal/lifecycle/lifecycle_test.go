package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfeflow/rfe-api/internal/models"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

func TestValidTransitions(t *testing.T) {
	cases := []struct {
		from  models.CaseStatus
		event Event
		to    models.CaseStatus
	}{
		{models.CaseDraft, StartAnalysis, models.CaseAnalyzing},
		{models.CaseAnalyzing, CompleteAnalysis, models.CaseReview},
		{models.CaseReview, MarkResponded, models.CaseResponded},
		{models.CaseDraft, Archive, models.CaseArchived},
		{models.CaseReview, Archive, models.CaseArchived},
		{models.CaseResponded, Archive, models.CaseArchived},
		{models.CaseArchived, Reopen, models.CaseDraft},
	}

	for _, tc := range cases {
		next, err := Next(tc.from, tc.event)
		require.NoError(t, err, "%s from %s", tc.event, tc.from)
		assert.Equal(t, tc.to, next)
		assert.True(t, Can(tc.from, tc.event))
	}
}

func TestInvalidPairsRejectedExhaustively(t *testing.T) {
	valid := map[string]bool{}
	for _, tc := range []struct {
		from  models.CaseStatus
		event Event
	}{
		{models.CaseDraft, StartAnalysis},
		{models.CaseAnalyzing, CompleteAnalysis},
		{models.CaseReview, MarkResponded},
		{models.CaseDraft, Archive},
		{models.CaseReview, Archive},
		{models.CaseResponded, Archive},
		{models.CaseArchived, Reopen},
	} {
		valid[string(tc.from)+"|"+string(tc.event)] = true
	}

	for _, state := range States() {
		for _, event := range Events() {
			if valid[string(state)+"|"+string(event)] {
				continue
			}
			next, err := Next(state, event)
			require.Error(t, err, "%s from %s must fail", event, state)
			assert.Equal(t, state, next, "state must be unchanged on rejection")

			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
			assert.Equal(t, appErrors.ErrInvalidTransition.Status, appErr.Status)
		}
	}
}

func TestArchiveAllowedFromExactlyThreeStates(t *testing.T) {
	allowed := map[models.CaseStatus]bool{
		models.CaseDraft:     true,
		models.CaseReview:    true,
		models.CaseResponded: true,
	}
	for _, state := range States() {
		assert.Equal(t, allowed[state], Can(state, Archive), "archive from %s", state)
	}
}

func TestReopenOnlyFromArchived(t *testing.T) {
	for _, state := range States() {
		want := state == models.CaseArchived
		assert.Equal(t, want, Can(state, Reopen), "reopen from %s", state)
	}

	next, err := Next(models.CaseArchived, Reopen)
	require.NoError(t, err)
	assert.Equal(t, models.CaseDraft, next)
}

func TestFullLifecycleWalk(t *testing.T) {
	status := Initial
	walk := []struct {
		event Event
		want  models.CaseStatus
	}{
		{StartAnalysis, models.CaseAnalyzing},
		{CompleteAnalysis, models.CaseReview},
		{MarkResponded, models.CaseResponded},
		{Archive, models.CaseArchived},
		{Reopen, models.CaseDraft},
	}
	for _, step := range walk {
		next, err := Next(status, step.event)
		require.NoError(t, err)
		assert.Equal(t, step.want, next)
		status = next
	}
}
