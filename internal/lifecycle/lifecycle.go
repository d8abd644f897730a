// Package lifecycle is the single source of truth for case status
// transitions. It is a pure transition table with no knowledge of
// authorization, persistence, or HTTP.
package lifecycle

import (
	"github.com/rfeflow/rfe-api/internal/models"
	appErrors "github.com/rfeflow/rfe-api/pkg/errors"
)

// Event is a named lifecycle trigger.
type Event string

const (
	StartAnalysis    Event = "start_analysis"
	CompleteAnalysis Event = "complete_analysis"
	MarkResponded    Event = "mark_responded"
	Archive          Event = "archive"
	Reopen           Event = "reopen"
)

// Initial is the state every new case starts in.
const Initial = models.CaseDraft

type transitionKey struct {
	from  models.CaseStatus
	event Event
}

// transitions is the exhaustive table; any (state, event) pair absent here
// is rejected. Archived is not terminal: reopen returns a case to draft.
var transitions = map[transitionKey]models.CaseStatus{
	{models.CaseDraft, StartAnalysis}:        models.CaseAnalyzing,
	{models.CaseAnalyzing, CompleteAnalysis}: models.CaseReview,
	{models.CaseReview, MarkResponded}:       models.CaseResponded,
	{models.CaseDraft, Archive}:              models.CaseArchived,
	{models.CaseReview, Archive}:             models.CaseArchived,
	{models.CaseResponded, Archive}:          models.CaseArchived,
	{models.CaseArchived, Reopen}:            models.CaseDraft,
}

// Next returns the state reached by firing event from the given state. An
// unknown pair yields ErrInvalidTransition and leaves the caller's state
// untouched by construction.
func Next(from models.CaseStatus, event Event) (models.CaseStatus, error) {
	to, ok := transitions[transitionKey{from, event}]
	if !ok {
		return from, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot "+string(event)+" a case in status "+string(from))
	}
	return to, nil
}

// Can reports whether event may fire from the given state.
func Can(from models.CaseStatus, event Event) bool {
	_, ok := transitions[transitionKey{from, event}]
	return ok
}

// Events lists every event the table knows about.
func Events() []Event {
	return []Event{StartAnalysis, CompleteAnalysis, MarkResponded, Archive, Reopen}
}

// States lists every lifecycle state.
func States() []models.CaseStatus {
	return []models.CaseStatus{
		models.CaseDraft,
		models.CaseAnalyzing,
		models.CaseReview,
		models.CaseResponded,
		models.CaseArchived,
	}
}
