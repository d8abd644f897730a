package models

import "time"

// ChecklistPriority grades how strongly a document is required.
type ChecklistPriority string

const (
	PriorityRequired    ChecklistPriority = "required"
	PriorityRecommended ChecklistPriority = "recommended"
	PriorityOptional    ChecklistPriority = "optional"
)

// Valid reports whether the priority is a known value.
func (p ChecklistPriority) Valid() bool {
	switch p {
	case PriorityRequired, PriorityRecommended, PriorityOptional:
		return true
	}
	return false
}

// EvidenceChecklistItem is one document ask tied to a section. IsCollected is
// a plain flag with no state machine behind it.
type EvidenceChecklistItem struct {
	ID               string            `db:"id" json:"id"`
	TenantID         string            `db:"tenant_id" json:"tenant_id"`
	CaseID           string            `db:"case_id" json:"case_id"`
	RFESectionID     string            `db:"rfe_section_id" json:"rfe_section_id"`
	Position         int               `db:"position" json:"position"`
	Priority         ChecklistPriority `db:"priority" json:"priority"`
	DocumentName     string            `db:"document_name" json:"document_name"`
	Description      *string           `db:"description" json:"description,omitempty"`
	Guidance         *string           `db:"guidance" json:"guidance,omitempty"`
	IsCollected      bool              `db:"is_collected" json:"is_collected"`
	LinkedDocumentID *string           `db:"linked_document_id" json:"linked_document_id,omitempty"`
	AttorneyNotes    *string           `db:"attorney_notes" json:"attorney_notes,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}
