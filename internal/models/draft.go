package models

import "time"

// DraftStatus is the review state of a generated response.
type DraftStatus string

const (
	DraftPending  DraftStatus = "draft"
	DraftEditing  DraftStatus = "editing"
	DraftReviewed DraftStatus = "reviewed"
	DraftApproved DraftStatus = "approved"
)

// Valid reports whether the status is a known value.
func (s DraftStatus) Valid() bool {
	switch s {
	case DraftPending, DraftEditing, DraftReviewed, DraftApproved:
		return true
	}
	return false
}

// DraftResponse is AI-generated response text for one section. FinalContent
// is frozen at approval: the attorney's edit when non-empty, otherwise the
// machine draft, never a merge of the two.
type DraftResponse struct {
	ID                 string      `db:"id" json:"id"`
	TenantID           string      `db:"tenant_id" json:"tenant_id"`
	CaseID             string      `db:"case_id" json:"case_id"`
	RFESectionID       string      `db:"rfe_section_id" json:"rfe_section_id"`
	Position           int         `db:"position" json:"position"`
	Title              *string     `db:"title" json:"title,omitempty"`
	AIGeneratedContent string      `db:"ai_generated_content" json:"ai_generated_content"`
	EditedContent      string      `db:"edited_content" json:"edited_content"`
	FinalContent       string      `db:"final_content" json:"final_content"`
	Status             DraftStatus `db:"status" json:"status"`
	Version            int         `db:"version" json:"version"`
	AttorneyFeedback   *string     `db:"attorney_feedback" json:"attorney_feedback,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}
