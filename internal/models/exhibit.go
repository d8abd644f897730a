package models

import "time"

// Exhibit is a labeled reference into supporting material. Labels are unique
// within a case; ordering among siblings is by Position.
type Exhibit struct {
	ID            string    `db:"id" json:"id"`
	TenantID      string    `db:"tenant_id" json:"tenant_id"`
	CaseID        string    `db:"case_id" json:"case_id"`
	RFEDocumentID *string   `db:"rfe_document_id" json:"rfe_document_id,omitempty"`
	Label         string    `db:"label" json:"label"`
	Title         *string   `db:"title" json:"title,omitempty"`
	Description   *string   `db:"description" json:"description,omitempty"`
	Position      int       `db:"position" json:"position"`
	PageRange     *string   `db:"page_range" json:"page_range,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
