package models

import "time"

// SectionType classifies the legal ground an RFE excerpt addresses.
type SectionType string

const (
	SectionGeneral                   SectionType = "general"
	SectionSpecialtyOccupation       SectionType = "specialty_occupation"
	SectionEmployerEmployee          SectionType = "employer_employee"
	SectionBeneficiaryQualifications SectionType = "beneficiary_qualifications"
)

// Valid reports whether the section type is a known value.
func (t SectionType) Valid() bool {
	switch t {
	case SectionGeneral, SectionSpecialtyOccupation, SectionEmployerEmployee, SectionBeneficiaryQualifications:
		return true
	}
	return false
}

// RFESection is a classified excerpt of an RFE notice, produced by the
// external analysis collaborator. Sibling ordering is by Position.
type RFESection struct {
	ID              string      `db:"id" json:"id"`
	TenantID        string      `db:"tenant_id" json:"tenant_id"`
	CaseID          string      `db:"case_id" json:"case_id"`
	RFEDocumentID   *string     `db:"rfe_document_id" json:"rfe_document_id,omitempty"`
	Position        int         `db:"position" json:"position"`
	SectionType     SectionType `db:"section_type" json:"section_type"`
	Title           *string     `db:"title" json:"title,omitempty"`
	OriginalText    *string     `db:"original_text" json:"original_text,omitempty"`
	Summary         *string     `db:"summary" json:"summary,omitempty"`
	CFRReference    *string     `db:"cfr_reference" json:"cfr_reference,omitempty"`
	ConfidenceScore *float64    `db:"confidence_score" json:"confidence_score,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}
