package models

import "time"

// KnowledgeDocType classifies firm knowledge base entries.
type KnowledgeDocType string

const (
	KnowledgeTemplate       KnowledgeDocType = "template"
	KnowledgeSampleResponse KnowledgeDocType = "sample_response"
	KnowledgeRegulation     KnowledgeDocType = "regulation"
	KnowledgeFirmKnowledge  KnowledgeDocType = "firm_knowledge"
)

// Valid reports whether the doc type is a known value.
func (t KnowledgeDocType) Valid() bool {
	switch t {
	case KnowledgeTemplate, KnowledgeSampleResponse, KnowledgeRegulation, KnowledgeFirmKnowledge:
		return true
	}
	return false
}

// KnowledgeDoc is tenant-scoped reference material the drafting engine draws
// from: templates, sample responses, regulations, and firm notes.
type KnowledgeDoc struct {
	ID           string           `db:"id" json:"id"`
	TenantID     string           `db:"tenant_id" json:"tenant_id"`
	UploadedByID string           `db:"uploaded_by_id" json:"uploaded_by_id"`
	DocType      KnowledgeDocType `db:"doc_type" json:"doc_type"`
	Title        string           `db:"title" json:"title"`
	Content      *string          `db:"content" json:"content,omitempty"`
	VisaType     *string          `db:"visa_type" json:"visa_type,omitempty"`
	RFECategory  *string          `db:"rfe_category" json:"rfe_category,omitempty"`
	IsActive     bool             `db:"is_active" json:"is_active"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// KnowledgeDocFilter captures list criteria for the knowledge base.
type KnowledgeDocFilter struct {
	DocType     *KnowledgeDocType
	VisaType    string
	RFECategory string
	ActiveOnly  bool
	Page        int
	PageSize    int
}
