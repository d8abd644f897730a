package models

import "time"

// DocumentType classifies an uploaded file.
type DocumentType string

const (
	DocRFENotice          DocumentType = "rfe_notice"
	DocSupportingEvidence DocumentType = "supporting_evidence"
	DocExhibit            DocumentType = "exhibit"
)

// Valid reports whether the document type is a known value.
func (t DocumentType) Valid() bool {
	switch t {
	case DocRFENotice, DocSupportingEvidence, DocExhibit:
		return true
	}
	return false
}

// ProcessingStatus tracks the external analysis engine's progress on a file.
// Only the collaborator callback path moves it past pending.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// Valid reports whether the processing status is a known value.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case ProcessingPending, ProcessingInProgress, ProcessingCompleted, ProcessingFailed:
		return true
	}
	return false
}

// RFEDocument is an uploaded file reference. Bytes live in external storage;
// the core keeps only the storage key plus text the collaborator derived.
type RFEDocument struct {
	ID               string           `db:"id" json:"id"`
	TenantID         string           `db:"tenant_id" json:"tenant_id"`
	CaseID           string           `db:"case_id" json:"case_id"`
	UploadedByID     string           `db:"uploaded_by_id" json:"uploaded_by_id"`
	DocumentType     DocumentType     `db:"document_type" json:"document_type"`
	Filename         string           `db:"filename" json:"filename"`
	ContentType      *string          `db:"content_type" json:"content_type,omitempty"`
	FileSize         *int64           `db:"file_size" json:"file_size,omitempty"`
	StorageKey       *string          `db:"storage_key" json:"storage_key,omitempty"`
	ExtractedText    *string          `db:"extracted_text" json:"extracted_text,omitempty"`
	OCRText          *string          `db:"ocr_text" json:"ocr_text,omitempty"`
	ProcessingStatus ProcessingStatus `db:"processing_status" json:"processing_status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}
