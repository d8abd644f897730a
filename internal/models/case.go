package models

import "time"

// CaseStatus is one of the closed set of lifecycle states. Transitions are
// governed exclusively by the lifecycle package.
type CaseStatus string

const (
	CaseDraft     CaseStatus = "draft"
	CaseAnalyzing CaseStatus = "analyzing"
	CaseReview    CaseStatus = "review"
	CaseResponded CaseStatus = "responded"
	CaseArchived  CaseStatus = "archived"
)

// Valid reports whether the status is a known lifecycle state.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseDraft, CaseAnalyzing, CaseReview, CaseResponded, CaseArchived:
		return true
	}
	return false
}

// Case is the aggregate root: one RFE matter. The beneficiary name is stored
// encrypted; BeneficiaryNameBidx carries the blind index used for equality
// search. Repositories populate BeneficiaryName only after decryption.
type Case struct {
	ID                  string     `db:"id" json:"id"`
	TenantID            string     `db:"tenant_id" json:"tenant_id"`
	CreatedByID         string     `db:"created_by_id" json:"created_by_id"`
	AssignedAttorneyID  *string    `db:"assigned_attorney_id" json:"assigned_attorney_id,omitempty"`
	CaseNumber          string     `db:"case_number" json:"case_number"`
	USCISReceiptNumber  *string    `db:"uscis_receipt_number" json:"uscis_receipt_number,omitempty"`
	VisaType            string     `db:"visa_type" json:"visa_type"`
	Status              CaseStatus `db:"status" json:"status"`
	PetitionerName      string     `db:"petitioner_name" json:"petitioner_name"`
	BeneficiaryName     string     `db:"-" json:"beneficiary_name,omitempty"`
	BeneficiaryNameEnc  string     `db:"beneficiary_name_enc" json:"-"`
	BeneficiaryNameBidx string     `db:"beneficiary_name_bidx" json:"-"`
	RFEReceivedDate     *time.Time `db:"rfe_received_date" json:"rfe_received_date,omitempty"`
	RFEDeadline         *time.Time `db:"rfe_deadline" json:"rfe_deadline,omitempty"`
	Notes               *string    `db:"notes" json:"notes,omitempty"`
	AttorneyReviewed    bool       `db:"attorney_reviewed" json:"attorney_reviewed"`
	AttorneyReviewedAt  *time.Time `db:"attorney_reviewed_at" json:"attorney_reviewed_at,omitempty"`
	ExportedAt          *time.Time `db:"exported_at" json:"exported_at,omitempty"`
	SubmittedAt         *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// CaseFilter captures list criteria. BeneficiaryBidx, when set, matches the
// blind index column so confidential names never appear in SQL.
type CaseFilter struct {
	Status          *CaseStatus
	VisaType        string
	AssignedTo      string
	Search          string
	BeneficiaryBidx string
	Page            int
	PageSize        int
}

// CaseStatusCount is one row of the dashboard status breakdown.
type CaseStatusCount struct {
	Status CaseStatus `db:"status" json:"status"`
	Count  int        `db:"count" json:"count"`
}

// DashboardSummary aggregates tenant-wide case statistics.
type DashboardSummary struct {
	TotalCases           int               `json:"total_cases"`
	CasesByStatus        []CaseStatusCount `json:"cases_by_status"`
	ApproachingDeadlines int               `json:"approaching_deadlines"`
	RecentCases          []Case            `json:"recent_cases"`
	GeneratedAt          time.Time         `json:"generated_at"`
}
