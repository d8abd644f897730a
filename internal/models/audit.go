package models

import "time"

// EntityKind is the closed set of auditable entity types. Audit rows carry a
// typed (kind, id) reference instead of a free-form type name.
type EntityKind string

const (
	EntityTenant       EntityKind = "tenant"
	EntityUser         EntityKind = "user"
	EntityCase         EntityKind = "case"
	EntityRFEDocument  EntityKind = "rfe_document"
	EntityRFESection   EntityKind = "rfe_section"
	EntityChecklist    EntityKind = "evidence_checklist"
	EntityDraft        EntityKind = "draft_response"
	EntityExhibit      EntityKind = "exhibit"
	EntityKnowledgeDoc EntityKind = "knowledge_doc"
)

// Valid reports whether the kind is a known entity type.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityTenant, EntityUser, EntityCase, EntityRFEDocument, EntityRFESection,
		EntityChecklist, EntityDraft, EntityExhibit, EntityKnowledgeDoc:
		return true
	}
	return false
}

// EntityRef points at one auditable entity.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionLogout           = "LOGOUT"
	AuditActionPasswordChange   = "PASSWORD_CHANGE"
	AuditActionCreate           = "CREATE"
	AuditActionUpdate           = "UPDATE"
	AuditActionDelete           = "DELETE"
	AuditActionStatusTransition = "STATUS_TRANSITION"
	AuditActionAssignAttorney   = "ASSIGN_ATTORNEY"
	AuditActionApproveDraft     = "APPROVE_DRAFT"
	AuditActionToggleCollected  = "TOGGLE_COLLECTED"
	AuditActionReclassify       = "RECLASSIFY"
	AuditActionExport           = "EXPORT"
	AuditActionRegenerate       = "REGENERATE"
	AuditActionResendInvite     = "RESEND_INVITATION"
)

// AuditLog is an append-only trail record. Application code never updates or
// deletes rows; only the tenant retention purge removes them.
type AuditLog struct {
	ID         string     `db:"id" json:"id"`
	TenantID   string     `db:"tenant_id" json:"tenant_id"`
	UserID     *string    `db:"user_id" json:"user_id,omitempty"`
	Action     string     `db:"action" json:"action"`
	EntityKind EntityKind `db:"entity_kind" json:"entity_kind"`
	EntityID   string     `db:"entity_id" json:"entity_id"`
	Changes    []byte     `db:"changes" json:"changes,omitempty"`
	IPAddress  string     `db:"ip_address" json:"ip_address"`
	UserAgent  string     `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
