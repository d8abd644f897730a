package models

import "time"

// TenantPlan is the subscription tier of a firm.
type TenantPlan string

const (
	PlanTrial        TenantPlan = "trial"
	PlanBasic        TenantPlan = "basic"
	PlanProfessional TenantPlan = "professional"
	PlanEnterprise   TenantPlan = "enterprise"
)

// Valid reports whether the plan is a known tier.
func (p TenantPlan) Valid() bool {
	switch p {
	case PlanTrial, PlanBasic, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// TenantStatus is the lifecycle state of a tenant account.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
	TenantCancelled TenantStatus = "cancelled"
)

// Valid reports whether the status is a known value.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantSuspended, TenantCancelled:
		return true
	}
	return false
}

// Tenant is the isolation boundary: one law firm. Every other entity hangs
// off a tenant and is only ever read or written through its tenant id.
type Tenant struct {
	ID                string       `db:"id" json:"id"`
	Name              string       `db:"name" json:"name"`
	Slug              string       `db:"slug" json:"slug"`
	Plan              TenantPlan   `db:"plan" json:"plan"`
	Status            TenantStatus `db:"status" json:"status"`
	Settings          []byte       `db:"settings" json:"settings,omitempty"`
	DataRetentionDays int          `db:"data_retention_days" json:"data_retention_days"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}
