package models

import "time"

// UserRole represents the closed set of roles the policy layer understands.
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleAttorney  UserRole = "attorney"
	RoleParalegal UserRole = "paralegal"
	RoleViewer    UserRole = "viewer"
)

// Valid reports whether the role is a known value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleAttorney, RoleParalegal, RoleViewer:
		return true
	}
	return false
}

// UserStatus is the account lifecycle state.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
	UserInvited  UserStatus = "invited"
)

// Valid reports whether the status is a known value.
func (s UserStatus) Valid() bool {
	switch s {
	case UserActive, UserInactive, UserInvited:
		return true
	}
	return false
}

// User is a principal belonging to exactly one tenant. Email is globally
// unique because authentication runs before the tenant is known.
type User struct {
	ID           string     `db:"id" json:"id"`
	TenantID     string     `db:"tenant_id" json:"tenant_id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	JTI          string     `db:"jti" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Role         UserRole   `db:"role" json:"role"`
	Status       UserStatus `db:"status" json:"status"`
	BarNumber    *string    `db:"bar_number" json:"bar_number,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Status    *UserStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
