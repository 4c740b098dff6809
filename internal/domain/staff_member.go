package domain

import "time"

// Built-in groups. Groups are free-form; only GroupAdmin carries meaning.
const (
	GroupAdmin        = "Admin"
	GroupSupport      = "Support"
	GroupBillingSales = "Billing/Sales"
)

// ProtectedUsername cannot be deleted through staff management.
const ProtectedUsername = "admin"

// StaffMember models a helpdesk employee.
type StaffMember struct {
	ID           string
	Username     string
	DisplayName  string
	Group        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
