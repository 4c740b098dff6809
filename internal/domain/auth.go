package domain

import "time"

// Token represents an issued access token for a staff member.
type Token struct {
	Value     string
	StaffID   string
	Username  string
	Group     string
	ExpiresAt time.Time
}
