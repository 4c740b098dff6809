package domain

import "time"

// Customer is a subscriber record used to prefill tickets.
type Customer struct {
	ID            string
	AccountNumber string
	Name          string
	Phone         string
	Email         string
	Address       string
	ServiceType   string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
