package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusEscalated  TicketStatus = "Escalated"
	TicketStatusOnHold     TicketStatus = "On Hold"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// TicketStatuses lists statuses in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusEscalated,
	TicketStatusOnHold,
	TicketStatusResolved,
	TicketStatusClosed,
}

// ActiveStatuses are the statuses still being worked.
var ActiveStatuses = TicketStatuses[:4:4]

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Done reports whether the status ends active work.
func (s TicketStatus) Done() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// TicketPriorities lists priorities from least to most urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// StatusNames returns the status enumeration as strings.
func StatusNames() []string {
	out := make([]string, len(TicketStatuses))
	for i, s := range TicketStatuses {
		out[i] = string(s)
	}
	return out
}

// PriorityNames returns the priority enumeration as strings.
func PriorityNames() []string {
	out := make([]string, len(TicketPriorities))
	for i, p := range TicketPriorities {
		out[i] = string(p)
	}
	return out
}

// TicketField names the mutable ticket fields.
type TicketField string

const (
	FieldStatus     TicketField = "status"
	FieldPriority   TicketField = "priority"
	FieldAssignedTo TicketField = "assigned_to"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	Key           string
	CustomerName  string
	AccountNumber string
	Phone         string
	Address       string
	City          string
	State         string
	Zip           string
	ServiceType   string
	Equipment     string
	Plan          string
	CallSource    string
	CallReason    string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	AssignedTo    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SLADue        time.Time
	ResolvedAt    *time.Time
}

// FieldValue returns the current value of a mutable field.
func (t *Ticket) FieldValue(field TicketField) (string, bool) {
	switch field {
	case FieldStatus:
		return string(t.Status), true
	case FieldPriority:
		return string(t.Priority), true
	case FieldAssignedTo:
		return t.AssignedTo, true
	default:
		return "", false
	}
}
