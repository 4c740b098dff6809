package dto

import (
	"strings"
	"time"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

const (
	maxDescriptionLen = 5000
	maxNoteLen        = 5000
	maxShortFieldLen  = 200
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerName  string                `json:"customer_name"`
	AccountNumber string                `json:"account_number"`
	Phone         string                `json:"phone"`
	Address       string                `json:"address"`
	City          string                `json:"city"`
	State         string                `json:"state"`
	Zip           string                `json:"zip"`
	ServiceType   string                `json:"service_type"`
	Equipment     string                `json:"equipment"`
	Plan          string                `json:"plan"`
	CallSource    string                `json:"call_source"`
	CallReason    string                `json:"call_reason"`
	Description   string                `json:"description"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedTo    string                `json:"assigned_to"`
}

// Validate checks lengths. Enumerated values are checked by the state machine.
func (r CreateTicketRequest) Validate() error {
	if strings.TrimSpace(r.CustomerName) == "" && strings.TrimSpace(r.AccountNumber) == "" {
		return apperrors.NewValidationError("customer_name or account_number is required", nil)
	}
	short := map[string]string{
		"customer_name":  r.CustomerName,
		"account_number": r.AccountNumber,
		"phone":          r.Phone,
		"address":        r.Address,
		"city":           r.City,
		"state":          r.State,
		"zip":            r.Zip,
		"service_type":   r.ServiceType,
		"equipment":      r.Equipment,
		"plan":           r.Plan,
		"call_source":    r.CallSource,
		"call_reason":    r.CallReason,
		"assigned_to":    r.AssignedTo,
	}
	for field, value := range short {
		if len(strings.TrimSpace(value)) > maxShortFieldLen {
			return apperrors.NewValidationError(field+" is too long", map[string]any{"field": field, "max_length": maxShortFieldLen})
		}
	}
	if len(strings.TrimSpace(r.Description)) > maxDescriptionLen {
		return apperrors.NewValidationError("description is too long", map[string]any{"field": "description", "max_length": maxDescriptionLen})
	}
	return nil
}

// UpdateTicketRequest is the combined edit; omitted fields stay unchanged.
type UpdateTicketRequest struct {
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	AssignedTo *string `json:"assigned_to"`
	Note       string  `json:"note"`
}

// Validate rejects an edit that names nothing to change.
func (r UpdateTicketRequest) Validate() error {
	if r.Status == nil && r.Priority == nil && r.AssignedTo == nil && strings.TrimSpace(r.Note) == "" {
		return apperrors.NewValidationError("no changes supplied", nil)
	}
	if len(r.Note) > maxNoteLen {
		return apperrors.NewValidationError("note is too long", map[string]any{"field": "note", "max_length": maxNoteLen})
	}
	return nil
}

// UpdateFieldRequest sets a single field.
type UpdateFieldRequest struct {
	Value string `json:"value"`
}

// AddNoteRequest payload.
type AddNoteRequest struct {
	Note string `json:"note"`
}

// Validate caps note length. Blank notes are rejected by the state machine.
func (r AddNoteRequest) Validate() error {
	if len(r.Note) > maxNoteLen {
		return apperrors.NewValidationError("note is too long", map[string]any{"field": "note", "max_length": maxNoteLen})
	}
	return nil
}

// StandingResponse is the SLA countdown.
type StandingResponse struct {
	Label string `json:"label"`
	State string `json:"state"`
}

// TicketResponse is the full ticket record.
type TicketResponse struct {
	ID            string                `json:"id"`
	Key           string                `json:"key"`
	CustomerName  string                `json:"customer_name"`
	AccountNumber string                `json:"account_number"`
	Phone         string                `json:"phone"`
	Address       string                `json:"address"`
	City          string                `json:"city"`
	State         string                `json:"state"`
	Zip           string                `json:"zip"`
	ServiceType   string                `json:"service_type"`
	Equipment     string                `json:"equipment"`
	Plan          string                `json:"plan"`
	CallSource    string                `json:"call_source"`
	CallReason    string                `json:"call_reason"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedTo    string                `json:"assigned_to"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	SLADue        time.Time             `json:"sla_due"`
	ResolvedAt    *time.Time            `json:"resolved_at"`
}

// TicketSummaryResponse is one list row.
type TicketSummaryResponse struct {
	Key          string                `json:"key"`
	CustomerName string                `json:"customer_name"`
	Account      string                `json:"account_number"`
	ServiceType  string                `json:"service_type"`
	CallReason   string                `json:"call_reason"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	AssignedTo   string                `json:"assigned_to"`
	CreatedAt    time.Time             `json:"created_at"`
	SLADue       time.Time             `json:"sla_due"`
	Standing     StandingResponse      `json:"sla"`
	LatestNote   string                `json:"latest_note"`
}

// TicketEventResponse is one audit entry.
type TicketEventResponse struct {
	ID        string              `json:"id"`
	Actor     string              `json:"actor"`
	Action    domain.TicketAction `json:"action"`
	From      string              `json:"from,omitempty"`
	To        string              `json:"to,omitempty"`
	Note      string              `json:"note,omitempty"`
	Message   string              `json:"message"`
	CreatedAt time.Time           `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	Ticket      TicketResponse        `json:"ticket"`
	Standing    StandingResponse      `json:"sla"`
	Notes       []TicketEventResponse `json:"notes"`
	RecentNotes []TicketEventResponse `json:"recent_notes"`
	History     []TicketEventResponse `json:"history"`
}

// TicketChangeResponse returns the ticket after an edit with the events it produced.
type TicketChangeResponse struct {
	Ticket TicketResponse        `json:"ticket"`
	Events []TicketEventResponse `json:"events"`
}
