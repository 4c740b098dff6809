package events

import (
	"time"

	"github.com/pioneer-isp/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketNoteAdded       EventType = "ticket_note_added"
)

// AllEventTypes lists every type a subscriber can receive.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketPriorityChanged,
	EventTicketAssigned,
	EventTicketNoteAdded,
}

// Event represents a committed ticket change fanned out after the transaction.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	TicketKey string      `json:"ticket_key"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerName string                `json:"customer_name"`
	Priority     domain.TicketPriority `json:"priority"`
	AssignedTo   string                `json:"assigned_to,omitempty"`
	SLADue       time.Time             `json:"sla_due"`
}

// FieldChangedPayload carries a status, priority or assignment change.
type FieldChangedPayload struct {
	Field domain.TicketField `json:"field"`
	From  string             `json:"from"`
	To    string             `json:"to"`
}

// NoteAddedPayload payload.
type NoteAddedPayload struct {
	Preview string `json:"preview"`
}

const notePreviewLen = 120

// FromTicketEvent converts a persisted audit entry into a dispatchable event.
func FromTicketEvent(ticket domain.Ticket, e domain.TicketEvent) Event {
	out := Event{
		ID:        e.ID,
		TicketID:  ticket.ID,
		TicketKey: ticket.Key,
		Actor:     e.Actor,
		Timestamp: e.CreatedAt,
	}
	switch e.Action {
	case domain.ActionCreated:
		out.Type = EventTicketCreated
		out.Payload = TicketCreatedPayload{
			CustomerName: ticket.CustomerName,
			Priority:     ticket.Priority,
			AssignedTo:   ticket.AssignedTo,
			SLADue:       ticket.SLADue,
		}
	case domain.ActionStatusChanged:
		out.Type = EventTicketStatusChanged
		out.Payload = FieldChangedPayload{Field: domain.FieldStatus, From: e.FromValue, To: e.ToValue}
	case domain.ActionPriorityChanged:
		out.Type = EventTicketPriorityChanged
		out.Payload = FieldChangedPayload{Field: domain.FieldPriority, From: e.FromValue, To: e.ToValue}
	case domain.ActionAssignmentChanged:
		out.Type = EventTicketAssigned
		out.Payload = FieldChangedPayload{Field: domain.FieldAssignedTo, From: e.FromValue, To: e.ToValue}
	case domain.ActionNote:
		out.Type = EventTicketNoteAdded
		preview := []rune(e.Note)
		if len(preview) > notePreviewLen {
			preview = preview[:notePreviewLen]
		}
		out.Payload = NoteAddedPayload{Preview: string(preview)}
	}
	return out
}
