package domain

import "time"

// TicketAction captures what a history entry records.
type TicketAction string

const (
	ActionCreated           TicketAction = "created"
	ActionStatusChanged     TicketAction = "status_changed"
	ActionPriorityChanged   TicketAction = "priority_changed"
	ActionAssignmentChanged TicketAction = "assignment_changed"
	ActionNote              TicketAction = "note"
)

// ActionForField maps a mutable field to the action recorded when it changes.
func ActionForField(field TicketField) (TicketAction, bool) {
	switch field {
	case FieldStatus:
		return ActionStatusChanged, true
	case FieldPriority:
		return ActionPriorityChanged, true
	case FieldAssignedTo:
		return ActionAssignmentChanged, true
	default:
		return "", false
	}
}

// TicketEvent is an immutable audit trail entry.
type TicketEvent struct {
	ID        string
	TicketID  string
	Actor     string
	Action    TicketAction
	FromValue string
	ToValue   string
	Note      string
	CreatedAt time.Time
}

// HasNote reports whether the event carries note text.
func (e TicketEvent) HasNote() bool {
	return e.Note != ""
}
