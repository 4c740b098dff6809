package audit

import (
	"unicode/utf8"

	"github.com/pioneer-isp/helpdesk/internal/domain"
)

// ChangeMessage renders a one-line summary of an event.
func ChangeMessage(e domain.TicketEvent) string {
	switch e.Action {
	case domain.ActionCreated:
		return "ticket created"
	case domain.ActionNote:
		return "note: " + Excerpt(e.Note, 80)
	case domain.ActionStatusChanged:
		return fieldChange("status", e.FromValue, e.ToValue)
	case domain.ActionPriorityChanged:
		return fieldChange("priority", e.FromValue, e.ToValue)
	case domain.ActionAssignmentChanged:
		return fieldChange("assignee", e.FromValue, e.ToValue)
	default:
		return string(e.Action)
	}
}

func fieldChange(field, oldVal, newVal string) string {
	if oldVal == "" {
		return field + " set to " + newVal
	}
	if newVal == "" {
		return field + " cleared (was: " + oldVal + ")"
	}
	return field + " changed from " + oldVal + " to " + newVal
}

// Excerpt truncates s to at most maxLen bytes, marking the cut with an
// ellipsis. The cut never splits a multibyte character.
func Excerpt(s string, maxLen int) string {
	if maxLen <= 3 {
		maxLen = 50
	}
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
