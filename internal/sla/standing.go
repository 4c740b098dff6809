package sla

import (
	"fmt"
	"time"
)

// State classifies how close a ticket is to its deadline.
type State string

const (
	StateNone    State = "none"
	StateOK      State = "ok"
	StateAtRisk  State = "at_risk"
	StateOverdue State = "overdue"
)

// AtRiskWindow is how close to the deadline a ticket counts as at risk.
const AtRiskWindow = 4 * time.Hour

// Standing is a countdown label for list views.
type Standing struct {
	Label string
	State State
}

// StandingAt describes due relative to now. A zero due has no standing.
func StandingAt(now, due time.Time) Standing {
	if due.IsZero() {
		return Standing{Label: "-", State: StateNone}
	}
	remaining := due.Sub(now)
	hours := int(remaining / time.Hour)
	switch {
	case remaining < 0:
		return Standing{Label: fmt.Sprintf("%dh overdue", -hours), State: StateOverdue}
	case remaining <= AtRiskWindow:
		return Standing{Label: fmt.Sprintf("%dh left", hours), State: StateAtRisk}
	case hours >= 24:
		return Standing{Label: fmt.Sprintf("%dd left", hours/24), State: StateOK}
	default:
		return Standing{Label: fmt.Sprintf("%dh left", hours), State: StateOK}
	}
}
