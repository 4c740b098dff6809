// Package audit provides read-side views over a ticket's event history.
package audit

import (
	"sort"

	"github.com/pioneer-isp/helpdesk/internal/domain"
)

// RecentNotesLimit is the number of notes shown in detail summaries.
const RecentNotesLimit = 3

// History returns the events ordered by creation time, oldest first.
// Events with equal timestamps keep their stored order.
func History(events []domain.TicketEvent) []domain.TicketEvent {
	out := append([]domain.TicketEvent(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Recent returns at most n events, newest first.
func Recent(events []domain.TicketEvent, n int) []domain.TicketEvent {
	out := append([]domain.TicketEvent(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Notes returns only the events that carry note text, in input order.
func Notes(events []domain.TicketEvent) []domain.TicketEvent {
	out := make([]domain.TicketEvent, 0, len(events))
	for _, e := range events {
		if e.HasNote() {
			out = append(out, e)
		}
	}
	return out
}

// RecentNotes returns at most n note events, newest first.
func RecentNotes(events []domain.TicketEvent, n int) []domain.TicketEvent {
	return Recent(Notes(events), n)
}

// LatestNote returns the text of the newest note by timestamp, or fallback
// when no event carries a note.
func LatestNote(events []domain.TicketEvent, fallback string) string {
	var latest *domain.TicketEvent
	for i := range events {
		e := &events[i]
		if !e.HasNote() {
			continue
		}
		if latest == nil || !e.CreatedAt.Before(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return fallback
	}
	return latest.Note
}

// GroupByTicket buckets events by ticket id.
func GroupByTicket(events []domain.TicketEvent) map[string][]domain.TicketEvent {
	out := make(map[string][]domain.TicketEvent)
	for _, e := range events {
		out[e.TicketID] = append(out[e.TicketID], e)
	}
	return out
}
