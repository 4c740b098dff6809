package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/events"
	"github.com/pioneer-isp/helpdesk/internal/lifecycle"
	"github.com/pioneer-isp/helpdesk/internal/sla"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

func TestCreateTicketRecordsCreationEvent(t *testing.T) {
	h := newHarness(t)
	ticket := h.open(t, "chuck", "chuck", domain.TicketPriorityHigh)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, epoch, ticket.CreatedAt)
	assert.Equal(t, epoch.Add(12*time.Hour), ticket.SLADue)
	assert.NotEmpty(t, ticket.ID)

	history, err := h.tickets.History(h.ctx, h.scope(t, "chuck"), ticket.Key)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ActionCreated, history[0].Action)
	assert.Equal(t, "chuck", history[0].Actor)

	require.Len(t, h.published, 1)
	assert.Equal(t, events.EventTicketCreated, h.published[0].Type)
	assert.Equal(t, ticket.Key, h.published[0].TicketKey)
	assert.Equal(t, 1, h.metrics.created["High"])
}

func TestCreateTicketRejectsUnknownAssignee(t *testing.T) {
	h := newHarness(t)
	_, err := h.tickets.CreateTicket(h.ctx, h.scope(t, "admin"), lifecycle.NewTicket{
		CustomerName: "Jane Doe",
		Priority:     domain.TicketPriorityLow,
		AssignedTo:   "zed",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidEnumValue))

	rows, err := h.tickets.ListTickets(h.ctx, h.scope(t, "admin"), TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, h.published)
}

func TestCreateTicketRetriesKeyCollision(t *testing.T) {
	keys := []string{"TCK-1", "TCK-1", "TCK-2"}
	calls := 0
	h := newHarness(t, lifecycle.WithKeyGenerator(func(time.Time) string {
		defer func() { calls++ }()
		if calls < len(keys) {
			return keys[calls]
		}
		return "TCK-2"
	}))

	first := h.open(t, "admin", "chuck", domain.TicketPriorityLow)
	second := h.open(t, "admin", "chuck", domain.TicketPriorityLow)
	assert.Equal(t, "TCK-1", first.Key)
	assert.Equal(t, "TCK-2", second.Key)

	_, err := h.tickets.CreateTicket(h.ctx, h.scope(t, "admin"), lifecycle.NewTicket{CustomerName: "Jane Doe"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, 6, calls)
}

func TestListTicketsAppliesGroupScope(t *testing.T) {
	h := newHarness(t)
	toChuck := h.open(t, "admin", "chuck", domain.TicketPriorityMedium)
	h.clock.Advance(time.Minute)
	toSupport := h.open(t, "admin", domain.GroupSupport, domain.TicketPriorityMedium)
	h.clock.Advance(time.Minute)
	toGabby := h.open(t, "admin", "gabby", domain.TicketPriorityMedium)
	h.clock.Advance(time.Minute)
	toAdmin := h.open(t, "admin", "admin", domain.TicketPriorityMedium)

	cases := map[string][]string{
		"admin": {toAdmin.Key, toGabby.Key, toSupport.Key, toChuck.Key},
		"chuck": {toSupport.Key, toChuck.Key},
		"aidan": {toSupport.Key, toChuck.Key},
		"gabby": {toGabby.Key},
	}
	for actor, want := range cases {
		rows, err := h.tickets.ListTickets(h.ctx, h.scope(t, actor), TicketListFilter{})
		require.NoError(t, err)
		assert.Equal(t, want, keysOf(rows), actor)
	}

	assignee := "chuck"
	rows, err := h.tickets.ListTickets(h.ctx, h.scope(t, "gabby"), TicketListFilter{AssignedTo: &assignee})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListTicketsFilters(t *testing.T) {
	h := newHarness(t)
	low := h.open(t, "admin", "chuck", domain.TicketPriorityLow)
	h.clock.Advance(time.Hour)
	critical := h.open(t, "admin", "chuck", domain.TicketPriorityCritical)
	_, _, err := h.tickets.UpdateField(h.ctx, h.scope(t, "chuck"), critical.Key, domain.FieldStatus, string(domain.TicketStatusEscalated))
	require.NoError(t, err)

	admin := h.scope(t, "admin")
	rows, err := h.tickets.ListTickets(h.ctx, admin, TicketListFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityLow}})
	require.NoError(t, err)
	assert.Equal(t, []string{low.Key}, keysOf(rows))

	rows, err = h.tickets.ListTickets(h.ctx, admin, TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusEscalated}})
	require.NoError(t, err)
	assert.Equal(t, []string{critical.Key}, keysOf(rows))

	rows, err = h.tickets.ListTickets(h.ctx, admin, TicketListFilter{SearchTerm: strPtr("modem lights")})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = h.tickets.ListTickets(h.ctx, admin, TicketListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{low.Key}, keysOf(rows))
}

func TestGetTicketOutsideScope(t *testing.T) {
	h := newHarness(t)
	ticket := h.open(t, "admin", "chuck", domain.TicketPriorityMedium)

	_, err := h.tickets.GetTicket(h.ctx, h.scope(t, "gabby"), ticket.Key)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	_, _, err = h.tickets.UpdateField(h.ctx, h.scope(t, "gabby"), ticket.Key, domain.FieldStatus, string(domain.TicketStatusClosed))
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))

	_, err = h.tickets.GetTicket(h.ctx, h.scope(t, "admin"), "TCK-MISSING")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestUpdateFieldToCurrentValueIsNoOp(t *testing.T) {
	h := newHarness(t)
	ticket := h.open(t, "chuck", "chuck", domain.TicketPriorityMedium)
	h.clock.Advance(time.Hour)

	updated, event, err := h.tickets.UpdateField(h.ctx, h.scope(t, "chuck"), ticket.Key, domain.FieldPriority, "Medium")
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.Equal(t, ticket.UpdatedAt, updated.UpdatedAt)

	history, err := h.tickets.History(h.ctx, h.scope(t, "chuck"), ticket.Key)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Len(t, h.published, 1)
}

func TestPriorityChangeRecomputesSLAFromCreation(t *testing.T) {
	h := newHarness(t)
	ticket := h.open(t, "chuck", "chuck", domain.TicketPriorityMedium)
	assert.Equal(t, epoch.Add(24*time.Hour), ticket.SLADue)

	h.clock.Advance(5 * time.Hour)
	updated, event, err := h.tickets.UpdateField(h.ctx, h.scope(t, "chuck"), ticket.Key, domain.FieldPriority, "Critical")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, epoch.Add(4*time.Hour), updated.SLADue)
	assert.Equal(t, domain.ActionPriorityChanged, event.Action)
	assert.Equal(t, "Medium", event.FromValue)
	assert.Equal(t, "Critical", event.ToValue)

	rows, err := h.tickets.ListTickets(h.ctx, h.scope(t, "chuck"), TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, sla.StateOverdue, rows[0].Standing.State)
	assert.Equal(t, "1h overdue", rows[0].Standing.Label)
}

func TestResolveStampsResolvedAtAndReopenClears(t *testing.T) {
	h := newHarness(t)
	ticket := h.open(t, "chuck", "chuck", domain.TicketPriorityMedium)
	scope := h.scope(t, "chuck")

	h.clock.Advance(2 * time.Hour)
	resolved, _, err := h.tickets.UpdateField(h.ctx, scope, ticket.Key, domain.FieldStatus, "Resolved")
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, epoch.Add(2*time.Hour), *resolved.ResolvedAt)

	detail, err := h.tickets.GetTicket(h.ctx, scope, ticket.Key)
	require.NoError(t, err)
	assert.Equal(t, sla.StateNone, detail.Standing.State)

	reopened, _, err := h.tickets.UpdateField(h.ctx, scope, ticket.Key, domain.FieldStatus, "Open")
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
}

func TestUpdateFieldValidation(t *testing.T) {
	h := newHarness(t)
	ticket := h.open(t, "chuck", "chuck", domain.TicketPriorityMedium)
	scope := h.scope(t, "chuck")

	_, _, err := h.tickets.UpdateField(h.ctx, scope, ticket.Key, domain.FieldStatus, "Pending")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidEnumValue))

	_, _, err = h.tickets.UpdateField(h.ctx, scope, ticket.Key, domain.TicketField("customer_name"), "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidEnumValue))

	_, _, err = h.tickets.UpdateField(h.ctx, scope, ticket.Key, domain.FieldAssignedTo, "zed")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidEnumValue))

	_, _, err = h.tickets.UpdateField(h.ctx, scope, "TCK-MISSING", domain.FieldStatus, "Closed")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestApplyChangesRecordsOneEventPerChangedField(t *testing.T) {
	h := newHarness(t)
	ticket := h.open(t, "chuck", "chuck", domain.TicketPriorityMedium)
	h.clock.Advance(time.Minute)

	updated, recorded, err := h.tickets.ApplyChanges(h.ctx, h.scope(t, "chuck"), ticket.Key, TicketChanges{
		Status:     strPtr("In Progress"),
		Priority:   strPtr("Medium"),
		AssignedTo: strPtr("aidan"),
		Note:       "Called customer, rebooting ONT",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, "aidan", updated.AssignedTo)
	assert.Equal(t, []domain.TicketAction{
		domain.ActionStatusChanged,
		domain.ActionAssignmentChanged,
		domain.ActionNote,
	}, actionsOf(recorded))

	history, err := h.tickets.History(h.ctx, h.scope(t, "aidan"), ticket.Key)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	types := make([]events.EventType, 0, len(h.published))
	for _, e := range h.published {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketNoteAdded,
	}, types)
	assert.Equal(t, 1, h.metrics.events[string(domain.ActionNote)])
}

func TestApplyChangesIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	ticket := h.open(t, "chuck", "chuck", domain.TicketPriorityMedium)
	scope := h.scope(t, "chuck")

	_, _, err := h.tickets.ApplyChanges(h.ctx, scope, ticket.Key, TicketChanges{
		Status:   strPtr("Resolved"),
		Priority: strPtr("Urgent"),
		Note:     "should not be saved",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidEnumValue))

	detail, err := h.tickets.GetTicket(h.ctx, scope, ticket.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, detail.Ticket.Status)
	assert.Nil(t, detail.Ticket.ResolvedAt)
	assert.Len(t, detail.History, 1)
	assert.Empty(t, detail.Notes)
}

func TestNotesAndLatestNote(t *testing.T) {
	h := newHarness(t)
	ticket := h.open(t, "chuck", "chuck", domain.TicketPriorityMedium)
	scope := h.scope(t, "chuck")

	rows, err := h.tickets.ListTickets(h.ctx, scope, TicketListFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Modem lights blinking red", rows[0].LatestNote)

	_, err = h.tickets.AddNote(h.ctx, scope, ticket.Key, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyNote))

	for i, text := range []string{"first", "second", "third", "fourth"} {
		h.clock.Advance(time.Minute)
		event, err := h.tickets.AddNote(h.ctx, scope, ticket.Key, text)
		require.NoError(t, err, i)
		assert.Equal(t, text, event.Note)
	}

	rows, err = h.tickets.ListTickets(h.ctx, scope, TicketListFilter{})
	require.NoError(t, err)
	assert.Equal(t, "fourth", rows[0].LatestNote)

	detail, err := h.tickets.GetTicket(h.ctx, scope, ticket.Key)
	require.NoError(t, err)
	require.Len(t, detail.Notes, 4)
	assert.Equal(t, "fourth", detail.Notes[0].Note)
	require.Len(t, detail.RecentNotes, 3)
	assert.Equal(t, "second", detail.RecentNotes[2].Note)
	assert.Equal(t, domain.ActionCreated, detail.History[0].Action)
}

func TestDeliveryFailureDoesNotFailTheChange(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.Subscribe(events.EventTicketStatusChanged, func(context.Context, events.Event) error {
		return errors.New("webhook down")
	})
	ticket := h.open(t, "chuck", "chuck", domain.TicketPriorityMedium)

	updated, event, err := h.tickets.UpdateField(h.ctx, h.scope(t, "chuck"), ticket.Key, domain.FieldStatus, "On Hold")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, domain.TicketStatusOnHold, updated.Status)
}

func TestAssignmentShortcuts(t *testing.T) {
	h := newHarness(t)
	assignments := NewAssignmentService(h.tickets)
	ticket := h.open(t, "admin", domain.GroupSupport, domain.TicketPriorityMedium)

	claimed, event, err := assignments.SelfAssignTicket(h.ctx, h.scope(t, "aidan"), ticket.Key)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "aidan", claimed.AssignedTo)
	assert.Equal(t, domain.GroupSupport, event.FromValue)

	_, event, err = assignments.SelfAssignTicket(h.ctx, h.scope(t, "aidan"), ticket.Key)
	require.NoError(t, err)
	assert.Nil(t, event)

	grouped, _, err := assignments.AssignTicketToGroup(h.ctx, h.scope(t, "chuck"), ticket.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.GroupSupport, grouped.AssignedTo)

	_, _, err = assignments.SelfAssignTicket(h.ctx, h.scope(t, "gabby"), ticket.Key)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}
