package lifecycle

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/sla"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestMachine(clock *fakeClock) *Machine {
	m := NewMachine(sla.DefaultPolicy(),
		WithClock(clock.Now),
		WithKeyGenerator(func(time.Time) string { return "TCK-TEST" }),
	)
	return m.WithAssignees(NewAssigneeSet("Chuck", "Gabby", "Support"))
}

func openTicket(t *testing.T, m *Machine, priority domain.TicketPriority) domain.Ticket {
	t.Helper()
	ticket, _, err := m.Open(NewTicket{CustomerName: "Jane Doe", AccountNumber: "A-100", Priority: priority, AssignedTo: "Chuck"}, "Chuck")
	require.NoError(t, err)
	ticket.ID = "ticket-1"
	return ticket
}

func TestOpenComputesSLAFromInitialPriority(t *testing.T) {
	clock := &fakeClock{now: epoch}
	m := newTestMachine(clock)

	ticket, event, err := m.Open(NewTicket{
		CustomerName: "  Jane Doe ",
		Phone:        "555-0100",
		Description:  "No sync light on ONT",
		Priority:     domain.TicketPriorityCritical,
		AssignedTo:   "Support",
	}, "Chuck")
	require.NoError(t, err)

	assert.Equal(t, "TCK-TEST", ticket.Key)
	assert.Equal(t, "Jane Doe", ticket.CustomerName)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, epoch, ticket.CreatedAt)
	assert.Equal(t, time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC), ticket.SLADue)
	assert.Equal(t, domain.ActionCreated, event.Action)
	assert.Equal(t, "Chuck", event.Actor)
	assert.Empty(t, event.Note)
}

func TestOpenDefaultsAndValidation(t *testing.T) {
	m := newTestMachine(&fakeClock{now: epoch})

	ticket, _, err := m.Open(NewTicket{AccountNumber: "A-1"}, "Chuck")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, epoch.Add(24*time.Hour), ticket.SLADue)

	_, _, err = m.Open(NewTicket{AccountNumber: "A-1", Priority: "Normal"}, "Chuck")
	assert.ErrorIs(t, err, apperrors.ErrInvalidEnumValue)

	_, _, err = m.Open(NewTicket{AccountNumber: "A-1", AssignedTo: "Nobody"}, "Chuck")
	assert.ErrorIs(t, err, apperrors.ErrInvalidEnumValue)

	_, _, err = m.Open(NewTicket{Description: "no customer"}, "Chuck")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestPriorityChangeReanchorsToCreatedAt(t *testing.T) {
	clock := &fakeClock{now: epoch}
	m := newTestMachine(clock)
	ticket := openTicket(t, m, domain.TicketPriorityCritical)
	require.Equal(t, time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC), ticket.SLADue)

	clock.Advance(7 * time.Hour)
	updated, event, err := m.Update(ticket, domain.FieldPriority, "Low", "Gabby")
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), updated.SLADue)
	assert.Equal(t, epoch, updated.CreatedAt)
	assert.Equal(t, domain.ActionPriorityChanged, event.Action)
	assert.Equal(t, "Critical", event.FromValue)
	assert.Equal(t, "Low", event.ToValue)
	assert.Equal(t, "Gabby", event.Actor)
	assert.Equal(t, "ticket-1", event.TicketID)
	assert.Equal(t, epoch.Add(7*time.Hour), event.CreatedAt)

	clock.Advance(30 * time.Hour)
	again, _, err := m.Update(updated, domain.FieldPriority, "High", "Gabby")
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(12*time.Hour), again.SLADue)

	assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority, "input ticket must not be mutated")
}

func TestUpdateNoOpEmitsNoEvent(t *testing.T) {
	m := newTestMachine(&fakeClock{now: epoch})
	ticket := openTicket(t, m, domain.TicketPriorityHigh)

	for _, tc := range []struct {
		field domain.TicketField
		value string
	}{
		{domain.FieldStatus, "Open"},
		{domain.FieldPriority, "High"},
		{domain.FieldAssignedTo, "Chuck"},
		{domain.FieldStatus, "  Open  "},
	} {
		updated, event, err := m.Update(ticket, tc.field, tc.value, "Chuck")
		require.NoError(t, err)
		assert.Nil(t, event, "field %s", tc.field)
		assert.Equal(t, ticket, updated)
	}
}

func TestUpdateRejectsUnknownValues(t *testing.T) {
	m := newTestMachine(&fakeClock{now: epoch})
	ticket := openTicket(t, m, domain.TicketPriorityHigh)

	tests := []struct {
		name  string
		field domain.TicketField
		value string
	}{
		{"status", domain.FieldStatus, "Pending"},
		{"status case", domain.FieldStatus, "open"},
		{"priority", domain.FieldPriority, "Urgent"},
		{"assignee", domain.FieldAssignedTo, "Mallory"},
		{"blank assignee", domain.FieldAssignedTo, ""},
		{"field", domain.TicketField("description"), "x"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			updated, event, err := m.Update(ticket, tc.field, tc.value, "Chuck")
			assert.ErrorIs(t, err, apperrors.ErrInvalidEnumValue)
			assert.Nil(t, event)
			assert.Equal(t, ticket, updated)
		})
	}
}

func TestStatusChangeTracksResolution(t *testing.T) {
	clock := &fakeClock{now: epoch}
	m := newTestMachine(clock)
	ticket := openTicket(t, m, domain.TicketPriorityMedium)

	clock.Advance(time.Hour)
	resolved, event, err := m.Update(ticket, domain.FieldStatus, "Resolved", "Chuck")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, domain.ActionStatusChanged, event.Action)
	assert.Equal(t, "Open", event.FromValue)
	assert.Equal(t, "Resolved", event.ToValue)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, epoch.Add(time.Hour), *resolved.ResolvedAt)

	clock.Advance(time.Hour)
	closed, _, err := m.Update(resolved, domain.FieldStatus, "Closed", "Chuck")
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Hour), *closed.ResolvedAt)

	reopened, _, err := m.Update(closed, domain.FieldStatus, "Escalated", "Chuck")
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Equal(t, ticket.SLADue, reopened.SLADue)
}

func TestAssignmentChange(t *testing.T) {
	m := newTestMachine(&fakeClock{now: epoch})
	ticket := openTicket(t, m, domain.TicketPriorityLow)

	updated, event, err := m.Update(ticket, domain.FieldAssignedTo, "Gabby", "Chuck")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "Gabby", updated.AssignedTo)
	assert.Equal(t, domain.ActionAssignmentChanged, event.Action)
	assert.Equal(t, "Chuck", event.FromValue)
	assert.Equal(t, "Gabby", event.ToValue)
}

func TestAddNote(t *testing.T) {
	m := newTestMachine(&fakeClock{now: epoch})
	ticket := openTicket(t, m, domain.TicketPriorityLow)

	event, err := m.AddNote(ticket, "Chuck", "  Dispatched tech  ")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNote, event.Action)
	assert.Equal(t, "Dispatched tech", event.Note)
	assert.Equal(t, "ticket-1", event.TicketID)

	for _, blank := range []string{"", "   ", "\n\t"} {
		_, err := m.AddNote(ticket, "Chuck", blank)
		assert.ErrorIs(t, err, apperrors.ErrEmptyNote)
	}
}

func TestGenerateKey(t *testing.T) {
	key := GenerateKey(epoch)
	assert.Regexp(t, regexp.MustCompile(`^TCK-1704067200-[0-9A-F]{4}$`), key)
}

func TestAssigneeSet(t *testing.T) {
	set := NewAssigneeSet("Megan", " ", "Billy", "Megan")
	assert.Equal(t, []string{"Billy", "Megan"}, set.Names())
	assert.True(t, set.Contains("Billy"))
	assert.False(t, AssigneeSet(nil).Contains("Billy"))
}
