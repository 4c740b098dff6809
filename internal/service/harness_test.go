package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pioneer-isp/helpdesk/internal/access"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/events"
	"github.com/pioneer-isp/helpdesk/internal/lifecycle"
	"github.com/pioneer-isp/helpdesk/internal/repository/memory"
	"github.com/pioneer-isp/helpdesk/internal/sla"
)

const testPassword = "password123"

var epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedMetrics struct {
	created map[string]int
	events  map[string]int
}

func (m *recordedMetrics) RecordTicketCreated(priority string) { m.created[priority]++ }

func (m *recordedMetrics) RecordTicketEvent(action string) { m.events[action]++ }

// harness wires the services over the in-memory store with four staff
// accounts: admin (Admin), chuck and aidan (Support), gabby (Billing/Sales).
type harness struct {
	ctx        context.Context
	store      *memory.Store
	clock      *fakeClock
	staff      *StaffService
	tickets    *TicketService
	dispatcher events.Dispatcher
	metrics    *recordedMetrics
	published  []events.Event
}

func newHarness(t *testing.T, opts ...lifecycle.Option) *harness {
	t.Helper()
	h := &harness{
		ctx:        context.Background(),
		store:      memory.NewStore(),
		clock:      &fakeClock{now: epoch},
		dispatcher: events.NewInMemoryDispatcher(),
		metrics:    &recordedMetrics{created: map[string]int{}, events: map[string]int{}},
	}
	h.staff = NewStaffService(StaffDependencies{
		Store:      h.store,
		BcryptCost: bcrypt.MinCost,
		AdminGroup: domain.GroupAdmin,
	})
	for _, member := range []struct{ username, group string }{
		{"admin", domain.GroupAdmin},
		{"chuck", domain.GroupSupport},
		{"aidan", domain.GroupSupport},
		{"gabby", domain.GroupBillingSales},
	} {
		_, err := h.staff.BootstrapStaff(h.ctx, CreateStaffInput{Username: member.username, Group: member.group, Password: testPassword})
		require.NoError(t, err)
	}

	events.SubscribeAll(h.dispatcher, func(_ context.Context, e events.Event) error {
		h.published = append(h.published, e)
		return nil
	})

	machineOpts := append([]lifecycle.Option{lifecycle.WithClock(h.clock.Now)}, opts...)
	h.tickets = NewTicketService(TicketDependencies{
		Store:      h.store,
		Machine:    lifecycle.NewMachine(sla.DefaultPolicy(), machineOpts...),
		Assignees:  h.staff,
		Dispatcher: h.dispatcher,
		Metrics:    h.metrics,
		Clock:      h.clock.Now,
	})
	return h
}

func (h *harness) scope(t *testing.T, username string) access.Scope {
	t.Helper()
	member, err := h.staff.Credentials(h.ctx, username)
	require.NoError(t, err)
	scope, err := h.staff.ScopeFor(h.ctx, *member)
	require.NoError(t, err)
	return scope
}

func (h *harness) open(t *testing.T, actor, assignee string, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(h.ctx, h.scope(t, actor), lifecycle.NewTicket{
		CustomerName:  "Jane Doe",
		AccountNumber: "100234",
		CallReason:    "No internet",
		Description:   "Modem lights blinking red",
		Priority:      priority,
		AssignedTo:    assignee,
	})
	require.NoError(t, err)
	return ticket
}

func keysOf(rows []TicketSummary) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Ticket.Key)
	}
	return out
}

func actionsOf(entries []domain.TicketEvent) []domain.TicketAction {
	out := make([]domain.TicketAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func strPtr(s string) *string { return &s }
