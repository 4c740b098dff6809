package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/repository"
	"github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seedTicket(t *testing.T, repos repository.Repositories, key, assignee string, createdAt time.Time) domain.Ticket {
	t.Helper()
	ticket := domain.Ticket{
		Key:          key,
		CustomerName: "Jane Doe",
		Status:       domain.TicketStatusOpen,
		Priority:     domain.TicketPriorityMedium,
		AssignedTo:   assignee,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		SLADue:       createdAt.Add(24 * time.Hour),
	}
	require.NoError(t, repos.Tickets.Create(context.Background(), &ticket))
	return ticket
}

func TestRunInTxDiscardsWritesOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(repos repository.Repositories) error {
		seedTicket(t, repos, "TCK-1", "alice", epoch)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Repositories().Tickets.GetByKey(ctx, "TCK-1")
	assert.True(t, errorutil.IsNoRows(err))

	err = store.RunInTx(ctx, func(repos repository.Repositories) error {
		ticket := seedTicket(t, repos, "TCK-1", "alice", epoch)
		return repos.Events.Append(ctx, &domain.TicketEvent{
			TicketID:  ticket.ID,
			Actor:     "alice",
			Action:    domain.ActionCreated,
			ToValue:   string(domain.TicketStatusOpen),
			CreatedAt: epoch,
		})
	})
	require.NoError(t, err)

	ticket, err := store.Repositories().Tickets.GetByKey(ctx, "TCK-1")
	require.NoError(t, err)
	events, err := store.Repositories().Events.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRunInTxRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewStore().RunInTx(ctx, func(repository.Repositories) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestTicketListFiltersAndOrders(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	seedTicket(t, repos, "TCK-A", "alice", epoch)
	seedTicket(t, repos, "TCK-B", "bob", epoch.Add(time.Hour))
	seedTicket(t, repos, "TCK-C", "alice", epoch.Add(2*time.Hour))

	all, err := repos.Tickets.List(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "TCK-C", all[0].Key)
	assert.Equal(t, "TCK-A", all[2].Key)

	scoped, err := repos.Tickets.List(ctx, repository.TicketFilter{RestrictAssignees: true, Assignees: []string{"alice"}})
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	none, err := repos.Tickets.List(ctx, repository.TicketFilter{RestrictAssignees: true})
	require.NoError(t, err)
	assert.Empty(t, none)

	term := "tck-b"
	searched, err := repos.Tickets.List(ctx, repository.TicketFilter{SearchTerm: &term})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "bob", searched[0].AssignedTo)

	paged, err := repos.Tickets.List(ctx, repository.TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "TCK-B", paged[0].Key)
}

func TestDuplicateTicketKeyIsUniqueViolation(t *testing.T) {
	repos := NewStore().Repositories()
	seedTicket(t, repos, "TCK-A", "", epoch)

	dup := domain.Ticket{Key: "TCK-A", CreatedAt: epoch}
	err := repos.Tickets.Create(context.Background(), &dup)
	assert.True(t, errorutil.IsUniqueViolation(err))
}

func TestEventsOrderedByTimeThenInsertion(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	for _, e := range []domain.TicketEvent{
		{TicketID: "t1", Note: "second", CreatedAt: epoch.Add(time.Minute)},
		{TicketID: "t1", Note: "first", CreatedAt: epoch},
		{TicketID: "t2", Note: "other", CreatedAt: epoch},
		{TicketID: "t1", Note: "third", CreatedAt: epoch.Add(time.Minute)},
	} {
		event := e
		require.NoError(t, repos.Events.Append(ctx, &event))
	}

	events, err := repos.Events.ListByTicket(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{events[0].Note, events[1].Note, events[2].Note})
}

func TestCustomerUpsertKeepsExistingFields(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	inserted, err := repos.Customers.Upsert(ctx, &domain.Customer{AccountNumber: "ACC-1", Name: "Jane Doe", Phone: "555-0100"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repos.Customers.Upsert(ctx, &domain.Customer{AccountNumber: "ACC-1", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.False(t, inserted)

	customer, err := repos.Customers.GetByAccountNumber(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", customer.Name)
	assert.Equal(t, "555-0100", customer.Phone)
	assert.Equal(t, "jane@example.com", customer.Email)

	found, err := repos.Customers.SearchByName(ctx, "jane", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestStaffUsernameIsCaseInsensitive(t *testing.T) {
	repos := NewStore().Repositories()
	ctx := context.Background()

	require.NoError(t, repos.Staff.Create(ctx, &domain.StaffMember{Username: "alice", Group: domain.GroupSupport, Active: true}))
	err := repos.Staff.Create(ctx, &domain.StaffMember{Username: "ALICE", Group: domain.GroupSupport})
	assert.True(t, errorutil.IsUniqueViolation(err))

	found, err := repos.Staff.GetByUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)

	require.NoError(t, repos.Staff.Delete(ctx, found.ID))
	assert.True(t, errorutil.IsNoRows(repos.Staff.Delete(ctx, found.ID)))
}
