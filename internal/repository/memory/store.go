// Package memory provides an in-process repository.Store used when no
// database is configured and by service tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/repository"
)

type data struct {
	tickets   []domain.Ticket
	events    []domain.TicketEvent
	customers []domain.Customer
	staff     []domain.StaffMember
}

func (d *data) clone() *data {
	out := &data{
		tickets:   make([]domain.Ticket, len(d.tickets)),
		events:    make([]domain.TicketEvent, len(d.events)),
		customers: make([]domain.Customer, len(d.customers)),
		staff:     make([]domain.StaffMember, len(d.staff)),
	}
	copy(out.tickets, d.tickets)
	copy(out.events, d.events)
	copy(out.customers, d.customers)
	copy(out.staff, d.staff)
	for i := range out.tickets {
		out.tickets[i].ResolvedAt = cloneTime(out.tickets[i].ResolvedAt)
	}
	return out
}

// Store keeps every record in memory. Transactions work on a staged copy that
// replaces the live data only when the callback succeeds.
type Store struct {
	mu   sync.Mutex
	data *data
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: &data{}}
}

// Repositories returns repositories whose calls each run under the store lock.
// They must not be used from inside a RunInTx callback.
func (s *Store) Repositories() repository.Repositories {
	return bind(&view{store: s})
}

// RunInTx serializes units of work. Writes made by fn are discarded when it fails.
func (s *Store) RunInTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.data.clone()
	if err := fn(bind(&view{staged: staged})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.data = staged
	return nil
}

// view routes repository calls either to staged transaction data or to the
// live data under the store lock.
type view struct {
	store  *Store
	staged *data
}

func (v *view) read(fn func(d *data) error) error {
	if v.staged != nil {
		return fn(v.staged)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func bind(v *view) repository.Repositories {
	return repository.Repositories{
		Tickets:   &ticketRepository{v: v},
		Events:    &eventRepository{v: v},
		Customers: &customerRepository{v: v},
		Staff:     &staffRepository{v: v},
	}
}

var _ repository.Store = (*Store)(nil)
