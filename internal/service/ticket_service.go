package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pioneer-isp/helpdesk/internal/access"
	"github.com/pioneer-isp/helpdesk/internal/audit"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/events"
	"github.com/pioneer-isp/helpdesk/internal/lifecycle"
	"github.com/pioneer-isp/helpdesk/internal/repository"
	"github.com/pioneer-isp/helpdesk/internal/sla"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

const createKeyAttempts = 3

// AssigneeSource supplies the names a ticket may currently be assigned to.
type AssigneeSource interface {
	Assignees(ctx context.Context) (lifecycle.AssigneeSet, error)
}

// TicketMetrics receives ticket counters.
type TicketMetrics interface {
	RecordTicketCreated(priority string)
	RecordTicketEvent(action string)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	store      repository.Store
	machine    *lifecycle.Machine
	assignees  AssigneeSource
	dispatcher events.Dispatcher
	metrics    TicketMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Machine    *lifecycle.Machine
	Assignees  AssigneeSource
	Dispatcher events.Dispatcher
	Metrics    TicketMetrics
	Logger     *zap.Logger
	// Clock drives SLA standing labels. Defaults to time.Now.
	Clock func() time.Time
}

// TicketListFilter describes list filters. Visibility is applied on top.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssignedTo  *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketSummary is one list row.
type TicketSummary struct {
	Ticket     domain.Ticket
	Standing   sla.Standing
	LatestNote string
}

// TicketDetail is the full view of one ticket.
type TicketDetail struct {
	Ticket      domain.Ticket
	Standing    sla.Standing
	Notes       []domain.TicketEvent
	RecentNotes []domain.TicketEvent
	History     []domain.TicketEvent
}

// TicketChanges is a combined edit. Nil fields are left alone; a blank note is skipped.
type TicketChanges struct {
	Status     *string
	Priority   *string
	AssignedTo *string
	Note       string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	machine := deps.Machine
	if machine == nil {
		machine = lifecycle.NewMachine(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		store:      deps.Store,
		machine:    machine,
		assignees:  deps.Assignees,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

func (s *TicketService) machineFor(ctx context.Context) (*lifecycle.Machine, error) {
	if s.assignees == nil {
		return s.machine, nil
	}
	set, err := s.assignees.Assignees(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.machine.WithAssignees(set), nil
}

// CreateTicket opens a ticket and records its creation event atomically.
func (s *TicketService) CreateTicket(ctx context.Context, scope access.Scope, input lifecycle.NewTicket) (*domain.Ticket, error) {
	machine, err := s.machineFor(ctx)
	if err != nil {
		return nil, err
	}

	var (
		ticket domain.Ticket
		event  domain.TicketEvent
	)
	for attempt := 1; ; attempt++ {
		ticket, event, err = machine.Open(input, scope.Actor())
		if err != nil {
			return nil, err
		}
		err = s.store.RunInTx(ctx, func(repos repository.Repositories) error {
			if err := repos.Tickets.Create(ctx, &ticket); err != nil {
				return err
			}
			event.TicketID = ticket.ID
			return repos.Events.Append(ctx, &event)
		})
		if err == nil {
			break
		}
		if !apperrors.IsUniqueViolation(err) || attempt == createKeyAttempts {
			return nil, apperrors.MapError(err)
		}
		s.logger.Warn("ticket key collision, retrying", zap.String("ticket_key", ticket.Key))
	}

	if s.metrics != nil {
		s.metrics.RecordTicketCreated(string(ticket.Priority))
	}
	s.afterCommit(ctx, ticket, []domain.TicketEvent{event})
	return &ticket, nil
}

// ListTickets returns the tickets visible to scope, newest first, with SLA
// standing and the latest note (or description) for each.
func (s *TicketService) ListTickets(ctx context.Context, scope access.Scope, filter TicketListFilter) ([]TicketSummary, error) {
	repoFilter := repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		AssignedTo:  filter.AssignedTo,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	applyScope(&repoFilter, scope)

	repos := s.store.Repositories()
	tickets, err := repos.Tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tickets = scope.Filter(tickets)

	ids := make([]string, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
	}
	allEvents, err := repos.Events.ListByTickets(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byTicket := audit.GroupByTicket(allEvents)

	now := s.now()
	result := make([]TicketSummary, 0, len(tickets))
	for _, ticket := range tickets {
		result = append(result, TicketSummary{
			Ticket:     ticket,
			Standing:   standingFor(ticket, now),
			LatestNote: audit.LatestNote(byTicket[ticket.ID], ticket.Description),
		})
	}
	return result, nil
}

// GetTicket returns the detail view of a visible ticket.
func (s *TicketService) GetTicket(ctx context.Context, scope access.Scope, key string) (*TicketDetail, error) {
	ticket, history, err := s.loadVisible(ctx, scope, key)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{
		Ticket:      *ticket,
		Standing:    standingFor(*ticket, s.now()),
		Notes:       audit.Recent(audit.Notes(history), -1),
		RecentNotes: audit.RecentNotes(history, audit.RecentNotesLimit),
		History:     history,
	}, nil
}

// History returns a visible ticket's events, oldest first.
func (s *TicketService) History(ctx context.Context, scope access.Scope, key string) ([]domain.TicketEvent, error) {
	_, history, err := s.loadVisible(ctx, scope, key)
	return history, err
}

func (s *TicketService) loadVisible(ctx context.Context, scope access.Scope, key string) (*domain.Ticket, []domain.TicketEvent, error) {
	repos := s.store.Repositories()
	ticket, err := repos.Tickets.GetByKey(ctx, key)
	if err != nil {
		return nil, nil, notFoundAs(err, "ticket", map[string]any{"ticket_key": key})
	}
	if err := scope.Authorize(ticket); err != nil {
		return nil, nil, err
	}
	stored, err := repos.Events.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, audit.History(stored), nil
}

// UpdateField sets one field. Setting a field to its current value succeeds
// and returns a nil event.
func (s *TicketService) UpdateField(ctx context.Context, scope access.Scope, key string, field domain.TicketField, value string) (*domain.Ticket, *domain.TicketEvent, error) {
	ticket, recorded, err := s.mutate(ctx, scope, key, []fieldChange{{field: field, value: value}}, nil)
	if err != nil {
		return nil, nil, err
	}
	if len(recorded) == 0 {
		return ticket, nil, nil
	}
	return ticket, &recorded[0], nil
}

// ApplyChanges applies a combined edit in one transaction, recording one event
// per field that actually changed plus one for the note.
func (s *TicketService) ApplyChanges(ctx context.Context, scope access.Scope, key string, changes TicketChanges) (*domain.Ticket, []domain.TicketEvent, error) {
	var fields []fieldChange
	if changes.Status != nil {
		fields = append(fields, fieldChange{field: domain.FieldStatus, value: *changes.Status})
	}
	if changes.Priority != nil {
		fields = append(fields, fieldChange{field: domain.FieldPriority, value: *changes.Priority})
	}
	if changes.AssignedTo != nil {
		fields = append(fields, fieldChange{field: domain.FieldAssignedTo, value: *changes.AssignedTo})
	}
	var note *string
	if strings.TrimSpace(changes.Note) != "" {
		note = &changes.Note
	}
	return s.mutate(ctx, scope, key, fields, note)
}

// AddNote records a note against a visible ticket.
func (s *TicketService) AddNote(ctx context.Context, scope access.Scope, key, text string) (*domain.TicketEvent, error) {
	_, recorded, err := s.mutate(ctx, scope, key, nil, &text)
	if err != nil {
		return nil, err
	}
	return &recorded[len(recorded)-1], nil
}

type fieldChange struct {
	field domain.TicketField
	value string
}

// mutate locks the ticket, applies changes through the state machine and
// writes the ticket with its events in one transaction.
func (s *TicketService) mutate(ctx context.Context, scope access.Scope, key string, changes []fieldChange, note *string) (*domain.Ticket, []domain.TicketEvent, error) {
	machine, err := s.machineFor(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		updated  domain.Ticket
		recorded []domain.TicketEvent
	)
	err = s.store.RunInTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetByKeyForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if err := scope.Authorize(current); err != nil {
			return err
		}

		ticket := *current
		var pending []domain.TicketEvent
		for _, change := range changes {
			next, event, err := machine.Update(ticket, change.field, change.value, scope.Actor())
			if err != nil {
				return err
			}
			ticket = next
			if event != nil {
				pending = append(pending, *event)
			}
		}
		if len(pending) > 0 {
			if err := repos.Tickets.Update(ctx, &ticket); err != nil {
				return err
			}
		}
		if note != nil {
			event, err := machine.AddNote(ticket, scope.Actor(), *note)
			if err != nil {
				return err
			}
			pending = append(pending, event)
		}
		for i := range pending {
			if err := repos.Events.Append(ctx, &pending[i]); err != nil {
				return err
			}
		}
		updated = ticket
		recorded = pending
		return nil
	})
	if err != nil {
		return nil, nil, notFoundAs(err, "ticket", map[string]any{"ticket_key": key})
	}

	s.afterCommit(ctx, updated, recorded)
	return &updated, recorded, nil
}

// afterCommit fans out committed events. Delivery failures are logged only;
// the change itself is already durable.
func (s *TicketService) afterCommit(ctx context.Context, ticket domain.Ticket, recorded []domain.TicketEvent) {
	for _, event := range recorded {
		s.logger.Info("ticket event recorded",
			zap.String("ticket_key", ticket.Key),
			zap.String("actor", event.Actor),
			zap.String("action", string(event.Action)),
			zap.String("from", event.FromValue),
			zap.String("to", event.ToValue))
		if s.metrics != nil {
			s.metrics.RecordTicketEvent(string(event.Action))
		}
		if s.dispatcher == nil {
			continue
		}
		if err := s.dispatcher.Publish(ctx, events.FromTicketEvent(ticket, event)); err != nil {
			s.logger.Warn("ticket event delivery failed",
				zap.String("ticket_key", ticket.Key),
				zap.String("action", string(event.Action)),
				zap.Error(err))
		}
	}
}

func applyScope(filter *repository.TicketFilter, scope access.Scope) {
	names, unrestricted := scope.Assignees()
	if unrestricted {
		return
	}
	filter.RestrictAssignees = true
	filter.Assignees = names
}

// standingFor reports no standing once a ticket is resolved or closed.
func standingFor(ticket domain.Ticket, now time.Time) sla.Standing {
	if ticket.Status.Done() {
		return sla.StandingAt(now, time.Time{})
	}
	return sla.StandingAt(now, ticket.SLADue)
}
