// Package lifecycle enforces ticket field values and records one audit event per change.
//
// A Machine never performs I/O. Callers persist the returned ticket and event
// together in a single transaction.
package lifecycle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/sla"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

// AssigneeSet is the set of staff usernames and team names a ticket may be assigned to.
type AssigneeSet map[string]struct{}

// NewAssigneeSet builds a set, skipping blank names.
func NewAssigneeSet(names ...string) AssigneeSet {
	set := make(AssigneeSet, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Contains reports whether name is a known assignee.
func (s AssigneeSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the assignees sorted alphabetically.
func (s AssigneeSet) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithKeyGenerator overrides ticket key generation.
func WithKeyGenerator(gen func(time.Time) string) Option {
	return func(m *Machine) {
		if gen != nil {
			m.newKey = gen
		}
	}
}

// Machine applies validated mutations to tickets.
type Machine struct {
	policy    *sla.Policy
	assignees AssigneeSet
	now       func() time.Time
	newKey    func(time.Time) string
}

// NewMachine constructs a Machine. A nil policy uses the default SLA table.
func NewMachine(policy *sla.Policy, opts ...Option) *Machine {
	if policy == nil {
		policy = sla.DefaultPolicy()
	}
	m := &Machine{
		policy: policy,
		// Postgres stores microseconds; truncating keeps round-tripped values equal.
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newKey: GenerateKey,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithAssignees returns a copy of m that validates assignment against set.
func (m *Machine) WithAssignees(set AssigneeSet) *Machine {
	cp := *m
	cp.assignees = set
	return &cp
}

// Policy exposes the SLA policy in use.
func (m *Machine) Policy() *sla.Policy {
	return m.policy
}

// NewTicket is the validated creation payload.
type NewTicket struct {
	CustomerName  string
	AccountNumber string
	Phone         string
	Address       string
	City          string
	State         string
	Zip           string
	ServiceType   string
	Equipment     string
	Plan          string
	CallSource    string
	CallReason    string
	Description   string
	Priority      domain.TicketPriority
	AssignedTo    string
}

// Open creates a ticket in Open status with its SLA computed from the initial priority.
func (m *Machine) Open(input NewTicket, actor string) (domain.Ticket, domain.TicketEvent, error) {
	priority := domain.TicketPriority(strings.TrimSpace(string(input.Priority)))
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return domain.Ticket{}, domain.TicketEvent{}, apperrors.NewInvalidEnumValue(string(domain.FieldPriority), string(priority), domain.PriorityNames())
	}
	customer := strings.TrimSpace(input.CustomerName)
	account := strings.TrimSpace(input.AccountNumber)
	if customer == "" && account == "" {
		return domain.Ticket{}, domain.TicketEvent{}, apperrors.NewValidationError("customer name or account number required", nil)
	}
	assignee := strings.TrimSpace(input.AssignedTo)
	if assignee != "" && !m.assignees.Contains(assignee) {
		return domain.Ticket{}, domain.TicketEvent{}, apperrors.NewInvalidEnumValue(string(domain.FieldAssignedTo), assignee, m.assignees.Names())
	}

	now := m.now()
	due, err := m.policy.Due(priority, now)
	if err != nil {
		return domain.Ticket{}, domain.TicketEvent{}, err
	}

	ticket := domain.Ticket{
		Key:           m.newKey(now),
		CustomerName:  customer,
		AccountNumber: account,
		Phone:         strings.TrimSpace(input.Phone),
		Address:       strings.TrimSpace(input.Address),
		City:          strings.TrimSpace(input.City),
		State:         strings.TrimSpace(input.State),
		Zip:           strings.TrimSpace(input.Zip),
		ServiceType:   strings.TrimSpace(input.ServiceType),
		Equipment:     strings.TrimSpace(input.Equipment),
		Plan:          strings.TrimSpace(input.Plan),
		CallSource:    strings.TrimSpace(input.CallSource),
		CallReason:    strings.TrimSpace(input.CallReason),
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.TicketStatusOpen,
		Priority:      priority,
		AssignedTo:    assignee,
		CreatedAt:     now,
		UpdatedAt:     now,
		SLADue:        due,
	}
	event := domain.TicketEvent{
		Actor:     actor,
		Action:    domain.ActionCreated,
		ToValue:   string(domain.TicketStatusOpen),
		CreatedAt: now,
	}
	return ticket, event, nil
}

// Update sets field to value. Setting a field to its current value is a no-op:
// the ticket is returned unchanged and the event is nil.
func (m *Machine) Update(ticket domain.Ticket, field domain.TicketField, value, actor string) (domain.Ticket, *domain.TicketEvent, error) {
	action, ok := domain.ActionForField(field)
	if !ok {
		return ticket, nil, apperrors.NewInvalidEnumValue("field", string(field),
			[]string{string(domain.FieldStatus), string(domain.FieldPriority), string(domain.FieldAssignedTo)})
	}
	value = strings.TrimSpace(value)
	if err := m.validate(field, value); err != nil {
		return ticket, nil, err
	}

	current, _ := ticket.FieldValue(field)
	if current == value {
		return ticket, nil, nil
	}

	now := m.now()
	switch field {
	case domain.FieldStatus:
		next := domain.TicketStatus(value)
		if next.Done() && ticket.ResolvedAt == nil {
			resolved := now
			ticket.ResolvedAt = &resolved
		} else if !next.Done() {
			ticket.ResolvedAt = nil
		}
		ticket.Status = next
	case domain.FieldPriority:
		next := domain.TicketPriority(value)
		due, err := m.policy.Due(next, ticket.CreatedAt)
		if err != nil {
			return ticket, nil, err
		}
		ticket.Priority = next
		ticket.SLADue = due
	case domain.FieldAssignedTo:
		ticket.AssignedTo = value
	}
	ticket.UpdatedAt = now

	event := &domain.TicketEvent{
		TicketID:  ticket.ID,
		Actor:     actor,
		Action:    action,
		FromValue: current,
		ToValue:   value,
		CreatedAt: now,
	}
	return ticket, event, nil
}

// AddNote records free text against the ticket without touching its fields.
func (m *Machine) AddNote(ticket domain.Ticket, actor, text string) (domain.TicketEvent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.TicketEvent{}, apperrors.NewEmptyNote()
	}
	return domain.TicketEvent{
		TicketID:  ticket.ID,
		Actor:     actor,
		Action:    domain.ActionNote,
		Note:      text,
		CreatedAt: m.now(),
	}, nil
}

func (m *Machine) validate(field domain.TicketField, value string) error {
	switch field {
	case domain.FieldStatus:
		if !domain.TicketStatus(value).Valid() {
			return apperrors.NewInvalidEnumValue(string(field), value, domain.StatusNames())
		}
	case domain.FieldPriority:
		if !domain.TicketPriority(value).Valid() {
			return apperrors.NewInvalidEnumValue(string(field), value, domain.PriorityNames())
		}
	case domain.FieldAssignedTo:
		if !m.assignees.Contains(value) {
			return apperrors.NewInvalidEnumValue(string(field), value, m.assignees.Names())
		}
	}
	return nil
}

// GenerateKey builds a ticket key from the creation time plus a random suffix.
func GenerateKey(createdAt time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("TCK-%d-%s", createdAt.Unix(), suffix)
}
