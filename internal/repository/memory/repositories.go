package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/repository"
)

// Missing rows and duplicate keys surface as the same errors the postgres
// repositories return so callers map them identically.
func uniqueViolation(constraint string) error {
	return &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		ConstraintName: constraint,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func page(total, limit, offset int) (int, int) {
	if limit == repository.NoLimit {
		return 0, total
	}
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		return total, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return offset, end
}

type ticketRepository struct {
	v *view
}

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.v.read(func(d *data) error {
		for _, existing := range d.tickets {
			if existing.Key == ticket.Key {
				return uniqueViolation("tickets_ticket_key_key")
			}
		}
		ticket.ID = uuid.NewString()
		stored := *ticket
		stored.ResolvedAt = cloneTime(ticket.ResolvedAt)
		d.tickets = append(d.tickets, stored)
		return nil
	})
}

func (r *ticketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.v.read(func(d *data) error {
		for i := range d.tickets {
			if d.tickets[i].ID != ticket.ID {
				continue
			}
			stored := &d.tickets[i]
			stored.Status = ticket.Status
			stored.Priority = ticket.Priority
			stored.AssignedTo = ticket.AssignedTo
			stored.SLADue = ticket.SLADue
			stored.ResolvedAt = cloneTime(ticket.ResolvedAt)
			stored.UpdatedAt = ticket.UpdatedAt
			return nil
		}
		return pgx.ErrNoRows
	})
}

func (r *ticketRepository) GetByKey(_ context.Context, key string) (*domain.Ticket, error) {
	var found *domain.Ticket
	err := r.v.read(func(d *data) error {
		for _, ticket := range d.tickets {
			if ticket.Key == key {
				t := ticket
				t.ResolvedAt = cloneTime(ticket.ResolvedAt)
				found = &t
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return found, err
}

// GetByKeyForUpdate needs no row lock; RunInTx already holds the store lock.
func (r *ticketRepository) GetByKeyForUpdate(ctx context.Context, key string) (*domain.Ticket, error) {
	return r.GetByKey(ctx, key)
}

func (r *ticketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if filter.RestrictAssignees && len(filter.Assignees) == 0 {
		return []domain.Ticket{}, nil
	}

	var matched []domain.Ticket
	err := r.v.read(func(d *data) error {
		// Newest insert first so equal timestamps keep a stable order.
		for i := len(d.tickets) - 1; i >= 0; i-- {
			ticket := d.tickets[i]
			if matchesTicket(ticket, filter) {
				ticket.ResolvedAt = cloneTime(ticket.ResolvedAt)
				matched = append(matched, ticket)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	start, end := page(len(matched), filter.Limit, filter.Offset)
	result := make([]domain.Ticket, 0, end-start)
	return append(result, matched[start:end]...), nil
}

func matchesTicket(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.RestrictAssignees && !containsString(filter.Assignees, ticket.AssignedTo) {
		return false
	}
	if filter.AssignedTo != nil && ticket.AssignedTo != *filter.AssignedTo {
		return false
	}
	if len(filter.Statuses) > 0 {
		ok := false
		for _, status := range filter.Statuses {
			if ticket.Status == status {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(filter.Priorities) > 0 {
		ok := false
		for _, priority := range filter.Priorities {
			if ticket.Priority == priority {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term == "" {
			return true
		}
		for _, field := range []string{ticket.Key, ticket.CustomerName, ticket.AccountNumber, ticket.Phone, ticket.Description} {
			if strings.Contains(strings.ToLower(field), term) {
				return true
			}
		}
		return false
	}
	return true
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

type eventRepository struct {
	v *view
}

func (r *eventRepository) Append(_ context.Context, event *domain.TicketEvent) error {
	return r.v.read(func(d *data) error {
		event.ID = uuid.NewString()
		d.events = append(d.events, *event)
		return nil
	})
}

func (r *eventRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error) {
	return r.ListByTickets(ctx, []string{ticketID})
}

func (r *eventRepository) ListByTickets(_ context.Context, ticketIDs []string) ([]domain.TicketEvent, error) {
	result := []domain.TicketEvent{}
	if len(ticketIDs) == 0 {
		return result, nil
	}
	err := r.v.read(func(d *data) error {
		for _, event := range d.events {
			if containsString(ticketIDs, event.TicketID) {
				result = append(result, event)
			}
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, err
}

type customerRepository struct {
	v *view
}

func (r *customerRepository) GetByAccountNumber(_ context.Context, accountNumber string) (*domain.Customer, error) {
	var found *domain.Customer
	err := r.v.read(func(d *data) error {
		for _, customer := range d.customers {
			if customer.AccountNumber == accountNumber {
				c := customer
				found = &c
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return found, err
}

func (r *customerRepository) SearchByName(_ context.Context, name string, limit int) ([]domain.Customer, error) {
	term := strings.ToLower(strings.TrimSpace(name))
	result := []domain.Customer{}
	err := r.v.read(func(d *data) error {
		for _, customer := range d.customers {
			if strings.Contains(strings.ToLower(customer.Name), term) {
				result = append(result, customer)
			}
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	_, end := page(len(result), limit, 0)
	return result[:end], err
}

func (r *customerRepository) Upsert(_ context.Context, customer *domain.Customer) (bool, error) {
	inserted := false
	err := r.v.read(func(d *data) error {
		now := time.Now().UTC()
		for i := range d.customers {
			stored := &d.customers[i]
			if stored.AccountNumber != customer.AccountNumber {
				continue
			}
			overwrite(&stored.Name, customer.Name)
			overwrite(&stored.Phone, customer.Phone)
			overwrite(&stored.Email, customer.Email)
			overwrite(&stored.Address, customer.Address)
			overwrite(&stored.ServiceType, customer.ServiceType)
			overwrite(&stored.Notes, customer.Notes)
			stored.UpdatedAt = now
			*customer = *stored
			return nil
		}
		customer.ID = uuid.NewString()
		customer.CreatedAt = now
		customer.UpdatedAt = now
		d.customers = append(d.customers, *customer)
		inserted = true
		return nil
	})
	return inserted, err
}

func overwrite(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

type staffRepository struct {
	v *view
}

func (r *staffRepository) Create(_ context.Context, staff *domain.StaffMember) error {
	return r.v.read(func(d *data) error {
		for _, existing := range d.staff {
			if strings.EqualFold(existing.Username, staff.Username) {
				return uniqueViolation("staff_members_username_key")
			}
		}
		now := time.Now().UTC()
		staff.ID = uuid.NewString()
		staff.CreatedAt = now
		staff.UpdatedAt = now
		d.staff = append(d.staff, *staff)
		return nil
	})
}

func (r *staffRepository) Update(_ context.Context, staff *domain.StaffMember) error {
	return r.v.read(func(d *data) error {
		for i := range d.staff {
			if d.staff[i].ID != staff.ID {
				continue
			}
			stored := &d.staff[i]
			stored.DisplayName = staff.DisplayName
			stored.Group = staff.Group
			stored.PasswordHash = staff.PasswordHash
			stored.Active = staff.Active
			stored.UpdatedAt = time.Now().UTC()
			staff.UpdatedAt = stored.UpdatedAt
			return nil
		}
		return pgx.ErrNoRows
	})
}

func (r *staffRepository) Delete(_ context.Context, id string) error {
	return r.v.read(func(d *data) error {
		for i := range d.staff {
			if d.staff[i].ID == id {
				d.staff = append(d.staff[:i], d.staff[i+1:]...)
				return nil
			}
		}
		return pgx.ErrNoRows
	})
}

func (r *staffRepository) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	return r.find(func(s domain.StaffMember) bool { return s.ID == id })
}

func (r *staffRepository) GetByUsername(_ context.Context, username string) (*domain.StaffMember, error) {
	return r.find(func(s domain.StaffMember) bool { return strings.EqualFold(s.Username, username) })
}

func (r *staffRepository) find(match func(domain.StaffMember) bool) (*domain.StaffMember, error) {
	var found *domain.StaffMember
	err := r.v.read(func(d *data) error {
		for _, staff := range d.staff {
			if match(staff) {
				s := staff
				found = &s
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return found, err
}

func (r *staffRepository) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	result := []domain.StaffMember{}
	err := r.v.read(func(d *data) error {
		for _, staff := range d.staff {
			if filter.Group != nil && staff.Group != *filter.Group {
				continue
			}
			if filter.Active != nil && staff.Active != *filter.Active {
				continue
			}
			result = append(result, staff)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	start, end := page(len(result), filter.Limit, filter.Offset)
	return result[start:end], nil
}
