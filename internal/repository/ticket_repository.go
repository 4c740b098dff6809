package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pioneer-isp/helpdesk/internal/domain"
)

// TicketFilter captures list/search parameters.
type TicketFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssignedTo *string
	// RestrictAssignees limits results to Assignees; an empty list then matches nothing.
	RestrictAssignees bool
	Assignees         []string
	SearchTerm        *string
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
	// Limit <= 0 applies DefaultListLimit; NoLimit disables paging.
	Limit  int
	Offset int
}

// DefaultListLimit applies when a filter carries no limit.
const DefaultListLimit = 50

// NoLimit returns every matching row.
const NoLimit = -1

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByKey(ctx context.Context, key string) (*domain.Ticket, error)
	// GetByKeyForUpdate locks the row until the surrounding transaction ends.
	GetByKeyForUpdate(ctx context.Context, key string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, ticket_key, customer_name, account_number, phone, address, city, state, zip,
               service_type, equipment, plan, call_source, call_reason, description,
               status, priority, assigned_to, created_at, updated_at, sla_due, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_key, customer_name, account_number, phone, address, city, state, zip,
            service_type, equipment, plan, call_source, call_reason, description,
            status, priority, assigned_to, created_at, updated_at, sla_due, resolved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		ticket.Key,
		ticket.CustomerName,
		ticket.AccountNumber,
		ticket.Phone,
		ticket.Address,
		ticket.City,
		ticket.State,
		ticket.Zip,
		ticket.ServiceType,
		ticket.Equipment,
		ticket.Plan,
		ticket.CallSource,
		ticket.CallReason,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.SLADue,
		ticket.ResolvedAt,
	).Scan(&ticket.ID)
}

// Update writes the mutable fields. created_at and ticket_key never change.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, assigned_to=$3, sla_due=$4, resolved_at=$5, updated_at=$6
        WHERE id=$7`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.SLADue,
		ticket.ResolvedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByKey(ctx context.Context, key string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_key=$1`
	return scanTicket(r.db.QueryRow(ctx, query, key))
}

func (r *ticketRepository) GetByKeyForUpdate(ctx context.Context, key string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_key=$1 FOR UPDATE`
	return scanTicket(r.db.QueryRow(ctx, query, key))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RestrictAssignees {
		if len(filter.Assignees) == 0 {
			return []domain.Ticket{}, nil
		}
		args = append(args, filter.Assignees)
		clauses = append(clauses, fmt.Sprintf("assigned_to = ANY($%d)", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, containsPattern(*filter.SearchTerm))
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			`(LOWER(ticket_key) LIKE %[1]s ESCAPE '\' OR LOWER(customer_name) LIKE %[1]s ESCAPE '\' OR LOWER(account_number) LIKE %[1]s ESCAPE '\' OR LOWER(phone) LIKE %[1]s ESCAPE '\' OR LOWER(description) LIKE %[1]s ESCAPE '\')`, p))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC`,
		ticketColumns, strings.Join(clauses, " AND "))
	if filter.Limit != NoLimit {
		limit := filter.Limit
		if limit <= 0 {
			limit = DefaultListLimit
		}
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Key,
		&ticket.CustomerName,
		&ticket.AccountNumber,
		&ticket.Phone,
		&ticket.Address,
		&ticket.City,
		&ticket.State,
		&ticket.Zip,
		&ticket.ServiceType,
		&ticket.Equipment,
		&ticket.Plan,
		&ticket.CallSource,
		&ticket.CallReason,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.SLADue,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern turns a free-text term into a case-folded LIKE pattern that
// matches it as a literal substring.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}
