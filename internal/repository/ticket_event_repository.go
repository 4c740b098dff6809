package repository

import (
	"context"

	"github.com/pioneer-isp/helpdesk/internal/domain"
)

// TicketEventRepository stores audit entries. Events are insert-only.
type TicketEventRepository interface {
	Append(ctx context.Context, event *domain.TicketEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error)
	ListByTickets(ctx context.Context, ticketIDs []string) ([]domain.TicketEvent, error)
}

type ticketEventRepository struct {
	db Querier
}

// NewTicketEventRepository builds repository.
func NewTicketEventRepository(db Querier) TicketEventRepository {
	return &ticketEventRepository{db: db}
}

func (r *ticketEventRepository) Append(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (ticket_id, actor, action, from_value, to_value, note, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		event.TicketID,
		event.Actor,
		event.Action,
		event.FromValue,
		event.ToValue,
		event.Note,
		event.CreatedAt,
	).Scan(&event.ID)
}

func (r *ticketEventRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketEvent, error) {
	const query = `
        SELECT id, ticket_id, actor, action, from_value, to_value, note, created_at
        FROM ticket_events WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	return r.list(ctx, query, ticketID)
}

func (r *ticketEventRepository) ListByTickets(ctx context.Context, ticketIDs []string) ([]domain.TicketEvent, error) {
	if len(ticketIDs) == 0 {
		return []domain.TicketEvent{}, nil
	}
	const query = `
        SELECT id, ticket_id, actor, action, from_value, to_value, note, created_at
        FROM ticket_events WHERE ticket_id = ANY($1) ORDER BY created_at ASC, seq ASC`
	return r.list(ctx, query, ticketIDs)
}

func (r *ticketEventRepository) list(ctx context.Context, query string, arg any) ([]domain.TicketEvent, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketEvent{}
	for rows.Next() {
		var event domain.TicketEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.Actor,
			&event.Action,
			&event.FromValue,
			&event.ToValue,
			&event.Note,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
