package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTxTimeout = 5 * time.Second

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles the repositories bound to one connection or transaction.
type Repositories struct {
	Tickets   TicketRepository
	Events    TicketEventRepository
	Customers CustomerRepository
	Staff     StaffRepository
}

// Store hands out repositories and runs units of work atomically.
// A ticket field change and its audit event must be written inside one RunInTx.
type Store interface {
	Repositories() Repositories
	RunInTx(ctx context.Context, fn func(repos Repositories) error) error
}

type postgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore builds a Store on a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, timeout: defaultTxTimeout}
}

func (s *postgresStore) Repositories() Repositories {
	return bind(s.pool)
}

func (s *postgresStore) RunInTx(ctx context.Context, fn func(repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rollback after a successful commit returns pgx.ErrTxClosed and is ignored.
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func bind(q Querier) Repositories {
	return Repositories{
		Tickets:   NewTicketRepository(q),
		Events:    NewTicketEventRepository(q),
		Customers: NewCustomerRepository(q),
		Staff:     NewStaffRepository(q),
	}
}
