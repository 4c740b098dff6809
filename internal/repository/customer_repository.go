package repository

import (
	"context"
	"fmt"

	"github.com/pioneer-isp/helpdesk/internal/domain"
)

// CustomerRepository reads customer records and accepts upserts from the import side.
type CustomerRepository interface {
	GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error)
	SearchByName(ctx context.Context, name string, limit int) ([]domain.Customer, error)
	// Upsert inserts a new customer or overwrites the non-empty fields of an
	// existing one. inserted reports which happened.
	Upsert(ctx context.Context, customer *domain.Customer) (inserted bool, err error)
}

type customerRepository struct {
	db Querier
}

// NewCustomerRepository builds repository.
func NewCustomerRepository(db Querier) CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, account_number, name, phone, email, address, service_type, notes, created_at, updated_at`

func (r *customerRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE account_number=$1`
	return scanCustomer(r.db.QueryRow(ctx, query, accountNumber))
}

func (r *customerRepository) SearchByName(ctx context.Context, name string, limit int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE LOWER(name) LIKE $1 ESCAPE '\' ORDER BY name ASC LIMIT %d`, customerColumns, limit)
	rows, err := r.db.Query(ctx, query, containsPattern(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *customer)
	}
	return result, rows.Err()
}

func (r *customerRepository) Upsert(ctx context.Context, customer *domain.Customer) (bool, error) {
	// xmax = 0 only for freshly inserted rows.
	const query = `
        INSERT INTO customers (account_number, name, phone, email, address, service_type, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (account_number) DO UPDATE SET
            name = COALESCE(NULLIF(EXCLUDED.name, ''), customers.name),
            phone = COALESCE(NULLIF(EXCLUDED.phone, ''), customers.phone),
            email = COALESCE(NULLIF(EXCLUDED.email, ''), customers.email),
            address = COALESCE(NULLIF(EXCLUDED.address, ''), customers.address),
            service_type = COALESCE(NULLIF(EXCLUDED.service_type, ''), customers.service_type),
            notes = COALESCE(NULLIF(EXCLUDED.notes, ''), customers.notes),
            updated_at = NOW()
        RETURNING ` + customerColumns + `, (xmax = 0) AS inserted`
	var inserted bool
	err := r.db.QueryRow(ctx, query,
		customer.AccountNumber,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.Address,
		customer.ServiceType,
		customer.Notes,
	).Scan(
		&customer.ID,
		&customer.AccountNumber,
		&customer.Name,
		&customer.Phone,
		&customer.Email,
		&customer.Address,
		&customer.ServiceType,
		&customer.Notes,
		&customer.CreatedAt,
		&customer.UpdatedAt,
		&inserted,
	)
	return inserted, err
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(
		&c.ID,
		&c.AccountNumber,
		&c.Name,
		&c.Phone,
		&c.Email,
		&c.Address,
		&c.ServiceType,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
