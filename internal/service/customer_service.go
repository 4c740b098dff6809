package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/repository"
	apperrors "github.com/pioneer-isp/helpdesk/pkg/util/errorutil"
)

const customerSearchLimit = 20

// CustomerCache is an optional read-through cache keyed by account number.
type CustomerCache interface {
	Get(ctx context.Context, accountNumber string) (*domain.Customer, bool, error)
	Set(ctx context.Context, customer *domain.Customer) error
	Invalidate(ctx context.Context, accountNumber string) error
}

// CustomerService serves the customer prefill used when opening tickets and
// accepts upserts from the import side.
type CustomerService struct {
	store  repository.Store
	cache  CustomerCache
	logger *zap.Logger
}

// CustomerLookup is the prefill result. Matches counts name hits; the first by
// name is returned.
type CustomerLookup struct {
	Customer *domain.Customer
	Matches  int
}

// NewCustomerService constructs the service. cache may be nil.
func NewCustomerService(store repository.Store, cache CustomerCache, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{store: store, cache: cache, logger: logger}
}

// Lookup finds a customer by exact account number, or failing that by a
// case-insensitive name fragment.
func (s *CustomerService) Lookup(ctx context.Context, accountNumber, name string) (*CustomerLookup, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	name = strings.TrimSpace(name)
	if accountNumber == "" && name == "" {
		return nil, apperrors.NewValidationError("account or name required", nil)
	}

	if accountNumber != "" {
		customer, err := s.byAccount(ctx, accountNumber)
		if err == nil {
			return &CustomerLookup{Customer: customer, Matches: 1}, nil
		}
		if !apperrors.IsNoRows(err) || name == "" {
			return nil, notFoundAs(err, "customer", map[string]any{"account": accountNumber})
		}
	}

	matches, err := s.store.Repositories().Customers.SearchByName(ctx, name, customerSearchLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(matches) == 0 {
		return nil, apperrors.NewNotFound("customer", map[string]any{"name": name})
	}
	first := matches[0]
	return &CustomerLookup{Customer: &first, Matches: len(matches)}, nil
}

func (s *CustomerService) byAccount(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, accountNumber)
		if err != nil {
			s.logger.Warn("customer cache read failed", zap.String("account", accountNumber), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	customer, err := s.store.Repositories().Customers.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, customer); err != nil {
			s.logger.Warn("customer cache write failed", zap.String("account", accountNumber), zap.Error(err))
		}
	}
	return customer, nil
}

// Upsert inserts or merges a customer record. Blank fields never overwrite stored values.
func (s *CustomerService) Upsert(ctx context.Context, actor string, customer domain.Customer) (*domain.Customer, bool, error) {
	customer.AccountNumber = strings.TrimSpace(customer.AccountNumber)
	if customer.AccountNumber == "" {
		return nil, false, apperrors.NewValidationError("account number required", nil)
	}
	customer.Name = strings.TrimSpace(customer.Name)
	customer.Phone = strings.TrimSpace(customer.Phone)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.Address = strings.TrimSpace(customer.Address)
	customer.ServiceType = strings.TrimSpace(customer.ServiceType)
	customer.Notes = strings.TrimSpace(customer.Notes)

	inserted, err := s.store.Repositories().Customers.Upsert(ctx, &customer)
	if err != nil {
		return nil, false, apperrors.MapError(err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, customer.AccountNumber); err != nil {
			s.logger.Warn("customer cache invalidate failed", zap.String("account", customer.AccountNumber), zap.Error(err))
		}
	}
	s.logger.Info("customer upserted",
		zap.String("actor", actor),
		zap.String("account", customer.AccountNumber),
		zap.Bool("inserted", inserted))
	return &customer, inserted, nil
}
