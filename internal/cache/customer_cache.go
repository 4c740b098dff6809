// Package cache keeps recently looked-up customer records in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pioneer-isp/helpdesk/internal/domain"
)

const customerKeyPrefix = "helpdesk:customer:"

// CustomerCache is a read-through cache keyed by account number.
type CustomerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCustomerCache builds a cache on client. A non-positive ttl keeps entries for five minutes.
func NewCustomerCache(client *redis.Client, ttl time.Duration) *CustomerCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CustomerCache{client: client, ttl: ttl}
}

type cachedCustomer struct {
	ID            string    `json:"id"`
	AccountNumber string    `json:"account_number"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	ServiceType   string    `json:"service_type"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Get returns the cached customer; ok is false on a miss.
func (c *CustomerCache) Get(ctx context.Context, accountNumber string) (*domain.Customer, bool, error) {
	raw, err := c.client.Get(ctx, customerKeyPrefix+accountNumber).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry cachedCustomer
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, err
	}
	return &domain.Customer{
		ID:            entry.ID,
		AccountNumber: entry.AccountNumber,
		Name:          entry.Name,
		Phone:         entry.Phone,
		Email:         entry.Email,
		Address:       entry.Address,
		ServiceType:   entry.ServiceType,
		Notes:         entry.Notes,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}, true, nil
}

// Set stores customer under its account number.
func (c *CustomerCache) Set(ctx context.Context, customer *domain.Customer) error {
	data, err := json.Marshal(cachedCustomer{
		ID:            customer.ID,
		AccountNumber: customer.AccountNumber,
		Name:          customer.Name,
		Phone:         customer.Phone,
		Email:         customer.Email,
		Address:       customer.Address,
		ServiceType:   customer.ServiceType,
		Notes:         customer.Notes,
		CreatedAt:     customer.CreatedAt,
		UpdatedAt:     customer.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, customerKeyPrefix+customer.AccountNumber, data, c.ttl).Err()
}

// Invalidate drops the entry for accountNumber.
func (c *CustomerCache) Invalidate(ctx context.Context, accountNumber string) error {
	return c.client.Del(ctx, customerKeyPrefix+accountNumber).Err()
}
