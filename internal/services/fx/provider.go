// Package fx resolves day-level GBP to ZAR exchange rates from an external
// source. The valuation and matching services only ever see the Provider
// interface, so they stay free of network concerns.
package fx

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"taxfolio/internal/domain"
)

// Provider returns the GBP to ZAR rate fixed on the given civil day.
type Provider interface {
	RateOn(ctx context.Context, day domain.CivilDate) (decimal.Decimal, error)
}

// Cache memoizes rates by calendar day in front of another provider. Failed
// lookups are not cached.
type Cache struct {
	mu    sync.Mutex
	inner Provider
	rates map[domain.CivilDate]decimal.Decimal
}

// NewCache wraps the provider with a per-day cache.
func NewCache(inner Provider) *Cache {
	return &Cache{inner: inner, rates: make(map[domain.CivilDate]decimal.Decimal)}
}

// RateOn returns the cached rate for the day, fetching it once when absent.
func (c *Cache) RateOn(ctx context.Context, day domain.CivilDate) (decimal.Decimal, error) {
	c.mu.Lock()
	if rate, ok := c.rates[day]; ok {
		c.mu.Unlock()
		return rate, nil
	}
	c.mu.Unlock()

	rate, err := c.inner.RateOn(ctx, day)
	if err != nil {
		return decimal.Decimal{}, err
	}

	c.mu.Lock()
	c.rates[day] = rate
	c.mu.Unlock()
	return rate, nil
}
