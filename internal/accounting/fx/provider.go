// Package fx supplies exchange rates to subsidiary ledgers and the
// revaluation job. Rates are stored per currency pair with an as-of instant;
// lookups return the most recent rate not newer than the requested instant.
package fx

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian/internal/accounting/money"
)

// Store persists configured exchange rates.
type Store interface {
	Insert(ctx context.Context, rate money.ExchangeRate) error
	LatestBefore(ctx context.Context, base, quote string, asOf time.Time) (money.ExchangeRate, bool, error)
}

// Provider resolves exchange rates for currency pairs.
type Provider struct {
	store Store
}

// NewProvider wraps a rate store.
func NewProvider(store Store) *Provider {
	return &Provider{store: store}
}

// FindRate returns the identity rate when base == quote, otherwise the
// latest stored rate with asOf' <= asOf. The bool result is false when no
// rate is configured for the pair.
func (p *Provider) FindRate(ctx context.Context, base, quote string, asOf time.Time) (money.ExchangeRate, bool, error) {
	baseNorm, err := money.NormalizeCurrency(base)
	if err != nil {
		return money.ExchangeRate{}, false, err
	}
	quoteNorm, err := money.NormalizeCurrency(quote)
	if err != nil {
		return money.ExchangeRate{}, false, err
	}
	if baseNorm == quoteNorm {
		rate, err := money.Identity(baseNorm, asOf)
		if err != nil {
			return money.ExchangeRate{}, false, err
		}
		return rate, true, nil
	}
	return p.store.LatestBefore(ctx, baseNorm, quoteNorm, asOf)
}

// PutRate stores a new rate observation.
func (p *Provider) PutRate(ctx context.Context, rate money.ExchangeRate) error {
	if rate.Base == rate.Quote {
		return fmt.Errorf("fx: identity pairs are implicit, refusing to store %s/%s", rate.Base, rate.Quote)
	}
	return p.store.Insert(ctx, rate)
}
