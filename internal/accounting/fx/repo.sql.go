package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/accounting/money"
)

type sqlStore struct {
	db *pgxpool.Pool
}

// NewStore returns the pgx-backed rate store.
func NewStore(db *pgxpool.Pool) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Insert(ctx context.Context, rate money.ExchangeRate) error {
	_, err := s.db.Exec(ctx, `INSERT INTO exchange_rates (base_currency, quote_currency, rate, as_of)
VALUES ($1,$2,$3,$4)`, rate.Base, rate.Quote, rate.Rate.String(), rate.AsOf)
	if err != nil {
		return fmt.Errorf("fx: insert rate: %w", err)
	}
	return nil
}

func (s *sqlStore) LatestBefore(ctx context.Context, base, quote string, asOf time.Time) (money.ExchangeRate, bool, error) {
	var rateText string
	var at time.Time
	err := s.db.QueryRow(ctx, `SELECT rate, as_of FROM exchange_rates
WHERE base_currency=$1 AND quote_currency=$2 AND as_of <= $3
ORDER BY as_of DESC LIMIT 1`, base, quote, asOf).Scan(&rateText, &at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return money.ExchangeRate{}, false, nil
		}
		return money.ExchangeRate{}, false, fmt.Errorf("fx: latest rate: %w", err)
	}
	parsed, err := decimal.NewFromString(rateText)
	if err != nil {
		return money.ExchangeRate{}, false, fmt.Errorf("fx: parse stored rate %q: %w", rateText, err)
	}
	rate, err := money.NewExchangeRate(base, quote, parsed, at)
	if err != nil {
		return money.ExchangeRate{}, false, err
	}
	return rate, true, nil
}
