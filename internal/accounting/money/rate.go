package money

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// invertScale is the precision used when deriving the reciprocal rate.
const invertScale = 12

// ExchangeRate converts amounts from Base into Quote currency.
type ExchangeRate struct {
	Base  string
	Quote string
	Rate  decimal.Decimal
	AsOf  time.Time
}

// NewExchangeRate validates currencies and the rate (strictly positive).
func NewExchangeRate(base, quote string, rate decimal.Decimal, asOf time.Time) (ExchangeRate, error) {
	baseNorm, err := NormalizeCurrency(base)
	if err != nil {
		return ExchangeRate{}, err
	}
	quoteNorm, err := NormalizeCurrency(quote)
	if err != nil {
		return ExchangeRate{}, err
	}
	if !rate.IsPositive() {
		return ExchangeRate{}, fmt.Errorf("money: rate must be positive, got %s", rate)
	}
	return ExchangeRate{Base: baseNorm, Quote: quoteNorm, Rate: rate, AsOf: asOf}, nil
}

// Identity returns the 1.0 rate for a currency onto itself.
func Identity(code string, asOf time.Time) (ExchangeRate, error) {
	normalized, err := NormalizeCurrency(code)
	if err != nil {
		return ExchangeRate{}, err
	}
	return ExchangeRate{Base: normalized, Quote: normalized, Rate: decimal.NewFromInt(1), AsOf: asOf}, nil
}

// Convert translates an amount denominated in Base into Quote, rounding
// half-up to whole minor units.
func (r ExchangeRate) Convert(amount Money) (Money, error) {
	if amount.Currency != r.Base {
		return Money{}, fmt.Errorf("%w: amount %s, rate base %s", shared.ErrCurrencyMismatch, amount.Currency, r.Base)
	}
	converted := decimal.NewFromInt(amount.AmountMinor).Mul(r.Rate).Round(0)
	return Money{AmountMinor: converted.IntPart(), Currency: r.Quote}, nil
}

// Invert derives the Quote->Base rate at 12-digit precision, half-up.
func (r ExchangeRate) Invert() ExchangeRate {
	return ExchangeRate{
		Base:  r.Quote,
		Quote: r.Base,
		Rate:  decimal.NewFromInt(1).DivRound(r.Rate, invertScale),
		AsOf:  r.AsOf,
	}
}
