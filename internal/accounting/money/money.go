// Package money implements fixed-point monetary values in integer minor
// units. Amounts never touch floating point; arithmetic across currencies is
// rejected rather than silently converted.
package money

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/currency"

	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// Money is an amount in minor units (cents) of a single ISO-4217 currency.
type Money struct {
	AmountMinor int64
	Currency    string
}

// New validates the currency code and returns the value.
func New(amountMinor int64, code string) (Money, error) {
	normalized, err := NormalizeCurrency(code)
	if err != nil {
		return Money{}, err
	}
	return Money{AmountMinor: amountMinor, Currency: normalized}, nil
}

// MustNew is New for compile-time constants in tests and seeds.
func MustNew(amountMinor int64, code string) Money {
	m, err := New(amountMinor, code)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the zero amount in the given currency.
func Zero(code string) (Money, error) {
	return New(0, code)
}

// NormalizeCurrency upper-cases and validates an ISO-4217 code.
func NormalizeCurrency(code string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if _, err := currency.ParseISO(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid currency %q", shared.ErrCurrencyMismatch, code)
	}
	return trimmed, nil
}

// Add returns m + other, failing on mixed currencies.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{AmountMinor: m.AmountMinor + other.AmountMinor, Currency: m.Currency}, nil
}

// Sub returns m - other, failing on mixed currencies.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{AmountMinor: m.AmountMinor - other.AmountMinor, Currency: m.Currency}, nil
}

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return Money{AmountMinor: -m.AmountMinor, Currency: m.Currency}
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	if m.AmountMinor < 0 {
		return m.Neg()
	}
	return m
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.AmountMinor == 0
}

// IsPositive reports whether the amount is strictly positive.
func (m Money) IsPositive() bool {
	return m.AmountMinor > 0
}

// Cmp compares two amounts of the same currency.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.AmountMinor < other.AmountMinor:
		return -1, nil
	case m.AmountMinor > other.AmountMinor:
		return 1, nil
	default:
		return 0, nil
	}
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.AmountMinor, m.Currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return fmt.Errorf("%w: %s vs %s", shared.ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return nil
}

// Buckets accumulates raw minor-unit totals keyed by currency. The journal
// balance check uses one bucket pair per currency so multi-currency entries
// must balance within each currency, not just in aggregate.
type Buckets map[string]int64

// Add accumulates an amount into its currency bucket.
func (b Buckets) Add(m Money) {
	b[m.Currency] += m.AmountMinor
}

// Currencies returns the bucket keys in sorted order.
func (b Buckets) Currencies() []string {
	out := make([]string, 0, len(b))
	for c := range b {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both bucket sets carry identical totals per currency.
func (b Buckets) Equal(other Buckets) bool {
	if len(b) != len(other) {
		return false
	}
	for c, v := range b {
		if other[c] != v {
			return false
		}
	}
	return true
}
