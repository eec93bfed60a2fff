package money

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

func TestNewValidatesCurrency(t *testing.T) {
	m, err := New(150_00, "usd")
	require.NoError(t, err)
	require.Equal(t, "USD", m.Currency)
	require.Equal(t, int64(150_00), m.AmountMinor)

	_, err = New(1, "US")
	require.ErrorIs(t, err, shared.ErrCurrencyMismatch)
	_, err = New(1, "DOLLAR")
	require.ErrorIs(t, err, shared.ErrCurrencyMismatch)
}

func TestArithmeticRejectsMixedCurrencies(t *testing.T) {
	usd := MustNew(100, "USD")
	eur := MustNew(100, "EUR")

	_, err := usd.Add(eur)
	require.ErrorIs(t, err, shared.ErrCurrencyMismatch)
	_, err = usd.Sub(eur)
	require.ErrorIs(t, err, shared.ErrCurrencyMismatch)
	_, err = usd.Cmp(eur)
	require.ErrorIs(t, err, shared.ErrCurrencyMismatch)

	sum, err := usd.Add(MustNew(50, "USD"))
	require.NoError(t, err)
	require.Equal(t, int64(150), sum.AmountMinor)
}

func TestNegAbsZero(t *testing.T) {
	m := MustNew(-75, "USD")
	require.False(t, m.IsPositive())
	require.Equal(t, int64(75), m.Abs().AmountMinor)
	require.Equal(t, int64(75), m.Neg().AmountMinor)

	z, err := Zero("EUR")
	require.NoError(t, err)
	require.True(t, z.IsZero())
}

func TestBucketsBalancePerCurrency(t *testing.T) {
	debits := Buckets{}
	credits := Buckets{}
	debits.Add(MustNew(100, "USD"))
	debits.Add(MustNew(200, "EUR"))
	credits.Add(MustNew(100, "USD"))
	credits.Add(MustNew(200, "EUR"))
	require.True(t, debits.Equal(credits))

	// aggregate totals match but currencies are swapped
	swapped := Buckets{}
	swapped.Add(MustNew(200, "USD"))
	swapped.Add(MustNew(100, "EUR"))
	require.False(t, debits.Equal(swapped))

	require.Equal(t, []string{"EUR", "USD"}, debits.Currencies())
}
