package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

type stubRepo struct {
	currency string
	activity []AccountActivity
	ledger   LedgerRef
	periods  []PeriodRef
	noLedger bool
	filters  dimensions.Assignments
}

func (s *stubRepo) AccountActivity(_ context.Context, _, _, _ uuid.UUID, filters dimensions.Assignments) ([]AccountActivity, error) {
	s.filters = filters
	return s.activity, nil
}

func (s *stubRepo) DimensionActivity(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, dimensions.Type) ([]DimensionActivity, error) {
	return nil, nil
}

func (s *stubRepo) LedgerBaseCurrency(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	return s.currency, nil
}

func (s *stubRepo) LedgerForCompanyCode(context.Context, uuid.UUID, uuid.UUID) (LedgerRef, error) {
	if s.noLedger {
		return LedgerRef{}, shared.ErrLedgerNotFound
	}
	return s.ledger, nil
}

func (s *stubRepo) OpenPeriods(context.Context, uuid.UUID, uuid.UUID) ([]PeriodRef, error) {
	return s.periods, nil
}

func TestTrialBalanceCarriesLedgerCurrency(t *testing.T) {
	svc := NewService(&stubRepo{
		currency: "EUR",
		activity: []AccountActivity{
			{AccountID: uuid.New(), Code: "1000", DebitMinor: 10_00},
			{AccountID: uuid.New(), Code: "4000", CreditMinor: 10_00},
		},
	})

	tb, err := svc.TrialBalance(context.Background(), uuid.New(), uuid.New(), uuid.New(), dimensions.Assignments{})
	require.NoError(t, err)
	require.Equal(t, "EUR", tb.Currency)
	require.Len(t, tb.Lines, 2)
	require.Equal(t, tb.TotalDebitsMinor, tb.TotalCreditsMinor)
}

func TestTrialBalancePassesDimensionFilters(t *testing.T) {
	repo := &stubRepo{currency: "USD"}
	svc := NewService(repo)
	costCenter := uuid.New()

	_, err := svc.TrialBalance(context.Background(), uuid.New(), uuid.New(), uuid.New(),
		dimensions.Assignments{CostCenterID: &costCenter})
	require.NoError(t, err)
	require.NotNil(t, repo.filters.CostCenterID)
	require.Equal(t, costCenter, *repo.filters.CostCenterID)
}

func TestAccountActivityQueryAddsFilterPredicates(t *testing.T) {
	costCenter := uuid.New()
	project := uuid.New()

	query, args := accountActivityQuery(uuid.New(), uuid.New(), uuid.New(), dimensions.Assignments{
		CostCenterID: &costCenter,
		ProjectID:    &project,
	})

	require.Len(t, args, 5)
	require.Contains(t, query, "l.cost_center_id = $4")
	require.Contains(t, query, "l.project_id = $5")
	require.Contains(t, query, "ORDER BY a.code")

	query, args = accountActivityQuery(uuid.New(), uuid.New(), uuid.New(), dimensions.Assignments{})
	require.Len(t, args, 3)
	require.NotContains(t, query, "$4")
}

func TestLedgerForCompanyCode(t *testing.T) {
	ledgerID := uuid.New()
	svc := NewService(&stubRepo{
		ledger: LedgerRef{ID: ledgerID, Name: "Primary Ledger", BaseCurrency: "USD"},
		periods: []PeriodRef{
			{ID: uuid.New(), Code: "2026-04", EndDate: time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), Status: "OPEN"},
			{ID: uuid.New(), Code: "2026-03", EndDate: time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), Status: "FROZEN"},
		},
	})

	lc, err := svc.LedgerForCompanyCode(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, ledgerID, lc.Ledger.ID)
	require.Len(t, lc.OpenPeriods, 2)
	require.Equal(t, "2026-04", lc.OpenPeriods[0].Code)
}

func TestLedgerForCompanyCodeUnlinked(t *testing.T) {
	svc := NewService(&stubRepo{noLedger: true})

	_, err := svc.LedgerForCompanyCode(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, shared.ErrLedgerNotFound)
}
