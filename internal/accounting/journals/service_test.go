package journals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/accounting/coa"
	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/money"
	"github.com/meridian-erp/meridian/internal/accounting/periods"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
	"github.com/meridian-erp/meridian/internal/outbox"
	internalShared "github.com/meridian-erp/meridian/internal/shared"
)

type memoryRepo struct {
	ledgers  map[uuid.UUID]Ledger
	charts   map[uuid.UUID]coa.Chart
	periods  map[uuid.UUID]periods.Period
	journals map[uuid.UUID]JournalEntry
	events   []outbox.Event
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		ledgers:  map[uuid.UUID]Ledger{},
		charts:   map[uuid.UUID]coa.Chart{},
		periods:  map[uuid.UUID]periods.Period{},
		journals: map[uuid.UUID]JournalEntry{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) InsertLedger(_ context.Context, ledger Ledger) error {
	m.ledgers[ledger.ID] = ledger
	return nil
}

func (m *memoryRepo) GetLedger(_ context.Context, tenantID, ledgerID uuid.UUID) (Ledger, error) {
	ledger, ok := m.ledgers[ledgerID]
	if !ok || ledger.TenantID != tenantID {
		return Ledger{}, shared.ErrLedgerNotFound
	}
	return ledger, nil
}

func (m *memoryRepo) GetChart(_ context.Context, tenantID, chartID uuid.UUID) (coa.Chart, error) {
	chart, ok := m.charts[chartID]
	if !ok || chart.TenantID != tenantID {
		return coa.Chart{}, shared.ErrChartNotFound
	}
	return chart, nil
}

func (m *memoryRepo) SaveChart(_ context.Context, chart coa.Chart) error {
	m.charts[chart.ID] = chart
	return nil
}

func (m *memoryRepo) GetPeriodForUpdate(_ context.Context, tenantID, periodID uuid.UUID) (periods.Period, error) {
	period, ok := m.periods[periodID]
	if !ok || period.TenantID != tenantID {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return period, nil
}

func (m *memoryRepo) SavePeriod(_ context.Context, period periods.Period) error {
	m.periods[period.ID] = period
	return nil
}

func (m *memoryRepo) InsertJournal(_ context.Context, entry JournalEntry) error {
	m.journals[entry.ID] = entry
	return nil
}

func (m *memoryRepo) EnqueueEvent(_ context.Context, event outbox.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memoryRepo) GetJournal(_ context.Context, tenantID, entryID uuid.UUID) (JournalEntry, error) {
	entry, ok := m.journals[entryID]
	if !ok || entry.TenantID != tenantID {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return entry, nil
}

func (m *memoryRepo) ListJournals(_ context.Context, tenantID, ledgerID uuid.UUID, _ int) ([]JournalEntry, error) {
	var entries []JournalEntry
	for _, entry := range m.journals {
		if entry.TenantID == tenantID && entry.LedgerID == ledgerID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

type stubChecker struct {
	err   error
	seen  []dimensions.ValidationLine
	calls int
}

func (c *stubChecker) ValidateAssignments(_ context.Context, _ uuid.UUID, _ time.Time, lines []dimensions.ValidationLine) error {
	c.calls++
	c.seen = lines
	return c.err
}

type stubBlackouts struct {
	blackouts []dimensions.Blackout
}

func (b *stubBlackouts) FindBlackoutsCovering(_ context.Context, _, _ uuid.UUID, _ time.Time) ([]dimensions.Blackout, error) {
	return b.blackouts, nil
}

type stubRates struct {
	rates map[string]money.ExchangeRate
}

func (r *stubRates) FindRate(_ context.Context, base, quote string, _ time.Time) (money.ExchangeRate, bool, error) {
	if base == quote {
		rate, err := money.Identity(base, time.Time{})
		return rate, true, err
	}
	rate, ok := r.rates[base+"/"+quote]
	return rate, ok, nil
}

type recordingAudit struct {
	logs []internalShared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log internalShared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type fixture struct {
	svc       *Service
	repo      *memoryRepo
	checker   *stubChecker
	blackouts *stubBlackouts
	rates     *stubRates
	audit     *recordingAudit

	tenantID uuid.UUID
	ledger   Ledger
	period   periods.Period
	cash     coa.Account
	revenue  coa.Account
	summary  coa.Account
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tenantID := uuid.New()

	chart, err := coa.NewChart(tenantID, "MAIN", "Main chart", "USD", now)
	require.NoError(t, err)
	chart, cash, err := chart.DefineAccount(coa.DefineAccountInput{Code: "1000", Name: "Cash", Type: coa.AccountTypeAsset, IsPosting: true}, now)
	require.NoError(t, err)
	chart, revenue, err := chart.DefineAccount(coa.DefineAccountInput{Code: "4000", Name: "Revenue", Type: coa.AccountTypeRevenue, IsPosting: true}, now)
	require.NoError(t, err)
	chart, summary, err := chart.DefineAccount(coa.DefineAccountInput{Code: "9999", Name: "Summary", Type: coa.AccountTypeAsset, IsPosting: false}, now)
	require.NoError(t, err)

	ledger, err := NewLedger(tenantID, chart.ID, "Primary", "USD", now)
	require.NoError(t, err)
	period, err := periods.New(ledger.ID, tenantID, "2026-03",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC), now)
	require.NoError(t, err)

	repo := newMemoryRepo()
	repo.charts[chart.ID] = chart
	repo.ledgers[ledger.ID] = ledger
	repo.periods[period.ID] = period

	checker := &stubChecker{}
	blackouts := &stubBlackouts{}
	rates := &stubRates{rates: map[string]money.ExchangeRate{}}
	audit := &recordingAudit{}

	svc := NewService(repo, checker, blackouts, rates, audit)
	svc.WithNow(func() time.Time { return now })

	return &fixture{
		svc: svc, repo: repo, checker: checker, blackouts: blackouts, rates: rates, audit: audit,
		tenantID: tenantID, ledger: ledger, period: period,
		cash: cash, revenue: revenue, summary: summary, now: now,
	}
}

func (f *fixture) postingInput(lines ...LineInput) PostJournalInput {
	return PostJournalInput{
		TenantID: f.tenantID,
		LedgerID: f.ledger.ID,
		PeriodID: f.period.ID,
		BookedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Lines:    lines,
	}
}

func TestPostJournalBalancedSucceeds(t *testing.T) {
	f := newFixture(t)
	entry, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 150_00},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 150_00},
	))
	require.NoError(t, err)
	require.Equal(t, StatusPosted, entry.Status)
	require.NotNil(t, entry.PostedAt)
	require.Len(t, entry.Lines, 2)

	debits, credits := entry.Totals()
	require.Equal(t, int64(150_00), debits["USD"])
	require.Equal(t, int64(150_00), credits["USD"])

	require.Len(t, f.repo.events, 1)
	require.Equal(t, outbox.EventJournalPosted, f.repo.events[0].EventType)
	require.Equal(t, outbox.ChannelJournalEvents, f.repo.events[0].Channel)

	require.Len(t, f.audit.logs, 1)
	require.Equal(t, "journal.post", f.audit.logs[0].Action)
	require.Equal(t, 1, f.checker.calls)
}

func TestPostJournalUnbalancedRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 150_00},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 140_00},
	))
	require.ErrorIs(t, err, shared.ErrUnbalanced)
	require.Empty(t, f.repo.journals)
	require.Empty(t, f.repo.events)
}

func TestPostJournalSingleLineRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 150_00},
	))
	require.ErrorIs(t, err, shared.ErrTooFewLines)
}

func TestPostJournalNegativeAmountRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: -5},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: -5},
	))
	require.ErrorIs(t, err, shared.ErrNegativeAmount)
}

func TestPostJournalClosedPeriodRejected(t *testing.T) {
	f := newFixture(t)
	closed, _, err := f.repo.periods[f.period.ID].Close(f.now)
	require.NoError(t, err)
	f.repo.periods[f.period.ID] = closed

	_, err = f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 100},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 100},
	))
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestPostJournalDateOutsidePeriodRejected(t *testing.T) {
	f := newFixture(t)
	in := f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 100},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 100},
	)
	in.BookedAt = time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.PostJournal(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrDateOutOfRange)
}

func TestPostJournalNonPostingAccountRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.summary.ID, Direction: "DEBIT", AmountMinor: 100},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 100},
	))
	require.ErrorIs(t, err, shared.ErrNonPostingAccount)
}

func TestPostJournalUnknownAccountRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: uuid.New(), Direction: "DEBIT", AmountMinor: 100},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 100},
	))
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}

func TestPostJournalDimensionFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.checker.err = shared.ErrMissingDimension
	_, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 100},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 100},
	))
	require.ErrorIs(t, err, shared.ErrMissingDimension)
	require.Empty(t, f.repo.journals)
}

func TestPostJournalHeaderDimensionsMergeIntoLines(t *testing.T) {
	f := newFixture(t)
	headerCC := uuid.New()
	lineCC := uuid.New()
	in := f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 100},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 100, Dimensions: dimensions.Assignments{CostCenterID: &lineCC}},
	)
	in.HeaderDimensions = dimensions.Assignments{CostCenterID: &headerCC}

	_, err := f.svc.PostJournal(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, f.checker.seen, 2)
	require.Equal(t, headerCC, *f.checker.seen[0].Dimensions.CostCenterID)
	require.Equal(t, lineCC, *f.checker.seen[1].Dimensions.CostCenterID)
}

func TestPostJournalBlackoutBlocksPosting(t *testing.T) {
	f := newFixture(t)
	f.blackouts.blackouts = []dimensions.Blackout{{
		PeriodCode:    "2026-03",
		BlackoutStart: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		BlackoutEnd:   time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		Status:        dimensions.BlackoutStatusActive,
		Reason:        "month-end prep",
	}}
	_, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 100},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 100},
	))
	require.ErrorIs(t, err, shared.ErrBlackoutActive)
}

func TestPostJournalConvertsForeignCurrencyLines(t *testing.T) {
	f := newFixture(t)
	rate, err := money.NewExchangeRate("EUR", "USD", decimal.RequireFromString("1.10"), f.now)
	require.NoError(t, err)
	f.rates.rates["EUR/USD"] = rate

	entry, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 100_00, Currency: "EUR"},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 110_00},
	))
	require.NoError(t, err)
	require.Equal(t, int64(110_00), entry.Lines[0].Amount.AmountMinor)
	require.Equal(t, "USD", entry.Lines[0].Amount.Currency)
	require.Equal(t, int64(100_00), entry.Lines[0].OriginalAmount.AmountMinor)
	require.Equal(t, "EUR", entry.Lines[0].OriginalAmount.Currency)
}

func TestPostJournalMissingRateRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 100_00, Currency: "EUR"},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 110_00},
	))
	require.ErrorIs(t, err, shared.ErrRateNotFound)
}

func TestFreezeReopenCloseLifecycle(t *testing.T) {
	f := newFixture(t)
	action := PeriodActionInput{TenantID: f.tenantID, PeriodID: f.period.ID}

	frozen, err := f.svc.FreezePeriod(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, periods.StatusFrozen, frozen.Status)

	_, err = f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 100},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 100},
	))
	require.ErrorIs(t, err, shared.ErrPeriodClosed)

	reopened, err := f.svc.ReopenPeriod(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, periods.StatusOpen, reopened.Status)

	_, err = f.svc.PostJournal(context.Background(), f.postingInput(
		LineInput{AccountID: f.cash.ID, Direction: "DEBIT", AmountMinor: 100},
		LineInput{AccountID: f.revenue.ID, Direction: "CREDIT", AmountMinor: 100},
	))
	require.NoError(t, err)

	closed, err := f.svc.ClosePeriod(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, periods.StatusClosed, closed.Status)

	_, err = f.svc.ReopenPeriod(context.Background(), action)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = f.svc.ClosePeriod(context.Background(), action)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestClosePeriodFreezeOnly(t *testing.T) {
	f := newFixture(t)
	period, err := f.svc.ClosePeriod(context.Background(), PeriodActionInput{
		TenantID: f.tenantID, PeriodID: f.period.ID, FreezeOnly: true,
	})
	require.NoError(t, err)
	require.Equal(t, periods.StatusFrozen, period.Status)

	require.Len(t, f.repo.events, 1)
	require.Equal(t, outbox.EventPeriodFrozen, f.repo.events[0].EventType)
	require.Equal(t, outbox.ChannelPeriodEvents, f.repo.events[0].Channel)
}

func TestPeriodEventsCarryTransition(t *testing.T) {
	f := newFixture(t)
	action := PeriodActionInput{TenantID: f.tenantID, PeriodID: f.period.ID}

	_, err := f.svc.FreezePeriod(context.Background(), action)
	require.NoError(t, err)
	_, err = f.svc.ReopenPeriod(context.Background(), action)
	require.NoError(t, err)
	_, err = f.svc.ClosePeriod(context.Background(), action)
	require.NoError(t, err)

	require.Len(t, f.repo.events, 3)
	require.Equal(t, outbox.EventPeriodFrozen, f.repo.events[0].EventType)
	require.Equal(t, outbox.EventPeriodReopened, f.repo.events[1].EventType)
	require.Equal(t, outbox.EventPeriodClosed, f.repo.events[2].EventType)
}

func TestCreateLedgerRequiresChart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateLedger(context.Background(), CreateLedgerInput{
		TenantID: f.tenantID, ChartID: uuid.New(), Name: "Orphan", BaseCurrency: "USD",
	})
	require.ErrorIs(t, err, shared.ErrChartNotFound)
}

func TestDefineAccountThroughCommandHandler(t *testing.T) {
	f := newFixture(t)
	account, err := f.svc.DefineAccount(context.Background(), DefineAccountInput{
		TenantID: f.tenantID, ChartID: f.ledger.ChartOfAccountsID,
		Code: "5000", Name: "Rent expense", Type: "EXPENSE", IsPosting: true,
	})
	require.NoError(t, err)
	require.Equal(t, coa.AccountTypeExpense, account.Type)

	_, err = f.svc.DefineAccount(context.Background(), DefineAccountInput{
		TenantID: f.tenantID, ChartID: f.ledger.ChartOfAccountsID,
		Code: "5000", Name: "Duplicate", Type: "EXPENSE", IsPosting: true,
	})
	require.ErrorIs(t, err, shared.ErrDuplicateAccountCode)
}

func TestDraftBalancesPerCurrency(t *testing.T) {
	now := time.Now()
	lines := []Line{
		{AccountID: uuid.New(), Direction: Debit, Amount: money.MustNew(100, "USD"), OriginalAmount: money.MustNew(100, "USD")},
		{AccountID: uuid.New(), Direction: Credit, Amount: money.MustNew(100, "EUR"), OriginalAmount: money.MustNew(100, "EUR")},
	}
	_, err := Draft(uuid.New(), uuid.New(), uuid.New(), now, nil, nil, lines, now)
	require.ErrorIs(t, err, shared.ErrUnbalanced)

	lines = append(lines,
		Line{AccountID: uuid.New(), Direction: Credit, Amount: money.MustNew(100, "USD"), OriginalAmount: money.MustNew(100, "USD")},
		Line{AccountID: uuid.New(), Direction: Debit, Amount: money.MustNew(100, "EUR"), OriginalAmount: money.MustNew(100, "EUR")},
	)
	entry, err := Draft(uuid.New(), uuid.New(), uuid.New(), now, nil, nil, lines, now)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, entry.Status)
}

func TestPostIsIdempotentGuarded(t *testing.T) {
	now := time.Now()
	lines := []Line{
		{AccountID: uuid.New(), Direction: Debit, Amount: money.MustNew(100, "USD"), OriginalAmount: money.MustNew(100, "USD")},
		{AccountID: uuid.New(), Direction: Credit, Amount: money.MustNew(100, "USD"), OriginalAmount: money.MustNew(100, "USD")},
	}
	entry, err := Draft(uuid.New(), uuid.New(), uuid.New(), now, nil, nil, lines, now)
	require.NoError(t, err)
	posted, err := entry.Post(now)
	require.NoError(t, err)
	_, err = posted.Post(now)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
