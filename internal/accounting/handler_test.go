package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/accounting/coa"
	"github.com/meridian-erp/meridian/internal/accounting/control"
	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/fx"
	"github.com/meridian-erp/meridian/internal/accounting/journals"
	"github.com/meridian-erp/meridian/internal/accounting/money"
	"github.com/meridian-erp/meridian/internal/accounting/periods"
	accshared "github.com/meridian-erp/meridian/internal/accounting/shared"
	"github.com/meridian-erp/meridian/internal/accounting/reports"
	"github.com/meridian-erp/meridian/internal/outbox"
	internalShared "github.com/meridian-erp/meridian/internal/shared"
)

type memoryJournalRepo struct {
	ledgers  map[uuid.UUID]journals.Ledger
	charts   map[uuid.UUID]coa.Chart
	periods  map[uuid.UUID]periods.Period
	journals map[uuid.UUID]journals.JournalEntry
	events   []outbox.Event
}

func newMemoryJournalRepo() *memoryJournalRepo {
	return &memoryJournalRepo{
		ledgers:  map[uuid.UUID]journals.Ledger{},
		charts:   map[uuid.UUID]coa.Chart{},
		periods:  map[uuid.UUID]periods.Period{},
		journals: map[uuid.UUID]journals.JournalEntry{},
	}
}

func (m *memoryJournalRepo) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryJournalRepo) InsertLedger(_ context.Context, ledger journals.Ledger) error {
	m.ledgers[ledger.ID] = ledger
	return nil
}

func (m *memoryJournalRepo) GetLedger(_ context.Context, tenantID, ledgerID uuid.UUID) (journals.Ledger, error) {
	ledger, ok := m.ledgers[ledgerID]
	if !ok || ledger.TenantID != tenantID {
		return journals.Ledger{}, accshared.ErrLedgerNotFound
	}
	return ledger, nil
}

func (m *memoryJournalRepo) GetChart(_ context.Context, tenantID, chartID uuid.UUID) (coa.Chart, error) {
	chart, ok := m.charts[chartID]
	if !ok || chart.TenantID != tenantID {
		return coa.Chart{}, accshared.ErrChartNotFound
	}
	return chart, nil
}

func (m *memoryJournalRepo) SaveChart(_ context.Context, chart coa.Chart) error {
	m.charts[chart.ID] = chart
	return nil
}

func (m *memoryJournalRepo) GetPeriodForUpdate(_ context.Context, tenantID, periodID uuid.UUID) (periods.Period, error) {
	period, ok := m.periods[periodID]
	if !ok || period.TenantID != tenantID {
		return periods.Period{}, accshared.ErrPeriodNotFound
	}
	return period, nil
}

func (m *memoryJournalRepo) SavePeriod(_ context.Context, period periods.Period) error {
	m.periods[period.ID] = period
	return nil
}

func (m *memoryJournalRepo) InsertJournal(_ context.Context, entry journals.JournalEntry) error {
	m.journals[entry.ID] = entry
	return nil
}

func (m *memoryJournalRepo) EnqueueEvent(_ context.Context, event outbox.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memoryJournalRepo) GetJournal(_ context.Context, tenantID, entryID uuid.UUID) (journals.JournalEntry, error) {
	entry, ok := m.journals[entryID]
	if !ok || entry.TenantID != tenantID {
		return journals.JournalEntry{}, accshared.ErrJournalNotFound
	}
	return entry, nil
}

func (m *memoryJournalRepo) ListJournals(_ context.Context, tenantID, ledgerID uuid.UUID, _ int) ([]journals.JournalEntry, error) {
	var entries []journals.JournalEntry
	for _, entry := range m.journals {
		if entry.TenantID == tenantID && entry.LedgerID == ledgerID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// chartReadFake and periodReadFake expose the journal repo's stores through
// the read-side repository interfaces.
type chartReadFake struct{ repo *memoryJournalRepo }

func (f chartReadFake) Save(_ context.Context, chart coa.Chart) (coa.Chart, error) {
	f.repo.charts[chart.ID] = chart
	return chart, nil
}

func (f chartReadFake) FindByID(ctx context.Context, tenantID, chartID uuid.UUID) (coa.Chart, error) {
	return f.repo.GetChart(ctx, tenantID, chartID)
}

type periodReadFake struct{ repo *memoryJournalRepo }

func (f periodReadFake) Save(_ context.Context, period periods.Period) (periods.Period, error) {
	f.repo.periods[period.ID] = period
	return period, nil
}

func (f periodReadFake) FindByID(ctx context.Context, tenantID, periodID uuid.UUID) (periods.Period, error) {
	return f.repo.GetPeriodForUpdate(ctx, tenantID, periodID)
}

func (f periodReadFake) FindOpenByLedger(_ context.Context, tenantID, ledgerID uuid.UUID) ([]periods.Period, error) {
	var out []periods.Period
	for _, period := range f.repo.periods {
		if period.TenantID != tenantID || period.LedgerID != ledgerID {
			continue
		}
		if period.Status == periods.StatusClosed {
			continue
		}
		out = append(out, period)
	}
	return out, nil
}

type noopChecker struct{}

func (noopChecker) ValidateAssignments(context.Context, uuid.UUID, time.Time, []dimensions.ValidationLine) error {
	return nil
}

type noopBlackouts struct{}

func (noopBlackouts) FindBlackoutsCovering(context.Context, uuid.UUID, uuid.UUID, time.Time) ([]dimensions.Blackout, error) {
	return nil, nil
}

type noopRates struct{}

func (noopRates) FindRate(_ context.Context, base, quote string, asOf time.Time) (money.ExchangeRate, bool, error) {
	if base == quote {
		rate, err := money.Identity(base, asOf)
		return rate, err == nil, err
	}
	return money.ExchangeRate{}, false, nil
}

type noopAudit struct{}

func (noopAudit) Record(context.Context, internalShared.AuditLog) error { return nil }

type memoryControlRepo struct {
	configs map[string][]control.Config
}

func controlKey(cfg control.Config) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", cfg.TenantID, cfg.CompanyCodeID, cfg.SubLedger, cfg.Category, cfg.DimensionKey)
}

func (m *memoryControlRepo) FindConfigs(_ context.Context, tenantID, companyCodeID uuid.UUID, subLedger control.SubLedger, category control.Category, dimensionKey string) ([]control.Config, error) {
	key := controlKey(control.Config{TenantID: tenantID, CompanyCodeID: companyCodeID, SubLedger: subLedger, Category: category, DimensionKey: dimensionKey})
	return m.configs[key], nil
}

func (m *memoryControlRepo) SaveConfig(_ context.Context, cfg control.Config) (control.Config, error) {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	key := controlKey(cfg)
	for i, existing := range m.configs[key] {
		if existing.Currency == cfg.Currency {
			m.configs[key][i] = cfg
			return cfg, nil
		}
	}
	m.configs[key] = append(m.configs[key], cfg)
	return cfg, nil
}

type memoryRateStore struct {
	rates []money.ExchangeRate
}

func (m *memoryRateStore) Insert(_ context.Context, rate money.ExchangeRate) error {
	m.rates = append(m.rates, rate)
	return nil
}

func (m *memoryRateStore) LatestBefore(_ context.Context, base, quote string, asOf time.Time) (money.ExchangeRate, bool, error) {
	var best money.ExchangeRate
	found := false
	for _, r := range m.rates {
		if r.Base != base || r.Quote != quote || r.AsOf.After(asOf) {
			continue
		}
		if !found || r.AsOf.After(best.AsOf) {
			best = r
			found = true
		}
	}
	return best, found, nil
}

type fixedReportsRepo struct {
	activity    []reports.AccountActivity
	currency    string
	lastFilters dimensions.Assignments
}

func (f *fixedReportsRepo) AccountActivity(_ context.Context, _, _, _ uuid.UUID, filters dimensions.Assignments) ([]reports.AccountActivity, error) {
	f.lastFilters = filters
	return f.activity, nil
}

func (f *fixedReportsRepo) DimensionActivity(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, dimensions.Type) ([]reports.DimensionActivity, error) {
	return nil, nil
}

func (f *fixedReportsRepo) LedgerBaseCurrency(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	return f.currency, nil
}

func (f *fixedReportsRepo) LedgerForCompanyCode(context.Context, uuid.UUID, uuid.UUID) (reports.LedgerRef, error) {
	return reports.LedgerRef{}, accshared.ErrLedgerNotFound
}

func (f *fixedReportsRepo) OpenPeriods(context.Context, uuid.UUID, uuid.UUID) ([]reports.PeriodRef, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memoryJournalRepo) {
	t.Helper()
	repo := newMemoryJournalRepo()
	journalSvc := journals.NewService(repo, noopChecker{}, noopBlackouts{}, noopRates{}, noopAudit{})
	controlSvc := control.NewService(&memoryControlRepo{configs: map[string][]control.Config{}})
	rateProvider := fx.NewProvider(&memoryRateStore{})
	reportSvc := reports.NewService(&fixedReportsRepo{
		currency: "USD",
		activity: []reports.AccountActivity{
			{AccountID: uuid.New(), Code: "4000", Name: "Revenue", Type: "REVENUE", CreditMinor: 150_00},
			{AccountID: uuid.New(), Code: "1000", Name: "Cash", Type: "ASSET", DebitMinor: 150_00},
		},
	})

	handler := NewHandler(HandlerParams{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Journals: journalSvc,
		Reports:  reportSvc,
		Control:  controlSvc,
		Rates:    rateProvider,
		Charts:   chartReadFake{repo},
		Periods:  periodReadFake{repo},
	})
	r := chi.NewRouter()
	handler.MountRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, repo
}

const testTenant = "0f0b9a52-6f23-4f69-9d3c-1a2b3c4d5e6f"

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set(tenantHeader, testTenant)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func seedLedger(t *testing.T) (string, map[string]string, string, string) {
	t.Helper()
	server, _ := newTestServer(t)

	_, chart := doJSON(t, http.MethodPost, server.URL+"/charts", map[string]any{
		"code": "MAIN", "name": "Main Chart", "baseCurrency": "USD",
	})
	chartID := chart["id"].(string)

	accountIDs := map[string]string{}
	for code, typ := range map[string]string{"1000": "ASSET", "4000": "REVENUE"} {
		_, account := doJSON(t, http.MethodPost, server.URL+"/charts/"+chartID+"/accounts", map[string]any{
			"code": code, "name": "Account " + code, "type": typ, "isPosting": true,
		})
		accountIDs[code] = account["id"].(string)
	}

	_, ledger := doJSON(t, http.MethodPost, server.URL+"/ledgers", map[string]any{
		"chartId": chartID, "name": "Primary", "baseCurrency": "USD",
	})
	ledgerID := ledger["id"].(string)

	_, period := doJSON(t, http.MethodPost, server.URL+"/ledgers/"+ledgerID+"/periods", map[string]any{
		"code":      "2026-03",
		"startDate": "2026-03-01T00:00:00Z",
		"endDate":   "2026-03-31T00:00:00Z",
	})
	return server.URL, accountIDs, ledgerID, period["id"].(string)
}

func TestMissingTenantHeaderRejected(t *testing.T) {
	server, _ := newTestServer(t)
	resp, err := http.Post(server.URL+"/charts", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostJournalOverHTTP(t *testing.T) {
	base, accounts, ledgerID, periodID := seedLedger(t)

	resp, body := doJSON(t, http.MethodPost, base+"/journals", map[string]any{
		"ledgerId": ledgerID,
		"periodId": periodID,
		"bookedAt": "2026-03-10T00:00:00Z",
		"lines": []map[string]any{
			{"accountId": accounts["1000"], "direction": "DEBIT", "amountMinor": 150_00},
			{"accountId": accounts["4000"], "direction": "CREDIT", "amountMinor": 150_00},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "POSTED", body["status"])
	require.NotEmpty(t, body["postedAt"])
	lines := body["lines"].([]any)
	require.Len(t, lines, 2)
	first := lines[0].(map[string]any)
	require.Equal(t, "USD", first["currency"])
	require.EqualValues(t, 150_00, first["amountMinor"])
}

func TestPostJournalUnbalancedRejected(t *testing.T) {
	base, accounts, ledgerID, periodID := seedLedger(t)

	resp, body := doJSON(t, http.MethodPost, base+"/journals", map[string]any{
		"ledgerId": ledgerID,
		"periodId": periodID,
		"bookedAt": "2026-03-10T00:00:00Z",
		"lines": []map[string]any{
			{"accountId": accounts["1000"], "direction": "DEBIT", "amountMinor": 150_00},
			{"accountId": accounts["4000"], "direction": "CREDIT", "amountMinor": 140_00},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "ERR_UNBALANCED", body["code"])
}

func TestFreezeBlocksPostingOverHTTP(t *testing.T) {
	base, accounts, ledgerID, periodID := seedLedger(t)

	resp, body := doJSON(t, http.MethodPost, base+"/periods/"+periodID+"/freeze", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "FROZEN", body["status"])

	resp, body = doJSON(t, http.MethodPost, base+"/journals", map[string]any{
		"ledgerId": ledgerID,
		"periodId": periodID,
		"bookedAt": "2026-03-10T00:00:00Z",
		"lines": []map[string]any{
			{"accountId": accounts["1000"], "direction": "DEBIT", "amountMinor": 100},
			{"accountId": accounts["4000"], "direction": "CREDIT", "amountMinor": 100},
		},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "ERR_PERIOD_CLOSED", body["code"])

	resp, body = doJSON(t, http.MethodPost, base+"/periods/"+periodID+"/reopen", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OPEN", body["status"])
}

func TestTrialBalanceOverHTTP(t *testing.T) {
	base, _, ledgerID, periodID := seedLedger(t)

	resp, body := doJSON(t, http.MethodGet, base+"/ledgers/"+ledgerID+"/periods/"+periodID+"/trial-balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "USD", body["currency"])
	require.EqualValues(t, 150_00, body["totalDebitsMinor"])
	require.EqualValues(t, 150_00, body["totalCreditsMinor"])
	lines := body["lines"].([]any)
	require.Len(t, lines, 2)
	require.Equal(t, "1000", lines[0].(map[string]any)["code"])
	require.Equal(t, "4000", lines[1].(map[string]any)["code"])
}

func TestGetChartWithAccountsOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	_, chart := doJSON(t, http.MethodPost, server.URL+"/charts", map[string]any{
		"code": "MAIN", "name": "Main Chart", "baseCurrency": "USD",
	})
	chartID := chart["id"].(string)
	for code, typ := range map[string]string{"4000": "REVENUE", "1000": "ASSET"} {
		doJSON(t, http.MethodPost, server.URL+"/charts/"+chartID+"/accounts", map[string]any{
			"code": code, "name": "Account " + code, "type": typ, "isPosting": true,
		})
	}

	resp, body := doJSON(t, http.MethodGet, server.URL+"/charts/"+chartID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "MAIN", body["chart"].(map[string]any)["code"])
	accounts := body["accounts"].([]any)
	require.Len(t, accounts, 2)
	// accounts come back sorted by code
	require.Equal(t, "1000", accounts[0].(map[string]any)["code"])
	require.Equal(t, "4000", accounts[1].(map[string]any)["code"])

	resp, body = doJSON(t, http.MethodGet, server.URL+"/charts/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "ERR_CHART_NOT_FOUND", body["code"])
}

func TestListOpenPeriodsOverHTTP(t *testing.T) {
	base, _, ledgerID, periodID := seedLedger(t)

	resp, body := doJSON(t, http.MethodGet, base+"/ledgers/"+ledgerID+"/periods", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := body["periods"].([]any)
	require.Len(t, listed, 1)
	require.Equal(t, periodID, listed[0].(map[string]any)["id"])

	// frozen periods still appear; closed ones drop out
	resp, _ = doJSON(t, http.MethodPost, base+"/periods/"+periodID+"/freeze", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = doJSON(t, http.MethodGet, base+"/ledgers/"+ledgerID+"/periods", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["periods"].([]any), 1)

	resp, _ = doJSON(t, http.MethodPost, base+"/periods/"+periodID+"/close", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = doJSON(t, http.MethodGet, base+"/ledgers/"+ledgerID+"/periods", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, body["periods"])
}

func TestTrialBalanceDimensionFilter(t *testing.T) {
	reportsRepo := &fixedReportsRepo{currency: "USD"}
	handler := NewHandler(HandlerParams{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Reports: reports.NewService(reportsRepo),
	})
	r := chi.NewRouter()
	handler.MountRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	base := server.URL + "/ledgers/" + uuid.NewString() + "/periods/" + uuid.NewString() + "/trial-balance"
	costCenter := uuid.New()

	resp, _ := doJSON(t, http.MethodGet, base+"?costCenterId="+costCenter.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, reportsRepo.lastFilters.CostCenterID)
	require.Equal(t, costCenter, *reportsRepo.lastFilters.CostCenterID)
	require.Nil(t, reportsRepo.lastFilters.ProjectID)

	resp, body := doJSON(t, http.MethodGet, base+"?projectId=not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "ERR_BAD_REQUEST", body["code"])
}

func TestControlAccountConfigureAndResolve(t *testing.T) {
	server, _ := newTestServer(t)
	companyCodeID := uuid.New().String()
	glAccountID := uuid.New().String()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/control-accounts", map[string]any{
		"companyCodeId": companyCodeID,
		"subLedger":     "AP",
		"category":      "PAYABLE",
		"glAccountId":   glAccountID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "DEFAULT", body["dimensionKey"])
	require.Equal(t, "ANY", body["currency"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/control-accounts/resolve", map[string]any{
		"companyCodeId": companyCodeID,
		"category":      "PAYABLE",
		"currency":      "USD",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, glAccountID, body["glAccountId"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/control-accounts/resolve", map[string]any{
		"companyCodeId": uuid.New().String(),
		"category":      "RECEIVABLE",
		"currency":      "USD",
	})
	require.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	require.Equal(t, "ERR_CONTROL_ACCOUNT_NOT_CONFIGURED", body["code"])
}

func TestExchangeRateUpload(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/exchange-rates", map[string]any{
		"base":  "EUR",
		"quote": "USD",
		"rate":  "1.0845",
		"asOf":  "2026-03-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "EUR", body["base"])
	require.Equal(t, "1.0845", body["rate"])

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/exchange-rates", map[string]any{
		"base":  "USD",
		"quote": "USD",
		"rate":  "1",
		"asOf":  "2026-03-01T00:00:00Z",
	})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
