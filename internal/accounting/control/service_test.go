package control

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

type memoryConfigRepo struct {
	configs map[string][]Config
}

func newMemoryConfigRepo() *memoryConfigRepo {
	return &memoryConfigRepo{configs: map[string][]Config{}}
}

func (m *memoryConfigRepo) key(tenantID, companyCodeID uuid.UUID, subLedger SubLedger, category Category, dimensionKey string) string {
	return tenantID.String() + "|" + companyCodeID.String() + "|" + string(subLedger) + "|" + string(category) + "|" + dimensionKey
}

func (m *memoryConfigRepo) FindConfigs(_ context.Context, tenantID, companyCodeID uuid.UUID, subLedger SubLedger, category Category, dimensionKey string) ([]Config, error) {
	return m.configs[m.key(tenantID, companyCodeID, subLedger, category, dimensionKey)], nil
}

func (m *memoryConfigRepo) SaveConfig(_ context.Context, cfg Config) (Config, error) {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	key := m.key(cfg.TenantID, cfg.CompanyCodeID, cfg.SubLedger, cfg.Category, cfg.DimensionKey)
	for i, existing := range m.configs[key] {
		if existing.Currency == cfg.Currency {
			m.configs[key][i] = cfg
			return cfg, nil
		}
	}
	m.configs[key] = append(m.configs[key], cfg)
	return cfg, nil
}

func TestDimensionKeySortsSegments(t *testing.T) {
	costCenter := uuid.New()
	project := uuid.New()
	key := DimensionKey(dimensions.Assignments{CostCenterID: &costCenter, ProjectID: &project})
	alt := DimensionKey(dimensions.Assignments{ProjectID: &project, CostCenterID: &costCenter})
	require.Equal(t, key, alt)
	require.Contains(t, key, "COSTCENTER:")
	require.Contains(t, key, "PROJECT:")

	require.Equal(t, DefaultDimensionKey, DimensionKey(dimensions.Assignments{}))
}

func TestResolvePrefersExactDimensionAndCurrency(t *testing.T) {
	repo := newMemoryConfigRepo()
	svc := NewService(repo)
	tenantID := uuid.New()
	companyID := uuid.New()
	costCenter := uuid.New()
	assignments := dimensions.Assignments{CostCenterID: &costCenter}

	exactAccount := uuid.New()
	defaultAccount := uuid.New()

	_, err := svc.Configure(context.Background(), Config{
		TenantID: tenantID, CompanyCodeID: companyID,
		SubLedger: SubLedgerAP, Category: CategoryPayable,
		DimensionKey: DimensionKey(assignments), Currency: "EUR",
		GLAccountID: exactAccount,
	})
	require.NoError(t, err)
	_, err = svc.Configure(context.Background(), Config{
		TenantID: tenantID, CompanyCodeID: companyID,
		SubLedger: SubLedgerAP, Category: CategoryPayable,
		GLAccountID: defaultAccount,
	})
	require.NoError(t, err)

	got, err := svc.ResolvePayablesAccount(context.Background(), tenantID, companyID, assignments, "EUR")
	require.NoError(t, err)
	require.Equal(t, exactAccount, got)

	got, err = svc.ResolvePayablesAccount(context.Background(), tenantID, companyID, dimensions.Assignments{}, "USD")
	require.NoError(t, err)
	require.Equal(t, defaultAccount, got)
}

func TestResolveCurrencyMismatchDoesNotFallThrough(t *testing.T) {
	repo := newMemoryConfigRepo()
	svc := NewService(repo)
	tenantID := uuid.New()
	companyID := uuid.New()
	costCenter := uuid.New()
	assignments := dimensions.Assignments{CostCenterID: &costCenter}

	// The cost-center combination is mapped in EUR only; the company default
	// accepts any currency.
	_, err := svc.Configure(context.Background(), Config{
		TenantID: tenantID, CompanyCodeID: companyID,
		SubLedger: SubLedgerAP, Category: CategoryPayable,
		DimensionKey: DimensionKey(assignments), Currency: "EUR",
		GLAccountID: uuid.New(),
	})
	require.NoError(t, err)
	_, err = svc.Configure(context.Background(), Config{
		TenantID: tenantID, CompanyCodeID: companyID,
		SubLedger: SubLedgerAP, Category: CategoryPayable,
		GLAccountID: uuid.New(),
	})
	require.NoError(t, err)

	// A USD request against the EUR-only combination must fail, not resolve
	// through the default mapping.
	_, err = svc.ResolvePayablesAccount(context.Background(), tenantID, companyID, assignments, "USD")
	require.ErrorIs(t, err, shared.ErrCurrencyMismatch)
}

func TestResolveAnyCurrencyMappingOnSameRungWins(t *testing.T) {
	repo := newMemoryConfigRepo()
	svc := NewService(repo)
	tenantID := uuid.New()
	companyID := uuid.New()
	costCenter := uuid.New()
	assignments := dimensions.Assignments{CostCenterID: &costCenter}
	agnosticAccount := uuid.New()

	_, err := svc.Configure(context.Background(), Config{
		TenantID: tenantID, CompanyCodeID: companyID,
		SubLedger: SubLedgerAP, Category: CategoryPayable,
		DimensionKey: DimensionKey(assignments), Currency: "EUR",
		GLAccountID: uuid.New(),
	})
	require.NoError(t, err)
	_, err = svc.Configure(context.Background(), Config{
		TenantID: tenantID, CompanyCodeID: companyID,
		SubLedger: SubLedgerAP, Category: CategoryPayable,
		DimensionKey: DimensionKey(assignments),
		GLAccountID:  agnosticAccount,
	})
	require.NoError(t, err)

	got, err := svc.ResolvePayablesAccount(context.Background(), tenantID, companyID, assignments, "USD")
	require.NoError(t, err)
	require.Equal(t, agnosticAccount, got)
}

func TestResolveFallsBackToAnyCurrency(t *testing.T) {
	repo := newMemoryConfigRepo()
	svc := NewService(repo)
	tenantID := uuid.New()
	companyID := uuid.New()
	account := uuid.New()

	_, err := svc.Configure(context.Background(), Config{
		TenantID: tenantID, CompanyCodeID: companyID,
		SubLedger: SubLedgerAR, Category: CategoryReceivable,
		DimensionKey: DefaultDimensionKey, Currency: AnyCurrency,
		GLAccountID: account,
	})
	require.NoError(t, err)

	got, err := svc.ResolveReceivablesAccount(context.Background(), tenantID, companyID, dimensions.Assignments{}, "JPY")
	require.NoError(t, err)
	require.Equal(t, account, got)
}

func TestResolveNotConfigured(t *testing.T) {
	svc := NewService(newMemoryConfigRepo())
	_, err := svc.ResolvePayablesAccount(context.Background(), uuid.New(), uuid.New(), dimensions.Assignments{}, "USD")
	require.ErrorIs(t, err, shared.ErrControlAccountNotConfigured)
}

func TestResolveRejectsInvalidCurrency(t *testing.T) {
	svc := NewService(newMemoryConfigRepo())
	_, err := svc.ResolvePayablesAccount(context.Background(), uuid.New(), uuid.New(), dimensions.Assignments{}, "dollars")
	require.Error(t, err)
}
