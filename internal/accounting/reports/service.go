package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
)

// LedgerRef identifies the ledger a company code posts into.
type LedgerRef struct {
	ID           uuid.UUID
	Name         string
	BaseCurrency string
}

// PeriodRef is one postable period on a ledger.
type PeriodRef struct {
	ID        uuid.UUID
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Status    string
}

// LedgerContext pairs a company code's ledger with its postable periods,
// newest period first. Sub-ledger adapters use it to choose a posting target.
type LedgerContext struct {
	Ledger      LedgerRef
	OpenPeriods []PeriodRef
}

// Service is the finance query side.
type Service struct {
	repo Repository
}

// NewService wires the query service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TrialBalance builds the trial balance for one ledger and period, optionally
// restricted to journal lines matching the given dimension assignments. The
// ledger lookup and the activity aggregation are independent reads, so they
// run concurrently.
func (s *Service) TrialBalance(ctx context.Context, tenantID, ledgerID, periodID uuid.UUID, filters dimensions.Assignments) (TrialBalance, error) {
	var (
		currency string
		activity []AccountActivity
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		currency, err = s.repo.LedgerBaseCurrency(ctx, tenantID, ledgerID)
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = s.repo.AccountActivity(ctx, tenantID, ledgerID, periodID, filters)
		return err
	})
	if err := g.Wait(); err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(ledgerID, periodID, currency, activity), nil
}

// GLSummary groups period activity by a dimension type.
func (s *Service) GLSummary(ctx context.Context, tenantID, ledgerID, periodID uuid.UUID, dimensionType dimensions.Type) (GLSummary, error) {
	var (
		currency string
		activity []DimensionActivity
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		currency, err = s.repo.LedgerBaseCurrency(ctx, tenantID, ledgerID)
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = s.repo.DimensionActivity(ctx, tenantID, ledgerID, periodID, dimensionType)
		return err
	})
	if err := g.Wait(); err != nil {
		return GLSummary{}, err
	}
	return BuildGLSummary(ledgerID, periodID, string(dimensionType), currency, activity), nil
}

// LedgerForCompanyCode resolves the ledger linked to a company code together
// with the periods that still accept postings.
func (s *Service) LedgerForCompanyCode(ctx context.Context, tenantID, companyCodeID uuid.UUID) (LedgerContext, error) {
	ledger, err := s.repo.LedgerForCompanyCode(ctx, tenantID, companyCodeID)
	if err != nil {
		return LedgerContext{}, err
	}
	open, err := s.repo.OpenPeriods(ctx, tenantID, ledger.ID)
	if err != nil {
		return LedgerContext{}, err
	}
	return LedgerContext{Ledger: ledger, OpenPeriods: open}, nil
}
