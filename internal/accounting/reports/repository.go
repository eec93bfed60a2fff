package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// Repository runs the read-side aggregation queries.
type Repository interface {
	AccountActivity(ctx context.Context, tenantID, ledgerID, periodID uuid.UUID, filters dimensions.Assignments) ([]AccountActivity, error)
	DimensionActivity(ctx context.Context, tenantID, ledgerID, periodID uuid.UUID, dimensionType dimensions.Type) ([]DimensionActivity, error)
	LedgerBaseCurrency(ctx context.Context, tenantID, ledgerID uuid.UUID) (string, error)
	LedgerForCompanyCode(ctx context.Context, tenantID, companyCodeID uuid.UUID) (LedgerRef, error)
	OpenPeriods(ctx context.Context, tenantID, ledgerID uuid.UUID) ([]PeriodRef, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed reports repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// accountActivityQuery appends one journal-line equality predicate per
// assigned dimension filter.
func accountActivityQuery(tenantID, ledgerID, periodID uuid.UUID, filters dimensions.Assignments) (string, []any) {
	query := `SELECT a.id, a.code, a.name, a.type,
COALESCE(SUM(l.amount_minor) FILTER (WHERE l.direction = 'DEBIT'), 0),
COALESCE(SUM(l.amount_minor) FILTER (WHERE l.direction = 'CREDIT'), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN gl_accounts a ON a.id = l.account_id
WHERE e.tenant_id = $1 AND e.ledger_id = $2 AND e.period_id = $3 AND e.status = 'POSTED'`
	args := []any{tenantID, ledgerID, periodID}
	for _, t := range dimensions.AllTypes() {
		id := filters.Get(t)
		if id == nil {
			continue
		}
		column, err := dimensionColumn(t)
		if err != nil {
			continue
		}
		args = append(args, *id)
		query += fmt.Sprintf("\nAND l.%s = $%d", column, len(args))
	}
	query += `
GROUP BY a.id, a.code, a.name, a.type
ORDER BY a.code`
	return query, args
}

func (r *repository) AccountActivity(ctx context.Context, tenantID, ledgerID, periodID uuid.UUID, filters dimensions.Assignments) ([]AccountActivity, error) {
	query, args := accountActivityQuery(tenantID, ledgerID, periodID, filters)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reports: account activity: %w", err)
	}
	defer rows.Close()

	var activity []AccountActivity
	for rows.Next() {
		var a AccountActivity
		if err := rows.Scan(&a.AccountID, &a.Code, &a.Name, &a.Type, &a.DebitMinor, &a.CreditMinor); err != nil {
			return nil, fmt.Errorf("reports: scan account activity: %w", err)
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}

// dimensionColumn maps a dimension type to the journal_lines column holding
// its assignment. The switch is exhaustive over dimensions.AllTypes.
func dimensionColumn(t dimensions.Type) (string, error) {
	switch t {
	case dimensions.TypeCostCenter:
		return "cost_center_id", nil
	case dimensions.TypeProfitCenter:
		return "profit_center_id", nil
	case dimensions.TypeDepartment:
		return "department_id", nil
	case dimensions.TypeProject:
		return "project_id", nil
	case dimensions.TypeBusinessArea:
		return "business_area_id", nil
	default:
		return "", fmt.Errorf("reports: unknown dimension type %q", t)
	}
}

func (r *repository) DimensionActivity(ctx context.Context, tenantID, ledgerID, periodID uuid.UUID, dimensionType dimensions.Type) ([]DimensionActivity, error) {
	column, err := dimensionColumn(dimensionType)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT l.%[1]s, COALESCE(d.code, ''), COALESCE(d.name, ''),
COALESCE(SUM(l.amount_minor) FILTER (WHERE l.direction = 'DEBIT'), 0),
COALESCE(SUM(l.amount_minor) FILTER (WHERE l.direction = 'CREDIT'), 0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
LEFT JOIN accounting_dimensions d ON d.id = l.%[1]s
WHERE e.tenant_id = $1 AND e.ledger_id = $2 AND e.period_id = $3 AND e.status = 'POSTED'
GROUP BY l.%[1]s, d.code, d.name`, column)
	rows, err := r.db.Query(ctx, query, tenantID, ledgerID, periodID)
	if err != nil {
		return nil, fmt.Errorf("reports: dimension activity: %w", err)
	}
	defer rows.Close()

	var activity []DimensionActivity
	for rows.Next() {
		var a DimensionActivity
		if err := rows.Scan(&a.DimensionID, &a.Code, &a.Name, &a.DebitMinor, &a.CreditMinor); err != nil {
			return nil, fmt.Errorf("reports: scan dimension activity: %w", err)
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}

func (r *repository) LedgerForCompanyCode(ctx context.Context, tenantID, companyCodeID uuid.UUID) (LedgerRef, error) {
	var ref LedgerRef
	err := r.db.QueryRow(ctx, `SELECT l.id, l.name, l.base_currency
FROM ledgers l
JOIN company_code_ledgers cl ON cl.ledger_id = l.id
WHERE l.tenant_id = $1 AND cl.company_code_id = $2
ORDER BY l.created_at
LIMIT 1`, tenantID, companyCodeID).Scan(&ref.ID, &ref.Name, &ref.BaseCurrency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerRef{}, shared.ErrLedgerNotFound
		}
		return LedgerRef{}, fmt.Errorf("reports: ledger for company code: %w", err)
	}
	return ref, nil
}

func (r *repository) OpenPeriods(ctx context.Context, tenantID, ledgerID uuid.UUID) ([]PeriodRef, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, start_date, end_date, status
FROM accounting_periods
WHERE tenant_id = $1 AND ledger_id = $2 AND status IN ('OPEN','FROZEN')
ORDER BY end_date DESC`, tenantID, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("reports: open periods: %w", err)
	}
	defer rows.Close()

	var out []PeriodRef
	for rows.Next() {
		var p PeriodRef
		if err := rows.Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status); err != nil {
			return nil, fmt.Errorf("reports: scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) LedgerBaseCurrency(ctx context.Context, tenantID, ledgerID uuid.UUID) (string, error) {
	var currency string
	err := r.db.QueryRow(ctx, `SELECT base_currency FROM ledgers WHERE id=$1 AND tenant_id=$2`, ledgerID, tenantID).Scan(&currency)
	if err != nil {
		return "", fmt.Errorf("reports: ledger currency: %w", err)
	}
	return currency, nil
}
