package dimensions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// Repository persists the dimension model.
type Repository interface {
	SaveCompanyCode(ctx context.Context, cc CompanyCode) (CompanyCode, error)
	FindCompanyCode(ctx context.Context, tenantID, id uuid.UUID) (CompanyCode, error)
	ListCompanyCodes(ctx context.Context, tenantID uuid.UUID) ([]CompanyCode, error)

	SaveDimension(ctx context.Context, d Dimension) (Dimension, error)
	FindDimension(ctx context.Context, tenantID, id uuid.UUID) (Dimension, error)
	FindDimensionsByIDs(ctx context.Context, tenantID uuid.UUID, t Type, ids []uuid.UUID) (map[uuid.UUID]Dimension, error)
	ListDimensions(ctx context.Context, tenantID uuid.UUID, companyCodeID *uuid.UUID, t Type) ([]Dimension, error)

	SavePolicy(ctx context.Context, p Policy) (Policy, error)
	FindPolicies(ctx context.Context, tenantID uuid.UUID) ([]Policy, error)

	SaveVariant(ctx context.Context, v FiscalYearVariant) (FiscalYearVariant, error)
	SaveVariantAssignment(ctx context.Context, a VariantAssignment) error

	SaveBlackout(ctx context.Context, b Blackout) (Blackout, error)
	FindBlackoutsCovering(ctx context.Context, tenantID, ledgerID uuid.UUID, at time.Time) ([]Blackout, error)

	LinkLedger(ctx context.Context, companyCodeID, ledgerID uuid.UUID) error
	FindLedgersForCompanyCode(ctx context.Context, companyCodeID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed dimension repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) SaveCompanyCode(ctx context.Context, cc CompanyCode) (CompanyCode, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO company_codes (id, tenant_id, code, name, legal_entity_name, country_code, base_currency, timezone, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, legal_entity_name=EXCLUDED.legal_entity_name, status=EXCLUDED.status, updated_at=EXCLUDED.updated_at`,
		cc.ID, cc.TenantID, cc.Code, cc.Name, cc.LegalEntityName, cc.CountryCode, cc.BaseCurrency, cc.Timezone, cc.Status, cc.CreatedAt, cc.UpdatedAt)
	if err != nil {
		return CompanyCode{}, fmt.Errorf("dimensions: save company code: %w", err)
	}
	return cc, nil
}

func (r *repository) FindCompanyCode(ctx context.Context, tenantID, id uuid.UUID) (CompanyCode, error) {
	var cc CompanyCode
	err := r.db.QueryRow(ctx, `SELECT id, tenant_id, code, name, legal_entity_name, country_code, base_currency, timezone, status, created_at, updated_at
FROM company_codes WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&cc.ID, &cc.TenantID, &cc.Code, &cc.Name, &cc.LegalEntityName, &cc.CountryCode, &cc.BaseCurrency, &cc.Timezone, &cc.Status, &cc.CreatedAt, &cc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CompanyCode{}, shared.ErrCompanyCodeNotFound
		}
		return CompanyCode{}, fmt.Errorf("dimensions: find company code: %w", err)
	}
	return cc, nil
}

func (r *repository) ListCompanyCodes(ctx context.Context, tenantID uuid.UUID) ([]CompanyCode, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, code, name, legal_entity_name, country_code, base_currency, timezone, status, created_at, updated_at
FROM company_codes WHERE tenant_id=$1 ORDER BY code ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("dimensions: list company codes: %w", err)
	}
	defer rows.Close()
	var out []CompanyCode
	for rows.Next() {
		var cc CompanyCode
		if err := rows.Scan(&cc.ID, &cc.TenantID, &cc.Code, &cc.Name, &cc.LegalEntityName, &cc.CountryCode, &cc.BaseCurrency, &cc.Timezone, &cc.Status, &cc.CreatedAt, &cc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("dimensions: scan company code: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

const dimensionColumns = `id, tenant_id, company_code_id, type, code, name, description, parent_id, status, valid_from, valid_to, created_at, updated_at`

func (r *repository) SaveDimension(ctx context.Context, d Dimension) (Dimension, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO accounting_dimensions (id, tenant_id, company_code_id, type, code, name, description, parent_id, status, valid_from, valid_to, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description, parent_id=EXCLUDED.parent_id, status=EXCLUDED.status, valid_from=EXCLUDED.valid_from, valid_to=EXCLUDED.valid_to, updated_at=EXCLUDED.updated_at`,
		d.ID, d.TenantID, d.CompanyCodeID, d.Type, d.Code, d.Name, d.Description, d.ParentID, d.Status, d.ValidFrom, d.ValidTo, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return Dimension{}, fmt.Errorf("dimensions: save dimension: %w", err)
	}
	return d, nil
}

func (r *repository) FindDimension(ctx context.Context, tenantID, id uuid.UUID) (Dimension, error) {
	var d Dimension
	err := r.db.QueryRow(ctx, `SELECT `+dimensionColumns+` FROM accounting_dimensions WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&d.ID, &d.TenantID, &d.CompanyCodeID, &d.Type, &d.Code, &d.Name, &d.Description, &d.ParentID, &d.Status, &d.ValidFrom, &d.ValidTo, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dimension{}, shared.ErrDimensionNotFound
		}
		return Dimension{}, fmt.Errorf("dimensions: find dimension: %w", err)
	}
	return d, nil
}

func (r *repository) FindDimensionsByIDs(ctx context.Context, tenantID uuid.UUID, t Type, ids []uuid.UUID) (map[uuid.UUID]Dimension, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Dimension{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+dimensionColumns+` FROM accounting_dimensions
WHERE tenant_id=$1 AND type=$2 AND id = ANY($3)`, tenantID, t, ids)
	if err != nil {
		return nil, fmt.Errorf("dimensions: find by ids: %w", err)
	}
	defer rows.Close()
	out := make(map[uuid.UUID]Dimension, len(ids))
	for rows.Next() {
		var d Dimension
		if err := rows.Scan(&d.ID, &d.TenantID, &d.CompanyCodeID, &d.Type, &d.Code, &d.Name, &d.Description, &d.ParentID, &d.Status, &d.ValidFrom, &d.ValidTo, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("dimensions: scan dimension: %w", err)
		}
		out[d.ID] = d
	}
	return out, rows.Err()
}

func (r *repository) ListDimensions(ctx context.Context, tenantID uuid.UUID, companyCodeID *uuid.UUID, t Type) ([]Dimension, error) {
	rows, err := r.db.Query(ctx, `SELECT `+dimensionColumns+` FROM accounting_dimensions
WHERE tenant_id=$1 AND ($2 = '' OR type=$2) AND ($3::uuid IS NULL OR company_code_id=$3) ORDER BY code ASC`, tenantID, t, companyCodeID)
	if err != nil {
		return nil, fmt.Errorf("dimensions: list: %w", err)
	}
	defer rows.Close()
	var out []Dimension
	for rows.Next() {
		var d Dimension
		if err := rows.Scan(&d.ID, &d.TenantID, &d.CompanyCodeID, &d.Type, &d.Code, &d.Name, &d.Description, &d.ParentID, &d.Status, &d.ValidFrom, &d.ValidTo, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("dimensions: scan dimension: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) SavePolicy(ctx context.Context, p Policy) (Policy, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO account_dimension_policies (id, tenant_id, account_type, dimension_type, requirement, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (tenant_id, account_type, dimension_type) DO UPDATE SET requirement=EXCLUDED.requirement, updated_at=EXCLUDED.updated_at`,
		p.ID, p.TenantID, p.AccountType, p.DimensionType, p.Requirement, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Policy{}, fmt.Errorf("dimensions: save policy: %w", err)
	}
	return p, nil
}

func (r *repository) FindPolicies(ctx context.Context, tenantID uuid.UUID) ([]Policy, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, account_type, dimension_type, requirement, created_at, updated_at
FROM account_dimension_policies WHERE tenant_id=$1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("dimensions: find policies: %w", err)
	}
	defer rows.Close()
	var out []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.ID, &p.TenantID, &p.AccountType, &p.DimensionType, &p.Requirement, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("dimensions: scan policy: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) SaveVariant(ctx context.Context, v FiscalYearVariant) (FiscalYearVariant, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return FiscalYearVariant{}, fmt.Errorf("dimensions: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	_, err = tx.Exec(ctx, `INSERT INTO fiscal_year_variants (id, tenant_id, code, name, description, start_month, calendar_pattern, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description, updated_at=EXCLUDED.updated_at`,
		v.ID, v.TenantID, v.Code, v.Name, v.Description, v.StartMonth, v.CalendarPattern, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return FiscalYearVariant{}, fmt.Errorf("dimensions: save variant: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM fiscal_year_variant_periods WHERE variant_id=$1`, v.ID); err != nil {
		return FiscalYearVariant{}, fmt.Errorf("dimensions: reset variant periods: %w", err)
	}
	for _, p := range v.Periods {
		_, err := tx.Exec(ctx, `INSERT INTO fiscal_year_variant_periods (variant_id, period_number, label, length_in_days, adjustment)
VALUES ($1,$2,$3,$4,$5)`, v.ID, p.PeriodNumber, p.Label, p.LengthInDays, p.Adjustment)
		if err != nil {
			return FiscalYearVariant{}, fmt.Errorf("dimensions: save variant period: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return FiscalYearVariant{}, fmt.Errorf("dimensions: commit: %w", err)
	}
	return v, nil
}

func (r *repository) SaveVariantAssignment(ctx context.Context, a VariantAssignment) error {
	_, err := r.db.Exec(ctx, `INSERT INTO company_code_fiscal_year_variants (company_code_id, fiscal_year_variant_id, effective_from, effective_to)
VALUES ($1,$2,$3,$4)
ON CONFLICT (company_code_id, effective_from) DO UPDATE SET fiscal_year_variant_id=EXCLUDED.fiscal_year_variant_id, effective_to=EXCLUDED.effective_to`,
		a.CompanyCodeID, a.FiscalYearVariantID, a.EffectiveFrom, a.EffectiveTo)
	if err != nil {
		return fmt.Errorf("dimensions: save variant assignment: %w", err)
	}
	return nil
}

func (r *repository) SaveBlackout(ctx context.Context, b Blackout) (Blackout, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO period_blackouts (id, tenant_id, company_code_id, period_code, blackout_start, blackout_end, status, reason, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET blackout_start=EXCLUDED.blackout_start, blackout_end=EXCLUDED.blackout_end, status=EXCLUDED.status, reason=EXCLUDED.reason, updated_at=EXCLUDED.updated_at`,
		b.ID, b.TenantID, b.CompanyCodeID, b.PeriodCode, b.BlackoutStart, b.BlackoutEnd, b.Status, b.Reason, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return Blackout{}, fmt.Errorf("dimensions: save blackout: %w", err)
	}
	return b, nil
}

func (r *repository) FindBlackoutsCovering(ctx context.Context, tenantID, ledgerID uuid.UUID, at time.Time) ([]Blackout, error) {
	rows, err := r.db.Query(ctx, `SELECT b.id, b.tenant_id, b.company_code_id, b.period_code, b.blackout_start, b.blackout_end, b.status, b.reason, b.created_at, b.updated_at
FROM period_blackouts b
JOIN company_code_ledgers l ON l.company_code_id = b.company_code_id
WHERE b.tenant_id=$1 AND l.ledger_id=$2 AND b.status=$3 AND b.blackout_start <= $4 AND b.blackout_end >= $4`,
		tenantID, ledgerID, BlackoutStatusActive, at)
	if err != nil {
		return nil, fmt.Errorf("dimensions: find blackouts: %w", err)
	}
	defer rows.Close()
	var out []Blackout
	for rows.Next() {
		var b Blackout
		if err := rows.Scan(&b.ID, &b.TenantID, &b.CompanyCodeID, &b.PeriodCode, &b.BlackoutStart, &b.BlackoutEnd, &b.Status, &b.Reason, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("dimensions: scan blackout: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) LinkLedger(ctx context.Context, companyCodeID, ledgerID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `INSERT INTO company_code_ledgers (company_code_id, ledger_id) VALUES ($1,$2)
ON CONFLICT DO NOTHING`, companyCodeID, ledgerID)
	if err != nil {
		return fmt.Errorf("dimensions: link ledger: %w", err)
	}
	return nil
}

func (r *repository) FindLedgersForCompanyCode(ctx context.Context, companyCodeID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT ledger_id FROM company_code_ledgers WHERE company_code_id=$1`, companyCodeID)
	if err != nil {
		return nil, fmt.Errorf("dimensions: ledgers for company code: %w", err)
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("dimensions: scan ledger id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
