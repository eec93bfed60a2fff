package periods

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

const periodColumns = `id, ledger_id, tenant_id, code, start_date, end_date, status, created_at, updated_at`

// Repository persists accounting periods.
type Repository interface {
	Save(ctx context.Context, period Period) (Period, error)
	FindByID(ctx context.Context, tenantID, periodID uuid.UUID) (Period, error)
	FindOpenByLedger(ctx context.Context, tenantID, ledgerID uuid.UUID) ([]Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed period repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, period Period) (Period, error) {
	return SaveTx(ctx, r.db, period)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SaveTx upserts the period through the given executor (pool or open tx).
func SaveTx(ctx context.Context, ex execer, period Period) (Period, error) {
	_, err := ex.Exec(ctx, `INSERT INTO accounting_periods (id, ledger_id, tenant_id, code, start_date, end_date, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, updated_at=EXCLUDED.updated_at`,
		period.ID, period.LedgerID, period.TenantID, period.Code, period.StartDate, period.EndDate, period.Status, period.CreatedAt, period.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Period{}, fmt.Errorf("periods: duplicate code %s for ledger: %w", period.Code, shared.ErrInvalidState)
		}
		return Period{}, fmt.Errorf("periods: save: %w", err)
	}
	return period, nil
}

func (r *repository) FindByID(ctx context.Context, tenantID, periodID uuid.UUID) (Period, error) {
	var p Period
	err := r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id=$1 AND tenant_id=$2`, periodID, tenantID).
		Scan(&p.ID, &p.LedgerID, &p.TenantID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, fmt.Errorf("periods: find: %w", err)
	}
	return p, nil
}

func (r *repository) FindOpenByLedger(ctx context.Context, tenantID, ledgerID uuid.UUID) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE ledger_id=$1 AND tenant_id=$2 AND status IN ('OPEN','FROZEN') ORDER BY end_date DESC`, ledgerID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("periods: list open: %w", err)
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.LedgerID, &p.TenantID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("periods: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetForUpdateTx loads the period inside the caller's transaction with a row
// lock. Posting and closing both take this lock, so a close cannot race a
// concurrent posting into the same period; callers must re-check Status after
// acquiring it.
func GetForUpdateTx(ctx context.Context, tx pgx.Tx, tenantID, periodID uuid.UUID) (Period, error) {
	var p Period
	err := tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, periodID, tenantID).
		Scan(&p.ID, &p.LedgerID, &p.TenantID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrPeriodNotFound
		}
		return Period{}, fmt.Errorf("periods: lock: %w", err)
	}
	return p, nil
}
