package coa

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

// Repository persists charts and their accounts.
type Repository interface {
	Save(ctx context.Context, chart Chart) (Chart, error)
	FindByID(ctx context.Context, tenantID, chartID uuid.UUID) (Chart, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed chart repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Save(ctx context.Context, chart Chart) (Chart, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Chart{}, fmt.Errorf("coa: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	saved, err := SaveTx(ctx, tx, chart)
	if err != nil {
		return Chart{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Chart{}, fmt.Errorf("coa: commit: %w", err)
	}
	return saved, nil
}

// SaveTx upserts the chart and its accounts inside the caller's transaction.
// The finance command handler uses this so account definitions commit
// atomically with the rest of the command.
func SaveTx(ctx context.Context, tx pgx.Tx, chart Chart) (Chart, error) {
	_, err := tx.Exec(ctx, `INSERT INTO charts_of_accounts (id, tenant_id, code, name, base_currency, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, updated_at=EXCLUDED.updated_at`,
		chart.ID, chart.TenantID, chart.Code, chart.Name, chart.BaseCurrency, chart.CreatedAt, chart.UpdatedAt)
	if err != nil {
		return Chart{}, fmt.Errorf("coa: save chart: %w", err)
	}
	for _, account := range chart.Accounts {
		_, err := tx.Exec(ctx, `INSERT INTO gl_accounts (id, chart_id, parent_id, code, name, type, currency, is_posting, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, updated_at=EXCLUDED.updated_at`,
			account.ID, chart.ID, account.ParentID, account.Code, account.Name, account.Type, account.Currency, account.IsPosting, account.CreatedAt, account.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return Chart{}, fmt.Errorf("%w: %s", shared.ErrDuplicateAccountCode, account.Code)
			}
			return Chart{}, fmt.Errorf("coa: save account %s: %w", account.Code, err)
		}
	}
	return chart, nil
}

func (r *repository) FindByID(ctx context.Context, tenantID, chartID uuid.UUID) (Chart, error) {
	return FindByIDTx(ctx, r.db, tenantID, chartID)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FindByIDTx loads a chart with all its accounts using the given querier,
// which may be a pool or an open transaction.
func FindByIDTx(ctx context.Context, q queryer, tenantID, chartID uuid.UUID) (Chart, error) {
	var chart Chart
	err := q.QueryRow(ctx, `SELECT id, tenant_id, code, name, base_currency, created_at, updated_at
FROM charts_of_accounts WHERE id=$1 AND tenant_id=$2`, chartID, tenantID).
		Scan(&chart.ID, &chart.TenantID, &chart.Code, &chart.Name, &chart.BaseCurrency, &chart.CreatedAt, &chart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Chart{}, shared.ErrChartNotFound
		}
		return Chart{}, fmt.Errorf("coa: find chart: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT id, parent_id, code, name, type, currency, is_posting, created_at, updated_at
FROM gl_accounts WHERE chart_id=$1 ORDER BY code ASC`, chartID)
	if err != nil {
		return Chart{}, fmt.Errorf("coa: load accounts: %w", err)
	}
	defer rows.Close()

	chart.Accounts = map[uuid.UUID]Account{}
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.ParentID, &a.Code, &a.Name, &a.Type, &a.Currency, &a.IsPosting, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return Chart{}, fmt.Errorf("coa: scan account: %w", err)
		}
		chart.Accounts[a.ID] = a
	}
	return chart, rows.Err()
}
