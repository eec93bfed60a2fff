package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/accounting/coa"
	"github.com/meridian-erp/meridian/internal/accounting/periods"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
	"github.com/meridian-erp/meridian/internal/outbox"
)

const ledgerColumns = `id, tenant_id, name, chart_id, base_currency, created_at, updated_at`

// Repository encapsulates storage for ledgers and journal entries. Posting
// and period commands run through WithTx so the period lock, the journal
// rows and the outbox event commit together.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetLedger(ctx context.Context, tenantID, ledgerID uuid.UUID) (Ledger, error)
	GetJournal(ctx context.Context, tenantID, entryID uuid.UUID) (JournalEntry, error)
	ListJournals(ctx context.Context, tenantID, ledgerID uuid.UUID, limit int) ([]JournalEntry, error)
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	InsertLedger(ctx context.Context, ledger Ledger) error
	GetLedger(ctx context.Context, tenantID, ledgerID uuid.UUID) (Ledger, error)
	GetChart(ctx context.Context, tenantID, chartID uuid.UUID) (coa.Chart, error)
	SaveChart(ctx context.Context, chart coa.Chart) error
	GetPeriodForUpdate(ctx context.Context, tenantID, periodID uuid.UUID) (periods.Period, error)
	SavePeriod(ctx context.Context, period periods.Period) error
	InsertJournal(ctx context.Context, entry JournalEntry) error
	EnqueueEvent(ctx context.Context, event outbox.Event) error
}

type repository struct {
	db     *pgxpool.Pool
	outbox outbox.Repository
}

// NewRepository returns the pgx-backed journals repository.
func NewRepository(db *pgxpool.Pool, ob outbox.Repository) Repository {
	return &repository{db: db, outbox: ob}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("journals: begin tx: %w", err)
	}
	wrapper := &txRepository{tx: tx, outbox: r.outbox}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) GetLedger(ctx context.Context, tenantID, ledgerID uuid.UUID) (Ledger, error) {
	return scanLedger(r.db.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE id=$1 AND tenant_id=$2`, ledgerID, tenantID))
}

func (r *repository) GetJournal(ctx context.Context, tenantID, entryID uuid.UUID) (JournalEntry, error) {
	var e JournalEntry
	err := r.db.QueryRow(ctx, `SELECT id, tenant_id, ledger_id, period_id, reference, description, booked_at, posted_at, status, created_at
FROM journal_entries WHERE id=$1 AND tenant_id=$2`, entryID, tenantID).
		Scan(&e.ID, &e.TenantID, &e.LedgerID, &e.PeriodID, &e.Reference, &e.Description, &e.BookedAt, &e.PostedAt, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, fmt.Errorf("journals: entry %s: %w", entryID, shared.ErrJournalNotFound)
		}
		return JournalEntry{}, fmt.Errorf("journals: get journal: %w", err)
	}
	lines, err := r.linesFor(ctx, e.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	e.Lines = lines
	return e, nil
}

func (r *repository) ListJournals(ctx context.Context, tenantID, ledgerID uuid.UUID, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, ledger_id, period_id, reference, description, booked_at, posted_at, status, created_at
FROM journal_entries WHERE tenant_id=$1 AND ledger_id=$2 ORDER BY created_at DESC LIMIT $3`, tenantID, ledgerID, limit)
	if err != nil {
		return nil, fmt.Errorf("journals: list journals: %w", err)
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.LedgerID, &e.PeriodID, &e.Reference, &e.Description, &e.BookedAt, &e.PostedAt, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journals: scan journal: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) linesFor(ctx context.Context, entryID uuid.UUID) ([]Line, error) {
	rows, err := r.db.Query(ctx, `SELECT id, account_id, direction, amount_minor, currency, original_amount_minor, original_currency, description,
cost_center_id, profit_center_id, department_id, project_id, business_area_id
FROM journal_lines WHERE entry_id=$1 ORDER BY id`, entryID)
	if err != nil {
		return nil, fmt.Errorf("journals: get lines: %w", err)
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.AccountID, &l.Direction, &l.Amount.AmountMinor, &l.Amount.Currency,
			&l.OriginalAmount.AmountMinor, &l.OriginalAmount.Currency, &l.Description,
			&l.Dimensions.CostCenterID, &l.Dimensions.ProfitCenterID, &l.Dimensions.DepartmentID,
			&l.Dimensions.ProjectID, &l.Dimensions.BusinessAreaID); err != nil {
			return nil, fmt.Errorf("journals: scan line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type txRepository struct {
	tx     pgx.Tx
	outbox outbox.Repository
}

func (r *txRepository) InsertLedger(ctx context.Context, ledger Ledger) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ledgers (id, tenant_id, name, chart_id, base_currency, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ledger.ID, ledger.TenantID, ledger.Name, ledger.ChartOfAccountsID, ledger.BaseCurrency, ledger.CreatedAt, ledger.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateLedger, ledger.Name)
		}
		return fmt.Errorf("journals: insert ledger: %w", err)
	}
	return nil
}

func (r *txRepository) GetLedger(ctx context.Context, tenantID, ledgerID uuid.UUID) (Ledger, error) {
	return scanLedger(r.tx.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE id=$1 AND tenant_id=$2`, ledgerID, tenantID))
}

func (r *txRepository) GetChart(ctx context.Context, tenantID, chartID uuid.UUID) (coa.Chart, error) {
	return coa.FindByIDTx(ctx, r.tx, tenantID, chartID)
}

func (r *txRepository) SaveChart(ctx context.Context, chart coa.Chart) error {
	_, err := coa.SaveTx(ctx, r.tx, chart)
	return err
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, tenantID, periodID uuid.UUID) (periods.Period, error) {
	return periods.GetForUpdateTx(ctx, r.tx, tenantID, periodID)
}

func (r *txRepository) SavePeriod(ctx context.Context, period periods.Period) error {
	_, err := periods.SaveTx(ctx, r.tx, period)
	return err
}

func (r *txRepository) InsertJournal(ctx context.Context, entry JournalEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_entries (id, tenant_id, ledger_id, period_id, reference, description, booked_at, posted_at, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		entry.ID, entry.TenantID, entry.LedgerID, entry.PeriodID, entry.Reference, entry.Description,
		entry.BookedAt, entry.PostedAt, entry.Status, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("journals: insert journal: %w", err)
	}
	for _, line := range entry.Lines {
		_, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (id, entry_id, account_id, direction, amount_minor, currency, original_amount_minor, original_currency, description,
cost_center_id, profit_center_id, department_id, project_id, business_area_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			line.ID, entry.ID, line.AccountID, line.Direction, line.Amount.AmountMinor, line.Amount.Currency,
			line.OriginalAmount.AmountMinor, line.OriginalAmount.Currency, line.Description,
			line.Dimensions.CostCenterID, line.Dimensions.ProfitCenterID, line.Dimensions.DepartmentID,
			line.Dimensions.ProjectID, line.Dimensions.BusinessAreaID)
		if err != nil {
			return fmt.Errorf("journals: insert line: %w", err)
		}
	}
	return nil
}

func (r *txRepository) EnqueueEvent(ctx context.Context, event outbox.Event) error {
	return r.outbox.InsertTx(ctx, r.tx, event)
}

func scanLedger(row pgx.Row) (Ledger, error) {
	var l Ledger
	err := row.Scan(&l.ID, &l.TenantID, &l.Name, &l.ChartOfAccountsID, &l.BaseCurrency, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ledger{}, shared.ErrLedgerNotFound
		}
		return Ledger{}, fmt.Errorf("journals: get ledger: %w", err)
	}
	return l, nil
}
