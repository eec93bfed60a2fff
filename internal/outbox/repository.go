package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, event_type, channel, payload, version, occurred_at, recorded_at, status, failure_count, last_error, last_attempt_at, published_at`

// Repository persists outbox events.
type Repository interface {
	// InsertTx enqueues an event inside the caller's transaction so the
	// event commits or rolls back with the domain change that produced it.
	InsertTx(ctx context.Context, tx pgx.Tx, event Event) error
	// FetchPendingForUpdate claims up to limit PENDING events inside tx
	// using SKIP LOCKED so concurrent dispatchers never double-deliver.
	FetchPendingForUpdate(ctx context.Context, tx pgx.Tx, limit int) ([]Event, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, event Event) error
	CountByStatus(ctx context.Context, status Status) (int64, error)
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed outbox repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) InsertTx(ctx context.Context, tx pgx.Tx, event Event) error {
	_, err := tx.Exec(ctx, `INSERT INTO outbox_events (`+eventColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		event.ID, event.EventType, event.Channel, event.Payload, event.Version,
		event.OccurredAt, event.RecordedAt, event.Status, event.FailureCount,
		event.LastError, event.LastAttemptAt, event.PublishedAt)
	if err != nil {
		return fmt.Errorf("outbox: insert event: %w", err)
	}
	return nil
}

func (r *repository) FetchPendingForUpdate(ctx context.Context, tx pgx.Tx, limit int) ([]Event, error) {
	rows, err := tx.Query(ctx, `SELECT `+eventColumns+` FROM outbox_events
WHERE status = $1
ORDER BY recorded_at
LIMIT $2
FOR UPDATE SKIP LOCKED`, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: fetch pending: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventType, &e.Channel, &e.Payload, &e.Version,
			&e.OccurredAt, &e.RecordedAt, &e.Status, &e.FailureCount,
			&e.LastError, &e.LastAttemptAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("outbox: scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *repository) UpdateTx(ctx context.Context, tx pgx.Tx, event Event) error {
	_, err := tx.Exec(ctx, `UPDATE outbox_events
SET status=$2, failure_count=$3, last_error=$4, last_attempt_at=$5, published_at=$6
WHERE id=$1`,
		event.ID, event.Status, event.FailureCount, event.LastError, event.LastAttemptAt, event.PublishedAt)
	if err != nil {
		return fmt.Errorf("outbox: update event %s: %w", event.ID, err)
	}
	return nil
}

func (r *repository) CountByStatus(ctx context.Context, status Status) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE status=$1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("outbox: count %s: %w", status, err)
	}
	return n, nil
}

func (r *repository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM outbox_events WHERE status=$1 AND published_at < $2`, StatusPublished, cutoff)
	if err != nil {
		return 0, fmt.Errorf("outbox: cleanup: %w", err)
	}
	return tag.RowsAffected(), nil
}
