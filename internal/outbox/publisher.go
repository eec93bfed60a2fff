package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// DimensionPublisher records dimension change events as PENDING outbox rows.
// Dimension commands run outside a caller-owned transaction, so the publisher
// opens its own short transaction per event.
type DimensionPublisher struct {
	db   *pgxpool.Pool
	repo Repository
	now  func() time.Time
}

// NewDimensionPublisher constructs the publisher.
func NewDimensionPublisher(db *pgxpool.Pool, repo Repository) *DimensionPublisher {
	return &DimensionPublisher{db: db, repo: repo, now: time.Now}
}

// WithNow overrides the clock for testing.
func (p *DimensionPublisher) WithNow(now func() time.Time) {
	p.now = now
}

// DimensionChanged implements dimensions.EventPublisher.
func (p *DimensionPublisher) DimensionChanged(ctx context.Context, d dimensions.Dimension, action string) error {
	now := p.now()
	event, err := NewDimensionChangedEvent(DimensionChangedPayload{
		OccurredAt:    now,
		TenantID:      d.TenantID,
		DimensionID:   d.ID,
		CompanyCodeID: d.CompanyCodeID,
		DimensionType: string(d.Type),
		Action:        action,
		Code:          d.Code,
		Name:          d.Name,
		Status:        string(d.Status),
		ValidFrom:     d.ValidFrom,
		ValidTo:       d.ValidTo,
	}, now)
	if err != nil {
		return err
	}

	return db.WithTx(ctx, p.db, func(tx pgx.Tx) error {
		return p.repo.InsertTx(ctx, tx, event)
	})
}
