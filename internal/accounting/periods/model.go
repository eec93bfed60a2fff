// Package periods implements the accounting-period lifecycle. A period is
// the posting-eligibility gate for a dated window: OPEN accepts postings,
// FROZEN blocks them but can be reopened, CLOSED is terminal.
package periods

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// Status enumerates valid period states.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusFrozen Status = "FROZEN"
	StatusClosed Status = "CLOSED"
)

// Period is a dated posting window scoped to a ledger. The date range is
// immutable once created; only Status changes over the lifecycle.
type Period struct {
	ID        uuid.UUID
	LedgerID  uuid.UUID
	TenantID  uuid.UUID
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an OPEN period. Period codes are unique per ledger, enforced by
// the storage layer.
func New(ledgerID, tenantID uuid.UUID, code string, start, end time.Time, now time.Time) (Period, error) {
	if code == "" {
		return Period{}, fmt.Errorf("periods: code required")
	}
	if end.Before(start) {
		return Period{}, fmt.Errorf("periods: end date before start date")
	}
	return Period{
		ID:        uuid.New(),
		LedgerID:  ledgerID,
		TenantID:  tenantID,
		Code:      code,
		StartDate: start,
		EndDate:   end,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// StatusChange describes a completed transition, emitted for the outbox.
type StatusChange struct {
	PeriodID       uuid.UUID
	TenantID       uuid.UUID
	LedgerID       uuid.UUID
	PreviousStatus Status
	CurrentStatus  Status
	FreezeOnly     bool
	OccurredAt     time.Time
}

// Freeze transitions OPEN -> FROZEN.
func (p Period) Freeze(now time.Time) (Period, StatusChange, error) {
	if p.Status != StatusOpen {
		return Period{}, StatusChange{}, fmt.Errorf("%w: freeze from %s", shared.ErrInvalidState, p.Status)
	}
	return p.transition(StatusFrozen, now), p.change(StatusFrozen, true, now), nil
}

// Reopen transitions FROZEN -> OPEN. A CLOSED period stays closed forever.
func (p Period) Reopen(now time.Time) (Period, StatusChange, error) {
	if p.Status != StatusFrozen {
		return Period{}, StatusChange{}, fmt.Errorf("%w: reopen from %s", shared.ErrInvalidState, p.Status)
	}
	return p.transition(StatusOpen, now), p.change(StatusOpen, false, now), nil
}

// Close transitions OPEN or FROZEN -> CLOSED. Closing directly from OPEN is
// allowed so a close command can combine the freeze and close steps.
func (p Period) Close(now time.Time) (Period, StatusChange, error) {
	if p.Status == StatusClosed {
		return Period{}, StatusChange{}, fmt.Errorf("%w: close from %s", shared.ErrInvalidState, p.Status)
	}
	return p.transition(StatusClosed, now), p.change(StatusClosed, false, now), nil
}

// AcceptsPostings reports whether journal entries may be posted.
func (p Period) AcceptsPostings() bool {
	return p.Status == StatusOpen
}

// Covers reports whether the booking instant falls inside the period window.
func (p Period) Covers(at time.Time) bool {
	return !at.Before(p.StartDate) && !at.After(p.EndDate)
}

func (p Period) transition(next Status, now time.Time) Period {
	updated := p
	updated.Status = next
	updated.UpdatedAt = now
	return updated
}

func (p Period) change(next Status, freezeOnly bool, now time.Time) StatusChange {
	return StatusChange{
		PeriodID:       p.ID,
		TenantID:       p.TenantID,
		LedgerID:       p.LedgerID,
		PreviousStatus: p.Status,
		CurrentStatus:  next,
		FreezeOnly:     freezeOnly,
		OccurredAt:     now,
	}
}
