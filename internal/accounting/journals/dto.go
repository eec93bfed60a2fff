package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// CreateChartInput creates an empty chart of accounts.
type CreateChartInput struct {
	TenantID     uuid.UUID
	Code         string
	Name         string
	BaseCurrency string
}

// DefineAccountInput adds an account definition to an existing chart.
type DefineAccountInput struct {
	TenantID  uuid.UUID
	ChartID   uuid.UUID
	Code      string
	Name      string
	Type      string
	Currency  string
	ParentID  *uuid.UUID
	IsPosting bool
}

// CreateLedgerInput creates a ledger over a chart.
type CreateLedgerInput struct {
	TenantID     uuid.UUID
	ChartID      uuid.UUID
	Name         string
	BaseCurrency string
}

// OpenPeriodInput creates a new OPEN period on a ledger.
type OpenPeriodInput struct {
	TenantID  uuid.UUID
	LedgerID  uuid.UUID
	Code      string
	StartDate time.Time
	EndDate   time.Time
}

// PeriodActionInput identifies a period for freeze/reopen/close commands.
type PeriodActionInput struct {
	TenantID uuid.UUID
	PeriodID uuid.UUID
	ActorID  *uuid.UUID
	// FreezeOnly turns a close command into a freeze, matching the
	// two-step month-end flow: freeze first, close once reconciled.
	FreezeOnly bool
}

// LineInput is one submitted journal line. AmountMinor is in minor units of
// Currency; an empty Currency means the ledger base currency.
type LineInput struct {
	AccountID   uuid.UUID
	Direction   string
	AmountMinor int64
	Currency    string
	Description *string
	Dimensions  dimensions.Assignments
}

// PostJournalInput is the posting command. Header dimensions apply to every
// line unless the line overrides them.
type PostJournalInput struct {
	TenantID         uuid.UUID
	LedgerID         uuid.UUID
	PeriodID         uuid.UUID
	BookedAt         time.Time
	Reference        *string
	Description      *string
	HeaderDimensions dimensions.Assignments
	Lines            []LineInput
	ActorID          *uuid.UUID
}

// Validate runs the structural checks that need no storage access.
func (in PostJournalInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return fmt.Errorf("journals: tenant id required")
	}
	if in.LedgerID == uuid.Nil {
		return fmt.Errorf("journals: ledger id required")
	}
	if in.PeriodID == uuid.Nil {
		return fmt.Errorf("journals: period id required")
	}
	if in.BookedAt.IsZero() {
		return fmt.Errorf("journals: booking date required")
	}
	if len(in.Lines) < 2 {
		return fmt.Errorf("%w: got %d", shared.ErrTooFewLines, len(in.Lines))
	}
	for i, line := range in.Lines {
		if line.AccountID == uuid.Nil {
			return fmt.Errorf("journals: line %d: account id required", i)
		}
		if _, err := ParseDirection(line.Direction); err != nil {
			return fmt.Errorf("journals: line %d: %w", i, err)
		}
		if line.AmountMinor <= 0 {
			return fmt.Errorf("%w: line %d", shared.ErrNegativeAmount, i)
		}
	}
	return nil
}
