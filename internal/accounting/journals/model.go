// Package journals implements the general ledger: the ledger aggregate, the
// journal entry lifecycle and the posting command handler. A journal entry
// is immutable once POSTED; corrections are new entries.
package journals

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/money"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// Ledger binds a chart of accounts to a base currency for one tenant.
type Ledger struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	Name              string
	ChartOfAccountsID uuid.UUID
	BaseCurrency      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewLedger validates and builds a ledger.
func NewLedger(tenantID, chartID uuid.UUID, name, baseCurrency string, now time.Time) (Ledger, error) {
	if strings.TrimSpace(name) == "" {
		return Ledger{}, fmt.Errorf("journals: ledger name required")
	}
	normalized, err := money.NormalizeCurrency(baseCurrency)
	if err != nil {
		return Ledger{}, err
	}
	return Ledger{
		ID:                uuid.New(),
		TenantID:          tenantID,
		Name:              name,
		ChartOfAccountsID: chartID,
		BaseCurrency:      normalized,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Direction marks a line as a debit or credit.
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// ParseDirection validates a raw direction string.
func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(raw))); d {
	case Debit, Credit:
		return d, nil
	default:
		return "", fmt.Errorf("journals: unknown direction %q", raw)
	}
}

// Status enumerates the journal entry lifecycle.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
)

// Line is one leg of a journal entry. Amount is in the ledger base currency;
// OriginalAmount keeps what the caller submitted before FX conversion, which
// is the same value for base-currency lines.
type Line struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	Direction      Direction
	Amount         money.Money
	OriginalAmount money.Money
	Description    *string
	Dimensions     dimensions.Assignments
}

// JournalEntry is the posting aggregate.
type JournalEntry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	LedgerID    uuid.UUID
	PeriodID    uuid.UUID
	Reference   *string
	Description *string
	BookedAt    time.Time
	PostedAt    *time.Time
	Status      Status
	Lines       []Line
	CreatedAt   time.Time
}

// Draft validates the lines and builds a DRAFT entry. The balance check runs
// one bucket per currency: a multi-currency draft must balance within each
// currency, never only in aggregate.
func Draft(tenantID, ledgerID, periodID uuid.UUID, bookedAt time.Time, reference, description *string, lines []Line, now time.Time) (JournalEntry, error) {
	if len(lines) < 2 {
		return JournalEntry{}, fmt.Errorf("%w: got %d", shared.ErrTooFewLines, len(lines))
	}
	debits := money.Buckets{}
	credits := money.Buckets{}
	var hasDebit, hasCredit bool
	for i := range lines {
		line := &lines[i]
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		if !line.Amount.IsPositive() {
			return JournalEntry{}, fmt.Errorf("%w: line %d amount %s", shared.ErrNegativeAmount, i, line.Amount)
		}
		switch line.Direction {
		case Debit:
			debits.Add(line.Amount)
			hasDebit = true
		case Credit:
			credits.Add(line.Amount)
			hasCredit = true
		default:
			return JournalEntry{}, fmt.Errorf("journals: line %d: unknown direction %q", i, line.Direction)
		}
	}
	if !hasDebit || !hasCredit {
		return JournalEntry{}, fmt.Errorf("%w: entry needs both debit and credit lines", shared.ErrUnbalanced)
	}
	if !debits.Equal(credits) {
		return JournalEntry{}, fmt.Errorf("%w: debits %v credits %v", shared.ErrUnbalanced, debits, credits)
	}
	return JournalEntry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		LedgerID:    ledgerID,
		PeriodID:    periodID,
		Reference:   reference,
		Description: description,
		BookedAt:    bookedAt,
		Status:      StatusDraft,
		Lines:       lines,
		CreatedAt:   now,
	}, nil
}

// Post transitions DRAFT -> POSTED exactly once and returns the posted copy.
func (e JournalEntry) Post(at time.Time) (JournalEntry, error) {
	if e.Status != StatusDraft {
		return JournalEntry{}, fmt.Errorf("%w: post from %s", shared.ErrInvalidState, e.Status)
	}
	posted := e
	posted.Status = StatusPosted
	posted.PostedAt = &at
	return posted, nil
}

// Totals returns per-currency debit and credit sums over the entry lines.
func (e JournalEntry) Totals() (debits, credits money.Buckets) {
	debits = money.Buckets{}
	credits = money.Buckets{}
	for _, line := range e.Lines {
		if line.Direction == Debit {
			debits.Add(line.Amount)
		} else {
			credits.Add(line.Amount)
		}
	}
	return debits, credits
}
