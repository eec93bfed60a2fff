package journals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/coa"
	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/money"
	"github.com/meridian-erp/meridian/internal/accounting/periods"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
	"github.com/meridian-erp/meridian/internal/outbox"
	internalShared "github.com/meridian-erp/meridian/internal/shared"
)

// AuditPort records who did what. Audit failures never fail the command.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// DimensionChecker runs posting-time dimension validation.
type DimensionChecker interface {
	ValidateAssignments(ctx context.Context, tenantID uuid.UUID, bookedAt time.Time, lines []dimensions.ValidationLine) error
}

// BlackoutSource reports scheduled posting blackouts for a ledger.
type BlackoutSource interface {
	FindBlackoutsCovering(ctx context.Context, tenantID, ledgerID uuid.UUID, at time.Time) ([]dimensions.Blackout, error)
}

// RateSource supplies exchange rates for non-base-currency lines. The bool
// is false when no rate is configured for the pair.
type RateSource interface {
	FindRate(ctx context.Context, base, quote string, asOf time.Time) (money.ExchangeRate, bool, error)
}

// Service is the accounting command handler.
type Service struct {
	repo      Repository
	validator DimensionChecker
	blackouts BlackoutSource
	rates     RateSource
	audit     AuditPort
	now       func() time.Time
}

// NewService wires the command handler.
func NewService(repo Repository, validator DimensionChecker, blackouts BlackoutSource, rates RateSource, audit AuditPort) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		blackouts: blackouts,
		rates:     rates,
		audit:     audit,
		now:       time.Now,
	}
}

// WithNow overrides the clock in tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateChart creates an empty chart of accounts.
func (s *Service) CreateChart(ctx context.Context, in CreateChartInput) (coa.Chart, error) {
	chart, err := coa.NewChart(in.TenantID, in.Code, in.Name, in.BaseCurrency, s.now())
	if err != nil {
		return coa.Chart{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SaveChart(ctx, chart)
	})
	if err != nil {
		return coa.Chart{}, err
	}
	s.record(ctx, in.TenantID, nil, "chart.create", "chart_of_accounts", chart.ID.String(), map[string]any{"code": chart.Code})
	return chart, nil
}

// DefineAccount adds an account definition to an existing chart.
func (s *Service) DefineAccount(ctx context.Context, in DefineAccountInput) (coa.Account, error) {
	accountType, err := coa.ParseAccountType(in.Type)
	if err != nil {
		return coa.Account{}, err
	}
	var account coa.Account
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		chart, err := tx.GetChart(ctx, in.TenantID, in.ChartID)
		if err != nil {
			return err
		}
		updated, created, err := chart.DefineAccount(coa.DefineAccountInput{
			Code:      in.Code,
			Name:      in.Name,
			Type:      accountType,
			Currency:  in.Currency,
			ParentID:  in.ParentID,
			IsPosting: in.IsPosting,
		}, s.now())
		if err != nil {
			return err
		}
		account = created
		return tx.SaveChart(ctx, updated)
	})
	if err != nil {
		return coa.Account{}, err
	}
	s.record(ctx, in.TenantID, nil, "account.define", "gl_account", account.ID.String(), map[string]any{"code": account.Code, "type": string(account.Type)})
	return account, nil
}

// CreateLedger creates a ledger over an existing chart.
func (s *Service) CreateLedger(ctx context.Context, in CreateLedgerInput) (Ledger, error) {
	ledger, err := NewLedger(in.TenantID, in.ChartID, in.Name, in.BaseCurrency, s.now())
	if err != nil {
		return Ledger{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetChart(ctx, in.TenantID, in.ChartID); err != nil {
			return err
		}
		return tx.InsertLedger(ctx, ledger)
	})
	if err != nil {
		return Ledger{}, err
	}
	s.record(ctx, in.TenantID, nil, "ledger.create", "ledger", ledger.ID.String(), map[string]any{"name": ledger.Name, "base_currency": ledger.BaseCurrency})
	return ledger, nil
}

// OpenPeriod creates a new OPEN period on a ledger.
func (s *Service) OpenPeriod(ctx context.Context, in OpenPeriodInput) (periods.Period, error) {
	period, err := periods.New(in.LedgerID, in.TenantID, in.Code, in.StartDate, in.EndDate, s.now())
	if err != nil {
		return periods.Period{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetLedger(ctx, in.TenantID, in.LedgerID); err != nil {
			return err
		}
		return tx.SavePeriod(ctx, period)
	})
	if err != nil {
		return periods.Period{}, err
	}
	s.record(ctx, in.TenantID, nil, "period.open", "accounting_period", period.ID.String(), map[string]any{"code": period.Code})
	return period, nil
}

// FreezePeriod transitions a period OPEN -> FROZEN.
func (s *Service) FreezePeriod(ctx context.Context, in PeriodActionInput) (periods.Period, error) {
	return s.transitionPeriod(ctx, in, "period.freeze", func(p periods.Period, now time.Time) (periods.Period, periods.StatusChange, error) {
		return p.Freeze(now)
	})
}

// ReopenPeriod transitions a period FROZEN -> OPEN.
func (s *Service) ReopenPeriod(ctx context.Context, in PeriodActionInput) (periods.Period, error) {
	return s.transitionPeriod(ctx, in, "period.reopen", func(p periods.Period, now time.Time) (periods.Period, periods.StatusChange, error) {
		return p.Reopen(now)
	})
}

// ClosePeriod closes a period, or only freezes it when FreezeOnly is set.
func (s *Service) ClosePeriod(ctx context.Context, in PeriodActionInput) (periods.Period, error) {
	if in.FreezeOnly {
		return s.FreezePeriod(ctx, in)
	}
	return s.transitionPeriod(ctx, in, "period.close", func(p periods.Period, now time.Time) (periods.Period, periods.StatusChange, error) {
		return p.Close(now)
	})
}

func (s *Service) transitionPeriod(ctx context.Context, in PeriodActionInput, action string, fn func(periods.Period, time.Time) (periods.Period, periods.StatusChange, error)) (periods.Period, error) {
	var updated periods.Period
	var change periods.StatusChange
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, in.TenantID, in.PeriodID)
		if err != nil {
			return err
		}
		updated, change, err = fn(period, s.now())
		if err != nil {
			return err
		}
		if err := tx.SavePeriod(ctx, updated); err != nil {
			return err
		}
		event, err := outbox.NewPeriodStatusEvent(outbox.PeriodStatusPayload{
			OccurredAt:     change.OccurredAt,
			TenantID:       change.TenantID,
			LedgerID:       change.LedgerID,
			PeriodID:       change.PeriodID,
			PeriodCode:     updated.Code,
			PreviousStatus: string(change.PreviousStatus),
			CurrentStatus:  string(change.CurrentStatus),
			FreezeOnly:     change.FreezeOnly,
		}, s.now())
		if err != nil {
			return err
		}
		return tx.EnqueueEvent(ctx, event)
	})
	if err != nil {
		return periods.Period{}, err
	}
	s.record(ctx, in.TenantID, in.ActorID, action, "accounting_period", updated.ID.String(), map[string]any{
		"previous_status": string(change.PreviousStatus),
		"current_status":  string(change.CurrentStatus),
	})
	return updated, nil
}

// PostJournal validates, balances and posts a journal entry, then enqueues
// the posted event in the same transaction. The period row is locked for the
// whole transaction so a concurrent close cannot slip between the status
// check and the insert.
func (s *Service) PostJournal(ctx context.Context, in PostJournalInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ledger, err := tx.GetLedger(ctx, in.TenantID, in.LedgerID)
		if err != nil {
			return err
		}
		period, err := tx.GetPeriodForUpdate(ctx, in.TenantID, in.PeriodID)
		if err != nil {
			return err
		}
		if period.LedgerID != ledger.ID {
			return fmt.Errorf("%w: period %s does not belong to ledger %s", shared.ErrPeriodNotFound, period.ID, ledger.ID)
		}
		if !period.AcceptsPostings() {
			return fmt.Errorf("%w: period %s is %s", shared.ErrPeriodClosed, period.Code, period.Status)
		}
		if !period.Covers(in.BookedAt) {
			return fmt.Errorf("%w: %s not in [%s, %s]", shared.ErrDateOutOfRange,
				in.BookedAt.Format("2006-01-02"), period.StartDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02"))
		}
		if s.blackouts != nil {
			blackouts, err := s.blackouts.FindBlackoutsCovering(ctx, in.TenantID, in.LedgerID, in.BookedAt)
			if err != nil {
				return err
			}
			for _, b := range blackouts {
				if b.Blocks(in.BookedAt) {
					return fmt.Errorf("%w: %s (%s)", shared.ErrBlackoutActive, b.PeriodCode, b.Reason)
				}
			}
		}
		chart, err := tx.GetChart(ctx, in.TenantID, ledger.ChartOfAccountsID)
		if err != nil {
			return err
		}
		lines, validationLines, err := s.buildLines(ctx, ledger, chart, in)
		if err != nil {
			return err
		}
		if s.validator != nil {
			if err := s.validator.ValidateAssignments(ctx, in.TenantID, in.BookedAt, validationLines); err != nil {
				return err
			}
		}
		draft, err := Draft(in.TenantID, ledger.ID, period.ID, in.BookedAt, in.Reference, in.Description, lines, s.now())
		if err != nil {
			return err
		}
		posted, err := draft.Post(s.now())
		if err != nil {
			return err
		}
		if err := tx.InsertJournal(ctx, posted); err != nil {
			return err
		}
		event, err := outbox.NewJournalPostedEvent(s.postedPayload(posted), s.now())
		if err != nil {
			return err
		}
		if err := tx.EnqueueEvent(ctx, event); err != nil {
			return err
		}
		entry = posted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, in.TenantID, in.ActorID, "journal.post", "journal_entry", entry.ID.String(), map[string]any{
		"ledger_id": entry.LedgerID.String(),
		"period_id": entry.PeriodID.String(),
		"lines":     len(entry.Lines),
	})
	return entry, nil
}

// GetJournal fetches one entry with lines.
func (s *Service) GetJournal(ctx context.Context, tenantID, entryID uuid.UUID) (JournalEntry, error) {
	return s.repo.GetJournal(ctx, tenantID, entryID)
}

// ListJournals lists recent entries on a ledger.
func (s *Service) ListJournals(ctx context.Context, tenantID, ledgerID uuid.UUID, limit int) ([]JournalEntry, error) {
	return s.repo.ListJournals(ctx, tenantID, ledgerID, limit)
}

// buildLines resolves accounts, merges dimensions and converts foreign
// currency amounts into the ledger base currency.
func (s *Service) buildLines(ctx context.Context, ledger Ledger, chart coa.Chart, in PostJournalInput) ([]Line, []dimensions.ValidationLine, error) {
	lines := make([]Line, 0, len(in.Lines))
	validationLines := make([]dimensions.ValidationLine, 0, len(in.Lines))
	for i, lineIn := range in.Lines {
		account, ok := chart.AccountByID(lineIn.AccountID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: line %d account %s", shared.ErrAccountNotFound, i, lineIn.AccountID)
		}
		if !account.IsPosting {
			return nil, nil, fmt.Errorf("%w: line %d account %s", shared.ErrNonPostingAccount, i, account.Code)
		}
		direction, err := ParseDirection(lineIn.Direction)
		if err != nil {
			return nil, nil, err
		}
		currencyCode := lineIn.Currency
		if currencyCode == "" {
			currencyCode = ledger.BaseCurrency
		}
		original, err := money.New(lineIn.AmountMinor, currencyCode)
		if err != nil {
			return nil, nil, err
		}
		amount := original
		if original.Currency != ledger.BaseCurrency {
			rate, found, err := s.rates.FindRate(ctx, original.Currency, ledger.BaseCurrency, in.BookedAt)
			if err != nil {
				return nil, nil, err
			}
			if !found {
				return nil, nil, fmt.Errorf("%w: %s -> %s", shared.ErrRateNotFound, original.Currency, ledger.BaseCurrency)
			}
			amount, err = rate.Convert(original)
			if err != nil {
				return nil, nil, err
			}
		}
		merged := lineIn.Dimensions.Merge(in.HeaderDimensions)
		lines = append(lines, Line{
			AccountID:      account.ID,
			Direction:      direction,
			Amount:         amount,
			OriginalAmount: original,
			Description:    lineIn.Description,
			Dimensions:     merged,
		})
		validationLines = append(validationLines, dimensions.ValidationLine{
			AccountType: account.Type,
			Dimensions:  merged,
		})
	}
	return lines, validationLines, nil
}

func (s *Service) postedPayload(entry JournalEntry) outbox.JournalPostedPayload {
	debits, credits := entry.Totals()
	var totalDebits, totalCredits int64
	for _, v := range debits {
		totalDebits += v
	}
	for _, v := range credits {
		totalCredits += v
	}
	currency := ""
	if len(entry.Lines) > 0 {
		currency = entry.Lines[0].Amount.Currency
	}
	payloadLines := make([]outbox.JournalLinePayload, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		payloadLines = append(payloadLines, outbox.JournalLinePayload{
			AccountID:      line.AccountID,
			Direction:      string(line.Direction),
			AmountMinor:    line.Amount.AmountMinor,
			Currency:       line.Amount.Currency,
			Description:    line.Description,
			CostCenterID:   line.Dimensions.CostCenterID,
			ProfitCenterID: line.Dimensions.ProfitCenterID,
			DepartmentID:   line.Dimensions.DepartmentID,
			ProjectID:      line.Dimensions.ProjectID,
			BusinessAreaID: line.Dimensions.BusinessAreaID,
		})
	}
	occurredAt := entry.BookedAt
	if entry.PostedAt != nil {
		occurredAt = *entry.PostedAt
	}
	return outbox.JournalPostedPayload{
		OccurredAt:        occurredAt,
		TenantID:          entry.TenantID,
		LedgerID:          entry.LedgerID,
		JournalEntryID:    entry.ID,
		PeriodID:          entry.PeriodID,
		Reference:         entry.Reference,
		Description:       entry.Description,
		TotalDebitsMinor:  totalDebits,
		TotalCreditsMinor: totalCredits,
		Currency:          currency,
		Lines:             payloadLines,
	}
}

func (s *Service) record(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
