// Package reports builds read-side projections over posted journal entries:
// the trial balance and the GL summary by dimension. Builders are pure so
// the aggregation query and the presentation shape can be tested apart.
package reports

import (
	"sort"

	"github.com/google/uuid"
)

// AccountActivity is the raw per-account aggregate for one period, in minor
// units of the ledger base currency. Only POSTED entries contribute.
type AccountActivity struct {
	AccountID   uuid.UUID
	Code        string
	Name        string
	Type        string
	DebitMinor  int64
	CreditMinor int64
}

// TrialBalanceLine is one presented trial balance row.
type TrialBalanceLine struct {
	AccountID        uuid.UUID
	Code             string
	Name             string
	Type             string
	DebitTotalMinor  int64
	CreditTotalMinor int64
	NetBalanceMinor  int64
}

// TrialBalance is the full statement for one ledger and period.
type TrialBalance struct {
	LedgerID          uuid.UUID
	PeriodID          uuid.UUID
	Currency          string
	Lines             []TrialBalanceLine
	TotalDebitsMinor  int64
	TotalCreditsMinor int64
}

// BuildTrialBalance turns account activity into trial balance rows sorted by
// account code. Net balance is debit minus credit, so asset and expense rows
// come out positive under normal activity.
func BuildTrialBalance(ledgerID, periodID uuid.UUID, currency string, activity []AccountActivity) TrialBalance {
	tb := TrialBalance{LedgerID: ledgerID, PeriodID: periodID, Currency: currency}
	for _, a := range activity {
		line := TrialBalanceLine{
			AccountID:        a.AccountID,
			Code:             a.Code,
			Name:             a.Name,
			Type:             a.Type,
			DebitTotalMinor:  a.DebitMinor,
			CreditTotalMinor: a.CreditMinor,
			NetBalanceMinor:  a.DebitMinor - a.CreditMinor,
		}
		tb.Lines = append(tb.Lines, line)
		tb.TotalDebitsMinor += line.DebitTotalMinor
		tb.TotalCreditsMinor += line.CreditTotalMinor
	}
	sort.Slice(tb.Lines, func(i, j int) bool { return tb.Lines[i].Code < tb.Lines[j].Code })
	return tb
}

// UnassignedBucket labels activity with no value for the grouping dimension.
const UnassignedBucket = "UNASSIGNED"

// DimensionActivity is raw activity attributed to a dimension value. A nil
// DimensionID means the line carried no value for the grouping dimension.
type DimensionActivity struct {
	DimensionID *uuid.UUID
	Code        string
	Name        string
	DebitMinor  int64
	CreditMinor int64
}

// GLSummaryRow is one presented GL summary row.
type GLSummaryRow struct {
	DimensionID      *uuid.UUID
	Code             string
	Name             string
	DebitTotalMinor  int64
	CreditTotalMinor int64
	NetBalanceMinor  int64
}

// GLSummary groups period activity by one dimension type.
type GLSummary struct {
	LedgerID      uuid.UUID
	PeriodID      uuid.UUID
	DimensionType string
	Currency      string
	Rows          []GLSummaryRow
}

// BuildGLSummary folds dimension activity into summary rows sorted by
// dimension code, with the unassigned bucket last.
func BuildGLSummary(ledgerID, periodID uuid.UUID, dimensionType, currency string, activity []DimensionActivity) GLSummary {
	summary := GLSummary{LedgerID: ledgerID, PeriodID: periodID, DimensionType: dimensionType, Currency: currency}
	merged := map[string]*GLSummaryRow{}
	var codes []string
	for _, a := range activity {
		code := a.Code
		name := a.Name
		if a.DimensionID == nil {
			code = UnassignedBucket
			name = "Unassigned"
		}
		row, ok := merged[code]
		if !ok {
			row = &GLSummaryRow{DimensionID: a.DimensionID, Code: code, Name: name}
			merged[code] = row
			codes = append(codes, code)
		}
		row.DebitTotalMinor += a.DebitMinor
		row.CreditTotalMinor += a.CreditMinor
		row.NetBalanceMinor = row.DebitTotalMinor - row.CreditTotalMinor
	}
	sort.Slice(codes, func(i, j int) bool {
		if codes[i] == UnassignedBucket {
			return false
		}
		if codes[j] == UnassignedBucket {
			return true
		}
		return codes[i] < codes[j]
	})
	for _, code := range codes {
		summary.Rows = append(summary.Rows, *merged[code])
	}
	return summary
}
