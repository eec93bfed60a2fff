package accounting

import (
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/reports"
)

type trialBalanceLineView struct {
	AccountID        uuid.UUID `json:"accountId"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	DebitTotalMinor  int64     `json:"debitTotalMinor"`
	CreditTotalMinor int64     `json:"creditTotalMinor"`
	NetBalanceMinor  int64     `json:"netBalanceMinor"`
}

type trialBalancePayload struct {
	LedgerID          uuid.UUID              `json:"ledgerId"`
	PeriodID          uuid.UUID              `json:"periodId"`
	Currency          string                 `json:"currency"`
	Lines             []trialBalanceLineView `json:"lines"`
	TotalDebitsMinor  int64                  `json:"totalDebitsMinor"`
	TotalCreditsMinor int64                  `json:"totalCreditsMinor"`
}

func trialBalanceView(tb reports.TrialBalance) trialBalancePayload {
	payload := trialBalancePayload{
		LedgerID:          tb.LedgerID,
		PeriodID:          tb.PeriodID,
		Currency:          tb.Currency,
		Lines:             make([]trialBalanceLineView, 0, len(tb.Lines)),
		TotalDebitsMinor:  tb.TotalDebitsMinor,
		TotalCreditsMinor: tb.TotalCreditsMinor,
	}
	for _, line := range tb.Lines {
		payload.Lines = append(payload.Lines, trialBalanceLineView{
			AccountID:        line.AccountID,
			Code:             line.Code,
			Name:             line.Name,
			Type:             line.Type,
			DebitTotalMinor:  line.DebitTotalMinor,
			CreditTotalMinor: line.CreditTotalMinor,
			NetBalanceMinor:  line.NetBalanceMinor,
		})
	}
	return payload
}

type glSummaryRowView struct {
	DimensionID      *uuid.UUID `json:"dimensionId,omitempty"`
	Code             string     `json:"code"`
	Name             string     `json:"name"`
	DebitTotalMinor  int64      `json:"debitTotalMinor"`
	CreditTotalMinor int64      `json:"creditTotalMinor"`
	NetBalanceMinor  int64      `json:"netBalanceMinor"`
}

type glSummaryPayload struct {
	LedgerID      uuid.UUID          `json:"ledgerId"`
	PeriodID      uuid.UUID          `json:"periodId"`
	DimensionType string             `json:"dimensionType"`
	Currency      string             `json:"currency"`
	Rows          []glSummaryRowView `json:"rows"`
}

func glSummaryView(summary reports.GLSummary) glSummaryPayload {
	payload := glSummaryPayload{
		LedgerID:      summary.LedgerID,
		PeriodID:      summary.PeriodID,
		DimensionType: summary.DimensionType,
		Currency:      summary.Currency,
		Rows:          make([]glSummaryRowView, 0, len(summary.Rows)),
	}
	for _, row := range summary.Rows {
		payload.Rows = append(payload.Rows, glSummaryRowView{
			DimensionID:      row.DimensionID,
			Code:             row.Code,
			Name:             row.Name,
			DebitTotalMinor:  row.DebitTotalMinor,
			CreditTotalMinor: row.CreditTotalMinor,
			NetBalanceMinor:  row.NetBalanceMinor,
		})
	}
	return payload
}
