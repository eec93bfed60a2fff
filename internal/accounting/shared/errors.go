package shared

import "errors"

var (
	// ErrUnbalanced indicates debits != credits within a currency.
	ErrUnbalanced = errors.New("accounting: journal lines must balance per currency")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrNegativeAmount indicates a line with a non-positive amount.
	ErrNegativeAmount = errors.New("accounting: line amount must be positive")
	// ErrPeriodNotFound indicates the accounting period does not exist.
	ErrPeriodNotFound = errors.New("accounting: period not found")
	// ErrPeriodClosed indicates posting into a period that is not OPEN.
	ErrPeriodClosed = errors.New("accounting: period is not open for posting")
	// ErrInvalidState indicates a forbidden lifecycle transition.
	ErrInvalidState = errors.New("accounting: invalid status transition")
	// ErrDateOutOfRange indicates the booking date falls outside the period.
	ErrDateOutOfRange = errors.New("accounting: date outside period")
	// ErrLedgerNotFound indicates the ledger does not exist for the tenant.
	ErrLedgerNotFound = errors.New("accounting: ledger not found")
	// ErrDuplicateLedger indicates the chart/company combination already owns a ledger.
	ErrDuplicateLedger = errors.New("accounting: ledger already exists")
	// ErrChartNotFound indicates the chart of accounts does not exist.
	ErrChartNotFound = errors.New("accounting: chart of accounts not found")
	// ErrDuplicateAccountCode indicates the account code is already taken.
	ErrDuplicateAccountCode = errors.New("accounting: account code already exists")
	// ErrAccountNotFound indicates a journal line references an unknown account.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrJournalNotFound indicates the journal entry does not exist.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrNonPostingAccount indicates a line targets a summary account.
	ErrNonPostingAccount = errors.New("accounting: account does not accept postings")
	// ErrMissingDimension indicates a REQUIRED dimension was omitted.
	ErrMissingDimension = errors.New("accounting: required dimension missing")
	// ErrForbiddenDimension indicates a FORBIDDEN dimension was supplied.
	ErrForbiddenDimension = errors.New("accounting: dimension forbidden for account type")
	// ErrDimensionNotFound indicates an unknown dimension reference.
	ErrDimensionNotFound = errors.New("accounting: dimension not found")
	// ErrDimensionInactive indicates the dimension is outside its validity window.
	ErrDimensionInactive = errors.New("accounting: dimension not active on booking date")
	// ErrBlackoutActive indicates a scheduled blackout blocks posting.
	ErrBlackoutActive = errors.New("accounting: posting blocked by period blackout")
	// ErrControlAccountNotConfigured indicates no control account mapping exists.
	ErrControlAccountNotConfigured = errors.New("accounting: control account not configured")
	// ErrCurrencyMismatch indicates incompatible currencies.
	ErrCurrencyMismatch = errors.New("accounting: currency mismatch")
	// ErrRateNotFound indicates no exchange rate is configured for the pair.
	ErrRateNotFound = errors.New("accounting: exchange rate not found")
	// ErrCompanyCodeNotFound indicates the company code does not exist.
	ErrCompanyCodeNotFound = errors.New("accounting: company code not found")
	// ErrLedgerAlreadyLinked indicates the company code is bound to a different ledger.
	ErrLedgerAlreadyLinked = errors.New("accounting: company code already linked to another ledger")
)

// Code maps a domain error to its stable machine-readable code. Consumers key
// retry and alerting behaviour off these, so changing one is a breaking change.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnbalanced):
		return "ERR_UNBALANCED"
	case errors.Is(err, ErrTooFewLines):
		return "ERR_TOO_FEW_LINES"
	case errors.Is(err, ErrNegativeAmount):
		return "ERR_NEGATIVE_AMOUNT"
	case errors.Is(err, ErrPeriodNotFound):
		return "ERR_PERIOD_NOT_FOUND"
	case errors.Is(err, ErrPeriodClosed):
		return "ERR_PERIOD_CLOSED"
	case errors.Is(err, ErrInvalidState):
		return "ERR_INVALID_STATE"
	case errors.Is(err, ErrDateOutOfRange):
		return "ERR_DATE_OUT_OF_RANGE"
	case errors.Is(err, ErrLedgerNotFound):
		return "ERR_LEDGER_NOT_FOUND"
	case errors.Is(err, ErrDuplicateLedger):
		return "ERR_DUPLICATE_LEDGER"
	case errors.Is(err, ErrChartNotFound):
		return "ERR_CHART_NOT_FOUND"
	case errors.Is(err, ErrDuplicateAccountCode):
		return "ERR_DUPLICATE_ACCOUNT_CODE"
	case errors.Is(err, ErrAccountNotFound):
		return "ERR_ACCOUNT_NOT_FOUND"
	case errors.Is(err, ErrJournalNotFound):
		return "ERR_JOURNAL_NOT_FOUND"
	case errors.Is(err, ErrNonPostingAccount):
		return "ERR_NON_POSTING_ACCOUNT"
	case errors.Is(err, ErrMissingDimension):
		return "ERR_MISSING_DIMENSION"
	case errors.Is(err, ErrForbiddenDimension):
		return "ERR_FORBIDDEN_DIMENSION"
	case errors.Is(err, ErrDimensionNotFound):
		return "ERR_DIMENSION_NOT_FOUND"
	case errors.Is(err, ErrDimensionInactive):
		return "ERR_DIMENSION_INACTIVE"
	case errors.Is(err, ErrBlackoutActive):
		return "ERR_BLACKOUT_ACTIVE"
	case errors.Is(err, ErrControlAccountNotConfigured):
		return "ERR_CONTROL_ACCOUNT_NOT_CONFIGURED"
	case errors.Is(err, ErrCurrencyMismatch):
		return "ERR_CURRENCY_MISMATCH"
	case errors.Is(err, ErrRateNotFound):
		return "ERR_RATE_NOT_FOUND"
	case errors.Is(err, ErrCompanyCodeNotFound):
		return "ERR_COMPANY_CODE_NOT_FOUND"
	case errors.Is(err, ErrLedgerAlreadyLinked):
		return "ERR_LEDGER_ALREADY_LINKED"
	default:
		return "ERR_INTERNAL"
	}
}
