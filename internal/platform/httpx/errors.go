package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// RespondError maps domain errors to HTTP problem responses. Conflicts with
// the current resource state (closed periods, lifecycle violations, balance
// failures) map to 409 so clients can distinguish them from bad input.
func RespondError(w http.ResponseWriter, err error) {
	code := shared.Code(err)
	switch {
	case errors.Is(err, shared.ErrLedgerNotFound),
		errors.Is(err, shared.ErrPeriodNotFound),
		errors.Is(err, shared.ErrChartNotFound),
		errors.Is(err, shared.ErrAccountNotFound),
		errors.Is(err, shared.ErrJournalNotFound),
		errors.Is(err, shared.ErrDimensionNotFound),
		errors.Is(err, shared.ErrCompanyCodeNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error(), code)
	case errors.Is(err, shared.ErrDuplicateLedger),
		errors.Is(err, shared.ErrDuplicateAccountCode):
		Problem(w, http.StatusConflict, "Duplicate", err.Error(), code)
	case errors.Is(err, shared.ErrPeriodClosed),
		errors.Is(err, shared.ErrInvalidState),
		errors.Is(err, shared.ErrLedgerAlreadyLinked),
		errors.Is(err, shared.ErrBlackoutActive):
		Problem(w, http.StatusConflict, "Conflict", err.Error(), code)
	case errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrTooFewLines),
		errors.Is(err, shared.ErrNegativeAmount),
		errors.Is(err, shared.ErrDateOutOfRange),
		errors.Is(err, shared.ErrNonPostingAccount),
		errors.Is(err, shared.ErrMissingDimension),
		errors.Is(err, shared.ErrForbiddenDimension),
		errors.Is(err, shared.ErrDimensionInactive),
		errors.Is(err, shared.ErrCurrencyMismatch),
		errors.Is(err, shared.ErrRateNotFound):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error(), code)
	case errors.Is(err, shared.ErrControlAccountNotConfigured):
		Problem(w, http.StatusPreconditionFailed, "Not Configured", err.Error(), code)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "", "ERR_INTERNAL")
	}
}
