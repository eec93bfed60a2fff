// Package accounting exposes the general ledger HTTP API: charts of
// accounts, ledgers, accounting periods, journal posting, reporting,
// control account resolution and exchange rates.
package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/accounting/coa"
	"github.com/meridian-erp/meridian/internal/accounting/control"
	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/fx"
	"github.com/meridian-erp/meridian/internal/accounting/journals"
	"github.com/meridian-erp/meridian/internal/accounting/money"
	"github.com/meridian-erp/meridian/internal/accounting/periods"
	"github.com/meridian-erp/meridian/internal/accounting/reports"
	accshared "github.com/meridian-erp/meridian/internal/accounting/shared"
	"github.com/meridian-erp/meridian/internal/observability"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

const (
	tenantHeader = "X-Tenant-ID"
	actorHeader  = "X-Actor-ID"
)

// Handler wires the accounting services into chi routes.
type Handler struct {
	logger     *slog.Logger
	journals   *journals.Service
	reports    *reports.Service
	control    *control.Service
	rates      *fx.Provider
	dims       *dimensions.Service
	policies   *dimensions.Validator
	charts     coa.Repository
	periodRepo periods.Repository
	metrics    *observability.Metrics
	validator  *validator.Validate
}

// HandlerParams groups the services behind the accounting API.
type HandlerParams struct {
	Logger     *slog.Logger
	Journals   *journals.Service
	Reports    *reports.Service
	Control    *control.Service
	Rates      *fx.Provider
	Dimensions *dimensions.Service
	Policies   *dimensions.Validator
	Charts     coa.Repository
	Periods    periods.Repository
	Metrics    *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		logger:     p.Logger,
		journals:   p.Journals,
		reports:    p.Reports,
		control:    p.Control,
		rates:      p.Rates,
		dims:       p.Dimensions,
		policies:   p.Policies,
		charts:     p.Charts,
		periodRepo: p.Periods,
		metrics:    p.Metrics,
		validator:  validator.New(),
	}
}

// MountRoutes registers accounting routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Post("/", h.createChart)
		r.Get("/{chartID}", h.getChart)
		r.Post("/{chartID}/accounts", h.defineAccount)
	})
	r.Route("/ledgers", func(r chi.Router) {
		r.Post("/", h.createLedger)
		r.Post("/{ledgerID}/periods", h.openPeriod)
		r.Get("/{ledgerID}/periods", h.listOpenPeriods)
		r.Get("/{ledgerID}/journals", h.listJournals)
		r.Get("/{ledgerID}/periods/{periodID}/trial-balance", h.trialBalance)
		r.Get("/{ledgerID}/periods/{periodID}/gl-summary", h.glSummary)
	})
	r.Route("/periods", func(r chi.Router) {
		r.Post("/{periodID}/freeze", h.freezePeriod)
		r.Post("/{periodID}/reopen", h.reopenPeriod)
		r.Post("/{periodID}/close", h.closePeriod)
	})
	r.Route("/journals", func(r chi.Router) {
		r.Post("/", h.postJournal)
		r.Get("/{entryID}", h.getJournal)
	})
	r.Route("/control-accounts", func(r chi.Router) {
		r.Post("/", h.configureControlAccount)
		r.Post("/resolve", h.resolveControlAccount)
	})
	r.Post("/exchange-rates", h.putExchangeRate)
	h.mountDimensionRoutes(r)
}

// tenantID extracts the tenant from the X-Tenant-ID request header.
func tenantID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(tenantHeader)
	if raw == "" {
		return uuid.Nil, errors.New("missing " + tenantHeader + " header")
	}
	return uuid.Parse(raw)
}

// actorID extracts the optional acting user from the X-Actor-ID header.
func actorID(r *http.Request) *uuid.UUID {
	raw := r.Header.Get(actorHeader)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error(), "ERR_BAD_REQUEST")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "validation failed", err.Error(), "ERR_VALIDATION")
		return false
	}
	return true
}

func (h *Handler) badTenant(w http.ResponseWriter, err error) {
	httpx.Problem(w, http.StatusBadRequest, "invalid tenant", err.Error(), "ERR_BAD_TENANT")
}

type assignmentsPayload struct {
	CostCenterID   *uuid.UUID `json:"costCenterId,omitempty"`
	ProfitCenterID *uuid.UUID `json:"profitCenterId,omitempty"`
	DepartmentID   *uuid.UUID `json:"departmentId,omitempty"`
	ProjectID      *uuid.UUID `json:"projectId,omitempty"`
	BusinessAreaID *uuid.UUID `json:"businessAreaId,omitempty"`
}

func (p assignmentsPayload) toDomain() dimensions.Assignments {
	return dimensions.Assignments{
		CostCenterID:   p.CostCenterID,
		ProfitCenterID: p.ProfitCenterID,
		DepartmentID:   p.DepartmentID,
		ProjectID:      p.ProjectID,
		BusinessAreaID: p.BusinessAreaID,
	}
}

func assignmentsView(a dimensions.Assignments) assignmentsPayload {
	return assignmentsPayload{
		CostCenterID:   a.CostCenterID,
		ProfitCenterID: a.ProfitCenterID,
		DepartmentID:   a.DepartmentID,
		ProjectID:      a.ProjectID,
		BusinessAreaID: a.BusinessAreaID,
	}
}

type createChartRequest struct {
	Code         string `json:"code" validate:"required"`
	Name         string `json:"name" validate:"required"`
	BaseCurrency string `json:"baseCurrency" validate:"required,len=3"`
}

type chartView struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"baseCurrency"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (h *Handler) createChart(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var req createChartRequest
	if !h.decode(w, r, &req) {
		return
	}
	chart, err := h.journals.CreateChart(r.Context(), journals.CreateChartInput{
		TenantID:     tenant,
		Code:         req.Code,
		Name:         req.Name,
		BaseCurrency: req.BaseCurrency,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, chartView{
		ID:           chart.ID,
		Code:         chart.Code,
		Name:         chart.Name,
		BaseCurrency: chart.BaseCurrency,
		CreatedAt:    chart.CreatedAt,
	})
}

func (h *Handler) getChart(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	chartID, err := pathUUID(r, "chartID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid chart id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	chart, err := h.charts.FindByID(r.Context(), tenant, chartID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	accounts := make([]accountView, 0, len(chart.Accounts))
	for _, account := range chart.Accounts {
		accounts = append(accounts, accountView{
			ID:        account.ID,
			Code:      account.Code,
			Name:      account.Name,
			Type:      string(account.Type),
			Currency:  account.Currency,
			ParentID:  account.ParentID,
			IsPosting: account.IsPosting,
		})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	httpx.JSON(w, http.StatusOK, map[string]any{
		"chart": chartView{
			ID:           chart.ID,
			Code:         chart.Code,
			Name:         chart.Name,
			BaseCurrency: chart.BaseCurrency,
			CreatedAt:    chart.CreatedAt,
		},
		"accounts": accounts,
	})
}

type defineAccountRequest struct {
	Code      string     `json:"code" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	Type      string     `json:"type" validate:"required"`
	Currency  string     `json:"currency"`
	ParentID  *uuid.UUID `json:"parentId"`
	IsPosting bool       `json:"isPosting"`
}

type accountView struct {
	ID        uuid.UUID  `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Currency  string     `json:"currency"`
	ParentID  *uuid.UUID `json:"parentId,omitempty"`
	IsPosting bool       `json:"isPosting"`
}

func (h *Handler) defineAccount(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	chartID, err := pathUUID(r, "chartID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid chart id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	var req defineAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.journals.DefineAccount(r.Context(), journals.DefineAccountInput{
		TenantID:  tenant,
		ChartID:   chartID,
		Code:      req.Code,
		Name:      req.Name,
		Type:      req.Type,
		Currency:  req.Currency,
		ParentID:  req.ParentID,
		IsPosting: req.IsPosting,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, accountView{
		ID:        account.ID,
		Code:      account.Code,
		Name:      account.Name,
		Type:      string(account.Type),
		Currency:  account.Currency,
		ParentID:  account.ParentID,
		IsPosting: account.IsPosting,
	})
}

type createLedgerRequest struct {
	ChartID      uuid.UUID `json:"chartId" validate:"required"`
	Name         string    `json:"name" validate:"required"`
	BaseCurrency string    `json:"baseCurrency" validate:"required,len=3"`
}

type ledgerView struct {
	ID           uuid.UUID `json:"id"`
	ChartID      uuid.UUID `json:"chartId"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"baseCurrency"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (h *Handler) createLedger(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var req createLedgerRequest
	if !h.decode(w, r, &req) {
		return
	}
	ledger, err := h.journals.CreateLedger(r.Context(), journals.CreateLedgerInput{
		TenantID:     tenant,
		ChartID:      req.ChartID,
		Name:         req.Name,
		BaseCurrency: req.BaseCurrency,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ledgerView{
		ID:           ledger.ID,
		ChartID:      ledger.ChartOfAccountsID,
		Name:         ledger.Name,
		BaseCurrency: ledger.BaseCurrency,
		CreatedAt:    ledger.CreatedAt,
	})
}

type openPeriodRequest struct {
	Code      string    `json:"code" validate:"required"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
}

type periodView struct {
	ID        uuid.UUID `json:"id"`
	LedgerID  uuid.UUID `json:"ledgerId"`
	Code      string    `json:"code"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    string    `json:"status"`
}

func (h *Handler) openPeriod(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	ledgerID, err := pathUUID(r, "ledgerID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid ledger id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	var req openPeriodRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, err := h.journals.OpenPeriod(r.Context(), journals.OpenPeriodInput{
		TenantID:  tenant,
		LedgerID:  ledgerID,
		Code:      req.Code,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, periodView{
		ID:        period.ID,
		LedgerID:  period.LedgerID,
		Code:      period.Code,
		StartDate: period.StartDate,
		EndDate:   period.EndDate,
		Status:    string(period.Status),
	})
}

// listOpenPeriods returns the periods on a ledger that still accept postings
// or can be reopened.
func (h *Handler) listOpenPeriods(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	ledgerID, err := pathUUID(r, "ledgerID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid ledger id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	open, err := h.periodRepo.FindOpenByLedger(r.Context(), tenant, ledgerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]periodView, 0, len(open))
	for _, period := range open {
		views = append(views, periodView{
			ID:        period.ID,
			LedgerID:  period.LedgerID,
			Code:      period.Code,
			StartDate: period.StartDate,
			EndDate:   period.EndDate,
			Status:    string(period.Status),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": views})
}

type periodActionRequest struct {
	FreezeOnly bool `json:"freezeOnly"`
}

func (h *Handler) freezePeriod(w http.ResponseWriter, r *http.Request) {
	h.periodAction(w, r, h.journals.FreezePeriod, false)
}

func (h *Handler) reopenPeriod(w http.ResponseWriter, r *http.Request) {
	h.periodAction(w, r, h.journals.ReopenPeriod, false)
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	var req periodActionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error(), "ERR_BAD_REQUEST")
			return
		}
	}
	h.periodAction(w, r, h.journals.ClosePeriod, req.FreezeOnly)
}

func (h *Handler) periodAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, journals.PeriodActionInput) (periods.Period, error), freezeOnly bool) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	periodID, err := pathUUID(r, "periodID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid period id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	period, err := fn(r.Context(), journals.PeriodActionInput{
		TenantID:   tenant,
		PeriodID:   periodID,
		ActorID:    actorID(r),
		FreezeOnly: freezeOnly,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, periodView{
		ID:        period.ID,
		LedgerID:  period.LedgerID,
		Code:      period.Code,
		StartDate: period.StartDate,
		EndDate:   period.EndDate,
		Status:    string(period.Status),
	})
}

type journalLineRequest struct {
	AccountID   uuid.UUID          `json:"accountId" validate:"required"`
	Direction   string             `json:"direction" validate:"required,oneof=DEBIT CREDIT"`
	AmountMinor int64              `json:"amountMinor" validate:"required,gt=0"`
	Currency    string             `json:"currency"`
	Description *string            `json:"description"`
	Dimensions  assignmentsPayload `json:"dimensions"`
}

type postJournalRequest struct {
	LedgerID         uuid.UUID            `json:"ledgerId" validate:"required"`
	PeriodID         uuid.UUID            `json:"periodId" validate:"required"`
	BookedAt         time.Time            `json:"bookedAt" validate:"required"`
	Reference        *string              `json:"reference"`
	Description      *string              `json:"description"`
	HeaderDimensions assignmentsPayload   `json:"headerDimensions"`
	Lines            []journalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

type journalLineView struct {
	ID                  uuid.UUID          `json:"id"`
	AccountID           uuid.UUID          `json:"accountId"`
	Direction           string             `json:"direction"`
	AmountMinor         int64              `json:"amountMinor"`
	Currency            string             `json:"currency"`
	OriginalAmountMinor int64              `json:"originalAmountMinor"`
	OriginalCurrency    string             `json:"originalCurrency"`
	Description         *string            `json:"description,omitempty"`
	Dimensions          assignmentsPayload `json:"dimensions"`
}

type journalEntryView struct {
	ID          uuid.UUID         `json:"id"`
	LedgerID    uuid.UUID         `json:"ledgerId"`
	PeriodID    uuid.UUID         `json:"periodId"`
	Reference   *string           `json:"reference,omitempty"`
	Description *string           `json:"description,omitempty"`
	BookedAt    time.Time         `json:"bookedAt"`
	PostedAt    *time.Time        `json:"postedAt,omitempty"`
	Status      string            `json:"status"`
	Lines       []journalLineView `json:"lines"`
}

func journalView(entry journals.JournalEntry) journalEntryView {
	view := journalEntryView{
		ID:          entry.ID,
		LedgerID:    entry.LedgerID,
		PeriodID:    entry.PeriodID,
		Reference:   entry.Reference,
		Description: entry.Description,
		BookedAt:    entry.BookedAt,
		PostedAt:    entry.PostedAt,
		Status:      string(entry.Status),
	}
	for _, line := range entry.Lines {
		view.Lines = append(view.Lines, journalLineView{
			ID:                  line.ID,
			AccountID:           line.AccountID,
			Direction:           string(line.Direction),
			AmountMinor:         line.Amount.AmountMinor,
			Currency:            line.Amount.Currency,
			OriginalAmountMinor: line.OriginalAmount.AmountMinor,
			OriginalCurrency:    line.OriginalAmount.Currency,
			Description:         line.Description,
			Dimensions:          assignmentsView(line.Dimensions),
		})
	}
	return view
}

func (h *Handler) postJournal(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var req postJournalRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := journals.PostJournalInput{
		TenantID:         tenant,
		LedgerID:         req.LedgerID,
		PeriodID:         req.PeriodID,
		BookedAt:         req.BookedAt,
		Reference:        req.Reference,
		Description:      req.Description,
		HeaderDimensions: req.HeaderDimensions.toDomain(),
		ActorID:          actorID(r),
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, journals.LineInput{
			AccountID:   line.AccountID,
			Direction:   line.Direction,
			AmountMinor: line.AmountMinor,
			Currency:    line.Currency,
			Description: line.Description,
			Dimensions:  line.Dimensions.toDomain(),
		})
	}
	entry, err := h.journals.PostJournal(r.Context(), in)
	if err != nil {
		if h.metrics != nil {
			h.metrics.PostingFailed(accshared.Code(err))
		}
		httpx.RespondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.JournalPosted()
	}
	httpx.JSON(w, http.StatusCreated, journalView(entry))
}

func (h *Handler) getJournal(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	entryID, err := pathUUID(r, "entryID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid journal id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	entry, err := h.journals.GetJournal(r.Context(), tenant, entryID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, journalView(entry))
}

func (h *Handler) listJournals(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	ledgerID, err := pathUUID(r, "ledgerID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid ledger id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			httpx.Problem(w, http.StatusBadRequest, "invalid limit", "limit must be between 1 and 500", "ERR_BAD_REQUEST")
			return
		}
		limit = parsed
	}
	entries, err := h.journals.ListJournals(r.Context(), tenant, ledgerID, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]journalEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, journalView(entry))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journals": views})
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	ledgerID, err := pathUUID(r, "ledgerID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid ledger id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	periodID, err := pathUUID(r, "periodID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid period id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	filters, err := dimensionFilterParams(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid dimension filter", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	tb, err := h.reports.TrialBalance(r.Context(), tenant, ledgerID, periodID, filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, trialBalanceView(tb))
}

// dimensionFilterParams reads the optional per-axis equality filters from the
// query string.
func dimensionFilterParams(r *http.Request) (dimensions.Assignments, error) {
	var out dimensions.Assignments
	for _, p := range []struct {
		name string
		dst  **uuid.UUID
	}{
		{"costCenterId", &out.CostCenterID},
		{"profitCenterId", &out.ProfitCenterID},
		{"departmentId", &out.DepartmentID},
		{"projectId", &out.ProjectID},
		{"businessAreaId", &out.BusinessAreaID},
	} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return dimensions.Assignments{}, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = &id
	}
	return out, nil
}

func (h *Handler) glSummary(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	ledgerID, err := pathUUID(r, "ledgerID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid ledger id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	periodID, err := pathUUID(r, "periodID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid period id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	dimType, err := dimensions.ParseType(r.URL.Query().Get("dimension"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid dimension type", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	summary, err := h.reports.GLSummary(r.Context(), tenant, ledgerID, periodID, dimType)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, glSummaryView(summary))
}

type controlConfigRequest struct {
	CompanyCodeID uuid.UUID          `json:"companyCodeId" validate:"required"`
	SubLedger     string             `json:"subLedger" validate:"required,oneof=AP AR"`
	Category      string             `json:"category" validate:"required,oneof=PAYABLE RECEIVABLE"`
	Dimensions    assignmentsPayload `json:"dimensions"`
	Currency      string             `json:"currency"`
	GLAccountID   uuid.UUID          `json:"glAccountId" validate:"required"`
}

type controlConfigView struct {
	ID            uuid.UUID `json:"id"`
	CompanyCodeID uuid.UUID `json:"companyCodeId"`
	SubLedger     string    `json:"subLedger"`
	Category      string    `json:"category"`
	DimensionKey  string    `json:"dimensionKey"`
	Currency      string    `json:"currency"`
	GLAccountID   uuid.UUID `json:"glAccountId"`
}

func (h *Handler) configureControlAccount(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var req controlConfigRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, err := h.control.Configure(r.Context(), control.Config{
		TenantID:      tenant,
		CompanyCodeID: req.CompanyCodeID,
		SubLedger:     control.SubLedger(req.SubLedger),
		Category:      control.Category(req.Category),
		DimensionKey:  control.DimensionKey(req.Dimensions.toDomain()),
		Currency:      req.Currency,
		GLAccountID:   req.GLAccountID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, controlConfigView{
		ID:            cfg.ID,
		CompanyCodeID: cfg.CompanyCodeID,
		SubLedger:     string(cfg.SubLedger),
		Category:      string(cfg.Category),
		DimensionKey:  cfg.DimensionKey,
		Currency:      cfg.Currency,
		GLAccountID:   cfg.GLAccountID,
	})
}

type resolveControlRequest struct {
	CompanyCodeID uuid.UUID          `json:"companyCodeId" validate:"required"`
	Category      string             `json:"category" validate:"required,oneof=PAYABLE RECEIVABLE"`
	Dimensions    assignmentsPayload `json:"dimensions"`
	Currency      string             `json:"currency" validate:"required,len=3"`
}

func (h *Handler) resolveControlAccount(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var req resolveControlRequest
	if !h.decode(w, r, &req) {
		return
	}
	resolve := h.control.ResolvePayablesAccount
	if req.Category == string(control.CategoryReceivable) {
		resolve = h.control.ResolveReceivablesAccount
	}
	accountID, err := resolve(r.Context(), tenant, req.CompanyCodeID, req.Dimensions.toDomain(), req.Currency)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"glAccountId": accountID})
}

type exchangeRateRequest struct {
	Base  string    `json:"base" validate:"required,len=3"`
	Quote string    `json:"quote" validate:"required,len=3"`
	Rate  string    `json:"rate" validate:"required"`
	AsOf  time.Time `json:"asOf" validate:"required"`
}

func (h *Handler) putExchangeRate(w http.ResponseWriter, r *http.Request) {
	if _, err := tenantID(r); err != nil {
		h.badTenant(w, err)
		return
	}
	var req exchangeRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	value, err := decimal.NewFromString(req.Rate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid rate", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	rate, err := money.NewExchangeRate(req.Base, req.Quote, value, req.AsOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.rates.PutRate(r.Context(), rate); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"base":  rate.Base,
		"quote": rate.Quote,
		"rate":  rate.Rate.String(),
		"asOf":  rate.AsOf,
	})
}
