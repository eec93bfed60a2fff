package accounting

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

func (h *Handler) mountDimensionRoutes(r chi.Router) {
	r.Route("/company-codes", func(r chi.Router) {
		r.Post("/", h.createCompanyCode)
		r.Get("/", h.listCompanyCodes)
		r.Get("/{companyCodeID}/ledger", h.companyCodeLedger)
		r.Post("/{companyCodeID}/blackouts", h.scheduleBlackout)
		r.Post("/{companyCodeID}/ledgers/{ledgerID}", h.linkLedger)
		r.Post("/{companyCodeID}/fiscal-year-variants/{variantID}", h.assignVariant)
	})
	r.Route("/dimensions", func(r chi.Router) {
		r.Post("/", h.upsertDimension)
		r.Get("/", h.listDimensions)
		r.Post("/{dimensionID}/activate", h.activateDimension)
		r.Post("/{dimensionID}/archive", h.archiveDimension)
	})
	r.Route("/dimension-policies", func(r chi.Router) {
		r.Post("/", h.upsertPolicy)
		r.Post("/seed", h.seedPolicies)
	})
	r.Post("/fiscal-year-variants", h.createVariant)
}

type createCompanyCodeRequest struct {
	Code            string `json:"code" validate:"required"`
	Name            string `json:"name" validate:"required"`
	LegalEntityName string `json:"legalEntityName" validate:"required"`
	CountryCode     string `json:"countryCode" validate:"required,len=2"`
	BaseCurrency    string `json:"baseCurrency" validate:"required,len=3"`
	Timezone        string `json:"timezone" validate:"required"`
}

type companyCodeView struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	LegalEntityName string    `json:"legalEntityName"`
	CountryCode     string    `json:"countryCode"`
	BaseCurrency    string    `json:"baseCurrency"`
	Timezone        string    `json:"timezone"`
	Status          string    `json:"status"`
}

func companyCodePayload(cc dimensions.CompanyCode) companyCodeView {
	return companyCodeView{
		ID:              cc.ID,
		Code:            cc.Code,
		Name:            cc.Name,
		LegalEntityName: cc.LegalEntityName,
		CountryCode:     cc.CountryCode,
		BaseCurrency:    cc.BaseCurrency,
		Timezone:        cc.Timezone,
		Status:          cc.Status,
	}
}

func (h *Handler) createCompanyCode(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var req createCompanyCodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	cc, err := h.dims.CreateCompanyCode(r.Context(), dimensions.CreateCompanyCodeInput{
		TenantID:        tenant,
		Code:            req.Code,
		Name:            req.Name,
		LegalEntityName: req.LegalEntityName,
		CountryCode:     req.CountryCode,
		BaseCurrency:    req.BaseCurrency,
		Timezone:        req.Timezone,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, companyCodePayload(cc))
}

func (h *Handler) listCompanyCodes(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	codes, err := h.dims.ListCompanyCodes(r.Context(), tenant)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]companyCodeView, 0, len(codes))
	for _, cc := range codes {
		views = append(views, companyCodePayload(cc))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"companyCodes": views})
}

type upsertDimensionRequest struct {
	CompanyCodeID uuid.UUID  `json:"companyCodeId" validate:"required"`
	DimensionID   *uuid.UUID `json:"dimensionId"`
	Type          string     `json:"type" validate:"required"`
	Code          string     `json:"code" validate:"required"`
	Name          string     `json:"name" validate:"required"`
	Description   string     `json:"description"`
	ParentID      *uuid.UUID `json:"parentId"`
	Status        string     `json:"status"`
	ValidFrom     time.Time  `json:"validFrom" validate:"required"`
	ValidTo       *time.Time `json:"validTo"`
}

type dimensionView struct {
	ID            uuid.UUID  `json:"id"`
	CompanyCodeID uuid.UUID  `json:"companyCodeId"`
	Type          string     `json:"type"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	ParentID      *uuid.UUID `json:"parentId,omitempty"`
	Status        string     `json:"status"`
	ValidFrom     time.Time  `json:"validFrom"`
	ValidTo       *time.Time `json:"validTo,omitempty"`
}

func dimensionPayload(d dimensions.Dimension) dimensionView {
	return dimensionView{
		ID:            d.ID,
		CompanyCodeID: d.CompanyCodeID,
		Type:          string(d.Type),
		Code:          d.Code,
		Name:          d.Name,
		Description:   d.Description,
		ParentID:      d.ParentID,
		Status:        string(d.Status),
		ValidFrom:     d.ValidFrom,
		ValidTo:       d.ValidTo,
	}
}

func (h *Handler) upsertDimension(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var req upsertDimensionRequest
	if !h.decode(w, r, &req) {
		return
	}
	dimType, err := dimensions.ParseType(req.Type)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid dimension type", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	status := dimensions.Status(req.Status)
	if req.Status == "" {
		status = dimensions.StatusActive
	}
	dim, err := h.dims.UpsertDimension(r.Context(), dimensions.UpsertDimensionInput{
		TenantID:      tenant,
		CompanyCodeID: req.CompanyCodeID,
		DimensionID:   req.DimensionID,
		Type:          dimType,
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		ParentID:      req.ParentID,
		Status:        status,
		ValidFrom:     req.ValidFrom,
		ValidTo:       req.ValidTo,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	code := http.StatusCreated
	if req.DimensionID != nil {
		code = http.StatusOK
	}
	httpx.JSON(w, code, dimensionPayload(dim))
}

func (h *Handler) listDimensions(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var companyCodeID *uuid.UUID
	if raw := r.URL.Query().Get("companyCodeId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "invalid company code id", err.Error(), "ERR_BAD_REQUEST")
			return
		}
		companyCodeID = &id
	}
	var dimType dimensions.Type
	if raw := r.URL.Query().Get("type"); raw != "" {
		parsed, err := dimensions.ParseType(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "invalid dimension type", err.Error(), "ERR_BAD_REQUEST")
			return
		}
		dimType = parsed
	}
	dims, err := h.dims.ListDimensions(r.Context(), tenant, companyCodeID, dimType)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]dimensionView, 0, len(dims))
	for _, d := range dims {
		views = append(views, dimensionPayload(d))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"dimensions": views})
}

func (h *Handler) activateDimension(w http.ResponseWriter, r *http.Request) {
	h.dimensionStateChange(w, r, h.dims.ActivateDimension)
}

func (h *Handler) archiveDimension(w http.ResponseWriter, r *http.Request) {
	h.dimensionStateChange(w, r, h.dims.ArchiveDimension)
}

func (h *Handler) dimensionStateChange(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, tenantID, dimensionID uuid.UUID) (dimensions.Dimension, error)) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	dimensionID, err := pathUUID(r, "dimensionID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid dimension id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	dim, err := fn(r.Context(), tenant, dimensionID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dimensionPayload(dim))
}

type upsertPolicyRequest struct {
	AccountType   string `json:"accountType" validate:"required"`
	DimensionType string `json:"dimensionType" validate:"required"`
	Requirement   string `json:"requirement" validate:"required,oneof=REQUIRED OPTIONAL FORBIDDEN"`
}

func (h *Handler) upsertPolicy(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var req upsertPolicyRequest
	if !h.decode(w, r, &req) {
		return
	}
	dimType, err := dimensions.ParseType(req.DimensionType)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid dimension type", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	policy, err := h.dims.UpsertPolicy(r.Context(), tenant, req.AccountType, dimType, dimensions.Requirement(req.Requirement))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":            policy.ID,
		"accountType":   policy.AccountType,
		"dimensionType": string(policy.DimensionType),
		"requirement":   string(policy.Requirement),
	})
}

func (h *Handler) seedPolicies(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	policies, err := h.policies.EnsurePolicies(r.Context(), tenant)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"seeded": len(policies)})
}

type createVariantRequest struct {
	Code            string                 `json:"code" validate:"required"`
	Name            string                 `json:"name" validate:"required"`
	Description     string                 `json:"description"`
	StartMonth      int                    `json:"startMonth" validate:"required,min=1,max=12"`
	CalendarPattern string                 `json:"calendarPattern"`
	Periods         []variantPeriodRequest `json:"periods" validate:"required,min=1,dive"`
}

type variantPeriodRequest struct {
	PeriodNumber int    `json:"periodNumber" validate:"required,min=1"`
	Label        string `json:"label" validate:"required"`
	LengthInDays int    `json:"lengthInDays" validate:"required,min=1"`
	Adjustment   bool   `json:"adjustment"`
}

func (h *Handler) createVariant(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	var req createVariantRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := dimensions.CreateFiscalYearVariantInput{
		TenantID:        tenant,
		Code:            req.Code,
		Name:            req.Name,
		Description:     req.Description,
		StartMonth:      req.StartMonth,
		CalendarPattern: req.CalendarPattern,
	}
	for _, p := range req.Periods {
		in.Periods = append(in.Periods, dimensions.VariantPeriodDefinition{
			PeriodNumber: p.PeriodNumber,
			Label:        p.Label,
			LengthInDays: p.LengthInDays,
			Adjustment:   p.Adjustment,
		})
	}
	variant, err := h.dims.CreateFiscalYearVariant(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":         variant.ID,
		"code":       variant.Code,
		"name":       variant.Name,
		"startMonth": variant.StartMonth,
	})
}

type assignVariantRequest struct {
	EffectiveFrom time.Time  `json:"effectiveFrom" validate:"required"`
	EffectiveTo   *time.Time `json:"effectiveTo"`
}

func (h *Handler) assignVariant(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	companyCodeID, err := pathUUID(r, "companyCodeID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid company code id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	variantID, err := pathUUID(r, "variantID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid variant id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	var req assignVariantRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.dims.AssignFiscalYearVariant(r.Context(), tenant, companyCodeID, variantID, req.EffectiveFrom, req.EffectiveTo); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "assigned"})
}

type scheduleBlackoutRequest struct {
	PeriodCode string    `json:"periodCode" validate:"required"`
	Start      time.Time `json:"start" validate:"required"`
	End        time.Time `json:"end" validate:"required"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason"`
}

func (h *Handler) scheduleBlackout(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	companyCodeID, err := pathUUID(r, "companyCodeID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid company code id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	var req scheduleBlackoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	status := req.Status
	if status == "" {
		status = dimensions.BlackoutStatusActive
	}
	blackout, err := h.dims.SchedulePeriodBlackout(r.Context(), tenant, companyCodeID, req.PeriodCode, req.Start, req.End, status, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":         blackout.ID,
		"periodCode": blackout.PeriodCode,
		"start":      blackout.BlackoutStart,
		"end":        blackout.BlackoutEnd,
		"status":     blackout.Status,
	})
}

func (h *Handler) linkLedger(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	companyCodeID, err := pathUUID(r, "companyCodeID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid company code id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	ledgerID, err := pathUUID(r, "ledgerID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid ledger id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	if err := h.dims.LinkLedgerToCompanyCode(r.Context(), tenant, companyCodeID, ledgerID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "linked"})
}

type ledgerRefView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"baseCurrency"`
}

type periodRefView struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    string    `json:"status"`
}

func (h *Handler) companyCodeLedger(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		h.badTenant(w, err)
		return
	}
	companyCodeID, err := pathUUID(r, "companyCodeID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid company code id", err.Error(), "ERR_BAD_REQUEST")
		return
	}
	lc, err := h.reports.LedgerForCompanyCode(r.Context(), tenant, companyCodeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	periodViews := make([]periodRefView, 0, len(lc.OpenPeriods))
	for _, p := range lc.OpenPeriods {
		periodViews = append(periodViews, periodRefView{
			ID:        p.ID,
			Code:      p.Code,
			StartDate: p.StartDate,
			EndDate:   p.EndDate,
			Status:    p.Status,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"ledger": ledgerRefView{
			ID:           lc.Ledger.ID,
			Name:         lc.Ledger.Name,
			BaseCurrency: lc.Ledger.BaseCurrency,
		},
		"openPeriods": periodViews,
	})
}
