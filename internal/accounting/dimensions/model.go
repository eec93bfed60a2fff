// Package dimensions models the multi-dimensional accounting axes: company
// codes, cost/profit-center style dimensions with validity windows, posting
// policies per account type, fiscal-year variants and period blackouts.
package dimensions

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/money"
)

// Type enumerates the secondary classification axes for a posting line.
type Type string

const (
	TypeCostCenter   Type = "COST_CENTER"
	TypeProfitCenter Type = "PROFIT_CENTER"
	TypeDepartment   Type = "DEPARTMENT"
	TypeProject      Type = "PROJECT"
	TypeBusinessArea Type = "BUSINESS_AREA"
)

// AllTypes lists every dimension type in a stable order.
func AllTypes() []Type {
	return []Type{TypeCostCenter, TypeProfitCenter, TypeDepartment, TypeProject, TypeBusinessArea}
}

// ParseType validates a raw dimension type string.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(raw))); t {
	case TypeCostCenter, TypeProfitCenter, TypeDepartment, TypeProject, TypeBusinessArea:
		return t, nil
	default:
		return "", fmt.Errorf("dimensions: unknown dimension type %q", raw)
	}
}

// Status is the dimension instance lifecycle.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// CompanyCode is a legal-entity scope for dimensions and control accounts.
type CompanyCode struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Code            string
	Name            string
	LegalEntityName string
	CountryCode     string
	BaseCurrency    string
	Timezone        string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewCompanyCode validates and constructs a company code.
func NewCompanyCode(tenantID uuid.UUID, code, name, legalEntityName, countryCode, baseCurrency, timezone string, now time.Time) (CompanyCode, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(name) == "" {
		return CompanyCode{}, fmt.Errorf("dimensions: company code and name required")
	}
	if strings.TrimSpace(legalEntityName) == "" {
		return CompanyCode{}, fmt.Errorf("dimensions: legal entity name required")
	}
	if len(countryCode) != 2 {
		return CompanyCode{}, fmt.Errorf("dimensions: country code must be ISO-3166 alpha-2, got %q", countryCode)
	}
	currency, err := money.NormalizeCurrency(baseCurrency)
	if err != nil {
		return CompanyCode{}, err
	}
	if strings.TrimSpace(timezone) == "" {
		return CompanyCode{}, fmt.Errorf("dimensions: timezone required")
	}
	return CompanyCode{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Code:            code,
		Name:            name,
		LegalEntityName: legalEntityName,
		CountryCode:     strings.ToUpper(countryCode),
		BaseCurrency:    currency,
		Timezone:        timezone,
		Status:          "ACTIVE",
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Dimension is one instance on an axis, valid within [ValidFrom, ValidTo).
type Dimension struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	CompanyCodeID uuid.UUID
	Type          Type
	Code          string
	Name          string
	Description   string
	ParentID      *uuid.UUID
	Status        Status
	ValidFrom     time.Time
	ValidTo       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the dimension accepts postings on the given date.
// The validity window is half-open: ValidFrom inclusive, ValidTo exclusive.
func (d Dimension) IsActive(on time.Time) bool {
	if d.Status != StatusActive {
		return false
	}
	if on.Before(d.ValidFrom) {
		return false
	}
	if d.ValidTo != nil && !on.Before(*d.ValidTo) {
		return false
	}
	return true
}

// Activate marks the dimension postable.
func (d Dimension) Activate(now time.Time) Dimension {
	d.Status = StatusActive
	d.UpdatedAt = now
	return d
}

// Archive retires the dimension.
func (d Dimension) Archive(now time.Time) Dimension {
	d.Status = StatusArchived
	d.UpdatedAt = now
	return d
}

// Requirement is the posting-time policy outcome for one axis.
type Requirement string

const (
	RequirementRequired  Requirement = "REQUIRED"
	RequirementOptional  Requirement = "OPTIONAL"
	RequirementForbidden Requirement = "FORBIDDEN"
)

// Policy binds a requirement to an account type and dimension type pair.
type Policy struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	AccountType   string
	DimensionType Type
	Requirement   Requirement
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FiscalYearVariant defines period boundaries for a fiscal year.
type FiscalYearVariant struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Code            string
	Name            string
	Description     string
	StartMonth      int
	CalendarPattern string
	Periods         []VariantPeriodDefinition
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// VariantPeriodDefinition is one slot in a fiscal year variant.
type VariantPeriodDefinition struct {
	PeriodNumber int
	Label        string
	LengthInDays int
	Adjustment   bool
}

// Validate checks the variant's invariants.
func (v FiscalYearVariant) Validate() error {
	if strings.TrimSpace(v.Code) == "" || strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("dimensions: variant code and name required")
	}
	if v.StartMonth < 1 || v.StartMonth > 12 {
		return fmt.Errorf("dimensions: startMonth must be 1..12, got %d", v.StartMonth)
	}
	seen := map[int]bool{}
	for _, p := range v.Periods {
		if p.PeriodNumber <= 0 {
			return fmt.Errorf("dimensions: period number must be positive")
		}
		if seen[p.PeriodNumber] {
			return fmt.Errorf("dimensions: duplicate period number %d", p.PeriodNumber)
		}
		seen[p.PeriodNumber] = true
		if strings.TrimSpace(p.Label) == "" {
			return fmt.Errorf("dimensions: period %d label required", p.PeriodNumber)
		}
		if p.LengthInDays <= 0 {
			return fmt.Errorf("dimensions: period %d length must be positive", p.PeriodNumber)
		}
	}
	return nil
}

// VariantAssignment is an effective-dated variant binding for a company code.
type VariantAssignment struct {
	CompanyCodeID       uuid.UUID
	FiscalYearVariantID uuid.UUID
	EffectiveFrom       time.Time
	EffectiveTo         *time.Time
}

// Blackout blocks posting within a scheduled window regardless of period
// status.
type Blackout struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	CompanyCodeID uuid.UUID
	PeriodCode    string
	BlackoutStart time.Time
	BlackoutEnd   time.Time
	Status        string
	Reason        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BlackoutStatusActive marks an enforced blackout window.
const BlackoutStatusActive = "ACTIVE"

// Blocks reports whether the blackout forbids posting at the given instant.
func (b Blackout) Blocks(at time.Time) bool {
	if b.Status != BlackoutStatusActive {
		return false
	}
	return !at.Before(b.BlackoutStart) && !at.After(b.BlackoutEnd)
}

// Assignments carries the optional dimension references on a journal line.
// Line-level values win over header-level ones; Merge implements that
// fallback.
type Assignments struct {
	CostCenterID   *uuid.UUID
	ProfitCenterID *uuid.UUID
	DepartmentID   *uuid.UUID
	ProjectID      *uuid.UUID
	BusinessAreaID *uuid.UUID
}

// IsEmpty reports whether no dimension is assigned.
func (a Assignments) IsEmpty() bool {
	return a.CostCenterID == nil && a.ProfitCenterID == nil && a.DepartmentID == nil &&
		a.ProjectID == nil && a.BusinessAreaID == nil
}

// Merge overlays the line assignments on top of header defaults.
func (a Assignments) Merge(header Assignments) Assignments {
	out := a
	if out.CostCenterID == nil {
		out.CostCenterID = header.CostCenterID
	}
	if out.ProfitCenterID == nil {
		out.ProfitCenterID = header.ProfitCenterID
	}
	if out.DepartmentID == nil {
		out.DepartmentID = header.DepartmentID
	}
	if out.ProjectID == nil {
		out.ProjectID = header.ProjectID
	}
	if out.BusinessAreaID == nil {
		out.BusinessAreaID = header.BusinessAreaID
	}
	return out
}

// Get returns the assignment for one axis.
func (a Assignments) Get(t Type) *uuid.UUID {
	switch t {
	case TypeCostCenter:
		return a.CostCenterID
	case TypeProfitCenter:
		return a.ProfitCenterID
	case TypeDepartment:
		return a.DepartmentID
	case TypeProject:
		return a.ProjectID
	case TypeBusinessArea:
		return a.BusinessAreaID
	default:
		return nil
	}
}
