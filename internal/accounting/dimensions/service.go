package dimensions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// EventPublisher records dimension change events for downstream consumers.
type EventPublisher interface {
	DimensionChanged(ctx context.Context, d Dimension, action string) error
}

// Service implements the dimension command use case: company code, dimension,
// policy, fiscal-year-variant and blackout administration.
type Service struct {
	repo      Repository
	publisher EventPublisher
	now       func() time.Time
}

// NewService constructs the dimension service.
func NewService(repo Repository, publisher EventPublisher) *Service {
	return &Service{repo: repo, publisher: publisher, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateCompanyCodeInput carries fields for a new company code.
type CreateCompanyCodeInput struct {
	TenantID        uuid.UUID
	Code            string
	Name            string
	LegalEntityName string
	CountryCode     string
	BaseCurrency    string
	Timezone        string
}

// CreateCompanyCode registers a company code.
func (s *Service) CreateCompanyCode(ctx context.Context, in CreateCompanyCodeInput) (CompanyCode, error) {
	cc, err := NewCompanyCode(in.TenantID, in.Code, in.Name, in.LegalEntityName, in.CountryCode, in.BaseCurrency, in.Timezone, s.now())
	if err != nil {
		return CompanyCode{}, err
	}
	return s.repo.SaveCompanyCode(ctx, cc)
}

// ListCompanyCodes returns the tenant's company codes.
func (s *Service) ListCompanyCodes(ctx context.Context, tenantID uuid.UUID) ([]CompanyCode, error) {
	return s.repo.ListCompanyCodes(ctx, tenantID)
}

// UpsertDimensionInput creates or updates a dimension instance.
type UpsertDimensionInput struct {
	TenantID      uuid.UUID
	CompanyCodeID uuid.UUID
	DimensionID   *uuid.UUID
	Type          Type
	Code          string
	Name          string
	Description   string
	ParentID      *uuid.UUID
	Status        Status
	ValidFrom     time.Time
	ValidTo       *time.Time
}

// UpsertDimension creates or updates a dimension and emits a change event.
func (s *Service) UpsertDimension(ctx context.Context, in UpsertDimensionInput) (Dimension, error) {
	if in.Code == "" || in.Name == "" {
		return Dimension{}, fmt.Errorf("dimensions: code and name required")
	}
	if _, err := ParseType(string(in.Type)); err != nil {
		return Dimension{}, err
	}
	if in.ValidTo != nil && in.ValidTo.Before(in.ValidFrom) {
		return Dimension{}, fmt.Errorf("dimensions: validTo before validFrom")
	}
	if _, err := s.repo.FindCompanyCode(ctx, in.TenantID, in.CompanyCodeID); err != nil {
		return Dimension{}, err
	}
	if in.ParentID != nil {
		parent, err := s.repo.FindDimension(ctx, in.TenantID, *in.ParentID)
		if err != nil {
			return Dimension{}, err
		}
		if parent.Type != in.Type {
			return Dimension{}, fmt.Errorf("dimensions: parent %s is a %s, expected %s", parent.Code, parent.Type, in.Type)
		}
	}

	now := s.now()
	action := "CREATED"
	d := Dimension{
		ID:            uuid.New(),
		TenantID:      in.TenantID,
		CompanyCodeID: in.CompanyCodeID,
		Type:          in.Type,
		Code:          in.Code,
		Name:          in.Name,
		Description:   in.Description,
		ParentID:      in.ParentID,
		Status:        in.Status,
		ValidFrom:     in.ValidFrom,
		ValidTo:       in.ValidTo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.DimensionID != nil {
		existing, err := s.repo.FindDimension(ctx, in.TenantID, *in.DimensionID)
		if err != nil {
			return Dimension{}, err
		}
		action = "UPDATED"
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt
	}
	if d.Status == "" {
		d.Status = StatusDraft
	}

	saved, err := s.repo.SaveDimension(ctx, d)
	if err != nil {
		return Dimension{}, err
	}
	if s.publisher != nil {
		if err := s.publisher.DimensionChanged(ctx, saved, action); err != nil {
			return Dimension{}, err
		}
	}
	return saved, nil
}

// ActivateDimension moves a dimension into ACTIVE.
func (s *Service) ActivateDimension(ctx context.Context, tenantID, dimensionID uuid.UUID) (Dimension, error) {
	d, err := s.repo.FindDimension(ctx, tenantID, dimensionID)
	if err != nil {
		return Dimension{}, err
	}
	saved, err := s.repo.SaveDimension(ctx, d.Activate(s.now()))
	if err != nil {
		return Dimension{}, err
	}
	if s.publisher != nil {
		if err := s.publisher.DimensionChanged(ctx, saved, "ACTIVATED"); err != nil {
			return Dimension{}, err
		}
	}
	return saved, nil
}

// ArchiveDimension retires a dimension.
func (s *Service) ArchiveDimension(ctx context.Context, tenantID, dimensionID uuid.UUID) (Dimension, error) {
	d, err := s.repo.FindDimension(ctx, tenantID, dimensionID)
	if err != nil {
		return Dimension{}, err
	}
	saved, err := s.repo.SaveDimension(ctx, d.Archive(s.now()))
	if err != nil {
		return Dimension{}, err
	}
	if s.publisher != nil {
		if err := s.publisher.DimensionChanged(ctx, saved, "ARCHIVED"); err != nil {
			return Dimension{}, err
		}
	}
	return saved, nil
}

// ListDimensions returns dimension instances for one axis.
func (s *Service) ListDimensions(ctx context.Context, tenantID uuid.UUID, companyCodeID *uuid.UUID, t Type) ([]Dimension, error) {
	return s.repo.ListDimensions(ctx, tenantID, companyCodeID, t)
}

// UpsertPolicy sets the requirement for an account type / dimension type pair.
func (s *Service) UpsertPolicy(ctx context.Context, tenantID uuid.UUID, accountType string, dimensionType Type, requirement Requirement) (Policy, error) {
	switch requirement {
	case RequirementRequired, RequirementOptional, RequirementForbidden:
	default:
		return Policy{}, fmt.Errorf("dimensions: unknown requirement %q", requirement)
	}
	now := s.now()
	return s.repo.SavePolicy(ctx, Policy{
		ID:            uuid.New(),
		TenantID:      tenantID,
		AccountType:   accountType,
		DimensionType: dimensionType,
		Requirement:   requirement,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// CreateFiscalYearVariantInput defines a variant and its period slots.
type CreateFiscalYearVariantInput struct {
	TenantID        uuid.UUID
	Code            string
	Name            string
	Description     string
	StartMonth      int
	CalendarPattern string
	Periods         []VariantPeriodDefinition
}

// CreateFiscalYearVariant stores a fiscal year variant definition.
func (s *Service) CreateFiscalYearVariant(ctx context.Context, in CreateFiscalYearVariantInput) (FiscalYearVariant, error) {
	now := s.now()
	pattern := in.CalendarPattern
	if pattern == "" {
		pattern = "CALENDAR"
	}
	v := FiscalYearVariant{
		ID:              uuid.New(),
		TenantID:        in.TenantID,
		Code:            in.Code,
		Name:            in.Name,
		Description:     in.Description,
		StartMonth:      in.StartMonth,
		CalendarPattern: pattern,
		Periods:         in.Periods,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := v.Validate(); err != nil {
		return FiscalYearVariant{}, err
	}
	return s.repo.SaveVariant(ctx, v)
}

// AssignFiscalYearVariant binds a variant to a company code, effective-dated.
func (s *Service) AssignFiscalYearVariant(ctx context.Context, tenantID, companyCodeID, variantID uuid.UUID, effectiveFrom time.Time, effectiveTo *time.Time) error {
	if _, err := s.repo.FindCompanyCode(ctx, tenantID, companyCodeID); err != nil {
		return err
	}
	if effectiveTo != nil && effectiveTo.Before(effectiveFrom) {
		return fmt.Errorf("dimensions: effectiveTo before effectiveFrom")
	}
	return s.repo.SaveVariantAssignment(ctx, VariantAssignment{
		CompanyCodeID:       companyCodeID,
		FiscalYearVariantID: variantID,
		EffectiveFrom:       effectiveFrom,
		EffectiveTo:         effectiveTo,
	})
}

// SchedulePeriodBlackout registers a posting blackout window.
func (s *Service) SchedulePeriodBlackout(ctx context.Context, tenantID, companyCodeID uuid.UUID, periodCode string, start, end time.Time, status, reason string) (Blackout, error) {
	if periodCode == "" {
		return Blackout{}, fmt.Errorf("dimensions: period code required")
	}
	if end.Before(start) {
		return Blackout{}, fmt.Errorf("dimensions: blackout end before start")
	}
	if _, err := s.repo.FindCompanyCode(ctx, tenantID, companyCodeID); err != nil {
		return Blackout{}, err
	}
	if status == "" {
		status = "PLANNED"
	}
	now := s.now()
	return s.repo.SaveBlackout(ctx, Blackout{
		ID:            uuid.New(),
		TenantID:      tenantID,
		CompanyCodeID: companyCodeID,
		PeriodCode:    periodCode,
		BlackoutStart: start,
		BlackoutEnd:   end,
		Status:        status,
		Reason:        reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// LinkLedgerToCompanyCode attaches a ledger to a company code. A company code
// carries exactly one ledger; relinking the same ledger is a no-op.
func (s *Service) LinkLedgerToCompanyCode(ctx context.Context, tenantID, companyCodeID, ledgerID uuid.UUID) error {
	if _, err := s.repo.FindCompanyCode(ctx, tenantID, companyCodeID); err != nil {
		return err
	}
	linked, err := s.repo.FindLedgersForCompanyCode(ctx, companyCodeID)
	if err != nil {
		return err
	}
	for _, id := range linked {
		if id == ledgerID {
			return nil
		}
	}
	if len(linked) > 0 {
		return fmt.Errorf("%w: company code %s", shared.ErrLedgerAlreadyLinked, companyCodeID)
	}
	return s.repo.LinkLedger(ctx, companyCodeID, ledgerID)
}
