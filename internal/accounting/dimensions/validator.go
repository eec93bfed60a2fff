package dimensions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meridian-erp/meridian/internal/accounting/coa"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// ValidationMetrics exports dimension validation outcomes.
type ValidationMetrics struct {
	failures *prometheus.CounterVec
	orphans  *prometheus.CounterVec
}

// NewValidationMetrics registers the validation counters.
func NewValidationMetrics(reg prometheus.Registerer) *ValidationMetrics {
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_dimension_validation_failures_total",
		Help: "Dimension validation failures by reason, dimension type and account type.",
	}, []string{"reason", "dimension_type", "account_type"})
	orphans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_dimension_orphan_lines_total",
		Help: "Journal lines posted without any dimension assignment.",
	}, []string{"account_type"})
	reg.MustRegister(failures, orphans)
	return &ValidationMetrics{failures: failures, orphans: orphans}
}

func (m *ValidationMetrics) failure(reason string, t Type, accountType coa.AccountType) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason, string(t), string(accountType)).Inc()
}

func (m *ValidationMetrics) orphan(accountType coa.AccountType) {
	if m == nil {
		return
	}
	m.orphans.WithLabelValues(string(accountType)).Inc()
}

// ValidationLine is one journal line as seen by the validator: the account's
// type plus the effective (line-over-header merged) assignments.
type ValidationLine struct {
	AccountType coa.AccountType
	Dimensions  Assignments
}

// Validator enforces dimension policies and validity windows at posting time.
type Validator struct {
	repo    Repository
	metrics *ValidationMetrics
	now     func() time.Time
}

// NewValidator constructs a posting-time dimension validator.
func NewValidator(repo Repository, metrics *ValidationMetrics) *Validator {
	return &Validator{repo: repo, metrics: metrics, now: time.Now}
}

// EnsurePolicies returns the tenant's policies, seeding defaults on first
// use: cost center is REQUIRED for revenue and expense postings, everything
// else OPTIONAL.
func (v *Validator) EnsurePolicies(ctx context.Context, tenantID uuid.UUID) ([]Policy, error) {
	existing, err := v.repo.FindPolicies(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	now := v.now()
	accountTypes := []coa.AccountType{
		coa.AccountTypeAsset, coa.AccountTypeLiability, coa.AccountTypeEquity,
		coa.AccountTypeRevenue, coa.AccountTypeExpense,
	}
	var seeded []Policy
	for _, accountType := range accountTypes {
		for _, dimensionType := range AllTypes() {
			requirement := RequirementOptional
			if dimensionType == TypeCostCenter &&
				(accountType == coa.AccountTypeRevenue || accountType == coa.AccountTypeExpense) {
				requirement = RequirementRequired
			}
			policy, err := v.repo.SavePolicy(ctx, Policy{
				ID:            uuid.New(),
				TenantID:      tenantID,
				AccountType:   string(accountType),
				DimensionType: dimensionType,
				Requirement:   requirement,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if err != nil {
				return nil, err
			}
			seeded = append(seeded, policy)
		}
	}
	return seeded, nil
}

// ValidateAssignments checks every line's dimensions: referenced instances
// must exist and be active on the booking date, REQUIRED dimensions must be
// present and FORBIDDEN ones absent.
func (v *Validator) ValidateAssignments(ctx context.Context, tenantID uuid.UUID, bookedAt time.Time, lines []ValidationLine) error {
	policies, err := v.EnsurePolicies(ctx, tenantID)
	if err != nil {
		return err
	}
	requirements := map[coa.AccountType]map[Type]Requirement{}
	for _, p := range policies {
		accountType := coa.AccountType(p.AccountType)
		if requirements[accountType] == nil {
			requirements[accountType] = map[Type]Requirement{}
		}
		requirements[accountType][p.DimensionType] = p.Requirement
	}

	for _, line := range lines {
		if line.Dimensions.IsEmpty() {
			v.metrics.orphan(line.AccountType)
		}
	}

	for _, dimensionType := range AllTypes() {
		ids := map[uuid.UUID]struct{}{}
		for _, line := range lines {
			if id := line.Dimensions.Get(dimensionType); id != nil {
				ids[*id] = struct{}{}
			}
		}
		if len(ids) == 0 {
			continue
		}
		lookup := make([]uuid.UUID, 0, len(ids))
		for id := range ids {
			lookup = append(lookup, id)
		}
		resolved, err := v.repo.FindDimensionsByIDs(ctx, tenantID, dimensionType, lookup)
		if err != nil {
			return err
		}
		for _, line := range lines {
			id := line.Dimensions.Get(dimensionType)
			if id == nil {
				continue
			}
			dimension, ok := resolved[*id]
			if !ok {
				v.metrics.failure("NOT_FOUND", dimensionType, line.AccountType)
				return fmt.Errorf("%w: %s %s", shared.ErrDimensionNotFound, dimensionType, id)
			}
			if !dimension.IsActive(bookedAt) {
				v.metrics.failure("INACTIVE", dimensionType, line.AccountType)
				return fmt.Errorf("%w: %s (%s) on %s", shared.ErrDimensionInactive, dimension.Code, dimensionType, bookedAt.Format("2006-01-02"))
			}
		}
	}

	for _, line := range lines {
		for _, dimensionType := range AllTypes() {
			requirement, ok := requirements[line.AccountType][dimensionType]
			if !ok {
				continue
			}
			assigned := line.Dimensions.Get(dimensionType) != nil
			switch requirement {
			case RequirementRequired:
				if !assigned {
					v.metrics.failure("REQUIRED_MISSING", dimensionType, line.AccountType)
					return fmt.Errorf("%w: %s for %s", shared.ErrMissingDimension, dimensionType, line.AccountType)
				}
			case RequirementForbidden:
				if assigned {
					v.metrics.failure("FORBIDDEN_PRESENT", dimensionType, line.AccountType)
					return fmt.Errorf("%w: %s for %s", shared.ErrForbiddenDimension, dimensionType, line.AccountType)
				}
			}
		}
	}
	return nil
}
