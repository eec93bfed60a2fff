package dimensions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

func TestNewCompanyCodeValidation(t *testing.T) {
	now := time.Now()
	_, err := NewCompanyCode(uuid.New(), "", "Acme US", "Acme Inc", "US", "USD", "America/New_York", now)
	require.Error(t, err)
	_, err = NewCompanyCode(uuid.New(), "US01", "Acme US", "Acme Inc", "USA", "USD", "America/New_York", now)
	require.Error(t, err)
	_, err = NewCompanyCode(uuid.New(), "US01", "Acme US", "Acme Inc", "US", "FOO123", "America/New_York", now)
	require.ErrorIs(t, err, shared.ErrCurrencyMismatch)

	cc, err := NewCompanyCode(uuid.New(), "US01", "Acme US", "Acme Inc", "us", "usd", "America/New_York", now)
	require.NoError(t, err)
	require.Equal(t, "US", cc.CountryCode)
	require.Equal(t, "USD", cc.BaseCurrency)
	require.Equal(t, "ACTIVE", cc.Status)
}

func TestDimensionValidityWindowIsHalfOpen(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	d := Dimension{Status: StatusActive, ValidFrom: from, ValidTo: &to}

	require.True(t, d.IsActive(from))
	require.True(t, d.IsActive(to.Add(-time.Second)))
	require.False(t, d.IsActive(to))
	require.False(t, d.IsActive(from.Add(-time.Second)))

	openEnded := Dimension{Status: StatusActive, ValidFrom: from}
	require.True(t, openEnded.IsActive(from.AddDate(10, 0, 0)))

	draft := Dimension{Status: StatusDraft, ValidFrom: from}
	require.False(t, draft.IsActive(from))
	archived := Dimension{Status: StatusArchived, ValidFrom: from}
	require.False(t, archived.IsActive(from))
}

func TestAssignmentsMergeLineWins(t *testing.T) {
	headerCC := uuid.New()
	headerDept := uuid.New()
	lineCC := uuid.New()

	header := Assignments{CostCenterID: &headerCC, DepartmentID: &headerDept}
	line := Assignments{CostCenterID: &lineCC}

	merged := line.Merge(header)
	require.Equal(t, lineCC, *merged.CostCenterID)
	require.Equal(t, headerDept, *merged.DepartmentID)
	require.Nil(t, merged.ProjectID)

	require.True(t, Assignments{}.IsEmpty())
	require.False(t, merged.IsEmpty())
}

func TestBlackoutBlocksOnlyActiveWindows(t *testing.T) {
	start := time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)

	active := Blackout{Status: BlackoutStatusActive, BlackoutStart: start, BlackoutEnd: end}
	require.True(t, active.Blocks(start))
	require.True(t, active.Blocks(end))
	require.False(t, active.Blocks(start.Add(-time.Second)))
	require.False(t, active.Blocks(end.Add(time.Second)))

	cancelled := Blackout{Status: "CANCELLED", BlackoutStart: start, BlackoutEnd: end}
	require.False(t, cancelled.Blocks(start))
}

func TestFiscalYearVariantValidate(t *testing.T) {
	variant := FiscalYearVariant{
		Code: "K4", Name: "Calendar year", StartMonth: 1,
		Periods: []VariantPeriodDefinition{
			{PeriodNumber: 1, Label: "Jan", LengthInDays: 31},
			{PeriodNumber: 2, Label: "Feb", LengthInDays: 28},
		},
	}
	require.NoError(t, variant.Validate())

	variant.StartMonth = 13
	require.Error(t, variant.Validate())
	variant.StartMonth = 1

	variant.Periods = append(variant.Periods, VariantPeriodDefinition{PeriodNumber: 2, Label: "Dup", LengthInDays: 30})
	require.Error(t, variant.Validate())
}

func TestParseTypeNormalizes(t *testing.T) {
	got, err := ParseType(" cost_center ")
	require.NoError(t, err)
	require.Equal(t, TypeCostCenter, got)

	_, err = ParseType("REGION")
	require.Error(t, err)
}
