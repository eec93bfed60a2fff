// Package control resolves which GL account absorbs subsidiary-ledger (AP
// and AR) postings for a company code, dimension combination and currency.
package control

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
)

// SubLedger identifies the originating subsidiary ledger.
type SubLedger string

const (
	SubLedgerAP SubLedger = "AP"
	SubLedgerAR SubLedger = "AR"
)

// Category identifies the control account class.
type Category string

const (
	CategoryPayable    Category = "PAYABLE"
	CategoryReceivable Category = "RECEIVABLE"
)

const (
	// DefaultDimensionKey matches the company-code-level fallback mapping.
	DefaultDimensionKey = "DEFAULT"
	// AnyCurrency marks a currency-agnostic mapping.
	AnyCurrency = "ANY"
)

// Config maps one (company code, dimension key, currency) combination to a
// GL account.
type Config struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	CompanyCodeID uuid.UUID
	SubLedger     SubLedger
	Category      Category
	DimensionKey  string
	Currency      string
	GLAccountID   uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DimensionKey canonicalises an assignment set into the lookup key: sorted
// TYPE:uuid segments joined by '|', or DEFAULT when nothing is assigned.
func DimensionKey(a dimensions.Assignments) string {
	var segments []string
	if a.CostCenterID != nil {
		segments = append(segments, "COSTCENTER:"+a.CostCenterID.String())
	}
	if a.ProfitCenterID != nil {
		segments = append(segments, "PROFITCENTER:"+a.ProfitCenterID.String())
	}
	if a.DepartmentID != nil {
		segments = append(segments, "DEPARTMENT:"+a.DepartmentID.String())
	}
	if a.ProjectID != nil {
		segments = append(segments, "PROJECT:"+a.ProjectID.String())
	}
	if a.BusinessAreaID != nil {
		segments = append(segments, "BUSINESSAREA:"+a.BusinessAreaID.String())
	}
	if len(segments) == 0 {
		return DefaultDimensionKey
	}
	sort.Strings(segments)
	return strings.ToUpper(strings.Join(segments, "|"))
}
