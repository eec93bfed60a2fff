// Package coa holds the chart of accounts aggregate. A chart owns the
// account definitions available for posting within one ledger; account codes
// are unique per chart.
package coa

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/money"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// AccountType enumerates the five fundamental account classes.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// ParseAccountType validates a raw account type string.
func ParseAccountType(raw string) (AccountType, error) {
	switch t := AccountType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return t, nil
	default:
		return "", fmt.Errorf("coa: unknown account type %q", raw)
	}
}

// Account is a single GL account definition.
type Account struct {
	ID        uuid.UUID
	ParentID  *uuid.UUID
	Code      string
	Name      string
	Type      AccountType
	Currency  string
	IsPosting bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chart is the owning aggregate for account definitions.
type Chart struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Code         string
	Name         string
	BaseCurrency string
	Accounts     map[uuid.UUID]Account
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewChart builds an empty chart shell.
func NewChart(tenantID uuid.UUID, code, name, baseCurrency string, now time.Time) (Chart, error) {
	normalized, err := money.NormalizeCurrency(baseCurrency)
	if err != nil {
		return Chart{}, err
	}
	if strings.TrimSpace(code) == "" {
		return Chart{}, fmt.Errorf("coa: chart code required")
	}
	if strings.TrimSpace(name) == "" {
		return Chart{}, fmt.Errorf("coa: chart name required")
	}
	return Chart{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Code:         code,
		Name:         name,
		BaseCurrency: normalized,
		Accounts:     map[uuid.UUID]Account{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// DefineAccountInput carries the fields for a new account definition.
type DefineAccountInput struct {
	Code      string
	Name      string
	Type      AccountType
	Currency  string
	ParentID  *uuid.UUID
	IsPosting bool
}

// DefineAccount returns a copy of the chart with the account added. The
// in-process duplicate check is backed by a unique index at the storage
// layer; concurrent definers that both pass here still cannot both commit.
func (c Chart) DefineAccount(in DefineAccountInput, now time.Time) (Chart, Account, error) {
	if strings.TrimSpace(in.Code) == "" {
		return Chart{}, Account{}, fmt.Errorf("coa: account code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return Chart{}, Account{}, fmt.Errorf("coa: account name required")
	}
	if _, err := ParseAccountType(string(in.Type)); err != nil {
		return Chart{}, Account{}, err
	}
	currencyCode := in.Currency
	if currencyCode == "" {
		currencyCode = c.BaseCurrency
	}
	normalized, err := money.NormalizeCurrency(currencyCode)
	if err != nil {
		return Chart{}, Account{}, err
	}
	for _, existing := range c.Accounts {
		if strings.EqualFold(existing.Code, in.Code) {
			return Chart{}, Account{}, fmt.Errorf("%w: %s", shared.ErrDuplicateAccountCode, in.Code)
		}
	}
	if in.ParentID != nil {
		parent, ok := c.Accounts[*in.ParentID]
		if !ok {
			return Chart{}, Account{}, fmt.Errorf("%w: parent %s", shared.ErrAccountNotFound, in.ParentID)
		}
		if parent.IsPosting {
			return Chart{}, Account{}, fmt.Errorf("coa: posting account %s cannot be a parent", parent.Code)
		}
	}

	account := Account{
		ID:        uuid.New(),
		ParentID:  in.ParentID,
		Code:      in.Code,
		Name:      in.Name,
		Type:      in.Type,
		Currency:  normalized,
		IsPosting: in.IsPosting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	accounts := make(map[uuid.UUID]Account, len(c.Accounts)+1)
	for id, a := range c.Accounts {
		accounts[id] = a
	}
	accounts[account.ID] = account

	updated := c
	updated.Accounts = accounts
	updated.UpdatedAt = now
	return updated, account, nil
}

// AccountByID looks up an account definition.
func (c Chart) AccountByID(id uuid.UUID) (Account, bool) {
	a, ok := c.Accounts[id]
	return a, ok
}

// AccountByCode looks up an account by its code, case-insensitively.
func (c Chart) AccountByCode(code string) (Account, bool) {
	for _, a := range c.Accounts {
		if strings.EqualFold(a.Code, code) {
			return a, true
		}
	}
	return Account{}, false
}
