package control

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian/internal/accounting/dimensions"
	"github.com/meridian-erp/meridian/internal/accounting/money"
	"github.com/meridian-erp/meridian/internal/accounting/shared"
)

// Repository looks up control account mappings.
type Repository interface {
	FindConfigs(ctx context.Context, tenantID, companyCodeID uuid.UUID, subLedger SubLedger, category Category, dimensionKey string) ([]Config, error)
	SaveConfig(ctx context.Context, cfg Config) (Config, error)
}

// Service resolves control accounts for subsidiary-ledger postings.
type Service struct {
	repo Repository
}

// NewService constructs the resolution service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolvePayablesAccount resolves the AP control account.
func (s *Service) ResolvePayablesAccount(ctx context.Context, tenantID, companyCodeID uuid.UUID, assignments dimensions.Assignments, currency string) (uuid.UUID, error) {
	return s.resolve(ctx, tenantID, companyCodeID, SubLedgerAP, CategoryPayable, assignments, currency)
}

// ResolveReceivablesAccount resolves the AR control account.
func (s *Service) ResolveReceivablesAccount(ctx context.Context, tenantID, companyCodeID uuid.UUID, assignments dimensions.Assignments, currency string) (uuid.UUID, error) {
	return s.resolve(ctx, tenantID, companyCodeID, SubLedgerAR, CategoryReceivable, assignments, currency)
}

// resolve walks the fallback ladder: the exact dimension combination first,
// then the company-code default. Within a rung an exact currency match wins
// over a currency-agnostic mapping. A rung that carries mappings only in
// other concrete currencies fails the resolution; it never falls through to
// the default.
func (s *Service) resolve(ctx context.Context, tenantID, companyCodeID uuid.UUID, subLedger SubLedger, category Category, assignments dimensions.Assignments, currency string) (uuid.UUID, error) {
	normalized, err := money.NormalizeCurrency(currency)
	if err != nil {
		return uuid.Nil, err
	}

	dimensionKeys := []string{DimensionKey(assignments)}
	if dimensionKeys[0] != DefaultDimensionKey {
		dimensionKeys = append(dimensionKeys, DefaultDimensionKey)
	}

	for _, dimensionKey := range dimensionKeys {
		configs, err := s.repo.FindConfigs(ctx, tenantID, companyCodeID, subLedger, category, dimensionKey)
		if err != nil {
			return uuid.Nil, err
		}
		if len(configs) == 0 {
			continue
		}
		var agnostic *Config
		for i := range configs {
			switch configs[i].Currency {
			case normalized:
				return configs[i].GLAccountID, nil
			case AnyCurrency:
				agnostic = &configs[i]
			}
		}
		if agnostic != nil {
			return agnostic.GLAccountID, nil
		}
		return uuid.Nil, fmt.Errorf("%w: control account configured for %s, requested %s", shared.ErrCurrencyMismatch, configs[0].Currency, normalized)
	}
	return uuid.Nil, fmt.Errorf("%w: %s %s company=%s currency=%s", shared.ErrControlAccountNotConfigured, subLedger, category, companyCodeID, normalized)
}

// Configure stores a mapping; an empty dimension key means the company
// default and an empty currency means currency-agnostic.
func (s *Service) Configure(ctx context.Context, cfg Config) (Config, error) {
	if cfg.DimensionKey == "" {
		cfg.DimensionKey = DefaultDimensionKey
	}
	if cfg.Currency == "" {
		cfg.Currency = AnyCurrency
	}
	if cfg.Currency != AnyCurrency {
		normalized, err := money.NormalizeCurrency(cfg.Currency)
		if err != nil {
			return Config{}, err
		}
		cfg.Currency = normalized
	}
	return s.repo.SaveConfig(ctx, cfg)
}
