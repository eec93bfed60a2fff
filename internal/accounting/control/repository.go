package control

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed control account repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) FindConfigs(ctx context.Context, tenantID, companyCodeID uuid.UUID, subLedger SubLedger, category Category, dimensionKey string) ([]Config, error) {
	rows, err := r.db.Query(ctx, `SELECT id, tenant_id, company_code_id, sub_ledger, category, dimension_key, currency, gl_account_id, created_at, updated_at
FROM control_account_configs
WHERE tenant_id=$1 AND company_code_id=$2 AND sub_ledger=$3 AND category=$4 AND dimension_key=$5`,
		tenantID, companyCodeID, subLedger, category, dimensionKey)
	if err != nil {
		return nil, fmt.Errorf("control: find configs: %w", err)
	}
	defer rows.Close()

	var configs []Config
	for rows.Next() {
		var cfg Config
		if err := rows.Scan(&cfg.ID, &cfg.TenantID, &cfg.CompanyCodeID, &cfg.SubLedger, &cfg.Category, &cfg.DimensionKey, &cfg.Currency, &cfg.GLAccountID, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("control: scan config: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (r *repository) SaveConfig(ctx context.Context, cfg Config) (Config, error) {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO control_account_configs (id, tenant_id, company_code_id, sub_ledger, category, dimension_key, currency, gl_account_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (tenant_id, company_code_id, sub_ledger, category, dimension_key, currency)
DO UPDATE SET gl_account_id=EXCLUDED.gl_account_id, updated_at=EXCLUDED.updated_at`,
		cfg.ID, cfg.TenantID, cfg.CompanyCodeID, cfg.SubLedger, cfg.Category, cfg.DimensionKey, cfg.Currency, cfg.GLAccountID, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return Config{}, fmt.Errorf("control: save config: %w", err)
	}
	return cfg, nil
}
