package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rfeflow/rfe-api/internal/models"
)

const tenantColumns = `id, name, slug, plan, status, settings, data_retention_days, created_at, updated_at`

// TenantRepository provides database access for tenants.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository creates a new instance of TenantRepository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// FindByID returns a tenant by id.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE id = $1 LIMIT 1`, tenantColumns)
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tenant by id: %w", err)
	}
	return &tenant, nil
}

// ExistsSlug reports whether a slug is already taken.
func (r *TenantRepository) ExistsSlug(ctx context.Context, slug, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM tenants WHERE slug = $1`
	args := []interface{}{slug}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check tenant slug: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new tenant.
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	const query = `INSERT INTO tenants (id, name, slug, plan, status, settings, data_retention_days, created_at, updated_at) VALUES (:id, :name, :slug, :plan, :status, :settings, :data_retention_days, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tenant); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// Update persists tenant settings.
func (r *TenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tenants SET name = :name, plan = :plan, status = :status, settings = :settings, data_retention_days = :data_retention_days, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, tenant)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListWithRetention returns active tenants that have a retention policy set.
func (r *TenantRepository) ListWithRetention(ctx context.Context) ([]models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE status = $1 AND data_retention_days IS NOT NULL AND data_retention_days > 0`, tenantColumns)
	var tenants []models.Tenant
	if err := r.db.SelectContext(ctx, &tenants, query, models.TenantActive); err != nil {
		return nil, fmt.Errorf("list tenants with retention: %w", err)
	}
	return tenants, nil
}
