package repository

import (
	"context"
	"errors"

	"github.com/opencrmhq/chatbridge/internal/entity"
	"gorm.io/gorm"
)

// TenantRepo is the repository for tenant operations
type TenantRepo struct {
	db *gorm.DB
}

// NewTenantRepo creates a new TenantRepo
func NewTenantRepo(db *gorm.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

// GetById gets tenant by id
func (r *TenantRepo) GetById(ctx context.Context, id int64) (*entity.Tenant, error) {
	var tenant entity.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// GetByWebhookTokenHash resolves a tenant from the hash of its webhook token
func (r *TenantRepo) GetByWebhookTokenHash(ctx context.Context, tokenHash string) (*entity.Tenant, error) {
	var tenant entity.Tenant
	err := r.db.WithContext(ctx).Where("webhook_token_hash = ?", tokenHash).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// ListAll lists all tenants, used by the sweep scheduler
func (r *TenantRepo) ListAll(ctx context.Context) ([]*entity.Tenant, error) {
	var tenants []*entity.Tenant
	if err := r.db.WithContext(ctx).Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}
