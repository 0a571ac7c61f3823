package repository

import (
	"context"
	"errors"

	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/pkg/apikey"
	"gorm.io/gorm"
)

// ApiKeyRepo stores hashed service credentials. It implements apikey.Store.
type ApiKeyRepo struct {
	db *gorm.DB
}

// NewApiKeyRepo creates a new ApiKeyRepo
func NewApiKeyRepo(db *gorm.DB) *ApiKeyRepo {
	return &ApiKeyRepo{db: db}
}

// Create persists a new API key record
func (r *ApiKeyRepo) Create(ctx context.Context, key *entity.ApiKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

// GetByHash implements apikey.Store
func (r *ApiKeyRepo) GetByHash(ctx context.Context, keyHash string) (*apikey.Record, error) {
	var key entity.ApiKey
	err := r.db.WithContext(ctx).Where("key_hash = ?", keyHash).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &apikey.Record{
		KeyHash:   key.KeyHash,
		TenantId:  key.TenantId,
		Scopes:    key.Scopes,
		ExpiresAt: key.ExpiresAt,
	}, nil
}
