package repository

import (
	"context"
	"errors"

	"github.com/opencrmhq/chatbridge/internal/entity"
	"gorm.io/gorm"
)

// StageRepo is the repository for pipeline stage operations
type StageRepo struct {
	db *gorm.DB
}

// NewStageRepo creates a new StageRepo
func NewStageRepo(db *gorm.DB) *StageRepo {
	return &StageRepo{db: db}
}

// Create creates a new stage
func (r *StageRepo) Create(ctx context.Context, stage *entity.Stage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

// GetById gets stage by id within a tenant
func (r *StageRepo) GetById(ctx context.Context, tenantId, id int64) (*entity.Stage, error) {
	var stage entity.Stage
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantId, id).First(&stage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stage, nil
}

// ListByTenant lists stages for a tenant ordered by position
func (r *StageRepo) ListByTenant(ctx context.Context, tenantId int64) ([]*entity.Stage, error) {
	var stages []*entity.Stage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Order("position ASC").
		Find(&stages).Error
	if err != nil {
		return nil, err
	}
	return stages, nil
}

// Update updates stage fields
func (r *StageRepo) Update(ctx context.Context, tenantId, id int64, updates map[string]interface{}) error {
	updates["updated_at"] = entity.NowUnixMilli()
	return r.db.WithContext(ctx).
		Model(&entity.Stage{}).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Updates(updates).Error
}
