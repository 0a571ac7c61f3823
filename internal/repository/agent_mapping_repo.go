package repository

import (
	"context"
	"errors"

	"github.com/opencrmhq/chatbridge/internal/entity"
	"gorm.io/gorm"
)

// AgentMappingRepo is the read path for agent identity mappings
type AgentMappingRepo struct {
	db *gorm.DB
}

// NewAgentMappingRepo creates a new AgentMappingRepo
func NewAgentMappingRepo(db *gorm.DB) *AgentMappingRepo {
	return &AgentMappingRepo{db: db}
}

// GetByRemoteAgent looks up the mapping for a remote agent id within a
// tenant. Returns (nil, nil) when no mapping exists; callers treat that as
// "unassigned", not as an error.
func (r *AgentMappingRepo) GetByRemoteAgent(ctx context.Context, tenantId, remoteAgentId int64) (*entity.AgentMapping, error) {
	var mapping entity.AgentMapping
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND remote_agent_id = ?", tenantId, remoteAgentId).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mapping, nil
}

// GetByLocalUser looks up the mapping for a local agent within a tenant
func (r *AgentMappingRepo) GetByLocalUser(ctx context.Context, tenantId, localUserId int64) (*entity.AgentMapping, error) {
	var mapping entity.AgentMapping
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND local_user_id = ?", tenantId, localUserId).
		First(&mapping).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mapping, nil
}
