package repository

import (
	"context"
	"errors"

	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/pkg/idgen"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepo is the mirror store for conversations
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo creates a new ConversationRepo
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// ApplyDelta applies a conversation delta under the staleness guard.
//
// The guard and the upsert are single SQL statements, so two racing writers
// (webhook and sweep) never interleave a read-check-write on the same key:
//
//  1. conditional UPDATE ... WHERE last_activity_at <= delta.ObservedAt
//  2. if nothing matched, INSERT ... ON DUPLICATE KEY ignore (lazy creation)
//  3. if the insert hit an existing row (concurrent create or stale delta),
//     retry the conditional UPDATE once; still no match means the delta is
//     older than the record: skipped-stale.
//
// assigneeTouched/assigneeId carry the Writer's resolved local assignment;
// an unresolved remote agent arrives here as (true, nil) and persists as
// unassigned.
func (r *ConversationRepo) ApplyDelta(ctx context.Context, d *entity.ConversationDelta, assigneeTouched bool, assigneeId *int64) (entity.WriteOutcome, error) {
	updates := r.deltaUpdates(d, assigneeTouched, assigneeId)

	outcome, err := r.tryGuardedUpdate(ctx, d, updates)
	if err != nil || outcome == entity.OutcomeUpdated {
		return outcome, err
	}

	created, err := r.tryInsert(ctx, d, assigneeId)
	if err != nil {
		return 0, err
	}
	if created {
		return entity.OutcomeCreated, nil
	}

	// Row exists but the first update matched nothing: either a concurrent
	// create slipped in between the two statements, or the delta is stale.
	outcome, err = r.tryGuardedUpdate(ctx, d, updates)
	if err != nil {
		return 0, err
	}
	if outcome == entity.OutcomeUpdated {
		return entity.OutcomeUpdated, nil
	}
	return entity.OutcomeSkippedStale, nil
}

// deltaUpdates builds the column assignments for the fields the delta carries
func (r *ConversationRepo) deltaUpdates(d *entity.ConversationDelta, assigneeTouched bool, assigneeId *int64) map[string]interface{} {
	updates := map[string]interface{}{
		"last_activity_at": d.ObservedAt,
		"updated_at":       entity.NowUnixMilli(),
	}
	if d.Status != nil {
		updates["status"] = *d.Status
	}
	if assigneeTouched {
		updates["assigned_agent_id"] = assigneeId
	}
	if d.LastMessagePreview != nil {
		updates["last_message_preview"] = *d.LastMessagePreview
	}
	if d.UnreadCount != nil {
		updates["unread_count"] = *d.UnreadCount
	}
	if d.ContactName != nil {
		updates["contact_name"] = *d.ContactName
	}
	return updates
}

// tryGuardedUpdate runs the conditional merge; OutcomeSkippedStale here only
// means "no row matched", the caller disambiguates absent vs stale.
func (r *ConversationRepo) tryGuardedUpdate(ctx context.Context, d *entity.ConversationDelta, updates map[string]interface{}) (entity.WriteOutcome, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("tenant_id = ? AND remote_conversation_id = ? AND last_activity_at <= ?",
			d.TenantId, d.RemoteConversationId, d.ObservedAt).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		return entity.OutcomeUpdated, nil
	}
	return entity.OutcomeSkippedStale, nil
}

// tryInsert lazily creates the mirror record, seeding absent delta fields
// with zero values. Returns false when the key already exists.
func (r *ConversationRepo) tryInsert(ctx context.Context, d *entity.ConversationDelta, assigneeId *int64) (bool, error) {
	id, err := idgen.NextID()
	if err != nil {
		return false, err
	}

	now := entity.NowUnixMilli()
	conv := &entity.Conversation{
		Id:                   id,
		TenantId:             d.TenantId,
		RemoteConversationId: d.RemoteConversationId,
		AssignedAgentId:      assigneeId,
		LastActivityAt:       d.ObservedAt,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if d.Status != nil {
		conv.Status = *d.Status
	}
	if d.LastMessagePreview != nil {
		conv.LastMessagePreview = *d.LastMessagePreview
	}
	if d.UnreadCount != nil {
		conv.UnreadCount = *d.UnreadCount
	}
	if d.ContactName != nil {
		conv.ContactName = *d.ContactName
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "remote_conversation_id"}},
		DoNothing: true,
	}).Create(conv)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetByTenantAndRemoteId gets a mirrored conversation by its remote key
func (r *ConversationRepo) GetByTenantAndRemoteId(ctx context.Context, tenantId, remoteConversationId int64) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND remote_conversation_id = ?", tenantId, remoteConversationId).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// GetById gets a mirrored conversation by local id
func (r *ConversationRepo) GetById(ctx context.Context, tenantId, id int64) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// ListByTenant lists mirrored conversations for a tenant, most recent
// activity first. status filters when non-empty.
func (r *ConversationRepo) ListByTenant(ctx context.Context, tenantId int64, status string, limit, offset int) ([]*entity.Conversation, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var convs []*entity.Conversation
	if err := q.Order("last_activity_at DESC").Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// UpdateAssignment records a local assignment change (operator action, not
// a sync write: bypasses the staleness guard on purpose)
func (r *ConversationRepo) UpdateAssignment(ctx context.Context, tenantId, id int64, agentId *int64) error {
	return r.db.WithContext(ctx).
		Model(&entity.Conversation{}).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Updates(map[string]interface{}{
			"assigned_agent_id": agentId,
			"updated_at":        entity.NowUnixMilli(),
		}).Error
}
