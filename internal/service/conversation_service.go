package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/internal/platform"
	"github.com/opencrmhq/chatbridge/internal/repository"
	"github.com/opencrmhq/chatbridge/internal/sync"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
)

// ConversationService serves mirror reads for the CRM UI and pushes local
// assignment changes back to the remote platform
type ConversationService struct {
	convRepo    *repository.ConversationRepo
	tenantRepo  *repository.TenantRepo
	mappingRepo *repository.AgentMappingRepo
	platformAPI *platform.Client
	tasks       *sync.TaskRunner
}

// NewConversationService creates a new ConversationService
func NewConversationService(repos *repository.Repositories, platformAPI *platform.Client, tasks *sync.TaskRunner) *ConversationService {
	return &ConversationService{
		convRepo:    repos.Conversation,
		tenantRepo:  repos.Tenant,
		mappingRepo: repos.AgentMapping,
		platformAPI: platformAPI,
		tasks:       tasks,
	}
}

// ListConversations lists mirrored conversations for a tenant
func (s *ConversationService) ListConversations(ctx context.Context, tenantId int64, status string, limit, offset int) ([]*entity.ConversationInfo, error) {
	convs, err := s.convRepo.ListByTenant(ctx, tenantId, status, limit, offset)
	if err != nil {
		log.CtxError(ctx, "list conversations failed: tenant_id=%d, error=%v", tenantId, err)
		return nil, errcode.ErrInternalServer
	}

	result := make([]*entity.ConversationInfo, 0, len(convs))
	for _, conv := range convs {
		result = append(result, conv.ToInfo())
	}
	return result, nil
}

// GetConversation gets one mirrored conversation by local id
func (s *ConversationService) GetConversation(ctx context.Context, tenantId, id int64) (*entity.ConversationInfo, error) {
	conv, err := s.convRepo.GetById(ctx, tenantId, id)
	if err != nil {
		log.CtxError(ctx, "get conversation failed: tenant_id=%d, id=%d, error=%v", tenantId, id, err)
		return nil, errcode.ErrInternalServer
	}
	if conv == nil {
		return nil, errcode.ErrConvNotFound
	}
	return conv.ToInfo(), nil
}

// AssignRequest represents a local assignment change
type AssignRequest struct {
	ConversationId int64  `json:"conversation_id"`
	AgentId        *int64 `json:"agent_id"` // null unassigns
}

// Assign records a local assignment and pushes it to the remote platform
// in the background. The local write is the operator's intent, not a sync
// observation, so it bypasses the staleness guard; the next webhook or
// sweep confirms it with a remote timestamp.
func (s *ConversationService) Assign(ctx context.Context, tenantId int64, req *AssignRequest) error {
	conv, err := s.convRepo.GetById(ctx, tenantId, req.ConversationId)
	if err != nil {
		log.CtxError(ctx, "load conversation failed: %v", err)
		return errcode.ErrInternalServer
	}
	if conv == nil {
		return errcode.ErrConvNotFound
	}

	if err := s.convRepo.UpdateAssignment(ctx, tenantId, conv.Id, req.AgentId); err != nil {
		log.CtxError(ctx, "update assignment failed: %v", err)
		return errcode.ErrInternalServer
	}

	s.dispatchRemoteAssign(ctx, tenantId, conv.RemoteConversationId, req.AgentId)
	return nil
}

// dispatchRemoteAssign pushes the assignment to the platform on a
// background worker; a failure there is corrected by the next sweep
func (s *ConversationService) dispatchRemoteAssign(ctx context.Context, tenantId, remoteConversationId int64, agentId *int64) {
	if s.tasks == nil || s.platformAPI == nil {
		return
	}

	s.tasks.Dispatch(ctx, sync.Task{
		Name: "remote-assign",
		Fn: func(taskCtx context.Context) error {
			tenant, err := s.tenantRepo.GetById(taskCtx, tenantId)
			if err != nil || tenant == nil {
				return err
			}

			var remoteAgentId int64
			if agentId != nil {
				mapping, err := s.mappingRepo.GetByLocalUser(taskCtx, tenantId, *agentId)
				if err != nil {
					return err
				}
				if mapping == nil {
					// No remote identity to assign to; sweep will reconcile
					log.CtxWarn(taskCtx, "assign skipped, agent has no mapping: tenant_id=%d, agent_id=%d", tenantId, *agentId)
					return nil
				}
				remoteAgentId = mapping.RemoteAgentId
			}

			cred := platform.Credential{AccountId: tenant.PlatformAccountId, Token: tenant.PlatformToken}
			return s.platformAPI.AssignConversation(taskCtx, cred, remoteConversationId, remoteAgentId)
		},
	})
}
