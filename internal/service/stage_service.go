package service

import (
	"context"
	"strings"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/internal/repository"
	"github.com/opencrmhq/chatbridge/internal/sync"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
)

// StageService manages local pipeline stages. Stage changes dispatch an
// async label sync so the remote platform picks up the new taxonomy.
type StageService struct {
	stageRepo   *repository.StageRepo
	labelSyncer *sync.LabelSyncer
	tasks       *sync.TaskRunner
}

// NewStageService creates a new StageService
func NewStageService(stageRepo *repository.StageRepo, labelSyncer *sync.LabelSyncer, tasks *sync.TaskRunner) *StageService {
	return &StageService{
		stageRepo:   stageRepo,
		labelSyncer: labelSyncer,
		tasks:       tasks,
	}
}

// CreateStageRequest represents stage creation
type CreateStageRequest struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Position int    `json:"position"`
}

// UpdateStageRequest represents stage update
type UpdateStageRequest struct {
	Name     *string `json:"name,omitempty"`
	Color    *string `json:"color,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// CreateStage creates a stage and schedules a label sync
func (s *StageService) CreateStage(ctx context.Context, tenantId int64, req *CreateStageRequest) (*entity.Stage, error) {
	if req.Name == "" {
		return nil, errcode.ErrInvalidParam
	}

	stage := &entity.Stage{
		TenantId: tenantId,
		Name:     req.Name,
		Slug:     Slugify(req.Name),
		Color:    req.Color,
		Position: req.Position,
	}

	if err := s.stageRepo.Create(ctx, stage); err != nil {
		log.CtxError(ctx, "create stage failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	s.dispatchLabelSync(ctx, tenantId)
	return stage, nil
}

// ListStages lists stages for a tenant
func (s *StageService) ListStages(ctx context.Context, tenantId int64) ([]*entity.Stage, error) {
	stages, err := s.stageRepo.ListByTenant(ctx, tenantId)
	if err != nil {
		log.CtxError(ctx, "list stages failed: %v", err)
		return nil, errcode.ErrInternalServer
	}
	return stages, nil
}

// UpdateStage updates a stage and schedules a label sync
func (s *StageService) UpdateStage(ctx context.Context, tenantId, stageId int64, req *UpdateStageRequest) error {
	stage, err := s.stageRepo.GetById(ctx, tenantId, stageId)
	if err != nil {
		log.CtxError(ctx, "load stage failed: %v", err)
		return errcode.ErrInternalServer
	}
	if stage == nil {
		return errcode.ErrStageNotFound
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
		updates["slug"] = Slugify(*req.Name)
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.stageRepo.Update(ctx, tenantId, stageId, updates); err != nil {
		log.CtxError(ctx, "update stage failed: %v", err)
		return errcode.ErrInternalServer
	}

	s.dispatchLabelSync(ctx, tenantId)
	return nil
}

// SyncLabels runs a label sync synchronously (on-demand trigger)
func (s *StageService) SyncLabels(ctx context.Context, tenantId int64) (*sync.LabelSyncResult, error) {
	return s.labelSyncer.SyncLabels(ctx, tenantId)
}

func (s *StageService) dispatchLabelSync(ctx context.Context, tenantId int64) {
	if s.tasks == nil {
		return
	}
	s.tasks.Dispatch(ctx, sync.Task{
		Name: "label-sync",
		Fn: func(taskCtx context.Context) error {
			_, err := s.labelSyncer.SyncLabels(taskCtx, tenantId)
			return err
		},
	})
}

// Slugify derives the label slug for a stage name
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}
