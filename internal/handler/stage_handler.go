package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/opencrmhq/chatbridge/internal/middleware"
	"github.com/opencrmhq/chatbridge/internal/service"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
	"github.com/opencrmhq/chatbridge/pkg/response"
)

// StageHandler handles pipeline stage requests
type StageHandler struct {
	stageService *service.StageService
}

// NewStageHandler creates a new StageHandler
func NewStageHandler(stageService *service.StageService) *StageHandler {
	return &StageHandler{stageService: stageService}
}

// Create handles stage creation request
func (h *StageHandler) Create(ctx context.Context, c *app.RequestContext) {
	tenantId := middleware.GetTenantId(c)
	if tenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.CreateStageRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	stage, err := h.stageService.CreateStage(ctx, tenantId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, stage)
}

// List handles stage list request
func (h *StageHandler) List(ctx context.Context, c *app.RequestContext) {
	tenantId := middleware.GetTenantId(c)
	if tenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	stages, err := h.stageService.ListStages(ctx, tenantId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, stages)
}

// Update handles stage update request
func (h *StageHandler) Update(ctx context.Context, c *app.RequestContext) {
	tenantId := middleware.GetTenantId(c)
	if tenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	stageId, err := strconv.ParseInt(c.Query("stage_id"), 10, 64)
	if err != nil || stageId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	var req service.UpdateStageRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.stageService.UpdateStage(ctx, tenantId, stageId, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}
