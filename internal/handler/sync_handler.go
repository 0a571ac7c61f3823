package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/opencrmhq/chatbridge/internal/middleware"
	"github.com/opencrmhq/chatbridge/internal/service"
	"github.com/opencrmhq/chatbridge/internal/sync"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
	"github.com/opencrmhq/chatbridge/pkg/response"
)

// SyncHandler exposes on-demand reconciliation triggers and webhook health.
// These routes are machine-facing and sit behind API key auth; the tenant
// comes from the authenticated key.
type SyncHandler struct {
	sweeper       *sync.Sweeper
	stageService  *service.StageService
	ingestService *service.IngestService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sweeper *sync.Sweeper, stageService *service.StageService, ingestService *service.IngestService) *SyncHandler {
	return &SyncHandler{
		sweeper:       sweeper,
		stageService:  stageService,
		ingestService: ingestService,
	}
}

// Sweep handles an on-demand full reconciliation sweep
func (h *SyncHandler) Sweep(ctx context.Context, c *app.RequestContext) {
	tenantId := middleware.GetTenantId(c)
	if tenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	result, err := h.sweeper.Sweep(ctx, tenantId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// SweepAssignments handles an on-demand assignment-only sweep
func (h *SyncHandler) SweepAssignments(ctx context.Context, c *app.RequestContext) {
	tenantId := middleware.GetTenantId(c)
	if tenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	result, err := h.sweeper.SweepAssignments(ctx, tenantId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// SyncLabels handles an on-demand stage to label sync
func (h *SyncHandler) SyncLabels(ctx context.Context, c *app.RequestContext) {
	tenantId := middleware.GetTenantId(c)
	if tenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	result, err := h.stageService.SyncLabels(ctx, tenantId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// WebhookHealth handles the webhook ingestion health report
func (h *SyncHandler) WebhookHealth(ctx context.Context, c *app.RequestContext) {
	response.Success(ctx, c, h.ingestService.Health())
}
