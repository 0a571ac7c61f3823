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

// ConversationHandler handles mirrored conversation requests
type ConversationHandler struct {
	convService *service.ConversationService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(convService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convService: convService}
}

// List handles the conversation list request
func (h *ConversationHandler) List(ctx context.Context, c *app.RequestContext) {
	tenantId := middleware.GetTenantId(c)
	if tenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	status := c.Query("status")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	convs, err := h.convService.ListConversations(ctx, tenantId, status, limit, offset)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, convs)
}

// Get handles the single conversation request
func (h *ConversationHandler) Get(ctx context.Context, c *app.RequestContext) {
	tenantId := middleware.GetTenantId(c)
	if tenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(c.Query("conversation_id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	conv, err := h.convService.GetConversation(ctx, tenantId, id)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, conv)
}

// Assign handles an assignment change request
func (h *ConversationHandler) Assign(ctx context.Context, c *app.RequestContext) {
	tenantId := middleware.GetTenantId(c)
	if tenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.AssignRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}
	if req.ConversationId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.Assign(ctx, tenantId, &req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// queryInt reads an integer query parameter with a default
func queryInt(c *app.RequestContext, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
