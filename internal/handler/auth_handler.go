package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/opencrmhq/chatbridge/internal/middleware"
	"github.com/opencrmhq/chatbridge/internal/service"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
	"github.com/opencrmhq/chatbridge/pkg/response"
)

// AuthHandler handles agent authentication requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles agent registration request
func (h *AuthHandler) Register(ctx context.Context, c *app.RequestContext) {
	var req service.RegisterRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}
	if req.Email == "" || req.Password == "" || req.TenantId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	info, err := h.authService.Register(ctx, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// Login handles agent login request
func (h *AuthHandler) Login(ctx context.Context, c *app.RequestContext) {
	var req service.LoginRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}
	if req.Email == "" || req.Password == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	resp, err := h.authService.Login(ctx, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

// Logout handles agent logout request
func (h *AuthHandler) Logout(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == 0 {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	if err := h.authService.Logout(ctx, userId, middleware.GetToken(c)); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}
