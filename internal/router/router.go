package router

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/websocket"

	"github.com/opencrmhq/chatbridge/internal/config"
	"github.com/opencrmhq/chatbridge/internal/gateway"
	"github.com/opencrmhq/chatbridge/internal/handler"
	"github.com/opencrmhq/chatbridge/internal/middleware"
	"github.com/opencrmhq/chatbridge/pkg/apikey"
	"github.com/opencrmhq/chatbridge/pkg/constant"
	"github.com/opencrmhq/chatbridge/pkg/ratelimit"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	Auth         *handler.AuthHandler
	Webhook      *handler.WebhookHandler
	Sync         *handler.SyncHandler
	Conversation *handler.ConversationHandler
	Stage        *handler.StageHandler
}

// Deps holds the cross-cutting pieces routes are built from
type Deps struct {
	TokenValidator  middleware.TokenValidator
	ApiKeyValidator *apikey.Validator
	Limiter         *ratelimit.Limiter
	Feed            *gateway.FeedServer
}

// SetupRouter sets up all routes
func SetupRouter(h *server.Hertz, handlers *Handlers, deps *Deps) {
	cfg := config.GlobalConfig

	// CORS middleware
	h.Use(middleware.CORS())

	// Health check
	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth routes (no auth required)
	authGroup := h.Group("/auth")
	{
		authGroup.POST("/register", handlers.Auth.Register)
		authGroup.POST("/login", handlers.Auth.Login)
		authGroup.POST("/logout", middleware.JWTAuth(deps.TokenValidator), handlers.Auth.Logout)
	}

	// Webhook ingestion (token in path, rate limited per token)
	webhookGroup := h.Group("/webhook", middleware.RateLimit(deps.Limiter, func(c *app.RequestContext) string {
		return c.Param("token")
	}))
	{
		webhookGroup.POST("/platform/:token", handlers.Webhook.Receive)
	}

	// Sync control routes (machine callers with sync scope)
	syncGroup := h.Group("/sync", middleware.ApiKeyAuth(deps.ApiKeyValidator, constant.ScopeSync))
	{
		syncGroup.POST("/sweep", handlers.Sync.Sweep)
		syncGroup.POST("/sweep/assignments", handlers.Sync.SweepAssignments)
		syncGroup.POST("/labels", handlers.Sync.SyncLabels)
		syncGroup.GET("/webhook/health", handlers.Sync.WebhookHealth)
	}

	// Conversation routes (agent auth required)
	convGroup := h.Group("/conversation", middleware.JWTAuth(deps.TokenValidator))
	{
		convGroup.GET("/list", handlers.Conversation.List)
		convGroup.GET("/info", handlers.Conversation.Get)
		convGroup.POST("/assign", handlers.Conversation.Assign)
	}

	// Stage routes (agent auth required)
	stageGroup := h.Group("/stage", middleware.JWTAuth(deps.TokenValidator))
	{
		stageGroup.POST("/create", handlers.Stage.Create)
		stageGroup.GET("/list", handlers.Stage.List)
		stageGroup.PUT("/update", handlers.Stage.Update)
	}

	// Live update feed with origin validation
	allowedOrigins := cfg.Server.AllowedOrigins
	upgrader := &websocket.HertzUpgrader{
		CheckOrigin: func(ctx *app.RequestContext) bool {
			return checkOrigin(ctx, allowedOrigins)
		},
	}

	h.GET("/feed", func(ctx context.Context, c *app.RequestContext) {
		deps.Feed.HandleConnection(ctx, c, upgrader)
	})
}

// checkOrigin validates the Origin header against allowed origins
func checkOrigin(ctx *app.RequestContext, allowedOrigins []string) bool {
	origin := string(ctx.Request.Header.Peek("Origin"))

	// If no origin header, allow (same-origin request or non-browser client)
	if origin == "" {
		return true
	}

	if len(allowedOrigins) == 0 {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			return true
		}
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}

	return false
}
