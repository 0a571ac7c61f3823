package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/mbeoliero/kit/log"

	"github.com/opencrmhq/chatbridge/internal/config"
	"github.com/opencrmhq/chatbridge/internal/gateway"
	"github.com/opencrmhq/chatbridge/internal/handler"
	"github.com/opencrmhq/chatbridge/internal/platform"
	"github.com/opencrmhq/chatbridge/internal/repository"
	"github.com/opencrmhq/chatbridge/internal/router"
	"github.com/opencrmhq/chatbridge/internal/service"
	"github.com/opencrmhq/chatbridge/internal/sync"
	"github.com/opencrmhq/chatbridge/pkg/apikey"
	"github.com/opencrmhq/chatbridge/pkg/constant"
	"github.com/opencrmhq/chatbridge/pkg/ratelimit"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	log.CtxInfo(ctx, "config loaded: mode=%s", cfg.Server.Mode)

	// Initialize Redis key prefix
	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)
	log.CtxInfo(ctx, "redis key prefix: %s", constant.GetRedisKeyPrefix())

	// Initialize repositories
	repos, err := repository.NewRepositories(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize repositories: %v", err)
		panic(err)
	}
	defer repos.Close()

	// Check database connection
	if err := repos.CheckConnection(ctx); err != nil {
		log.CtxError(ctx, "database connection check failed: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "database connection established")

	// Remote platform client
	platformAPI, err := platform.NewClient(&cfg.Platform)
	if err != nil {
		log.CtxError(ctx, "failed to initialize platform client: %v", err)
		panic(err)
	}

	// Background task runner for fire-and-forget side calls
	tasks := sync.NewTaskRunner(cfg.Sync.TaskQueueSize, cfg.Sync.TaskWorkerNum)
	tasks.Run(ctx)

	// Reconciliation pipeline
	resolver := sync.NewResolver(repos.AgentMapping, repos.Redis)
	writer := sync.NewWriter(repos.Conversation, resolver)
	sweeper := sync.NewSweeper(platformAPI, writer, repos.Tenant, sync.NewRedisSweepLock(repos.Redis), &cfg.Sync)
	labelSyncer := sync.NewLabelSyncer(platformAPI, repos.Stage, repos.Tenant)
	health := sync.NewWebhookHealth(cfg.Sync.HealthWindowSize, cfg.Sync.HealthMaxFailed)

	// Initialize services
	authService := service.NewAuthService(repos, cfg, platformAPI, tasks)
	convService := service.NewConversationService(repos, platformAPI, tasks)
	ingestService := service.NewIngestService(repos.Tenant, writer, health)
	stageService := service.NewStageService(repos.Stage, labelSyncer, tasks)

	// Live update feed
	feed := gateway.NewFeedServer(cfg, repos.Redis, authService)
	writer.SetPusher(feed)
	feed.Run(ctx)

	// Periodic sweep scheduler
	scheduler := sync.NewScheduler(sweeper, repos.Tenant, cfg.Sync.SweepInterval, cfg.Sync.SweepWorkerNum)
	go scheduler.Run(ctx)

	// Initialize handlers
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Webhook:      handler.NewWebhookHandler(ingestService),
		Sync:         handler.NewSyncHandler(sweeper, stageService, ingestService),
		Conversation: handler.NewConversationHandler(convService),
		Stage:        handler.NewStageHandler(stageService),
	}

	deps := &router.Deps{
		TokenValidator:  authService,
		ApiKeyValidator: apikey.NewValidator(repos.ApiKey),
		Limiter:         ratelimit.NewLimiter(repos.Redis, cfg.RateLimit.Window, cfg.RateLimit.Max),
		Feed:            feed,
	}

	// Create Hertz server
	h := server.Default(
		server.WithHostPorts(fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
	)

	// Setup routes
	router.SetupRouter(h, handlers, deps)

	log.CtxInfo(ctx, "server starting on port %d", cfg.Server.HTTPPort)

	// Start server in goroutine
	go func() {
		h.Spin()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down server...")

	// Stop scheduler, task runner and feed workers
	cancel()

	// Graceful shutdown
	if err := h.Shutdown(context.Background()); err != nil {
		log.CtxError(ctx, "server shutdown error: %v", err)
	}

	log.CtxInfo(ctx, "server stopped")
}
