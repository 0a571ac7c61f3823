package gateway

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"

	"github.com/opencrmhq/chatbridge/internal/config"
	"github.com/opencrmhq/chatbridge/internal/middleware"
	"github.com/opencrmhq/chatbridge/internal/sync"
)

// FeedServer streams mirror updates to connected CRM agents over
// WebSocket. It implements sync.Pusher; the Writer hands it every
// created/updated outcome and the feed fans the event out to all
// connections of the conversation's tenant.
type FeedServer struct {
	cfg            *config.Config
	validator      middleware.TokenValidator
	tenantMap      *TenantMap
	registerChan   chan *FeedClient
	unregisterChan chan *FeedClient
	pushChan       chan *sync.ConversationUpdate
	onlineConnNum  atomic.Int64
	maxConnNum     int64
}

// NewFeedServer creates a new FeedServer
func NewFeedServer(cfg *config.Config, rdb *redis.Client, validator middleware.TokenValidator) *FeedServer {
	return &FeedServer{
		cfg:            cfg,
		validator:      validator,
		tenantMap:      NewTenantMap(rdb),
		registerChan:   make(chan *FeedClient, 1000),
		unregisterChan: make(chan *FeedClient, 1000),
		pushChan:       make(chan *sync.ConversationUpdate, cfg.Feed.PushChannelSize),
		maxConnNum:     cfg.Feed.MaxConnNum,
	}
}

// Run starts the event loop and push workers
func (s *FeedServer) Run(ctx context.Context) {
	go s.eventLoop(ctx)

	workerNum := s.cfg.Feed.PushWorkerNum
	if workerNum <= 0 {
		workerNum = 4
	}
	for i := 0; i < workerNum; i++ {
		go s.pushLoop(ctx)
	}
	log.CtxInfo(ctx, "feed started: push_workers=%d", workerNum)
}

// PushConversationUpdate implements sync.Pusher. It never blocks the
// writer; a full channel drops the event, the next sweep or webhook for
// the conversation produces a fresh one.
func (s *FeedServer) PushConversationUpdate(ctx context.Context, update *sync.ConversationUpdate) {
	select {
	case s.pushChan <- update:
	default:
		log.CtxWarn(ctx, "feed push channel full, dropping update: tenant_id=%d, remote_conversation_id=%d",
			update.TenantId, update.RemoteConversationId)
	}
}

// HandleConnection upgrades a feed connection on GET /feed?token=...
func (s *FeedServer) HandleConnection(ctx context.Context, c *app.RequestContext, upgrader *websocket.HertzUpgrader) {
	if s.onlineConnNum.Load() >= s.maxConnNum {
		c.String(503, "connection limit exceeded")
		return
	}

	token := string(c.Query("token"))
	if token == "" {
		c.String(400, "missing token")
		return
	}

	claims, err := s.validator.ValidateToken(ctx, token)
	if err != nil {
		log.CtxDebug(ctx, "feed token validation failed: %v", err)
		c.String(401, "unauthorized")
		return
	}

	err = upgrader.Upgrade(c, func(conn *websocket.Conn) {
		client := NewFeedClient(conn, claims.UserId, claims.TenantId, uuid.New().String(), s)
		s.registerChan <- client
		client.run()
	})
	if err != nil {
		log.CtxWarn(ctx, "feed upgrade failed: %v", err)
	}
}

// unregister queues a client for removal
func (s *FeedServer) unregister(client *FeedClient) {
	select {
	case s.unregisterChan <- client:
	default:
		log.Warn("feed unregister channel full: user_id=%d", client.UserId)
	}
}

func (s *FeedServer) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-s.registerChan:
			s.tenantMap.Register(ctx, client)
			s.onlineConnNum.Add(1)
			log.CtxInfo(ctx, "feed client connected: tenant_id=%d, user_id=%d, conn_id=%s, online_conns=%d",
				client.TenantId, client.UserId, client.ConnId, s.onlineConnNum.Load())
		case client := <-s.unregisterChan:
			s.tenantMap.Unregister(ctx, client)
			s.onlineConnNum.Add(-1)
			log.CtxInfo(ctx, "feed client disconnected: tenant_id=%d, user_id=%d, conn_id=%s, online_conns=%d",
				client.TenantId, client.UserId, client.ConnId, s.onlineConnNum.Load())
		}
	}
}

func (s *FeedServer) pushLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-s.pushChan:
			s.fanOut(ctx, update)
		}
	}
}

func (s *FeedServer) fanOut(ctx context.Context, update *sync.ConversationUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		log.CtxError(ctx, "marshal feed update failed: %v", err)
		return
	}

	for _, client := range s.tenantMap.Clients(update.TenantId) {
		if err := client.Send(data); err != nil {
			log.CtxDebug(ctx, "feed push failed: user_id=%d, conn_id=%s, error=%v",
				client.UserId, client.ConnId, err)
		}
	}
}
