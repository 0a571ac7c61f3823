package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"

	"github.com/opencrmhq/chatbridge/pkg/constant"
)

// TenantMap tracks connected feed clients grouped by tenant. Online agent
// presence is mirrored into a Redis set per tenant so other instances and
// operational tooling can see who is watching the feed; Redis errors only
// degrade presence, never connectivity.
type TenantMap struct {
	mu      sync.RWMutex
	clients map[int64]map[string]*FeedClient // tenantId -> connId -> client
	rdb     *redis.Client
}

// NewTenantMap creates a new TenantMap
func NewTenantMap(rdb *redis.Client) *TenantMap {
	return &TenantMap{
		clients: make(map[int64]map[string]*FeedClient),
		rdb:     rdb,
	}
}

// Register adds a client
func (m *TenantMap) Register(ctx context.Context, client *FeedClient) {
	m.mu.Lock()
	conns, ok := m.clients[client.TenantId]
	if !ok {
		conns = make(map[string]*FeedClient)
		m.clients[client.TenantId] = conns
	}
	conns[client.ConnId] = client
	firstConn := m.userConnCountLocked(client.TenantId, client.UserId) == 1
	m.mu.Unlock()

	if firstConn {
		m.setPresence(ctx, client.TenantId, client.UserId, true)
	}
}

// Unregister removes a client
func (m *TenantMap) Unregister(ctx context.Context, client *FeedClient) {
	m.mu.Lock()
	if conns, ok := m.clients[client.TenantId]; ok {
		delete(conns, client.ConnId)
		if len(conns) == 0 {
			delete(m.clients, client.TenantId)
		}
	}
	lastConn := m.userConnCountLocked(client.TenantId, client.UserId) == 0
	m.mu.Unlock()

	if lastConn {
		m.setPresence(ctx, client.TenantId, client.UserId, false)
	}
}

// Clients returns a snapshot of all clients for a tenant
func (m *TenantMap) Clients(tenantId int64) []*FeedClient {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns, ok := m.clients[tenantId]
	if !ok {
		return nil
	}
	result := make([]*FeedClient, 0, len(conns))
	for _, client := range conns {
		result = append(result, client)
	}
	return result
}

func (m *TenantMap) userConnCountLocked(tenantId, userId int64) int {
	count := 0
	for _, client := range m.clients[tenantId] {
		if client.UserId == userId {
			count++
		}
	}
	return count
}

func (m *TenantMap) setPresence(ctx context.Context, tenantId, userId int64, online bool) {
	if m.rdb == nil {
		return
	}

	key := fmt.Sprintf(constant.RedisKeyFeedOnline(), tenantId)
	var err error
	if online {
		err = m.rdb.SAdd(ctx, key, userId).Err()
	} else {
		err = m.rdb.SRem(ctx, key, userId).Err()
	}
	if err != nil {
		log.CtxWarn(ctx, "update feed presence failed: tenant_id=%d, user_id=%d, error=%v", tenantId, userId, err)
	}
}
