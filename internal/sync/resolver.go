package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/pkg/constant"
	"github.com/redis/go-redis/v9"
)

// mappingCacheTTL bounds how long a mapping lookup (hit or miss) is served
// from Redis before going back to MySQL
const mappingCacheTTL = 10 * time.Minute

// cacheMissMarker caches "no mapping exists" so absent mappings do not
// hammer the database on every webhook
const cacheMissMarker = "-"

// MappingSource is the persistent read path for agent identity mappings
type MappingSource interface {
	GetByRemoteAgent(ctx context.Context, tenantId, remoteAgentId int64) (*entity.AgentMapping, error)
}

// Resolver maps remote agent ids to local agent ids. Pure lookup: it never
// creates mappings, and a missing mapping is a valid result ("unassigned"),
// not an error.
type Resolver struct {
	mappings MappingSource
	rdb      *redis.Client
}

// NewResolver creates a new Resolver. rdb may be nil to disable caching.
func NewResolver(mappings MappingSource, rdb *redis.Client) *Resolver {
	return &Resolver{mappings: mappings, rdb: rdb}
}

// Resolve returns the local agent id mapped to a remote agent id within a
// tenant. ok is false when no mapping exists.
func (r *Resolver) Resolve(ctx context.Context, tenantId, remoteAgentId int64) (localUserId int64, ok bool, err error) {
	if remoteAgentId == 0 {
		return 0, false, nil
	}

	if id, found, hit := r.cacheGet(ctx, tenantId, remoteAgentId); hit {
		return id, found, nil
	}

	mapping, err := r.mappings.GetByRemoteAgent(ctx, tenantId, remoteAgentId)
	if err != nil {
		return 0, false, fmt.Errorf("mapping lookup failed: %w", err)
	}

	if mapping == nil {
		r.cacheSet(ctx, tenantId, remoteAgentId, cacheMissMarker)
		return 0, false, nil
	}

	r.cacheSet(ctx, tenantId, remoteAgentId, strconv.FormatInt(mapping.LocalUserId, 10))
	return mapping.LocalUserId, true, nil
}

func (r *Resolver) cacheKey(tenantId, remoteAgentId int64) string {
	return fmt.Sprintf(constant.RedisKeyAgentMapping(), tenantId, remoteAgentId)
}

// cacheGet returns (id, found, hit); hit is false on miss or Redis error
func (r *Resolver) cacheGet(ctx context.Context, tenantId, remoteAgentId int64) (int64, bool, bool) {
	if r.rdb == nil {
		return 0, false, false
	}

	val, err := r.rdb.Get(ctx, r.cacheKey(tenantId, remoteAgentId)).Result()
	if err == redis.Nil {
		return 0, false, false
	}
	if err != nil {
		log.CtxWarn(ctx, "mapping cache read failed: %v", err)
		return 0, false, false
	}

	if val == cacheMissMarker {
		return 0, false, true
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, false
	}
	return id, true, true
}

func (r *Resolver) cacheSet(ctx context.Context, tenantId, remoteAgentId int64, val string) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Set(ctx, r.cacheKey(tenantId, remoteAgentId), val, mappingCacheTTL).Err(); err != nil {
		log.CtxWarn(ctx, "mapping cache write failed: %v", err)
	}
}
