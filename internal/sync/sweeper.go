package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/internal/config"
	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/internal/platform"
	"github.com/opencrmhq/chatbridge/pkg/constant"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
	"github.com/redis/go-redis/v9"
)

// ConversationLister is the slice of the platform API the sweeper pulls
// from
type ConversationLister interface {
	ListOpenConversations(ctx context.Context, cred platform.Credential, page int) (*platform.ConversationPage, error)
}

// SweepLocker serializes sweeps per tenant. Backed by Redis SetNX in
// production; nil disables locking.
type SweepLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// redisSweepLock implements SweepLocker on a Redis key with a TTL
type redisSweepLock struct {
	rdb *redis.Client
}

// NewRedisSweepLock creates a Redis-backed SweepLocker
func NewRedisSweepLock(rdb *redis.Client) SweepLocker {
	if rdb == nil {
		return nil
	}
	return &redisSweepLock{rdb: rdb}
}

func (l *redisSweepLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, time.Now().UnixMilli(), ttl).Result()
}

func (l *redisSweepLock) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, key).Err()
}

// TenantDirectory is the slice of tenant storage the sync package reads.
// Backed by repository.TenantRepo in production.
type TenantDirectory interface {
	GetById(ctx context.Context, id int64) (*entity.Tenant, error)
	ListAll(ctx context.Context) ([]*entity.Tenant, error)
}

// SweepResult counts what a sweep did
type SweepResult struct {
	Scanned int `json:"scanned"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// Sweeper reconstructs expected mirror state from a full read of the
// remote platform and pushes corrective deltas through the Writer. It is
// the correctness backstop for lost or out-of-order webhook deliveries.
type Sweeper struct {
	api     ConversationLister
	writer  *Writer
	tenants TenantDirectory
	locker  SweepLocker
	lockTTL time.Duration
}

// NewSweeper creates a new Sweeper. locker may be nil, which disables the
// per-tenant advisory lock.
func NewSweeper(api ConversationLister, writer *Writer, tenants TenantDirectory, locker SweepLocker, cfg *config.SyncConfig) *Sweeper {
	return &Sweeper{
		api:     api,
		writer:  writer,
		tenants: tenants,
		locker:  locker,
		lockTTL: cfg.SweepLockTTL,
	}
}

// Sweep runs a full reconciliation sweep for one tenant: status,
// assignment, preview, unread count.
func (s *Sweeper) Sweep(ctx context.Context, tenantId int64) (*SweepResult, error) {
	return s.sweep(ctx, tenantId, false)
}

// SweepAssignments runs the narrow variant that only corrects assignment
// drift, leaving previews and counters untouched.
func (s *Sweeper) SweepAssignments(ctx context.Context, tenantId int64) (*SweepResult, error) {
	return s.sweep(ctx, tenantId, true)
}

func (s *Sweeper) sweep(ctx context.Context, tenantId int64, assignmentsOnly bool) (*SweepResult, error) {
	tenant, err := s.tenants.GetById(ctx, tenantId)
	if err != nil {
		return nil, errcode.ErrInternalServer.Wrap(err)
	}
	if tenant == nil {
		return nil, errcode.ErrTenantNotFound
	}

	acquired, release := s.acquireLock(ctx, tenantId)
	if !acquired {
		return nil, errcode.ErrSweepInProgress
	}
	defer release()

	cred := platform.Credential{
		AccountId: tenant.PlatformAccountId,
		Token:     tenant.PlatformToken,
	}

	result := &SweepResult{}
	start := time.Now()

	// The remote decides the page size, so exhaustion is detected from the
	// listing itself: an empty page, or scanning past the reported total.
	for page := 1; ; page++ {
		pg, err := s.api.ListOpenConversations(ctx, cred, page)
		if err != nil {
			// Abort early, keep partial progress: every applied delta is
			// independently correct, the next sweep finishes the job.
			log.CtxError(ctx, "sweep pull failed: tenant_id=%d, page=%d, error=%v", tenantId, page, err)
			return result, errcode.ErrPlatformFailed.Wrap(err)
		}
		if len(pg.Conversations) == 0 {
			break
		}

		for _, rc := range pg.Conversations {
			result.Scanned++
			d := s.deltaFromRemote(tenantId, rc, assignmentsOnly)

			outcome, err := s.writer.Apply(ctx, d)
			if err != nil {
				log.CtxError(ctx, "sweep apply failed: tenant_id=%d, remote_conversation_id=%d, error=%v",
					tenantId, rc.Id, err)
				continue
			}
			if outcome == entity.OutcomeSkippedStale {
				result.Skipped++
			} else {
				result.Applied++
			}
		}

		if pg.AllCount > 0 && int64(result.Scanned) >= pg.AllCount {
			break
		}
	}

	log.CtxInfo(ctx, "sweep finished: tenant_id=%d, assignments_only=%v, scanned=%d, applied=%d, skipped=%d, took=%s",
		tenantId, assignmentsOnly, result.Scanned, result.Applied, result.Skipped, time.Since(start))
	return result, nil
}

// deltaFromRemote builds the corrective delta for one remote conversation.
// ObservedAt comes from the conversation's own last-activity timestamp, not
// poll time; the Writer's staleness guard depends on that to arbitrate
// against concurrent webhook deltas.
func (s *Sweeper) deltaFromRemote(tenantId int64, rc *platform.RemoteConversation, assignmentsOnly bool) *entity.ConversationDelta {
	d := &entity.ConversationDelta{
		TenantId:             tenantId,
		RemoteConversationId: rc.Id,
		Source:               constant.DeltaSourceSweep,
		ObservedAt:           secondsToMilli(rc.LastActivityAt),
		RemoteAssigneeId:     assigneeIdOf(rc.Meta.Assignee),
	}
	if assignmentsOnly {
		return d
	}

	if rc.Status != "" {
		status := rc.Status
		d.Status = &status
	}
	d.UnreadCount = &rc.UnreadCount
	if rc.LastNonActivityMessage != nil && !rc.LastNonActivityMessage.Private {
		preview := BuildPreview(rc.LastNonActivityMessage.Content, rc.LastNonActivityMessage.Attachments)
		if preview != "" {
			d.LastMessagePreview = &preview
		}
	}
	if rc.Meta.Sender != nil && rc.Meta.Sender.Name != "" {
		name := rc.Meta.Sender.Name
		d.ContactName = &name
	}
	return d
}

// acquireLock takes the per-tenant advisory sweep lock. Overlapping sweeps
// are wasteful, not unsafe, so lock failures on Redis errors fail open.
func (s *Sweeper) acquireLock(ctx context.Context, tenantId int64) (bool, func()) {
	if s.locker == nil {
		return true, func() {}
	}

	key := fmt.Sprintf(constant.RedisKeySweepLock(), tenantId)
	ok, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		log.CtxWarn(ctx, "sweep lock acquire failed, proceeding without: tenant_id=%d, error=%v", tenantId, err)
		return true, func() {}
	}
	if !ok {
		return false, func() {}
	}
	return true, func() {
		if err := s.locker.Release(ctx, key); err != nil {
			log.CtxWarn(ctx, "sweep lock release failed: tenant_id=%d, error=%v", tenantId, err)
		}
	}
}
