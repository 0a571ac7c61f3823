package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrmhq/chatbridge/internal/config"
	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/internal/platform"
	"github.com/opencrmhq/chatbridge/pkg/constant"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
)

// memTenants is an in-memory TenantDirectory
type memTenants struct {
	tenants map[int64]*entity.Tenant
}

func (m *memTenants) GetById(ctx context.Context, id int64) (*entity.Tenant, error) {
	return m.tenants[id], nil
}

func (m *memTenants) ListAll(ctx context.Context) ([]*entity.Tenant, error) {
	result := make([]*entity.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		result = append(result, t)
	}
	return result, nil
}

// memLister serves canned conversation pages at a fixed remote-side page
// size, echoing allCount in every page like the real listing endpoint
type memLister struct {
	pages    [][]*platform.RemoteConversation
	allCount int64
	failOn   int // page number that errors, 0 disables
	calls    int
}

func (m *memLister) ListOpenConversations(ctx context.Context, cred platform.Credential, page int) (*platform.ConversationPage, error) {
	m.calls++
	if m.failOn > 0 && page == m.failOn {
		return nil, errors.New("upstream 502")
	}
	pg := &platform.ConversationPage{AllCount: m.allCount}
	if page <= len(m.pages) {
		pg.Conversations = m.pages[page-1]
	}
	return pg, nil
}

// memLocker is an in-memory SweepLocker
type memLocker struct {
	held     bool
	err      error
	acquired []string
	released []string
}

func (m *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.acquired = append(m.acquired, key)
	if m.err != nil {
		return false, m.err
	}
	return !m.held, nil
}

func (m *memLocker) Release(ctx context.Context, key string) error {
	m.released = append(m.released, key)
	return nil
}

func remoteConv(id, lastActivity int64, status string, assignee *platform.RemoteAgent) *platform.RemoteConversation {
	return &platform.RemoteConversation{
		Id:             id,
		Status:         status,
		LastActivityAt: lastActivity,
		Meta:           platform.RemoteConversationMeta{Assignee: assignee},
	}
}

func newTestSweeper(lister *memLister, mappings map[[2]int64]int64) (*Sweeper, *memStore) {
	return newLockedTestSweeper(lister, mappings, nil)
}

func newLockedTestSweeper(lister *memLister, mappings map[[2]int64]int64, locker SweepLocker) (*Sweeper, *memStore) {
	writer, store, _ := newTestWriter(mappings)
	tenants := &memTenants{tenants: map[int64]*entity.Tenant{
		1: {Id: 1, PlatformAccountId: 11, PlatformToken: "tok"},
	}}
	cfg := &config.SyncConfig{SweepLockTTL: time.Minute}
	return NewSweeper(lister, writer, tenants, locker, cfg), store
}

func TestSweeper_PaginatesAndApplies(t *testing.T) {
	lister := &memLister{
		pages: [][]*platform.RemoteConversation{
			{
				remoteConv(101, 1700000000, "open", &platform.RemoteAgent{Id: 9}),
				remoteConv(102, 1700000100, "open", nil),
			},
			{
				remoteConv(103, 1700000200, "open", nil),
			},
		},
		allCount: 3,
	}

	sweeper, store := newTestSweeper(lister, map[[2]int64]int64{{1, 9}: 501})

	result, err := sweeper.Sweep(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 3, result.Applied)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 2, lister.calls, "stops once the reported total is scanned")

	row := store.get(1, 101)
	require.NotNil(t, row)
	require.NotNil(t, row.AssignedAgentId)
	assert.Equal(t, int64(501), *row.AssignedAgentId)
	assert.Equal(t, int64(1700000000000), row.LastActivityAt)
	assert.Nil(t, store.get(1, 102).AssignedAgentId)
}

func TestSweeper_FullPagesSweepEveryConversation(t *testing.T) {
	// The remote pages at its own size, so a full last page must not be
	// mistaken for the end of the listing.
	lister := &memLister{
		pages: [][]*platform.RemoteConversation{
			{
				remoteConv(101, 1700000000, "open", nil),
				remoteConv(102, 1700000100, "open", nil),
			},
			{
				remoteConv(103, 1700000200, "open", nil),
				remoteConv(104, 1700000300, "open", nil),
			},
			{
				remoteConv(105, 1700000400, "open", nil),
				remoteConv(106, 1700000500, "open", nil),
			},
		},
		allCount: 6,
	}

	sweeper, store := newTestSweeper(lister, nil)

	result, err := sweeper.Sweep(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Scanned)
	assert.Equal(t, 6, result.Applied)
	assert.Equal(t, 3, lister.calls)
	assert.NotNil(t, store.get(1, 106), "last page swept")
}

func TestSweeper_MissingTotalStopsOnEmptyPage(t *testing.T) {
	lister := &memLister{
		pages: [][]*platform.RemoteConversation{
			{remoteConv(101, 1700000000, "open", nil)},
		},
	}
	sweeper, _ := newTestSweeper(lister, nil)

	result, err := sweeper.Sweep(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 2, lister.calls, "walks one page past the last to see it empty")
}

func TestSweeper_StaleRemoteStateSkipped(t *testing.T) {
	lister := &memLister{
		pages: [][]*platform.RemoteConversation{
			{remoteConv(101, 1700000000, "open", nil)},
		},
		allCount: 1,
	}
	sweeper, store := newTestSweeper(lister, nil)

	// Mirror already holds newer state from a webhook
	fresh := webhookDelta(101, 1700000060000)
	fresh.Status = strPtr(constant.ConvStatusResolved)
	_, err := sweeper.writer.Apply(context.Background(), fresh)
	require.NoError(t, err)

	result, err := sweeper.Sweep(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 0, result.Applied)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, constant.ConvStatusResolved, store.get(1, 101).Status)
}

func TestSweeper_PartialProgressOnRemoteFailure(t *testing.T) {
	lister := &memLister{
		pages: [][]*platform.RemoteConversation{
			{
				remoteConv(101, 1700000000, "open", nil),
				remoteConv(102, 1700000100, "open", nil),
			},
			{remoteConv(103, 1700000200, "open", nil)},
		},
		allCount: 3,
		failOn:   2,
	}
	sweeper, store := newTestSweeper(lister, nil)

	result, err := sweeper.Sweep(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errcode.ErrPlatformFailed)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Scanned, "first page applied before the failure")
	assert.NotNil(t, store.get(1, 101))
	assert.Nil(t, store.get(1, 103), "failed page never applied")
}

func TestSweeper_UnknownTenant(t *testing.T) {
	sweeper, _ := newTestSweeper(&memLister{}, nil)
	_, err := sweeper.Sweep(context.Background(), 999)
	assert.ErrorIs(t, err, errcode.ErrTenantNotFound)
}

func TestSweeper_LockHeldSkipsSweep(t *testing.T) {
	lister := &memLister{
		pages: [][]*platform.RemoteConversation{
			{remoteConv(101, 1700000000, "open", nil)},
		},
		allCount: 1,
	}
	locker := &memLocker{held: true}
	sweeper, _ := newLockedTestSweeper(lister, nil, locker)

	_, err := sweeper.Sweep(context.Background(), 1)
	assert.ErrorIs(t, err, errcode.ErrSweepInProgress)
	assert.Equal(t, 0, lister.calls, "no remote pull while another sweep holds the lock")
	assert.Empty(t, locker.released, "a lock we never held must not be released")
}

func TestSweeper_LockErrorFailsOpen(t *testing.T) {
	lister := &memLister{
		pages: [][]*platform.RemoteConversation{
			{remoteConv(101, 1700000000, "open", nil)},
		},
		allCount: 1,
	}
	locker := &memLocker{err: errors.New("redis down")}
	sweeper, store := newLockedTestSweeper(lister, nil, locker)

	result, err := sweeper.Sweep(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.NotNil(t, store.get(1, 101))
	assert.Empty(t, locker.released)
}

func TestSweeper_LockAcquiredAndReleased(t *testing.T) {
	lister := &memLister{
		pages: [][]*platform.RemoteConversation{
			{remoteConv(101, 1700000000, "open", nil)},
		},
		allCount: 1,
	}
	locker := &memLocker{}
	sweeper, _ := newLockedTestSweeper(lister, nil, locker)

	_, err := sweeper.Sweep(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, locker.acquired, 1)
	require.Len(t, locker.released, 1)
	assert.Equal(t, locker.acquired[0], locker.released[0])
	assert.Contains(t, locker.acquired[0], "sweep:lock:1")
}

func TestSweeper_AssignmentsOnlyLeavesContentAlone(t *testing.T) {
	lister := &memLister{
		pages: [][]*platform.RemoteConversation{
			{remoteConv(101, 1700000100, "resolved", &platform.RemoteAgent{Id: 9})},
		},
		allCount: 1,
	}
	sweeper, store := newTestSweeper(lister, map[[2]int64]int64{{1, 9}: 501})

	// Seed the mirror with older state carrying a preview
	seed := webhookDelta(101, 1700000000000)
	seed.Status = strPtr(constant.ConvStatusOpen)
	seed.LastMessagePreview = strPtr("mensagem antiga")
	_, err := sweeper.writer.Apply(context.Background(), seed)
	require.NoError(t, err)

	result, err := sweeper.SweepAssignments(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)

	row := store.get(1, 101)
	require.NotNil(t, row.AssignedAgentId)
	assert.Equal(t, int64(501), *row.AssignedAgentId)
	assert.Equal(t, constant.ConvStatusOpen, row.Status, "narrow sweep must not touch status")
	assert.Equal(t, "mensagem antiga", row.LastMessagePreview)
}
