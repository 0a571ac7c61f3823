package sync

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/pkg/constant"
)

// memStore mirrors the repository's guarded upsert in memory: a delta
// older than the stored last activity is skipped, everything else merges.
type memStore struct {
	mu   sync.Mutex
	rows map[[2]int64]*entity.Conversation
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[[2]int64]*entity.Conversation)}
}

func (s *memStore) ApplyDelta(ctx context.Context, d *entity.ConversationDelta, assigneeTouched bool, assigneeId *int64) (entity.WriteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]int64{d.TenantId, d.RemoteConversationId}
	row, ok := s.rows[key]
	if !ok {
		row = &entity.Conversation{
			TenantId:             d.TenantId,
			RemoteConversationId: d.RemoteConversationId,
			AssignedAgentId:      assigneeId,
			LastActivityAt:       d.ObservedAt,
		}
		s.merge(row, d, false, nil)
		s.rows[key] = row
		return entity.OutcomeCreated, nil
	}

	if d.ObservedAt < row.LastActivityAt {
		return entity.OutcomeSkippedStale, nil
	}

	row.LastActivityAt = d.ObservedAt
	s.merge(row, d, assigneeTouched, assigneeId)
	return entity.OutcomeUpdated, nil
}

func (s *memStore) merge(row *entity.Conversation, d *entity.ConversationDelta, assigneeTouched bool, assigneeId *int64) {
	if d.Status != nil {
		row.Status = *d.Status
	}
	if assigneeTouched {
		row.AssignedAgentId = assigneeId
	}
	if d.LastMessagePreview != nil {
		row.LastMessagePreview = *d.LastMessagePreview
	}
	if d.UnreadCount != nil {
		row.UnreadCount = *d.UnreadCount
	}
	if d.ContactName != nil {
		row.ContactName = *d.ContactName
	}
}

func (s *memStore) get(tenantId, remoteId int64) *entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[[2]int64{tenantId, remoteId}]
}

// memMappings is an in-memory MappingSource
type memMappings struct {
	byRemote map[[2]int64]int64 // (tenantId, remoteAgentId) -> localUserId
}

func (m *memMappings) GetByRemoteAgent(ctx context.Context, tenantId, remoteAgentId int64) (*entity.AgentMapping, error) {
	local, ok := m.byRemote[[2]int64{tenantId, remoteAgentId}]
	if !ok {
		return nil, nil
	}
	return &entity.AgentMapping{TenantId: tenantId, LocalUserId: local, RemoteAgentId: remoteAgentId}, nil
}

// memPusher records feed notifications
type memPusher struct {
	updates []*ConversationUpdate
}

func (p *memPusher) PushConversationUpdate(ctx context.Context, update *ConversationUpdate) {
	p.updates = append(p.updates, update)
}

func newTestWriter(mappings map[[2]int64]int64) (*Writer, *memStore, *memPusher) {
	store := newMemStore()
	resolver := NewResolver(&memMappings{byRemote: mappings}, nil)
	w := NewWriter(store, resolver)
	pusher := &memPusher{}
	w.SetPusher(pusher)
	return w, store, pusher
}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func webhookDelta(remoteId, observedAt int64) *entity.ConversationDelta {
	return &entity.ConversationDelta{
		TenantId:             1,
		RemoteConversationId: remoteId,
		Source:               constant.DeltaSourceWebhook,
		ObservedAt:           observedAt,
	}
}

func TestWriter_LazyCreation(t *testing.T) {
	w, store, pusher := newTestWriter(nil)
	ctx := context.Background()

	d := webhookDelta(42, 1000)
	d.Status = strPtr(constant.ConvStatusOpen)
	d.LastMessagePreview = strPtr("oi")

	outcome, err := w.Apply(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeCreated, outcome)

	row := store.get(1, 42)
	require.NotNil(t, row)
	assert.Equal(t, constant.ConvStatusOpen, row.Status)
	assert.Equal(t, "oi", row.LastMessagePreview)
	assert.Equal(t, int64(1000), row.LastActivityAt)

	require.Len(t, pusher.updates, 1)
	assert.Equal(t, entity.OutcomeCreated, pusher.updates[0].Outcome)
}

func TestWriter_Idempotence(t *testing.T) {
	w, store, _ := newTestWriter(nil)
	ctx := context.Background()

	d := webhookDelta(42, 1000)
	d.Status = strPtr(constant.ConvStatusResolved)
	d.UnreadCount = i64Ptr(2)

	_, err := w.Apply(ctx, d)
	require.NoError(t, err)
	first := *store.get(1, 42)

	// Same delta redelivered (webhook retry)
	outcome, err := w.Apply(ctx, webhookDeltaCopy(d))
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeUpdated, outcome, "equal timestamps pass the guard")

	second := *store.get(1, 42)
	assert.Equal(t, first, second, "redelivery must not change state")
}

func webhookDeltaCopy(d *entity.ConversationDelta) *entity.ConversationDelta {
	cp := *d
	return &cp
}

func TestWriter_Commutativity(t *testing.T) {
	ctx := context.Background()

	makeA := func() *entity.ConversationDelta {
		d := webhookDelta(42, 1000)
		d.Status = strPtr(constant.ConvStatusOpen)
		d.LastMessagePreview = strPtr("primeira")
		return d
	}
	makeB := func() *entity.ConversationDelta {
		d := webhookDelta(42, 2000)
		d.Status = strPtr(constant.ConvStatusResolved)
		d.LastMessagePreview = strPtr("segunda")
		return d
	}

	w1, s1, _ := newTestWriter(nil)
	_, err := w1.Apply(ctx, makeA())
	require.NoError(t, err)
	_, err = w1.Apply(ctx, makeB())
	require.NoError(t, err)

	w2, s2, _ := newTestWriter(nil)
	_, err = w2.Apply(ctx, makeB())
	require.NoError(t, err)
	_, err = w2.Apply(ctx, makeA())
	require.NoError(t, err)

	r1, r2 := s1.get(1, 42), s2.get(1, 42)
	assert.Equal(t, r1.Status, r2.Status)
	assert.Equal(t, r1.LastMessagePreview, r2.LastMessagePreview)
	assert.Equal(t, r1.LastActivityAt, r2.LastActivityAt)
	assert.Equal(t, constant.ConvStatusResolved, r1.Status, "newer delta wins either way")
	assert.Equal(t, "segunda", r1.LastMessagePreview)
}

func TestWriter_StaleDeltaSkipped(t *testing.T) {
	w, store, pusher := newTestWriter(nil)
	ctx := context.Background()

	fresh := webhookDelta(42, 2000)
	fresh.Status = strPtr(constant.ConvStatusResolved)
	_, err := w.Apply(ctx, fresh)
	require.NoError(t, err)

	stale := webhookDelta(42, 1000)
	stale.Status = strPtr(constant.ConvStatusOpen)
	stale.Source = constant.DeltaSourceSweep

	outcome, err := w.Apply(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeSkippedStale, outcome)

	row := store.get(1, 42)
	assert.Equal(t, constant.ConvStatusResolved, row.Status, "stale sweep must not resurrect old status")
	assert.Len(t, pusher.updates, 1, "skipped writes never reach the feed")
}

// Webhook at T+60 races a sweep that observed the conversation at T: the
// sweep delta loses regardless of arrival order.
func TestWriter_WebhookSweepRace(t *testing.T) {
	ctx := context.Background()
	base := int64(1_700_000_000_000)

	webhook := func() *entity.ConversationDelta {
		d := webhookDelta(42, base+60_000)
		d.Status = strPtr(constant.ConvStatusResolved)
		return d
	}
	sweep := func() *entity.ConversationDelta {
		d := webhookDelta(42, base)
		d.Source = constant.DeltaSourceSweep
		d.Status = strPtr(constant.ConvStatusOpen)
		return d
	}

	t.Run("sweep lands second", func(t *testing.T) {
		w, store, _ := newTestWriter(nil)
		_, err := w.Apply(ctx, webhook())
		require.NoError(t, err)
		outcome, err := w.Apply(ctx, sweep())
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeSkippedStale, outcome)
		assert.Equal(t, constant.ConvStatusResolved, store.get(1, 42).Status)
	})

	t.Run("sweep lands first", func(t *testing.T) {
		w, store, _ := newTestWriter(nil)
		_, err := w.Apply(ctx, sweep())
		require.NoError(t, err)
		outcome, err := w.Apply(ctx, webhook())
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeUpdated, outcome)
		assert.Equal(t, constant.ConvStatusResolved, store.get(1, 42).Status)
	})
}

func TestWriter_AssigneeResolution(t *testing.T) {
	ctx := context.Background()
	mappings := map[[2]int64]int64{{1, 9}: 501}

	t.Run("mapped agent resolves to local id", func(t *testing.T) {
		w, store, _ := newTestWriter(mappings)
		d := webhookDelta(42, 1000)
		d.RemoteAssigneeId = i64Ptr(9)
		_, err := w.Apply(ctx, d)
		require.NoError(t, err)

		row := store.get(1, 42)
		require.NotNil(t, row.AssignedAgentId)
		assert.Equal(t, int64(501), *row.AssignedAgentId)
	})

	t.Run("explicit unassign clears assignment", func(t *testing.T) {
		w, store, _ := newTestWriter(mappings)
		d := webhookDelta(42, 1000)
		d.RemoteAssigneeId = i64Ptr(9)
		_, err := w.Apply(ctx, d)
		require.NoError(t, err)

		d2 := webhookDelta(42, 2000)
		d2.RemoteAssigneeId = i64Ptr(0)
		_, err = w.Apply(ctx, d2)
		require.NoError(t, err)

		assert.Nil(t, store.get(1, 42).AssignedAgentId)
	})

	t.Run("unmapped agent persists unassigned", func(t *testing.T) {
		w, store, _ := newTestWriter(mappings)
		d := webhookDelta(42, 1000)
		d.RemoteAssigneeId = i64Ptr(999)
		outcome, err := w.Apply(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeCreated, outcome)
		assert.Nil(t, store.get(1, 42).AssignedAgentId)
	})

	t.Run("absent assignee field leaves assignment untouched", func(t *testing.T) {
		w, store, _ := newTestWriter(mappings)
		d := webhookDelta(42, 1000)
		d.RemoteAssigneeId = i64Ptr(9)
		_, err := w.Apply(ctx, d)
		require.NoError(t, err)

		d2 := webhookDelta(42, 2000)
		d2.LastMessagePreview = strPtr("nova mensagem")
		_, err = w.Apply(ctx, d2)
		require.NoError(t, err)

		row := store.get(1, 42)
		require.NotNil(t, row.AssignedAgentId)
		assert.Equal(t, int64(501), *row.AssignedAgentId)
	})
}

func TestWriter_RejectsInvalidDelta(t *testing.T) {
	w, _, _ := newTestWriter(nil)
	ctx := context.Background()

	for _, d := range []*entity.ConversationDelta{
		nil,
		{TenantId: 0, RemoteConversationId: 42, ObservedAt: 1000},
		{TenantId: 1, RemoteConversationId: 0, ObservedAt: 1000},
		{TenantId: 1, RemoteConversationId: 42, ObservedAt: 0},
	} {
		_, err := w.Apply(ctx, d)
		assert.Error(t, err)
	}
}

func TestWriter_ClampsOversizedPreview(t *testing.T) {
	w, store, _ := newTestWriter(nil)
	ctx := context.Background()

	long := make([]byte, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, 'x')
	}
	d := webhookDelta(42, 1000)
	d.LastMessagePreview = strPtr(string(long))

	_, err := w.Apply(ctx, d)
	require.NoError(t, err)

	preview := store.get(1, 42).LastMessagePreview
	assert.Equal(t, constant.MaxPreviewLen+len(constant.PreviewEllipsis), len(preview))
}
