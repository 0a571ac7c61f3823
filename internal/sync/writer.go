package sync

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
)

// MirrorStore is the persistence contract the Writer funnels every delta
// through. The implementation must make the staleness-guarded upsert atomic
// per key; the repository backs it with single-statement SQL.
type MirrorStore interface {
	ApplyDelta(ctx context.Context, d *entity.ConversationDelta, assigneeTouched bool, assigneeId *int64) (entity.WriteOutcome, error)
}

// ConversationUpdate notifies downstream consumers (the live feed) that
// the mirror changed
type ConversationUpdate struct {
	TenantId             int64               `json:"tenant_id"`
	RemoteConversationId int64               `json:"remote_conversation_id"`
	Source               string              `json:"source"`
	Outcome              entity.WriteOutcome `json:"-"`
}

// Pusher fans mirror updates out to connected CRM agents. Implementations
// must not block the caller.
type Pusher interface {
	PushConversationUpdate(ctx context.Context, update *ConversationUpdate)
}

// Writer applies ConversationDeltas to the mirror store. It is the single
// serialization point the webhook path and the sweep path converge on:
// applying the same delta twice, or two deltas in either order, reaches the
// same final state as long as each carries its true ObservedAt.
type Writer struct {
	store    MirrorStore
	resolver *Resolver
	pusher   Pusher
}

// NewWriter creates a new Writer
func NewWriter(store MirrorStore, resolver *Resolver) *Writer {
	return &Writer{store: store, resolver: resolver}
}

// SetPusher sets the live update pusher
func (w *Writer) SetPusher(pusher Pusher) {
	w.pusher = pusher
}

// Apply applies one delta. Safe under concurrent invocation for the same
// key; a stale delta reports OutcomeSkippedStale and changes nothing.
func (w *Writer) Apply(ctx context.Context, d *entity.ConversationDelta) (entity.WriteOutcome, error) {
	if d == nil || d.TenantId == 0 || d.RemoteConversationId == 0 || d.ObservedAt == 0 {
		return 0, errcode.ErrInvalidParam
	}

	// Sweep deltas arrive untruncated; webhook deltas were already clamped
	// by the normalizer
	if d.LastMessagePreview != nil {
		clamped := TruncatePreview(*d.LastMessagePreview)
		d.LastMessagePreview = &clamped
	}

	assigneeTouched, assigneeId, err := w.resolveAssignee(ctx, d)
	if err != nil {
		return 0, err
	}

	outcome, err := w.store.ApplyDelta(ctx, d, assigneeTouched, assigneeId)
	if err != nil {
		return 0, err
	}

	switch outcome {
	case entity.OutcomeSkippedStale:
		log.CtxInfo(ctx, "stale delta skipped: tenant_id=%d, remote_conversation_id=%d, source=%s, observed_at=%d",
			d.TenantId, d.RemoteConversationId, d.Source, d.ObservedAt)
	case entity.OutcomeCreated, entity.OutcomeUpdated:
		w.notify(ctx, d, outcome)
	}

	return outcome, nil
}

// resolveAssignee translates the delta's remote assignee into a local agent
// id. An unmapped remote agent persists as unassigned; assignment sync is
// eventually consistent, since agent provisioning can lag behind.
func (w *Writer) resolveAssignee(ctx context.Context, d *entity.ConversationDelta) (touched bool, assigneeId *int64, err error) {
	if d.RemoteAssigneeId == nil {
		return false, nil, nil
	}
	if *d.RemoteAssigneeId == 0 {
		// Explicitly unassigned on the remote side
		return true, nil, nil
	}

	localId, ok, err := w.resolver.Resolve(ctx, d.TenantId, *d.RemoteAssigneeId)
	if err != nil {
		return false, nil, err
	}
	if !ok {
		log.CtxInfo(ctx, "remote agent without mapping, persisting unassigned: tenant_id=%d, remote_agent_id=%d",
			d.TenantId, *d.RemoteAssigneeId)
		return true, nil, nil
	}
	return true, &localId, nil
}

func (w *Writer) notify(ctx context.Context, d *entity.ConversationDelta, outcome entity.WriteOutcome) {
	if w.pusher == nil {
		return
	}
	w.pusher.PushConversationUpdate(ctx, &ConversationUpdate{
		TenantId:             d.TenantId,
		RemoteConversationId: d.RemoteConversationId,
		Source:               d.Source,
		Outcome:              outcome,
	})
}
