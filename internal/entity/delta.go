package entity

// WriteOutcome reports what a delta application did to the mirror
type WriteOutcome int

const (
	OutcomeCreated WriteOutcome = iota + 1
	OutcomeUpdated
	OutcomeSkippedStale
	OutcomeIgnored
)

// String returns the outcome name
func (o WriteOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkippedStale:
		return "skipped-stale"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// ConversationDelta is a partial update for one mirrored conversation.
// Nil fields are "not observed" and leave the mirror untouched. ObservedAt
// carries the remote event/poll timestamp, never local receipt time; the
// staleness guard in the mirror store depends on that.
type ConversationDelta struct {
	TenantId             int64
	RemoteConversationId int64

	Status             *string
	RemoteAssigneeId   *int64 // remote agent id; 0 means explicitly unassigned
	LastMessagePreview *string
	UnreadCount        *int64
	ContactName        *string

	Source     string // constant.DeltaSourceWebhook | constant.DeltaSourceSweep
	ObservedAt int64  // unix milli, remote clock
}
