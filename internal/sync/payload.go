package sync

import (
	"encoding/json"
	"fmt"

	"github.com/opencrmhq/chatbridge/internal/platform"
)

// EventType is the webhook event discriminant
type EventType string

const (
	EventConversationCreated       EventType = "conversation_created"
	EventConversationUpdated       EventType = "conversation_updated"
	EventConversationStatusChanged EventType = "conversation_status_changed"
	EventMessageCreated            EventType = "message_created"
	EventMessageUpdated            EventType = "message_updated"
	EventConversationTypingOn      EventType = "conversation_typing_on"
	EventConversationTypingOff     EventType = "conversation_typing_off"
)

// Event is one decoded webhook payload variant
type Event interface {
	Type() EventType
}

// ConversationEvent covers conversation created/updated/status-changed
// payloads, which share one shape
type ConversationEvent struct {
	Kind           EventType                       `json:"-"`
	Id             int64                           `json:"id"`
	Status         string                          `json:"status"`
	UnreadCount    int64                           `json:"unread_count"`
	LastActivityAt int64                           `json:"last_activity_at"` // unix seconds
	Meta           platform.RemoteConversationMeta `json:"meta"`
}

// Type implements Event
func (e *ConversationEvent) Type() EventType { return e.Kind }

// MessageEvent is a message_created payload: the message plus a snapshot
// of its conversation
type MessageEvent struct {
	Id           int64                       `json:"id"`
	Content      string                      `json:"content"`
	MessageType  int                         `json:"message_type"`
	Private      bool                        `json:"private"`
	CreatedAt    int64                       `json:"created_at"` // unix seconds
	Attachments  []platform.RemoteAttachment `json:"attachments"`
	Conversation *ConversationEvent          `json:"conversation"`
}

// Type implements Event
func (e *MessageEvent) Type() EventType { return EventMessageCreated }

// IgnoredEvent is a recognized event type that carries nothing the mirror
// tracks (typing indicators, message edits). Not an error.
type IgnoredEvent struct {
	Kind EventType
}

// Type implements Event
func (e *IgnoredEvent) Type() EventType { return e.Kind }

// envelope extracts the event tag before variant decoding
type envelope struct {
	Event EventType `json:"event"`
}

// DecodeEvent decodes a raw webhook payload into its typed variant.
// Unknown event types decode to IgnoredEvent; only malformed JSON or a
// missing tag is an error.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("webhook payload missing event type")
	}

	switch env.Event {
	case EventConversationCreated, EventConversationUpdated, EventConversationStatusChanged:
		var ev ConversationEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Event, err)
		}
		ev.Kind = env.Event
		return &ev, nil

	case EventMessageCreated:
		var ev MessageEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", env.Event, err)
		}
		return &ev, nil

	default:
		return &IgnoredEvent{Kind: env.Event}, nil
	}
}
