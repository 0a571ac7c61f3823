package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrmhq/chatbridge/internal/platform"
	"github.com/opencrmhq/chatbridge/pkg/constant"
)

func TestDecodeEvent(t *testing.T) {
	t.Run("conversation events share one shape", func(t *testing.T) {
		for _, kind := range []EventType{EventConversationCreated, EventConversationUpdated, EventConversationStatusChanged} {
			raw := []byte(`{"event":"` + string(kind) + `","id":42,"status":"open","last_activity_at":1700000000}`)
			ev, err := DecodeEvent(raw)
			require.NoError(t, err)
			conv, ok := ev.(*ConversationEvent)
			require.True(t, ok)
			assert.Equal(t, kind, conv.Type())
			assert.Equal(t, int64(42), conv.Id)
		}
	})

	t.Run("message_created", func(t *testing.T) {
		raw := []byte(`{"event":"message_created","id":7,"content":"hi","created_at":1700000100,"conversation":{"id":42}}`)
		ev, err := DecodeEvent(raw)
		require.NoError(t, err)
		msg, ok := ev.(*MessageEvent)
		require.True(t, ok)
		assert.Equal(t, "hi", msg.Content)
		require.NotNil(t, msg.Conversation)
		assert.Equal(t, int64(42), msg.Conversation.Id)
	})

	t.Run("unknown event type is ignored, not an error", func(t *testing.T) {
		ev, err := DecodeEvent([]byte(`{"event":"webwidget_triggered"}`))
		require.NoError(t, err)
		_, ok := ev.(*IgnoredEvent)
		assert.True(t, ok)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := DecodeEvent([]byte(`{"event":`))
		assert.Error(t, err)
	})

	t.Run("missing event tag", func(t *testing.T) {
		_, err := DecodeEvent([]byte(`{"id":42}`))
		assert.Error(t, err)
	})
}

func TestNormalize_ConversationEvent(t *testing.T) {
	raw := []byte(`{
		"event": "conversation_status_changed",
		"id": 42,
		"status": "resolved",
		"unread_count": 3,
		"last_activity_at": 1700000000,
		"meta": {
			"assignee": {"id": 9, "name": "Ana"},
			"sender": {"id": 1, "name": "Cliente"}
		}
	}`)

	d, err := Normalize(77, raw)
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, int64(77), d.TenantId)
	assert.Equal(t, int64(42), d.RemoteConversationId)
	assert.Equal(t, constant.DeltaSourceWebhook, d.Source)
	assert.Equal(t, int64(1700000000000), d.ObservedAt, "remote seconds convert to milli")
	require.NotNil(t, d.Status)
	assert.Equal(t, "resolved", *d.Status)
	require.NotNil(t, d.RemoteAssigneeId)
	assert.Equal(t, int64(9), *d.RemoteAssigneeId)
	require.NotNil(t, d.UnreadCount)
	assert.Equal(t, int64(3), *d.UnreadCount)
	require.NotNil(t, d.ContactName)
	assert.Equal(t, "Cliente", *d.ContactName)
	assert.Nil(t, d.LastMessagePreview, "conversation events carry no message")
}

func TestNormalize_NoAssigneeMeansExplicitUnassign(t *testing.T) {
	raw := []byte(`{"event":"conversation_updated","id":42,"status":"open","last_activity_at":1700000000}`)

	d, err := Normalize(77, raw)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.NotNil(t, d.RemoteAssigneeId)
	assert.Equal(t, int64(0), *d.RemoteAssigneeId)
}

func TestNormalize_MessageEvent(t *testing.T) {
	t.Run("text message updates the preview", func(t *testing.T) {
		raw := []byte(`{
			"event": "message_created",
			"id": 7,
			"content": "tudo bem?",
			"created_at": 1700000100,
			"conversation": {"id": 42, "status": "open", "unread_count": 1}
		}`)

		d, err := Normalize(77, raw)
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, int64(42), d.RemoteConversationId)
		assert.Equal(t, int64(1700000100000), d.ObservedAt)
		require.NotNil(t, d.LastMessagePreview)
		assert.Equal(t, "tudo bem?", *d.LastMessagePreview)
	})

	t.Run("private note is discarded", func(t *testing.T) {
		raw := []byte(`{"event":"message_created","id":7,"content":"nota interna","private":true,"created_at":1700000100,"conversation":{"id":42}}`)
		d, err := Normalize(77, raw)
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("image without text falls back to media label", func(t *testing.T) {
		raw := []byte(`{
			"event": "message_created",
			"id": 7,
			"content": "",
			"created_at": 1700000100,
			"attachments": [{"file_type": "image"}],
			"conversation": {"id": 42}
		}`)

		d, err := Normalize(77, raw)
		require.NoError(t, err)
		require.NotNil(t, d)
		require.NotNil(t, d.LastMessagePreview)
		assert.Equal(t, constant.PreviewImage, *d.LastMessagePreview)
	})

	t.Run("message without conversation snapshot is discarded", func(t *testing.T) {
		raw := []byte(`{"event":"message_created","id":7,"content":"hi","created_at":1700000100}`)
		d, err := Normalize(77, raw)
		require.NoError(t, err)
		assert.Nil(t, d)
	})
}

func TestNormalize_TypingEventsDiscarded(t *testing.T) {
	for _, kind := range []EventType{EventConversationTypingOn, EventConversationTypingOff, EventMessageUpdated} {
		d, err := Normalize(77, []byte(`{"event":"`+string(kind)+`"}`))
		require.NoError(t, err)
		assert.Nil(t, d, "event %s should not touch the mirror", kind)
	}
}

func TestBuildPreview(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		fileType string
		want     string
	}{
		{"text wins over attachment", "oi", "image", "oi"},
		{"image fallback", "", "image", constant.PreviewImage},
		{"audio fallback", "", "audio", constant.PreviewAudio},
		{"video fallback", "", "video", constant.PreviewVideo},
		{"unknown type falls back to file", "", "story_mention", constant.PreviewFile},
		{"whitespace counts as empty", "   ", "audio", constant.PreviewAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attachments := []platform.RemoteAttachment{{FileType: tt.fileType}}
			got := BuildPreview(tt.content, attachments)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncatePreview(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "hello", TruncatePreview("hello"))
	})

	t.Run("long text cut at limit", func(t *testing.T) {
		long := strings.Repeat("a", 150)
		got := TruncatePreview(long)
		assert.Equal(t, strings.Repeat("a", constant.MaxPreviewLen)+constant.PreviewEllipsis, got)
	})

	t.Run("multibyte text cut on rune boundary", func(t *testing.T) {
		long := strings.Repeat("ã", 150)
		got := TruncatePreview(long)
		assert.Equal(t, strings.Repeat("ã", constant.MaxPreviewLen)+constant.PreviewEllipsis, got)
	})
}
