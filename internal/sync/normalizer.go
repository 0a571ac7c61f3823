package sync

import (
	"strings"
	"unicode/utf8"

	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/internal/platform"
	"github.com/opencrmhq/chatbridge/pkg/constant"
)

// Normalize converts a raw webhook payload into a ConversationDelta for
// the given tenant. A (nil, nil) return means the event is irrelevant to
// the mirror and the caller discards it. Pure transformation, no I/O.
func Normalize(tenantId int64, raw []byte) (*entity.ConversationDelta, error) {
	ev, err := DecodeEvent(raw)
	if err != nil {
		return nil, err
	}

	switch ev := ev.(type) {
	case *ConversationEvent:
		return normalizeConversationEvent(tenantId, ev), nil
	case *MessageEvent:
		return normalizeMessageEvent(tenantId, ev), nil
	default:
		return nil, nil
	}
}

func normalizeConversationEvent(tenantId int64, ev *ConversationEvent) *entity.ConversationDelta {
	if ev.Id == 0 {
		return nil
	}

	d := &entity.ConversationDelta{
		TenantId:             tenantId,
		RemoteConversationId: ev.Id,
		Source:               constant.DeltaSourceWebhook,
		ObservedAt:           secondsToMilli(ev.LastActivityAt),
	}
	if ev.Status != "" {
		status := ev.Status
		d.Status = &status
	}
	d.RemoteAssigneeId = assigneeIdOf(ev.Meta.Assignee)
	d.UnreadCount = &ev.UnreadCount
	if ev.Meta.Sender != nil && ev.Meta.Sender.Name != "" {
		name := ev.Meta.Sender.Name
		d.ContactName = &name
	}
	return d
}

func normalizeMessageEvent(tenantId int64, ev *MessageEvent) *entity.ConversationDelta {
	if ev.Conversation == nil || ev.Conversation.Id == 0 {
		return nil
	}
	// Private notes and system activity never reach the preview
	if ev.Private {
		return nil
	}

	d := &entity.ConversationDelta{
		TenantId:             tenantId,
		RemoteConversationId: ev.Conversation.Id,
		Source:               constant.DeltaSourceWebhook,
		ObservedAt:           secondsToMilli(ev.CreatedAt),
	}

	preview := BuildPreview(ev.Content, ev.Attachments)
	if preview != "" {
		d.LastMessagePreview = &preview
	}

	conv := ev.Conversation
	if conv.Status != "" {
		status := conv.Status
		d.Status = &status
	}
	d.UnreadCount = &conv.UnreadCount
	d.RemoteAssigneeId = assigneeIdOf(conv.Meta.Assignee)
	if conv.Meta.Sender != nil && conv.Meta.Sender.Name != "" {
		name := conv.Meta.Sender.Name
		d.ContactName = &name
	}
	return d
}

// assigneeIdOf maps a remote assignee to the delta field: a present agent
// keeps its id, an absent one becomes the explicit-unassign marker (0)
func assigneeIdOf(agent *platform.RemoteAgent) *int64 {
	var id int64
	if agent != nil {
		id = agent.Id
	}
	return &id
}

// BuildPreview derives the stored preview from message text and media.
// Text wins; a text-less message with an attachment falls back to a short
// media category label. The result is truncated to the preview limit.
func BuildPreview(content string, attachments []platform.RemoteAttachment) string {
	text := strings.TrimSpace(content)
	if text == "" && len(attachments) > 0 {
		text = attachmentLabel(attachments[0].FileType)
	}
	return TruncatePreview(text)
}

func attachmentLabel(fileType string) string {
	switch fileType {
	case "image":
		return constant.PreviewImage
	case "audio":
		return constant.PreviewAudio
	case "video":
		return constant.PreviewVideo
	default:
		return constant.PreviewFile
	}
}

// TruncatePreview bounds a preview to MaxPreviewLen runes, marking the cut
// with an ellipsis
func TruncatePreview(s string) string {
	if utf8.RuneCountInString(s) <= constant.MaxPreviewLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:constant.MaxPreviewLen]) + constant.PreviewEllipsis
}

func secondsToMilli(seconds int64) int64 {
	return seconds * 1000
}
