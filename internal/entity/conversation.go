package entity

// Conversation is the local mirror of a remote platform conversation.
// The remote system is the source of truth; this record converges towards
// it through webhook deltas and reconciliation sweeps.
type Conversation struct {
	Id                   int64  `json:"id" gorm:"column:id;primaryKey"`
	TenantId             int64  `json:"tenant_id" gorm:"column:tenant_id;uniqueIndex:uk_tenant_remote_conv"`
	RemoteConversationId int64  `json:"remote_conversation_id" gorm:"column:remote_conversation_id;uniqueIndex:uk_tenant_remote_conv"`
	AssignedAgentId      *int64 `json:"assigned_agent_id" gorm:"column:assigned_agent_id"`
	ContactName          string `json:"contact_name" gorm:"column:contact_name"`
	Status               string `json:"status" gorm:"column:status"`
	LastMessagePreview   string `json:"last_message_preview" gorm:"column:last_message_preview"`
	UnreadCount          int64  `json:"unread_count" gorm:"column:unread_count"`
	LastActivityAt       int64  `json:"last_activity_at" gorm:"column:last_activity_at"`
	CreatedAt            int64  `json:"created_at" gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt            int64  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime:milli"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationInfo represents conversation info for API responses
type ConversationInfo struct {
	Id                   int64  `json:"id"`
	RemoteConversationId int64  `json:"remote_conversation_id"`
	AssignedAgentId      *int64 `json:"assigned_agent_id,omitempty"`
	ContactName          string `json:"contact_name,omitempty"`
	Status               string `json:"status"`
	LastMessagePreview   string `json:"last_message_preview"`
	UnreadCount          int64  `json:"unread_count"`
	LastActivityAt       int64  `json:"last_activity_at"`
	UpdatedAt            int64  `json:"updated_at"`
}

// ToInfo converts a Conversation to ConversationInfo
func (c *Conversation) ToInfo() *ConversationInfo {
	return &ConversationInfo{
		Id:                   c.Id,
		RemoteConversationId: c.RemoteConversationId,
		AssignedAgentId:      c.AssignedAgentId,
		ContactName:          c.ContactName,
		Status:               c.Status,
		LastMessagePreview:   c.LastMessagePreview,
		UnreadCount:          c.UnreadCount,
		LastActivityAt:       c.LastActivityAt,
		UpdatedAt:            c.UpdatedAt,
	}
}
