package platform

import "fmt"

// Error is a non-2xx response from the remote platform
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform api: status %d: %s", e.StatusCode, e.Body)
}

// RemoteAgent is an agent as the remote platform reports it
type RemoteAgent struct {
	Id   int64  `json:"id"`
	Name string `json:"name"`
}

// RemoteContact is the conversation counterpart (end customer)
type RemoteContact struct {
	Id          int64  `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// RemoteMessage is a message as the remote platform reports it
type RemoteMessage struct {
	Id          int64              `json:"id"`
	Content     string             `json:"content"`
	MessageType int                `json:"message_type"`
	Private     bool               `json:"private"`
	CreatedAt   int64              `json:"created_at"` // unix seconds
	Attachments []RemoteAttachment `json:"attachments"`
}

// RemoteAttachment describes message media
type RemoteAttachment struct {
	Id       int64  `json:"id"`
	FileType string `json:"file_type"` // image | audio | video | file
	DataURL  string `json:"data_url"`
}

// RemoteConversationMeta carries the assignee and contact of a conversation
type RemoteConversationMeta struct {
	Assignee *RemoteAgent   `json:"assignee"`
	Sender   *RemoteContact `json:"sender"`
}

// RemoteConversation is a conversation as returned by the list endpoint
type RemoteConversation struct {
	Id                     int64                  `json:"id"`
	Status                 string                 `json:"status"`
	UnreadCount            int64                  `json:"unread_count"`
	LastActivityAt         int64                  `json:"last_activity_at"` // unix seconds
	Meta                   RemoteConversationMeta `json:"meta"`
	LastNonActivityMessage *RemoteMessage         `json:"last_non_activity_message"`
}

// ConversationPage is one page of the conversation listing plus the
// remote's total count
type ConversationPage struct {
	Conversations []*RemoteConversation
	AllCount      int64
}

// conversationListResponse is the paginated conversation list envelope
type conversationListResponse struct {
	Data struct {
		Meta struct {
			AllCount int64 `json:"all_count"`
		} `json:"meta"`
		Payload []*RemoteConversation `json:"payload"`
	} `json:"data"`
}

// RemoteLabel is a label on the remote platform
type RemoteLabel struct {
	Id          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// labelListResponse is the label list envelope
type labelListResponse struct {
	Payload []*RemoteLabel `json:"payload"`
}
