package platform

import (
	"context"
	"strconv"
)

// ListOpenConversations pulls one page of open conversations. Pages start
// at 1 and the remote decides the page size; AllCount carries the total so
// callers can tell a short page from an exhausted listing.
func (c *Client) ListOpenConversations(ctx context.Context, cred Credential, page int) (*ConversationPage, error) {
	params := map[string]string{
		"status": "open",
		"page":   strconv.Itoa(page),
	}

	var resp conversationListResponse
	if err := c.get(ctx, cred, c.accountPath(cred, "/conversations"), params, &resp); err != nil {
		return nil, err
	}
	return &ConversationPage{
		Conversations: resp.Data.Payload,
		AllCount:      resp.Data.Meta.AllCount,
	}, nil
}

// AssignConversation sets the assignee of a remote conversation.
// remoteAgentId 0 unassigns.
func (c *Client) AssignConversation(ctx context.Context, cred Credential, remoteConversationId, remoteAgentId int64) error {
	body := map[string]int64{"assignee_id": remoteAgentId}
	path := c.accountPath(cred, "/conversations/%d/assignments", remoteConversationId)
	return c.post(ctx, cred, path, body, nil)
}

// ToggleConversationStatus changes the status of a remote conversation
func (c *Client) ToggleConversationStatus(ctx context.Context, cred Credential, remoteConversationId int64, status string) error {
	body := map[string]string{"status": status}
	path := c.accountPath(cred, "/conversations/%d/toggle_status", remoteConversationId)
	return c.post(ctx, cred, path, body, nil)
}
