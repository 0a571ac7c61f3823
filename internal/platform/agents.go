package platform

import "context"

// UpdateAgentAvailability pushes an agent's availability to the remote
// platform. Used as a fire-and-forget side call on login/logout.
func (c *Client) UpdateAgentAvailability(ctx context.Context, cred Credential, remoteAgentId int64, availability string) error {
	body := map[string]interface{}{
		"agent_id":     remoteAgentId,
		"availability": availability,
	}
	return c.patch(ctx, cred, c.accountPath(cred, "/agents/%d", remoteAgentId), body, nil)
}
