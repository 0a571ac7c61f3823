package platform

import "context"

// ListLabels lists all labels in the remote account
func (c *Client) ListLabels(ctx context.Context, cred Credential) ([]*RemoteLabel, error) {
	var resp labelListResponse
	if err := c.get(ctx, cred, c.accountPath(cred, "/labels"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// CreateLabel creates a label in the remote account
func (c *Client) CreateLabel(ctx context.Context, cred Credential, title, description, color string) (*RemoteLabel, error) {
	body := map[string]string{
		"title":       title,
		"description": description,
		"color":       color,
	}
	var label RemoteLabel
	if err := c.post(ctx, cred, c.accountPath(cred, "/labels"), body, &label); err != nil {
		return nil, err
	}
	return &label, nil
}

// UpdateLabel updates a label's color
func (c *Client) UpdateLabel(ctx context.Context, cred Credential, labelId int64, color string) error {
	body := map[string]string{"color": color}
	return c.patch(ctx, cred, c.accountPath(cred, "/labels/%d", labelId), body, nil)
}
