package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/opencrmhq/chatbridge/internal/config"
)

// Credential identifies one tenant's account on the remote platform
type Credential struct {
	AccountId int64
	Token     string
}

// Client talks to the remote messaging platform HTTP API. One client is
// shared across tenants; the per-tenant credential travels with each call.
type Client struct {
	baseURL    string
	httpClient *client.Client
}

// ClientOption is a function to configure the client
type ClientOption func(*Client)

// WithHertzClient sets a custom Hertz client
func WithHertzClient(httpClient *client.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new platform API client
func NewClient(cfg *config.PlatformConfig, opts ...ClientOption) (*Client, error) {
	httpClient, err := client.NewClient(
		client.WithDialTimeout(cfg.DialTimeout),
		client.WithClientReadTimeout(cfg.ReadTimeout),
		client.WithWriteTimeout(cfg.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// accountPath builds an account-scoped API path
func (c *Client) accountPath(cred Credential, format string, args ...interface{}) string {
	return fmt.Sprintf("/api/v1/accounts/%d", cred.AccountId) + fmt.Sprintf(format, args...)
}

// request makes an HTTP request and decodes the response body into result
func (c *Client) request(ctx context.Context, cred Credential, method, path string, body interface{}, result interface{}) error {
	req := &protocol.Request{}
	resp := &protocol.Response{}

	req.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", cred.Token)

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.SetBody(jsonBody)
	}

	if err := c.httpClient.Do(ctx, req, resp); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return &Error{StatusCode: status, Body: string(resp.Body())}
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body(), result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// get makes a GET request with query parameters
func (c *Client) get(ctx context.Context, cred Credential, path string, params map[string]string, result interface{}) error {
	if len(params) > 0 {
		query := url.Values{}
		for k, v := range params {
			query.Set(k, v)
		}
		path += "?" + query.Encode()
	}
	return c.request(ctx, cred, consts.MethodGet, path, nil, result)
}

// post makes a POST request
func (c *Client) post(ctx context.Context, cred Credential, path string, body interface{}, result interface{}) error {
	return c.request(ctx, cred, consts.MethodPost, path, body, result)
}

// patch makes a PATCH request
func (c *Client) patch(ctx context.Context, cred Credential, path string, body interface{}, result interface{}) error {
	return c.request(ctx, cred, consts.MethodPatch, path, body, result)
}
