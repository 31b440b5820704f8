// Package forum is the HTTP client for the forum's bot API: admin login,
// community and bot provisioning, and posting as a bot. It implements
// core.Publisher for the dispatch loop.
package forum

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"resty.dev/v3"

	"stagehand/internal/config"
)

// APIError is a non-2xx answer from the forum.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("forum API request failed: %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	Logger *slog.Logger
	Config *config.Config

	client     *resty.Client
	baseURL    string
	adminToken string
}

func (c *Client) Init(_ context.Context) error {
	c.Logger = c.Logger.With("component", "forum.Client")
	c.baseURL = strings.TrimRight(c.Config.APIURL, "/")

	c.client = resty.NewWithTransportSettings(&resty.TransportSettings{
		DialerTimeout:         5 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	})
	c.client.SetTimeout(30 * time.Second)

	return nil
}

func (c *Client) Shutdown(_ context.Context) error {
	return c.client.Close()
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.client.R().WithContext(ctx)
}

// bearer picks the token for a request: an explicit bot token, else the
// admin session.
func (c *Client) bearer(token string) string {
	if token == "" {
		token = c.adminToken
	}
	return "Bearer " + token
}

func checkResponse(res *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("forum request failed: %w", err)
	}
	if res.IsError() {
		return &APIError{StatusCode: res.StatusCode(), Body: res.String()}
	}
	return nil
}
