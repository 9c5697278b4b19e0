// Package api talks to the lamp server's HTTP endpoints. Commands are
// fire-and-forget from the dashboard's point of view; pulls return the
// decoded page or an error.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/room4-2/lelamp-dashboard/messages"
)

// ErrServer is wrapped by every error caused by a non-2xx status or an
// error body
var ErrServer = errors.New("lamp server error")

const maxBodySize = 4 << 20

// Client calls the lamp server
type Client struct {
	origin     *url.URL
	httpClient *http.Client
}

// NewClient creates a client for the server at origin
func NewClient(origin *url.URL, timeout time.Duration) *Client {
	return &Client{
		origin:     origin,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetSolidColor issues POST /api/rgb/solid
func (c *Client) SetSolidColor(ctx context.Context, r, g, b int) error {
	body := messages.SolidColorRequest{R: r, G: g, B: b}
	if err := c.do(ctx, http.MethodPost, messages.PathSolidColor, nil, body, nil); err != nil {
		return fmt.Errorf("set solid color: %w", err)
	}
	return nil
}

// PlayRecording issues POST /api/recordings/play
func (c *Client) PlayRecording(ctx context.Context, name string) error {
	body := messages.PlayRecordingRequest{Name: name}
	if err := c.do(ctx, http.MethodPost, messages.PathPlayRecording, nil, body, nil); err != nil {
		return fmt.Errorf("play recording %q: %w", name, err)
	}
	return nil
}

// Chat issues POST /api/chat and returns the exchange the server recorded
func (c *Client) Chat(ctx context.Context, message string) (messages.ChatResponse, error) {
	var resp messages.ChatResponse
	if err := c.do(ctx, http.MethodPost, messages.PathChat, nil, messages.ChatRequest{Message: message}, &resp); err != nil {
		return messages.ChatResponse{}, fmt.Errorf("chat: %w", err)
	}
	if resp.Status == "error" || resp.Error != "" {
		return messages.ChatResponse{}, fmt.Errorf("chat: %w: %s", ErrServer, resp.Error)
	}
	return resp, nil
}

// Recordings issues GET /api/recordings
func (c *Client) Recordings(ctx context.Context) ([]string, error) {
	var resp messages.RecordingsResponse
	if err := c.do(ctx, http.MethodGet, messages.PathRecordings, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	// An error field fails the pull even when the page is present and empty
	if resp.Error != "" {
		return nil, fmt.Errorf("list recordings: %w: %s", ErrServer, resp.Error)
	}
	return resp.Recordings, nil
}

// Conversations issues GET /api/conversations?limit=N. The page is
// returned in server order, newest first.
func (c *Client) Conversations(ctx context.Context, limit int) ([]messages.Conversation, error) {
	var resp messages.ConversationsResponse
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, messages.PathConversations, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	// An error field fails the pull even when the page is present and empty
	if resp.Error != "" {
		return nil, fmt.Errorf("list conversations: %w: %s", ErrServer, resp.Error)
	}
	return resp.Conversations, nil
}

// AuditLogs issues GET /api/audit-logs?limit=N
func (c *Client) AuditLogs(ctx context.Context, limit int) ([]messages.AuditLog, error) {
	var resp messages.AuditLogsResponse
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, messages.PathAuditLogs, query, nil, &resp); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	// An error field fails the pull even when the page is present and empty
	if resp.Error != "" {
		return nil, fmt.Errorf("list audit logs: %w: %s", ErrServer, resp.Error)
	}
	return resp.Logs, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.origin.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		data, err := messages.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s %s: status %d", ErrServer, method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := messages.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
