package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charliek/npcctl/internal/api"
)

// Client is an HTTP client for the npcctl control API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 40 * time.Second,
		},
	}
}

// GetStatus gets the client status
func (c *Client) GetStatus(ctx context.Context) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Disconnect stops the running client
func (c *Client) Disconnect(ctx context.Context) error {
	var resp api.SuccessResponse
	return c.do(ctx, http.MethodPost, "/api/v1/disconnect", &resp)
}

// LogParams contains parameters for log queries
type LogParams struct {
	Stream  string
	Lines   int
	Pattern string
	Regex   bool
}

func (p LogParams) query(withLines bool) string {
	query := url.Values{}
	if p.Stream != "" {
		query.Set("stream", p.Stream)
	}
	if withLines && p.Lines > 0 {
		query.Set("lines", fmt.Sprintf("%d", p.Lines))
	}
	if p.Pattern != "" {
		query.Set("pattern", p.Pattern)
	}
	if p.Regex {
		query.Set("regex", "true")
	}
	if len(query) == 0 {
		return ""
	}
	return "?" + query.Encode()
}

// GetLogs gets logs with optional filtering
func (c *Client) GetLogs(ctx context.Context, params LogParams) (*api.LogsResponse, error) {
	var resp api.LogsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/logs"+params.query(true), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamLogs streams logs and calls the callback for each entry until ctx
// ends or the server closes the stream
func (c *Client) StreamLogs(ctx context.Context, params LogParams, callback func(api.LogEntryResponse)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/logs/stream"+params.query(false), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.addAuthHeader(req)

	// the stream has no deadline
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var entry api.LogEntryResponse
			if err := json.Unmarshal([]byte(data), &entry); err == nil {
				callback(entry)
			}
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func decodeError(resp *http.Response) error {
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Code != "" {
		return fmt.Errorf("%s: %s", errResp.Code, errResp.Error)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}

// addAuthHeader adds the Authorization header if a token is available
func (c *Client) addAuthHeader(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
