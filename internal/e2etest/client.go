package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// UserIDHeader carries the caller identity that a trusted gateway sets in front of the API.
const UserIDHeader = "X-User-ID"

// Client is a JSON API client that identifies itself as a single user.
type Client struct {
	client *http.Client
	url    string
	userID int
}

// NewClient creates an anonymous client for the server at url.
func NewClient(url string) *Client {
	return &Client{
		client: &http.Client{Timeout: 5 * time.Second}, //nolint:mnd // generous for slow CI machines.
		url:    url,
		userID: 0,
	}
}

// AsUser returns a copy of the client that sends userID in the identity header.
func (c *Client) AsUser(userID int) *Client {
	clone := *c
	clone.userID = userID
	return &clone
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	for {
		resp, err := c.Do(ctx, http.MethodGet, urlPath, nil)
		if err == nil {
			if err = resp.Body.Close(); err != nil {
				return fmt.Errorf("close response body: %w", err)
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Do sends body encoded as JSON, unless it is nil, and returns the raw response.
func (c *Client) Do(ctx context.Context, method, urlPath string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != 0 {
		req.Header.Set(UserIDHeader, strconv.Itoa(c.userID))
	}
	var resp *http.Response
	if resp, err = c.client.Do(req); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

// JSON sends the request and decodes the response into out when out is non-nil and the response has a body.
// It returns the response status code so that callers can assert on error responses too.
func (c *Client) JSON(ctx context.Context, method, urlPath string, body, out any) (int, error) {
	resp, err := c.Do(ctx, method, urlPath, body)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var payload []byte
	if payload, err = io.ReadAll(resp.Body); err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	if out == nil || len(payload) == 0 {
		return resp.StatusCode, nil
	}
	if err = json.Unmarshal(payload, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response %q: %w", payload, err)
	}
	return resp.StatusCode, nil
}
