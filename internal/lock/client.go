package lock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	upload_errors "upload-gateway/pkg/errors"
)

type lockRequest struct {
	ResourceKey string `json:"resource_key"`
	Operation   string `json:"operation"`
}

// Client talks to the external lock service. The service responds 409
// (or any non-200) when the key is already held in a conflicting mode.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Acquire(ctx context.Context, resourceKey string, op Operation) error {
	resp, err := c.do(ctx, http.MethodPost, resourceKey, op)
	if err != nil {
		return fmt.Errorf("lock %s: %w", resourceKey, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", upload_errors.ErrResourceBusy, resourceKey)
	}
	return nil
}

func (c *Client) Release(ctx context.Context, resourceKey string, op Operation) error {
	resp, err := c.do(ctx, http.MethodDelete, resourceKey, op)
	if err != nil {
		return fmt.Errorf("unlock %s: %w", resourceKey, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unlock %s: status %d", resourceKey, resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, resourceKey string, op Operation) (*http.Response, error) {
	body, err := json.Marshal(lockRequest{ResourceKey: resourceKey, Operation: string(op)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"resource/lock/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}
