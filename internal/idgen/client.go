package idgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	upload_errors "upload-gateway/pkg/errors"

	"github.com/google/uuid"
)

// Allocator hands out opaque globally-unique identifiers for jobs and
// folder nodes.
type Allocator interface {
	AllocateID(ctx context.Context) (string, error)
	AllocateIDs(ctx context.Context, n int) ([]string, error)
}

// Client fetches identifiers from the external utility service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) AllocateID(ctx context.Context) (string, error) {
	var result struct {
		Result string `json:"result"`
	}
	if err := c.get(ctx, "utility/id", &result); err != nil {
		return "", err
	}
	return result.Result, nil
}

func (c *Client) AllocateIDs(ctx context.Context, n int) ([]string, error) {
	var result struct {
		Result []string `json:"result"`
	}
	url := fmt.Sprintf("utility/id/batch?number=%d", n)
	if err := c.get(ctx, url, &result); err != nil {
		return nil, err
	}
	return result.Result, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", upload_errors.ErrUpstreamFailure, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", upload_errors.ErrUpstreamFailure, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// LocalAllocator mints ids in-process in the same shape the utility
// service uses. For development and tests.
type LocalAllocator struct{}

func (LocalAllocator) AllocateID(ctx context.Context) (string, error) {
	return uuid.NewString() + "-" + strconv.FormatInt(time.Now().Unix(), 10), nil
}

func (l LocalAllocator) AllocateIDs(ctx context.Context, n int) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, _ := l.AllocateID(ctx)
		ids = append(ids, id)
	}
	return ids, nil
}
