package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	upload_errors "upload-gateway/pkg/errors"
)

// Entry is one provenance record of a file operation.
type Entry struct {
	Action      string         `json:"action"`
	Operator    string         `json:"operator"`
	Target      string         `json:"target"`
	Outcome     string         `json:"outcome"`
	Resource    string         `json:"resource"`
	DisplayName string         `json:"display_name"`
	ProjectCode string         `json:"project_code"`
	Extra       map[string]any `json:"extra"`
}

// Sink appends entries to the audit/provenance log.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// Client posts entries to the provenance service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Append(ctx context.Context, entry Entry) error {
	if entry.Extra == nil {
		entry.Extra = map[string]any{}
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"audit-logs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: audit-logs: %s", upload_errors.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: audit-logs: status %d", upload_errors.ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}
