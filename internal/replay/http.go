package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/internal/domain/types"
)

// Outcome is how the service answered one batch.
type Outcome int

// Batch outcomes.
const (
	OutcomeAccepted Outcome = iota
	OutcomeDuplicate
	OutcomeBackpressure
	OutcomeFailed
)

// HTTPClient talks to the inkflow API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client with a per-request timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Health checks that the service answers /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// PostBatch submits one batch.
func (c *HTTPClient) PostBatch(ctx context.Context, b *model.Batch) (Outcome, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to marshal batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/batches", bytes.NewReader(data))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("post batch %s: %w", b.BatchID, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case StatusAccepted:
		return OutcomeAccepted, nil
	case StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && !ack.Duplicate {
			return OutcomeAccepted, nil
		}
		return OutcomeDuplicate, nil
	case StatusTooManyRequests:
		return OutcomeBackpressure, nil
	default:
		return OutcomeFailed, fmt.Errorf("post batch %s: status %d: %s", b.BatchID, resp.StatusCode, bytes.TrimSpace(body))
	}
}

// ListStrokes fetches archived strokes of one surface.
func (c *HTTPClient) ListStrokes(ctx context.Context, surfaceID string, status types.Status, limit int) ([]types.StrokeView, error) {
	q := url.Values{}
	q.Set("surface", surfaceID)
	q.Set("limit", strconv.Itoa(limit))
	if status != "" {
		q.Set("status", string(status))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/strokes?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list strokes: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read strokes: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("list strokes: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	var views []types.StrokeView
	if err := json.Unmarshal(body, &views); err != nil {
		return nil, fmt.Errorf("decode strokes: %w", err)
	}
	return views, nil
}
