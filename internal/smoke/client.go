package smoke

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/model"
)

// maxResponseBytes bounds response bodies read by the client.
const maxResponseBytes = 1 << 20

// Outcome is the JSON view returned by the estimate and session routes.
type Outcome struct {
	State     string                      `json:"state"`
	Message   string                      `json:"message"`
	ErrorText string                      `json:"error_text"`
	Errors    []footprint.ValidationError `json:"errors"`
	Total     *float64                    `json:"total"`
	Tier      footprint.Tier              `json:"tier"`
	Persisted *bool                       `json:"persisted"`
	Record    *model.EstimateRecord       `json:"record"`
	Records   []model.EstimateRecord      `json:"records"`
}

// estimateBody carries field text the way the browser form does.
type estimateBody struct {
	Transport   string `json:"transport"`
	Meals       string `json:"meals"`
	Electricity string `json:"electricity"`
}

// Client is one browser session: it keeps its cookie across calls.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client with its own cookie jar.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: /healthz returned %d", ErrUnhealthy, status)
	}
	return nil
}

// Estimate posts a sample to /api/estimate.
func (c *Client) Estimate(ctx context.Context, s Sample) (int, Outcome, error) {
	body, err := json.Marshal(estimateBody{Transport: s.Transport, Meals: s.Meals, Electricity: s.Electricity})
	if err != nil {
		return 0, Outcome{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.outcome(ctx, http.MethodPost, "/api/estimate", body)
}

// Session loads /api/session.
func (c *Client) Session(ctx context.Context) (int, Outcome, error) {
	return c.outcome(ctx, http.MethodGet, "/api/session", nil)
}

func (c *Client) outcome(ctx context.Context, method, path string, body []byte) (int, Outcome, error) {
	var out Outcome
	status, data, err := c.do(ctx, method, path, body)
	if err != nil {
		return 0, out, err
	}
	if status == http.StatusTooManyRequests {
		return status, out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return status, out, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return status, out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}
	return resp.StatusCode, data, nil
}
