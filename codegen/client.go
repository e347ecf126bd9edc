// Package codegen drives the hosted coding-agent API that turns assembled
// prompts into pull requests. It provides task creation, polling, and
// pull-request validation with retry support.
package codegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the production endpoint of the agent API.
const DefaultBaseURL = "https://api.codegen.com/v1"

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client is an agent API client with retry support.
type Client struct {
	baseURL     string
	token       string
	orgID       string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// TaskRequest describes an agent run to start.
type TaskRequest struct {
	// Prompt is the instruction text the agent executes.
	Prompt string `json:"prompt"`

	// RepoID optionally pins the run to a registered repository.
	RepoID string `json:"repo_id,omitempty"`
}

// Task is the state of an agent run as reported by the API.
type Task struct {
	ID     json.Number `json:"id"`
	Status string      `json:"status"`
	WebURL string      `json:"web_url,omitempty"`
	Result string      `json:"result,omitempty"`
}

// pendingStatuses are the run states that mean the agent is still working.
// Status comparison is case-insensitive.
var pendingStatuses = map[string]bool{
	"pending":     true,
	"queued":      true,
	"in_progress": true,
	"running":     true,
}

// Pending returns true while the run has not reached a terminal state.
func (t *Task) Pending() bool {
	return pendingStatuses[strings.ToLower(t.Status)]
}

// Terminal returns true once the run has finished, successfully or not.
func (t *Task) Terminal() bool {
	return !t.Pending()
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) ClientOption {
	return func(client *Client) {
		client.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates an agent API client for the given organization.
func NewClient(token, orgID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		token:       token,
		orgID:       orgID,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CreateTask starts an agent run and returns its initial state.
func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (*Task, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	url := fmt.Sprintf("%s/organizations/%s/agent/run", c.baseURL, c.orgID)

	var task Task
	if err := c.doJSON(ctx, http.MethodPost, url, req, &task); err != nil {
		return nil, err
	}

	c.logger.Info("Created agent task", "task_id", task.ID.String(), "status", task.Status)
	return &task, nil
}

// GetTask fetches the current state of an agent run.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID is required")
	}

	url := fmt.Sprintf("%s/organizations/%s/agent/run/%s", c.baseURL, c.orgID, taskID)

	var task Task
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// Default polling parameters for Wait.
const (
	DefaultPollInterval = 15 * time.Second
	DefaultWaitDeadline = 30 * time.Minute
)

// WaitOptions controls how Wait polls for completion.
// Zero values fall back to the package defaults.
type WaitOptions struct {
	PollInterval time.Duration
	Deadline     time.Duration
}

// Wait polls an agent run until it reaches a terminal state or the
// deadline expires. The deadline error names the last observed status.
func (c *Client) Wait(ctx context.Context, taskID string, opts WaitOptions) (*Task, error) {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultWaitDeadline
	}

	start := time.Now()
	for {
		task, err := c.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}

		if task.Terminal() {
			c.logger.Info("Agent task finished", "task_id", taskID, "status", task.Status)
			return task, nil
		}

		if time.Since(start) >= deadline {
			return nil, fmt.Errorf("task %s not finished after %s (last status %q)", taskID, deadline, task.Status)
		}

		c.logger.Debug("Agent task still pending",
			"task_id", taskID,
			"status", task.Status,
			"elapsed", time.Since(start).Round(time.Second))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// doJSON executes a request with retry, marshalling payload in and out
// as JSON. Fatal errors short-circuit; transient ones are retried up to
// the configured attempt limit.
func (c *Client) doJSON(ctx context.Context, method, url string, payload, out any) error {
	for attempt := 1; ; attempt++ {
		err := c.doOnce(ctx, method, url, payload, out)
		if err == nil || IsFatal(err) || attempt == c.retryConfig.MaxAttempts {
			return err
		}

		wait := c.backoffFor(attempt)
		c.logger.Debug("Retrying agent API request",
			"attempt", attempt,
			"of", c.retryConfig.MaxAttempts,
			"in", wait,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// backoffFor returns the sleep before the next try, growing the base
// delay exponentially and spreading concurrent retries with jitter.
func (c *Client) backoffFor(attempt int) time.Duration {
	cfg := c.retryConfig
	wait := time.Duration(float64(cfg.BackoffBase) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1)))
	if wait > cfg.MaxBackoff {
		wait = cfg.MaxBackoff
	}
	jitter := (rand.Float64()*2 - 1) * 0.25 * float64(wait)
	return wait + time.Duration(jitter)
}

// doOnce executes a single HTTP request against the agent API.
func (c *Client) doOnce(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return NewFatalError(fmt.Errorf("encode request body: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}

	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Sending agent API request",
		"method", method,
		"url", url,
		"request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return NewFatalError(fmt.Errorf("decode response: %w", err))
		}
	}

	return nil
}

// apiError maps a non-200 response to a transient or fatal error.
// Rate limits and server errors are worth retrying; everything else is
// not, and a 401 names the credential that fixes it.
func apiError(status int, body []byte) error {
	detail := string(body)
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}

	switch {
	case status == http.StatusUnauthorized:
		return NewFatalError(fmt.Errorf("agent API error (status 401): check CODEGEN_TOKEN: %s", detail))
	case status == http.StatusTooManyRequests, status >= 500:
		return NewTransientError(fmt.Errorf("agent API error (status %d): %s", status, detail))
	default:
		return NewFatalError(fmt.Errorf("agent API error (status %d): %s", status, detail))
	}
}
