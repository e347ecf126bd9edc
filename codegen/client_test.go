package codegen_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specdrive/specdrive/codegen"
)

// fastRetry keeps test backoff in the millisecond range.
func fastRetry() codegen.RetryConfig {
	return codegen.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       1 * time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        10 * time.Millisecond,
	}
}

func TestClient_CreateTask_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/organizations/org-42/agent/run", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req codegen.TaskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Build the widget", req.Prompt)
		assert.Equal(t, "repo-7", req.RepoID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      123,
			"status":  "pending",
			"web_url": "https://app.codegen.com/task/123",
		})
	}))
	defer server.Close()

	client := codegen.NewClient("test-token", "org-42", codegen.WithBaseURL(server.URL))

	task, err := client.CreateTask(context.Background(), codegen.TaskRequest{
		Prompt: "Build the widget",
		RepoID: "repo-7",
	})

	require.NoError(t, err)
	assert.Equal(t, "123", task.ID.String())
	assert.Equal(t, "pending", task.Status)
	assert.Equal(t, "https://app.codegen.com/task/123", task.WebURL)
	assert.True(t, task.Pending())
}

func TestClient_CreateTask_EmptyPrompt(t *testing.T) {
	client := codegen.NewClient("test-token", "org-42")

	_, err := client.CreateTask(context.Background(), codegen.TaskRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt is required")
}

func TestClient_GetTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/organizations/org-42/agent/run/123", r.URL.Path)
		// GET carries no body
		assert.Empty(t, r.Header.Get("Content-Type"))

		json.NewEncoder(w).Encode(map[string]any{
			"id":     123,
			"status": "complete",
			"result": "Done. PR: https://github.com/acme/widget/pull/9",
		})
	}))
	defer server.Close()

	client := codegen.NewClient("test-token", "org-42", codegen.WithBaseURL(server.URL))

	task, err := client.GetTask(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "complete", task.Status)
	assert.True(t, task.Terminal())
	assert.Contains(t, task.Result, "pull/9")
}

func TestClient_GetTask_EmptyID(t *testing.T) {
	client := codegen.NewClient("test-token", "org-42")

	_, err := client.GetTask(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task ID is required")
}

func TestClient_RetryOnTransientError(t *testing.T) {
	var attempts atomic.Int32

	// Server that fails first 2 times, then succeeds
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt := attempts.Add(1)

		if attempt < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Service temporarily unavailable"))
			return
		}

		json.NewEncoder(w).Encode(map[string]any{"id": 123, "status": "pending"})
	}))
	defer server.Close()

	client := codegen.NewClient("test-token", "org-42",
		codegen.WithBaseURL(server.URL),
		codegen.WithRetryConfig(fastRetry()))

	task, err := client.CreateTask(context.Background(), codegen.TaskRequest{Prompt: "retry me"})

	require.NoError(t, err)
	assert.Equal(t, "pending", task.Status)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_NoRetryOnFatalError(t *testing.T) {
	var attempts atomic.Int32

	// Server that returns 401 Unauthorized (fatal)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Invalid token"))
	}))
	defer server.Close()

	client := codegen.NewClient("bad-token", "org-42",
		codegen.WithBaseURL(server.URL),
		codegen.WithRetryConfig(fastRetry()))

	_, err := client.CreateTask(context.Background(), codegen.TaskRequest{Prompt: "x"})

	require.Error(t, err)
	assert.True(t, codegen.IsFatal(err))
	assert.Contains(t, err.Error(), "CODEGEN_TOKEN")
	assert.Equal(t, int32(1), attempts.Load()) // Only one attempt
}

func TestClient_RateLimitRetry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt := attempts.Add(1)

		if attempt == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Rate limited"))
			return
		}

		json.NewEncoder(w).Encode(map[string]any{"id": 123, "status": "queued"})
	}))
	defer server.Close()

	client := codegen.NewClient("test-token", "org-42",
		codegen.WithBaseURL(server.URL),
		codegen.WithRetryConfig(fastRetry()))

	task, err := client.CreateTask(context.Background(), codegen.TaskRequest{Prompt: "x"})

	require.NoError(t, err)
	assert.Equal(t, "queued", task.Status)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := codegen.NewClient("test-token", "org-42",
		codegen.WithBaseURL(server.URL),
		codegen.WithRetryConfig(fastRetry()))

	_, err := client.CreateTask(context.Background(), codegen.TaskRequest{Prompt: "x"})

	require.Error(t, err)
	assert.True(t, codegen.IsTransient(err))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_Wait_StopsOnTerminalStatus(t *testing.T) {
	var polls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		poll := polls.Add(1)

		status := "running"
		if poll >= 3 {
			status = "complete"
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 123, "status": status})
	}))
	defer server.Close()

	client := codegen.NewClient("test-token", "org-42", codegen.WithBaseURL(server.URL))

	task, err := client.Wait(context.Background(), "123", codegen.WaitOptions{
		PollInterval: 1 * time.Millisecond,
		Deadline:     5 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, "complete", task.Status)
	assert.Equal(t, int32(3), polls.Load())
}

func TestClient_Wait_DeadlineNamesLastStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 123, "status": "in_progress"})
	}))
	defer server.Close()

	client := codegen.NewClient("test-token", "org-42", codegen.WithBaseURL(server.URL))

	_, err := client.Wait(context.Background(), "123", codegen.WaitOptions{
		PollInterval: 1 * time.Millisecond,
		Deadline:     10 * time.Millisecond,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not finished")
	assert.Contains(t, err.Error(), `"in_progress"`)
}

func TestClient_Wait_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": 123, "status": "pending"})
	}))
	defer server.Close()

	client := codegen.NewClient("test-token", "org-42", codegen.WithBaseURL(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Wait(ctx, "123", codegen.WaitOptions{
		PollInterval: 10 * time.Second,
		Deadline:     time.Hour,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTask_StatusClassification(t *testing.T) {
	tests := []struct {
		status  string
		pending bool
	}{
		{"pending", true},
		{"queued", true},
		{"in_progress", true},
		{"running", true},
		{"RUNNING", true},
		{"In_Progress", true},
		{"complete", false},
		{"completed", false},
		{"failed", false},
		{"cancelled", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			task := &codegen.Task{Status: tt.status}
			assert.Equal(t, tt.pending, task.Pending())
			assert.Equal(t, !tt.pending, task.Terminal())
		})
	}
}

func TestClient_DecodeErrorIsFatal(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := codegen.NewClient("test-token", "org-42",
		codegen.WithBaseURL(server.URL),
		codegen.WithRetryConfig(fastRetry()))

	_, err := client.GetTask(context.Background(), "123")

	require.Error(t, err)
	assert.True(t, codegen.IsFatal(err))
	assert.Equal(t, int32(1), attempts.Load())
}
