// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Use a tiny base delay so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

func statusServer(t *testing.T, calls *int32, status func(n int32) int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.WriteHeader(status(n))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		status     func(n int32) int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{
			name:       "immediate success",
			status:     func(int32) int { return http.StatusOK },
			maxRetries: 3,
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name: "429 then 200",
			status: func(n int32) int {
				if n <= 2 {
					return http.StatusTooManyRequests
				}
				return http.StatusOK
			},
			maxRetries: 3,
			wantStatus: http.StatusOK,
			wantCalls:  3,
		},
		{
			name: "503 then 200",
			status: func(n int32) int {
				if n == 1 {
					return http.StatusServiceUnavailable
				}
				return http.StatusOK
			},
			maxRetries: 3,
			wantStatus: http.StatusOK,
			wantCalls:  2,
		},
		{
			name:       "exhausts retries",
			status:     func(int32) int { return http.StatusTooManyRequests },
			maxRetries: 2,
			wantStatus: http.StatusTooManyRequests,
			wantCalls:  3,
		},
		{
			name:       "default max retries",
			status:     func(int32) int { return http.StatusTooManyRequests },
			maxRetries: 0,
			wantStatus: http.StatusTooManyRequests,
			wantCalls:  4,
		},
		{
			name:       "non retryable error passes through",
			status:     func(int32) int { return http.StatusNotFound },
			maxRetries: 3,
			wantStatus: http.StatusNotFound,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := statusServer(t, &calls, tt.status)

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	var calls int32
	ts := statusServer(t, &calls, func(int32) int { return http.StatusTooManyRequests })

	// Use a longer base delay so the context cancels during the wait.
	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBackoff(t *testing.T) {
	old, oldMax := RetryBaseDelay, MaxRetryAfter
	RetryBaseDelay = time.Second
	MaxRetryAfter = 10 * time.Second
	defer func() { RetryBaseDelay, MaxRetryAfter = old, oldMax }()

	assert.Equal(t, 1*time.Second, backoff(0, ""))
	assert.Equal(t, 4*time.Second, backoff(2, ""))
	assert.Equal(t, 3*time.Second, backoff(0, "3"))
	assert.Equal(t, 10*time.Second, backoff(0, "120"))
	assert.Equal(t, 2*time.Second, backoff(1, "Wed, 21 Oct 2015 07:28:00 GMT"))
}
