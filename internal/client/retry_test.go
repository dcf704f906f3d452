package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"annotation-insights/internal/model"
)

func TestBackoff(t *testing.T) {
	cfg := model.RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}
	assert.Equal(t, 100*time.Millisecond, backoff(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, backoff(cfg, 2))
	assert.Equal(t, 400*time.Millisecond, backoff(cfg, 3))
	assert.Equal(t, time.Second, backoff(cfg, 10))

	cfg.BackoffMultiplier = 0
	assert.Equal(t, 100*time.Millisecond, backoff(cfg, 4))

	cfg.BackoffMultiplier = 2
	cfg.Jitter = true
	for i := 0; i < 100; i++ {
		d := backoff(cfg, 2)
		assert.GreaterOrEqual(t, d, 180*time.Millisecond)
		assert.LessOrEqual(t, d, 220*time.Millisecond)
	}
}

func TestRetryable(t *testing.T) {
	var syntaxErr *json.SyntaxError
	decodeErr := json.Unmarshal([]byte("{"), &struct{}{})
	assert.ErrorAs(t, decodeErr, &syntaxErr)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", errors.New("connection reset by peer"), true},
		{"server error", &APIError{StatusCode: 500}, true},
		{"rate limited", &APIError{StatusCode: 429}, true},
		{"not found", &APIError{StatusCode: 404}, false},
		{"wrapped client error", fmt.Errorf("call: %w", &APIError{StatusCode: 400}), false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), false},
		{"bad json", fmt.Errorf("decode response: %w", decodeErr), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := model.RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour}
	calls := 0

	done := make(chan error)
	go func() {
		done <- withRetry(ctx, cfg, zap.NewNop(), "op", func(ctx context.Context) error {
			calls++
			return errors.New("flaky")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetryAtLeastOnce(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), model.RetryConfig{}, zap.NewNop(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
