package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// transientErr builds an error the retry loop treats as retryable.
func transientErr(msg string) error {
	return &APIError{
		Endpoint: "test",
		Class:    ErrorClassNetwork,
		Message:  msg,
	}
}

// fastRetryConfig keeps backoff waits negligible in tests.
func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       maxAttempts,
		InitialBackoff:    1 * time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 60*time.Second {
		t.Errorf("MaxBackoff = %v, want 60s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryWithBackoff_ImmediateSuccess(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(5), zerolog.Nop(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("retryWithBackoff failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(5), zerolog.Nop(), func() error {
		calls++
		if calls < 3 {
			return transientErr("temporary")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("retryWithBackoff failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("Calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	calls := 0
	cause := transientErr("persistent")
	err := retryWithBackoff(context.Background(), fastRetryConfig(3), zerolog.Nop(), func() error {
		calls++
		return cause
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Error = %v, want ErrRetryExhausted", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Exhaustion error should wrap the last attempt's error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoff_DurableErrorNotRetried(t *testing.T) {
	calls := 0
	durable := &APIError{
		Endpoint:   "kpi",
		StatusCode: 404,
		Class:      ErrorClassAPI,
		Message:    "404 Not Found",
	}
	err := retryWithBackoff(context.Background(), fastRetryConfig(5), zerolog.Nop(), func() error {
		calls++
		return durable
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Fatalf("Error = %v, want the 404 APIError unchanged", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("A durable error must not be reported as retry exhaustion")
	}
	if calls != 1 {
		t.Errorf("Calls = %d, want 1 (no retry on durable errors)", calls)
	}
}

func TestRetryWithBackoff_RateLimitClassRetried(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(5), zerolog.Nop(), func() error {
		calls++
		if calls == 1 {
			return &APIError{
				Endpoint:   "data/",
				StatusCode: 429,
				Class:      ErrorClassRateLimit,
				Message:    "rate limit exceeded",
			}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("retryWithBackoff failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Calls = %d, want 2", calls)
	}
}

func TestRetryWithBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    10 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	err := retryWithBackoff(ctx, config, zerolog.Nop(), func() error {
		calls++
		return transientErr("temporary")
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Fatalf("Error = %v, want ErrContextCancelled", err)
	}
	if calls != 1 {
		t.Errorf("Calls = %d, want 1 (cancelled during first backoff)", calls)
	}
	if elapsed := time.Since(start); elapsed > 1*time.Second {
		t.Errorf("Returned after %v, want prompt cancellation", elapsed)
	}
}
