package reasonllm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:         1.0,
		BackoffMultiplier: 2.0,
		MaxDelay:          60.0,
		Jitter:            false,
	}

	delays := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}

	for i, expected := range delays {
		got := policy.Delay(i)
		if got != expected {
			t.Errorf("attempt %d: expected %v, got %v", i, expected, got)
		}
	}
}

func TestRetryPolicyDelayWithMaxCap(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:         1.0,
		BackoffMultiplier: 2.0,
		MaxDelay:          5.0,
		Jitter:            false,
	}

	got := policy.Delay(10)
	if got != 5*time.Second {
		t.Errorf("expected 5s (capped), got %v", got)
	}
}

func TestRetryPolicyDelayWithJitter(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:         1.0,
		BackoffMultiplier: 2.0,
		MaxDelay:          60.0,
		Jitter:            true,
	}

	for i := 0; i < 100; i++ {
		got := policy.Delay(0)
		if got < 500*time.Millisecond || got > 1500*time.Millisecond {
			t.Fatalf("jittered delay %v outside [500ms, 1500ms]", got)
		}
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("got %q after %d calls, want %q after 1", got, calls, "ok")
	}
}

func TestRetryRetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &ServerError{BackendError: BackendError{Message: "503", Retryable: true}}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		return "", &AuthenticationError{BackendError: BackendError{Message: "401"}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("permanent error should not be retried, got %d calls", calls)
	}
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthenticationError, got %T", err)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), fastPolicy(2), func(ctx context.Context) (string, error) {
		calls++
		return "", &ServerError{BackendError: BackendError{Message: "500", Retryable: true}}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 { // initial + 2 retries
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RetryPolicy{MaxRetries: 5, BaseDelay: 10.0, BackoffMultiplier: 1.0, MaxDelay: 10.0}
	_, err := retry(ctx, policy, func(ctx context.Context) (string, error) {
		return "", &ServerError{BackendError: BackendError{Message: "500", Retryable: true}}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryCallsOnRetry(t *testing.T) {
	var attempts []int
	policy := fastPolicy(2)
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_, _ = retry(context.Background(), policy, func(ctx context.Context) (string, error) {
		return "", &NetworkError{BackendError: BackendError{Message: "conn reset", Retryable: true}}
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected OnRetry attempts [1 2], got %v", attempts)
	}
}

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		BaseDelay:         0.001,
		MaxDelay:          0.001,
		BackoffMultiplier: 1.0,
	}
}
