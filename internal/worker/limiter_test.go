package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 4 {
		t.Errorf("expected default burst 4 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://status.acme.test/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different host should also work
	if err := limiter.Wait(ctx, "http://globex.test"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	err := limiter.WaitWithDelay(ctx, "http://status.acme.test", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	if duration := time.Since(start); duration < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", duration)
	}
}

func TestLimiter_SharedPerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)

	a := limiter.getLimiter("status.acme.test")
	b := limiter.getLimiter("status.acme.test")
	if a != b {
		t.Error("expected same limiter for same host")
	}
	if c := limiter.getLimiter("globex.test"); c == a {
		t.Error("expected distinct limiter per host")
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	ctx := context.Background()

	// Consume the burst token.
	if err := limiter.Wait(ctx, "http://slow.test"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := limiter.Wait(cancelled, "http://slow.test"); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("http://status.acme.test/foo")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "status.acme.test" {
		t.Errorf("expected status.acme.test, got %s", host)
	}

	if _, err := extractHost("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
