package resilience

import (
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("nats unavailable")

func trip(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_ = b.Execute(func() error { return errTest })
	}
}

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker("test", 3, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("expected closed, got %s", got)
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker("test", 3, time.Second)
	trip(b, 3)

	if got := b.State(); got != StateOpen {
		t.Fatalf("expected open, got %s", got)
	}
	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestFailuresBelowThresholdKeepClosed(t *testing.T) {
	b := NewBreaker("test", 3, time.Second)
	trip(b, 2)
	_ = b.Execute(func() error { return nil })
	trip(b, 2)

	if got := b.State(); got != StateClosed {
		t.Fatalf("success should reset the failure count, got %s", got)
	}
}

func TestHalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := NewBreaker("test", 2, time.Second)
	b.now = func() time.Time { return now }
	trip(b, 2)

	now = now.Add(2 * time.Second)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", got)
	}

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe should pass, got %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", got)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker("test", 2, time.Second)
	b.now = func() time.Time { return now }
	trip(b, 2)

	now = now.Add(2 * time.Second)
	err := b.Execute(func() error { return errTest })
	if !errors.Is(err, errTest) {
		t.Fatalf("expected probe error, got %v", err)
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected open after failed probe, got %s", got)
	}
}

func TestHalfOpenAllowsSingleProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker("test", 1, time.Second)
	b.now = func() time.Time { return now }
	trip(b, 1)
	now = now.Add(2 * time.Second)

	inner := errors.New("unset")
	err := b.Execute(func() error {
		inner = b.Execute(func() error { return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !errors.Is(inner, ErrCircuitOpen) {
		t.Fatalf("concurrent call during probe should be rejected, got %v", inner)
	}
}

func TestZeroMaxFailuresClamped(t *testing.T) {
	b := NewBreaker("test", 0, time.Second)
	trip(b, 1)
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected open, got %s", got)
	}
}
