package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

func TestClosedStateAllowsCalls(t *testing.T) {
	cb := New(Config{
		Name:             "rates-api",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          100 * time.Millisecond,
	})

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state Closed, got %v", cb.GetState())
	}
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(Config{
		Name:             "rates-api",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          100 * time.Millisecond,
	})

	providerErr := errors.New("provider down")
	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return providerErr }); !errors.Is(err, providerErr) {
			t.Errorf("Expected provider error passed through, got: %v", err)
		}
	}

	if cb.GetState() != StateOpen {
		t.Errorf("Expected state Open, got %v", cb.GetState())
	}

	// An open breaker fails fast without invoking the function.
	invoked := false
	err := cb.Call(func() error { invoked = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got: %v", err)
	}
	if invoked {
		t.Error("Expected function not to run while open")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{
		Name:             "query-analyzer",
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	boom := errors.New("boom")
	cb.Call(func() error { return boom })
	cb.Call(func() error { return nil })
	cb.Call(func() error { return boom })

	// Two non-consecutive failures must not trip a threshold of two.
	if cb.GetState() != StateClosed {
		t.Errorf("Expected state Closed, got %v", cb.GetState())
	}
}

func TestHalfOpenProbeAfterCooldown(t *testing.T) {
	cb := New(Config{
		Name:             "query-analyzer",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
	})

	boom := errors.New("boom")
	cb.Call(func() error { return boom })
	cb.Call(func() error { return boom })

	if cb.GetState() != StateOpen {
		t.Fatalf("Expected state Open, got %v", cb.GetState())
	}

	time.Sleep(60 * time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("Expected half-open probe to run, got: %v", err)
	}
}

func TestClosesAfterEnoughProbes(t *testing.T) {
	cb := New(Config{
		Name:             "rates-api",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
	})

	boom := errors.New("boom")
	cb.Call(func() error { return boom })
	cb.Call(func() error { return boom })

	time.Sleep(60 * time.Millisecond)

	cb.Call(func() error { return nil })
	cb.Call(func() error { return nil })

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state Closed after probes, got %v", cb.GetState())
	}
}

func TestReopensOnFailedProbe(t *testing.T) {
	cb := New(Config{
		Name:             "rates-api",
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          50 * time.Millisecond,
	})

	boom := errors.New("boom")
	cb.Call(func() error { return boom })
	cb.Call(func() error { return boom })

	time.Sleep(60 * time.Millisecond)

	cb.Call(func() error { return boom })

	if cb.GetState() != StateOpen {
		t.Errorf("Expected state Open after failed probe, got %v", cb.GetState())
	}
}
