package engines

import (
	"context"
	"errors"
	"testing"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

func TestFallbackEngine(t *testing.T) {
	primary := NewMockEngine()
	primary.Fail = errors.New("primary engine failure")
	fallback := NewMockEngine()

	engine := NewFallbackEngine(primary, fallback, ttypes.Voice{Vendor: "mock", Name: "default"}, 2)
	voice := ttypes.Voice{Vendor: "piper", Name: "en_US-lessac-medium"}
	ctx := context.Background()

	// First attempt fails (count = 1)
	if _, err := engine.Synthesize(ctx, "test 1", voice, nil); err == nil {
		t.Error("Expected first attempt to fail")
	}

	// Second attempt switches to the fallback
	resp, err := engine.Synthesize(ctx, "test 2", voice, nil)
	if err != nil {
		t.Fatalf("Expected second attempt to succeed with fallback: %v", err)
	}
	if resp == nil || resp.Duration() <= 0 {
		t.Error("Expected audio to be generated")
	}

	if status := engine.Status(); status != "Using fallback engine (primary failed 2 times)" {
		t.Errorf("Unexpected status: %s", status)
	}

	// Subsequent calls go straight to the fallback
	if _, err := engine.Synthesize(ctx, "test 3", voice, nil); err != nil {
		t.Errorf("Expected subsequent calls to use fallback: %v", err)
	}
	if primary.Calls() != 2 {
		t.Errorf("Expected primary to be skipped after switching, got %d calls", primary.Calls())
	}
	if fallback.Calls() != 2 {
		t.Errorf("Expected 2 fallback calls, got %d", fallback.Calls())
	}
}

func TestFallbackEngine_RecoveryAndReset(t *testing.T) {
	primary := NewMockEngine()
	fallback := NewMockEngine()
	engine := NewFallbackEngine(primary, fallback, ttypes.Voice{Vendor: "mock", Name: "default"}, 3)
	voice := ttypes.Voice{Vendor: "piper", Name: "x"}
	ctx := context.Background()

	primary.Fail = errors.New("flaky")
	_, _ = engine.Synthesize(ctx, "a", voice, nil)
	primary.Fail = nil
	if _, err := engine.Synthesize(ctx, "b", voice, nil); err != nil {
		t.Fatalf("Expected primary to recover: %v", err)
	}
	if status := engine.Status(); status != "Using primary engine (failures: 0/3)" {
		t.Errorf("Expected failure count reset, got %s", status)
	}

	engine.Reset()
	if fallback.Calls() != 0 {
		t.Errorf("Fallback should not have been used, got %d calls", fallback.Calls())
	}
}

func TestFallbackEngine_CancelDoesNotCount(t *testing.T) {
	primary := NewMockEngine()
	engine := NewFallbackEngine(primary, NewMockEngine(), ttypes.Voice{Vendor: "mock", Name: "default"}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Synthesize(ctx, "a", ttypes.Voice{Vendor: "piper", Name: "x"}, nil); err == nil {
		t.Fatal("Expected cancelled synthesis to fail")
	}
	if status := engine.Status(); status != "Using primary engine (failures: 0/1)" {
		t.Errorf("Cancellation must not count as a failure, got %s", status)
	}
}
