package engines

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// FallbackEngine wraps a primary vendor with a secondary one that takes over
// once the primary has failed maxFailures times in a row.
type FallbackEngine struct {
	primary  ttypes.Synthesizer
	fallback ttypes.Synthesizer

	// voice is used with the fallback engine, whose voices differ.
	voice ttypes.Voice

	mu            sync.Mutex
	failures      int
	maxFailures   int
	usingFallback bool
}

// NewFallbackEngine creates an engine with automatic fallback. The fallback
// speaks with voice regardless of the voice requested.
func NewFallbackEngine(primary, fallback ttypes.Synthesizer, voice ttypes.Voice, maxFailures int) *FallbackEngine {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &FallbackEngine{
		primary:     primary,
		fallback:    fallback,
		voice:       voice,
		maxFailures: maxFailures,
	}
}

// Synthesize uses the active engine, switching to the fallback when the
// primary keeps failing.
func (f *FallbackEngine) Synthesize(ctx context.Context, text string, voice ttypes.Voice, params map[string]any) (ttypes.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.usingFallback {
		log.Debug("Using fallback engine", "voice", f.voice.String())
		return f.fallback.Synthesize(ctx, text, f.voice, params)
	}

	resp, err := f.primary.Synthesize(ctx, text, voice, params)
	if err == nil {
		if f.failures > 0 {
			log.Info("Primary engine recovered", "failures", f.failures)
			f.failures = 0
		}
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	f.failures++
	log.Warn("Primary engine failed", "attempt", f.failures, "max", f.maxFailures, "error", err)
	if f.failures < f.maxFailures {
		return nil, err
	}

	log.Warn("Switching to fallback engine", "failures", f.failures, "voice", f.voice.String())
	f.usingFallback = true
	resp, err = f.fallback.Synthesize(ctx, text, f.voice, params)
	if err != nil {
		return nil, fmt.Errorf("both engines failed: %w", err)
	}
	return resp, nil
}

// Reset returns to the primary engine.
func (f *FallbackEngine) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures = 0
	f.usingFallback = false
	log.Info("Reset to primary engine")
}

// Status describes the active engine.
func (f *FallbackEngine) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.usingFallback {
		return fmt.Sprintf("Using fallback engine (primary failed %d times)", f.failures)
	}
	return fmt.Sprintf("Using primary engine (failures: %d/%d)", f.failures, f.maxFailures)
}

var _ ttypes.Synthesizer = (*FallbackEngine)(nil)
