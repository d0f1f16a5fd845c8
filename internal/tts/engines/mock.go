package engines

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/ttstalker/internal/audio"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// MockEngine synthesizes silence paced like speech. It understands the
// "rate" param.
type MockEngine struct {
	// SampleRate of the produced audio.
	SampleRate int

	// LetterTime is the speaking time of one letter at rate 1.0.
	LetterTime time.Duration

	// Fail, when set, is returned by every Synthesize call.
	Fail error

	calls atomic.Int64

	mu         sync.Mutex
	lastParams map[string]any
}

// NewMockEngine creates a mock engine producing 22050 Hz audio.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		SampleRate: 22050,
		LetterTime: 60 * time.Millisecond,
	}
}

// Synthesize returns silent audio with estimated events.
func (e *MockEngine) Synthesize(ctx context.Context, text string, voice ttypes.Voice, params map[string]any) (ttypes.Response, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.lastParams = params
	e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Fail != nil {
		return nil, e.Fail
	}

	script := ParseScript(text)
	speaking := time.Duration(float64(time.Duration(script.Letters())*e.LetterTime) / rate(params))
	if len(script.Words) == 0 {
		speaking = 0
	}

	pcm := audio.Silence(e.SampleRate, 1, speaking)
	resp := NewResponse(e.SampleRate, pcm, nil, nil, nil)
	resp.markers, resp.words, resp.visemes = script.Timings(resp.Duration())
	return resp, nil
}

// Calls returns how many times Synthesize ran.
func (e *MockEngine) Calls() int64 {
	return e.calls.Load()
}

// LastParams returns the params of the latest Synthesize call.
func (e *MockEngine) LastParams() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastParams
}

var _ ttypes.Synthesizer = (*MockEngine)(nil)
