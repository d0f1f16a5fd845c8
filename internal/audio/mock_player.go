package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer simulates playback without producing sound. It waits for the
// WAV's duration, or a fixed duration when one is set, and honours
// cancellation like Player.
type MockPlayer struct {
	callbacks MockCallbacks

	mu          sync.RWMutex
	duration    time.Duration
	delayFactor float64
	playErr     error
	paths       []string

	playing atomic.Bool

	// Metrics for testing
	playCount      atomic.Int64
	completeCount  atomic.Int64
	interruptCount atomic.Int64
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	// OnPlay is called once the simulated sound starts.
	OnPlay func(path string)

	// OnStop is called when the sound ends, interrupted or not.
	OnStop func(path string, interrupted bool)
}

// MockPlayerMetrics contains playback metrics for testing.
type MockPlayerMetrics struct {
	PlayCount      int64
	CompleteCount  int64
	InterruptCount int64
}

// DefaultMockPlayer creates a new mock player with default settings.
func DefaultMockPlayer() *MockPlayer {
	return &MockPlayer{delayFactor: 1.0}
}

// NewMockPlayer creates a new mock player with custom callbacks.
func NewMockPlayer(callbacks MockCallbacks) *MockPlayer {
	mp := DefaultMockPlayer()
	mp.callbacks = callbacks
	return mp
}

// Play simulates playing the file at path. The file must exist.
func (mp *MockPlayer) Play(ctx context.Context, path string) error {
	mp.playCount.Add(1)

	mp.mu.Lock()
	mp.paths = append(mp.paths, path)
	playErr := mp.playErr
	d := mp.duration
	factor := mp.delayFactor
	mp.mu.Unlock()

	if playErr != nil {
		return playErr
	}

	if d == 0 {
		wav, err := readWAVFile(path)
		if err != nil {
			return err
		}
		d = wav.Duration()
	} else if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening audio: %w", err)
	}
	d = time.Duration(float64(d) * factor)

	mp.playing.Store(true)
	if mp.callbacks.OnPlay != nil {
		mp.callbacks.OnPlay(path)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	interrupted := false
	select {
	case <-ctx.Done():
		interrupted = true
		mp.interruptCount.Add(1)
	case <-timer.C:
		mp.completeCount.Add(1)
	}
	mp.playing.Store(false)

	if mp.callbacks.OnStop != nil {
		mp.callbacks.OnStop(path, interrupted)
	}
	if interrupted {
		return ctx.Err()
	}
	return nil
}

func readWAVFile(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()
	return DecodeWAV(bufio.NewReader(f))
}

// IsPlaying returns whether a simulated sound is in progress.
func (mp *MockPlayer) IsPlaying() bool {
	return mp.playing.Load()
}

// SetAudioDuration overrides the duration read from the file. Zero restores
// the file duration.
func (mp *MockPlayer) SetAudioDuration(d time.Duration) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.duration = d
}

// SetDelayFactor scales the simulated duration.
// 1.0 is normal speed, 0.5 plays in half the time.
func (mp *MockPlayer) SetDelayFactor(factor float64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.delayFactor = factor
}

// SetError makes every following Play fail with err. Nil clears it.
func (mp *MockPlayer) SetError(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.playErr = err
}

// PlayedPaths returns every path passed to Play, in call order.
func (mp *MockPlayer) PlayedPaths() []string {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	out := make([]string, len(mp.paths))
	copy(out, mp.paths)
	return out
}

// GetMetrics returns playback metrics for testing.
func (mp *MockPlayer) GetMetrics() MockPlayerMetrics {
	return MockPlayerMetrics{
		PlayCount:      mp.playCount.Load(),
		CompleteCount:  mp.completeCount.Load(),
		InterruptCount: mp.interruptCount.Load(),
	}
}

// ErrSimulated is a ready-made failure for SetError.
var ErrSimulated = errors.New("simulated playback error")
