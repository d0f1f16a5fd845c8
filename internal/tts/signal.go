package tts

import (
	"context"
	"sync/atomic"
	"time"
)

// Signal is a settable flag that can also be waited on. External sources
// only Set it; the cycle that owns it clears it.
type Signal struct {
	set    atomic.Bool
	notify chan struct{}
}

// NewSignal creates a cleared signal.
func NewSignal() *Signal {
	return &Signal{notify: make(chan struct{}, 1)}
}

// Set raises the flag and wakes a waiter.
func (s *Signal) Set() {
	s.set.Store(true)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Clear lowers the flag and drops a pending notification.
func (s *Signal) Clear() {
	s.set.Store(false)
	select {
	case <-s.notify:
	default:
	}
}

// IsSet reports whether the flag is raised.
func (s *Signal) IsSet() bool {
	return s.set.Load()
}

// Wait blocks until the flag is raised, timeout passes or ctx is done.
// It reports whether the flag is set on return.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) bool {
	if s.IsSet() {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-s.notify:
			if s.IsSet() {
				return true
			}
		case <-timer.C:
			return s.IsSet()
		case <-ctx.Done():
			return s.IsSet()
		}
	}
}
