package tts

import (
	"context"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// Player plays an audio file and returns when playback ends.
// Cancelling ctx must stop the sound promptly.
type Player interface {
	Play(ctx context.Context, path string) error
}

// MarkerSink receives markers reached by the dispatch loop. Enqueue must not
// block on the animation backend.
type MarkerSink interface {
	Enqueue(ev ttypes.Event) error
}
