package engines

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dgnsrekt/ttstalker/internal/audio"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// Response is synthesized speech held in memory as 16-bit PCM.
type Response struct {
	sampleRate int
	pcm        []byte

	markers []ttypes.Event
	words   []ttypes.Event
	visemes []ttypes.Event
}

// NewResponse wraps mono PCM samples and their events.
func NewResponse(sampleRate int, pcm []byte, markers, words, visemes []ttypes.Event) *Response {
	return &Response{
		sampleRate: sampleRate,
		pcm:        pcm,
		markers:    markers,
		words:      words,
		visemes:    visemes,
	}
}

// Duration returns the audio length in seconds.
func (r *Response) Duration() float64 {
	if r.sampleRate == 0 {
		return 0
	}
	return float64(len(r.pcm)/2) / float64(r.sampleRate)
}

// WriteAudio writes the audio as a WAV file.
func (r *Response) WriteAudio(path string) error {
	var buf bytes.Buffer
	if err := audio.EncodeWAV(&buf, r.sampleRate, 1, r.pcm); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (r *Response) Markers() []ttypes.Event { return r.markers }
func (r *Response) Words() []ttypes.Event   { return r.words }
func (r *Response) Visemes() []ttypes.Event { return r.visemes }

var _ ttypes.Response = (*Response)(nil)
