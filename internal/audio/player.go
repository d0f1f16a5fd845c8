package audio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/ebitengine/oto/v3"
)

// ErrPlayerClosed is returned by Play after Close.
var ErrPlayerClosed = errors.New("player is closed")

// pollInterval is how often a playing sound is checked for completion
// and cancellation.
const pollInterval = 10 * time.Millisecond

// Player plays 16-bit PCM WAV files on the default sound device.
// One sound plays at a time; concurrent calls to Play queue up.
type Player struct {
	// OTO context - initialized once and reused
	context *oto.Context
	config  PlayerConfig

	// Serializes playback
	mu sync.Mutex

	volume  atomic.Uint64 // volume * 1e6
	playing atomic.Bool
	closed  atomic.Bool
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // 22050, 44100 or 48000 Hz
	Channels   int // 1 = mono, 2 = stereo
	BitDepth   int // 16 bits per sample
	BufferSize int // Buffer size in bytes
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 22050, // Most TTS vendors default to this
		Channels:   1,
		BitDepth:   16,
		BufferSize: 4096,
	}
}

// NewPlayer opens the sound device. oto allows a single context per
// process, so a program should create one Player and share it.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(config.BufferSize) * time.Second / time.Duration(config.SampleRate*config.Channels*2),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	p := &Player{
		context: ctx,
		config:  config,
	}
	p.SetVolume(1.0)
	return p, nil
}

func validateConfig(config PlayerConfig) error {
	switch config.SampleRate {
	case 22050, 44100, 48000:
	default:
		return fmt.Errorf("sample rate must be 22050, 44100 or 48000 Hz, got %d", config.SampleRate)
	}

	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}

	if config.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", config.BitDepth)
	}

	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}

	return nil
}

// Play plays the WAV file at path and returns when it has finished or ctx is
// cancelled. The file is read fully before playback starts.
func (p *Player) Play(ctx context.Context, path string) error {
	if p.closed.Load() {
		return ErrPlayerClosed
	}

	wav, err := p.load(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	player := p.context.NewPlayer(bytes.NewReader(wav.Data))
	defer player.Close()
	player.SetVolume(p.Volume())

	log.Debug("Playing audio", "path", path, "size", humanize.Bytes(uint64(len(wav.Data))), "duration", wav.Duration())

	p.playing.Store(true)
	defer p.playing.Store(false)
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	// The sample buffer must stay reachable until oto has drained it.
	runtime.KeepAlive(wav.Data)
	return player.Err()
}

// load reads and validates a WAV file against the device format.
func (p *Player) load(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	wav, err := DecodeWAV(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if wav.SampleRate != p.config.SampleRate || wav.Channels != p.config.Channels {
		return nil, fmt.Errorf("%w: file is %d Hz/%d ch, device is %d Hz/%d ch",
			ErrUnsupportedFormat, wav.SampleRate, wav.Channels, p.config.SampleRate, p.config.Channels)
	}
	return wav, nil
}

// IsPlaying returns whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// SetVolume sets the playback volume (0.0 to 1.0) for subsequent sounds.
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	p.volume.Store(uint64(volume * 1000000))
	return nil
}

// Volume returns the current volume.
func (p *Player) Volume() float64 {
	return float64(p.volume.Load()) / 1000000.0
}

// Close rejects further playback. oto/v3 contexts cannot be closed; the
// device is released when the process exits.
func (p *Player) Close() error {
	p.closed.Store(true)
	return nil
}
