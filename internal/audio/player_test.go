package audio

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeWAV(t *testing.T, sampleRate, channels int, d time.Duration) string {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeWAV(&buf, sampleRate, channels, Silence(sampleRate, channels, d)); err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "speech.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestPlayerConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    PlayerConfig
		expectErr bool
	}{
		{"default", DefaultPlayerConfig(), false},
		{"valid 48000Hz stereo", PlayerConfig{SampleRate: 48000, Channels: 2, BitDepth: 16, BufferSize: 8192}, false},
		{"invalid sample rate", PlayerConfig{SampleRate: 16000, Channels: 1, BitDepth: 16, BufferSize: 4096}, true},
		{"invalid channels", PlayerConfig{SampleRate: 44100, Channels: 3, BitDepth: 16, BufferSize: 4096}, true},
		{"invalid bit depth", PlayerConfig{SampleRate: 44100, Channels: 1, BitDepth: 24, BufferSize: 4096}, true},
		{"invalid buffer", PlayerConfig{SampleRate: 44100, Channels: 1, BitDepth: 16}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.config)
			if tt.expectErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

// These tests never reach the sound device: they fail before a sound
// would be created.
func TestPlayer_RejectsBeforeDevice(t *testing.T) {
	p := &Player{config: DefaultPlayerConfig()}

	t.Run("missing file", func(t *testing.T) {
		err := p.Play(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected not-exist error, got %v", err)
		}
	})

	t.Run("format mismatch", func(t *testing.T) {
		path := writeWAV(t, 44100, 1, 10*time.Millisecond)
		err := p.Play(context.Background(), path)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		path := writeWAV(t, 22050, 1, 10*time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := p.Play(ctx, path); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		p.Close()
		if err := p.Play(context.Background(), "x.wav"); !errors.Is(err, ErrPlayerClosed) {
			t.Errorf("Expected ErrPlayerClosed, got %v", err)
		}
	})
}

func TestPlayer_Volume(t *testing.T) {
	p := &Player{}
	if err := p.SetVolume(0.5); err != nil {
		t.Fatalf("SetVolume failed: %v", err)
	}
	if got := p.Volume(); got != 0.5 {
		t.Errorf("Expected 0.5, got %f", got)
	}
	if err := p.SetVolume(1.5); err == nil {
		t.Error("Expected error for volume above 1.0")
	}
}
