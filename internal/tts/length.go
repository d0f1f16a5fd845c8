package tts

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/ttstalker/internal/cache"
)

// FallbackLength is returned by Length when no estimate can be made.
const FallbackLength = 1.0

// Length returns the spoken duration of text in seconds. It never fails:
// an unknown language, a vendor error or an empty result yield
// FallbackLength. The talker does not need to be enabled.
func (t *Talker) Length(ctx context.Context, text, lang string) float64 {
	state := t.state.Load()

	voice, ok := state.voices[langKey(lang)]
	if !ok {
		log.Error("Can't estimate length", "lang", lang, "error", ErrUnknownLanguage)
		return FallbackLength
	}
	engine, ok := t.engine(voice.Vendor)
	if !ok {
		log.Error("Can't estimate length", "vendor", voice.Vendor, "error", ErrNoEngine)
		return FallbackLength
	}

	key := cache.GenerateCacheKey(text, voice.Vendor, voice.Name, state.params)
	if seconds, ok := t.lengths.Get(key); ok {
		return seconds
	}

	resp, err := engine.Synthesize(ctx, text, voice, state.params)
	if err != nil {
		log.Error("Can't estimate length", "voice", voice.String(), "error", err)
		return FallbackLength
	}
	seconds := resp.Duration()
	if seconds <= 0 {
		log.Warn("Vendor returned no audio", "voice", voice.String())
		return FallbackLength
	}

	t.lengths.Put(key, seconds)
	log.Debug("Length", "text", text, "lang", lang, "seconds", seconds)
	return seconds
}

// LengthCacheStats reports duration cache usage.
func (t *Talker) LengthCacheStats() cache.CacheStats {
	return t.lengths.Stats()
}

// PruneLengths drops cached durations older than maxAge.
func (t *Talker) PruneLengths(maxAge time.Duration) int {
	return t.lengths.Prune(maxAge)
}
