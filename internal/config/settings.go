package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// Settings is an immutable snapshot of the talker configuration. A new
// snapshot is built on every reload; nothing mutates a published one.
type Settings struct {
	// Enable switches the talker on. A disabled talker refuses to speak.
	Enable bool `mapstructure:"enable"`

	LipsyncEnabled bool `mapstructure:"lipsync_enabled"`
	LipsyncBlender bool `mapstructure:"lipsync_blender"`

	// ExecuteMarker lets the animation worker act on markers.
	ExecuteMarker bool `mapstructure:"execute_marker"`

	// TTSDelay is the delay in seconds between dispatch start and audio start.
	TTSDelay float64 `mapstructure:"tts_delay"`

	WaitForTTSReady bool `mapstructure:"wait_for_tts_ready"`

	// Voices maps a language tag to "vendor:voice".
	Voices map[string]string `mapstructure:"voices"`

	// TTSParams are passed to the vendor on every request.
	TTSParams map[string]any `mapstructure:"tts_params"`

	// Emotion adds emotive speech params to every request, under TTSParams.
	Emotion EmotionSettings `mapstructure:"emotion"`

	// Animations maps marker names to "gesture:name" or "emotion:name".
	Animations map[string]string `mapstructure:"animations"`

	// Visemes overrides entries of the viseme shape table.
	Visemes map[string]ttypes.VisemeParams `mapstructure:"visemes"`

	PeerChatbot PeerSettings `mapstructure:"peer_chatbot"`

	// LengthCacheSize bounds the duration-query cache. Zero disables it.
	LengthCacheSize int `mapstructure:"length_cache_size"`
}

// PeerSettings configures the peer chatbot notification.
type PeerSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// EmotionSettings selects an emotive speech preset. Name is sent as the
// "emotion" param; Params tune the preset.
type EmotionSettings struct {
	Enabled bool           `mapstructure:"enabled"`
	Name    string         `mapstructure:"name"`
	Params  map[string]any `mapstructure:"params"`
}

// EmotionParams are the knobs an emotion preset understands.
var EmotionParams = []string{
	"chunk_size", "semitones", "cutfreq", "gain", "qfactor",
	"speed", "depth", "tempo", "intensity", "parameter_control",
}

// Default returns the settings used when no config file exists.
func Default() Settings {
	return Settings{
		Enable:          true,
		LipsyncEnabled:  true,
		LipsyncBlender:  true,
		ExecuteMarker:   true,
		TTSDelay:        0.1,
		Voices:          map[string]string{"en-US": "mock:default"},
		TTSParams:       map[string]any{},
		Animations:      map[string]string{},
		Visemes:         map[string]ttypes.VisemeParams{},
		LengthCacheSize: 256,
	}
}

// SetDefaults registers Default() with v so unset keys fall back to it.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("enable", d.Enable)
	v.SetDefault("lipsync_enabled", d.LipsyncEnabled)
	v.SetDefault("lipsync_blender", d.LipsyncBlender)
	v.SetDefault("execute_marker", d.ExecuteMarker)
	v.SetDefault("tts_delay", d.TTSDelay)
	v.SetDefault("wait_for_tts_ready", d.WaitForTTSReady)
	v.SetDefault("voices", d.Voices)
	v.SetDefault("emotion.enabled", false)
	v.SetDefault("peer_chatbot.enabled", false)
	v.SetDefault("peer_chatbot.url", "")
	v.SetDefault("length_cache_size", d.LengthCacheSize)
}

// Load decodes a snapshot from v and validates it.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	if s.Voices == nil {
		s.Voices = map[string]string{}
	}
	if s.TTSParams == nil {
		s.TTSParams = map[string]any{}
	}
	if s.Animations == nil {
		s.Animations = map[string]string{}
	}
	if s.Visemes == nil {
		s.Visemes = map[string]ttypes.VisemeParams{}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges and entry syntax.
func (s Settings) Validate() error {
	if s.TTSDelay < 0 {
		return fmt.Errorf("tts_delay must not be negative, got %v", s.TTSDelay)
	}
	if s.LengthCacheSize < 0 {
		return fmt.Errorf("length_cache_size must not be negative, got %d", s.LengthCacheSize)
	}
	for lang, voice := range s.Voices {
		if vendor, name, ok := strings.Cut(voice, ":"); !ok || vendor == "" || name == "" {
			return fmt.Errorf("voice for %s must be vendor:voice, got %q", lang, voice)
		}
	}
	for marker, target := range s.Animations {
		if _, _, ok := strings.Cut(target, ":"); !ok {
			return fmt.Errorf("animation for %s must be kind:name, got %q", marker, target)
		}
	}
	if s.Emotion.Enabled && strings.TrimSpace(s.Emotion.Name) == "" {
		return fmt.Errorf("emotion.name is required when emotion.enabled is set")
	}
	if s.PeerChatbot.Enabled && s.PeerChatbot.URL == "" {
		return fmt.Errorf("peer_chatbot.url is required when peer_chatbot.enabled is set")
	}
	return nil
}

// Mapping returns the animation mapping with lowercase keys.
func (s Settings) Mapping() ttypes.AnimationMapping {
	m := make(ttypes.AnimationMapping, len(s.Animations))
	for k, v := range s.Animations {
		m[strings.ToLower(k)] = v
	}
	return m
}

// RequestParams returns the vendor params of a request: the emotion preset
// and its knobs when enabled, then TTSParams, which win on conflicts.
func (s Settings) RequestParams() map[string]any {
	out := make(map[string]any, len(s.TTSParams)+len(s.Emotion.Params)+1)
	if s.Emotion.Enabled {
		out["emotion"] = s.Emotion.Name
		for k, v := range s.Emotion.Params {
			out[strings.ToLower(k)] = v
		}
	}
	for k, v := range s.TTSParams {
		out[k] = v
	}
	return out
}
