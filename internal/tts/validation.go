package tts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgnsrekt/ttstalker/internal/config"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
	"github.com/dgnsrekt/ttstalker/internal/viseme"
)

// ValidationResult contains the result of settings validation
type ValidationResult struct {
	// Warnings lists entries that will be ignored or fail at speak time
	Warnings []string

	// Guidance provides fix-up instructions if there are warnings
	Guidance string

	// Details contains additional validation information
	Details map[string]string
}

// OK reports whether nothing needs attention.
func (r *ValidationResult) OK() bool {
	return len(r.Warnings) == 0
}

// ValidateSettings checks settings against the registered vendors. It goes
// beyond config.Settings.Validate: entries here are well-formed but refer to
// things that do not exist.
func ValidateSettings(s config.Settings, vendors []string) *ValidationResult {
	result := &ValidationResult{Details: make(map[string]string)}

	known := make(map[string]bool, len(vendors))
	for _, v := range vendors {
		known[v] = true
	}
	result.Details["vendors"] = strings.Join(sorted(vendors), ", ")

	missingVendor := false
	for _, lang := range sortedKeys(s.Voices) {
		voice, err := ttypes.ParseVoice(s.Voices[lang])
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
			continue
		}
		if !known[voice.Vendor] {
			missingVendor = true
			result.Warnings = append(result.Warnings, fmt.Sprintf("voice for %s uses vendor %q which has no engine", lang, voice.Vendor))
		}
	}
	result.Details["voices"] = fmt.Sprint(len(s.Voices))

	for _, name := range sortedKeys(s.Visemes) {
		if _, ok := viseme.CanonicalName(name); !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("viseme override %q matches no viseme", name))
		}
	}

	for _, marker := range sortedKeys(s.Animations) {
		kind, _, _ := strings.Cut(s.Animations[marker], ":")
		switch ttypes.AnimationKind(strings.ToLower(strings.TrimSpace(kind))) {
		case ttypes.AnimationGesture, ttypes.AnimationEmotion:
		default:
			result.Warnings = append(result.Warnings, fmt.Sprintf("animation %s has unknown kind %q", marker, kind))
		}
	}
	result.Details["animations"] = fmt.Sprint(len(s.Animations))

	knobs := make(map[string]bool, len(config.EmotionParams))
	for _, k := range config.EmotionParams {
		knobs[k] = true
	}
	for _, name := range sortedKeys(s.Emotion.Params) {
		if !knobs[strings.ToLower(name)] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("emotion param %q is not one of %s", name, strings.Join(config.EmotionParams, ", ")))
		}
	}

	if missingVendor {
		result.Guidance = buildVendorGuidance(vendors)
	} else if !result.OK() {
		result.Guidance = "Fix or remove the entries above in the config file (ttstalker config)."
	}
	return result
}

// buildVendorGuidance explains which vendors a voice may name
func buildVendorGuidance(vendors []string) string {
	return fmt.Sprintf(`Voices are written as vendor:voice. Available vendors: %s

Examples:
  voices:
    en-US: mock:default          # silent audio, no install needed
    en-GB: piper:en_GB-alan-low  # requires piper and TTSTALKER_PIPER_MODELS`, strings.Join(sorted(vendors), ", "))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
