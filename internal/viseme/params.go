// Package viseme turns viseme events into lip-sync commands.
package viseme

import (
	"strings"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// Silence is the rest viseme sent at the end of every utterance.
const Silence = "Sil"

// DefaultParams is the shape table for the blended lip-sync rig.
var DefaultParams = map[string]ttypes.VisemeParams{
	"A-I":            {Magnitude: 0.99, RampIn: 0.3, RampOut: 0.45, DurationScale: 1.5},
	"E":              {Magnitude: 0.95, RampIn: 0.3, RampOut: 0.45, DurationScale: 1.4},
	"F-V":            {Magnitude: 0.9, RampIn: 0.15, RampOut: 0.25, DurationScale: 1.2},
	"Q-W":            {Magnitude: 0.9, RampIn: 0.25, RampOut: 0.35, DurationScale: 1.3},
	"L":              {Magnitude: 0.85, RampIn: 0.2, RampOut: 0.3, DurationScale: 1.2},
	"C-D-G-K-N-S-TH": {Magnitude: 0.8, RampIn: 0.15, RampOut: 0.25, DurationScale: 1.1},
	"M":              {Magnitude: 0.99, RampIn: 0.1, RampOut: 0.2, DurationScale: 1.0},
	"O":              {Magnitude: 0.95, RampIn: 0.3, RampOut: 0.45, DurationScale: 1.5},
	"U":              {Magnitude: 0.9, RampIn: 0.3, RampOut: 0.4, DurationScale: 1.4},
	Silence:          {Magnitude: 0.0, RampIn: 0.1, RampOut: 0.1, DurationScale: 1.0},
}

// MergeParams returns a new table with overrides applied on top of base.
// Neither argument is modified.
func MergeParams(base, overrides map[string]ttypes.VisemeParams) map[string]ttypes.VisemeParams {
	merged := make(map[string]ttypes.VisemeParams, len(base)+len(overrides))
	for name, p := range base {
		merged[name] = p
	}
	for name, p := range overrides {
		merged[name] = p
	}
	return merged
}

// CanonicalName returns the table spelling of name, matched without regard
// to case. Config loaders lowercase map keys, so overrides arrive as "a-i".
func CanonicalName(name string) (string, bool) {
	if _, ok := DefaultParams[name]; ok {
		return name, true
	}
	for known := range DefaultParams {
		if strings.EqualFold(known, name) {
			return known, true
		}
	}
	return name, false
}
