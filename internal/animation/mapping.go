package animation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

var (
	// ErrUnmapped indicates the marker has no animation configured
	ErrUnmapped = errors.New("marker is not configured")

	// ErrBadArgument indicates a non-numeric speed, magnitude or duration
	ErrBadArgument = errors.New("invalid animation argument")

	// ErrUnknownKind indicates a mapping value that is neither gesture nor emotion
	ErrUnknownKind = errors.New("unknown animation kind")
)

// housekeepingPrefix marks timeline markers that never reach the worker.
const housekeepingPrefix = "cp"

// IsHousekeeping reports whether a marker is reserved for timeline
// bookkeeping rather than animation.
func IsHousekeeping(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), housekeepingPrefix)
}

// Command is a resolved marker. Exactly one of Gesture and Emotion is set.
type Command struct {
	Kind    ttypes.AnimationKind
	Gesture *ttypes.GestureCommand
	Emotion *ttypes.EmotionCommand
}

// Mapper resolves marker names against the animation mapping.
// The mapping can be swapped at any time; a Resolve in flight keeps using
// the mapping it started with.
type Mapper struct {
	mapping atomic.Pointer[ttypes.AnimationMapping]
}

// NewMapper creates a mapper. Keys are lowercased.
func NewMapper(mapping ttypes.AnimationMapping) *Mapper {
	m := &Mapper{}
	m.SetMapping(mapping)
	return m
}

// SetMapping replaces the mapping wholesale. The argument is copied.
func (m *Mapper) SetMapping(mapping ttypes.AnimationMapping) {
	cp := make(ttypes.AnimationMapping, len(mapping))
	for k, v := range mapping {
		cp[strings.ToLower(k)] = v
	}
	m.mapping.Store(&cp)
}

// Mapping returns the current mapping. It must not be modified.
func (m *Mapper) Mapping() ttypes.AnimationMapping {
	return *m.mapping.Load()
}

// Resolve turns a marker name such as "wave,2,1.5" into a command.
func (m *Mapper) Resolve(name string) (Command, error) {
	mapping := m.Mapping()

	base, arg, _ := cutBase(name)
	value, ok := mapping[base]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnmapped, base)
	}

	kind, target, ok := strings.Cut(value, ":")
	if !ok {
		return Command{}, fmt.Errorf("%w: mapping %q for %q has no kind", ErrUnknownKind, value, base)
	}
	if arg != "" {
		target = target + "," + arg
	}

	fields := strings.SplitN(strings.Trim(target, ","), ",", 3)
	first, second, err := parseArgs(fields[1:])
	if err != nil {
		return Command{}, fmt.Errorf("marker %q: %w", name, err)
	}

	switch ttypes.AnimationKind(strings.ToLower(strings.TrimSpace(kind))) {
	case ttypes.AnimationGesture:
		return Command{
			Kind: ttypes.AnimationGesture,
			Gesture: &ttypes.GestureCommand{
				Name:      fields[0],
				Speed:     first,
				Magnitude: second,
			},
		}, nil
	case ttypes.AnimationEmotion:
		return Command{
			Kind: ttypes.AnimationEmotion,
			Emotion: &ttypes.EmotionCommand{
				Name:      fields[0],
				Magnitude: first,
				Duration:  time.Duration(second * float64(time.Second)),
			},
		}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// cutBase lowercases a marker name and splits off its argument list.
func cutBase(name string) (base, arg string, found bool) {
	return strings.Cut(strings.ToLower(name), ",")
}

// parseArgs parses up to two numeric fields, defaulting absent ones to 1.0.
func parseArgs(fields []string) (float64, float64, error) {
	vals := [2]float64{1.0, 1.0}
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrBadArgument, f)
		}
		vals[i] = v
	}
	return vals[0], vals[1], nil
}

// Suggest returns up to three configured names close to base, best first.
func (m *Mapper) Suggest(base string) []string {
	mapping := m.Mapping()
	names := make([]string, 0, len(mapping))
	for k := range mapping {
		names = append(names, k)
	}
	sort.Strings(names)

	matches := fuzzy.Find(base, names)
	out := make([]string, 0, 3)
	for i := 0; i < len(matches) && i < 3; i++ {
		out = append(out, matches[i].Str)
	}
	return out
}
