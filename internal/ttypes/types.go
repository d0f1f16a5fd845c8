// Package ttypes contains shared types and interfaces for the talker.
// This package is used to break import cycles between tts, timeline, viseme,
// animation, queue and bridge packages.
package ttypes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventKind identifies the track an event belongs to.
type EventKind int

const (
	// KindMarker is a named annotation embedded in the synthesized speech.
	KindMarker EventKind = iota + 1

	// KindWord is a word boundary. Informational only.
	KindWord

	// KindViseme is a mouth shape.
	KindViseme
)

// Rank returns the tie-break rank used when two events share a start time.
// Markers sort before words, words before visemes.
func (k EventKind) Rank() int {
	return int(k)
}

// String returns the string representation of the kind
func (k EventKind) String() string {
	switch k {
	case KindMarker:
		return "marker"
	case KindWord:
		return "word"
	case KindViseme:
		return "viseme"
	default:
		return "unknown"
	}
}

// Event is a single timestamped sub-event of a TTS response.
// Times are in seconds relative to the start of the audio.
type Event struct {
	Kind     EventKind `json:"type"`
	Start    float64   `json:"start"`
	End      float64   `json:"end"`
	Duration float64   `json:"duration"`
	Name     string    `json:"name"`
}

// Timeline is an ordered sequence of events, sorted by start time and kind rank.
type Timeline []Event

// Response is the synthesized speech produced by a vendor client.
type Response interface {
	// Duration returns the length of the audio in seconds.
	Duration() float64

	// WriteAudio materializes the audio as a playable file at path.
	WriteAudio(path string) error

	// Markers, Words and Visemes return the unordered event lists.
	// Callers must not modify the returned slices.
	Markers() []Event
	Words() []Event
	Visemes() []Event
}

// Synthesizer is a TTS vendor client.
type Synthesizer interface {
	// Synthesize renders text with the given voice. Params are passed to the
	// vendor untouched.
	Synthesize(ctx context.Context, text string, voice Voice, params map[string]any) (Response, error)
}

// ErrInvalidVoice indicates a voice entry that is not "vendor:voice".
var ErrInvalidVoice = errors.New("voice must be vendor:voice")

// Voice identifies a vendor voice.
type Voice struct {
	Vendor string
	Name   string
}

// String returns the "vendor:voice" form.
func (v Voice) String() string {
	return v.Vendor + ":" + v.Name
}

// ParseVoice parses a "vendor:voice" entry.
func ParseVoice(s string) (Voice, error) {
	vendor, name, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || vendor == "" || name == "" {
		return Voice{}, fmt.Errorf("%w: %q", ErrInvalidVoice, s)
	}
	return Voice{Vendor: vendor, Name: name}, nil
}

// VisemeParams shapes a blended viseme.
type VisemeParams struct {
	Magnitude     float64 `mapstructure:"magnitude" json:"magnitude"`
	RampIn        float64 `mapstructure:"rampin" json:"rampin"`
	RampOut       float64 `mapstructure:"rampout" json:"rampout"`
	DurationScale float64 `mapstructure:"duration" json:"duration"`
}

// AnimationKind is the kind of command a marker resolves to.
type AnimationKind string

const (
	AnimationGesture AnimationKind = "gesture"
	AnimationEmotion AnimationKind = "emotion"
)

// AnimationMapping maps lowercase marker base names to "kind:target" strings.
// A mapping is never mutated once published; reconfiguration replaces it.
type AnimationMapping map[string]string

// GestureCommand asks the animation backend to play a gesture.
type GestureCommand struct {
	Name      string  `json:"name"`
	Speed     float64 `json:"speed"`
	Magnitude float64 `json:"magnitude"`
}

// EmotionCommand asks the animation backend to enter an emotion state.
type EmotionCommand struct {
	Name      string        `json:"name"`
	Magnitude float64       `json:"magnitude"`
	Duration  time.Duration `json:"duration"`
}

// VisemeCommand is a shaped viseme for blended lip-sync output.
type VisemeCommand struct {
	Name      string        `json:"name"`
	Magnitude float64       `json:"magnitude"`
	RampIn    float64       `json:"rampin"`
	RampOut   float64       `json:"rampout"`
	Duration  time.Duration `json:"duration"`
}

// ExpressionCommand is a face expression used for non-blended lip-sync output.
type ExpressionCommand struct {
	Name      string  `json:"name"`
	Intensity float64 `json:"intensity"`
}

// LipsyncState is the tag published on the speech events channel.
type LipsyncState string

const (
	LipsyncStart LipsyncState = "start"
	LipsyncStop  LipsyncState = "stop"
)

// DurationState returns the state announcing the duration of the speech.
func DurationState(seconds float64) LipsyncState {
	return LipsyncState("duration:" + strconv.FormatFloat(seconds, 'f', 6, 64))
}

// Mux tracks selected around non-blended lip-sync.
const (
	TrackLipsync = "lipsync_pau"
	TrackHead    = "head_pau"
)

// OutputPort publishes commands to the outside world.
// Implementations must be safe for concurrent use: the controller and the
// animation worker publish from different goroutines.
type OutputPort interface {
	PublishViseme(cmd VisemeCommand) error
	PublishExpression(cmd ExpressionCommand) error
	PublishGesture(cmd GestureCommand) error
	PublishEmotion(cmd EmotionCommand) error
	PublishLipsyncState(state LipsyncState) error

	// RequestMuxSwitch selects the track driving the downstream consumer.
	RequestMuxSwitch(track string) error
}

// ControlSignal is an inbound control message.
type ControlSignal string

const (
	// SignalReady tells a waiting cycle that the consumer is ready.
	SignalReady ControlSignal = "ready"

	// SignalShutUp interrupts the running cycle.
	SignalShutUp ControlSignal = "shutup"
)

// ParseControlSignal parses a control message. "stop" is accepted as an
// alias of "shutup".
func ParseControlSignal(s string) (ControlSignal, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "ready":
		return SignalReady, nil
	case "shutup", "stop":
		return SignalShutUp, nil
	default:
		return "", fmt.Errorf("unknown control signal %q", s)
	}
}

// State represents the playback controller state
type State int

const (
	// StateIdle indicates no cycle is running
	StateIdle State = iota

	// StateArmed indicates the audio has been materialized
	StateArmed

	// StateDispatching indicates the dispatch loop is running
	StateDispatching

	// StateInterrupted indicates the cycle was interrupted
	StateInterrupted

	// StateCompleted indicates every event was dispatched
	StateCompleted
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateDispatching:
		return "dispatching"
	case StateInterrupted:
		return "interrupted"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
