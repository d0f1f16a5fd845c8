package viseme

import (
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

func visemeEvent(name string, duration float64) ttypes.Event {
	return ttypes.Event{Kind: ttypes.KindViseme, Name: name, Duration: duration}
}

func TestEmitter_BlenderMode(t *testing.T) {
	port := ttypes.NewRecordingPort()
	params := map[string]ttypes.VisemeParams{
		"O": {Magnitude: 0.8, RampIn: 0.2, RampOut: 0.3, DurationScale: 1.5},
	}
	e := NewEmitter(port, params)

	e.Emit(visemeEvent("O", 0.1), Mode{LipsyncEnabled: true, Blender: true})

	got := port.Of("viseme")
	if len(got) != 1 {
		t.Fatalf("Expected 1 viseme command, got %d", len(got))
	}
	cmd := got[0].(ttypes.VisemeCommand)
	if cmd.Name != "O" || cmd.Magnitude != 0.8 || cmd.RampIn != 0.2 || cmd.RampOut != 0.3 {
		t.Errorf("Unexpected command: %+v", cmd)
	}
	if want := 150 * time.Millisecond; cmd.Duration < want-time.Microsecond || cmd.Duration > want+time.Microsecond {
		t.Errorf("Expected duration %v, got %v", want, cmd.Duration)
	}
	if n := len(port.Of("expression")); n != 0 {
		t.Errorf("Blender mode published %d face expressions", n)
	}
}

func TestEmitter_BlenderSkipsSilence(t *testing.T) {
	port := ttypes.NewRecordingPort()
	e := NewEmitter(port, nil)

	e.Emit(visemeEvent(Silence, 0), Mode{LipsyncEnabled: true, Blender: true})

	if n := len(port.All()); n != 0 {
		t.Errorf("Expected nothing for Sil in blender mode, got %d commands", n)
	}
}

func TestEmitter_ExpressionMode(t *testing.T) {
	port := ttypes.NewRecordingPort()
	e := NewEmitter(port, nil)

	for _, name := range []string{"E", Silence, "not-in-table"} {
		e.Emit(visemeEvent(name, 0.1), Mode{LipsyncEnabled: true})
	}

	got := port.Of("expression")
	if len(got) != 3 {
		t.Fatalf("Expected 3 face expressions, got %d", len(got))
	}
	for i, want := range []string{"vis_E", "vis_Sil", "vis_not-in-table"} {
		cmd := got[i].(ttypes.ExpressionCommand)
		if cmd.Name != want || cmd.Intensity != 1.0 {
			t.Errorf("Expression %d: expected %s@1.0, got %+v", i, want, cmd)
		}
	}
	if n := len(port.Of("viseme")); n != 0 {
		t.Errorf("Expression mode published %d shaped visemes", n)
	}
}

func TestEmitter_Disabled(t *testing.T) {
	port := ttypes.NewRecordingPort()
	e := NewEmitter(port, nil)

	e.Emit(visemeEvent("E", 0.1), Mode{Blender: true})
	e.Emit(visemeEvent("E", 0.1), Mode{})

	if n := len(port.All()); n != 0 {
		t.Errorf("Expected nothing with lip-sync disabled, got %d commands", n)
	}
}

func TestEmitter_UnknownVisemeIsSkipped(t *testing.T) {
	port := ttypes.NewRecordingPort()
	e := NewEmitter(port, nil)

	e.Emit(visemeEvent("nope", 0.1), Mode{LipsyncEnabled: true, Blender: true})

	if n := len(port.All()); n != 0 {
		t.Errorf("Expected unknown viseme to be skipped, got %d commands", n)
	}

	_, err := e.Shape(visemeEvent("nope", 0.1))
	if !errors.Is(err, ErrUnknownViseme) {
		t.Errorf("Expected ErrUnknownViseme, got %v", err)
	}
}

func TestEmitter_PublishFailureDoesNotPanic(t *testing.T) {
	port := ttypes.NewRecordingPort()
	port.Fail = map[string]error{"viseme": errors.New("topic down")}
	e := NewEmitter(port, nil)

	e.Emit(visemeEvent("E", 0.1), Mode{LipsyncEnabled: true, Blender: true})
}

func TestMergeParams(t *testing.T) {
	base := map[string]ttypes.VisemeParams{"E": {Magnitude: 1}, "O": {Magnitude: 1}}
	overrides := map[string]ttypes.VisemeParams{"E": {Magnitude: 0.5}, "X": {Magnitude: 0.2}}

	merged := MergeParams(base, overrides)

	if merged["E"].Magnitude != 0.5 || merged["O"].Magnitude != 1 || merged["X"].Magnitude != 0.2 {
		t.Errorf("Unexpected merge result: %+v", merged)
	}
	if base["E"].Magnitude != 1 {
		t.Error("MergeParams modified the base table")
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		known bool
	}{
		{"A-I", "A-I", true},
		{"a-i", "A-I", true},
		{"sil", Silence, true},
		{"c-d-g-k-n-s-th", "C-D-G-K-N-S-TH", true},
		{"zz", "zz", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalName(tt.in)
		if got != tt.want || ok != tt.known {
			t.Errorf("CanonicalName(%q) = %q, %v; expected %q, %v", tt.in, got, ok, tt.want, tt.known)
		}
	}
}
