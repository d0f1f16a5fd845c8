package viseme

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/ttstalker/internal/metrics"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// ErrUnknownViseme is returned when a viseme has no entry in the shape table.
var ErrUnknownViseme = errors.New("unknown viseme")

// Mode selects the lip-sync output.
type Mode struct {
	// LipsyncEnabled turns lip-sync output on.
	LipsyncEnabled bool

	// Blender sends shaped visemes to the blended rig instead of
	// face expressions.
	Blender bool
}

// Emitter converts viseme events into outbound commands.
type Emitter struct {
	port   ttypes.OutputPort
	params map[string]ttypes.VisemeParams
}

// NewEmitter creates an emitter publishing to port. A nil table selects
// DefaultParams. The table must not be modified afterwards.
func NewEmitter(port ttypes.OutputPort, params map[string]ttypes.VisemeParams) *Emitter {
	if params == nil {
		params = DefaultParams
	}
	return &Emitter{port: port, params: params}
}

// Emit publishes zero, one or two commands for ev depending on mode. Lookup
// and publish failures are logged and never stop the caller.
func (e *Emitter) Emit(ev ttypes.Event, mode Mode) {
	if !mode.LipsyncEnabled {
		return
	}

	if mode.Blender && ev.Name != Silence {
		cmd, err := e.Shape(ev)
		if err != nil {
			log.Warn("Skipping viseme", "name", ev.Name, "error", err)
			metrics.DroppedEvents.WithLabelValues("unknown_viseme").Inc()
		} else if err := e.port.PublishViseme(cmd); err != nil {
			log.Error("Failed to publish viseme", "name", ev.Name, "error", err)
		} else {
			metrics.VisemesEmitted.WithLabelValues("blender").Inc()
		}
	}

	if !mode.Blender {
		cmd := ttypes.ExpressionCommand{Name: "vis_" + ev.Name, Intensity: 1.0}
		if err := e.port.PublishExpression(cmd); err != nil {
			log.Error("Failed to publish face expression", "name", cmd.Name, "error", err)
		} else {
			metrics.VisemesEmitted.WithLabelValues("expression").Inc()
		}
	}
}

// Shape builds the blended viseme command for ev.
func (e *Emitter) Shape(ev ttypes.Event) (ttypes.VisemeCommand, error) {
	p, ok := e.params[ev.Name]
	if !ok {
		return ttypes.VisemeCommand{}, fmt.Errorf("%w: %q", ErrUnknownViseme, ev.Name)
	}
	return ttypes.VisemeCommand{
		Name:      ev.Name,
		Magnitude: p.Magnitude,
		RampIn:    p.RampIn,
		RampOut:   p.RampOut,
		Duration:  time.Duration(ev.Duration * 1e9 * p.DurationScale),
	}, nil
}
