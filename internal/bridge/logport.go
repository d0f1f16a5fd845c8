package bridge

import (
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// LogPort is an OutputPort that only logs. It lets the CLI speak without a
// consumer attached.
type LogPort struct {
	logger *log.Logger
}

// NewLogPort creates a port writing to logger, or to the default logger
// when nil.
func NewLogPort(logger *log.Logger) *LogPort {
	if logger == nil {
		logger = log.Default()
	}
	return &LogPort{logger: logger.WithPrefix("port")}
}

func (p *LogPort) PublishViseme(cmd ttypes.VisemeCommand) error {
	p.logger.Debug("viseme", "name", cmd.Name, "magnitude", cmd.Magnitude, "duration", cmd.Duration)
	return nil
}

func (p *LogPort) PublishExpression(cmd ttypes.ExpressionCommand) error {
	p.logger.Debug("expression", "name", cmd.Name, "intensity", cmd.Intensity)
	return nil
}

func (p *LogPort) PublishGesture(cmd ttypes.GestureCommand) error {
	p.logger.Info("gesture", "name", cmd.Name, "speed", cmd.Speed, "magnitude", cmd.Magnitude)
	return nil
}

func (p *LogPort) PublishEmotion(cmd ttypes.EmotionCommand) error {
	p.logger.Info("emotion", "name", cmd.Name, "magnitude", cmd.Magnitude, "duration", cmd.Duration)
	return nil
}

func (p *LogPort) PublishLipsyncState(state ttypes.LipsyncState) error {
	p.logger.Info("lipsync", "state", state)
	return nil
}

func (p *LogPort) RequestMuxSwitch(track string) error {
	p.logger.Info("mux", "track", track)
	return nil
}

var _ ttypes.OutputPort = (*LogPort)(nil)
