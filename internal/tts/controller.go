package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dgnsrekt/ttstalker/internal/animation"
	"github.com/dgnsrekt/ttstalker/internal/metrics"
	"github.com/dgnsrekt/ttstalker/internal/timeline"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
	"github.com/dgnsrekt/ttstalker/internal/viseme"
)

const (
	// readyTimeout bounds the wait for the consumer's ready signal.
	readyTimeout = 2 * time.Second

	// deadlineSlack is added to the audio duration to get the dispatch deadline.
	deadlineSlack = time.Second

	// tick is the dispatch loop's sleep step.
	tick = time.Millisecond

	// tempPrefix names materialized audio files.
	tempPrefix = "tts"
)

// ControllerSettings is the snapshot a cycle runs with.
type ControllerSettings struct {
	LipsyncEnabled bool
	LipsyncBlender bool

	// Delay postpones the start of the audio relative to dispatch.
	Delay time.Duration

	// WaitForReady makes a cycle wait for the ready signal before playing.
	WaitForReady bool

	// TempDir holds materialized audio. Empty means os.TempDir().
	TempDir string

	// Visemes is the parameter table. Nil means viseme.DefaultParams.
	Visemes map[string]ttypes.VisemeParams
}

// DefaultControllerSettings returns the settings a fresh controller starts with.
func DefaultControllerSettings() ControllerSettings {
	return ControllerSettings{
		LipsyncEnabled: true,
		LipsyncBlender: true,
		Delay:          100 * time.Millisecond,
	}
}

// Result describes a finished cycle.
type Result struct {
	CycleID     string
	Interrupted bool

	// Dispatched counts timeline events reached before the cycle ended.
	Dispatched int

	Elapsed time.Duration
}

// Controller plays a response while dispatching its events on time.
// Cycles are exclusive: a second Execute blocks until the first returns.
type Controller struct {
	port    ttypes.OutputPort
	player  Player
	markers MarkerSink

	// cycleMu guards settings and emitter and serializes cycles.
	cycleMu  sync.Mutex
	settings ControllerSettings
	emitter  *viseme.Emitter

	ready     *Signal
	interrupt *Signal
	state     atomic.Int32

	// remove deletes materialized audio.
	remove func(string) error

	readyTimeout time.Duration
}

// NewController creates a controller. markers may be nil, in which case
// markers are only logged.
func NewController(port ttypes.OutputPort, player Player, markers MarkerSink, settings ControllerSettings) (*Controller, error) {
	if port == nil {
		return nil, fmt.Errorf("output port cannot be nil")
	}
	if player == nil {
		return nil, fmt.Errorf("player cannot be nil")
	}

	c := &Controller{
		port:         port,
		player:       player,
		markers:      markers,
		ready:        NewSignal(),
		interrupt:    NewSignal(),
		remove:       os.Remove,
		readyTimeout: readyTimeout,
	}
	c.apply(settings)
	return c, nil
}

// Reconfigure swaps the settings. It waits for a running cycle to finish,
// so a cycle never sees a partial update.
func (c *Controller) Reconfigure(settings ControllerSettings) {
	c.ReconfigureWith(settings, nil)
}

// ReconfigureWith swaps the settings and runs also while no cycle is
// running, so changes made by also land between cycles too.
func (c *Controller) ReconfigureWith(settings ControllerSettings, also func()) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	c.apply(settings)
	if also != nil {
		also()
	}
	log.Debug("Controller reconfigured", "lipsync", settings.LipsyncEnabled, "blender", settings.LipsyncBlender, "delay", settings.Delay)
}

func (c *Controller) apply(settings ControllerSettings) {
	c.settings = settings
	c.emitter = viseme.NewEmitter(c.port, settings.Visemes)
}

// Settings returns the current snapshot.
func (c *Controller) Settings() ControllerSettings {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	return c.settings
}

// Signal delivers an inbound control signal. It never blocks.
func (c *Controller) Signal(sig ttypes.ControlSignal) {
	switch sig {
	case ttypes.SignalReady:
		log.Info("TTS ready")
		c.ready.Set()
	case ttypes.SignalShutUp:
		log.Info("Shut up!!")
		c.interrupt.Set()
	default:
		log.Warn("Ignoring control signal", "signal", sig)
	}
}

// State returns the controller state.
func (c *Controller) State() ttypes.State {
	return ttypes.State(c.state.Load())
}

func (c *Controller) setState(s ttypes.State) {
	c.state.Store(int32(s))
}

// Execute runs one playback cycle for resp. It returns once the audio has
// finished or been interrupted and every dispatched viseme was published.
// Cancelling ctx interrupts the cycle like a shutup signal.
func (c *Controller) Execute(ctx context.Context, resp ttypes.Response) (Result, error) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()
	defer c.setState(ttypes.StateIdle)

	begin := time.Now()
	settings := c.settings
	emitter := c.emitter
	mode := viseme.Mode{LipsyncEnabled: settings.LipsyncEnabled, Blender: settings.LipsyncBlender}

	res := Result{CycleID: uuid.NewString()}
	logger := log.With("cycle", res.CycleID[:8])

	c.ready.Clear()
	c.interrupt.Clear()
	c.setState(ttypes.StateArmed)

	path, err := c.materialize(resp, settings.TempDir)
	if err != nil {
		logger.Error("No sound file", "error", err)
		metrics.Cycles.WithLabelValues("aborted").Inc()
		return res, NewTTSError(ErrorCodeAudioFailure, "can't materialize speech", fmt.Errorf("%w: %w", ErrAudioUnavailable, err)).
			WithContext("cycle", res.CycleID)
	}

	playCtx, stopAudio := context.WithCancel(ctx)
	defer stopAudio()

	// finish joins playback, removes the sound file and ends lip-sync. It
	// runs once, from the normal path or from the deferred call when a port
	// panics mid-cycle.
	var (
		playDone chan struct{}
		lipsync  bool
		finished bool
	)
	finish := func() {
		finished = true
		if playDone != nil {
			<-playDone
		}
		if err := c.remove(path); err != nil {
			logger.Warn("Can't remove sound file", "path", path, "error", err)
		}
		if lipsync {
			c.stopLipsync(settings, logger)
		}
	}
	defer func() {
		if !finished {
			stopAudio()
			finish()
		}
	}()

	c.startLipsync(settings, logger)
	lipsync = true

	events := timeline.Build(resp.Markers(), resp.Words(), resp.Visemes())
	duration := resp.Duration()
	if err := c.port.PublishLipsyncState(ttypes.DurationState(duration)); err != nil {
		logger.Error("Can't publish duration", "error", err)
	}

	if settings.WaitForReady {
		logger.Info("Wait for TTS ready")
		if !c.ready.Wait(ctx, c.readyTimeout) {
			logger.Warn("No ready signal, speaking anyway", "timeout", c.readyTimeout)
		}
	}

	playDone = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		c.play(playCtx, path, settings.Delay, logger)
	}(playDone)

	c.setState(ttypes.StateDispatching)
	res.Dispatched, res.Interrupted = c.dispatch(ctx, events, duration, emitter, mode, logger)

	outcome := "completed"
	if res.Interrupted {
		outcome = "interrupted"
		c.setState(ttypes.StateInterrupted)
		c.interrupt.Clear()
		stopAudio()
		logger.Info("Interrupt flag is cleared")
	} else {
		c.setState(ttypes.StateCompleted)
	}

	emitter.Emit(ttypes.Event{Kind: ttypes.KindViseme, Name: viseme.Silence}, mode)
	finish()

	res.Elapsed = time.Since(begin)
	metrics.Cycles.WithLabelValues(outcome).Inc()
	logger.Info("Cycle finished", "outcome", outcome, "events", len(events), "dispatched", res.Dispatched, "elapsed", res.Elapsed)
	return res, nil
}

// materialize writes the response audio to a new temp file.
func (c *Controller) materialize(resp ttypes.Response, dir string) (string, error) {
	f, err := os.CreateTemp(dir, tempPrefix)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		c.discard(path)
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	if err := resp.WriteAudio(path); err != nil {
		c.discard(path)
		return "", err
	}
	return path, nil
}

// discard removes a partial sound file.
func (c *Controller) discard(path string) {
	if err := c.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Can't remove partial sound file", "path", path, "error", err)
	}
}

// play starts the audio after delay unless the cycle stops first.
func (c *Controller) play(ctx context.Context, path string, delay time.Duration, logger *log.Logger) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}
	if err := c.player.Play(ctx, path); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Playback failed", "path", path, "error", err)
	}
}

// dispatch walks the timeline in real time. It returns how many events were
// reached and whether the walk was interrupted.
func (c *Controller) dispatch(ctx context.Context, events ttypes.Timeline, duration float64, emitter *viseme.Emitter, mode viseme.Mode, logger *log.Logger) (int, bool) {
	if len(events) == 0 {
		logger.Warn("Empty TTS nodes")
	}

	start := time.Now()
	deadline := start.Add(seconds(duration) + deadlineSlack)

	for i, ev := range events {
		due := start.Add(seconds(ev.Start))
		for {
			now := time.Now()
			if !now.Before(due) || !now.Before(deadline) || c.interrupted(ctx) {
				break
			}
			time.Sleep(tick)
		}
		if c.interrupted(ctx) {
			logger.Info("Interrupt", "at", ev.Name, "kind", ev.Kind, "start", ev.Start)
			return i, true
		}
		if lag := time.Since(due); lag > 0 {
			metrics.DispatchLag.Observe(lag.Seconds())
		}

		switch ev.Kind {
		case ttypes.KindMarker:
			logger.Info("Marker", "name", ev.Name, "start", ev.Start)
			if animation.IsHousekeeping(ev.Name) || c.markers == nil {
				continue
			}
			if err := c.markers.Enqueue(ev); err != nil {
				logger.Error("Can't queue marker", "name", ev.Name, "error", err)
			}
		case ttypes.KindWord:
			logger.Debug("Word", "name", ev.Name, "start", ev.Start)
		case ttypes.KindViseme:
			logger.Debug("Viseme", "name", ev.Name, "start", ev.Start)
			emitter.Emit(ev, mode)
		}
	}

	logger.Info("Timeline dispatched", "elapsed", time.Since(start))
	return len(events), false
}

func (c *Controller) interrupted(ctx context.Context) bool {
	return c.interrupt.IsSet() || ctx.Err() != nil
}

func (c *Controller) startLipsync(settings ControllerSettings, logger *log.Logger) {
	if err := c.port.PublishLipsyncState(ttypes.LipsyncStart); err != nil {
		logger.Error("Can't publish lip-sync start", "error", err)
	}
	if settings.LipsyncEnabled && !settings.LipsyncBlender {
		if err := c.port.RequestMuxSwitch(ttypes.TrackLipsync); err != nil {
			logger.Error("Mux switch failed", "track", ttypes.TrackLipsync, "error", err)
		}
	}
}

func (c *Controller) stopLipsync(settings ControllerSettings, logger *log.Logger) {
	if err := c.port.PublishLipsyncState(ttypes.LipsyncStop); err != nil {
		logger.Error("Can't publish lip-sync stop", "error", err)
	}
	if settings.LipsyncEnabled && !settings.LipsyncBlender {
		if err := c.port.RequestMuxSwitch(ttypes.TrackHead); err != nil {
			logger.Error("Mux switch failed", "track", ttypes.TrackHead, "error", err)
		}
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
