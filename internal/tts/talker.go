package tts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"

	"github.com/dgnsrekt/ttstalker/internal/animation"
	"github.com/dgnsrekt/ttstalker/internal/cache"
	"github.com/dgnsrekt/ttstalker/internal/config"
	"github.com/dgnsrekt/ttstalker/internal/peer"
	"github.com/dgnsrekt/ttstalker/internal/queue"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
	"github.com/dgnsrekt/ttstalker/internal/viseme"
)

// talkerState is the snapshot derived from one config.Settings.
type talkerState struct {
	settings config.Settings
	voices   map[string]ttypes.Voice
	notifier *peer.Notifier

	// params is settings.RequestParams(), computed once per snapshot.
	params map[string]any
}

// Talker speaks text through a vendor engine and a playback controller. It
// owns the animation worker that executes markers.
type Talker struct {
	controller *Controller
	mapper     *animation.Mapper
	worker     *animation.Worker
	lengths    *cache.LengthCache

	enginesMu sync.RWMutex
	engines   map[string]ttypes.Synthesizer

	// reconfigMu serializes Reconfigure calls.
	reconfigMu sync.Mutex
	state      atomic.Pointer[talkerState]
	tempDir    string
}

// NewTalker creates a talker publishing to port and playing through player.
// Audio is materialized in tempDir (empty means os.TempDir()). Call Start
// before speaking so markers are executed.
func NewTalker(port ttypes.OutputPort, player Player, tempDir string) (*Talker, error) {
	mapper := animation.NewMapper(nil)
	worker := animation.NewWorker(queue.NewMarkerQueue(), mapper, port)

	settings := DefaultControllerSettings()
	settings.TempDir = tempDir
	controller, err := NewController(port, player, worker, settings)
	if err != nil {
		return nil, err
	}

	t := &Talker{
		controller: controller,
		mapper:     mapper,
		worker:     worker,
		lengths:    cache.NewLengthCache(0),
		engines:    make(map[string]ttypes.Synthesizer),
		tempDir:    tempDir,
	}
	t.Reconfigure(config.Default())
	return t, nil
}

// RegisterEngine makes a vendor available to voices naming it.
func (t *Talker) RegisterEngine(vendor string, engine ttypes.Synthesizer) {
	t.enginesMu.Lock()
	defer t.enginesMu.Unlock()
	t.engines[vendor] = engine
}

// Vendors returns the registered vendor names.
func (t *Talker) Vendors() []string {
	t.enginesMu.RLock()
	defer t.enginesMu.RUnlock()
	out := make([]string, 0, len(t.engines))
	for v := range t.engines {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (t *Talker) engine(vendor string) (ttypes.Synthesizer, bool) {
	t.enginesMu.RLock()
	defer t.enginesMu.RUnlock()
	e, ok := t.engines[vendor]
	return e, ok
}

// Start runs the animation worker until ctx is cancelled or Close is called.
func (t *Talker) Start(ctx context.Context) {
	t.worker.Start(ctx)
}

// Close stops the animation worker. Markers still queued are discarded.
func (t *Talker) Close() {
	t.worker.Stop()
}

// Controller returns the playback controller.
func (t *Talker) Controller() *Controller {
	return t.controller
}

// Worker returns the animation worker.
func (t *Talker) Worker() *animation.Worker {
	return t.worker
}

// Settings returns the active settings snapshot.
func (t *Talker) Settings() config.Settings {
	return t.state.Load().settings
}

// Signal forwards a control signal to the controller.
func (t *Talker) Signal(sig ttypes.ControlSignal) {
	t.controller.Signal(sig)
}

// Reconfigure applies a new settings snapshot. It waits for a running cycle
// to finish and then swaps everything at once; concurrent calls apply in turn.
func (t *Talker) Reconfigure(s config.Settings) {
	t.reconfigMu.Lock()
	defer t.reconfigMu.Unlock()

	next := &talkerState{
		settings: s,
		voices:   make(map[string]ttypes.Voice, len(s.Voices)),
		params:   s.RequestParams(),
	}
	for lang, entry := range s.Voices {
		voice, err := ttypes.ParseVoice(entry)
		if err != nil {
			log.Warn("Ignoring voice", "lang", lang, "error", err)
			continue
		}
		next.voices[langKey(lang)] = voice
	}

	if s.PeerChatbot.Enabled {
		n, err := peer.NewNotifier(peer.Config{URL: s.PeerChatbot.URL})
		if err != nil {
			log.Warn("Peer chatbot disabled", "error", err)
		}
		next.notifier = n
	}

	overrides := make(map[string]ttypes.VisemeParams, len(s.Visemes))
	for name, p := range s.Visemes {
		canonical, ok := viseme.CanonicalName(name)
		if !ok {
			log.Warn("Unknown viseme override", "name", name)
		}
		overrides[canonical] = p
	}

	t.controller.ReconfigureWith(ControllerSettings{
		LipsyncEnabled: s.LipsyncEnabled,
		LipsyncBlender: s.LipsyncBlender,
		Delay:          time.Duration(s.TTSDelay * float64(time.Second)),
		WaitForReady:   s.WaitForTTSReady,
		TempDir:        t.tempDir,
		Visemes:        viseme.MergeParams(viseme.DefaultParams, overrides),
	}, func() {
		t.mapper.SetMapping(s.Mapping())
		t.worker.SetEnabled(s.ExecuteMarker)
		t.lengths.Resize(s.LengthCacheSize)
		t.state.Store(next)
	})

	if result := ValidateSettings(s, t.Vendors()); !result.OK() {
		for _, w := range result.Warnings {
			log.Warn("Config", "problem", w)
		}
	}
	log.Info("Talker reconfigured", "enable", s.Enable, "voices", len(next.voices), "animations", len(s.Animations))
}

// Voice returns the voice configured for lang.
func (t *Talker) Voice(lang string) (ttypes.Voice, bool) {
	v, ok := t.state.Load().voices[langKey(lang)]
	return v, ok
}

// Say synthesizes text for lang and plays it with synchronized events.
func (t *Talker) Say(ctx context.Context, text, lang string) (Result, error) {
	state := t.state.Load()
	if !state.settings.Enable {
		log.Warn("TTS is not enabled")
		return Result{}, NewTTSError(ErrorCodeDisabled, "talker is switched off", ErrDisabled)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, NewTTSError(ErrorCodeInvalidInput, "nothing to say", ErrEmptyText)
	}

	voice, ok := state.voices[langKey(lang)]
	if !ok {
		return Result{}, NewTTSError(ErrorCodeUnknownLang, "no voice configured", ErrUnknownLanguage).
			WithContext("lang", lang)
	}
	engine, ok := t.engine(voice.Vendor)
	if !ok {
		return Result{}, NewTTSError(ErrorCodeEngineUnavailable, "vendor not registered", ErrNoEngine).
			WithContext("vendor", voice.Vendor)
	}

	resp, err := engine.Synthesize(ctx, text, voice, state.params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, NewTTSError(ErrorCodeCanceled, "request ended before speaking", ctxErr)
		}
		return Result{}, NewTTSError(ErrorCodeEngineFailure, "synthesis failed", fmt.Errorf("%w: %w", ErrSynthesisFailed, err)).
			WithContext("voice", voice.String())
	}
	t.lengths.Put(cache.GenerateCacheKey(text, voice.Vendor, voice.Name, state.params), resp.Duration())

	plain := PlainText(text)
	log.Info("Say", "text", plain, "lang", lang, "voice", voice.String(), "duration", resp.Duration())

	res, err := t.controller.Execute(ctx, resp)
	if err != nil {
		return res, err
	}

	if state.notifier != nil {
		if err := state.notifier.Notify(ctx, plain); err != nil {
			log.Warn("Can't notify peer chatbot", "error", err)
		}
	}
	return res, nil
}

// langKey normalizes a language tag so "en-us", "en_US" and "EN-US" match.
func langKey(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if tag, err := language.Parse(lang); err == nil {
		return strings.ToLower(tag.String())
	}
	return strings.ToLower(lang)
}
