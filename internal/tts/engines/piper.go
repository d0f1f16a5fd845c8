package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

const (
	// maxTextSize limits a single request.
	maxTextSize = 5000

	// maxAudioSize guards against runaway output.
	maxAudioSize = 10 * 1024 * 1024

	// piperTimeout bounds a single synthesis.
	piperTimeout = 10 * time.Second
)

// PiperEngine synthesizes speech with the offline piper binary. The voice
// name selects a model: either a path to an .onnx file or a model name
// looked up in ModelDir.
type PiperEngine struct {
	modelDir   string
	sampleRate int
	binary     string
}

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// ModelDir holds <voice>.onnx models with their .onnx.json configs.
	ModelDir string

	// Sample rate (optional, defaults to 22050)
	SampleRate int

	// Binary is the piper executable (optional, defaults to "piper" in PATH)
	Binary string
}

// NewPiperEngine creates a new Piper TTS engine.
func NewPiperEngine(config PiperConfig) (*PiperEngine, error) {
	if config.ModelDir == "" {
		return nil, errors.New("model directory is required")
	}
	if fi, err := os.Stat(config.ModelDir); err != nil {
		return nil, fmt.Errorf("model directory not found: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("model directory %s is not a directory", config.ModelDir)
	}
	if config.SampleRate == 0 {
		config.SampleRate = 22050
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}

	return &PiperEngine{
		modelDir:   config.ModelDir,
		sampleRate: config.SampleRate,
		binary:     config.Binary,
	}, nil
}

// modelPath resolves a voice name to a model file.
func (e *PiperEngine) modelPath(voice string) (string, error) {
	path := voice
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.modelDir, voice)
	}
	if filepath.Ext(path) != ".onnx" {
		path += ".onnx"
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("model file not found: %w", err)
	}
	return path, nil
}

// args builds the piper command line. The "rate" param maps onto piper's
// length scale: rate 2.0 speaks twice as fast.
func (e *PiperEngine) args(model string, params map[string]any) []string {
	args := []string{
		"--model", model,
		"--output-raw", // Raw PCM output
		"--length-scale", fmt.Sprintf("%.2f", 1.0/rate(params)),
	}
	if speaker, ok := params["speaker"]; ok {
		args = append(args, "--speaker", fmt.Sprint(speaker))
	}
	return args
}

// Synthesize converts text to audio using piper.
func (e *PiperEngine) Synthesize(ctx context.Context, text string, voice ttypes.Voice, params map[string]any) (ttypes.Response, error) {
	script := ParseScript(text)
	spoken := script.Spoken()
	if spoken == "" {
		return nil, errors.New("text cannot be empty")
	}
	if len(spoken) > maxTextSize {
		return nil, fmt.Errorf("text too long: %d characters (max %d)", len(spoken), maxTextSize)
	}

	model, err := e.modelPath(voice.Name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, piperTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, e.args(model, params)...)
	// Pre-configure stdin with the text so piper never reads before it is written.
	cmd.Stdin = strings.NewReader(spoken)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("Running piper", "model", model, "chars", len(spoken))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("synthesis timeout: %w", ctx.Err())
		}
		return nil, fmt.Errorf("piper failed: %w, stderr: %s", err, stderr.String())
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return nil, fmt.Errorf("piper produced no audio output, stderr: %s", stderr.String())
	}
	if len(pcm) > maxAudioSize {
		return nil, fmt.Errorf("piper output too large: %d bytes (max %d)", len(pcm), maxAudioSize)
	}

	resp := NewResponse(e.sampleRate, pcm, nil, nil, nil)
	resp.markers, resp.words, resp.visemes = script.Timings(resp.Duration())
	return resp, nil
}

// Validate checks that the piper binary runs.
func (e *PiperEngine) Validate() error {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return fmt.Errorf("piper not found in PATH: %w", err)
	}
	if err := exec.Command(path, "--version").Run(); err != nil {
		return fmt.Errorf("cannot execute piper: %w", err)
	}
	return nil
}

var _ ttypes.Synthesizer = (*PiperEngine)(nil)
