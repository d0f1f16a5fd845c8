package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/dgnsrekt/ttstalker/internal/config"
)

// setupLog configures the default logger. Logs go to stderr, or to the
// runtime log file when one is set. Output that is not a terminal is JSON.
func setupLog(rt config.Runtime) (func() error, error) {
	log.SetReportTimestamp(true)
	if rt.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if rt.LogFile == "" {
		log.SetOutput(os.Stderr)
		if !term.IsTerminal(int(os.Stderr.Fd())) {
			log.SetFormatter(log.JSONFormatter)
		}
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(rt.LogFile), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(rt.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	log.SetOutput(f)
	log.SetFormatter(log.JSONFormatter)
	return f.Close, nil
}
