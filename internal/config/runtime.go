package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
)

// Runtime holds options that only come from the environment.
type Runtime struct {
	// TempDir holds materialized speech audio. Empty uses the system default.
	TempDir string `env:"TTSTALKER_TEMP_DIR"`

	// Listen is the bridge address for the serve command.
	Listen string `env:"TTSTALKER_LISTEN" envDefault:":8090"`

	// LogFile, when set, receives the log instead of stderr.
	LogFile string `env:"TTSTALKER_LOG_FILE"`

	// ConfigHome overrides the config directory search.
	ConfigHome string `env:"TTSTALKER_CONFIG_HOME"`

	Debug bool `env:"TTSTALKER_DEBUG"`

	// PiperModels enables the piper vendor with models from this directory.
	PiperModels string `env:"TTSTALKER_PIPER_MODELS"`

	// PiperBinary is the piper executable.
	PiperBinary string `env:"TTSTALKER_PIPER_BINARY" envDefault:"piper"`
}

// ParseRuntime reads Runtime from the environment and expands ~ in paths.
func ParseRuntime() (Runtime, error) {
	rt, err := env.ParseAs[Runtime]()
	if err != nil {
		return Runtime{}, fmt.Errorf("error parsing environment: %w", err)
	}
	for _, p := range []*string{&rt.TempDir, &rt.LogFile, &rt.ConfigHome, &rt.PiperModels} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return Runtime{}, fmt.Errorf("expanding %s: %w", *p, err)
		}
		*p = expanded
	}
	return rt, nil
}
