package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/ttstalker/internal/config"
	"github.com/dgnsrekt/ttstalker/internal/tts"
)

func TestDefaultConfigIsValid(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	config.SetDefaults(v)
	if err := v.ReadConfig(strings.NewReader(defaultConfig)); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}

	s, err := config.Load(v)
	if err != nil {
		t.Fatalf("default config does not load: %v", err)
	}
	if result := tts.ValidateSettings(s, []string{"mock"}); !result.OK() {
		t.Errorf("default config has problems: %v", result.Warnings)
	}
	if s.Voices["en-us"] != "mock:default" {
		t.Errorf("Expected en-US mock voice, got %v", s.Voices)
	}
	if s.Mapping()["wave"] != "gesture:Waving" {
		t.Errorf("Expected wave mapping, got %v", s.Mapping())
	}
}

func TestEnsureConfigFile(t *testing.T) {
	old := configFile
	defer func() { configFile = old }()

	configFile = filepath.Join(t.TempDir(), "nested", "ttstalker.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile failed: %v", err)
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if string(data) != defaultConfig {
		t.Error("Expected the default config to be written")
	}

	configFile = filepath.Join(t.TempDir(), "ttstalker.toml")
	if err := ensureConfigFile(); err == nil {
		t.Error("Expected error for unsupported extension")
	}
}
