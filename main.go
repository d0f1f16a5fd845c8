// Package main provides the entry point for the ttstalker CLI application.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/ttstalker/internal/audio"
	"github.com/dgnsrekt/ttstalker/internal/config"
	"github.com/dgnsrekt/ttstalker/internal/tts"
	"github.com/dgnsrekt/ttstalker/internal/tts/engines"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// piperMaxFailures is how many piper errors in a row switch to silent audio.
const piperMaxFailures = 3

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool
	mute       bool
	lang       string

	// rt holds the environment-only options, parsed once in main.
	rt config.Runtime

	rootCmd = &cobra.Command{
		Use:   "ttstalker",
		Short: "Speak text with lip-sync and animation events in time with the audio",
		Long: paragraph(
			fmt.Sprintf("\nSpeak text and drive an avatar %s: visemes, gestures and emotions are sent at the moment they are heard.", keyword("in sync")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
	}
	if debug || viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

// loadSettings decodes the current viper state.
func loadSettings() (config.Settings, error) {
	s, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// newPlayer opens the sound device, or a silent player when muted or when
// no device is available.
func newPlayer() (tts.Player, func(), error) {
	if mute {
		return audio.DefaultMockPlayer(), func() {}, nil
	}
	p, err := audio.NewPlayer(audio.DefaultPlayerConfig())
	if err != nil {
		log.Warn("No sound device, playing silently", "error", err)
		return audio.DefaultMockPlayer(), func() {}, nil
	}
	return p, func() { _ = p.Close() }, nil
}

// newTalker wires a talker to port with every vendor that can be set up.
func newTalker(port ttypes.OutputPort, settings config.Settings) (*tts.Talker, func(), error) {
	player, closePlayer, err := newPlayer()
	if err != nil {
		return nil, nil, err
	}

	talker, err := tts.NewTalker(port, player, rt.TempDir)
	if err != nil {
		closePlayer()
		return nil, nil, fmt.Errorf("unable to create talker: %w", err)
	}

	mock := engines.NewMockEngine()
	talker.RegisterEngine("mock", mock)
	if rt.PiperModels != "" {
		piper, err := engines.NewPiperEngine(engines.PiperConfig{ModelDir: rt.PiperModels, Binary: rt.PiperBinary})
		if err == nil {
			err = piper.Validate()
		}
		if err != nil {
			log.Warn("Piper disabled", "error", err)
		} else {
			// Keep the avatar moving on silent audio if piper starts failing.
			talker.RegisterEngine("piper", engines.NewFallbackEngine(piper, mock, ttypes.Voice{Vendor: "mock", Name: "default"}, piperMaxFailures))
		}
	}

	talker.Reconfigure(settings)
	return talker, func() {
		talker.Close()
		closePlayer()
	}, nil
}

func main() {
	var err error
	rt, err = config.ParseRuntime()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	closer, err := setupLog(rt)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	tryLoadConfigFromDefaultPlaces()

	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ttstalker.yml in the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output")
	rootCmd.PersistentFlags().BoolVar(&mute, "mute", false, "do not open the sound device")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(sayCmd, lengthCmd, serveCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "ttstalker")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "ttstalker")}, dirs...)
	}

	if rt.ConfigHome != "" {
		dirs = append([]string{rt.ConfigHome}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("ttstalker")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("ttstalker")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	configFile = filepath.Join(dirs[0], "ttstalker.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
		return
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Warn("Could not read default configuration", "error", err)
	}
}
