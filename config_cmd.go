package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/ttstalker/internal/bridge"
	"github.com/dgnsrekt/ttstalker/internal/tts"
)

const defaultConfig = `# speak at all
enable: true

# lip-sync output
lipsync_enabled: true
# true: shaped visemes for the blended rig; false: vis_* face expressions
lipsync_blender: true

# run gestures and emotions for [markers] in the text
execute_marker: true

# seconds between the first event and the start of the audio
tts_delay: 0.1
# wait up to 2 seconds for a "ready" control message before speaking
wait_for_tts_ready: false

# language -> vendor:voice
voices:
  en-US: mock:default
  # en-GB: piper:en_GB-alan-low

# passed to the vendor on every request
tts_params:
  rate: 1.0

# emotive speech preset, sent before tts_params (tts_params win)
emotion:
  enabled: false
  name: happy
  # params:
  #   semitones: 2
  #   tempo: 1.1

# marker -> gesture:name or emotion:name
# [wave,2,1.5] runs Waving at speed 2, magnitude 1.5
# [happy,0.8,3] is happy at magnitude 0.8 for 3 seconds
animations:
  wave: gesture:Waving
  nod: gesture:Nod
  happy: emotion:happy

# viseme shape overrides
# visemes:
#   O:
#     magnitude: 0.9
#     rampin: 0.3
#     rampout: 0.45
#     duration: 1.5

# tell a peer chatbot what was said
peer_chatbot:
  enabled: false
  url: ""

# remembered durations for length queries (0 disables)
length_cache_size: 256
`

var checkConfig bool

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the ttstalker config file",
	Long:    paragraph(fmt.Sprintf("\n%s the ttstalker config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created. With --check the file is validated instead.", keyword("Edit"))),
	Example: paragraph("ttstalker config\nttstalker config --config path/to/config.yml\nttstalker config --check"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if checkConfig {
			return runConfigCheck()
		}

		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("ttstalker", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

// runConfigCheck loads the config with every available vendor and reports
// entries that would be ignored at speak time.
func runConfigCheck() error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	mute = true
	talker, cleanup, err := newTalker(bridge.NewLogPort(nil), settings)
	if err != nil {
		return err
	}
	defer cleanup()

	result := tts.ValidateSettings(settings, talker.Vendors())
	fmt.Println(paragraph(fmt.Sprintf("%s %s", keyword("config"), viper.ConfigFileUsed())))
	for _, k := range []string{"vendors", "voices", "animations"} {
		fmt.Println(paragraph(fmt.Sprintf("  %s: %s", k, result.Details[k])))
	}
	if result.OK() {
		fmt.Println(paragraph(keyword("OK")))
		return nil
	}
	for _, w := range result.Warnings {
		fmt.Println(paragraph("  - " + w))
	}
	fmt.Println()
	fmt.Println(paragraph(result.Guidance))
	return errors.New("configuration has problems")
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

func init() {
	configCmd.Flags().BoolVar(&checkConfig, "check", false, "validate the config file instead of editing it")
}
