package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/ttstalker/internal/bridge"
	"github.com/dgnsrekt/ttstalker/internal/config"
	"github.com/dgnsrekt/ttstalker/internal/tts"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

const (
	// pruneInterval and lengthMaxAge bound the duration cache of a long
	// running server.
	pruneInterval = 10 * time.Minute
	lengthMaxAge  = time.Hour
)

var listen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket bridge and HTTP API",
	Long: paragraph(fmt.Sprintf("\nServe consumers on %s and accept speech on %s, %s and %s. The config file is reloaded when it changes.",
		keyword("/ws"), keyword("POST /say"), keyword("GET /length"), keyword("POST /control"))),
	Example: paragraph("ttstalker serve\nttstalker serve --listen 127.0.0.1:9000"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("listen") {
			listen = rt.Listen
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var talker *tts.Talker
		hub := bridge.NewHub(func(sig ttypes.ControlSignal) {
			talker.Signal(sig)
		})
		talker, cleanup, err := newTalker(hub, settings)
		if err != nil {
			return err
		}
		defer cleanup()
		talker.Start(ctx)

		if viper.ConfigFileUsed() != "" {
			w, err := config.NewWatcher(viper.GetViper(), talker.Reconfigure)
			if err != nil {
				log.Warn("Config changes will need a restart", "error", err)
			} else {
				defer w.Close()
			}
		}

		go pruneLengths(ctx, talker)

		err = bridge.NewServer(talker, hub).Run(ctx, listen)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	},
}

func pruneLengths(ctx context.Context, talker *tts.Talker) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := talker.PruneLengths(lengthMaxAge); n > 0 {
				log.Debug("Pruned cached lengths", "count", n)
			}
		}
	}
}

func init() {
	serveCmd.Flags().StringVar(&listen, "listen", ":8090", "address to listen on (env TTSTALKER_LISTEN)")
}
