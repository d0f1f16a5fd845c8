package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/ttstalker/internal/bridge"
)

var sayCmd = &cobra.Command{
	Use:     "say TEXT",
	Short:   "Speak text once",
	Long:    paragraph(fmt.Sprintf("\n%s the text with the voice configured for the language. Commands are written to the log. Press ctrl+c to stop talking.", keyword("Speak"))),
	Example: paragraph("ttstalker say 'Hello [wave] there'\nttstalker say --lang en-GB --mute 'Cheerio'"),
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		talker, cleanup, err := newTalker(bridge.NewLogPort(nil), settings)
		if err != nil {
			return err
		}
		defer cleanup()
		talker.Start(ctx)

		res, err := talker.Say(ctx, strings.Join(args, " "), lang)
		if err != nil {
			return err
		}

		outcome := "done"
		if res.Interrupted {
			outcome = "interrupted"
		}
		fmt.Println(paragraph(fmt.Sprintf("%s %d events in %s", keyword(outcome), res.Dispatched, res.Elapsed.Round(time.Millisecond))))
		return nil
	},
}

var lengthCmd = &cobra.Command{
	Use:     "length TEXT",
	Short:   "Print how long the text takes to say",
	Long:    paragraph(fmt.Sprintf("\nSynthesize the text without playing it and print its %s in seconds. Unknown languages print the 1 second fallback.", keyword("duration"))),
	Example: paragraph("ttstalker length 'How long is this?'"),
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		seconds := talker.Length(context.Background(), strings.Join(args, " "), lang)
		fmt.Printf("%ss\n", humanize.FtoaWithDigits(seconds, 3))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{sayCmd, lengthCmd} {
		c.Flags().StringVarP(&lang, "lang", "l", "en-US", "language of the text")
	}
}
