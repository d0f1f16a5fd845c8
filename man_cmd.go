package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return err
		}

		page = page.WithSection("Configuration", "Settings are read from ttstalker.yml in the user config directory.\n"+
			"Run 'ttstalker config' to edit it. The file is reloaded by 'ttstalker serve' when it changes.")
		fmt.Println(page.Build(roff.NewDocument()))
		return nil
	},
}
