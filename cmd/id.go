package cmd

import (
	"github.com/spf13/cobra"

	"github.com/avoronov/ripstream/internal/app"
	"github.com/avoronov/ripstream/internal/logger"
)

//nolint:gochecknoglobals // Cobra command requires a global definition.
var idCmd = &cobra.Command{
	Use:   "id {source} {kind} {item-id}",
	Short: "Download an item by its provider-native identifier.",
	Long: `Download an item directly by its provider-native identifier, without a URL.

Examples:
  ripstream id qobuz album 0060254735180
  ripstream id deezer track 3135556
  ripstream id tidal playlist 1b418bb8-90a7-4f87-901d-707993838346`,
	Args:             cobra.ExactArgs(3),
	PersistentPreRun: initConfig,
	Run: func(cmd *cobra.Command, args []string) {
		if err := bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
			logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
		}

		app.ExecuteIDCommand(cmd.Context(), appConfig, args[0], args[1], args[2])
	},
}

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	rootCmd.AddCommand(idCmd)
}
