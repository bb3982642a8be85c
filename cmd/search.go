package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/avoronov/ripstream/internal/app"
	"github.com/avoronov/ripstream/internal/logger"
)

// defaultSearchLimit caps search responses unless overridden.
const defaultSearchLimit = 20

//nolint:gochecknoglobals // Cobra command requires a global definition.
var searchCmd = &cobra.Command{
	Use:   "search {source} {kind} {query}",
	Short: "Search a provider and list, save, or download the results.",
	Long: `Search a provider's catalog.

By default the results are printed as a numbered list with native references
that can be passed back to ripstream. With --first the top hit is downloaded
immediately; with --output-file the results are written to a JSON file.

Examples:
  ripstream search qobuz album "kid a"
  ripstream search deezer track "idioteque" --first
  ripstream search tidal artist "radiohead" --output-file results.json`,
	Args:             cobra.MinimumNArgs(3),
	PersistentPreRun: initConfig,
	Run: func(cmd *cobra.Command, args []string) {
		if err := bindFlagsToConfig(cmd.Flags(), appConfig); err != nil {
			logger.Fatalf(cmd.Context(), "Failed to parse flags: %v", err)
		}

		first, _ := cmd.Flags().GetBool("first")
		outputFile, _ := cmd.Flags().GetString("output-file")
		limit, _ := cmd.Flags().GetInt("limit")

		source, kind := args[0], args[1]
		// Quoting the query on the shell is optional.
		query := strings.Join(args[2:], " ")

		app.ExecuteSearchCommand(cmd.Context(), appConfig, source, kind, query, app.SearchOptions{
			First:      first,
			OutputFile: outputFile,
			Limit:      limit,
		})
	},
}

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	searchCmd.Flags().Bool("first", false, "download the top hit instead of listing results.")
	searchCmd.Flags().String("output-file", "", "write the results to a JSON file.")
	searchCmd.Flags().Int("limit", defaultSearchLimit, "maximum number of results to request.")

	rootCmd.AddCommand(searchCmd)
}
