package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/constants"
	"github.com/avoronov/ripstream/internal/logger"
)

// SearchOptions control what happens with the search results.
type SearchOptions struct {
	// First downloads the top hit instead of listing results.
	First bool
	// OutputFile writes the results as JSON to the given path.
	OutputFile string
	// Limit caps the number of results requested from the provider.
	Limit int
}

// searchKinds are the reference kinds a search query may target.
//
//nolint:gochecknoglobals // Immutable lookup set.
var searchKinds = map[string]client.Kind{
	"track":    client.KindTrack,
	"album":    client.KindAlbum,
	"artist":   client.KindArtist,
	"playlist": client.KindPlaylist,
}

// ExecuteSearchCommand runs a provider search and either lists the results,
// dumps them to a JSON file, or downloads the top hit.
func ExecuteSearchCommand(
	ctx context.Context,
	cfg *config.Config,
	source, kindName, query string,
	opts SearchOptions,
) {
	kind, ok := searchKinds[kindName]
	if !ok {
		logger.Fatalf(ctx, "Unknown search kind %q (expected track, album, artist, or playlist)", kindName)
	}

	session, err := newSession(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize: %v", err)
	}

	c, ok := session.clients[source]
	if !ok {
		session.close(ctx)
		logger.Fatalf(ctx, "Source %q is not enabled in the configuration", source)
	}

	results, err := c.Search(ctx, kind, query, opts.Limit)
	if err != nil {
		session.close(ctx)
		logger.Fatalf(ctx, "Search failed: %v", err)
	}

	if len(results) == 0 {
		session.close(ctx)
		logger.Infof(ctx, "No %s results for %q on %s", kindName, query, source)

		return
	}

	switch {
	case opts.OutputFile != "":
		err = writeSearchResults(opts.OutputFile, results)
		session.close(ctx)

		if err != nil {
			logger.Fatalf(ctx, "Failed to write search results: %v", err)
		}

		logger.Infof(ctx, "Saved %d result(s) to %s", len(results), opts.OutputFile)
	case opts.First:
		top := results[0]
		logger.Infof(ctx, "Downloading top hit: %s", formatSearchResult(1, top))

		runErr := session.download(ctx, []string{
			fmt.Sprintf("%s:%s:%s", source, top.Kind, top.ID),
		})
		session.close(ctx)

		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Fatalf(ctx, "Download failed: %v", runErr)
		}
	default:
		for i, result := range results {
			logger.Info(ctx, formatSearchResult(i+1, result))
		}

		session.close(ctx)
	}
}

// writeSearchResults dumps the results as indented JSON.
func writeSearchResults(path string, results []*client.SearchResult) error {
	payload, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err = os.WriteFile(path, payload, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// formatSearchResult renders one numbered result line.
func formatSearchResult(position int, result *client.SearchResult) string {
	line := strconv.Itoa(position) + ". "

	if result.Artist != "" {
		line += result.Artist + " - "
	}

	line += result.Title

	if result.Year > 0 {
		line += fmt.Sprintf(" (%d)", result.Year)
	}

	if result.Explicit {
		line += " [E]"
	}

	return fmt.Sprintf("%s [%s:%s:%s]", line, result.Source, result.Kind, result.ID)
}
