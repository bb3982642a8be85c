package app

import (
	"context"
	"fmt"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/logger"
)

// idKinds are the reference kinds an id download may target.
//
//nolint:gochecknoglobals // Immutable lookup set.
var idKinds = map[string]client.Kind{
	"track":    client.KindTrack,
	"album":    client.KindAlbum,
	"artist":   client.KindArtist,
	"label":    client.KindLabel,
	"playlist": client.KindPlaylist,
}

// ExecuteIDCommand downloads a single item by its provider-native identifier,
// bypassing URL parsing.
func ExecuteIDCommand(ctx context.Context, cfg *config.Config, source, kindName, itemID string) {
	kind, ok := idKinds[kindName]
	if !ok {
		logger.Fatalf(ctx,
			"Unknown kind %q (expected track, album, artist, label, or playlist)", kindName)
	}

	ExecuteRootCommand(ctx, cfg, []string{fmt.Sprintf("%s:%s:%s", source, kind, itemID)})
}
