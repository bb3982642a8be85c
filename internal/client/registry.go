package client

import (
	"fmt"

	"github.com/avoronov/ripstream/internal/config"
)

// NewClients builds one rate-limited adapter per enabled provider section.
func NewClients(cfg *config.Config) (map[string]Client, error) {
	clients := make(map[string]Client)

	for name, source := range cfg.Sources {
		if source == nil || !source.Enabled {
			continue
		}

		var (
			inner Client
			err   error
		)

		switch name {
		case SourceQobuz:
			inner, err = NewQobuzClient(source)
		case SourceTidal:
			inner = NewTidalClient(source)
		case SourceDeezer:
			inner = NewDeezerClient(source)
		case SourceSoundcloud:
			inner = NewSoundcloudClient(source)
		default:
			return nil, fmt.Errorf("%w: '%s'", config.ErrUnknownSource, name)
		}

		if err != nil {
			return nil, fmt.Errorf("failed to build %s client: %w", name, err)
		}

		clients[name] = NewLimited(inner, source.RequestsPerMinute, cfg.MaxConnections)
	}

	return clients, nil
}
