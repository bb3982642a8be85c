package app

import (
	"context"
	"fmt"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/ledger"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
	"github.com/avoronov/ripstream/internal/service/rip"
)

// session holds the wired-up components of one CLI invocation.
type session struct {
	cfg     *config.Config
	clients map[string]client.Client
	store   *ledger.LedgerImpl
	service rip.Service
}

// newSession builds the provider clients, logs them in, opens the ledger, and
// wires the download service.
func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	clients, err := client.NewClients(cfg)
	if err != nil {
		return nil, err
	}

	// Stable login order so auth failures are reproducible.
	for _, name := range config.SourceNames {
		c, ok := clients[name]
		if !ok {
			continue
		}

		logger.Debugf(ctx, "Logging in to %s", name)

		if err = c.Login(ctx); err != nil {
			return nil, fmt.Errorf("login to %s failed: %w", name, err)
		}
	}

	// Some providers rotate their tokens during login.
	if err = config.SaveConfig(cfg); err != nil {
		logger.Warnf(ctx, "Failed to persist refreshed tokens: %v", err)
	}

	store, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open download ledger: %w", err)
	}

	var enricher metadata.Enricher

	if cfg.Enrichment.Enabled {
		impl, enricherErr := metadata.NewEnricher(cfg)
		if enricherErr != nil {
			logger.Warnf(ctx, "Metadata enrichment disabled: %v", enricherErr)
		} else {
			enricher = impl
		}
	}

	resolvers := make(map[string]rip.WebResolver)
	enabledSources := make(map[string]bool, len(cfg.Sources))

	for name, source := range cfg.Sources {
		if source == nil || !source.Enabled {
			continue
		}

		enabledSources[name] = true

		// Soundcloud permalinks carry no numeric id; they resolve through the
		// provider's resolve endpoint.
		if name == client.SourceSoundcloud {
			resolvers[name] = client.NewSoundcloudClient(source)
		}
	}

	urlProcessor := rip.NewURLProcessor(resolvers, nil, enabledSources)

	service := rip.NewService(
		cfg,
		clients,
		store,
		enricher,
		urlProcessor,
		rip.NewTemplateManager(ctx, cfg),
		rip.NewTagProcessor(),
		rip.NewTrackValidator(),
		nil,
	)

	return &session{
		cfg:     cfg,
		clients: clients,
		store:   store,
		service: service,
	}, nil
}

// download runs the pipeline over the inputs and always prints the summary,
// even when a worker panics.
func (s *session) download(ctx context.Context, inputs []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(ctx, "Panic recovered: %v", r)
		}

		s.service.PrintDownloadSummary(ctx)
	}()

	return s.service.DownloadInputs(ctx, inputs)
}

// close releases the ledger.
func (s *session) close(ctx context.Context) {
	if err := s.store.Close(); err != nil {
		logger.Errorf(ctx, "Failed to close download ledger: %v", err)
	}
}
