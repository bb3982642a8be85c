package rip

//go:generate $MOCKGEN -source=service.go -destination=mocks/service_mock.go

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/constants"
	"github.com/avoronov/ripstream/internal/ledger"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
)

// Pipeline phase names used in error reports.
const (
	phaseParsingInput     = "parsing input"
	phaseFetchingMetadata = "fetching metadata"
	phaseResolvingQuality = "resolving quality"
	phaseDownloadingCover = "downloading cover art"
	phaseDownloadingTrack = "downloading track"
	phaseWritingTags      = "writing tags"
	phaseValidatingAudio  = "validating audio"
	phaseFinalizingFile   = "finalizing file"
)

// Service orchestrates the full download pipeline: input parsing, metadata
// resolution, filtering, the download pool, tagging, and bookkeeping.
type Service interface {
	// DownloadInputs resolves and downloads everything the inputs reference.
	// The returned error is non-nil only for run-level failures
	// (configuration, authentication); per-item failures are recorded in the
	// statistics instead.
	DownloadInputs(ctx context.Context, inputs []string) error
	// PrintDownloadSummary prints a formatted summary of download statistics.
	PrintDownloadSummary(ctx context.Context)
	// FailedItemCount returns the number of items that ended in failure.
	FailedItemCount() int64
}

// ServiceImpl implements the Service interface.
type ServiceImpl struct {
	// cfg is the application configuration.
	cfg *config.Config
	// clients maps enabled provider names to their rate-limited adapters.
	clients map[string]client.Client
	// store is the persistent download ledger.
	store ledger.Ledger
	// enricher augments album metadata, nil when enrichment is disabled.
	enricher metadata.Enricher
	// urlProcessor turns raw inputs into download items.
	urlProcessor URLProcessor
	// templateManager renders folder and track names.
	templateManager TemplateManager
	// tagProcessor writes metadata tags into finished files.
	tagProcessor TagProcessor
	// trackValidator checks finished files for corruption.
	trackValidator TrackValidator
	// releaseFilter prunes discography expansions.
	releaseFilter *ReleaseFilter
	// httpClient fetches cover art and other plain files.
	httpClient *http.Client

	// downloadSem bounds concurrent byte transfers across all providers.
	downloadSem *semaphore.Weighted
	// queue is the download worker pool, created per run.
	queue *downloadQueue

	// stats accumulates session statistics, guarded by statsMutex.
	stats      *DownloadStatistics
	statsMutex sync.Mutex
}

var _ Service = (*ServiceImpl)(nil)

// NewService creates a new Service with its dependencies.
func NewService(
	cfg *config.Config,
	clients map[string]client.Client,
	store ledger.Ledger,
	enricher metadata.Enricher,
	urlProcessor URLProcessor,
	templateManager TemplateManager,
	tagProcessor TagProcessor,
	trackValidator TrackValidator,
	httpClient *http.Client,
) *ServiceImpl {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &ServiceImpl{
		cfg:             cfg,
		clients:         clients,
		store:           store,
		enricher:        enricher,
		urlProcessor:    urlProcessor,
		templateManager: templateManager,
		tagProcessor:    tagProcessor,
		trackValidator:  trackValidator,
		releaseFilter:   NewReleaseFilter(cfg.Filters),
		httpClient:      httpClient,
		downloadSem:     semaphore.NewWeighted(cfg.MaxConnections),
		stats:           &DownloadStatistics{IsDryRun: cfg.DryRun},
	}
}

// DownloadInputs resolves and downloads everything the inputs reference.
func (s *ServiceImpl) DownloadInputs(ctx context.Context, inputs []string) error {
	s.statsMutex.Lock()
	s.stats.StartTime = time.Now()
	s.statsMutex.Unlock()

	if err := os.MkdirAll(s.cfg.OutputPath, constants.DefaultFolderPermissions); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	items, rejected, err := s.urlProcessor.ProcessInputs(ctx, inputs)
	if err != nil {
		return err
	}

	for _, reject := range rejected {
		s.recordResolutionError(ErrorContext{
			ItemURL: reject.Input,
			Phase:   phaseParsingInput,
		}, reject.Err)
	}

	items = s.urlProcessor.DeduplicateDownloadItems(ctx, items)

	logger.Infof(ctx, "Processing %d item(s)", len(items))

	s.queue = newDownloadQueue(s.cfg.MaxConnections)
	wait := s.queue.Start(ctx)

	var fatalErr error

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		if err = s.processItem(ctx, item); err != nil {
			fatalErr = err

			break
		}
	}

	wait()

	s.statsMutex.Lock()
	s.stats.EndTime = time.Now()
	s.statsMutex.Unlock()

	return fatalErr
}

// processItem dispatches one download item by its kind. The returned error is
// non-nil only for run-level failures.
func (s *ServiceImpl) processItem(ctx context.Context, item DownloadItem) error {
	logger.Infof(ctx, "Processing %s", item)

	var err error

	switch item.Kind {
	case client.KindTrack:
		err = s.processTrackItem(ctx, item)
	case client.KindAlbum:
		err = s.processAlbumItem(ctx, item)
	case client.KindArtist:
		err = s.processArtistItem(ctx, item)
	case client.KindLabel:
		err = s.processLabelItem(ctx, item)
	case client.KindPlaylist:
		err = s.processPlaylistItem(ctx, item)
	case client.KindFavorites:
		err = s.processFavoritesItem(ctx, item)
	default:
		err = fmt.Errorf("%w: %q", client.ErrUnsupportedKind, item.Kind)
	}

	if err == nil {
		return nil
	}

	if isFatalError(err) {
		return fmt.Errorf("source %s: %w", item.Source, err)
	}

	s.recordResolutionError(ErrorContext{
		Source:  item.Source,
		Kind:    item.Kind,
		ItemID:  item.ItemID,
		ItemURL: item.URL,
		Phase:   phaseFetchingMetadata,
	}, err)

	return nil
}

// clientFor returns the adapter for a source, which exists for every item the
// URL processor admits.
func (s *ServiceImpl) clientFor(source string) (client.Client, error) {
	c, ok := s.clients[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceDisabled, source)
	}

	return c, nil
}

// sourceConfigFor returns the per-source settings for a source.
func (s *ServiceImpl) sourceConfigFor(source string) *config.SourceConfig {
	if sourceCfg, ok := s.cfg.Sources[source]; ok && sourceCfg != nil {
		return sourceCfg
	}

	// URL processing admits only enabled sources, which always have a section.
	return &config.SourceConfig{}
}
