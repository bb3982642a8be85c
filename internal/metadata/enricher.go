package metadata

//go:generate $MOCKGEN -source=enricher.go -destination=mocks/enricher_mock.go

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/logger"
	http_transport "github.com/avoronov/ripstream/internal/transport/http"
	"github.com/avoronov/ripstream/internal/utils"
)

// Enricher augments normalized album metadata from an external cultural database.
type Enricher interface {
	// EnrichAlbum merges looked-up genres and descriptors into the album.
	// It never fails the pipeline: lookup errors are logged and the album
	// is left as the provider delivered it.
	EnrichAlbum(ctx context.Context, album *Album)
}

// LookupResult is the enrichment payload for one album.
type LookupResult struct {
	// Genres is the looked-up genre list, most relevant first.
	Genres []string `json:"genres"`
	// Descriptors is the looked-up mood/style descriptor list.
	Descriptors []string `json:"descriptors"`
	// URL is the page the data came from.
	URL string `json:"url"`
}

// lookupCacheSize bounds the per-session lookup cache.
// An artist discography rarely exceeds a few hundred albums.
const lookupCacheSize = 2000

// lookupURI is the URI path of the enrichment lookup endpoint.
const lookupURI = "api/lookup"

// EnricherImpl implements the Enricher interface against an HTTP lookup service.
type EnricherImpl struct {
	// baseURL is the lookup service endpoint.
	baseURL string
	// genreMode selects replace or append merging.
	genreMode string
	// httpClient is the HTTP client for lookup calls.
	httpClient *http.Client
	// cache avoids duplicate lookups for the same (artist, album) pair.
	cache *lru.Cache[string, *LookupResult]
	// sem bounds concurrent lookup calls independently of the download pool.
	sem *semaphore.Weighted
}

var _ Enricher = (*EnricherImpl)(nil)

// NewEnricher creates an Enricher from the enrichment configuration.
func NewEnricher(cfg *config.Config) (*EnricherImpl, error) {
	cache, err := lru.New[string, *LookupResult](lookupCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}

	httpClient := &http.Client{
		Transport: http_transport.NewUserAgentInjector(
			http_transport.NewLogTransport(http.DefaultTransport, 0),
			utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent)),
		Timeout: http_transport.DefaultTimeout,
	}

	return &EnricherImpl{
		baseURL:    strings.TrimRight(cfg.Enrichment.BaseURL, "/"),
		genreMode:  cfg.Enrichment.GenreMode,
		httpClient: httpClient,
		cache:      cache,
		sem:        semaphore.NewWeighted(cfg.MaxConnections),
	}, nil
}

// EnrichAlbum merges looked-up genres and descriptors into the album.
func (e *EnricherImpl) EnrichAlbum(ctx context.Context, album *Album) {
	result, err := e.lookup(ctx, album)
	if err != nil {
		logger.Warnf(ctx, "Metadata lookup failed for '%s - %s': %v", album.AlbumArtist, album.Title, err)

		return
	}

	if result == nil {
		return
	}

	e.applyGenres(album, result.Genres)

	// Descriptors are merged unconditionally when present.
	if len(result.Descriptors) > 0 {
		album.RYMDescriptors = utils.Dedupe(append(album.RYMDescriptors, result.Descriptors...))
	}
}

func (e *EnricherImpl) applyGenres(album *Album, genres []string) {
	if len(genres) == 0 {
		return
	}

	switch e.genreMode {
	case config.GenreModeAppend:
		album.Genres = utils.Dedupe(append(album.Genres, genres...))
	default:
		album.Genres = genres
	}
}

func (e *EnricherImpl) lookup(ctx context.Context, album *Album) (*LookupResult, error) {
	cacheKey := strings.ToLower(album.AlbumArtist + "|" + album.Title)
	if cached, ok := e.cache.Get(cacheKey); ok {
		logger.Debugf(ctx, "Lookup cache hit for '%s'", cacheKey)

		return cached, nil
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	query := url.Values{}
	query.Set("artist", album.AlbumArtist)
	query.Set("album", album.Title)
	query.Set("type", album.ReleaseType)

	if album.Year > 0 {
		query.Set("year", strconv.Itoa(album.Year))
	}

	route := e.baseURL + "/" + lookupURI + "?" + query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, route, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := e.httpClient.Do(request)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	// Not found is a normal outcome: cache it so the album is not retried.
	if response.StatusCode == http.StatusNotFound {
		e.cache.Add(cacheKey, nil)

		return nil, nil
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected lookup status: %d", response.StatusCode)
	}

	var result LookupResult
	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, err
	}

	e.cache.Add(cacheKey, &result)

	return &result, nil
}
