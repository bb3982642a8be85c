package metadata

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/ripstream/internal/config"
)

func newTestEnricher(t *testing.T, genreMode string, handler http.HandlerFunc) *EnricherImpl {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	enricher, err := NewEnricher(&config.Config{
		MaxConnections: 2,
		Enrichment: config.EnrichmentConfig{
			Enabled:   true,
			BaseURL:   server.URL,
			GenreMode: genreMode,
		},
	})
	require.NoError(t, err)

	return enricher
}

// TestEnrichAlbumReplaceMode tests that replace mode overwrites genres only when the lookup returns some.
func TestEnrichAlbumReplaceMode(t *testing.T) {
	t.Parallel()

	enricher := newTestEnricher(t, config.GenreModeReplace, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Miles Davis", r.URL.Query().Get("artist"))
		assert.Equal(t, "Kind of Blue", r.URL.Query().Get("album"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"genres":["Modal Jazz","Cool Jazz"],"descriptors":["mellow","nocturnal"]}`))
	})

	album := &Album{
		AlbumArtist: "Miles Davis",
		Title:       "Kind of Blue",
		Year:        1959,
		Genres:      []string{"Jazz"},
	}

	enricher.EnrichAlbum(t.Context(), album)

	assert.Equal(t, []string{"Modal Jazz", "Cool Jazz"}, album.Genres)
	assert.Equal(t, []string{"mellow", "nocturnal"}, album.RYMDescriptors)
}

// TestEnrichAlbumAppendMode tests order-preserving deduplicated genre merging.
func TestEnrichAlbumAppendMode(t *testing.T) {
	t.Parallel()

	enricher := newTestEnricher(t, config.GenreModeAppend, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"genres":["Cool Jazz","Jazz"]}`))
	})

	album := &Album{
		AlbumArtist: "Miles Davis",
		Title:       "Kind of Blue",
		Genres:      []string{"Jazz", "Modal Jazz"},
	}

	enricher.EnrichAlbum(t.Context(), album)

	// Original order preserved, duplicates dropped.
	assert.Equal(t, []string{"Jazz", "Modal Jazz", "Cool Jazz"}, album.Genres)
}

// TestEnrichAlbumNotFound tests that a missing album leaves metadata untouched and is cached.
func TestEnrichAlbumNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	enricher := newTestEnricher(t, config.GenreModeReplace, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	album := &Album{AlbumArtist: "Nobody", Title: "Nothing", Genres: []string{"Jazz"}}

	enricher.EnrichAlbum(t.Context(), album)
	enricher.EnrichAlbum(t.Context(), album)

	assert.Equal(t, []string{"Jazz"}, album.Genres)
	assert.Empty(t, album.RYMDescriptors)
	// Negative results are cached; the endpoint is hit once.
	assert.Equal(t, int64(1), calls.Load())
}

// TestEnrichAlbumEmptyGenres tests that an empty genre list never wipes existing genres.
func TestEnrichAlbumEmptyGenres(t *testing.T) {
	t.Parallel()

	enricher := newTestEnricher(t, config.GenreModeReplace, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"genres":[],"descriptors":["sparse"]}`))
	})

	album := &Album{AlbumArtist: "Miles Davis", Title: "Kind of Blue", Genres: []string{"Jazz"}}

	enricher.EnrichAlbum(t.Context(), album)

	assert.Equal(t, []string{"Jazz"}, album.Genres)
	assert.Equal(t, []string{"sparse"}, album.RYMDescriptors)
}

// TestEnrichAlbumServerError tests that lookup failures leave the album untouched.
func TestEnrichAlbumServerError(t *testing.T) {
	t.Parallel()

	enricher := newTestEnricher(t, config.GenreModeReplace, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	album := &Album{AlbumArtist: "Miles Davis", Title: "Kind of Blue", Genres: []string{"Jazz"}}

	enricher.EnrichAlbum(t.Context(), album)

	assert.Equal(t, []string{"Jazz"}, album.Genres)
}
