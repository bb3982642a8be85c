package rip

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/ledger"
	"github.com/avoronov/ripstream/internal/metadata"
	"github.com/avoronov/ripstream/internal/utils"
)

// memoryDownloadable serves canned bytes as a stream handle.
type memoryDownloadable struct {
	data      []byte
	extension string
	source    string
}

func (d *memoryDownloadable) Extension() string { return d.extension }
func (d *memoryDownloadable) Source() string    { return d.source }

func (d *memoryDownloadable) Size(_ context.Context) (int64, error) {
	return int64(len(d.data)), nil
}

func (d *memoryDownloadable) Open(_ context.Context) (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(d.data)), int64(len(d.data)), nil
}

// stubProviderClient is a canned provider adapter for pipeline tests.
type stubProviderClient struct {
	source        string
	album         *metadata.Album
	tracks        []*metadata.Track
	artist        *metadata.Artist
	downloadables map[string]*memoryDownloadable
	albumErr      error
	downloadErrs  map[string]error
}

var _ client.Client = (*stubProviderClient)(nil)

func (c *stubProviderClient) Source() string                { return c.source }
func (c *stubProviderClient) Login(_ context.Context) error { return nil }

func (c *stubProviderClient) GetTrack(_ context.Context, id string) (*metadata.Track, error) {
	for _, track := range c.tracks {
		if track.SourceTrackID == id {
			return track, nil
		}
	}

	return nil, client.ErrNotFound
}

func (c *stubProviderClient) GetAlbum(
	_ context.Context, _ string,
) (*metadata.Album, []*metadata.Track, error) {
	if c.albumErr != nil {
		return nil, nil, c.albumErr
	}

	return c.album, c.tracks, nil
}

func (c *stubProviderClient) GetArtist(_ context.Context, _ string) (*metadata.Artist, error) {
	if c.artist == nil {
		return nil, client.ErrNotFound
	}

	return c.artist, nil
}

func (c *stubProviderClient) GetLabel(_ context.Context, _ string) (*metadata.Label, error) {
	return nil, client.ErrNotFound
}

func (c *stubProviderClient) GetPlaylist(_ context.Context, _ string) (*metadata.Playlist, error) {
	return nil, client.ErrNotFound
}

func (c *stubProviderClient) GetDownloadable(
	_ context.Context, trackID string, _ uint8, _ bool,
) (client.Downloadable, error) {
	if err, ok := c.downloadErrs[trackID]; ok {
		return nil, err
	}

	downloadable, ok := c.downloadables[trackID]
	if !ok {
		return nil, client.ErrNotFound
	}

	return downloadable, nil
}

func (c *stubProviderClient) Search(
	_ context.Context, _ client.Kind, _ string, _ int,
) ([]*client.SearchResult, error) {
	return nil, nil
}

func (c *stubProviderClient) GetUserFavorites(
	_ context.Context, _ client.Kind, _ string,
) ([]*client.FavoriteItem, error) {
	return nil, nil
}

// recordingTagProcessor records tag requests instead of touching files.
// A non-nil err fails every request.
type recordingTagProcessor struct {
	mu       sync.Mutex
	requests []*WriteTagsRequest
	err      error
}

func (tp *recordingTagProcessor) WriteTags(_ context.Context, req *WriteTagsRequest) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	tp.requests = append(tp.requests, req)

	return tp.err
}

func (tp *recordingTagProcessor) count() int {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	return len(tp.requests)
}

func testAlbumFixture() (*metadata.Album, []*metadata.Track) {
	album := &metadata.Album{
		Info: metadata.AlbumInfo{
			Quality:      metadata.QualityCD,
			Container:    metadata.ContainerFLAC,
			BitDepth:     16,
			SamplingRate: 44100,
			Streamable:   true,
		},
		ID:             "9",
		Title:          "Kid A",
		AlbumArtist:    "Radiohead",
		Year:           2000,
		TrackTotal:     2,
		DiscTotal:      1,
		SourcePlatform: client.SourceDeezer,
		SourceAlbumID:  "9",
	}

	tracks := []*metadata.Track{
		{
			Info:          metadata.TrackInfo{Streamable: true},
			Title:         "Everything in Its Right Place",
			Artist:        "Radiohead",
			TrackNumber:   1,
			DiscNumber:    1,
			Album:         album,
			SourceTrackID: "t1",
			SourceAlbumID: "9",
		},
		{
			Info:          metadata.TrackInfo{Streamable: true},
			Title:         "Kid A",
			Artist:        "Radiohead",
			TrackNumber:   2,
			DiscNumber:    1,
			Album:         album,
			SourceTrackID: "t2",
			SourceAlbumID: "9",
		},
	}

	return album, tracks
}

type pipelineFixture struct {
	cfg          *config.Config
	service      *ServiceImpl
	stub         *stubProviderClient
	store        *ledger.LedgerImpl
	tagProcessor *recordingTagProcessor
}

func newPipelineFixture(t *testing.T, mutate func(*config.Config, *stubProviderClient)) *pipelineFixture {
	t.Helper()

	album, tracks := testAlbumFixture()

	stub := &stubProviderClient{
		source: client.SourceDeezer,
		album:  album,
		tracks: tracks,
		downloadables: map[string]*memoryDownloadable{
			"t1": {data: []byte("first track bytes"), extension: "flac", source: client.SourceDeezer},
			"t2": {data: []byte("second track bytes"), extension: "flac", source: client.SourceDeezer},
		},
		downloadErrs: map[string]error{},
	}

	cfg := &config.Config{
		OutputPath:     t.TempDir(),
		MaxConnections: 2,
		Sources: map[string]*config.SourceConfig{
			client.SourceDeezer: {
				Enabled:                    true,
				Quality:                    metadata.QualityCD,
				LowerQualityIfNotAvailable: true,
			},
		},
		FolderFormat: config.DefaultFolderFormat,
		TrackFormat:  config.DefaultTrackFormat,
	}

	if mutate != nil {
		mutate(cfg, stub)
	}

	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tagProcessor := &recordingTagProcessor{}

	service := NewService(
		cfg,
		map[string]client.Client{client.SourceDeezer: stub},
		store,
		nil,
		NewURLProcessor(nil, nil, map[string]bool{client.SourceDeezer: true}),
		NewTemplateManager(t.Context(), cfg),
		tagProcessor,
		NewTrackValidator(),
		nil,
	)

	return &pipelineFixture{
		cfg:          cfg,
		service:      service,
		stub:         stub,
		store:        store,
		tagProcessor: tagProcessor,
	}
}

// TestDownloadInputsAlbumEndToEnd tests the whole album pipeline: resolution,
// download, tagging, atomic rename, and ledger bookkeeping.
func TestDownloadInputsAlbumEndToEnd(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, nil)

	err := fixture.service.DownloadInputs(t.Context(), []string{"deezer:album:9"})
	require.NoError(t, err)

	albumDir := filepath.Join(fixture.cfg.OutputPath, "Radiohead - Kid A (2000)")

	for _, filename := range []string{
		"01 - Everything in Its Right Place.flac",
		"02 - Kid A.flac",
	} {
		exists, statErr := utils.IsFileExist(filepath.Join(albumDir, filename))
		require.NoError(t, statErr)
		assert.True(t, exists, "expected %q to exist", filename)
	}

	// No .part leftovers.
	leftovers, globErr := filepath.Glob(filepath.Join(albumDir, "*.part"))
	require.NoError(t, globErr)
	assert.Empty(t, leftovers)

	assert.Equal(t, 2, fixture.tagProcessor.count())
	assert.Zero(t, fixture.service.FailedItemCount())

	downloaded, ledgerErr := fixture.store.IsTrackDownloaded(t.Context(), client.SourceDeezer, "t1")
	require.NoError(t, ledgerErr)
	assert.True(t, downloaded)

	complete, ledgerErr := fixture.store.IsReleaseComplete(
		t.Context(), client.SourceDeezer, string(client.KindAlbum), "9")
	require.NoError(t, ledgerErr)
	assert.True(t, complete)
}

// TestDownloadInputsSecondRunSkips tests run idempotency through the ledger.
func TestDownloadInputsSecondRunSkips(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, nil)

	require.NoError(t, fixture.service.DownloadInputs(t.Context(), []string{"deezer:album:9"}))
	require.Equal(t, 2, fixture.tagProcessor.count())

	// Second run against the same ledger downloads nothing.
	second := NewService(
		fixture.cfg,
		map[string]client.Client{client.SourceDeezer: fixture.stub},
		fixture.store,
		nil,
		NewURLProcessor(nil, nil, map[string]bool{client.SourceDeezer: true}),
		NewTemplateManager(t.Context(), fixture.cfg),
		fixture.tagProcessor,
		NewTrackValidator(),
		nil,
	)

	require.NoError(t, second.DownloadInputs(t.Context(), []string{"deezer:album:9"}))
	assert.Equal(t, 2, fixture.tagProcessor.count())

	second.statsMutex.Lock()
	defer second.statsMutex.Unlock()
	assert.Equal(t, int64(1), second.stats.TracksSkippedExists)
}

// TestDownloadInputsFailedTrack tests that per-item failures leave the run
// successful but recorded: no album completion, a ledger failure mark, and a
// non-zero failed count.
func TestDownloadInputsFailedTrack(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, func(_ *config.Config, stub *stubProviderClient) {
		stub.downloadErrs["t2"] = client.ErrNotStreamable
	})

	err := fixture.service.DownloadInputs(t.Context(), []string{"deezer:album:9"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), fixture.service.FailedItemCount())
	assert.Equal(t, 1, fixture.tagProcessor.count())

	complete, ledgerErr := fixture.store.IsReleaseComplete(
		t.Context(), client.SourceDeezer, string(client.KindAlbum), "9")
	require.NoError(t, ledgerErr)
	assert.False(t, complete)

	failed, ledgerErr := fixture.store.IsFailed(
		t.Context(), client.SourceDeezer, string(client.KindTrack), "t2")
	require.NoError(t, ledgerErr)
	assert.True(t, failed)
}

// TestDownloadInputsDryRun tests that a dry run previews without touching
// the filesystem or the ledger.
func TestDownloadInputsDryRun(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, func(cfg *config.Config, _ *stubProviderClient) {
		cfg.DryRun = true
	})

	require.NoError(t, fixture.service.DownloadInputs(t.Context(), []string{"deezer:album:9"}))

	assert.Zero(t, fixture.tagProcessor.count())

	albumDir := filepath.Join(fixture.cfg.OutputPath, "Radiohead - Kid A (2000)")
	exists, err := utils.IsFileExist(albumDir)
	require.NoError(t, err)
	assert.False(t, exists)

	complete, err := fixture.store.IsReleaseComplete(
		t.Context(), client.SourceDeezer, string(client.KindAlbum), "9")
	require.NoError(t, err)
	assert.False(t, complete)

	fixture.service.statsMutex.Lock()
	defer fixture.service.statsMutex.Unlock()
	assert.Equal(t, int64(2), fixture.service.stats.TracksDownloaded)
}

// TestDownloadInputsAuthErrorIsFatal tests that authentication failures abort
// the run instead of degrading to per-item failures.
func TestDownloadInputsAuthErrorIsFatal(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, func(_ *config.Config, stub *stubProviderClient) {
		stub.albumErr = client.ErrAuth
	})

	err := fixture.service.DownloadInputs(t.Context(), []string{"deezer:album:9"})
	require.ErrorIs(t, err, client.ErrAuth)
}

// TestDownloadInputsNotStreamableAlbum tests that an album the provider
// reports as not streamable terminates before anything touches the disk.
func TestDownloadInputsNotStreamableAlbum(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, func(_ *config.Config, stub *stubProviderClient) {
		stub.album.Info.Streamable = false
	})

	require.NoError(t, fixture.service.DownloadInputs(t.Context(), []string{"deezer:album:9"}))

	assert.Equal(t, int64(1), fixture.service.FailedItemCount())
	assert.Zero(t, fixture.tagProcessor.count())

	albumDir := filepath.Join(fixture.cfg.OutputPath, "Radiohead - Kid A (2000)")
	exists, err := utils.IsFileExist(albumDir)
	require.NoError(t, err)
	assert.False(t, exists)

	complete, err := fixture.store.IsReleaseComplete(
		t.Context(), client.SourceDeezer, string(client.KindAlbum), "9")
	require.NoError(t, err)
	assert.False(t, complete)
}

// TestDownloadInputsNotStreamableTrack tests that a single non-streamable
// track fails without dragging the rest of the album down, and keeps the
// album out of the completion ledger.
func TestDownloadInputsNotStreamableTrack(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, func(_ *config.Config, stub *stubProviderClient) {
		stub.tracks[1].Info.Streamable = false
	})

	require.NoError(t, fixture.service.DownloadInputs(t.Context(), []string{"deezer:album:9"}))

	assert.Equal(t, int64(1), fixture.service.FailedItemCount())
	assert.Equal(t, 1, fixture.tagProcessor.count())

	failed, err := fixture.store.IsFailed(
		t.Context(), client.SourceDeezer, string(client.KindTrack), "t2")
	require.NoError(t, err)
	assert.True(t, failed)

	complete, err := fixture.store.IsReleaseComplete(
		t.Context(), client.SourceDeezer, string(client.KindAlbum), "9")
	require.NoError(t, err)
	assert.False(t, complete)
}

// TestDownloadInputsArtistCompletion tests that an artist expansion is marked
// complete once every album terminates, even when an album ends with a failed
// track, and that a later run skips the artist through the ledger.
func TestDownloadInputsArtistCompletion(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, func(_ *config.Config, stub *stubProviderClient) {
		stub.artist = &metadata.Artist{
			ID:             "77",
			Name:           "Radiohead",
			AlbumIDs:       []string{"9"},
			SourcePlatform: client.SourceDeezer,
		}
		stub.downloadErrs["t2"] = client.ErrNotStreamable
	})

	require.NoError(t, fixture.service.DownloadInputs(t.Context(), []string{"deezer:artist:77"}))

	// The album ended dirty, so only the artist-level mark lands.
	albumComplete, err := fixture.store.IsReleaseComplete(
		t.Context(), client.SourceDeezer, string(client.KindAlbum), "9")
	require.NoError(t, err)
	assert.False(t, albumComplete)

	artistComplete, err := fixture.store.IsReleaseComplete(
		t.Context(), client.SourceDeezer, string(client.KindArtist), "77")
	require.NoError(t, err)
	assert.True(t, artistComplete)

	second := NewService(
		fixture.cfg,
		map[string]client.Client{client.SourceDeezer: fixture.stub},
		fixture.store,
		nil,
		NewURLProcessor(nil, nil, map[string]bool{client.SourceDeezer: true}),
		NewTemplateManager(t.Context(), fixture.cfg),
		fixture.tagProcessor,
		NewTrackValidator(),
		nil,
	)

	require.NoError(t, second.DownloadInputs(t.Context(), []string{"deezer:artist:77"}))

	second.statsMutex.Lock()
	defer second.statsMutex.Unlock()
	assert.Equal(t, int64(1), second.stats.TracksSkippedExists)
}

// TestDownloadInputsKeepsAudioOnTagFailure tests that a tagging failure
// records the error but leaves the transferred temp file on disk.
func TestDownloadInputsKeepsAudioOnTagFailure(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, nil)
	fixture.tagProcessor.err = fmt.Errorf("%w: embedded cover is 20 MB", ErrCoverTooLarge)

	require.NoError(t, fixture.service.DownloadInputs(t.Context(), []string{"deezer:track:t1"}))

	assert.Equal(t, int64(1), fixture.service.FailedItemCount())

	albumDir := filepath.Join(fixture.cfg.OutputPath, "Radiohead - Kid A (2000)")
	trackPath := filepath.Join(albumDir, "01 - Everything in Its Right Place.flac")

	finalExists, err := utils.IsFileExist(trackPath)
	require.NoError(t, err)
	assert.False(t, finalExists)

	partExists, err := utils.IsFileExist(trackPath + defaultPartExtension)
	require.NoError(t, err)
	assert.True(t, partExists)
}

// TestDownloadInputsQualityRefusal tests the whole-release failure when the
// source cannot serve the requested tier and downgrading is disabled.
func TestDownloadInputsQualityRefusal(t *testing.T) {
	t.Parallel()

	fixture := newPipelineFixture(t, func(cfg *config.Config, _ *stubProviderClient) {
		cfg.Sources[client.SourceDeezer].Quality = metadata.QualityHiRes
		cfg.Sources[client.SourceDeezer].LowerQualityIfNotAvailable = false
	})

	require.NoError(t, fixture.service.DownloadInputs(t.Context(), []string{"deezer:album:9"}))

	assert.Equal(t, int64(1), fixture.service.FailedItemCount())
	assert.Zero(t, fixture.tagProcessor.count())

	failed, err := fixture.store.IsFailed(
		t.Context(), client.SourceDeezer, string(client.KindAlbum), "9")
	require.NoError(t, err)
	assert.True(t, failed)
}
