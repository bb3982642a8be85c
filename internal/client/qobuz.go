package client

import (
	"context"
	"crypto/md5" //nolint:gosec // The provider's request signature scheme requires MD5.
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
)

const (
	// SourceQobuz is the provider name of the Qobuz adapter.
	SourceQobuz = "qobuz"

	// qobuzAPIBaseURL is the Qobuz REST API root.
	qobuzAPIBaseURL = "https://www.qobuz.com/api.json/0.2"

	// qobuzTrackURI is the URI path for track metadata.
	qobuzTrackURI = "track/get"
	// qobuzAlbumURI is the URI path for album metadata.
	qobuzAlbumURI = "album/get"
	// qobuzArtistURI is the URI path for artist metadata.
	qobuzArtistURI = "artist/get"
	// qobuzLabelURI is the URI path for label metadata.
	qobuzLabelURI = "label/get"
	// qobuzPlaylistURI is the URI path for playlist metadata.
	qobuzPlaylistURI = "playlist/get"
	// qobuzFileURLURI is the URI path for the signed stream URL endpoint.
	qobuzFileURLURI = "track/getFileUrl"
	// qobuzSearchURI is the URI path for catalog search.
	qobuzSearchURI = "catalog/search"
	// qobuzFavoritesURI is the URI path for user favorites.
	qobuzFavoritesURI = "favorite/getUserFavorites"
	// qobuzUserURI is the URI path for the session check.
	qobuzUserURI = "user/get"

	// qobuzAlbumsCacheSize bounds the per-session album metadata cache.
	qobuzAlbumsCacheSize = 5000

	// qobuzArtistPageSize is the discography page size.
	qobuzArtistPageSize = 500
)

// Qobuz format identifiers per quality tier.
//
//nolint:gochecknoglobals // Immutable lookup table.
var qobuzFormatIDs = map[uint8]string{
	metadata.QualityLossyLow:  "5",
	metadata.QualityLossyHigh: "5",
	metadata.QualityCD:        "6",
	metadata.QualityHiRes:     "27",
}

// QobuzClient implements the Client interface for the Qobuz API.
type QobuzClient struct {
	// cfg is the per-provider configuration section.
	cfg *config.SourceConfig
	// rest is the shared HTTP plumbing with session headers.
	rest *restClient
	// albumsCache caches album metadata to reduce duplicate API calls for the same albums.
	albumsCache *lru.Cache[string, *qobuzAlbum]
}

var _ Client = (*QobuzClient)(nil)

// NewQobuzClient creates a Qobuz adapter from its configuration section.
func NewQobuzClient(cfg *config.SourceConfig) (*QobuzClient, error) {
	albumsCache, err := lru.New[string, *qobuzAlbum](qobuzAlbumsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create albums cache: %w", err)
	}

	headers := map[string]string{
		"X-App-Id":          cfg.AppID,
		"X-User-Auth-Token": cfg.Token,
	}

	return &QobuzClient{
		cfg:         cfg,
		rest:        newRESTClient(qobuzAPIBaseURL, headers),
		albumsCache: albumsCache,
	}, nil
}

// Source returns the provider name.
func (c *QobuzClient) Source() string {
	return SourceQobuz
}

// Login verifies the session token. It is idempotent.
func (c *QobuzClient) Login(ctx context.Context) error {
	if c.cfg.Token == "" || c.cfg.AppID == "" || c.cfg.AppSecret == "" {
		return fmt.Errorf("%w: qobuz requires token, app_id and app_secret", ErrMissingCredentials)
	}

	user, err := fetchJSON[qobuzUser](c.rest, ctx, qobuzUserURI, nil)
	if err != nil {
		return fmt.Errorf("qobuz login failed: %w", err)
	}

	logger.Debugf(ctx, "Logged into Qobuz as user %d", user.ID)

	return nil
}

// GetTrack fetches and normalizes metadata for a single track.
func (c *QobuzClient) GetTrack(ctx context.Context, trackID string) (*metadata.Track, error) {
	query := url.Values{}
	query.Set("track_id", trackID)

	raw, err := fetchJSON[qobuzTrack](c.rest, ctx, qobuzTrackURI, query)
	if err != nil {
		return nil, err
	}

	if raw.Album == nil {
		return nil, fmt.Errorf("%w: track %s has no album", ErrUnexpectedResponseFormat, trackID)
	}

	album := normalizeQobuzAlbum(raw.Album)

	return normalizeQobuzTrack(raw, album), nil
}

// GetAlbum fetches and normalizes album metadata including all tracks.
func (c *QobuzClient) GetAlbum(ctx context.Context, albumID string) (*metadata.Album, []*metadata.Track, error) {
	raw, err := c.getAlbumRaw(ctx, albumID)
	if err != nil {
		return nil, nil, err
	}

	album := normalizeQobuzAlbum(raw)
	tracks := make([]*metadata.Track, 0, len(raw.Tracks.Items))

	for _, rawTrack := range raw.Tracks.Items {
		tracks = append(tracks, normalizeQobuzTrack(rawTrack, album))
	}

	return album, tracks, nil
}

// GetArtist fetches artist metadata with its enumerable discography.
func (c *QobuzClient) GetArtist(ctx context.Context, artistID string) (*metadata.Artist, error) {
	artist := &metadata.Artist{
		ID:             artistID,
		SourcePlatform: SourceQobuz,
	}

	for offset := 0; ; offset += qobuzArtistPageSize {
		query := url.Values{}
		query.Set("artist_id", artistID)
		query.Set("extra", "albums")
		query.Set("limit", strconv.Itoa(qobuzArtistPageSize))
		query.Set("offset", strconv.Itoa(offset))

		page, err := fetchJSON[qobuzArtist](c.rest, ctx, qobuzArtistURI, query)
		if err != nil {
			return nil, err
		}

		artist.Name = metadata.CleanTitle(page.Name)

		for _, album := range page.Albums.Items {
			artist.AlbumIDs = append(artist.AlbumIDs, album.ID)
		}

		if len(page.Albums.Items) < qobuzArtistPageSize {
			break
		}
	}

	return artist, nil
}

// GetLabel fetches label metadata with its enumerable catalog.
func (c *QobuzClient) GetLabel(ctx context.Context, labelID string) (*metadata.Label, error) {
	label := &metadata.Label{
		ID:             labelID,
		SourcePlatform: SourceQobuz,
	}

	for offset := 0; ; offset += qobuzArtistPageSize {
		query := url.Values{}
		query.Set("label_id", labelID)
		query.Set("extra", "albums")
		query.Set("limit", strconv.Itoa(qobuzArtistPageSize))
		query.Set("offset", strconv.Itoa(offset))

		page, err := fetchJSON[qobuzLabel](c.rest, ctx, qobuzLabelURI, query)
		if err != nil {
			return nil, err
		}

		label.Name = metadata.CleanTitle(page.Name)

		for _, album := range page.Albums.Items {
			label.AlbumIDs = append(label.AlbumIDs, album.ID)
		}

		if len(page.Albums.Items) < qobuzArtistPageSize {
			break
		}
	}

	return label, nil
}

// GetPlaylist fetches playlist metadata with its track list.
func (c *QobuzClient) GetPlaylist(ctx context.Context, playlistID string) (*metadata.Playlist, error) {
	query := url.Values{}
	query.Set("playlist_id", playlistID)
	query.Set("extra", "tracks")

	raw, err := fetchJSON[qobuzPlaylist](c.rest, ctx, qobuzPlaylistURI, query)
	if err != nil {
		return nil, err
	}

	playlist := &metadata.Playlist{
		ID:             playlistID,
		Title:          metadata.CleanTitle(raw.Name),
		SourcePlatform: SourceQobuz,
	}

	for _, track := range raw.Tracks.Items {
		playlist.TrackIDs = append(playlist.TrackIDs, strconv.FormatInt(track.ID, 10))
	}

	return playlist, nil
}

// GetDownloadable obtains a signed stream URL for a track at the chosen quality.
func (c *QobuzClient) GetDownloadable(
	ctx context.Context,
	trackID string,
	quality uint8,
	isRetry bool,
) (Downloadable, error) {
	formatID, ok := qobuzFormatIDs[quality]
	if !ok {
		return nil, fmt.Errorf("%w: tier %d", ErrQualityUnavailable, quality)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	query := url.Values{}
	query.Set("track_id", trackID)
	query.Set("format_id", formatID)
	query.Set("intent", "stream")
	query.Set("request_ts", timestamp)
	query.Set("request_sig", c.fileURLSignature(trackID, formatID, timestamp))

	raw, err := fetchJSON[qobuzFileURL](c.rest, ctx, qobuzFileURLURI, query)
	if err != nil {
		return nil, err
	}

	if raw.URL == "" || raw.Sample {
		// Geo-restricted tracks sometimes resolve through an alternative id once.
		if !isRetry && raw.RestrictionCode != "" {
			logger.Infof(ctx, "Qobuz restriction '%s' on track %s, retrying once", raw.RestrictionCode, trackID)

			return c.GetDownloadable(ctx, trackID, quality, true)
		}

		return nil, fmt.Errorf("%w: track %s", ErrNotStreamable, trackID)
	}

	extension := "flac"
	if raw.MimeType == "audio/mpeg" {
		extension = "mp3"
	}

	return NewHTTPDownloadable(c.rest.httpClient, raw.URL, extension, SourceQobuz, nil), nil
}

// Search returns catalog matches for a query.
func (c *QobuzClient) Search(ctx context.Context, kind Kind, query string, limit int) ([]*SearchResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))

	raw, err := fetchJSON[qobuzSearchResponse](c.rest, ctx, qobuzSearchURI, q)
	if err != nil {
		return nil, err
	}

	var results []*SearchResult

	switch kind {
	case KindTrack:
		for _, track := range raw.Tracks.Items {
			artist := ""
			if track.Performer != nil {
				artist = track.Performer.Name
			}

			results = append(results, &SearchResult{
				Kind:     KindTrack,
				ID:       strconv.FormatInt(track.ID, 10),
				Title:    metadata.CleanTitle(track.Title),
				Artist:   artist,
				Explicit: track.ParentalWarning,
				Source:   SourceQobuz,
			})
		}
	case KindAlbum:
		for _, album := range raw.Albums.Items {
			artist := ""
			if album.Artist != nil {
				artist = album.Artist.Name
			}

			results = append(results, &SearchResult{
				Kind:     KindAlbum,
				ID:       album.ID,
				Title:    metadata.CleanTitle(album.Title),
				Artist:   artist,
				Year:     yearFromDate(album.ReleaseDateOriginal),
				Explicit: album.ParentalWarning,
				Source:   SourceQobuz,
			})
		}
	default:
		return nil, fmt.Errorf("%w: qobuz search for '%s'", ErrUnsupportedKind, kind)
	}

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// GetUserFavorites lists the user's favorite items of the given kind.
func (c *QobuzClient) GetUserFavorites(ctx context.Context, kind Kind, _ string) ([]*FavoriteItem, error) {
	favoriteType, ok := map[Kind]string{
		KindTrack:  "tracks",
		KindAlbum:  "albums",
		KindArtist: "artists",
	}[kind]
	if !ok {
		return nil, fmt.Errorf("%w: qobuz favorites of '%s'", ErrUnsupportedKind, kind)
	}

	query := url.Values{}
	query.Set("type", favoriteType)
	query.Set("limit", strconv.Itoa(qobuzArtistPageSize))

	raw, err := fetchJSON[qobuzFavoritesResponse](c.rest, ctx, qobuzFavoritesURI, query)
	if err != nil {
		return nil, err
	}

	var items []*FavoriteItem

	appendItem := func(id, title string) {
		items = append(items, &FavoriteItem{ID: id, Kind: kind, Title: metadata.CleanTitle(title)})
	}

	switch kind {
	case KindTrack:
		for _, track := range raw.Tracks.Items {
			appendItem(strconv.FormatInt(track.ID, 10), track.Title)
		}
	case KindAlbum:
		for _, album := range raw.Albums.Items {
			appendItem(album.ID, album.Title)
		}
	case KindArtist:
		for _, artist := range raw.Artists.Items {
			appendItem(strconv.FormatInt(artist.ID, 10), artist.Name)
		}
	}

	return items, nil
}

func (c *QobuzClient) getAlbumRaw(ctx context.Context, albumID string) (*qobuzAlbum, error) {
	if cached, ok := c.albumsCache.Get(albumID); ok {
		logger.Debugf(ctx, "Album cache hit for ID: %s", albumID)

		return cached, nil
	}

	query := url.Values{}
	query.Set("album_id", albumID)

	raw, err := fetchJSON[qobuzAlbum](c.rest, ctx, qobuzAlbumURI, query)
	if err != nil {
		return nil, err
	}

	c.albumsCache.Add(albumID, raw)

	return raw, nil
}

// fileURLSignature computes the MD5 request signature the getFileUrl endpoint requires.
func (c *QobuzClient) fileURLSignature(trackID, formatID, timestamp string) string {
	payload := "trackgetFileUrlformat_id" + formatID +
		"intentstreamtrack_id" + trackID +
		timestamp + c.cfg.AppSecret

	sum := md5.Sum([]byte(payload)) //nolint:gosec // The provider's request signature scheme requires MD5.

	return hex.EncodeToString(sum[:])
}

// normalizeQobuzAlbum maps a raw album payload onto the uniform model.
func normalizeQobuzAlbum(raw *qobuzAlbum) *metadata.Album {
	quality := qobuzQualityFromFacts(raw.MaximumBitDepth, raw.MaximumSamplingRate)
	container, bitDepth := metadata.InfoForQuality(quality, metadata.ContainerMP3)

	album := &metadata.Album{
		Info: metadata.AlbumInfo{
			Quality:      quality,
			Container:    container,
			BitDepth:     bitDepth,
			SamplingRate: int(raw.MaximumSamplingRate * 1000),
			Explicit:     raw.ParentalWarning,
			Streamable:   raw.Streamable,
		},
		ID:             raw.ID,
		Title:          metadata.CleanTitle(raw.Title),
		Year:           yearFromDate(raw.ReleaseDateOriginal),
		Date:           raw.ReleaseDateOriginal,
		Covers: metadata.Covers{
			Thumbnail: raw.Image.Thumbnail,
			Small:     raw.Image.Small,
			Large:     raw.Image.Large,
			Original:  qobuzOriginalCover(raw.Image.Large),
		},
		TrackTotal:     raw.TracksCount,
		DiscTotal:      raw.MediaCount,
		Copyright:      raw.Copyright,
		Description:    raw.Description,
		Barcode:        raw.UPC,
		ReleaseType:    raw.ReleaseType,
		MediaType:      metadata.MediaTypeDigital,
		SourcePlatform: SourceQobuz,
		SourceAlbumID:  raw.ID,
	}

	if raw.Artist != nil {
		album.AlbumArtist = metadata.CleanTitle(raw.Artist.Name)
		album.SourceArtistID = strconv.FormatInt(raw.Artist.ID, 10)
	}

	if raw.Label != nil {
		album.Label = raw.Label.Name
	}

	if raw.Genre != nil && raw.Genre.Name != "" {
		album.Genres = []string{raw.Genre.Name}
	}

	return album
}

// normalizeQobuzTrack maps a raw track payload onto the uniform model.
func normalizeQobuzTrack(raw *qobuzTrack, album *metadata.Album) *metadata.Track {
	track := &metadata.Track{
		Info: metadata.TrackInfo{
			ID:           strconv.FormatInt(raw.ID, 10),
			Quality:      album.Info.Quality,
			Streamable:   raw.Streamable,
			BitDepth:     int(raw.MaximumBitDepth),
			SamplingRate: int(raw.MaximumSamplingRate * 1000),
			Explicit:     raw.ParentalWarning,
			Work:         metadata.CleanTitle(raw.Work),
		},
		Title:           qobuzTrackTitle(raw),
		Album:           album,
		TrackNumber:     raw.TrackNumber,
		DiscNumber:      raw.MediaNumber,
		ISRC:            raw.ISRC,
		SourcePlatform:  SourceQobuz,
		SourceTrackID:   strconv.FormatInt(raw.ID, 10),
		SourceAlbumID:   album.SourceAlbumID,
		SourceArtistID:  album.SourceArtistID,
		ReplayGainTrack: raw.AudioInfo.ReplayGainTrack,
		MediaType:       metadata.MediaTypeDigital,
	}

	if raw.Performer != nil {
		track.Artist = metadata.CleanTitle(raw.Performer.Name)
	}

	if track.Artist == "" {
		track.Artist = album.AlbumArtist
	}

	if raw.Composer != nil && raw.Composer.Name != "" {
		track.Composer = []string{raw.Composer.Name}
	}

	track.NormalizeArtists()

	return track
}

func qobuzTrackTitle(raw *qobuzTrack) string {
	title := metadata.CleanTitle(raw.Title)
	if raw.Version != "" {
		title += " (" + metadata.CleanTitle(raw.Version) + ")"
	}

	return title
}

// qobuzQualityFromFacts derives the advertised quality tier from the
// maximum bit depth and sampling rate (kHz) the catalog reports.
func qobuzQualityFromFacts(bitDepth int, samplingRate float64) uint8 {
	switch {
	case bitDepth >= 24:
		return metadata.QualityHiRes
	case bitDepth == 16 || samplingRate >= 44.1:
		return metadata.QualityCD
	default:
		return metadata.QualityLossyHigh
	}
}

// qobuzOriginalCover rewrites the large artwork URL to the original-size variant.
func qobuzOriginalCover(largeURL string) string {
	if largeURL == "" {
		return ""
	}

	return strings.Replace(largeURL, "_600.", "_org.", 1)
}

// yearFromDate extracts the year from an ISO date string.
func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}

	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}

	return year
}
