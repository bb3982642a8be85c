package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
)

const (
	// SourceSoundcloud is the provider name of the SoundCloud adapter.
	SourceSoundcloud = "soundcloud"

	// soundcloudAPIBaseURL is the SoundCloud v2 API root.
	soundcloudAPIBaseURL = "https://api-v2.soundcloud.com"

	// soundcloudPageSize is the page size for catalog listings.
	soundcloudPageSize = 50
)

// SoundcloudClient implements the Client interface for the SoundCloud API.
// SoundCloud serves lossy audio only; tracks stand alone, so every track
// gets a single-track album record. Labels are not a SoundCloud concept.
type SoundcloudClient struct {
	// cfg is the per-provider configuration section.
	cfg *config.SourceConfig
	// rest is the shared HTTP plumbing.
	rest *restClient
}

var _ Client = (*SoundcloudClient)(nil)

// NewSoundcloudClient creates a SoundCloud adapter from its configuration section.
func NewSoundcloudClient(cfg *config.SourceConfig) *SoundcloudClient {
	return &SoundcloudClient{
		cfg:  cfg,
		rest: newRESTClient(soundcloudAPIBaseURL, map[string]string{}),
	}
}

// Source returns the provider name.
func (c *SoundcloudClient) Source() string {
	return SourceSoundcloud
}

// Login verifies the client id. It is idempotent.
func (c *SoundcloudClient) Login(ctx context.Context) error {
	if c.cfg.AppID == "" {
		return fmt.Errorf("%w: soundcloud requires a client id (app_id)", ErrMissingCredentials)
	}

	// A cheap resolve call validates the client id.
	query := c.clientQuery()
	query.Set("url", "https://soundcloud.com/discover")

	if _, err := fetchJSON[map[string]any](c.rest, ctx, "resolve", query); err != nil {
		return fmt.Errorf("soundcloud login failed: %w", err)
	}

	logger.Debugf(ctx, "SoundCloud client id accepted")

	return nil
}

// Resolve turns a SoundCloud web URL into its API entity via the resolver endpoint.
func (c *SoundcloudClient) Resolve(ctx context.Context, webURL string) (Kind, string, error) {
	query := c.clientQuery()
	query.Set("url", webURL)

	raw, err := fetchJSON[soundcloudResolved](c.rest, ctx, "resolve", query)
	if err != nil {
		return "", "", err
	}

	switch raw.Kind {
	case "track":
		return KindTrack, strconv.FormatInt(raw.ID, 10), nil
	case "playlist":
		return KindPlaylist, strconv.FormatInt(raw.ID, 10), nil
	case "user":
		return KindArtist, strconv.FormatInt(raw.ID, 10), nil
	default:
		return "", "", fmt.Errorf("%w: soundcloud kind '%s'", ErrUnsupportedKind, raw.Kind)
	}
}

// GetTrack fetches and normalizes metadata for a single track.
func (c *SoundcloudClient) GetTrack(ctx context.Context, trackID string) (*metadata.Track, error) {
	raw, err := fetchJSON[soundcloudTrack](c.rest, ctx, "tracks/"+trackID, c.clientQuery())
	if err != nil {
		return nil, err
	}

	return normalizeSoundcloudTrack(raw), nil
}

// GetAlbum treats a SoundCloud playlist marked as an album as the album record.
func (c *SoundcloudClient) GetAlbum(ctx context.Context, albumID string) (*metadata.Album, []*metadata.Track, error) {
	raw, err := fetchJSON[soundcloudPlaylist](c.rest, ctx, "playlists/"+albumID, c.clientQuery())
	if err != nil {
		return nil, nil, err
	}

	album := &metadata.Album{
		Info: metadata.AlbumInfo{
			Quality:    metadata.QualityLossyHigh,
			Container:  metadata.ContainerMP3,
			Streamable: true,
		},
		ID:             strconv.FormatInt(raw.ID, 10),
		Title:          metadata.CleanTitle(raw.Title),
		Year:           yearFromDate(raw.CreatedAt),
		Date:           raw.CreatedAt,
		Covers:         soundcloudCovers(raw.ArtworkURL),
		TrackTotal:     len(raw.Tracks),
		DiscTotal:      1,
		MediaType:      metadata.MediaTypeDigital,
		SourcePlatform: SourceSoundcloud,
		SourceAlbumID:  strconv.FormatInt(raw.ID, 10),
	}

	if raw.User != nil {
		album.AlbumArtist = metadata.CleanTitle(raw.User.Username)
		album.SourceArtistID = strconv.FormatInt(raw.User.ID, 10)
	}

	tracks := make([]*metadata.Track, 0, len(raw.Tracks))

	for i, rawTrack := range raw.Tracks {
		track := normalizeSoundcloudTrack(rawTrack)
		track.Album = album
		track.TrackNumber = i + 1
		track.SourceAlbumID = album.SourceAlbumID
		tracks = append(tracks, track)
	}

	return album, tracks, nil
}

// GetArtist fetches a user profile with their track uploads as the discography.
// SoundCloud users publish tracks, not albums, so each upload becomes a child.
func (c *SoundcloudClient) GetArtist(ctx context.Context, artistID string) (*metadata.Artist, error) {
	rawUser, err := fetchJSON[soundcloudUser](c.rest, ctx, "users/"+artistID, c.clientQuery())
	if err != nil {
		return nil, err
	}

	artist := &metadata.Artist{
		ID:             artistID,
		Name:           metadata.CleanTitle(rawUser.Username),
		SourcePlatform: SourceSoundcloud,
	}

	offset := "0"

	for {
		query := c.clientQuery()
		query.Set("limit", strconv.Itoa(soundcloudPageSize))
		query.Set("offset", offset)

		page, err := fetchJSON[soundcloudTrackPage](c.rest, ctx, "users/"+artistID+"/tracks", query)
		if err != nil {
			return nil, err
		}

		for _, track := range page.Collection {
			artist.AlbumIDs = append(artist.AlbumIDs, strconv.FormatInt(track.ID, 10))
		}

		if page.NextHref == "" || len(page.Collection) == 0 {
			break
		}

		offset = strconv.Itoa(len(artist.AlbumIDs))
	}

	return artist, nil
}

// GetLabel is not supported: SoundCloud has no label catalog.
func (c *SoundcloudClient) GetLabel(_ context.Context, _ string) (*metadata.Label, error) {
	return nil, fmt.Errorf("%w: soundcloud labels", ErrUnsupportedKind)
}

// GetPlaylist fetches playlist metadata with its track list.
func (c *SoundcloudClient) GetPlaylist(ctx context.Context, playlistID string) (*metadata.Playlist, error) {
	raw, err := fetchJSON[soundcloudPlaylist](c.rest, ctx, "playlists/"+playlistID, c.clientQuery())
	if err != nil {
		return nil, err
	}

	playlist := &metadata.Playlist{
		ID:             playlistID,
		Title:          metadata.CleanTitle(raw.Title),
		SourcePlatform: SourceSoundcloud,
	}

	for _, track := range raw.Tracks {
		playlist.TrackIDs = append(playlist.TrackIDs, strconv.FormatInt(track.ID, 10))
	}

	return playlist, nil
}

// GetDownloadable resolves the progressive transcoding of a track into a stream URL.
func (c *SoundcloudClient) GetDownloadable(
	ctx context.Context,
	trackID string,
	_ uint8,
	isRetry bool,
) (Downloadable, error) {
	raw, err := fetchJSON[soundcloudTrack](c.rest, ctx, "tracks/"+trackID, c.clientQuery())
	if err != nil {
		return nil, err
	}

	transcodingURL := pickProgressiveTranscoding(raw)
	if transcodingURL == "" {
		if !isRetry {
			logger.Infof(ctx, "SoundCloud track %s has no progressive stream, retrying once", trackID)

			return c.GetDownloadable(ctx, trackID, 0, true)
		}

		return nil, fmt.Errorf("%w: track %s", ErrNotStreamable, trackID)
	}

	// The transcoding URL is absolute; call it with the client id appended.
	streamRest := &restClient{baseURL: transcodingURL, httpClient: c.rest.httpClient, headers: c.rest.headers}

	resolved, err := fetchJSON[soundcloudStream](streamRest, ctx, "", c.clientQuery())
	if err != nil {
		return nil, err
	}

	if resolved.URL == "" {
		return nil, fmt.Errorf("%w: track %s", ErrNotStreamable, trackID)
	}

	return NewHTTPDownloadable(c.rest.httpClient, resolved.URL, "mp3", SourceSoundcloud, nil), nil
}

// Search returns catalog matches for a query.
func (c *SoundcloudClient) Search(ctx context.Context, kind Kind, query string, limit int) ([]*SearchResult, error) {
	if kind != KindTrack {
		return nil, fmt.Errorf("%w: soundcloud search for '%s'", ErrUnsupportedKind, kind)
	}

	q := c.clientQuery()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	raw, err := fetchJSON[soundcloudTrackPage](c.rest, ctx, "search/tracks", q)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(raw.Collection))

	for _, track := range raw.Collection {
		artist := ""
		if track.User != nil {
			artist = track.User.Username
		}

		results = append(results, &SearchResult{
			Kind:   KindTrack,
			ID:     strconv.FormatInt(track.ID, 10),
			Title:  metadata.CleanTitle(track.Title),
			Artist: artist,
			Source: SourceSoundcloud,
			URL:    track.PermalinkURL,
		})
	}

	return results, nil
}

// GetUserFavorites lists a user's liked tracks.
func (c *SoundcloudClient) GetUserFavorites(ctx context.Context, kind Kind, userID string) ([]*FavoriteItem, error) {
	if kind != KindTrack {
		return nil, fmt.Errorf("%w: soundcloud favorites of '%s'", ErrUnsupportedKind, kind)
	}

	query := c.clientQuery()
	query.Set("limit", strconv.Itoa(soundcloudPageSize))

	raw, err := fetchJSON[soundcloudTrackPage](c.rest, ctx, "users/"+userID+"/likes", query)
	if err != nil {
		return nil, err
	}

	items := make([]*FavoriteItem, 0, len(raw.Collection))

	for _, track := range raw.Collection {
		items = append(items, &FavoriteItem{
			ID:    strconv.FormatInt(track.ID, 10),
			Kind:  KindTrack,
			Title: metadata.CleanTitle(track.Title),
		})
	}

	return items, nil
}

func (c *SoundcloudClient) clientQuery() url.Values {
	query := url.Values{}
	query.Set("client_id", c.cfg.AppID)

	return query
}

// normalizeSoundcloudTrack maps a raw track payload onto the uniform model,
// synthesizing a single-track album for standalone uploads.
func normalizeSoundcloudTrack(raw *soundcloudTrack) *metadata.Track {
	album := &metadata.Album{
		Info: metadata.AlbumInfo{
			Quality:    metadata.QualityLossyHigh,
			Container:  metadata.ContainerMP3,
			Streamable: raw.Streamable,
		},
		ID:             strconv.FormatInt(raw.ID, 10),
		Title:          metadata.CleanTitle(raw.Title),
		Year:           yearFromDate(raw.CreatedAt),
		Date:           raw.CreatedAt,
		Covers:         soundcloudCovers(raw.ArtworkURL),
		TrackTotal:     1,
		DiscTotal:      1,
		Genres:         soundcloudGenres(raw.Genre),
		Description:    raw.Description,
		MediaType:      metadata.MediaTypeDigital,
		SourcePlatform: SourceSoundcloud,
		SourceAlbumID:  strconv.FormatInt(raw.ID, 10),
	}

	track := &metadata.Track{
		Info: metadata.TrackInfo{
			ID:         strconv.FormatInt(raw.ID, 10),
			Quality:    metadata.QualityLossyHigh,
			Streamable: raw.Streamable,
		},
		Title:          metadata.CleanTitle(raw.Title),
		Album:          album,
		TrackNumber:    1,
		DiscNumber:     1,
		SourcePlatform: SourceSoundcloud,
		SourceTrackID:  strconv.FormatInt(raw.ID, 10),
		SourceAlbumID:  album.SourceAlbumID,
		MediaType:      metadata.MediaTypeDigital,
	}

	if raw.User != nil {
		album.AlbumArtist = metadata.CleanTitle(raw.User.Username)
		album.SourceArtistID = strconv.FormatInt(raw.User.ID, 10)
		track.Artist = album.AlbumArtist
		track.SourceArtistID = album.SourceArtistID
	}

	track.NormalizeArtists()

	return track
}

func pickProgressiveTranscoding(raw *soundcloudTrack) string {
	for _, transcoding := range raw.Media.Transcodings {
		if transcoding.Format.Protocol == "progressive" {
			return transcoding.URL
		}
	}

	return ""
}

func soundcloudGenres(genre string) []string {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil
	}

	return []string{genre}
}

// soundcloudCovers builds the artwork set from the artwork URL,
// which embeds its size as a "-large" suffix.
func soundcloudCovers(artworkURL string) metadata.Covers {
	if artworkURL == "" {
		return metadata.Covers{}
	}

	return metadata.Covers{
		Thumbnail: artworkURL,
		Small:     strings.Replace(artworkURL, "-large", "-t300x300", 1),
		Large:     strings.Replace(artworkURL, "-large", "-t500x500", 1),
		Original:  strings.Replace(artworkURL, "-large", "-original", 1),
	}
}
