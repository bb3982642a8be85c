package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/machinebox/graphql"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
)

const (
	// SourceTidal is the provider name of the Tidal adapter.
	SourceTidal = "tidal"

	// tidalAPIBaseURL is the Tidal REST API root.
	tidalAPIBaseURL = "https://api.tidal.com/v1"
	// tidalGraphQLURL is the GraphQL endpoint used for artist discographies.
	tidalGraphQLURL = "https://api.tidal.com/graphql"

	// tidalPageSize is the page size for track and discography listings.
	tidalPageSize = 100

	// tidalCoverURLTemplate builds artwork URLs from the cover UUID.
	tidalCoverURLTemplate = "https://resources.tidal.com/images/%s/%s.jpg"
)

// Tidal audio quality identifiers per quality tier.
//
//nolint:gochecknoglobals // Immutable lookup table.
var tidalAudioQualities = map[uint8]string{
	metadata.QualityLossyLow:  "LOW",
	metadata.QualityLossyHigh: "HIGH",
	metadata.QualityCD:        "LOSSLESS",
	metadata.QualityHiRes:     "HI_RES_LOSSLESS",
}

// TidalClient implements the Client interface for the Tidal API.
type TidalClient struct {
	// cfg is the per-provider configuration section.
	cfg *config.SourceConfig
	// rest is the shared HTTP plumbing with session headers.
	rest *restClient
	// graphQLClient runs discography queries.
	graphQLClient *graphql.Client
	// countryCode is learned at login and required on most endpoints.
	countryCode string
}

var _ Client = (*TidalClient)(nil)

// NewTidalClient creates a Tidal adapter from its configuration section.
func NewTidalClient(cfg *config.SourceConfig) *TidalClient {
	rest := newRESTClient(tidalAPIBaseURL, map[string]string{
		"Authorization": "Bearer " + cfg.Token,
	})

	return &TidalClient{
		cfg:           cfg,
		rest:          rest,
		graphQLClient: graphql.NewClient(tidalGraphQLURL, graphql.WithHTTPClient(rest.httpClient)),
		countryCode:   "US",
	}
}

// Source returns the provider name.
func (c *TidalClient) Source() string {
	return SourceTidal
}

// Login verifies the session token and learns the account's country code.
func (c *TidalClient) Login(ctx context.Context) error {
	if c.cfg.Token == "" {
		return fmt.Errorf("%w: tidal requires a token", ErrMissingCredentials)
	}

	session, err := fetchJSON[tidalSession](c.rest, ctx, "sessions", nil)
	if err != nil {
		return fmt.Errorf("tidal login failed: %w", err)
	}

	if session.CountryCode != "" {
		c.countryCode = session.CountryCode
	}

	logger.Debugf(ctx, "Logged into Tidal as user %d (%s)", session.UserID, c.countryCode)

	return nil
}

// GetTrack fetches and normalizes metadata for a single track.
func (c *TidalClient) GetTrack(ctx context.Context, trackID string) (*metadata.Track, error) {
	raw, err := fetchJSON[tidalTrack](c.rest, ctx, "tracks/"+trackID, c.countryQuery())
	if err != nil {
		return nil, err
	}

	if raw.Album == nil {
		return nil, fmt.Errorf("%w: track %s has no album", ErrUnexpectedResponseFormat, trackID)
	}

	album, _, err := c.GetAlbum(ctx, strconv.FormatInt(raw.Album.ID, 10))
	if err != nil {
		return nil, err
	}

	return normalizeTidalTrack(raw, album), nil
}

// GetAlbum fetches and normalizes album metadata including all tracks.
func (c *TidalClient) GetAlbum(ctx context.Context, albumID string) (*metadata.Album, []*metadata.Track, error) {
	rawAlbum, err := fetchJSON[tidalAlbum](c.rest, ctx, "albums/"+albumID, c.countryQuery())
	if err != nil {
		return nil, nil, err
	}

	album := normalizeTidalAlbum(rawAlbum)

	var tracks []*metadata.Track

	for offset := 0; ; offset += tidalPageSize {
		query := c.countryQuery()
		query.Set("limit", strconv.Itoa(tidalPageSize))
		query.Set("offset", strconv.Itoa(offset))

		page, err := fetchJSON[tidalTrackPage](c.rest, ctx, "albums/"+albumID+"/tracks", query)
		if err != nil {
			return nil, nil, err
		}

		for _, rawTrack := range page.Items {
			tracks = append(tracks, normalizeTidalTrack(rawTrack, album))
		}

		if offset+tidalPageSize >= page.TotalNumberOfItems {
			break
		}
	}

	return album, tracks, nil
}

// GetArtist fetches artist metadata with its enumerable discography.
// The discography comes from the GraphQL endpoint, which pages releases
// without the REST endpoint's compilation/appearance mixing.
func (c *TidalClient) GetArtist(ctx context.Context, artistID string) (*metadata.Artist, error) {
	artist := &metadata.Artist{
		ID:             artistID,
		SourcePlatform: SourceTidal,
	}

	for offset := 0; ; offset += tidalPageSize {
		request := graphql.NewRequest(`
			query artistReleases($id: ID!, $limit: Int!, $offset: Int!) {
				artist(id: $id) {
					name
					albums(limit: $limit, offset: $offset) {
						items {
							id
						}
					}
				}
			}
		`)

		request.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		request.Var("id", artistID)
		request.Var("limit", tidalPageSize)
		request.Var("offset", offset)

		var response tidalArtistGraphQLResponse
		if err := c.graphQLClient.Run(ctx, request, &response); err != nil {
			return nil, err
		}

		if response.Artist == nil {
			return nil, fmt.Errorf("%w: artist %s", ErrNotFound, artistID)
		}

		artist.Name = metadata.CleanTitle(response.Artist.Name)

		for _, album := range response.Artist.Albums.Items {
			artist.AlbumIDs = append(artist.AlbumIDs, album.ID)
		}

		if len(response.Artist.Albums.Items) < tidalPageSize {
			break
		}
	}

	return artist, nil
}

// GetLabel is not supported: Tidal has no label catalog endpoint.
func (c *TidalClient) GetLabel(_ context.Context, _ string) (*metadata.Label, error) {
	return nil, fmt.Errorf("%w: tidal labels", ErrUnsupportedKind)
}

// GetPlaylist fetches playlist metadata with its track list.
func (c *TidalClient) GetPlaylist(ctx context.Context, playlistID string) (*metadata.Playlist, error) {
	rawPlaylist, err := fetchJSON[tidalPlaylist](c.rest, ctx, "playlists/"+playlistID, c.countryQuery())
	if err != nil {
		return nil, err
	}

	playlist := &metadata.Playlist{
		ID:             playlistID,
		Title:          metadata.CleanTitle(rawPlaylist.Title),
		SourcePlatform: SourceTidal,
	}

	for offset := 0; ; offset += tidalPageSize {
		query := c.countryQuery()
		query.Set("limit", strconv.Itoa(tidalPageSize))
		query.Set("offset", strconv.Itoa(offset))

		page, err := fetchJSON[tidalTrackPage](c.rest, ctx, "playlists/"+playlistID+"/tracks", query)
		if err != nil {
			return nil, err
		}

		for _, track := range page.Items {
			playlist.TrackIDs = append(playlist.TrackIDs, strconv.FormatInt(track.ID, 10))
		}

		if offset+tidalPageSize >= page.TotalNumberOfItems {
			break
		}
	}

	return playlist, nil
}

// GetDownloadable obtains a stream handle via the playback-info endpoint.
func (c *TidalClient) GetDownloadable(
	ctx context.Context,
	trackID string,
	quality uint8,
	isRetry bool,
) (Downloadable, error) {
	audioQuality, ok := tidalAudioQualities[quality]
	if !ok {
		return nil, fmt.Errorf("%w: tier %d", ErrQualityUnavailable, quality)
	}

	query := url.Values{}
	query.Set("audioquality", audioQuality)
	query.Set("playbackmode", "STREAM")
	query.Set("assetpresentation", "FULL")

	raw, err := fetchJSON[tidalPlaybackInfo](c.rest, ctx, "tracks/"+trackID+"/playbackinfopostpaywall", query)
	if err != nil {
		return nil, err
	}

	manifestJSON, err := base64.StdEncoding.DecodeString(raw.Manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable manifest: %v", ErrUnexpectedResponseFormat, err)
	}

	var manifest tidalManifest
	if err = json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponseFormat, err)
	}

	if len(manifest.URLs) == 0 {
		// Geo-restricted assets occasionally resolve on a second attempt
		// through a replacement asset.
		if !isRetry {
			logger.Infof(ctx, "Tidal returned no stream URLs for track %s, retrying once", trackID)

			return c.GetDownloadable(ctx, trackID, quality, true)
		}

		return nil, fmt.Errorf("%w: track %s", ErrNotStreamable, trackID)
	}

	extension := "m4a"
	if strings.Contains(strings.ToLower(manifest.Codecs), "flac") {
		extension = "flac"
	}

	return NewHTTPDownloadable(c.rest.httpClient, manifest.URLs[0], extension, SourceTidal, nil), nil
}

// Search returns catalog matches for a query.
func (c *TidalClient) Search(ctx context.Context, kind Kind, query string, limit int) ([]*SearchResult, error) {
	searchPath, ok := map[Kind]string{
		KindTrack:  "search/tracks",
		KindAlbum:  "search/albums",
		KindArtist: "search/artists",
	}[kind]
	if !ok {
		return nil, fmt.Errorf("%w: tidal search for '%s'", ErrUnsupportedKind, kind)
	}

	q := c.countryQuery()
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))

	raw, err := fetchJSON[tidalSearchPage](c.rest, ctx, searchPath, q)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(raw.Items))

	for _, item := range raw.Items {
		result := &SearchResult{
			Kind:     kind,
			ID:       strconv.FormatInt(item.ID, 10),
			Title:    metadata.CleanTitle(item.Title),
			Explicit: item.Explicit,
			Source:   SourceTidal,
			URL:      item.URL,
		}

		if kind == KindArtist {
			result.Title = metadata.CleanTitle(item.Name)
		}

		if item.Artist != nil {
			result.Artist = item.Artist.Name
		}

		results = append(results, result)
	}

	return results, nil
}

// GetUserFavorites lists the user's favorite items of the given kind.
func (c *TidalClient) GetUserFavorites(ctx context.Context, kind Kind, userID string) ([]*FavoriteItem, error) {
	favoritePath, ok := map[Kind]string{
		KindTrack:  "tracks",
		KindAlbum:  "albums",
		KindArtist: "artists",
	}[kind]
	if !ok {
		return nil, fmt.Errorf("%w: tidal favorites of '%s'", ErrUnsupportedKind, kind)
	}

	var items []*FavoriteItem

	for offset := 0; ; offset += tidalPageSize {
		query := c.countryQuery()
		query.Set("limit", strconv.Itoa(tidalPageSize))
		query.Set("offset", strconv.Itoa(offset))

		page, err := fetchJSON[tidalFavoritesPage](
			c.rest, ctx, "users/"+userID+"/favorites/"+favoritePath, query)
		if err != nil {
			return nil, err
		}

		for _, entry := range page.Items {
			title := entry.Item.Title
			if kind == KindArtist {
				title = entry.Item.Name
			}

			items = append(items, &FavoriteItem{
				ID:    strconv.FormatInt(entry.Item.ID, 10),
				Kind:  kind,
				Title: metadata.CleanTitle(title),
			})
		}

		if offset+tidalPageSize >= page.TotalNumberOfItems {
			break
		}
	}

	return items, nil
}

func (c *TidalClient) countryQuery() url.Values {
	query := url.Values{}
	query.Set("countryCode", c.countryCode)

	return query
}

// normalizeTidalAlbum maps a raw album payload onto the uniform model.
func normalizeTidalAlbum(raw *tidalAlbum) *metadata.Album {
	quality := tidalQualityFromAudio(raw.AudioQuality)
	container, bitDepth := metadata.InfoForQuality(quality, metadata.ContainerMP4)

	album := &metadata.Album{
		Info: metadata.AlbumInfo{
			Quality:    quality,
			Container:  container,
			BitDepth:   bitDepth,
			Explicit:   raw.Explicit,
			Streamable: raw.StreamReady,
		},
		ID:             strconv.FormatInt(raw.ID, 10),
		Title:          metadata.CleanTitle(raw.Title),
		Year:           yearFromDate(raw.ReleaseDate),
		Date:           raw.ReleaseDate,
		Covers:         tidalCovers(raw.Cover),
		TrackTotal:     raw.NumberOfTracks,
		DiscTotal:      raw.NumberOfVolumes,
		Copyright:      raw.Copyright,
		Barcode:        raw.UPC,
		ReleaseType:    strings.ToLower(raw.Type),
		MediaType:      metadata.MediaTypeDigital,
		SourcePlatform: SourceTidal,
		SourceAlbumID:  strconv.FormatInt(raw.ID, 10),
	}

	if raw.AudioQuality == "HI_RES_LOSSLESS" {
		album.Info.SamplingRate = 96000
	} else if quality >= metadata.QualityCD {
		album.Info.SamplingRate = 44100
	}

	if raw.Artist != nil {
		album.AlbumArtist = metadata.CleanTitle(raw.Artist.Name)
		album.SourceArtistID = strconv.FormatInt(raw.Artist.ID, 10)
	}

	return album
}

// normalizeTidalTrack maps a raw track payload onto the uniform model.
func normalizeTidalTrack(raw *tidalTrack, album *metadata.Album) *metadata.Track {
	track := &metadata.Track{
		Info: metadata.TrackInfo{
			ID:         strconv.FormatInt(raw.ID, 10),
			Quality:    album.Info.Quality,
			Streamable: raw.StreamReady,
			Explicit:   raw.Explicit,
		},
		Title:           tidalTrackTitle(raw),
		Album:           album,
		TrackNumber:     raw.TrackNumber,
		DiscNumber:      raw.VolumeNumber,
		ISRC:            raw.ISRC,
		SourcePlatform:  SourceTidal,
		SourceTrackID:   strconv.FormatInt(raw.ID, 10),
		SourceAlbumID:   album.SourceAlbumID,
		SourceArtistID:  album.SourceArtistID,
		BPM:             raw.BPM,
		ReplayGainTrack: raw.ReplayGain,
		MediaType:       metadata.MediaTypeDigital,
	}

	if raw.Artist != nil {
		track.Artist = metadata.CleanTitle(raw.Artist.Name)
	}

	for _, artist := range raw.Artists {
		track.Artists = append(track.Artists, metadata.CleanTitle(artist.Name))
	}

	if track.Artist == "" {
		track.Artist = album.AlbumArtist
	}

	track.NormalizeArtists()

	return track
}

func tidalTrackTitle(raw *tidalTrack) string {
	title := metadata.CleanTitle(raw.Title)
	if raw.Version != "" {
		title += " (" + metadata.CleanTitle(raw.Version) + ")"
	}

	return title
}

// tidalQualityFromAudio derives the advertised quality tier from the audioQuality string.
func tidalQualityFromAudio(audioQuality string) uint8 {
	switch audioQuality {
	case "HI_RES", "HI_RES_LOSSLESS":
		return metadata.QualityHiRes
	case "LOSSLESS":
		return metadata.QualityCD
	case "HIGH":
		return metadata.QualityLossyHigh
	default:
		return metadata.QualityLossyLow
	}
}

// tidalCovers builds the artwork set from the cover UUID.
func tidalCovers(cover string) metadata.Covers {
	if cover == "" {
		return metadata.Covers{}
	}

	uuidPath := strings.ReplaceAll(cover, "-", "/")

	return metadata.Covers{
		Thumbnail: fmt.Sprintf(tidalCoverURLTemplate, uuidPath, "160x160"),
		Small:     fmt.Sprintf(tidalCoverURLTemplate, uuidPath, "320x320"),
		Large:     fmt.Sprintf(tidalCoverURLTemplate, uuidPath, "640x640"),
		Original:  fmt.Sprintf(tidalCoverURLTemplate, uuidPath, "1280x1280"),
	}
}
