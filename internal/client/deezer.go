package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
)

const (
	// SourceDeezer is the provider name of the Deezer adapter.
	SourceDeezer = "deezer"

	// deezerAPIBaseURL is the public Deezer API root.
	deezerAPIBaseURL = "https://api.deezer.com"
	// deezerGatewayURL is the private gateway used for session and stream data.
	deezerGatewayURL = "https://www.deezer.com/ajax/gw-light.php"
	// deezerMediaURL is the media endpoint resolving track tokens into stream URLs.
	deezerMediaURL = "https://media.deezer.com/v1/get_url"

	// deezerPageSize is the page size for catalog listings.
	deezerPageSize = 100
)

// deezerFormats maps quality tiers to gateway format names, best first.
//
//nolint:gochecknoglobals // Immutable lookup table.
var deezerFormats = map[uint8]string{
	metadata.QualityLossyLow:  "MP3_128",
	metadata.QualityLossyHigh: "MP3_320",
	metadata.QualityCD:        "FLAC",
}

// DeezerClient implements the Client interface for the Deezer API.
// Metadata comes from the public API; stream URLs require the private
// gateway session established at login from the ARL token.
type DeezerClient struct {
	// cfg is the per-provider configuration section.
	cfg *config.SourceConfig
	// rest is the shared HTTP plumbing for the public API.
	rest *restClient
	// apiToken is the gateway CSRF token learned at login.
	apiToken string
	// licenseToken is the media-endpoint license learned at login.
	licenseToken string
}

var _ Client = (*DeezerClient)(nil)

// NewDeezerClient creates a Deezer adapter from its configuration section.
func NewDeezerClient(cfg *config.SourceConfig) *DeezerClient {
	return &DeezerClient{
		cfg: cfg,
		rest: newRESTClient(deezerAPIBaseURL, map[string]string{
			"Cookie": "arl=" + cfg.Token,
		}),
	}
}

// Source returns the provider name.
func (c *DeezerClient) Source() string {
	return SourceDeezer
}

// Login establishes the gateway session from the ARL token. It is idempotent.
func (c *DeezerClient) Login(ctx context.Context) error {
	if c.cfg.Token == "" {
		return fmt.Errorf("%w: deezer requires an arl token", ErrMissingCredentials)
	}

	var response deezerGatewayResponse[deezerUserData]
	if err := c.callGateway(ctx, "deezer.getUserData", "null", nil, &response); err != nil {
		return fmt.Errorf("deezer login failed: %w", err)
	}

	if response.Results.User.ID == 0 {
		return fmt.Errorf("%w: deezer rejected the arl token", ErrAuth)
	}

	c.apiToken = response.Results.CheckForm
	c.licenseToken = response.Results.User.Options.LicenseToken

	logger.Debugf(ctx, "Logged into Deezer as user %d", response.Results.User.ID)

	return nil
}

// GetTrack fetches and normalizes metadata for a single track.
func (c *DeezerClient) GetTrack(ctx context.Context, trackID string) (*metadata.Track, error) {
	raw, err := fetchJSON[deezerTrack](c.rest, ctx, "track/"+trackID, nil)
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

	return normalizeDeezerTrack(raw, album), nil
}

// GetAlbum fetches and normalizes album metadata including all tracks.
func (c *DeezerClient) GetAlbum(ctx context.Context, albumID string) (*metadata.Album, []*metadata.Track, error) {
	raw, err := fetchJSON[deezerAlbum](c.rest, ctx, "album/"+albumID, nil)
	if err != nil {
		return nil, nil, err
	}

	album := normalizeDeezerAlbum(raw)
	tracks := make([]*metadata.Track, 0, len(raw.Tracks.Data))

	for _, rawTrack := range raw.Tracks.Data {
		tracks = append(tracks, normalizeDeezerTrack(rawTrack, album))
	}

	return album, tracks, nil
}

// GetArtist fetches artist metadata with its enumerable discography.
func (c *DeezerClient) GetArtist(ctx context.Context, artistID string) (*metadata.Artist, error) {
	rawArtist, err := fetchJSON[deezerArtist](c.rest, ctx, "artist/"+artistID, nil)
	if err != nil {
		return nil, err
	}

	artist := &metadata.Artist{
		ID:             artistID,
		Name:           metadata.CleanTitle(rawArtist.Name),
		SourcePlatform: SourceDeezer,
	}

	for index := 0; ; index += deezerPageSize {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(deezerPageSize))
		query.Set("index", strconv.Itoa(index))

		page, err := fetchJSON[deezerAlbumPage](c.rest, ctx, "artist/"+artistID+"/albums", query)
		if err != nil {
			return nil, err
		}

		for _, album := range page.Data {
			artist.AlbumIDs = append(artist.AlbumIDs, strconv.FormatInt(album.ID, 10))
		}

		if len(page.Data) < deezerPageSize {
			break
		}
	}

	return artist, nil
}

// GetLabel is not supported: Deezer has no label catalog endpoint.
func (c *DeezerClient) GetLabel(_ context.Context, _ string) (*metadata.Label, error) {
	return nil, fmt.Errorf("%w: deezer labels", ErrUnsupportedKind)
}

// GetPlaylist fetches playlist metadata with its track list.
func (c *DeezerClient) GetPlaylist(ctx context.Context, playlistID string) (*metadata.Playlist, error) {
	raw, err := fetchJSON[deezerPlaylist](c.rest, ctx, "playlist/"+playlistID, nil)
	if err != nil {
		return nil, err
	}

	playlist := &metadata.Playlist{
		ID:             playlistID,
		Title:          metadata.CleanTitle(raw.Title),
		SourcePlatform: SourceDeezer,
	}

	for _, track := range raw.Tracks.Data {
		playlist.TrackIDs = append(playlist.TrackIDs, strconv.FormatInt(track.ID, 10))
	}

	return playlist, nil
}

// GetDownloadable resolves a stream URL for the best available format
// at or below the chosen quality tier.
func (c *DeezerClient) GetDownloadable(
	ctx context.Context,
	trackID string,
	quality uint8,
	isRetry bool,
) (Downloadable, error) {
	if quality > metadata.QualityCD {
		quality = metadata.QualityCD
	}

	var songResponse deezerGatewayResponse[deezerSongData]

	payload := fmt.Sprintf(`{"SNG_ID":"%s"}`, trackID)
	if err := c.callGateway(ctx, "song.getData", payload, nil, &songResponse); err != nil {
		return nil, err
	}

	song := songResponse.Results

	// Geo-restricted tracks carry a fallback id pointing at an equivalent asset.
	if song.TrackToken == "" {
		if !isRetry && song.Fallback != nil && song.Fallback.SNGID != "" {
			logger.Infof(ctx, "Deezer track %s is unavailable, retrying via fallback id %s", trackID, song.Fallback.SNGID)

			return c.GetDownloadable(ctx, song.Fallback.SNGID, quality, true)
		}

		return nil, fmt.Errorf("%w: track %s", ErrNotStreamable, trackID)
	}

	format, ok := c.bestAvailableFormat(song, quality)
	if !ok {
		return nil, fmt.Errorf("%w: track %s", ErrQualityUnavailable, trackID)
	}

	streamURL, err := c.resolveMediaURL(ctx, song.TrackToken, format)
	if err != nil {
		return nil, err
	}

	extension := "mp3"
	if format == "FLAC" {
		extension = "flac"
	}

	return NewHTTPDownloadable(c.rest.httpClient, streamURL, extension, SourceDeezer, nil), nil
}

// Search returns catalog matches for a query.
func (c *DeezerClient) Search(ctx context.Context, kind Kind, query string, limit int) ([]*SearchResult, error) {
	searchPath, ok := map[Kind]string{
		KindTrack:  "search/track",
		KindAlbum:  "search/album",
		KindArtist: "search/artist",
	}[kind]
	if !ok {
		return nil, fmt.Errorf("%w: deezer search for '%s'", ErrUnsupportedKind, kind)
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	raw, err := fetchJSON[deezerSearchPage](c.rest, ctx, searchPath, q)
	if err != nil {
		return nil, err
	}

	results := make([]*SearchResult, 0, len(raw.Data))

	for _, item := range raw.Data {
		result := &SearchResult{
			Kind:     kind,
			ID:       strconv.FormatInt(item.ID, 10),
			Title:    metadata.CleanTitle(item.Title),
			Explicit: item.ExplicitLyrics,
			Source:   SourceDeezer,
			URL:      item.Link,
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
func (c *DeezerClient) GetUserFavorites(ctx context.Context, kind Kind, userID string) ([]*FavoriteItem, error) {
	favoritePath, ok := map[Kind]string{
		KindTrack:  "tracks",
		KindAlbum:  "albums",
		KindArtist: "artists",
	}[kind]
	if !ok {
		return nil, fmt.Errorf("%w: deezer favorites of '%s'", ErrUnsupportedKind, kind)
	}

	raw, err := fetchJSON[deezerSearchPage](c.rest, ctx, "user/"+userID+"/"+favoritePath, nil)
	if err != nil {
		return nil, err
	}

	items := make([]*FavoriteItem, 0, len(raw.Data))

	for _, entry := range raw.Data {
		title := entry.Title
		if kind == KindArtist {
			title = entry.Name
		}

		items = append(items, &FavoriteItem{
			ID:    strconv.FormatInt(entry.ID, 10),
			Kind:  kind,
			Title: metadata.CleanTitle(title),
		})
	}

	return items, nil
}

// bestAvailableFormat picks the highest format at or below the requested tier
// that the gateway reports a non-zero size for.
func (c *DeezerClient) bestAvailableFormat(song deezerSongData, quality uint8) (string, bool) {
	sizes := map[string]int64{
		"FLAC":    song.FilesizeFLAC,
		"MP3_320": song.FilesizeMP3320,
		"MP3_128": song.FilesizeMP3128,
	}

	for tier := int(quality); tier >= 0; tier-- {
		format := deezerFormats[uint8(tier)] //nolint:gosec // tier is bounded by quality, 0..2.
		if sizes[format] > 0 {
			return format, true
		}
	}

	return "", false
}

func (c *DeezerClient) resolveMediaURL(ctx context.Context, trackToken, format string) (string, error) {
	requestBody, err := json.Marshal(deezerMediaRequest{
		LicenseToken: c.licenseToken,
		TrackTokens:  []string{trackToken},
		Media: []deezerMediaSpec{{
			Type:    "FULL",
			Formats: []deezerMediaFormat{{Cipher: "BF_CBC_STRIPE", Format: format}},
		}},
	})
	if err != nil {
		return "", err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, deezerMediaURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", err
	}

	request.Header.Set("Cookie", "arl="+c.cfg.Token)

	response, err := c.rest.httpClient.Do(request)
	if err != nil {
		return "", err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	var mediaResponse deezerMediaResponse
	if err = json.NewDecoder(response.Body).Decode(&mediaResponse); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedResponseFormat, err)
	}

	if len(mediaResponse.Data) == 0 ||
		len(mediaResponse.Data[0].Media) == 0 ||
		len(mediaResponse.Data[0].Media[0].Sources) == 0 {
		return "", fmt.Errorf("%w: empty media response", ErrNotStreamable)
	}

	return mediaResponse.Data[0].Media[0].Sources[0].URL, nil
}

func (c *DeezerClient) callGateway(
	ctx context.Context,
	method, payload string,
	query url.Values,
	out any,
) error {
	if query == nil {
		query = url.Values{}
	}

	query.Set("method", method)
	query.Set("input", "3")
	query.Set("api_version", "1.0")
	query.Set("api_token", c.apiToken)

	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, deezerGatewayURL+"?"+query.Encode(), bytes.NewReader([]byte(payload)))
	if err != nil {
		return err
	}

	request.Header.Set("Cookie", "arl="+c.cfg.Token)

	response, err := c.rest.httpClient.Do(request)
	if err != nil {
		return err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	if err = json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponseFormat, err)
	}

	return nil
}

// normalizeDeezerAlbum maps a raw album payload onto the uniform model.
// Deezer advertises CD-lossless as its catalog ceiling.
func normalizeDeezerAlbum(raw *deezerAlbum) *metadata.Album {
	container, bitDepth := metadata.InfoForQuality(metadata.QualityCD, metadata.ContainerMP3)

	album := &metadata.Album{
		Info: metadata.AlbumInfo{
			Quality:      metadata.QualityCD,
			Container:    container,
			BitDepth:     bitDepth,
			SamplingRate: 44100,
			Explicit:     raw.ExplicitLyrics,
			Streamable:   true,
		},
		ID:             strconv.FormatInt(raw.ID, 10),
		Title:          metadata.CleanTitle(raw.Title),
		Year:           yearFromDate(raw.ReleaseDate),
		Date:           raw.ReleaseDate,
		Covers: metadata.Covers{
			Thumbnail: raw.CoverSmall,
			Small:     raw.CoverMedium,
			Large:     raw.CoverBig,
			Original:  raw.CoverXL,
		},
		TrackTotal:     raw.NBTracks,
		DiscTotal:      1,
		Label:          raw.Label,
		Barcode:        raw.UPC,
		ReleaseType:    raw.RecordType,
		MediaType:      metadata.MediaTypeDigital,
		SourcePlatform: SourceDeezer,
		SourceAlbumID:  strconv.FormatInt(raw.ID, 10),
	}

	if raw.Artist != nil {
		album.AlbumArtist = metadata.CleanTitle(raw.Artist.Name)
		album.SourceArtistID = strconv.FormatInt(raw.Artist.ID, 10)
	}

	if raw.Genres != nil {
		for _, genre := range raw.Genres.Data {
			album.Genres = append(album.Genres, genre.Name)
		}
	}

	return album
}

// normalizeDeezerTrack maps a raw track payload onto the uniform model.
func normalizeDeezerTrack(raw *deezerTrack, album *metadata.Album) *metadata.Track {
	track := &metadata.Track{
		Info: metadata.TrackInfo{
			ID:         strconv.FormatInt(raw.ID, 10),
			Quality:    album.Info.Quality,
			Streamable: raw.Readable,
			Explicit:   raw.ExplicitLyrics,
		},
		Title:           metadata.CleanTitle(raw.Title),
		Album:           album,
		TrackNumber:     raw.TrackPosition,
		DiscNumber:      raw.DiskNumber,
		ISRC:            raw.ISRC,
		SourcePlatform:  SourceDeezer,
		SourceTrackID:   strconv.FormatInt(raw.ID, 10),
		SourceAlbumID:   album.SourceAlbumID,
		SourceArtistID:  album.SourceArtistID,
		BPM:             int(raw.BPM),
		ReplayGainTrack: raw.Gain,
		MediaType:       metadata.MediaTypeDigital,
	}

	if raw.DiskNumber == 0 {
		track.DiscNumber = 1
	}

	if raw.Artist != nil {
		track.Artist = metadata.CleanTitle(raw.Artist.Name)
	}

	for _, contributor := range raw.Contributors {
		track.Artists = append(track.Artists, metadata.CleanTitle(contributor.Name))
	}

	if track.Artist == "" {
		track.Artist = album.AlbumArtist
	}

	track.NormalizeArtists()

	return track
}
