package client

// Raw Qobuz API payloads. Only the fields the mappers consume are declared.

type qobuzUser struct {
	// ID is the numeric user identifier.
	ID int64 `json:"id"`
	// Credential carries the subscription description.
	Credential struct {
		Description string `json:"description"`
	} `json:"credential"`
}

type qobuzArtistRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type qobuzLabelRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type qobuzGenre struct {
	Name string `json:"name"`
}

type qobuzImage struct {
	Thumbnail string `json:"thumbnail"`
	Small     string `json:"small"`
	Large     string `json:"large"`
}

type qobuzAudioInfo struct {
	ReplayGainTrack float64 `json:"replaygain_track_gain"`
}

type qobuzTrack struct {
	ID                  int64           `json:"id"`
	Title               string          `json:"title"`
	Version             string          `json:"version"`
	Work                string          `json:"work"`
	TrackNumber         int             `json:"track_number"`
	MediaNumber         int             `json:"media_number"`
	MaximumBitDepth     int             `json:"maximum_bit_depth"`
	MaximumSamplingRate float64         `json:"maximum_sampling_rate"`
	ParentalWarning     bool            `json:"parental_warning"`
	Streamable          bool            `json:"streamable"`
	ISRC                string          `json:"isrc"`
	Performer           *qobuzArtistRef `json:"performer"`
	Composer            *qobuzArtistRef `json:"composer"`
	AudioInfo           qobuzAudioInfo  `json:"audio_info"`
	Album               *qobuzAlbum     `json:"album"`
}

type qobuzTrackList struct {
	Items []*qobuzTrack `json:"items"`
}

type qobuzAlbum struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	ReleaseDateOriginal string          `json:"release_date_original"`
	ReleaseType         string          `json:"release_type"`
	MaximumBitDepth     int             `json:"maximum_bit_depth"`
	MaximumSamplingRate float64         `json:"maximum_sampling_rate"`
	ParentalWarning     bool            `json:"parental_warning"`
	Streamable          bool            `json:"streamable"`
	TracksCount         int             `json:"tracks_count"`
	MediaCount          int             `json:"media_count"`
	UPC                 string          `json:"upc"`
	Copyright           string          `json:"copyright"`
	Description         string          `json:"description"`
	Artist              *qobuzArtistRef `json:"artist"`
	Label               *qobuzLabelRef  `json:"label"`
	Genre               *qobuzGenre     `json:"genre"`
	Image               qobuzImage      `json:"image"`
	Tracks              qobuzTrackList  `json:"tracks"`
}

type qobuzAlbumList struct {
	Items []*qobuzAlbum `json:"items"`
}

type qobuzArtist struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Albums qobuzAlbumList `json:"albums"`
}

type qobuzLabel struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Albums qobuzAlbumList `json:"albums"`
}

type qobuzPlaylist struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Tracks qobuzTrackList `json:"tracks"`
}

type qobuzFileURL struct {
	URL             string `json:"url"`
	MimeType        string `json:"mime_type"`
	FormatID        int    `json:"format_id"`
	Sample          bool   `json:"sample"`
	RestrictionCode string `json:"restriction_code"`
}

type qobuzSearchResponse struct {
	Tracks qobuzTrackList `json:"tracks"`
	Albums qobuzAlbumList `json:"albums"`
}

type qobuzFavoritesResponse struct {
	Tracks qobuzTrackList `json:"tracks"`
	Albums qobuzAlbumList `json:"albums"`
	Artists struct {
		Items []*qobuzArtistRef `json:"items"`
	} `json:"artists"`
}
