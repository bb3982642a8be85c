package client

import "encoding/json"

// Raw Deezer payloads, public API and private gateway.
// Only the fields the mappers consume are declared.

type deezerArtistRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type deezerAlbumRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type deezerGenreList struct {
	Data []struct {
		Name string `json:"name"`
	} `json:"data"`
}

type deezerTrack struct {
	ID             int64             `json:"id"`
	Title          string            `json:"title"`
	TrackPosition  int               `json:"track_position"`
	DiskNumber     int               `json:"disk_number"`
	Readable       bool              `json:"readable"`
	ExplicitLyrics bool              `json:"explicit_lyrics"`
	ISRC           string            `json:"isrc"`
	BPM            float64           `json:"bpm"`
	Gain           float64           `json:"gain"`
	Artist         *deezerArtistRef  `json:"artist"`
	Contributors   []deezerArtistRef `json:"contributors"`
	Album          *deezerAlbumRef   `json:"album"`
}

type deezerTrackList struct {
	Data []*deezerTrack `json:"data"`
}

type deezerAlbum struct {
	ID             int64            `json:"id"`
	Title          string           `json:"title"`
	UPC            string           `json:"upc"`
	Label          string           `json:"label"`
	ReleaseDate    string           `json:"release_date"`
	RecordType     string           `json:"record_type"`
	ExplicitLyrics bool             `json:"explicit_lyrics"`
	NBTracks       int              `json:"nb_tracks"`
	CoverSmall     string           `json:"cover_small"`
	CoverMedium    string           `json:"cover_medium"`
	CoverBig       string           `json:"cover_big"`
	CoverXL        string           `json:"cover_xl"`
	Artist         *deezerArtistRef `json:"artist"`
	Genres         *deezerGenreList `json:"genres"`
	Tracks         deezerTrackList  `json:"tracks"`
}

type deezerAlbumPage struct {
	Data []struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

type deezerArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type deezerPlaylist struct {
	ID     int64           `json:"id"`
	Title  string          `json:"title"`
	Tracks deezerTrackList `json:"tracks"`
}

// deezerSearchItem is the union of track, album, and artist entry fields.
type deezerSearchItem struct {
	ID             int64            `json:"id"`
	Title          string           `json:"title"`
	Name           string           `json:"name"`
	Link           string           `json:"link"`
	ExplicitLyrics bool             `json:"explicit_lyrics"`
	Artist         *deezerArtistRef `json:"artist"`
}

type deezerSearchPage struct {
	Data []*deezerSearchItem `json:"data"`
}

type deezerGatewayResponse[T any] struct {
	Error   json.RawMessage `json:"error"`
	Results T               `json:"results"`
}

type deezerUserData struct {
	User struct {
		ID      int64 `json:"USER_ID"`
		Options struct {
			LicenseToken string `json:"license_token"`
		} `json:"OPTIONS"`
	} `json:"USER"`
	CheckForm string `json:"checkForm"`
}

type deezerSongFallback struct {
	SNGID string `json:"SNG_ID"`
}

type deezerSongData struct {
	SNGID          string              `json:"SNG_ID"`
	TrackToken     string              `json:"TRACK_TOKEN"`
	FilesizeFLAC   int64               `json:"FILESIZE_FLAC,string"`
	FilesizeMP3320 int64               `json:"FILESIZE_MP3_320,string"`
	FilesizeMP3128 int64               `json:"FILESIZE_MP3_128,string"`
	Fallback       *deezerSongFallback `json:"FALLBACK"`
}

type deezerMediaFormat struct {
	Cipher string `json:"cipher"`
	Format string `json:"format"`
}

type deezerMediaSpec struct {
	Type    string              `json:"type"`
	Formats []deezerMediaFormat `json:"formats"`
}

type deezerMediaRequest struct {
	LicenseToken string            `json:"license_token"`
	TrackTokens  []string          `json:"track_tokens"`
	Media        []deezerMediaSpec `json:"media"`
}

type deezerMediaResponse struct {
	Data []struct {
		Media []struct {
			Sources []struct {
				URL string `json:"url"`
			} `json:"sources"`
		} `json:"media"`
	} `json:"data"`
}
