package client

// Raw Tidal API payloads. Only the fields the mappers consume are declared.

type tidalSession struct {
	UserID      int64  `json:"userId"`
	CountryCode string `json:"countryCode"`
}

type tidalArtistRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type tidalAlbumRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Cover string `json:"cover"`
}

type tidalTrack struct {
	ID           int64            `json:"id"`
	Title        string           `json:"title"`
	Version      string           `json:"version"`
	TrackNumber  int              `json:"trackNumber"`
	VolumeNumber int              `json:"volumeNumber"`
	Explicit     bool             `json:"explicit"`
	StreamReady  bool             `json:"streamReady"`
	ISRC         string           `json:"isrc"`
	BPM          int              `json:"bpm"`
	ReplayGain   float64          `json:"replayGain"`
	AudioQuality string           `json:"audioQuality"`
	Artist       *tidalArtistRef  `json:"artist"`
	Artists      []tidalArtistRef `json:"artists"`
	Album        *tidalAlbumRef   `json:"album"`
}

type tidalTrackPage struct {
	Items              []*tidalTrack `json:"items"`
	TotalNumberOfItems int           `json:"totalNumberOfItems"`
}

type tidalAlbum struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	ReleaseDate     string          `json:"releaseDate"`
	Type            string          `json:"type"`
	Cover           string          `json:"cover"`
	UPC             string          `json:"upc"`
	Copyright       string          `json:"copyright"`
	Explicit        bool            `json:"explicit"`
	StreamReady     bool            `json:"streamReady"`
	AudioQuality    string          `json:"audioQuality"`
	NumberOfTracks  int             `json:"numberOfTracks"`
	NumberOfVolumes int             `json:"numberOfVolumes"`
	Artist          *tidalArtistRef `json:"artist"`
}

type tidalPlaylist struct {
	UUID           string `json:"uuid"`
	Title          string `json:"title"`
	NumberOfTracks int    `json:"numberOfTracks"`
}

type tidalPlaybackInfo struct {
	TrackID          int64  `json:"trackId"`
	AudioQuality     string `json:"audioQuality"`
	ManifestMimeType string `json:"manifestMimeType"`
	Manifest         string `json:"manifest"`
}

type tidalManifest struct {
	MimeType string   `json:"mimeType"`
	Codecs   string   `json:"codecs"`
	URLs     []string `json:"urls"`
}

// tidalSearchItem is the union of the fields track, album, and artist
// search entries can carry.
type tidalSearchItem struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Name     string          `json:"name"`
	URL      string          `json:"url"`
	Explicit bool            `json:"explicit"`
	Artist   *tidalArtistRef `json:"artist"`
}

type tidalSearchPage struct {
	Items []*tidalSearchItem `json:"items"`
}

type tidalFavoriteEntry struct {
	Item struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
		Name  string `json:"name"`
	} `json:"item"`
}

type tidalFavoritesPage struct {
	Items              []*tidalFavoriteEntry `json:"items"`
	TotalNumberOfItems int                   `json:"totalNumberOfItems"`
}

type tidalArtistGraphQLResponse struct {
	Artist *struct {
		Name   string `json:"name"`
		Albums struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		} `json:"albums"`
	} `json:"artist"`
}
