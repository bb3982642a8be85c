package client

// Raw SoundCloud v2 API payloads. Only the fields the mappers consume are declared.

type soundcloudUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type soundcloudTranscoding struct {
	URL    string `json:"url"`
	Format struct {
		Protocol string `json:"protocol"`
		MimeType string `json:"mime_type"`
	} `json:"format"`
}

type soundcloudMedia struct {
	Transcodings []soundcloudTranscoding `json:"transcodings"`
}

type soundcloudTrack struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Genre        string          `json:"genre"`
	Description  string          `json:"description"`
	CreatedAt    string          `json:"created_at"`
	ArtworkURL   string          `json:"artwork_url"`
	PermalinkURL string          `json:"permalink_url"`
	Streamable   bool            `json:"streamable"`
	User         *soundcloudUser `json:"user"`
	Media        soundcloudMedia `json:"media"`
}

type soundcloudTrackPage struct {
	Collection []*soundcloudTrack `json:"collection"`
	NextHref   string             `json:"next_href"`
}

type soundcloudPlaylist struct {
	ID         int64              `json:"id"`
	Title      string             `json:"title"`
	IsAlbum    bool               `json:"is_album"`
	CreatedAt  string             `json:"created_at"`
	ArtworkURL string             `json:"artwork_url"`
	User       *soundcloudUser    `json:"user"`
	Tracks     []*soundcloudTrack `json:"tracks"`
}

type soundcloudResolved struct {
	ID   int64  `json:"id"`
	Kind string `json:"kind"`
}

type soundcloudStream struct {
	URL string `json:"url"`
}
