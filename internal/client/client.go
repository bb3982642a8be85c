package client

//go:generate $MOCKGEN -source=client.go -destination=mocks/client_mock.go

import (
	"context"

	"github.com/avoronov/ripstream/internal/metadata"
)

// Kind identifies what a reference points at.
type Kind string

// Reference kinds understood by the pipeline.
const (
	KindTrack     Kind = "track"
	KindAlbum     Kind = "album"
	KindArtist    Kind = "artist"
	KindLabel     Kind = "label"
	KindPlaylist  Kind = "playlist"
	KindFavorites Kind = "favorites"
)

// Client is the capability surface every provider adapter must implement.
// Implementations are required to be safe for concurrent use; the worker
// pool calls them from multiple goroutines.
type Client interface {
	// Source returns the provider name ("qobuz", "tidal", "deezer", "soundcloud").
	Source() string
	// Login establishes or verifies the session. It is idempotent.
	Login(ctx context.Context) error
	// GetTrack fetches and normalizes metadata for a single track,
	// including its album record.
	GetTrack(ctx context.Context, trackID string) (*metadata.Track, error)
	// GetAlbum fetches and normalizes album metadata including all tracks.
	GetAlbum(ctx context.Context, albumID string) (*metadata.Album, []*metadata.Track, error)
	// GetArtist fetches artist metadata with its enumerable discography.
	GetArtist(ctx context.Context, artistID string) (*metadata.Artist, error)
	// GetLabel fetches label metadata with its enumerable catalog.
	GetLabel(ctx context.Context, labelID string) (*metadata.Label, error)
	// GetPlaylist fetches playlist metadata with its track list.
	GetPlaylist(ctx context.Context, playlistID string) (*metadata.Playlist, error)
	// GetDownloadable obtains a download handle for a track at the chosen quality.
	// Adapters may internally fall back to an alternative track id on geo errors (one retry).
	GetDownloadable(ctx context.Context, trackID string, quality uint8, isRetry bool) (Downloadable, error)
	// Search returns matches for a query, at most limit entries.
	Search(ctx context.Context, kind Kind, query string, limit int) ([]*SearchResult, error)
	// GetUserFavorites lists the user's favorite items of the given kind
	// in the uniform items envelope.
	GetUserFavorites(ctx context.Context, kind Kind, userID string) ([]*FavoriteItem, error)
}
