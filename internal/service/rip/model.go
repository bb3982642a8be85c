package rip

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avoronov/ripstream/internal/client"
)

const (
	// Default filenames and values.
	defaultCoverBasename       = "cover"
	defaultAlbumCoverExtension = ".jpg"
	defaultPartExtension       = ".part"
	trackNumberPaddingWidth    = 2

	// variousArtistsName marks compilations in album-artist credits.
	variousArtistsName = "Various Artists"
)

// SkipReason represents why a track was skipped.
type SkipReason uint8

const (
	// SkipReasonExists - track file already exists or is recorded in the ledger.
	SkipReasonExists SkipReason = iota
	// SkipReasonQuality - requested quality unavailable and downgrading disabled.
	SkipReasonQuality
	// SkipReasonFiltered - release removed by a discovery filter.
	SkipReasonFiltered
)

// String returns a human-readable representation of the SkipReason.
func (sr SkipReason) String() string {
	switch sr {
	case SkipReasonExists:
		return "already exists"
	case SkipReasonQuality:
		return "quality unavailable"
	case SkipReasonFiltered:
		return "filtered out"
	default:
		return fmt.Sprintf("unknown reason: %d", sr)
	}
}

// DownloadItem represents one reference to resolve, including its provider,
// kind, and unique identifier.
type DownloadItem struct {
	// Source is the provider the reference belongs to.
	Source string
	// Kind is the type of content (track, album, artist, label, playlist, favorites).
	Kind client.Kind
	// ItemID is the unique identifier of the item.
	ItemID string
	// URL is the input the item was parsed from.
	URL string
	// ChildKind is the favorites child kind (track, album, artist, playlist),
	// set only when Kind is favorites.
	ChildKind client.Kind
}

// String returns a human-readable representation of the DownloadItem.
func (di DownloadItem) String() string {
	return fmt.Sprintf("source: %s, kind: %s, ID: %s", di.Source, di.Kind, di.ItemID)
}

// GetShortVersion converts a full DownloadItem into a ShortDownloadItem by stripping the URL.
func (di DownloadItem) GetShortVersion() ShortDownloadItem {
	return ShortDownloadItem{
		Source: di.Source,
		Kind:   di.Kind,
		ItemID: di.ItemID,
	}
}

// ShortDownloadItem is a lightweight version of DownloadItem used as a map key
// for deduplication and collection lookup.
type ShortDownloadItem struct {
	// Source is the provider the reference belongs to.
	Source string
	// Kind is the type of content.
	Kind client.Kind
	// ItemID is the unique identifier of the item.
	ItemID string
}

// audioCollection represents a container of tracks (album or playlist) with
// the filesystem and ledger context its tracks share.
type audioCollection struct {
	// kind indicates the type of collection (album or playlist).
	kind client.Kind
	// source is the provider the collection came from.
	source string
	// id is the provider-native collection identifier.
	id string
	// title is the collection name.
	title string
	// tags contains metadata key-value pairs shared by all tracks.
	tags map[string]string
	// tracksPath is the directory path where tracks will be saved.
	tracksPath string
	// coverPath is the file path of the downloaded cover art, empty when absent.
	coverPath string
	// tracksCount is the total number of tracks in the collection.
	tracksCount int64
	// remaining counts tracks that have not reached a terminal state yet.
	remaining atomic.Int64
	// failed counts tracks that ended in failure.
	failed atomic.Int64
	// group is the discography expansion this collection belongs to, nil for
	// releases the user referenced directly.
	group *collectionGroup
}

// collectionGroup tracks the termination of every album expanded from one
// artist or label. The parent is marked complete once all of its children
// have settled, regardless of per-album success: the album-level flag
// captures that finer state.
type collectionGroup struct {
	// kind is the parent kind (artist or label).
	kind client.Kind
	// source is the provider the expansion came from.
	source string
	// id is the provider-native artist or label identifier.
	id string
	// childCount is the number of albums that survived filtering.
	childCount int64
	// remaining counts albums that have not terminated yet.
	remaining atomic.Int64
}

// DownloadStatistics tracks metrics for a download session.
type DownloadStatistics struct {
	// StartTime is when the download session began.
	StartTime time.Time
	// EndTime is when the download session completed.
	EndTime time.Time
	// IsDryRun indicates if this was a dry-run preview.
	IsDryRun bool
	// TotalTracksProcessed is the total number of tracks attempted.
	TotalTracksProcessed int64
	// TracksDownloaded is the number of tracks successfully downloaded.
	TracksDownloaded int64
	// TracksSkipped is the total number of tracks skipped for any reason.
	TracksSkipped int64
	// TracksSkippedExists is the number of tracks skipped because they already exist.
	TracksSkippedExists int64
	// TracksSkippedQuality is the number of tracks skipped due to quality constraints.
	TracksSkippedQuality int64
	// TracksSkippedFiltered is the number of releases removed by discovery filters.
	TracksSkippedFiltered int64
	// TracksFailed is the number of tracks that failed to download.
	TracksFailed int64
	// TotalBytesDownloaded is the total size of downloaded content in bytes.
	TotalBytesDownloaded int64
	// CoversDownloaded is the number of cover art files downloaded.
	CoversDownloaded int64
	// CoversSkipped is the number of cover art files skipped (already exist).
	CoversSkipped int64
	// Errors is a list of all errors encountered during the download process.
	Errors []DownloadError
}

// DownloadError represents a single error that occurred during download.
type DownloadError struct {
	// Source is the provider the failed item belongs to.
	Source string
	// Kind is the type of item that failed.
	Kind client.Kind
	// ItemID is the unique identifier of the item that failed.
	ItemID string
	// ItemTitle is the human-readable title of the item.
	ItemTitle string
	// ItemURL is the input URL of the failed item, when known.
	ItemURL string
	// ErrorMessage is the error message.
	ErrorMessage string
	// Phase indicates when the error occurred (e.g., "fetching metadata", "downloading track").
	Phase string
	// ParentKind is the type of parent collection (album/playlist) for tracks.
	ParentKind client.Kind
	// ParentID is the ID of the parent collection.
	ParentID string
	// ParentTitle is the title of the parent collection.
	ParentTitle string
}
