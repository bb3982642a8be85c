package metadata

import (
	"errors"
	"strings"
)

// Container identifies the audio container format of a downloaded file.
type Container string

// Supported audio containers.
const (
	ContainerFLAC Container = "FLAC"
	ContainerMP4  Container = "MP4"
	ContainerMP3  Container = "MP3"
)

// Quality tiers, ordered by increasing fidelity.
const (
	// QualityLossyLow is low-bitrate lossy audio (~128 kbps).
	QualityLossyLow uint8 = 0
	// QualityLossyHigh is high-bitrate lossy audio (~320 kbps).
	QualityLossyHigh uint8 = 1
	// QualityCD is 16-bit/44.1kHz lossless audio.
	QualityCD uint8 = 2
	// QualityHiRes is 24-bit lossless audio.
	QualityHiRes uint8 = 3
)

// MediaTypeDigital is the media type recorded for all downloads.
const MediaTypeDigital = "Digital Media"

// QualityName returns a human-readable name for a quality tier.
func QualityName(quality uint8) string {
	switch quality {
	case QualityHiRes:
		return "Hi-Res (24-bit FLAC)"
	case QualityCD:
		return "CD (16-bit FLAC)"
	case QualityLossyHigh:
		return "lossy 320 kbps"
	default:
		return "lossy 128 kbps"
	}
}

// Static error definitions for better error handling.
var (
	// ErrInconsistentQuality indicates a quality tier and container combination
	// that violates the metadata invariants.
	ErrInconsistentQuality = errors.New("quality tier inconsistent with container")
	// ErrPrimaryArtistMismatch indicates that the primary artist is not the first contributor.
	ErrPrimaryArtistMismatch = errors.New("primary artist must equal first contributor")
)

// Covers is a multi-resolution set of album artwork URLs.
// Any field may be empty when the provider does not offer that size.
type Covers struct {
	// Thumbnail is the smallest artwork variant.
	Thumbnail string
	// Small is a medium-small artwork variant.
	Small string
	// Large is a large artwork variant.
	Large string
	// Original is the full-resolution artwork.
	Original string
}

// Largest returns the URL of the highest-resolution artwork available.
func (c *Covers) Largest() string {
	for _, u := range []string{c.Original, c.Large, c.Small, c.Thumbnail} {
		if u != "" {
			return u
		}
	}

	return ""
}

// Empty reports whether no artwork URL is present at all.
func (c *Covers) Empty() bool {
	return c.Largest() == ""
}

// AlbumInfo carries the technical facts of an album edition.
type AlbumInfo struct {
	// Quality is the advertised maximum quality tier.
	Quality uint8
	// Container is the audio container the provider serves at that tier.
	Container Container
	// BitDepth is the bit depth in bits, 0 when unknown or lossy.
	BitDepth int
	// SamplingRate is the sampling rate in Hz, 0 when unknown.
	SamplingRate int
	// Explicit marks editions carrying explicit content.
	Explicit bool
	// Streamable reports whether the provider will serve this album at all.
	Streamable bool
	// Booklets holds URLs of accompanying PDF booklets, if any.
	Booklets []string
}

// Album is the normalized, provider-agnostic album record.
// It is shared between the album aggregate and every track it spawns;
// mutation happens only during enrichment, before any track is enqueued.
type Album struct {
	// Info carries the technical facts of this edition.
	Info AlbumInfo
	// ID is the provider-native album identifier.
	ID string
	// Title is the album title.
	Title string
	// AlbumArtist is the album-level artist credit.
	AlbumArtist string
	// Year is the release year.
	Year int
	// Date is the full release date in ISO form when known.
	Date string
	// Genres is the ordered genre list.
	Genres []string
	// Covers is the multi-resolution artwork set.
	Covers Covers
	// TrackTotal is the number of tracks on the album.
	TrackTotal int
	// DiscTotal is the number of discs.
	DiscTotal int
	// Label is the publishing label, if known.
	Label string
	// Copyright is the copyright line, if known.
	Copyright string
	// Description is the provider's album description, if any.
	Description string
	// Barcode is the UPC/EAN, if known.
	Barcode string
	// ReleaseType distinguishes album/single/EP/compilation when the provider reports it.
	ReleaseType string
	// MediaType is always "Digital Media" for downloads.
	MediaType string
	// OriginalDate is the first-release date for reissues, if known.
	OriginalDate string
	// SourcePlatform is the provider name this record came from.
	SourcePlatform string
	// SourceAlbumID is the provider-native album identifier.
	SourceAlbumID string
	// SourceArtistID is the provider-native artist identifier, if known.
	SourceArtistID string
	// RYMDescriptors holds mood/style descriptors merged in by enrichment.
	RYMDescriptors []string
}

// Validate checks the album record against the model invariants.
func (a *Album) Validate() error {
	switch {
	case a.Info.Quality == QualityHiRes && (a.Info.Container != ContainerFLAC || a.Info.BitDepth != 24):
		return ErrInconsistentQuality
	case a.Info.Quality == QualityCD && (a.Info.Container != ContainerFLAC || a.Info.BitDepth != 16):
		return ErrInconsistentQuality
	case a.Info.Quality < QualityCD && a.Info.Container == ContainerFLAC:
		return ErrInconsistentQuality
	}

	return nil
}

// InfoForQuality returns the container and bit depth implied by a quality tier.
// Lossy tiers get the given lossy container (MP3 or MP4).
func InfoForQuality(quality uint8, lossyContainer Container) (Container, int) {
	switch quality {
	case QualityHiRes:
		return ContainerFLAC, 24
	case QualityCD:
		return ContainerFLAC, 16
	default:
		return lossyContainer, 0
	}
}

// TrackInfo carries the technical facts of a single track.
type TrackInfo struct {
	// ID is the provider-native track identifier.
	ID string
	// Quality is the selected quality tier, at most the album's advertised tier.
	Quality uint8
	// Streamable reports whether the provider will serve this track.
	Streamable bool
	// BitDepth is the bit depth in bits, 0 when unknown or lossy.
	BitDepth int
	// SamplingRate is the sampling rate in Hz, 0 when unknown.
	SamplingRate int
	// Explicit marks tracks carrying explicit content.
	Explicit bool
	// Work is the classical work this track belongs to, if any.
	Work string
	// Container is the actual container of the obtained file.
	// Set from the Downloadable's extension after the handle is fetched,
	// because container reality may differ from the advertised one.
	Container Container
}

// Track is the normalized, provider-agnostic track record.
type Track struct {
	// Info carries the technical facts of this track.
	Info TrackInfo
	// Title is the track title.
	Title string
	// Album references the shared album record.
	Album *Album
	// Artist is the primary artist credit.
	Artist string
	// Artists lists all contributors; when non-empty, the first equals Artist.
	Artists []string
	// TrackNumber is the 1-based position on its disc.
	TrackNumber int
	// DiscNumber is the 1-based disc index.
	DiscNumber int
	// Composer lists composer credits, if known.
	Composer []string
	// Author lists author credits, if known.
	Author []string
	// ISRC is the international recording code, if known.
	ISRC string
	// Lyrics is the plain-text lyrics, if available.
	Lyrics string
	// SourcePlatform is the provider name this record came from.
	SourcePlatform string
	// SourceTrackID is the provider-native track identifier.
	SourceTrackID string
	// SourceAlbumID is the provider-native album identifier.
	SourceAlbumID string
	// SourceArtistID is the provider-native artist identifier, if known.
	SourceArtistID string
	// BPM is the tempo, 0 when unknown.
	BPM int
	// ReplayGainTrack is the track replay gain in dB, if known.
	ReplayGainTrack float64
	// MediaType is always "Digital Media" for downloads.
	MediaType string
}

// Validate checks the track record against the model invariants.
func (t *Track) Validate() error {
	if len(t.Artists) > 0 && t.Artists[0] != t.Artist {
		return ErrPrimaryArtistMismatch
	}

	return nil
}

// NormalizeArtists ensures the primary artist equals the first contributor,
// deriving one side from the other when only one is present.
func (t *Track) NormalizeArtists() {
	if t.Artist == "" && len(t.Artists) > 0 {
		t.Artist = t.Artists[0]
	}

	if t.Artist != "" && len(t.Artists) == 0 {
		t.Artists = []string{t.Artist}
	}

	if len(t.Artists) > 0 && t.Artists[0] != t.Artist {
		t.Artists = append([]string{t.Artist}, t.Artists...)
	}
}

// Artist is a normalized artist record with its enumerable discography.
type Artist struct {
	// ID is the provider-native artist identifier.
	ID string
	// Name is the artist name.
	Name string
	// AlbumIDs lists the provider-native IDs of the artist's albums.
	AlbumIDs []string
	// SourcePlatform is the provider name this record came from.
	SourcePlatform string
}

// Label is a normalized label record with its enumerable catalog.
type Label struct {
	// ID is the provider-native label identifier.
	ID string
	// Name is the label name.
	Name string
	// AlbumIDs lists the provider-native IDs of the label's releases.
	AlbumIDs []string
	// SourcePlatform is the provider name this record came from.
	SourcePlatform string
}

// Playlist is a normalized playlist record.
type Playlist struct {
	// ID is the provider-native playlist identifier.
	ID string
	// Title is the playlist title.
	Title string
	// TrackIDs lists the provider-native track IDs in playlist order.
	TrackIDs []string
	// SourcePlatform is the provider name this record came from.
	SourcePlatform string
}

// CleanTitle trims whitespace and collapses inner runs of spaces,
// the minimal normalization every mapper applies to free-text fields.
func CleanTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
