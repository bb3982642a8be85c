package rip

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avoronov/ripstream/internal/metadata"
)

// Tag map keys shared by the templates and the tag writers.
const (
	tagAlbumArtist    = "albumArtist"
	tagAlbumTitle     = "albumTitle"
	tagAlbumID        = "albumID"
	tagAlbumGenre     = "albumGenre"
	tagBarcode        = "barcode"
	tagCopyright      = "copyright"
	tagDiscNumber     = "discNumber"
	tagDiscTotal      = "discTotal"
	tagRecordLabel    = "recordLabel"
	tagReleaseDate    = "releaseDate"
	tagReleaseYear    = "releaseYear"
	tagSourcePlatform = "sourcePlatform"
	tagTrackArtist    = "trackArtist"
	tagTrackArtists   = "trackArtists"
	tagTrackBPM       = "trackBPM"
	tagTrackComposer  = "trackComposer"
	tagTrackGenre     = "trackGenre"
	tagTrackID        = "trackID"
	tagTrackISRC      = "trackISRC"
	tagTrackLyrics    = "trackLyrics"
	tagTrackNumber    = "trackNumber"
	tagTrackNumberPad = "trackNumberPad"
	tagTrackTitle     = "trackTitle"
	tagTrackTotal     = "trackCount"
	tagTrackWork      = "trackWork"
	tagMediaType      = "mediaType"
	tagSourceArtistID = "sourceArtistID"
	tagRYMDescriptors = "rymDescriptors"
)

// artistJoinSeparator joins multi-artist credits in a single tag value.
const artistJoinSeparator = ", "

// fillAlbumTags builds the collection-level tag map shared by every track of
// a release.
func fillAlbumTags(album *metadata.Album) map[string]string {
	tags := map[string]string{
		tagAlbumArtist:    album.AlbumArtist,
		tagAlbumTitle:     album.Title,
		tagAlbumID:        album.ID,
		tagAlbumGenre:     strings.Join(album.Genres, ", "),
		tagBarcode:        album.Barcode,
		tagCopyright:      album.Copyright,
		tagDiscTotal:      strconv.Itoa(album.DiscTotal),
		tagRecordLabel:    album.Label,
		tagReleaseDate:    album.Date,
		tagSourcePlatform: album.SourcePlatform,
		tagTrackTotal:     strconv.Itoa(album.TrackTotal),
		tagMediaType:      metadata.MediaTypeDigital,
		tagSourceArtistID: album.SourceArtistID,
		tagRYMDescriptors: strings.Join(album.RYMDescriptors, "; "),
	}

	if album.Year > 0 {
		tags[tagReleaseYear] = strconv.Itoa(album.Year)
	} else {
		tags[tagReleaseYear] = ""
	}

	return tags
}

// fillTrackTags extends the collection tag map with per-track values.
// trackNumber overrides the album position for playlist ordering; pass 0 to
// keep the track's own number.
func fillTrackTags(
	albumTags map[string]string,
	track *metadata.Track,
	trackNumber int,
) map[string]string {
	tags := make(map[string]string, len(albumTags)+16)
	for key, value := range albumTags {
		tags[key] = value
	}

	if trackNumber <= 0 {
		trackNumber = track.TrackNumber
	}

	tags[tagTrackTitle] = track.Title
	tags[tagTrackArtist] = track.Artist
	tags[tagTrackArtists] = strings.Join(track.Artists, artistJoinSeparator)
	tags[tagTrackID] = track.SourceTrackID
	tags[tagTrackISRC] = track.ISRC
	tags[tagTrackLyrics] = track.Lyrics
	tags[tagTrackNumber] = strconv.Itoa(trackNumber)
	tags[tagTrackNumberPad] = fmt.Sprintf("%0*d", trackNumberPaddingWidth, trackNumber)
	tags[tagTrackComposer] = strings.Join(track.Composer, artistJoinSeparator)
	tags[tagTrackWork] = track.Info.Work
	tags[tagDiscNumber] = strconv.Itoa(track.DiscNumber)

	if track.BPM > 0 {
		tags[tagTrackBPM] = strconv.Itoa(track.BPM)
	}

	// Genre lives on the album for every provider in this corpus.
	tags[tagTrackGenre] = albumTags[tagAlbumGenre]

	return tags
}
