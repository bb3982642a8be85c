package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/metadata"
)

// TestDeezerBestAvailableFormat tests the downgrade ladder against the
// per-format sizes the gateway reports.
func TestDeezerBestAvailableFormat(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		song           deezerSongData
		quality        uint8
		expectedFormat string
		expectedOK     bool
	}{
		{
			name:           "flac available at requested tier",
			song:           deezerSongData{FilesizeFLAC: 30_000_000, FilesizeMP3320: 9_000_000, FilesizeMP3128: 4_000_000},
			quality:        metadata.QualityCD,
			expectedFormat: "FLAC",
			expectedOK:     true,
		},
		{
			name:           "flac missing falls back to mp3 320",
			song:           deezerSongData{FilesizeMP3320: 9_000_000, FilesizeMP3128: 4_000_000},
			quality:        metadata.QualityCD,
			expectedFormat: "MP3_320",
			expectedOK:     true,
		},
		{
			name:           "requested tier caps the ladder",
			song:           deezerSongData{FilesizeFLAC: 30_000_000, FilesizeMP3128: 4_000_000},
			quality:        metadata.QualityLossyHigh,
			expectedFormat: "MP3_128",
			expectedOK:     true,
		},
		{
			name:       "nothing available",
			song:       deezerSongData{},
			quality:    metadata.QualityCD,
			expectedOK: false,
		},
	}

	client := NewDeezerClient(&config.SourceConfig{})

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			format, ok := client.bestAvailableFormat(tc.song, tc.quality)

			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedFormat, format)
		})
	}
}

// TestNormalizeDeezerAlbum tests the album mapper and its CD ceiling.
func TestNormalizeDeezerAlbum(t *testing.T) {
	t.Parallel()

	raw := &deezerAlbum{
		ID:          302127,
		Title:       "Discovery",
		UPC:         "724384960650",
		Label:       "Parlophone France",
		ReleaseDate: "2001-03-07",
		RecordType:  "album",
		NBTracks:    14,
		CoverXL:     "https://e-cdns-images.dzcdn.net/cover/xl.jpg",
		Artist:      &deezerArtistRef{ID: 27, Name: "Daft Punk"},
		Genres: &deezerGenreList{Data: []struct {
			Name string `json:"name"`
		}{{Name: "Electro"}, {Name: "House"}}},
	}

	album := normalizeDeezerAlbum(raw)

	assert.Equal(t, "Discovery", album.Title)
	assert.Equal(t, "Daft Punk", album.AlbumArtist)
	assert.Equal(t, 2001, album.Year)
	assert.Equal(t, metadata.QualityCD, album.Info.Quality)
	assert.Equal(t, metadata.ContainerFLAC, album.Info.Container)
	assert.Equal(t, 16, album.Info.BitDepth)
	assert.Equal(t, []string{"Electro", "House"}, album.Genres)
	assert.Equal(t, "https://e-cdns-images.dzcdn.net/cover/xl.jpg", album.Covers.Original)
	assert.Equal(t, SourceDeezer, album.SourcePlatform)
	require.NoError(t, album.Validate())
}

// TestNormalizeDeezerTrack tests the track mapper, including the
// single-disc default and contributor handling.
func TestNormalizeDeezerTrack(t *testing.T) {
	t.Parallel()

	album := normalizeDeezerAlbum(&deezerAlbum{
		ID:     302127,
		Title:  "Discovery",
		Artist: &deezerArtistRef{ID: 27, Name: "Daft Punk"},
	})

	raw := &deezerTrack{
		ID:            3135556,
		Title:         "Harder, Better, Faster, Stronger",
		TrackPosition: 4,
		Readable:      true,
		ISRC:          "GBDUW0000059",
		BPM:           123.4,
		Artist:        &deezerArtistRef{ID: 27, Name: "Daft Punk"},
		Contributors: []deezerArtistRef{
			{ID: 27, Name: "Daft Punk"},
			{ID: 99, Name: "Edwin Birdsong"},
		},
	}

	track := normalizeDeezerTrack(raw, album)

	assert.Equal(t, "Daft Punk", track.Artist)
	assert.Equal(t, []string{"Daft Punk", "Edwin Birdsong"}, track.Artists)
	assert.Equal(t, 4, track.TrackNumber)
	// Deezer reports disc 0 for single-disc releases.
	assert.Equal(t, 1, track.DiscNumber)
	assert.Equal(t, 123, track.BPM)
	require.NoError(t, track.Validate())
}
