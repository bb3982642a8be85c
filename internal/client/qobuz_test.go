package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/metadata"
)

const qobuzAlbumFixture = `{
	"id": "0060254735180",
	"title": "Kind of Blue ",
	"release_date_original": "1959-08-17",
	"release_type": "album",
	"maximum_bit_depth": 24,
	"maximum_sampling_rate": 96,
	"parental_warning": false,
	"streamable": true,
	"tracks_count": 5,
	"media_count": 1,
	"upc": "0060254735180",
	"copyright": "1959 Columbia Records",
	"artist": {"id": 21135, "name": "Miles Davis"},
	"label": {"id": 1, "name": "Columbia"},
	"genre": {"name": "Jazz"},
	"image": {
		"thumbnail": "https://static.qobuz.com/images/covers/x_50.jpg",
		"small": "https://static.qobuz.com/images/covers/x_230.jpg",
		"large": "https://static.qobuz.com/images/covers/x_600.jpg"
	},
	"tracks": {
		"items": [
			{
				"id": 1001,
				"title": "So What",
				"track_number": 1,
				"media_number": 1,
				"maximum_bit_depth": 24,
				"maximum_sampling_rate": 96,
				"streamable": true,
				"isrc": "USSM15900001",
				"performer": {"id": 21135, "name": "Miles Davis"}
			}
		]
	}
}`

// TestNormalizeQobuzAlbum tests the album mapper against a catalog payload.
func TestNormalizeQobuzAlbum(t *testing.T) {
	t.Parallel()

	var raw qobuzAlbum
	require.NoError(t, json.Unmarshal([]byte(qobuzAlbumFixture), &raw))

	album := normalizeQobuzAlbum(&raw)

	assert.Equal(t, "Kind of Blue", album.Title)
	assert.Equal(t, "Miles Davis", album.AlbumArtist)
	assert.Equal(t, 1959, album.Year)
	assert.Equal(t, metadata.QualityHiRes, album.Info.Quality)
	assert.Equal(t, metadata.ContainerFLAC, album.Info.Container)
	assert.Equal(t, 24, album.Info.BitDepth)
	assert.Equal(t, 96000, album.Info.SamplingRate)
	assert.True(t, album.Info.Streamable)
	assert.Equal(t, []string{"Jazz"}, album.Genres)
	assert.Equal(t, "Columbia", album.Label)
	assert.Equal(t, SourceQobuz, album.SourcePlatform)
	assert.Equal(t, "21135", album.SourceArtistID)
	assert.Equal(t, "https://static.qobuz.com/images/covers/x_org.jpg", album.Covers.Original)
	require.NoError(t, album.Validate())
}

// TestNormalizeQobuzTrack tests the track mapper and the model invariants.
func TestNormalizeQobuzTrack(t *testing.T) {
	t.Parallel()

	var raw qobuzAlbum
	require.NoError(t, json.Unmarshal([]byte(qobuzAlbumFixture), &raw))

	album := normalizeQobuzAlbum(&raw)
	track := normalizeQobuzTrack(raw.Tracks.Items[0], album)

	assert.Equal(t, "So What", track.Title)
	assert.Equal(t, "Miles Davis", track.Artist)
	assert.Equal(t, []string{"Miles Davis"}, track.Artists)
	assert.Equal(t, 1, track.TrackNumber)
	assert.Equal(t, "USSM15900001", track.ISRC)
	assert.Same(t, album, track.Album)
	// Selected quality never exceeds the album's advertised tier.
	assert.LessOrEqual(t, track.Info.Quality, album.Info.Quality)
	require.NoError(t, track.Validate())
}

// TestQobuzQualityFromFacts tests the advertised-tier derivation.
func TestQobuzQualityFromFacts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, metadata.QualityHiRes, qobuzQualityFromFacts(24, 192))
	assert.Equal(t, metadata.QualityCD, qobuzQualityFromFacts(16, 44.1))
	assert.Equal(t, metadata.QualityLossyHigh, qobuzQualityFromFacts(0, 0))
}

// TestQobuzFileURLSignature tests that the request signature is deterministic.
func TestQobuzFileURLSignature(t *testing.T) {
	t.Parallel()

	c, err := NewQobuzClient(&config.SourceConfig{AppSecret: "secret"})
	require.NoError(t, err)

	first := c.fileURLSignature("1001", "27", "1700000000")
	second := c.fileURLSignature("1001", "27", "1700000000")

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)

	assert.NotEqual(t, first, c.fileURLSignature("1001", "6", "1700000000"))
}

// TestYearFromDate tests year extraction from ISO dates.
func TestYearFromDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1959, yearFromDate("1959-08-17"))
	assert.Equal(t, 2020, yearFromDate("2020"))
	assert.Equal(t, 0, yearFromDate(""))
	assert.Equal(t, 0, yearFromDate("19"))
	assert.Equal(t, 0, yearFromDate("abcd-01-01"))
}
