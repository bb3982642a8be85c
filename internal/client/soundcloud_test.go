package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/ripstream/internal/metadata"
)

// TestNormalizeSoundcloudTrack tests the single-track album synthesis
// SoundCloud uploads get.
func TestNormalizeSoundcloudTrack(t *testing.T) {
	t.Parallel()

	raw := &soundcloudTrack{
		ID:         293,
		Title:      "Testing  sounds",
		Genre:      "Ambient",
		CreatedAt:  "2015-06-01T12:00:00Z",
		ArtworkURL: "https://i1.sndcdn.com/artworks-abc-large.jpg",
		Streamable: true,
		User:       &soundcloudUser{ID: 7, Username: "somebody"},
	}

	track := normalizeSoundcloudTrack(raw)

	assert.Equal(t, "Testing sounds", track.Title)
	assert.Equal(t, "somebody", track.Artist)
	assert.Equal(t, 1, track.TrackNumber)
	assert.Equal(t, metadata.QualityLossyHigh, track.Info.Quality)

	require.NotNil(t, track.Album)
	assert.Equal(t, "Testing sounds", track.Album.Title)
	assert.Equal(t, "somebody", track.Album.AlbumArtist)
	assert.Equal(t, 1, track.Album.TrackTotal)
	assert.Equal(t, metadata.ContainerMP3, track.Album.Info.Container)
	assert.Equal(t, []string{"Ambient"}, track.Album.Genres)
	assert.Equal(t, 2015, track.Album.Year)
	require.NoError(t, track.Album.Validate())
	require.NoError(t, track.Validate())
}

// TestSoundcloudCovers tests artwork size-variant derivation.
func TestSoundcloudCovers(t *testing.T) {
	t.Parallel()

	covers := soundcloudCovers("https://i1.sndcdn.com/artworks-abc-large.jpg")

	assert.Equal(t, "https://i1.sndcdn.com/artworks-abc-original.jpg", covers.Original)
	assert.Equal(t, "https://i1.sndcdn.com/artworks-abc-t500x500.jpg", covers.Large)
	assert.Equal(t, "https://i1.sndcdn.com/artworks-abc-large.jpg", covers.Thumbnail)

	blank := soundcloudCovers("")
	assert.True(t, blank.Empty())
}

// TestPickProgressiveTranscoding tests that HLS-only tracks resolve to nothing.
func TestPickProgressiveTranscoding(t *testing.T) {
	t.Parallel()

	raw := &soundcloudTrack{}
	raw.Media.Transcodings = []soundcloudTranscoding{
		{URL: "https://api-v2.soundcloud.com/t/1/hls"},
		{URL: "https://api-v2.soundcloud.com/t/1/progressive"},
	}
	raw.Media.Transcodings[0].Format.Protocol = "hls"
	raw.Media.Transcodings[1].Format.Protocol = "progressive"

	assert.Equal(t, "https://api-v2.soundcloud.com/t/1/progressive", pickProgressiveTranscoding(raw))

	assert.Empty(t, pickProgressiveTranscoding(&soundcloudTrack{}))
}
