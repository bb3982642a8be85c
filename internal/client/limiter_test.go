package client

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/ripstream/internal/metadata"
)

// countingClient records the number of in-flight calls so the tests can
// observe the concurrency ceiling the decorator enforces.
type countingClient struct {
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	calls       atomic.Int64
}

var _ Client = (*countingClient)(nil)

func (c *countingClient) enter() func() {
	current := c.inFlight.Add(1)
	c.calls.Add(1)

	for {
		observed := c.maxInFlight.Load()
		if current <= observed || c.maxInFlight.CompareAndSwap(observed, current) {
			break
		}
	}

	// Hold the slot long enough for the other goroutines to pile up.
	time.Sleep(10 * time.Millisecond)

	return func() { c.inFlight.Add(-1) }
}

func (c *countingClient) Source() string { return "counting" }

func (c *countingClient) Login(_ context.Context) error {
	defer c.enter()()
	return nil
}

func (c *countingClient) GetTrack(_ context.Context, _ string) (*metadata.Track, error) {
	defer c.enter()()
	return &metadata.Track{}, nil
}

func (c *countingClient) GetAlbum(_ context.Context, _ string) (*metadata.Album, []*metadata.Track, error) {
	defer c.enter()()
	return &metadata.Album{}, nil, nil
}

func (c *countingClient) GetArtist(_ context.Context, _ string) (*metadata.Artist, error) {
	defer c.enter()()
	return &metadata.Artist{}, nil
}

func (c *countingClient) GetLabel(_ context.Context, _ string) (*metadata.Label, error) {
	defer c.enter()()
	return &metadata.Label{}, nil
}

func (c *countingClient) GetPlaylist(_ context.Context, _ string) (*metadata.Playlist, error) {
	defer c.enter()()
	return &metadata.Playlist{}, nil
}

func (c *countingClient) GetDownloadable(_ context.Context, _ string, _ uint8, _ bool) (Downloadable, error) {
	defer c.enter()()
	return nil, nil
}

func (c *countingClient) Search(_ context.Context, _ Kind, _ string, _ int) ([]*SearchResult, error) {
	defer c.enter()()
	return nil, nil
}

func (c *countingClient) GetUserFavorites(_ context.Context, _ Kind, _ string) ([]*FavoriteItem, error) {
	defer c.enter()()
	return nil, nil
}

// TestLimitedClientConcurrencyCeiling tests that no more than
// maxConnections calls run inside the adapter at once.
func TestLimitedClientConcurrencyCeiling(t *testing.T) {
	t.Parallel()

	const (
		maxConnections = 2
		totalCalls     = 12
	)

	inner := &countingClient{}
	limited := NewLimited(inner, 6000, maxConnections)

	var wg sync.WaitGroup

	for range totalCalls {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := limited.GetTrack(t.Context(), "1")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(totalCalls), inner.calls.Load())
	assert.LessOrEqual(t, inner.maxInFlight.Load(), int64(maxConnections))
}

// TestLimitedClientCancelledContext tests that a cancelled context
// surfaces instead of blocking on the limiter.
func TestLimitedClientCancelledContext(t *testing.T) {
	t.Parallel()

	inner := &countingClient{}
	limited := NewLimited(inner, 60, 1)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := limited.GetTrack(ctx, "1")
	require.Error(t, err)
	assert.Zero(t, inner.calls.Load())
}

// TestLimitedClientPassthrough tests that results flow through undisturbed.
func TestLimitedClientPassthrough(t *testing.T) {
	t.Parallel()

	inner := &countingClient{}
	limited := NewLimited(inner, 6000, 4)

	assert.Equal(t, "counting", limited.Source())

	track, err := limited.GetTrack(t.Context(), "42")
	require.NoError(t, err)
	assert.NotNil(t, track)
}
