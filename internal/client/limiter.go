package client

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/avoronov/ripstream/internal/metadata"
)

// limitedClient decorates a provider adapter with the per-provider
// token-bucket rate limiter and concurrency semaphore. Every API call
// passes through both; the byte-transfer phase is governed separately
// by the global download semaphore and is deliberately not limited here.
type limitedClient struct {
	inner   Client
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

var _ Client = (*limitedClient)(nil)

// NewLimited wraps a provider adapter with a token-bucket limiter refilling
// requestsPerMinute/60 tokens per second (burst equal to capacity) and a
// concurrency semaphore of maxConnections slots.
func NewLimited(inner Client, requestsPerMinute, maxConnections int64) Client {
	return &limitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), int(requestsPerMinute)),
		sem:     semaphore.NewWeighted(maxConnections),
	}
}

func (c *limitedClient) acquire(ctx context.Context) (func(), error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.sem.Release(1)

		return nil, err
	}

	return func() { c.sem.Release(1) }, nil
}

func (c *limitedClient) Source() string {
	return c.inner.Source()
}

func (c *limitedClient) Login(ctx context.Context) error {
	release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.inner.Login(ctx)
}

func (c *limitedClient) GetTrack(ctx context.Context, trackID string) (*metadata.Track, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.inner.GetTrack(ctx, trackID)
}

func (c *limitedClient) GetAlbum(ctx context.Context, albumID string) (*metadata.Album, []*metadata.Track, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	return c.inner.GetAlbum(ctx, albumID)
}

func (c *limitedClient) GetArtist(ctx context.Context, artistID string) (*metadata.Artist, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.inner.GetArtist(ctx, artistID)
}

func (c *limitedClient) GetLabel(ctx context.Context, labelID string) (*metadata.Label, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.inner.GetLabel(ctx, labelID)
}

func (c *limitedClient) GetPlaylist(ctx context.Context, playlistID string) (*metadata.Playlist, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.inner.GetPlaylist(ctx, playlistID)
}

func (c *limitedClient) GetDownloadable(
	ctx context.Context,
	trackID string,
	quality uint8,
	isRetry bool,
) (Downloadable, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.inner.GetDownloadable(ctx, trackID, quality, isRetry)
}

func (c *limitedClient) Search(ctx context.Context, kind Kind, query string, limit int) ([]*SearchResult, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.inner.Search(ctx, kind, query, limit)
}

func (c *limitedClient) GetUserFavorites(ctx context.Context, kind Kind, userID string) ([]*FavoriteItem, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.inner.GetUserFavorites(ctx, kind, userID)
}
