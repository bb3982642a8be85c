package ledger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *LedgerImpl {
	t.Helper()

	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		l.Close() //nolint:errcheck,gosec // Test cleanup, error is not critical.
	})

	return l
}

// TestTrackDownloads tests the downloaded-track relation.
func TestTrackDownloads(t *testing.T) {
	t.Parallel()

	l := openTestLedger(t)
	ctx := t.Context()

	downloaded, err := l.IsTrackDownloaded(ctx, "qobuz", "123")
	require.NoError(t, err)
	assert.False(t, downloaded)

	require.NoError(t, l.MarkTrackDownloaded(ctx, "qobuz", "123"))

	// Read-your-writes: visible immediately after the write returns.
	downloaded, err = l.IsTrackDownloaded(ctx, "qobuz", "123")
	require.NoError(t, err)
	assert.True(t, downloaded)

	// Keys are namespaced by source, same id from another provider is distinct.
	downloaded, err = l.IsTrackDownloaded(ctx, "tidal", "123")
	require.NoError(t, err)
	assert.False(t, downloaded)
}

// TestReleases tests the completed-release relation.
func TestReleases(t *testing.T) {
	t.Parallel()

	l := openTestLedger(t)
	ctx := t.Context()

	complete, err := l.IsReleaseComplete(ctx, "deezer", "album", "a1")
	require.NoError(t, err)
	assert.False(t, complete)

	require.NoError(t, l.MarkReleaseComplete(ctx, "deezer", "album", "a1", 12))

	complete, err = l.IsReleaseComplete(ctx, "deezer", "album", "a1")
	require.NoError(t, err)
	assert.True(t, complete)

	// Same id under a different kind is a distinct row.
	complete, err = l.IsReleaseComplete(ctx, "deezer", "artist", "a1")
	require.NoError(t, err)
	assert.False(t, complete)
}

// TestFailures tests the failure relation including clearing.
func TestFailures(t *testing.T) {
	t.Parallel()

	l := openTestLedger(t)
	ctx := t.Context()

	require.NoError(t, l.MarkFailed(ctx, "soundcloud", "track", "t9", "not streamable"))

	failed, err := l.IsFailed(ctx, "soundcloud", "track", "t9")
	require.NoError(t, err)
	assert.True(t, failed)

	require.NoError(t, l.ClearFailure(ctx, "soundcloud", "track", "t9"))

	failed, err = l.IsFailed(ctx, "soundcloud", "track", "t9")
	require.NoError(t, err)
	assert.False(t, failed)

	// Clearing a missing row is a no-op.
	require.NoError(t, l.ClearFailure(ctx, "soundcloud", "track", "missing"))
}

// TestPersistenceAcrossReopen tests that rows survive closing and reopening the database.
func TestPersistenceAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := t.Context()

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.MarkTrackDownloaded(ctx, "qobuz", "42"))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)

	defer l.Close() //nolint:errcheck // Test cleanup, error is not critical.

	downloaded, err := l.IsTrackDownloaded(ctx, "qobuz", "42")
	require.NoError(t, err)
	assert.True(t, downloaded)
}

// TestEmptyKeyComponents tests that empty key components are rejected.
func TestEmptyKeyComponents(t *testing.T) {
	t.Parallel()

	l := openTestLedger(t)
	ctx := t.Context()

	_, err := l.IsTrackDownloaded(ctx, "", "123")
	require.ErrorIs(t, err, ErrEmptyKey)

	err = l.MarkFailed(ctx, "qobuz", "", "id", "reason")
	require.ErrorIs(t, err, ErrEmptyKey)

	err = l.MarkReleaseComplete(ctx, "qobuz", "album", "", 0)
	require.ErrorIs(t, err, ErrEmptyKey)
}
