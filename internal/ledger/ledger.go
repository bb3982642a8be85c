package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/avoronov/ripstream/internal/constants"
)

//go:generate $MOCKGEN -source=ledger.go -destination=mocks/ledger_mock.go

// Bucket names double as the schema version: a layout change gets a new suffix
// instead of an in-place migration.
var (
	//nolint:gochecknoglobals // Immutable bucket name.
	downloadsBucket = []byte("downloads_v1")
	//nolint:gochecknoglobals // Immutable bucket name.
	failuresBucket = []byte("failures_v1")
	//nolint:gochecknoglobals // Immutable bucket name.
	releasesBucket = []byte("releases_v1")
)

// Static error definitions for better error handling.
var (
	// ErrEmptyKey indicates that a ledger key component is empty.
	ErrEmptyKey = errors.New("ledger key components cannot be empty")
)

// openTimeout bounds how long opening the database may block on a file lock.
const openTimeout = 5 * time.Second

// Ledger is the durable record of completed and failed work.
// It is the idempotency source of truth: resolvers consult it before fetching
// metadata, and workers write to it after every terminal outcome.
type Ledger interface {
	// IsTrackDownloaded reports whether the track was downloaded in a previous run.
	IsTrackDownloaded(ctx context.Context, source, trackID string) (bool, error)
	// MarkTrackDownloaded records a finished, tagged track.
	MarkTrackDownloaded(ctx context.Context, source, trackID string) error
	// IsReleaseComplete reports whether the container (album, artist, label, playlist)
	// was fully processed in a previous run.
	IsReleaseComplete(ctx context.Context, source, kind, id string) (bool, error)
	// MarkReleaseComplete records a fully processed container and its child count.
	MarkReleaseComplete(ctx context.Context, source, kind, id string, childCount int) error
	// IsFailed reports whether the item has a recorded failure.
	IsFailed(ctx context.Context, source, kind, id string) (bool, error)
	// MarkFailed records a terminal per-item failure with its reason.
	MarkFailed(ctx context.Context, source, kind, id, reason string) error
	// ClearFailure removes a recorded failure, typically after a later successful attempt.
	ClearFailure(ctx context.Context, source, kind, id string) error
	// Close releases the underlying database.
	Close() error
}

// LedgerImpl implements the Ledger interface on top of a single bbolt file
// with one bucket per relation.
//
//nolint:revive // Name matches the service implementation naming convention used across the project.
type LedgerImpl struct {
	db *bolt.DB
}

var _ Ledger = (*LedgerImpl)(nil)

// Open opens (creating if needed) the ledger database at the given path.
func Open(path string) (*LedgerImpl, error) {
	db, err := bolt.Open(filepath.Clean(path), constants.DefaultFilePermissions, &bolt.Options{
		Timeout: openTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{downloadsBucket, failuresBucket, releasesBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
			}
		}

		return nil
	})
	if err != nil {
		db.Close() //nolint:errcheck,gosec // Open failed, close error is secondary.

		return nil, err
	}

	return &LedgerImpl{db: db}, nil
}

// IsTrackDownloaded reports whether the track was downloaded in a previous run.
func (l *LedgerImpl) IsTrackDownloaded(_ context.Context, source, trackID string) (bool, error) {
	key, err := trackKey(source, trackID)
	if err != nil {
		return false, err
	}

	return l.exists(downloadsBucket, key)
}

// MarkTrackDownloaded records a finished, tagged track.
func (l *LedgerImpl) MarkTrackDownloaded(_ context.Context, source, trackID string) error {
	key, err := trackKey(source, trackID)
	if err != nil {
		return err
	}

	return l.put(downloadsBucket, key, []byte(time.Now().UTC().Format(time.RFC3339)))
}

// IsReleaseComplete reports whether the container was fully processed in a previous run.
func (l *LedgerImpl) IsReleaseComplete(_ context.Context, source, kind, id string) (bool, error) {
	key, err := itemKey(source, kind, id)
	if err != nil {
		return false, err
	}

	return l.exists(releasesBucket, key)
}

// MarkReleaseComplete records a fully processed container and its child count.
func (l *LedgerImpl) MarkReleaseComplete(_ context.Context, source, kind, id string, childCount int) error {
	key, err := itemKey(source, kind, id)
	if err != nil {
		return err
	}

	return l.put(releasesBucket, key, []byte(strconv.Itoa(childCount)))
}

// IsFailed reports whether the item has a recorded failure.
func (l *LedgerImpl) IsFailed(_ context.Context, source, kind, id string) (bool, error) {
	key, err := itemKey(source, kind, id)
	if err != nil {
		return false, err
	}

	return l.exists(failuresBucket, key)
}

// MarkFailed records a terminal per-item failure with its reason.
func (l *LedgerImpl) MarkFailed(_ context.Context, source, kind, id, reason string) error {
	key, err := itemKey(source, kind, id)
	if err != nil {
		return err
	}

	return l.put(failuresBucket, key, []byte(reason))
}

// ClearFailure removes a recorded failure.
func (l *LedgerImpl) ClearFailure(_ context.Context, source, kind, id string) error {
	key, err := itemKey(source, kind, id)
	if err != nil {
		return err
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(failuresBucket).Delete(key)
	})
}

// Close releases the underlying database.
func (l *LedgerImpl) Close() error {
	return l.db.Close()
}

func (l *LedgerImpl) exists(bucket, key []byte) (bool, error) {
	var found bool

	err := l.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucket).Get(key) != nil

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}

	return found, nil
}

func (l *LedgerImpl) put(bucket, key, value []byte) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}

	return nil
}

func trackKey(source, trackID string) ([]byte, error) {
	if source == "" || trackID == "" {
		return nil, ErrEmptyKey
	}

	return []byte(source + "|" + trackID), nil
}

func itemKey(source, kind, id string) ([]byte, error) {
	if source == "" || kind == "" || id == "" {
		return nil, ErrEmptyKey
	}

	return []byte(source + "|" + kind + "|" + id), nil
}
