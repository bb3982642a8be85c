package rip

import (
	"context"
	"errors"

	"github.com/avoronov/ripstream/internal/client"
)

// Sentinel errors for the download pipeline.
var (
	// ErrUnsupportedURL indicates an input that matched no provider pattern.
	ErrUnsupportedURL = errors.New("unsupported URL")
	// ErrSourceDisabled indicates a reference to a provider that is not enabled.
	ErrSourceDisabled = errors.New("source is not enabled")
	// ErrIncompleteDownload indicates a byte transfer that ended short of the
	// reported size.
	ErrIncompleteDownload = errors.New("downloaded size does not match expected size")
	// ErrCoverTooLarge indicates cover art exceeding the FLAC picture block limit.
	ErrCoverTooLarge = errors.New("cover art exceeds FLAC metadata block size limit")
	// ErrUnknownTagFormat indicates a container no tag writer exists for.
	ErrUnknownTagFormat = errors.New("unknown tag format")
	// ErrValidationFailed indicates a downloaded file that failed the audio
	// integrity check.
	ErrValidationFailed = errors.New("audio validation failed")
	// ErrEmptyCollection indicates a release or playlist with no tracks.
	ErrEmptyCollection = errors.New("collection has no tracks")
)

// errRetryableValidation marks a validation failure the queue should retry,
// as opposed to ErrValidationFailed which is terminal.
var errRetryableValidation = errors.New("audio validation failed")

// ErrorContext carries metadata about where in the pipeline an error occurred,
// so the final summary can attribute it to a concrete item.
type ErrorContext struct {
	// Source is the provider of the item being processed.
	Source string
	// Kind is the type of item being processed.
	Kind client.Kind
	// ItemID identifies the item being processed.
	ItemID string
	// ItemTitle is the human-readable title, when known.
	ItemTitle string
	// ItemURL is the original input, when known.
	ItemURL string
	// Phase describes the pipeline stage (e.g., "fetching metadata").
	Phase string
	// ParentKind is the collection type for tracks inside a collection.
	ParentKind client.Kind
	// ParentID is the collection ID for tracks inside a collection.
	ParentID string
	// ParentTitle is the collection title for tracks inside a collection.
	ParentTitle string
}

// isTerminalItemError reports whether the error is a per-item condition that
// retrying cannot fix.
func isTerminalItemError(err error) bool {
	return errors.Is(err, client.ErrNotFound) ||
		errors.Is(err, client.ErrNotStreamable) ||
		errors.Is(err, client.ErrQualityUnavailable) ||
		errors.Is(err, ErrCoverTooLarge) ||
		errors.Is(err, ErrUnsupportedURL) ||
		errors.Is(err, ErrSourceDisabled) ||
		errors.Is(err, ErrValidationFailed)
}

// isFatalError reports whether the error should abort the whole run rather
// than fail a single item.
func isFatalError(err error) bool {
	return errors.Is(err, client.ErrAuth) || errors.Is(err, client.ErrMissingCredentials)
}

// recordError appends the error to the session statistics unless the run is
// being cancelled, in which case the cancellation is not an item failure.
func (s *ServiceImpl) recordError(errCtx ErrorContext, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TracksFailed++
	s.stats.TotalTracksProcessed++
	s.stats.Errors = append(s.stats.Errors, DownloadError{
		Source:       errCtx.Source,
		Kind:         errCtx.Kind,
		ItemID:       errCtx.ItemID,
		ItemTitle:    errCtx.ItemTitle,
		ItemURL:      errCtx.ItemURL,
		ErrorMessage: err.Error(),
		Phase:        errCtx.Phase,
		ParentKind:   errCtx.ParentKind,
		ParentID:     errCtx.ParentID,
		ParentTitle:  errCtx.ParentTitle,
	})
}

// recordResolutionError is recordError for failures above the track level
// (albums, artists, playlists that never produced tracks). It counts a single
// failed item.
func (s *ServiceImpl) recordResolutionError(errCtx ErrorContext, err error) {
	s.recordError(errCtx, err)
}
