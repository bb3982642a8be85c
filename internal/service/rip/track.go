package rip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap/zapcore"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/constants"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
	"github.com/avoronov/ripstream/internal/utils"
)

// speedLimitInterval is the accounting window of the download throttle.
const speedLimitInterval = time.Second

// errTrackAlreadyExists flows from an attempt to its completion handler to
// turn an existing file into a skip instead of a success or failure.
var errTrackAlreadyExists = errors.New("track file already exists")

// enqueueTrack puts one track on the download pool, or settles it immediately
// for ledger hits and dry runs.
func (s *ServiceImpl) enqueueTrack(
	ctx context.Context,
	collection *audioCollection,
	track *metadata.Track,
	quality uint8,
	positionOverride int,
	playlistID string,
) {
	downloaded, err := s.store.IsTrackDownloaded(ctx, collection.source, track.SourceTrackID)
	if err != nil {
		logger.Errorf(ctx, "Ledger lookup failed for track %s: %v", track.SourceTrackID, err)
	}

	if downloaded {
		logger.Debugf(ctx, "Skipping track %q: already in the ledger", track.Title)
		s.incrementTrackSkipped(SkipReasonExists)
		s.settleCollectionTrack(ctx, collection, false)

		return
	}

	if !track.Info.Streamable {
		logger.Warnf(ctx, "Track %q is not streamable", track.Title)
		s.finishTrack(ctx, collection, track, client.ErrNotStreamable)

		return
	}

	if s.cfg.DryRun {
		logger.Infof(ctx, "Would download: %s - %s (%s)",
			track.Artist, track.Title, metadata.QualityName(quality))
		s.incrementTrackDownloaded(0)
		s.settleCollectionTrack(ctx, collection, false)

		return
	}

	item := ShortDownloadItem{
		Source: collection.source,
		Kind:   client.KindTrack,
		ItemID: track.SourceTrackID,
	}

	s.queue.Enqueue(&trackTask{
		item:  item,
		title: track.Title,
		run: func(taskCtx context.Context, isRetry bool) error {
			return s.downloadTrackAttempt(taskCtx, collection, track, quality,
				positionOverride, playlistID, isRetry)
		},
		onDone: func(taskCtx context.Context, taskErr error) {
			s.finishTrack(taskCtx, collection, track, taskErr)
		},
	})
}

// finishTrack settles one track outcome: statistics, the ledger failure
// record, and collection completion.
func (s *ServiceImpl) finishTrack(
	ctx context.Context,
	collection *audioCollection,
	track *metadata.Track,
	err error,
) {
	switch {
	case err == nil:
		s.settleCollectionTrack(ctx, collection, false)
	case errors.Is(err, errTrackAlreadyExists):
		s.incrementTrackSkipped(SkipReasonExists)
		s.settleCollectionTrack(ctx, collection, false)
	default:
		s.recordError(ErrorContext{
			Source:      collection.source,
			Kind:        client.KindTrack,
			ItemID:      track.SourceTrackID,
			ItemTitle:   fmt.Sprintf("%s - %s", track.Artist, track.Title),
			Phase:       phaseDownloadingTrack,
			ParentKind:  collection.kind,
			ParentID:    collection.id,
			ParentTitle: collection.title,
		}, err)

		if !errors.Is(err, context.Canceled) {
			if markErr := s.store.MarkFailed(ctx, collection.source,
				string(client.KindTrack), track.SourceTrackID, err.Error()); markErr != nil {
				logger.Errorf(ctx, "Failed to record failure in ledger: %v", markErr)
			}
		}

		s.settleCollectionTrack(ctx, collection, true)
	}
}

// settleCollectionTrack accounts one terminal track outcome against its
// collection and marks the release complete when the last track lands clean.
func (s *ServiceImpl) settleCollectionTrack(
	ctx context.Context,
	collection *audioCollection,
	failed bool,
) {
	if failed {
		collection.failed.Add(1)
	}

	if collection.remaining.Add(-1) != 0 {
		return
	}

	// Every track has terminated. The discography group counts the album as
	// done either way; the release-level mark below still requires a clean run.
	defer s.settleGroupChild(ctx, collection.group)

	if collection.failed.Load() > 0 || s.cfg.DryRun {
		return
	}

	if collection.kind != client.KindAlbum && collection.kind != client.KindPlaylist {
		return
	}

	err := s.store.MarkReleaseComplete(ctx, collection.source,
		string(collection.kind), collection.id, int(collection.tracksCount))
	if err != nil {
		logger.Errorf(ctx, "Failed to mark %s %s complete: %v", collection.kind, collection.id, err)

		return
	}

	logger.Infof(ctx, "Finished %s: %s", collection.kind, collection.title)
}

// settleGroupChild accounts one terminated album against its discography
// group and marks the parent artist or label complete when the last child
// settles.
func (s *ServiceImpl) settleGroupChild(ctx context.Context, group *collectionGroup) {
	if group == nil {
		return
	}

	if group.remaining.Add(-1) != 0 {
		return
	}

	s.markGroupComplete(ctx, group)
}

// markGroupComplete records a finished artist or label expansion in the ledger.
func (s *ServiceImpl) markGroupComplete(ctx context.Context, group *collectionGroup) {
	if s.cfg.DryRun {
		return
	}

	err := s.store.MarkReleaseComplete(ctx, group.source,
		string(group.kind), group.id, int(group.childCount))
	if err != nil {
		logger.Errorf(ctx, "Failed to mark %s %s complete: %v", group.kind, group.id, err)

		return
	}

	logger.Infof(ctx, "Finished %s %s", group.kind, group.id)
}

// downloadTrackAttempt performs one full download attempt: fetch the stream
// handle, transfer bytes into a temp file, tag, validate, and move into place.
func (s *ServiceImpl) downloadTrackAttempt(
	ctx context.Context,
	collection *audioCollection,
	track *metadata.Track,
	quality uint8,
	positionOverride int,
	playlistID string,
	isRetry bool,
) error {
	c, err := s.clientFor(collection.source)
	if err != nil {
		return err
	}

	// Stream handles expire, so they are fetched at execution time, never
	// during resolution.
	downloadable, err := c.GetDownloadable(ctx, track.SourceTrackID, quality, isRetry)
	if err != nil {
		return err
	}

	container := containerForExtension(downloadable.Extension(), track.Album.Info.Container)
	track.Info.Container = container

	trackTags := s.buildTrackTags(collection, track, positionOverride)

	finalPath, err := s.buildTrackPath(ctx, collection, track, trackTags, downloadable.Extension())
	if err != nil {
		return err
	}

	exists, err := utils.IsFileExist(finalPath)
	if err != nil {
		return err
	}

	if exists {
		logger.Debugf(ctx, "Track file %q already exists", finalPath)

		if markErr := s.store.MarkTrackDownloaded(ctx, collection.source, track.SourceTrackID); markErr != nil {
			logger.Errorf(ctx, "Failed to record track in ledger: %v", markErr)
		}

		return errTrackAlreadyExists
	}

	bytesDownloaded, err := s.transferTrack(ctx, downloadable, track, finalPath)
	if err != nil {
		return err
	}

	tempPath := finalPath + defaultPartExtension

	if err = s.tagProcessor.WriteTags(ctx, &WriteTagsRequest{
		TrackPath:  tempPath,
		CoverPath:  collection.coverPath,
		Container:  container,
		Source:     collection.source,
		TrackTags:  trackTags,
		PlaylistID: playlistID,
	}); err != nil {
		// The audio itself landed fine, so the .part file stays on disk for
		// retries and manual recovery.
		return fmt.Errorf("%s: %w", phaseWritingTags, err)
	}

	if err = s.validateTrack(ctx, tempPath, container); err != nil {
		return err
	}

	if err = os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)

		return fmt.Errorf("%s: %w", phaseFinalizingFile, err)
	}

	if err = s.store.MarkTrackDownloaded(ctx, collection.source, track.SourceTrackID); err != nil {
		logger.Errorf(ctx, "Failed to record track in ledger: %v", err)
	}

	if err = s.store.ClearFailure(ctx, collection.source,
		string(client.KindTrack), track.SourceTrackID); err != nil {
		logger.Errorf(ctx, "Failed to clear failure record: %v", err)
	}

	s.incrementTrackDownloaded(bytesDownloaded)

	logger.Infof(ctx, "Downloaded %s - %s (%s)",
		track.Artist, track.Title, humanize.Bytes(uint64(bytesDownloaded))) //nolint:gosec // Size is positive.

	return nil
}

// buildTrackTags merges collection and track tags. Playlist collections carry
// no shared album tags, so each track brings its own album context.
func (s *ServiceImpl) buildTrackTags(
	collection *audioCollection,
	track *metadata.Track,
	positionOverride int,
) map[string]string {
	baseTags := collection.tags
	if baseTags == nil {
		baseTags = fillAlbumTags(track.Album)
	}

	return fillTrackTags(baseTags, track, positionOverride)
}

// buildTrackPath renders, sanitizes, and truncates the final file path,
// creating disc subdirectories when configured.
func (s *ServiceImpl) buildTrackPath(
	ctx context.Context,
	collection *audioCollection,
	track *metadata.Track,
	trackTags map[string]string,
	extension string,
) (string, error) {
	stem := s.templateManager.FormatTrackFilename(
		ctx, collection.kind == client.KindPlaylist, trackTags)
	stem = utils.SanitizeFilename(stem, s.cfg.RestrictCharacters)
	stem = utils.TruncateStem(stem, int(s.cfg.TruncateTo))

	directory := collection.tracksPath

	if s.cfg.DiscSubdirectories && track.Album.DiscTotal > 1 && collection.kind != client.KindPlaylist {
		directory = filepath.Join(directory, fmt.Sprintf("CD%d", track.DiscNumber))

		if err := os.MkdirAll(directory, constants.DefaultFolderPermissions); err != nil {
			return "", fmt.Errorf("failed to create disc folder: %w", err)
		}
	}

	filename := utils.SetFileExtension(stem, extension, false)

	return filepath.Join(directory, filename), nil
}

// transferTrack streams the audio bytes into a .part file next to the final
// path and verifies the size against the reported total.
func (s *ServiceImpl) transferTrack(
	ctx context.Context,
	downloadable client.Downloadable,
	track *metadata.Track,
	finalPath string,
) (int64, error) {
	if err := s.downloadSem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer s.downloadSem.Release(1)

	reader, totalBytes, err := downloadable.Open(ctx)
	if err != nil {
		return 0, err
	}

	defer reader.Close()

	tempPath := finalPath + defaultPartExtension

	file, err := os.OpenFile(filepath.Clean(tempPath),
		overwriteFileOptions, constants.DefaultFilePermissions)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	writer := s.wrapWithProgressBar(file, totalBytes, track)

	bytesWritten, err := s.copyWithSpeedLimit(ctx, writer, reader)

	closeErr := file.Close()

	switch {
	case err != nil:
		_ = os.Remove(tempPath)

		return 0, fmt.Errorf("%s: %w", phaseDownloadingTrack, err)
	case closeErr != nil:
		_ = os.Remove(tempPath)

		return 0, fmt.Errorf("failed to close temp file: %w", closeErr)
	case totalBytes > 0 && bytesWritten != totalBytes:
		_ = os.Remove(tempPath)

		return 0, fmt.Errorf("%w: got %d of %d bytes",
			ErrIncompleteDownload, bytesWritten, totalBytes)
	}

	return bytesWritten, nil
}

// wrapWithProgressBar attaches a terminal progress bar when downloads run
// sequentially at info level; concurrent bars would interleave.
func (s *ServiceImpl) wrapWithProgressBar(
	file io.Writer,
	totalBytes int64,
	track *metadata.Track,
) io.Writer {
	if s.cfg.MaxConnections > 1 || logger.Level() > zapcore.InfoLevel {
		return file
	}

	description := strings.TrimSpace(fmt.Sprintf("%s - %s", track.Artist, track.Title))
	bar := progressbar.DefaultBytes(totalBytes, description)

	return io.MultiWriter(file, bar)
}

// copyWithSpeedLimit copies all bytes, pacing the transfer when a download
// speed limit is configured.
func (s *ServiceImpl) copyWithSpeedLimit(
	ctx context.Context,
	writer io.Writer,
	reader io.Reader,
) (int64, error) {
	limit := s.cfg.ParsedDownloadSpeedLimit
	if limit <= 0 {
		return io.Copy(writer, reader)
	}

	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		chunkStart := time.Now()

		written, err := io.CopyN(writer, reader, limit)
		total += written

		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}

			return total, err
		}

		// A full chunk landed faster than the accounting window allows.
		if elapsed := time.Since(chunkStart); elapsed < speedLimitInterval {
			select {
			case <-ctx.Done():
				return total, ctx.Err()
			case <-time.After(speedLimitInterval - elapsed):
			}
		}
	}
}

// validateTrack runs the integrity check when enabled, honoring the
// delete-invalid and retry-on-failure settings.
func (s *ServiceImpl) validateTrack(
	ctx context.Context,
	tempPath string,
	container metadata.Container,
) error {
	if !s.cfg.ValidateAudio {
		return nil
	}

	err := s.trackValidator.ValidateFile(ctx, tempPath, container)
	if err == nil {
		return nil
	}

	if s.cfg.DeleteInvalidFiles {
		_ = os.Remove(tempPath)
	}

	if s.cfg.RetryOnValidationFailure {
		return fmt.Errorf("%w: %v", errRetryableValidation, err)
	}

	return fmt.Errorf("%s: %w", phaseValidatingAudio, err)
}

// containerForExtension maps the obtained file extension to its container,
// falling back to the album's advertised container for unknown extensions.
func containerForExtension(extension string, fallback metadata.Container) metadata.Container {
	switch strings.ToLower(strings.TrimPrefix(extension, ".")) {
	case "flac":
		return metadata.ContainerFLAC
	case "mp3":
		return metadata.ContainerMP3
	case "m4a", "mp4", "aac":
		return metadata.ContainerMP4
	default:
		return fallback
	}
}
