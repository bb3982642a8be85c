package rip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/constants"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
	"github.com/avoronov/ripstream/internal/utils"
)

// resolvedAlbum pairs an album aggregate with the item it came from, so
// discography expansions can be filtered before any download starts.
type resolvedAlbum struct {
	item   DownloadItem
	album  *metadata.Album
	tracks []*metadata.Track
}

// processTrackItem downloads a single track into its album folder.
// Partial albums are never marked complete in the ledger.
func (s *ServiceImpl) processTrackItem(ctx context.Context, item DownloadItem) error {
	downloaded, err := s.store.IsTrackDownloaded(ctx, item.Source, item.ItemID)
	if err != nil {
		return err
	}

	if downloaded {
		logger.Infof(ctx, "Skipping track %s: already in the ledger", item.ItemID)
		s.incrementTrackSkipped(SkipReasonExists)

		return nil
	}

	c, err := s.clientFor(item.Source)
	if err != nil {
		return err
	}

	track, err := c.GetTrack(ctx, item.ItemID)
	if err != nil {
		return err
	}

	if !track.Info.Streamable {
		s.recordResolutionError(ErrorContext{
			Source:    item.Source,
			Kind:      client.KindTrack,
			ItemID:    item.ItemID,
			ItemTitle: fmt.Sprintf("%s - %s", track.Artist, track.Title),
			ItemURL:   item.URL,
			Phase:     phaseFetchingMetadata,
		}, client.ErrNotStreamable)

		return nil
	}

	quality, ok := s.resolveItemQuality(ctx, item, track.Album)
	if !ok {
		return nil
	}

	s.enrichAlbum(ctx, track.Album)

	collection, err := s.registerAlbumCollection(ctx, item, track.Album, 1)
	if err != nil {
		return err
	}

	s.enqueueTrack(ctx, collection, track, quality, 0, "")

	return nil
}

// processAlbumItem downloads a full album.
func (s *ServiceImpl) processAlbumItem(ctx context.Context, item DownloadItem) error {
	complete, err := s.store.IsReleaseComplete(ctx, item.Source, string(client.KindAlbum), item.ItemID)
	if err != nil {
		return err
	}

	if complete {
		logger.Infof(ctx, "Skipping album %s: already complete", item.ItemID)
		s.incrementTrackSkipped(SkipReasonExists)

		return nil
	}

	c, err := s.clientFor(item.Source)
	if err != nil {
		return err
	}

	album, tracks, err := c.GetAlbum(ctx, item.ItemID)
	if err != nil {
		return err
	}

	return s.processResolvedAlbum(ctx, resolvedAlbum{item: item, album: album, tracks: tracks}, nil)
}

// processResolvedAlbum turns a fetched album aggregate into queued downloads.
// Albums that terminate before any track is enqueued still settle against
// their discography group.
func (s *ServiceImpl) processResolvedAlbum(
	ctx context.Context,
	resolved resolvedAlbum,
	group *collectionGroup,
) error {
	if len(resolved.tracks) == 0 {
		s.recordResolutionError(ErrorContext{
			Source:    resolved.item.Source,
			Kind:      client.KindAlbum,
			ItemID:    resolved.item.ItemID,
			ItemTitle: resolved.album.Title,
			ItemURL:   resolved.item.URL,
			Phase:     phaseFetchingMetadata,
		}, ErrEmptyCollection)
		s.settleGroupChild(ctx, group)

		return nil
	}

	if !resolved.album.Info.Streamable {
		s.recordResolutionError(ErrorContext{
			Source:    resolved.item.Source,
			Kind:      client.KindAlbum,
			ItemID:    resolved.item.ItemID,
			ItemTitle: resolved.album.Title,
			ItemURL:   resolved.item.URL,
			Phase:     phaseFetchingMetadata,
		}, client.ErrNotStreamable)
		s.settleGroupChild(ctx, group)

		return nil
	}

	quality, ok := s.resolveItemQuality(ctx, resolved.item, resolved.album)
	if !ok {
		s.settleGroupChild(ctx, group)

		return nil
	}

	s.enrichAlbum(ctx, resolved.album)

	collection, err := s.registerAlbumCollection(ctx, resolved.item, resolved.album, len(resolved.tracks))
	if err != nil {
		s.recordResolutionError(ErrorContext{
			Source:    resolved.item.Source,
			Kind:      client.KindAlbum,
			ItemID:    resolved.item.ItemID,
			ItemTitle: resolved.album.Title,
			ItemURL:   resolved.item.URL,
			Phase:     phaseDownloadingCover,
		}, err)
		s.settleGroupChild(ctx, group)

		return nil
	}

	collection.group = group

	for _, track := range resolved.tracks {
		s.enqueueTrack(ctx, collection, track, quality, 0, "")
	}

	return nil
}

// processArtistItem expands an artist discography, applies the release
// filters, and downloads the surviving albums.
func (s *ServiceImpl) processArtistItem(ctx context.Context, item DownloadItem) error {
	complete, err := s.store.IsReleaseComplete(ctx, item.Source, string(client.KindArtist), item.ItemID)
	if err != nil {
		return err
	}

	if complete {
		logger.Infof(ctx, "Skipping artist %s: already complete", item.ItemID)
		s.incrementTrackSkipped(SkipReasonExists)

		return nil
	}

	c, err := s.clientFor(item.Source)
	if err != nil {
		return err
	}

	artist, err := c.GetArtist(ctx, item.ItemID)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "Artist %q has %d release(s)", artist.Name, len(artist.AlbumIDs))

	resolved, err := s.fetchAlbumBatch(ctx, item, utils.Dedupe(artist.AlbumIDs))
	if err != nil {
		return err
	}

	return s.processAlbumBatch(ctx, item, resolved, artist.Name)
}

// processLabelItem expands a label catalog. The features filter is inert for
// labels because there is no anchor artist to compare against.
func (s *ServiceImpl) processLabelItem(ctx context.Context, item DownloadItem) error {
	complete, err := s.store.IsReleaseComplete(ctx, item.Source, string(client.KindLabel), item.ItemID)
	if err != nil {
		return err
	}

	if complete {
		logger.Infof(ctx, "Skipping label %s: already complete", item.ItemID)
		s.incrementTrackSkipped(SkipReasonExists)

		return nil
	}

	c, err := s.clientFor(item.Source)
	if err != nil {
		return err
	}

	label, err := c.GetLabel(ctx, item.ItemID)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "Label %q has %d release(s)", label.Name, len(label.AlbumIDs))

	resolved, err := s.fetchAlbumBatch(ctx, item, utils.Dedupe(label.AlbumIDs))
	if err != nil {
		return err
	}

	return s.processAlbumBatch(ctx, item, resolved, "")
}

// fetchAlbumBatch fetches every album of a discography expansion, recording
// per-album failures without aborting the batch.
func (s *ServiceImpl) fetchAlbumBatch(
	ctx context.Context,
	parent DownloadItem,
	albumIDs []string,
) ([]resolvedAlbum, error) {
	c, err := s.clientFor(parent.Source)
	if err != nil {
		return nil, err
	}

	resolved := make([]resolvedAlbum, 0, len(albumIDs))

	for _, albumID := range albumIDs {
		if ctx.Err() != nil {
			return resolved, nil
		}

		complete, checkErr := s.store.IsReleaseComplete(
			ctx, parent.Source, string(client.KindAlbum), albumID)
		if checkErr != nil {
			return nil, checkErr
		}

		if complete {
			logger.Debugf(ctx, "Skipping album %s: already complete", albumID)
			s.incrementTrackSkipped(SkipReasonExists)

			continue
		}

		album, tracks, fetchErr := c.GetAlbum(ctx, albumID)
		if fetchErr != nil {
			if isFatalError(fetchErr) {
				return nil, fetchErr
			}

			s.recordResolutionError(ErrorContext{
				Source:      parent.Source,
				Kind:        client.KindAlbum,
				ItemID:      albumID,
				ItemURL:     parent.URL,
				Phase:       phaseFetchingMetadata,
				ParentKind:  parent.Kind,
				ParentID:    parent.ItemID,
				ParentTitle: "",
			}, fetchErr)

			continue
		}

		resolved = append(resolved, resolvedAlbum{
			item: DownloadItem{
				Source: parent.Source,
				Kind:   client.KindAlbum,
				ItemID: albumID,
				URL:    parent.URL,
			},
			album:  album,
			tracks: tracks,
		})
	}

	return resolved, nil
}

// processAlbumBatch filters a discography expansion and downloads what
// remains. The surviving albums form a completion group for the parent
// artist or label.
func (s *ServiceImpl) processAlbumBatch(
	ctx context.Context,
	parent DownloadItem,
	resolved []resolvedAlbum,
	artistName string,
) error {
	albums := make([]*metadata.Album, 0, len(resolved))
	byAlbum := make(map[*metadata.Album]resolvedAlbum, len(resolved))

	for _, entry := range resolved {
		albums = append(albums, entry.album)
		byAlbum[entry.album] = entry
	}

	kept := s.releaseFilter.FilterAlbums(ctx, albums, artistName)

	keptSet := make(map[*metadata.Album]struct{}, len(kept))
	for _, album := range kept {
		keptSet[album] = struct{}{}
	}

	for _, album := range albums {
		if _, ok := keptSet[album]; !ok {
			s.incrementTrackSkipped(SkipReasonFiltered)
		}
	}

	group := &collectionGroup{
		kind:       parent.Kind,
		source:     parent.Source,
		id:         parent.ItemID,
		childCount: int64(len(kept)),
	}
	group.remaining.Store(int64(len(kept)))

	// Nothing left to download: every release was filtered out or is already
	// in the ledger, so the expansion itself is done.
	if len(kept) == 0 {
		s.markGroupComplete(ctx, group)

		return nil
	}

	for _, album := range kept {
		if err := s.processResolvedAlbum(ctx, byAlbum[album], group); err != nil {
			return err
		}
	}

	return nil
}

// processPlaylistItem downloads a playlist into a flat folder, numbering
// tracks by playlist position.
func (s *ServiceImpl) processPlaylistItem(ctx context.Context, item DownloadItem) error {
	complete, err := s.store.IsReleaseComplete(ctx, item.Source, string(client.KindPlaylist), item.ItemID)
	if err != nil {
		return err
	}

	if complete {
		logger.Infof(ctx, "Skipping playlist %s: already complete", item.ItemID)
		s.incrementTrackSkipped(SkipReasonExists)

		return nil
	}

	c, err := s.clientFor(item.Source)
	if err != nil {
		return err
	}

	playlist, err := c.GetPlaylist(ctx, item.ItemID)
	if err != nil {
		return err
	}

	if len(playlist.TrackIDs) == 0 {
		s.recordResolutionError(ErrorContext{
			Source:    item.Source,
			Kind:      client.KindPlaylist,
			ItemID:    item.ItemID,
			ItemTitle: playlist.Title,
			ItemURL:   item.URL,
			Phase:     phaseFetchingMetadata,
		}, ErrEmptyCollection)

		return nil
	}

	collection, err := s.registerPlaylistCollection(ctx, item, playlist)
	if err != nil {
		return err
	}

	for position, trackID := range playlist.TrackIDs {
		if ctx.Err() != nil {
			return nil
		}

		track, fetchErr := c.GetTrack(ctx, trackID)
		if fetchErr != nil {
			if isFatalError(fetchErr) {
				return fetchErr
			}

			s.recordError(ErrorContext{
				Source:      item.Source,
				Kind:        client.KindTrack,
				ItemID:      trackID,
				Phase:       phaseFetchingMetadata,
				ParentKind:  client.KindPlaylist,
				ParentID:    playlist.ID,
				ParentTitle: playlist.Title,
			}, fetchErr)
			collection.remaining.Add(-1)
			collection.failed.Add(1)

			continue
		}

		quality, ok := s.resolvePlaylistTrackQuality(ctx, item, collection, track)
		if !ok {
			continue
		}

		s.enqueueTrack(ctx, collection, track, quality, position+1, playlist.ID)
	}

	return nil
}

// resolvePlaylistTrackQuality resolves quality per playlist track, since
// every entry comes from a different album.
func (s *ServiceImpl) resolvePlaylistTrackQuality(
	ctx context.Context,
	item DownloadItem,
	collection *audioCollection,
	track *metadata.Track,
) (uint8, bool) {
	sourceCfg := s.sourceConfigFor(item.Source)

	quality, err := resolveQuality(
		sourceCfg.Quality, track.Album.Info.Quality, sourceCfg.LowerQualityIfNotAvailable)
	if err == nil {
		return quality, true
	}

	logger.Warnf(ctx, "Skipping %q: %v", track.Title, err)
	s.incrementTrackSkipped(SkipReasonQuality)
	collection.remaining.Add(-1)

	return 0, false
}

// processFavoritesItem expands a user's favorites listing into its child items.
func (s *ServiceImpl) processFavoritesItem(ctx context.Context, item DownloadItem) error {
	c, err := s.clientFor(item.Source)
	if err != nil {
		return err
	}

	favorites, err := c.GetUserFavorites(ctx, item.ChildKind, item.ItemID)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "User %s has %d favorite %s(s)", item.ItemID, len(favorites), item.ChildKind)

	if item.ChildKind == client.KindTrack && s.cfg.DownloadFullAlbumForLikedTracks {
		return s.processLikedTracksAsAlbums(ctx, item, favorites)
	}

	for _, favorite := range favorites {
		if ctx.Err() != nil {
			return nil
		}

		childItem := DownloadItem{
			Source: item.Source,
			Kind:   favorite.Kind,
			ItemID: favorite.ID,
			URL:    item.URL,
		}

		if err = s.processItem(ctx, childItem); err != nil {
			return err
		}
	}

	return nil
}

// processLikedTracksAsAlbums expands liked tracks into their parent albums,
// deduplicating albums liked through several tracks.
func (s *ServiceImpl) processLikedTracksAsAlbums(
	ctx context.Context,
	item DownloadItem,
	favorites []*client.FavoriteItem,
) error {
	c, err := s.clientFor(item.Source)
	if err != nil {
		return err
	}

	var (
		albumIDs  []string
		seenAlbum = make(map[string]struct{}, len(favorites))
	)

	for _, favorite := range favorites {
		if ctx.Err() != nil {
			return nil
		}

		track, fetchErr := c.GetTrack(ctx, favorite.ID)
		if fetchErr != nil {
			if isFatalError(fetchErr) {
				return fetchErr
			}

			s.recordError(ErrorContext{
				Source: item.Source,
				Kind:   client.KindTrack,
				ItemID: favorite.ID,
				Phase:  phaseFetchingMetadata,
			}, fetchErr)

			continue
		}

		albumID := track.SourceAlbumID
		if albumID == "" {
			albumID = track.Album.ID
		}

		if _, ok := seenAlbum[albumID]; ok {
			continue
		}

		seenAlbum[albumID] = struct{}{}
		albumIDs = append(albumIDs, albumID)
	}

	logger.Infof(ctx, "Liked tracks expand to %d unique album(s)", len(albumIDs))

	for _, albumID := range albumIDs {
		childItem := DownloadItem{
			Source: item.Source,
			Kind:   client.KindAlbum,
			ItemID: albumID,
			URL:    item.URL,
		}

		if err = s.processItem(ctx, childItem); err != nil {
			return err
		}
	}

	return nil
}

// resolveItemQuality applies the quality law to a release, recording a
// failure when downgrading is disabled and the release falls short.
func (s *ServiceImpl) resolveItemQuality(
	ctx context.Context,
	item DownloadItem,
	album *metadata.Album,
) (uint8, bool) {
	sourceCfg := s.sourceConfigFor(item.Source)

	quality, err := resolveQuality(
		sourceCfg.Quality, album.Info.Quality, sourceCfg.LowerQualityIfNotAvailable)
	if err == nil {
		if quality < sourceCfg.Quality {
			logger.Warnf(ctx, "Downgrading %q to %s", album.Title, metadata.QualityName(quality))
		}

		return quality, true
	}

	s.recordResolutionError(ErrorContext{
		Source:    item.Source,
		Kind:      item.Kind,
		ItemID:    item.ItemID,
		ItemTitle: album.Title,
		ItemURL:   item.URL,
		Phase:     phaseResolvingQuality,
	}, err)

	if markErr := s.store.MarkFailed(
		ctx, item.Source, string(item.Kind), item.ItemID, err.Error()); markErr != nil {
		logger.Errorf(ctx, "Failed to record failure in ledger: %v", markErr)
	}

	return 0, false
}

// enrichAlbum runs metadata enrichment when enabled. Enrichment mutates the
// shared album record before any of its tracks are enqueued.
func (s *ServiceImpl) enrichAlbum(ctx context.Context, album *metadata.Album) {
	if s.enricher == nil || !s.cfg.Enrichment.Enabled {
		return
	}

	s.enricher.EnrichAlbum(ctx, album)
}

// registerAlbumCollection prepares the release folder and cover art and
// returns the shared collection record for its tracks.
func (s *ServiceImpl) registerAlbumCollection(
	ctx context.Context,
	item DownloadItem,
	album *metadata.Album,
	trackCount int,
) (*audioCollection, error) {
	tags := fillAlbumTags(album)

	folderName := s.templateManager.FormatAlbumFolderName(ctx, tags)
	folderName = utils.SanitizeFilename(folderName, s.cfg.RestrictCharacters)
	folderName = utils.TruncateStem(folderName, int(s.cfg.TruncateTo))

	tracksPath := filepath.Join(s.outputBase(item.Source), folderName)

	collection := &audioCollection{
		kind:        item.Kind,
		source:      item.Source,
		id:          item.ItemID,
		title:       album.Title,
		tags:        tags,
		tracksPath:  tracksPath,
		tracksCount: int64(trackCount),
	}
	collection.remaining.Store(int64(trackCount))

	if s.cfg.DryRun {
		return collection, nil
	}

	if err := os.MkdirAll(tracksPath, constants.DefaultFolderPermissions); err != nil {
		return nil, fmt.Errorf("failed to create release folder: %w", err)
	}

	collection.coverPath = s.fetchCoverArt(ctx, album, tracksPath)

	return collection, nil
}

// registerPlaylistCollection prepares a flat playlist folder.
func (s *ServiceImpl) registerPlaylistCollection(
	ctx context.Context,
	item DownloadItem,
	playlist *metadata.Playlist,
) (*audioCollection, error) {
	folderName := utils.SanitizeFilename(playlist.Title, s.cfg.RestrictCharacters)
	folderName = utils.TruncateStem(folderName, int(s.cfg.TruncateTo))

	tracksPath := filepath.Join(s.outputBase(item.Source), folderName)

	collection := &audioCollection{
		kind:        client.KindPlaylist,
		source:      item.Source,
		id:          item.ItemID,
		title:       playlist.Title,
		tracksPath:  tracksPath,
		tracksCount: int64(len(playlist.TrackIDs)),
	}
	collection.remaining.Store(int64(len(playlist.TrackIDs)))

	if s.cfg.DryRun {
		return collection, nil
	}

	if err := os.MkdirAll(tracksPath, constants.DefaultFolderPermissions); err != nil {
		return nil, fmt.Errorf("failed to create playlist folder: %w", err)
	}

	return collection, nil
}

// outputBase returns the root folder downloads of a source land in.
func (s *ServiceImpl) outputBase(source string) string {
	if s.cfg.SourceSubdirectories {
		return filepath.Join(s.cfg.OutputPath, source)
	}

	return s.cfg.OutputPath
}

// fetchCoverArt downloads the largest cover variant next to the tracks.
// Failures degrade to untagged artwork rather than failing the release.
func (s *ServiceImpl) fetchCoverArt(
	ctx context.Context,
	album *metadata.Album,
	tracksPath string,
) string {
	coverURL := album.Covers.Largest()
	if coverURL == "" {
		return ""
	}

	coverPath := filepath.Join(tracksPath, defaultCoverBasename+defaultAlbumCoverExtension)

	exists, err := utils.IsFileExist(coverPath)
	if err == nil && exists {
		s.incrementCoverSkipped()

		return coverPath
	}

	if err = downloadFileToPath(ctx, s.httpClient, coverURL, coverPath); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warnf(ctx, "Failed to download cover art for %q: %v", album.Title, err)
		}

		return ""
	}

	s.incrementCoverDownloaded()

	return coverPath
}
