package rip

import (
	"context"
	"regexp"
	"strings"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
)

var (
	// repeatGroupPattern captures the base title before any parenthesized or
	// bracketed qualifier, so "OK Computer" and "OK Computer (Deluxe)" group
	// together.
	repeatGroupPattern = regexp.MustCompile(`([^\(\[]+)`)

	// extraEditionPattern marks special editions and non-album releases.
	extraEditionPattern = regexp.MustCompile(`(?i)(anniversary|deluxe|live|collector|demo|expanded|remix)`)

	// remasterPattern marks remastered releases.
	remasterPattern = regexp.MustCompile(`(?i)(re)?master(ed)?`)
)

// ReleaseFilter prunes artist and label discographies before they are expanded
// into downloads. Filters apply only to batch discovery, never to releases the
// user referenced directly.
type ReleaseFilter struct {
	// cfg holds the enabled filter toggles.
	cfg config.FiltersConfig
}

// NewReleaseFilter creates a ReleaseFilter from the configured toggles.
func NewReleaseFilter(cfg config.FiltersConfig) *ReleaseFilter {
	return &ReleaseFilter{cfg: cfg}
}

// FilterAlbums applies the enabled filters to a discography batch.
// artistName is the artist whose discography is being expanded; it is empty
// for label batches, which disables the features filter.
func (rf *ReleaseFilter) FilterAlbums(
	ctx context.Context,
	albums []*metadata.Album,
	artistName string,
) []*metadata.Album {
	result := make([]*metadata.Album, 0, len(albums))

	for _, album := range albums {
		if reason, dropped := rf.shouldDrop(album, artistName); dropped {
			logger.Debugf(ctx, "Filtered out %q (%s)", album.Title, reason)

			continue
		}

		result = append(result, album)
	}

	if rf.cfg.Repeats {
		result = rf.collapseRepeats(ctx, result)
	}

	return result
}

func (rf *ReleaseFilter) shouldDrop(album *metadata.Album, artistName string) (string, bool) {
	if rf.cfg.Extras && extraEditionPattern.MatchString(album.Title) {
		return "extra edition", true
	}

	if rf.cfg.Features && artistName != "" &&
		!strings.EqualFold(album.AlbumArtist, artistName) {
		return "feature appearance", true
	}

	if rf.cfg.NonStudioAlbums && !isStudioAlbum(album) {
		return "non-studio release", true
	}

	if rf.cfg.NonRemaster && !remasterPattern.MatchString(album.Title) {
		return "not a remaster", true
	}

	return "", false
}

// collapseRepeats groups albums by base title and keeps one winner per group.
// The winner prefers explicit releases, then higher sampling rate, then
// higher bit depth. Order of first appearance is preserved.
func (rf *ReleaseFilter) collapseRepeats(
	ctx context.Context,
	albums []*metadata.Album,
) []*metadata.Album {
	winners := make(map[string]*metadata.Album, len(albums))
	order := make([]string, 0, len(albums))

	for _, album := range albums {
		key := repeatGroupKey(album.Title)

		current, ok := winners[key]
		if !ok {
			winners[key] = album
			order = append(order, key)

			continue
		}

		if repeatWins(album, current) {
			logger.Debugf(ctx, "Preferring %q over repeat %q", album.Title, current.Title)

			winners[key] = album
		}
	}

	result := make([]*metadata.Album, 0, len(order))
	for _, key := range order {
		result = append(result, winners[key])
	}

	return result
}

// repeatGroupKey normalizes a title down to its base form for grouping.
func repeatGroupKey(title string) string {
	match := repeatGroupPattern.FindString(title)
	if match == "" {
		match = title
	}

	return strings.ToLower(strings.TrimSpace(match))
}

// repeatWins reports whether candidate beats current within a repeat group.
func repeatWins(candidate, current *metadata.Album) bool {
	if candidate.Info.Explicit != current.Info.Explicit {
		return candidate.Info.Explicit
	}

	if candidate.Info.SamplingRate != current.Info.SamplingRate {
		return candidate.Info.SamplingRate > current.Info.SamplingRate
	}

	return candidate.Info.BitDepth > current.Info.BitDepth
}

// isStudioAlbum reports whether a release looks like a regular studio album:
// not a compilation credit and not titled like a special edition.
func isStudioAlbum(album *metadata.Album) bool {
	return !strings.EqualFold(album.AlbumArtist, variousArtistsName) &&
		!extraEditionPattern.MatchString(album.Title)
}
