package rip

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/logger"
)

// TemplateManager renders folder and track names from metadata tags.
type TemplateManager interface {
	// FormatAlbumFolderName renders the release folder name.
	FormatAlbumFolderName(ctx context.Context, tags map[string]string) string
	// FormatTrackFilename renders the track file name stem (no extension).
	// Playlist tracks use the playlist naming template.
	FormatTrackFilename(ctx context.Context, isPlaylistTrack bool, tags map[string]string) string
}

// TemplateManagerImpl implements the TemplateManager interface.
type TemplateManagerImpl struct {
	// folderTemplate renders release folder names.
	folderTemplate *template.Template
	// trackTemplate renders track filenames inside releases.
	trackTemplate *template.Template
	// playlistTrackTemplate renders track filenames inside playlists.
	playlistTrackTemplate *template.Template
}

// Pre-parsed fallbacks used when a user template fails to parse or execute.
var (
	defaultFolderTemplate = template.Must(
		template.New("folder").Parse(config.DefaultFolderFormat))
	defaultTrackTemplate = template.Must(
		template.New("track").Parse(config.DefaultTrackFormat))
	defaultPlaylistTrackTemplate = template.Must(
		template.New("playlistTrack").Parse(config.DefaultPlaylistTrackFormat))
)

// NewTemplateManager creates a new TemplateManager from the configured
// format strings. Malformed user templates are reported and replaced by the
// defaults rather than failing the run.
func NewTemplateManager(ctx context.Context, cfg *config.Config) TemplateManager {
	return &TemplateManagerImpl{
		folderTemplate: parseTemplateOrDefault(ctx,
			"folder", cfg.FolderFormat, defaultFolderTemplate),
		trackTemplate: parseTemplateOrDefault(ctx,
			"track", cfg.TrackFormat, defaultTrackTemplate),
		playlistTrackTemplate: parseTemplateOrDefault(ctx,
			"playlistTrack", cfg.PlaylistTrackFormat, defaultPlaylistTrackTemplate),
	}
}

func parseTemplateOrDefault(
	ctx context.Context,
	name, format string,
	fallback *template.Template,
) *template.Template {
	if format == "" {
		return fallback
	}

	parsed, err := template.New(name).Parse(format)
	if err != nil {
		logger.Warnf(ctx, "Invalid %s format template %q, using default: %v", name, format, err)

		return fallback
	}

	return parsed
}

// FormatAlbumFolderName renders the release folder name.
func (tm *TemplateManagerImpl) FormatAlbumFolderName(
	ctx context.Context,
	tags map[string]string,
) string {
	return executeTemplate(ctx, tm.folderTemplate, defaultFolderTemplate, tags)
}

// FormatTrackFilename renders the track file name stem.
func (tm *TemplateManagerImpl) FormatTrackFilename(
	ctx context.Context,
	isPlaylistTrack bool,
	tags map[string]string,
) string {
	if isPlaylistTrack {
		return executeTemplate(ctx, tm.playlistTrackTemplate, defaultPlaylistTrackTemplate, tags)
	}

	return executeTemplate(ctx, tm.trackTemplate, defaultTrackTemplate, tags)
}

// executeTemplate renders the template against the tags, falling back to the
// default template on execution errors (e.g. a tag the template references
// is structurally unusable).
func executeTemplate(
	ctx context.Context,
	tmpl, fallback *template.Template,
	tags map[string]string,
) string {
	rendered, err := renderTemplate(tmpl, tags)
	if err == nil {
		return rendered
	}

	logger.Warnf(ctx, "Failed to execute %q template, using default: %v", tmpl.Name(), err)

	rendered, err = renderTemplate(fallback, tags)
	if err != nil {
		logger.Errorf(ctx, "Failed to execute default %q template: %v", fallback.Name(), err)

		return ""
	}

	return rendered
}

func renderTemplate(tmpl *template.Template, tags map[string]string) (string, error) {
	var builder strings.Builder

	if err := tmpl.Execute(&builder, tags); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	// html/template escapes quotes and ampersands, which have no special
	// meaning in filenames.
	return html.UnescapeString(builder.String()), nil
}
