package rip

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/utils"
)

const (
	urlPatternSourceGroup = "SOURCE"
	urlPatternKindGroup   = "KIND"
	urlPatternIDGroup     = "ID"

	textFileExtension = ".txt"
)

// WebResolver resolves a provider web URL into a kind and a native ID.
// SoundCloud permalink URLs carry no numeric ID, so the provider API has to
// be asked.
type WebResolver interface {
	Resolve(ctx context.Context, webURL string) (client.Kind, string, error)
}

// RejectedInput is an input line that could not be turned into a DownloadItem.
type RejectedInput struct {
	// Input is the original line.
	Input string
	// Err explains the rejection.
	Err error
}

// URLProcessor converts raw input arguments (web URLs, native references,
// .txt link files) into deduplicated download items.
type URLProcessor interface {
	// ProcessInputs flattens .txt files and parses each line into a
	// DownloadItem. Lines that match no pattern are returned as rejected,
	// not dropped silently.
	ProcessInputs(ctx context.Context, inputs []string) ([]DownloadItem, []RejectedInput, error)
	// DeduplicateDownloadItems removes duplicate items while preserving the
	// order of first appearance.
	DeduplicateDownloadItems(ctx context.Context, items []DownloadItem) []DownloadItem
}

// urlRule binds a compiled pattern to the provider and kind it identifies.
// Patterns either fix the kind or capture it in the KIND group.
type urlRule struct {
	pattern *regexp.Regexp
	source  string
	kind    client.Kind
}

//nolint:lll
var (
	// nativeReferencePattern accepts "source:kind:id" shorthand,
	// e.g. "qobuz:album:0060254735180".
	nativeReferencePattern = regexp.MustCompile(`^(?P<SOURCE>qobuz|tidal|deezer|soundcloud):(?P<KIND>track|album|artist|label|playlist):(?P<ID>\S+)$`)

	// nativeFavoritesPattern accepts "source:favorites:childKind:userID".
	nativeFavoritesPattern = regexp.MustCompile(`^(?P<SOURCE>qobuz|tidal|deezer|soundcloud):favorites:(?P<KIND>tracks|albums|artists|playlists):(?P<ID>\S+)$`)

	// deezerShortLinkPattern matches share links that redirect to a full URL.
	deezerShortLinkPattern = regexp.MustCompile(`^https?://(?:deezer\.page\.link|link\.deezer\.com|dzr\.page\.link)/`)

	// soundcloudURLPattern matches permalink URLs that need API resolution.
	soundcloudURLPattern = regexp.MustCompile(`^https?://(?:www\.|m\.)?soundcloud\.com/\S+$`)

	urlRules = []urlRule{
		{
			pattern: regexp.MustCompile(`qobuz\.com/(?:[a-z]{2}-[a-z]{2}/)?album/(?:[^/]+/)?(?P<ID>\w+)`),
			source:  client.SourceQobuz,
			kind:    client.KindAlbum,
		},
		{
			pattern: regexp.MustCompile(`qobuz\.com/(?:[a-z]{2}-[a-z]{2}/)?track/(?P<ID>\d+)`),
			source:  client.SourceQobuz,
			kind:    client.KindTrack,
		},
		{
			pattern: regexp.MustCompile(`qobuz\.com/(?:[a-z]{2}-[a-z]{2}/)?(?:artist|interpreter)/(?:[^/]+/)?(?P<ID>\d+)`),
			source:  client.SourceQobuz,
			kind:    client.KindArtist,
		},
		{
			pattern: regexp.MustCompile(`qobuz\.com/(?:[a-z]{2}-[a-z]{2}/)?label/(?:[\w-]+/)*(?P<ID>\d+)`),
			source:  client.SourceQobuz,
			kind:    client.KindLabel,
		},
		{
			pattern: regexp.MustCompile(`qobuz\.com/(?:[a-z]{2}-[a-z]{2}/)?playlist/(?:[^/]+/)?(?P<ID>\d+)`),
			source:  client.SourceQobuz,
			kind:    client.KindPlaylist,
		},
		{
			pattern: regexp.MustCompile(`tidal\.com/(?:browse/)?(?P<KIND>track|album|artist|playlist)/(?P<ID>[-\w]+)`),
			source:  client.SourceTidal,
		},
		{
			pattern: regexp.MustCompile(`deezer\.com/(?:[a-z]{2}/)?(?P<KIND>track|album|artist|playlist)/(?P<ID>\d+)`),
			source:  client.SourceDeezer,
		},
		{
			pattern: regexp.MustCompile(`deezer\.com/(?:[a-z]{2}/)?profile/(?P<ID>\d+)/(?P<KIND>tracks|albums|artists|playlists)`),
			source:  client.SourceDeezer,
			kind:    client.KindFavorites,
		},
	}

	// childKindsByPathSegment maps favorites path segments to the kind of
	// items they list.
	childKindsByPathSegment = map[string]client.Kind{
		"tracks":    client.KindTrack,
		"albums":    client.KindAlbum,
		"artists":   client.KindArtist,
		"playlists": client.KindPlaylist,
	}
)

// URLProcessorImpl implements the URLProcessor interface.
type URLProcessorImpl struct {
	// resolvers maps source names to their API-backed URL resolvers.
	resolvers map[string]WebResolver
	// httpClient follows share-link redirects to their canonical URLs.
	httpClient *http.Client
	// enabledSources marks providers with usable credentials.
	enabledSources map[string]bool
}

// NewURLProcessor creates a new URLProcessor.
func NewURLProcessor(
	resolvers map[string]WebResolver,
	httpClient *http.Client,
	enabledSources map[string]bool,
) URLProcessor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &URLProcessorImpl{
		resolvers:      resolvers,
		httpClient:     httpClient,
		enabledSources: enabledSources,
	}
}

// ProcessInputs flattens .txt files and parses every line into a DownloadItem.
func (up *URLProcessorImpl) ProcessInputs(
	ctx context.Context,
	inputs []string,
) ([]DownloadItem, []RejectedInput, error) {
	flattened, err := up.flattenInputs(ctx, inputs)
	if err != nil {
		return nil, nil, err
	}

	var (
		items    []DownloadItem
		rejected []RejectedInput
	)

	for _, input := range flattened {
		item, parseErr := up.parseInput(ctx, input)
		if parseErr != nil {
			logger.Warnf(ctx, "Skipping input %q: %v", input, parseErr)

			rejected = append(rejected, RejectedInput{Input: input, Err: parseErr})

			continue
		}

		items = append(items, item)
	}

	return items, rejected, nil
}

// DeduplicateDownloadItems removes duplicates while keeping first-seen order.
func (up *URLProcessorImpl) DeduplicateDownloadItems(
	ctx context.Context,
	items []DownloadItem,
) []DownloadItem {
	seen := make(map[ShortDownloadItem]struct{}, len(items))
	result := make([]DownloadItem, 0, len(items))

	for _, item := range items {
		key := item.GetShortVersion()
		if _, ok := seen[key]; ok {
			logger.Debugf(ctx, "Dropping duplicate item (%s)", item)

			continue
		}

		seen[key] = struct{}{}

		result = append(result, item)
	}

	return result
}

// flattenInputs replaces every .txt argument with its unique non-empty lines.
func (up *URLProcessorImpl) flattenInputs(ctx context.Context, inputs []string) ([]string, error) {
	result := make([]string, 0, len(inputs))

	for _, input := range inputs {
		if !strings.HasSuffix(strings.ToLower(input), textFileExtension) {
			result = append(result, input)

			continue
		}

		lines, err := utils.ReadUniqueLinesFromFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read links from %q: %w", input, err)
		}

		logger.Debugf(ctx, "Expanded %q into %d links", input, len(lines))

		result = append(result, lines...)
	}

	return result, nil
}

func (up *URLProcessorImpl) parseInput(ctx context.Context, input string) (DownloadItem, error) {
	input = strings.TrimSpace(input)

	if item, ok := up.parseNativeReference(input); ok {
		return up.checkSource(item)
	}

	if deezerShortLinkPattern.MatchString(input) {
		expanded, err := up.expandShortLink(ctx, input)
		if err != nil {
			return DownloadItem{}, err
		}

		input = expanded
	}

	if soundcloudURLPattern.MatchString(input) {
		return up.resolveWebURL(ctx, client.SourceSoundcloud, input)
	}

	for _, rule := range urlRules {
		if !rule.pattern.MatchString(input) {
			continue
		}

		item := DownloadItem{
			Source: rule.source,
			Kind:   rule.kind,
			ItemID: utils.ExtractNamedGroup(rule.pattern, urlPatternIDGroup, input),
			URL:    input,
		}

		kindGroup := utils.ExtractNamedGroup(rule.pattern, urlPatternKindGroup, input)
		if kindGroup != "" {
			if childKind, isFavorites := childKindsByPathSegment[kindGroup]; isFavorites {
				item.Kind = client.KindFavorites
				item.ChildKind = childKind
			} else {
				item.Kind = client.Kind(kindGroup)
			}
		}

		if item.ItemID == "" {
			break
		}

		return up.checkSource(item)
	}

	return DownloadItem{}, fmt.Errorf("%w: %q", ErrUnsupportedURL, input)
}

// parseNativeReference handles "source:kind:id" and "source:favorites:kind:id"
// shorthand references.
func (up *URLProcessorImpl) parseNativeReference(input string) (DownloadItem, bool) {
	if matched := nativeReferencePattern.MatchString(input); matched {
		return DownloadItem{
			Source: utils.ExtractNamedGroup(nativeReferencePattern, urlPatternSourceGroup, input),
			Kind:   client.Kind(utils.ExtractNamedGroup(nativeReferencePattern, urlPatternKindGroup, input)),
			ItemID: utils.ExtractNamedGroup(nativeReferencePattern, urlPatternIDGroup, input),
			URL:    input,
		}, true
	}

	if matched := nativeFavoritesPattern.MatchString(input); matched {
		segment := utils.ExtractNamedGroup(nativeFavoritesPattern, urlPatternKindGroup, input)

		return DownloadItem{
			Source:    utils.ExtractNamedGroup(nativeFavoritesPattern, urlPatternSourceGroup, input),
			Kind:      client.KindFavorites,
			ItemID:    utils.ExtractNamedGroup(nativeFavoritesPattern, urlPatternIDGroup, input),
			URL:       input,
			ChildKind: childKindsByPathSegment[segment],
		}, true
	}

	return DownloadItem{}, false
}

// resolveWebURL asks the provider API what a permalink URL points at.
func (up *URLProcessorImpl) resolveWebURL(
	ctx context.Context,
	source, webURL string,
) (DownloadItem, error) {
	resolver, ok := up.resolvers[source]
	if !ok {
		return DownloadItem{}, fmt.Errorf("%w: no resolver for source %q", ErrUnsupportedURL, source)
	}

	kind, id, err := resolver.Resolve(ctx, webURL)
	if err != nil {
		return DownloadItem{}, fmt.Errorf("failed to resolve %q: %w", webURL, err)
	}

	return up.checkSource(DownloadItem{
		Source: source,
		Kind:   kind,
		ItemID: id,
		URL:    webURL,
	})
}

// expandShortLink follows the share-link redirect chain and returns the final URL.
func (up *URLProcessorImpl) expandShortLink(ctx context.Context, shortURL string) (string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build short link request: %w", err)
	}

	response, err := up.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("failed to expand short link %q: %w", shortURL, err)
	}

	defer response.Body.Close()

	finalURL := response.Request.URL.String()

	logger.Debugf(ctx, "Expanded short link %q to %q", shortURL, finalURL)

	return finalURL, nil
}

func (up *URLProcessorImpl) checkSource(item DownloadItem) (DownloadItem, error) {
	if up.enabledSources != nil && !up.enabledSources[item.Source] {
		return DownloadItem{}, fmt.Errorf("%w: %s", ErrSourceDisabled, item.Source)
	}

	return item, nil
}
