package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/avoronov/ripstream/internal/constants"
	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/utils"
)

// SourceConfig holds the per-provider settings.
type SourceConfig struct {
	// Enabled indicates whether the provider may be used in this session.
	Enabled bool `mapstructure:"enabled"`
	// Token is the authentication token for the provider's API.
	Token string `mapstructure:"token"`
	// AppID is an optional application identifier required by some providers.
	AppID string `mapstructure:"app_id"`
	// AppSecret is an optional application secret required by some providers.
	AppSecret string `mapstructure:"app_secret"`
	// Quality is the requested quality tier (0=lossy-low, 1=lossy-high, 2=CD-lossless, 3=hi-res).
	Quality uint8 `mapstructure:"quality"`
	// RequestsPerMinute caps the provider API call rate.
	RequestsPerMinute int64 `mapstructure:"requests_per_minute"`
	// LowerQualityIfNotAvailable allows downgrading when the requested quality is not advertised.
	LowerQualityIfNotAvailable bool `mapstructure:"lower_quality_if_not_available"`
}

// FiltersConfig holds the discovery filter flags applied to artist and label catalogs.
type FiltersConfig struct {
	// Repeats keeps only the best edition of albums sharing a base title.
	Repeats bool `mapstructure:"repeats"`
	// Extras drops deluxe/live/collector/demo/expanded/remix editions.
	Extras bool `mapstructure:"extras"`
	// Features drops albums where the artist is only featured.
	Features bool `mapstructure:"features"`
	// NonStudioAlbums drops compilations and live recordings.
	NonStudioAlbums bool `mapstructure:"non_studio_albums"`
	// NonRemaster keeps only remastered editions.
	NonRemaster bool `mapstructure:"non_remaster"`
}

// EnrichmentConfig holds the metadata enrichment settings.
type EnrichmentConfig struct {
	// Enabled turns the external metadata lookup on.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the endpoint of the enrichment lookup service.
	BaseURL string `mapstructure:"base_url"`
	// GenreMode selects how looked-up genres merge into album metadata: "replace" or "append".
	GenreMode string `mapstructure:"genre_mode"`
}

// Config holds all configuration settings.
type Config struct {
	// OutputPath is the directory path where downloaded files will be saved.
	OutputPath string `mapstructure:"output_path"`
	// LedgerPath is the path of the durable download ledger database.
	LedgerPath string `mapstructure:"ledger_path"`
	// MaxConnections bounds the worker pool, the global download semaphore,
	// per-provider API concurrency, and enrichment concurrency.
	MaxConnections int64 `mapstructure:"max_connections"`
	// Sources maps provider names to their settings.
	Sources map[string]*SourceConfig `mapstructure:"sources"`
	// Filters are the discovery filter flags.
	Filters FiltersConfig `mapstructure:"filters"`
	// Enrichment configures the external metadata lookup.
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	// FolderFormat is the template for naming album folders.
	FolderFormat string `mapstructure:"folder_format"`
	// TrackFormat is the template for naming individual track files.
	TrackFormat string `mapstructure:"track_format"`
	// PlaylistTrackFormat is the template for naming track files downloaded from playlists.
	PlaylistTrackFormat string `mapstructure:"playlist_track_format"`
	// SourceSubdirectories places downloads under a per-provider subdirectory.
	SourceSubdirectories bool `mapstructure:"source_subdirectories"`
	// DiscSubdirectories places multi-disc album tracks under "Disc N" subdirectories.
	DiscSubdirectories bool `mapstructure:"disc_subdirectories"`
	// RestrictCharacters restricts file names to a conservative ASCII set.
	RestrictCharacters bool `mapstructure:"restrict_characters"`
	// TruncateTo is the maximum length of a track filename stem, 0 to disable.
	TruncateTo int64 `mapstructure:"truncate_to"`
	// ValidateAudio runs an external decoder over every downloaded file.
	ValidateAudio bool `mapstructure:"validate_audio"`
	// DeleteInvalidFiles removes files that fail validation.
	DeleteInvalidFiles bool `mapstructure:"delete_invalid_files"`
	// RetryOnValidationFailure re-downloads a file once when validation fails.
	RetryOnValidationFailure bool `mapstructure:"retry_on_validation_failure"`
	// DownloadFullAlbumForLikedTracks expands a liked track into its whole album.
	DownloadFullAlbumForLikedTracks bool `mapstructure:"download_full_album_for_liked_tracks"`
	// DownloadSpeedLimit sets the maximum download speed (e.g., "1MB", "500KB").
	DownloadSpeedLimit string `mapstructure:"download_speed_limit"`
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level"`
	// DryRun indicates whether to preview downloads without actually downloading files.
	DryRun bool
	// ParsedDownloadSpeedLimit is the parsed download speed limit in bytes.
	ParsedDownloadSpeedLimit int64
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level
}

const (
	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".ripstream.yaml"

	// DefaultTrackFormat is the default template for naming downloaded track files.
	DefaultTrackFormat = "{{.trackNumberPad}} - {{.trackTitle}}"

	// DefaultFolderFormat is the default template for naming folders for downloaded albums.
	DefaultFolderFormat = "{{.albumArtist}} - {{.albumTitle}} ({{.releaseYear}})"

	// DefaultPlaylistTrackFormat is the default template for naming downloaded track files from playlists.
	DefaultPlaylistTrackFormat = "{{.trackNumberPad}} - {{.trackArtist}} - {{.trackTitle}}"

	// DefaultMaxLogLength is the default maximum size (in bytes) of a dumped HTTP request or response.
	DefaultMaxLogLength = 1 * 1024 * 1024 // 1 MB

	// DefaultLedgerFilename is the default name of the ledger database file.
	DefaultLedgerFilename = "ripstream.db"

	// GenreModeReplace overwrites album genres with looked-up ones.
	GenreModeReplace = "replace"
	// GenreModeAppend merges looked-up genres after the album's own.
	GenreModeAppend = "append"

	// maxQuality is the maximum valid quality tier.
	maxQuality = 3
)

// SourceNames lists the supported providers in a stable order.
//
//nolint:gochecknoglobals // Immutable list used as a constant.
var SourceNames = []string{"qobuz", "tidal", "deezer", "soundcloud"}

// Static error definitions for better error handling.
var (
	// ErrNoSources indicates that no provider section is enabled.
	ErrNoSources = errors.New("at least one source must be enabled")
	// ErrUnknownSource indicates a sources key that is not a supported provider.
	ErrUnknownSource = errors.New("unknown source")
	// ErrInvalidQuality indicates that a per-source quality tier is invalid.
	ErrInvalidQuality = errors.New("invalid quality")
	// ErrInvalidRequestsPerMinute indicates a non-positive per-source rate limit.
	ErrInvalidRequestsPerMinute = errors.New("requests_per_minute must be a positive integer")
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrUnknownGenreMode indicates that the enrichment genre mode is not recognized.
	ErrUnknownGenreMode = errors.New("genre_mode must be 'replace' or 'append'")
	// ErrInvalidMaxConnections indicates that the connections cap is invalid.
	ErrInvalidMaxConnections = errors.New("max_connections must be a positive integer")
	// ErrNegativeTruncateTo indicates a negative filename truncation limit.
	ErrNegativeTruncateTo = errors.New("truncate_to cannot be negative")
)

// LoadConfig loads configuration settings from a YAML file.
func LoadConfig(configFilename string) (*Config, error) {
	if configFilename == "" {
		configFilename = DefaultConfigFilename
	}

	viper.SetConfigFile(configFilename)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ValidateConfig checks the configuration for validity and sets derived fields.
//
//nolint:gocognit,cyclop // Validation functions naturally have high complexity due to sequential checks.
func ValidateConfig(cfg *Config) error {
	if cfg.MaxConnections <= 0 {
		return ErrInvalidMaxConnections
	}

	hasEnabledSource := false

	for name, source := range cfg.Sources {
		if !isKnownSource(name) {
			return fmt.Errorf("%w: '%s'", ErrUnknownSource, name)
		}

		if source == nil || !source.Enabled {
			continue
		}

		hasEnabledSource = true

		if source.Quality > maxQuality {
			return fmt.Errorf("%w for source '%s': must be between 0 and %d", ErrInvalidQuality, name, maxQuality)
		}

		if source.RequestsPerMinute <= 0 {
			return fmt.Errorf("%w (source '%s')", ErrInvalidRequestsPerMinute, name)
		}
	}

	if !hasEnabledSource {
		return ErrNoSources
	}

	if cfg.TruncateTo < 0 {
		return ErrNegativeTruncateTo
	}

	switch cfg.Enrichment.GenreMode {
	case "", GenreModeReplace, GenreModeAppend:
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownGenreMode, cfg.Enrichment.GenreMode)
	}

	if cfg.Enrichment.GenreMode == "" {
		cfg.Enrichment.GenreMode = GenreModeReplace
	}

	parsedLogLevel, isLogLevelCorrect := logger.ParseLogLevel(cfg.LogLevel)
	if !isLogLevelCorrect {
		return fmt.Errorf("%w: '%s'", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = parsedLogLevel

	downloadSpeedLimit := strings.TrimSpace(cfg.DownloadSpeedLimit)

	var parsedDownloadSpeedLimit uint64

	if downloadSpeedLimit != "" && downloadSpeedLimit != "0" {
		var err error

		parsedDownloadSpeedLimit, err = humanize.ParseBytes(downloadSpeedLimit)
		if err != nil {
			return fmt.Errorf("failed to parse download speed limit: %w", err)
		}
	}

	// io.CopyN accepts only int64 so we transform it safely in order to use it later.
	cfg.ParsedDownloadSpeedLimit = utils.SafeUint64ToInt64(parsedDownloadSpeedLimit)

	if cfg.FolderFormat == "" {
		cfg.FolderFormat = DefaultFolderFormat
	}

	if cfg.TrackFormat == "" {
		cfg.TrackFormat = DefaultTrackFormat
	}

	if cfg.PlaylistTrackFormat == "" {
		cfg.PlaylistTrackFormat = DefaultPlaylistTrackFormat
	}

	if cfg.LedgerPath == "" {
		cfg.LedgerPath = DefaultLedgerFilename
	}

	return nil
}

// SaveConfig writes the current source tokens back to the configuration file
// while preserving the original format and key order.
func SaveConfig(cfg *Config) error {
	configFile := getConfigFilePath()

	// Read the original file content.
	originalContent, err := os.ReadFile(configFile)
	if err != nil {
		return handleMissingConfigFile(configFile, cfg, err)
	}

	// Parse YAML while preserving order using yaml.Node.
	var node yaml.Node
	if err = yaml.Unmarshal(originalContent, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for name, source := range cfg.Sources {
		if source == nil {
			continue
		}

		updateSourceTokenInNode(&node, name, source.Token)
	}

	// Marshal back to YAML (preserves order).
	newContent, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	// Write the file back with preserved order.
	if err = os.WriteFile(configFile, newContent, constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isKnownSource(name string) bool {
	for _, known := range SourceNames {
		if name == known {
			return true
		}
	}

	return false
}

// getConfigFilePath returns the config file path from viper or the default.
func getConfigFilePath() string {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		return DefaultConfigFilename
	}

	return configFile
}

// handleMissingConfigFile creates a new config file if it doesn't exist.
func handleMissingConfigFile(configFile string, cfg *Config, err error) error {
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// File doesn't exist, create it with viper.
	for name, source := range cfg.Sources {
		if source == nil {
			continue
		}

		viper.Set(fmt.Sprintf("sources.%s.token", name), source.Token)
	}

	if err = viper.SafeWriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	return nil
}

// updateSourceTokenInNode updates sources.<name>.token in the YAML node tree.
func updateSourceTokenInNode(node *yaml.Node, sourceName, token string) {
	// The root node is a document node, content[0] is the actual map.
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return
	}

	sourcesNode := findMappingValue(node.Content[0], "sources")
	if sourcesNode == nil || sourcesNode.Kind != yaml.MappingNode {
		return
	}

	sourceNode := findMappingValue(sourcesNode, sourceName)
	if sourceNode == nil || sourceNode.Kind != yaml.MappingNode {
		return
	}

	tokenNode := findMappingValue(sourceNode, "token")
	if tokenNode == nil {
		return
	}

	// Update the value while preserving style.
	tokenNode.Value = token

	// Ensure it's quoted if it contains special characters.
	if tokenNode.Style == 0 {
		tokenNode.Style = yaml.DoubleQuotedStyle
	}
}

// findMappingValue returns the value node for the given key in a mapping node.
func findMappingValue(mapNode *yaml.Node, key string) *yaml.Node {
	// Key-value pairs are stored as alternating nodes.
	for i := 0; i+1 < len(mapNode.Content); i += 2 {
		if mapNode.Content[i].Value == key {
			return mapNode.Content[i+1]
		}
	}

	return nil
}
