package rip

//go:generate $MOCKGEN -source=track_validator.go -destination=mocks/track_validator_mock.go

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
)

// Decoder binaries used for integrity checks.
const (
	flacBinary    = "flac"
	ffprobeBinary = "ffprobe"
)

// TrackValidator checks downloaded audio files for corruption by running
// them through a decoder.
type TrackValidator interface {
	// ValidateFile decodes the file and reports corruption as an error
	// wrapping ErrValidationFailed.
	ValidateFile(ctx context.Context, path string, container metadata.Container) error
}

// TrackValidatorImpl implements TrackValidator on top of the flac and
// ffprobe command-line tools.
type TrackValidatorImpl struct {
	// lookPath is swappable for tests.
	lookPath func(file string) (string, error)

	missingTools map[string]bool
	missingMutex sync.Mutex
}

// NewTrackValidator creates a new TrackValidator.
func NewTrackValidator() TrackValidator {
	return &TrackValidatorImpl{
		lookPath:     exec.LookPath,
		missingTools: make(map[string]bool),
	}
}

// ValidateFile decodes the file with the container's decoder. A missing
// decoder binary downgrades validation to a one-time warning instead of
// failing every track.
func (tv *TrackValidatorImpl) ValidateFile(
	ctx context.Context,
	path string,
	container metadata.Container,
) error {
	binary, args := tv.commandFor(path, container)

	if _, err := tv.lookPath(binary); err != nil {
		tv.warnMissingTool(ctx, binary)

		return nil
	}

	command := exec.CommandContext(ctx, binary, args...)

	var stderr bytes.Buffer
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}

		return fmt.Errorf("%w: %s", ErrValidationFailed, detail)
	}

	return nil
}

func (tv *TrackValidatorImpl) commandFor(
	path string,
	container metadata.Container,
) (string, []string) {
	if container == metadata.ContainerFLAC {
		return flacBinary, []string{"-t", "-s", path}
	}

	return ffprobeBinary, []string{"-v", "error", "-i", path}
}

func (tv *TrackValidatorImpl) warnMissingTool(ctx context.Context, binary string) {
	tv.missingMutex.Lock()
	defer tv.missingMutex.Unlock()

	if tv.missingTools[binary] {
		return
	}

	tv.missingTools[binary] = true

	logger.Warnf(ctx, "Validation tool %q not found in PATH, skipping audio validation", binary)
}
