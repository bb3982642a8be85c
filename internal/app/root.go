package app

import (
	"context"
	"errors"

	"github.com/avoronov/ripstream/internal/config"
	"github.com/avoronov/ripstream/internal/logger"
)

// ExecuteRootCommand is the entry point of a download run. It wires the
// session, downloads everything the inputs reference, and prints the summary.
// Per-item failures leave the exit code at zero; only configuration and
// authentication errors are fatal.
func ExecuteRootCommand(ctx context.Context, cfg *config.Config, inputs []string) {
	session, err := newSession(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize: %v", err)
	}

	runErr := session.download(ctx, inputs)
	session.close(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Fatalf(ctx, "Download failed: %v", runErr)
	}
}
