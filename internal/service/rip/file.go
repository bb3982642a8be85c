package rip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/avoronov/ripstream/internal/constants"
)

// File open options for downloads.
const (
	// overwriteFileOptions opens a file for writing, truncating existing content.
	overwriteFileOptions = os.O_CREATE | os.O_TRUNC | os.O_WRONLY
	// createNewFileOptions opens a file for writing only if it does not exist.
	createNewFileOptions = os.O_CREATE | os.O_EXCL | os.O_WRONLY
)

// downloadFileToPath fetches a URL into targetPath through a uniquely named
// temporary file, so a crash never leaves a half-written file under the
// final name.
func downloadFileToPath(
	ctx context.Context,
	httpClient *http.Client,
	sourceURL, targetPath string,
) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to download %q: %w", sourceURL, err)
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d downloading %q", response.StatusCode, sourceURL)
	}

	tempPath := filepath.Join(filepath.Dir(targetPath),
		uuid.NewString()+constants.ExtensionBin)

	if err = writeStreamToFile(response.Body, tempPath); err != nil {
		return err
	}

	if err = os.Rename(tempPath, targetPath); err != nil {
		// Best effort: drop the orphan before reporting.
		_ = os.Remove(tempPath)

		return fmt.Errorf("failed to move %q into place: %w", targetPath, err)
	}

	return nil
}

func writeStreamToFile(reader io.Reader, path string) error {
	file, err := os.OpenFile(filepath.Clean(path), createNewFileOptions, constants.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", path, err)
	}

	if _, err = io.Copy(file, reader); err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return fmt.Errorf("failed to write %q: %w", path, err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", path, err)
	}

	return nil
}
