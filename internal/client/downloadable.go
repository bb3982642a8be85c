package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Downloadable is an opaque handle produced by a provider client for a
// chosen quality. Handles are obtained at task-execution time, not at
// enqueue time, so stream URLs do not expire in the queue.
type Downloadable interface {
	// Extension returns the file extension without the leading dot ("flac", "mp3", "m4a").
	Extension() string
	// Source returns the provider name that produced this handle.
	Source() string
	// Size returns the total byte size of the stream, or -1 when unknown.
	Size(ctx context.Context) (int64, error)
	// Open starts the byte transfer and returns the stream with its total size
	// (-1 when unknown). The caller owns the returned reader.
	Open(ctx context.Context) (io.ReadCloser, int64, error)
}

// HTTPDownloadable is a Downloadable backed by a plain HTTP stream URL.
// All four providers serve their audio this way.
type HTTPDownloadable struct {
	// url is the stream URL.
	url string
	// extension is the file extension, without the leading dot.
	extension string
	// source is the provider name.
	source string
	// httpClient is the provider's HTTP client, carrying its session transport.
	httpClient *http.Client
	// headers are extra request headers some providers require on media hosts.
	headers map[string]string
}

var _ Downloadable = (*HTTPDownloadable)(nil)

// NewHTTPDownloadable creates a Downloadable for an HTTP stream URL.
func NewHTTPDownloadable(
	httpClient *http.Client,
	url, extension, source string,
	headers map[string]string,
) *HTTPDownloadable {
	return &HTTPDownloadable{
		url:        url,
		extension:  strings.TrimPrefix(extension, "."),
		source:     source,
		httpClient: httpClient,
		headers:    headers,
	}
}

// Extension returns the file extension without the leading dot.
func (d *HTTPDownloadable) Extension() string {
	return d.extension
}

// Source returns the provider name that produced this handle.
func (d *HTTPDownloadable) Source() string {
	return d.source
}

// Size returns the total byte size of the stream via a HEAD request,
// or -1 when the server does not report it.
func (d *HTTPDownloadable) Size(ctx context.Context) (int64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodHead, d.url, http.NoBody)
	if err != nil {
		return -1, err
	}

	d.applyHeaders(request)

	response, err := d.httpClient.Do(request)
	if err != nil {
		return -1, err
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return -1, fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	return response.ContentLength, nil
}

// Open starts the byte transfer.
func (d *HTTPDownloadable) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, http.NoBody)
	if err != nil {
		return nil, 0, err
	}

	d.applyHeaders(request)

	// Request partial content so resumable hosts report the full length.
	request.Header.Add("Range", "bytes=0-")

	response, err := d.httpClient.Do(request)
	if err != nil {
		return nil, 0, err
	}

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusPartialContent {
		response.Body.Close() //nolint:errcheck,gosec // Error on close is not critical here.

		return nil, 0, fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	return response.Body, response.ContentLength, nil
}

func (d *HTTPDownloadable) applyHeaders(request *http.Request) {
	for name, value := range d.headers {
		request.Header.Set(name, value)
	}
}
