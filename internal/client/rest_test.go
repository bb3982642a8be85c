package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFetchJSONStatusMapping tests the HTTP status to sentinel error mapping.
func TestFetchJSONStatusMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		status        int
		body          string
		expectedError error
	}{
		{
			name:   "ok decodes the payload",
			status: http.StatusOK,
			body:   `{"id": 7}`,
		},
		{
			name:          "unauthorized maps to auth error",
			status:        http.StatusUnauthorized,
			expectedError: ErrAuth,
		},
		{
			name:          "forbidden maps to auth error",
			status:        http.StatusForbidden,
			expectedError: ErrAuth,
		},
		{
			name:          "not found maps to its sentinel",
			status:        http.StatusNotFound,
			expectedError: ErrNotFound,
		},
		{
			name:          "server error maps to unexpected status",
			status:        http.StatusInternalServerError,
			expectedError: ErrUnexpectedHTTPStatus,
		},
		{
			name:          "garbage body maps to format error",
			status:        http.StatusOK,
			body:          "<html>not json</html>",
			expectedError: ErrUnexpectedResponseFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			rc := newRESTClient(server.URL, nil)

			result, err := fetchJSON[struct {
				ID int64 `json:"id"`
			}](rc, t.Context(), "whatever", nil)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(7), result.ID)
		})
	}
}

// TestFetchJSONSendsHeadersAndQuery tests that session headers and query
// parameters reach the server.
func TestFetchJSONSendsHeadersAndQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-123", r.Header.Get("X-User-Auth-Token"))
		assert.Equal(t, "42", r.URL.Query().Get("track_id"))

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	rc := newRESTClient(server.URL, map[string]string{"X-User-Auth-Token": "token-123"})

	query := url.Values{}
	query.Set("track_id", "42")

	_, err := fetchJSON[map[string]any](rc, t.Context(), "track/get", query)
	require.NoError(t, err)
}

// TestHTTPDownloadableOpen tests the byte transfer path, including the
// Range request and partial-content acceptance.
func TestHTTPDownloadableOpen(t *testing.T) {
	t.Parallel()

	const payload = "audio bytes"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=0-", r.Header.Get("Range"))

		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	downloadable := NewHTTPDownloadable(server.Client(), server.URL, ".flac", "qobuz", nil)

	assert.Equal(t, "flac", downloadable.Extension())
	assert.Equal(t, "qobuz", downloadable.Source())

	reader, size, err := downloadable.Open(t.Context())
	require.NoError(t, err)

	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
	assert.Equal(t, int64(len(payload)), size)
}

// TestHTTPDownloadableSize tests the HEAD-based size probe.
func TestHTTPDownloadableSize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", "12345")
	}))
	defer server.Close()

	downloadable := NewHTTPDownloadable(server.Client(), server.URL, "mp3", "deezer", nil)

	size, err := downloadable.Size(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(12345), size)
}
