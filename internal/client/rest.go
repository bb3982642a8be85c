package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	http_transport "github.com/avoronov/ripstream/internal/transport/http"
	"github.com/avoronov/ripstream/internal/utils"
)

// restClient is the shared HTTP plumbing of all provider adapters:
// one decorated http.Client per provider plus the session headers the
// provider requires on every API call.
type restClient struct {
	// baseURL is the provider API root.
	baseURL string
	// httpClient carries the logging and User-Agent transport decorators.
	httpClient *http.Client
	// headers are applied to every API request (auth tokens and friends).
	headers map[string]string
}

func newRESTClient(baseURL string, headers map[string]string) *restClient {
	return &restClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: http_transport.NewUserAgentInjector(
				http_transport.NewLogTransport(http.DefaultTransport, 0),
				utils.NewSimpleUserAgentProvider(http_transport.DefaultUserAgent)),
			Timeout: http_transport.DefaultTimeout,
		},
		headers: headers,
	}
}

// setHeader replaces a session header, e.g. after a token refresh.
func (rc *restClient) setHeader(name, value string) {
	rc.headers[name] = value
}

//nolint:revive // Free function because Go doesn't allow struct methods to be generic.
func fetchJSON[T any](rc *restClient, ctx context.Context, uri string, query url.Values) (*T, error) {
	route, err := url.JoinPath(rc.baseURL, uri)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, route, http.NoBody)
	if err != nil {
		return nil, err
	}

	for name, value := range rc.headers {
		request.Header.Set(name, value)
	}

	if query != nil {
		request.URL.RawQuery = query.Encode()
	}

	response, err := rc.httpClient.Do(request)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", ErrAuth, response.StatusCode)
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	var result T
	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponseFormat, err)
	}

	return &result, nil
}
