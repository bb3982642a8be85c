package client

import "errors"

// Static error definitions shared by all provider adapters.
// The orchestrator branches on these kinds to decide between
// per-item recording, retrying, and aborting the session.
var (
	// ErrMissingCredentials indicates that the provider section lacks a token
	// or credentials. Fatal: the session cannot start.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrAuth indicates that the provider rejected the credentials. Fatal.
	ErrAuth = errors.New("authentication failed")
	// ErrNotStreamable indicates the provider refuses to serve the item.
	// Per-item, terminal.
	ErrNotStreamable = errors.New("item is not streamable")
	// ErrQualityUnavailable indicates the requested quality tier is not offered
	// and downgrading is disabled. Per-item, terminal.
	ErrQualityUnavailable = errors.New("requested quality unavailable")
	// ErrNotFound indicates the provider has no item with that id. Per-item, terminal.
	ErrNotFound = errors.New("item not found")
	// ErrUnexpectedHTTPStatus indicates an unexpected HTTP status code was received.
	// Retryable at the task boundary.
	ErrUnexpectedHTTPStatus = errors.New("unexpected HTTP status")
	// ErrUnexpectedResponseFormat indicates a payload the mapper cannot interpret.
	// Per-item, terminal, and deliberately not recorded as a failure.
	ErrUnexpectedResponseFormat = errors.New("unexpected response format")
	// ErrUnsupportedKind indicates the provider does not support the requested
	// reference kind (e.g. labels on providers without a label catalog).
	ErrUnsupportedKind = errors.New("unsupported reference kind")
)
