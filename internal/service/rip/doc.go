// Package rip implements the download orchestration pipeline: turning URLs
// and native references into resolved tracks, scheduling them on a bounded
// worker pool with retry, and finishing each file with tags, validation, and
// an atomic rename. Session results are tracked in statistics and a
// persistent ledger keeps repeated runs idempotent.
package rip
