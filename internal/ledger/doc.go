// Package ledger persists the record of downloaded tracks, completed releases,
// and failed items so repeated invocations are idempotent.
package ledger
