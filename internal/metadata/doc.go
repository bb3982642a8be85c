// Package metadata defines the provider-agnostic album and track model
// shared by all provider adapters, plus the enrichment decorator that
// augments albums from an external cultural database.
package metadata
