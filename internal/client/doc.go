// Package client defines the provider capability interface and the four
// provider adapters (Qobuz, Tidal, Deezer, SoundCloud), each wrapped with
// its per-provider rate limiter and concurrency semaphore.
package client
