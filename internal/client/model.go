package client

// SearchResult is one entry of a provider search response.
type SearchResult struct {
	// Kind is what the entry points at.
	Kind Kind `json:"kind"`
	// ID is the provider-native identifier.
	ID string `json:"id"`
	// Title is the entry title (track, album, or playlist name; artist name for artists).
	Title string `json:"title"`
	// Artist is the primary artist credit, empty for artist entries.
	Artist string `json:"artist,omitempty"`
	// Year is the release year when the provider reports it.
	Year int `json:"year,omitempty"`
	// Explicit marks entries carrying explicit content.
	Explicit bool `json:"explicit,omitempty"`
	// Source is the provider name the entry came from.
	Source string `json:"source"`
	// URL is the canonical web link to the entry, when known.
	URL string `json:"url,omitempty"`
}

// FavoriteItem is one entry of the uniform user-favorites envelope.
type FavoriteItem struct {
	// ID is the provider-native identifier.
	ID string `json:"id"`
	// Kind is what the entry points at.
	Kind Kind `json:"kind"`
	// Title is the entry title, when the provider includes it in the envelope.
	Title string `json:"title,omitempty"`
}
