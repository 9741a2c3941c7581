package model

// SearchResult is one hit from a search provider. Ephemeral, produced per
// query, never persisted.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}
