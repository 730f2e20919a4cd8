package models

// SearchResult is a single retrieved passage. Distance is the store's cosine
// distance (smaller is closer); nil when the hit carries no distance, e.g.
// keyword-fallback results.
type SearchResult struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Distance *float64               `json:"distance,omitempty"`
}

// Source points a consumer back at the passage an answer was drawn from.
type Source struct {
	Source         string `json:"source"`
	ContentPreview string `json:"content_preview"`
}

// Answer is the stable contract between answer selection and any presentation
// layer. Confidence is a heuristic in [0,1]; zero signals failure or no
// information.
type Answer struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources"`
}
