package mode

// Mode is the retrieval strategy a backend query resolves to.
type Mode string

const (
	// FullText is BM25 over the indexed content.
	FullText Mode = "full_text"
	// Vector is KNN similarity over the embedding.
	Vector Mode = "vector"
	// Hybrid fuses full-text and vector legs.
	Hybrid Mode = "hybrid"
	// Browse is a filter-only listing (tag pages, trending, popular).
	Browse Mode = "browse"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	switch m {
	case FullText, Vector, Hybrid, Browse:
		return true
	}
	return false
}
