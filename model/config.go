package model

// Kind selects the retrieval strategy used to rank stored chunks
// against a query vector.
type Kind string

const (
	KindSimilarity Kind = "similarity"
	KindDiversity  Kind = "mmr"
	KindThreshold  Kind = "similarity_score_threshold"
)

// ParseKind normalizes a raw strategy name. The second return value is
// false for unknown names, in which case the caller should log a warning
// and fall back to KindSimilarity rather than fail the query.
func ParseKind(raw string) (Kind, bool) {
	switch Kind(raw) {
	case KindSimilarity, KindDiversity, KindThreshold:
		return Kind(raw), true
	case "":
		return KindSimilarity, true
	default:
		return KindSimilarity, false
	}
}

// RetrieverConfig represents configuration for a retrieval query.
// It is constructed per query and immutable for the query's duration.
type RetrieverConfig struct {
	Kind Kind `json:"kind"`
	TopK int  `json:"top_k"`

	// Diversity (MMR) parameters
	FetchK int     `json:"fetch_k,omitempty"` // Candidate pool size, defaults to max(2*TopK, TopK)
	Lambda float64 `json:"lambda,omitempty"`  // 1 = pure relevance, 0 = pure diversity

	// Threshold parameters
	ScoreThreshold float64 `json:"score_threshold,omitempty"` // Minimum normalized score in [0, 1]

	// Exact-match metadata filter applied at the store level
	Filter Metadata `json:"filter,omitempty"`
}

// DefaultRetrieverConfig returns a sensible default configuration
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		Kind:           KindSimilarity,
		TopK:           5,
		Lambda:         0.5,
		ScoreThreshold: 0.5,
	}
}

// EffectiveFetchK returns the candidate pool size for diversity
// retrieval, never smaller than TopK.
func (c *RetrieverConfig) EffectiveFetchK() int {
	fetchK := c.FetchK
	if fetchK <= 0 {
		fetchK = 2 * c.TopK
	}
	if fetchK < c.TopK {
		fetchK = c.TopK
	}
	return fetchK
}
