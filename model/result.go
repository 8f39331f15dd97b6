package model

// ScoredRecord is a stored record together with its normalized relevance
// score as returned by a vector store search. Scores are in [0, 1] with
// 1.0 meaning most relevant. Stores return results in descending score
// order with ties broken by insertion order.
type ScoredRecord struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// Match represents a chunk retrieved by a query
type Match struct {
	Chunk    Chunk   `json:"chunk"`
	Score    float64 `json:"score"`    // Normalized relevance score in [0, 1]
	Strategy Kind    `json:"strategy"` // How it was retrieved
}
