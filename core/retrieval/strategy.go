package retrieval

import (
	"context"
	"log/slog"
	"math"

	"github.com/siherrmann/ragcore/model"
)

// Strategy defines a retrieval strategy
type Strategy interface {
	Retrieve(ctx context.Context, embedding []float32, config *model.RetrieverConfig) ([]*model.Match, error)
}

// StrategyFor maps the configured strategy kind to an implementation.
// Unknown kinds are logged and downgraded to similarity instead of
// failing the query.
func StrategyFor(engine *Engine, raw string) Strategy {
	kind, ok := model.ParseKind(raw)
	if !ok {
		engine.log.Warn("Unsupported retriever strategy, using similarity",
			slog.String("strategy", raw))
	}

	switch kind {
	case model.KindDiversity:
		return NewDiversityStrategy(engine)
	case model.KindThreshold:
		return NewThresholdStrategy(engine)
	default:
		return NewSimilarityStrategy(engine)
	}
}

// SimilarityStrategy returns the top-K nearest chunks by the store's
// native distance metric.
type SimilarityStrategy struct {
	engine *Engine
}

// NewSimilarityStrategy creates a new similarity strategy
func NewSimilarityStrategy(engine *Engine) *SimilarityStrategy {
	return &SimilarityStrategy{engine: engine}
}

// Retrieve performs plain top-K similarity retrieval
func (s *SimilarityStrategy) Retrieve(ctx context.Context, embedding []float32, config *model.RetrieverConfig) ([]*model.Match, error) {
	results, err := s.engine.Search(ctx, embedding, config.TopK, config.Filter)
	if err != nil {
		return nil, err
	}
	return matches(results, model.KindSimilarity), nil
}

// ThresholdStrategy behaves like similarity but drops every candidate
// whose normalized score is below the configured threshold. It may
// return fewer than top-K results, including none at all.
type ThresholdStrategy struct {
	engine *Engine
}

// NewThresholdStrategy creates a new threshold strategy
func NewThresholdStrategy(engine *Engine) *ThresholdStrategy {
	return &ThresholdStrategy{engine: engine}
}

// Retrieve performs threshold-gated similarity retrieval
func (s *ThresholdStrategy) Retrieve(ctx context.Context, embedding []float32, config *model.RetrieverConfig) ([]*model.Match, error) {
	results, err := s.engine.Search(ctx, embedding, config.TopK, config.Filter)
	if err != nil {
		return nil, err
	}

	kept := make([]model.ScoredRecord, 0, len(results))
	for _, result := range results {
		if result.Score >= config.ScoreThreshold {
			kept = append(kept, result)
		}
	}
	return matches(kept, model.KindThreshold), nil
}

// DiversityStrategy performs maximal-marginal-relevance selection: it
// fetches a larger candidate pool and greedily picks top-K results
// balancing relevance to the query against dissimilarity to the
// already-selected picks. Lambda weighs the two, 1 meaning pure
// relevance and 0 pure diversity.
type DiversityStrategy struct {
	engine *Engine
}

// NewDiversityStrategy creates a new diversity strategy
func NewDiversityStrategy(engine *Engine) *DiversityStrategy {
	return &DiversityStrategy{engine: engine}
}

// Retrieve performs MMR retrieval over a fetch-K candidate pool
func (s *DiversityStrategy) Retrieve(ctx context.Context, embedding []float32, config *model.RetrieverConfig) ([]*model.Match, error) {
	candidates, err := s.engine.Search(ctx, embedding, config.EffectiveFetchK(), config.Filter)
	if err != nil {
		return nil, err
	}

	selected := selectMMR(candidates, config.TopK, config.Lambda)
	return matches(selected, model.KindDiversity), nil
}

// selectMMR greedily picks up to topK candidates by maximal marginal
// relevance. Candidates arrive in descending relevance order; ties keep
// that order because only a strictly better score replaces the current
// pick.
func selectMMR(candidates []model.ScoredRecord, topK int, lambda float64) []model.ScoredRecord {
	if topK <= 0 || len(candidates) == 0 {
		return []model.ScoredRecord{}
	}
	if topK > len(candidates) {
		topK = len(candidates)
	}

	selected := make([]model.ScoredRecord, 0, topK)
	remaining := make([]model.ScoredRecord, len(candidates))
	copy(remaining, candidates)

	// The most relevant candidate is always picked first
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := 0
		bestScore := mmrScore(remaining[0], selected, lambda)

		for i := 1; i < len(remaining); i++ {
			score := mmrScore(remaining[i], selected, lambda)
			if score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

func mmrScore(candidate model.ScoredRecord, selected []model.ScoredRecord, lambda float64) float64 {
	maxSimilarity := 0.0
	for _, pick := range selected {
		similarity := (1 + cosineSimilarity(candidate.Record.Vector, pick.Record.Vector)) / 2
		if similarity > maxSimilarity {
			maxSimilarity = similarity
		}
	}
	return lambda*candidate.Score - (1-lambda)*maxSimilarity
}

// cosineSimilarity calculates the cosine similarity between two embedding vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
