package retrieval

import (
	"context"
	"log/slog"

	"github.com/siherrmann/ragcore/collection"
	"github.com/siherrmann/ragcore/model"
	"github.com/siherrmann/ragcore/store"
)

// Engine executes vector searches against the active collection. The
// collection name is re-read from the namespace manager on every call so
// a backend fallback switches the search target immediately.
type Engine struct {
	store store.Store
	names *collection.Manager
	log   *slog.Logger
}

// NewEngine creates a new retrieval engine
func NewEngine(st store.Store, names *collection.Manager, logger *slog.Logger) *Engine {
	return &Engine{
		store: st,
		names: names,
		log:   logger,
	}
}

// Search returns up to limit candidates ranked by normalized relevance.
// The metadata filter is pushed down into the store, so filtering
// happens before ranking. Dimensionality errors from the store pass
// through untouched; recovery is the caller's concern.
func (e *Engine) Search(ctx context.Context, vector []float32, limit int, filter model.Metadata) ([]model.ScoredRecord, error) {
	return e.store.Search(ctx, e.names.CurrentName(), vector, limit, filter)
}

// matches converts scored records into retrieval matches, copying text
// and metadata out of the stored records.
func matches(results []model.ScoredRecord, kind model.Kind) []*model.Match {
	out := make([]*model.Match, 0, len(results))
	for _, result := range results {
		out = append(out, &model.Match{
			Chunk:    result.Record.Chunk(),
			Score:    result.Score,
			Strategy: kind,
		})
	}
	return out
}
