// Package memory provides an embedded, persistence-free vector store.
// It is the default store for tests and small corpora; cosine
// similarity scores are normalized to [0, 1] via (1+cos)/2.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/siherrmann/ragcore/model"
)

// Store keeps all collections in process memory. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dim     int
	records []model.Record
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Add inserts records, establishing the collection's dimensionality with
// the first record ever added to it.
func (s *Store) Add(ctx context.Context, name string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collections[name]

	// The whole batch is validated up front so a rejected Add neither
	// creates the collection nor pins its dimensionality
	dim := len(records[0].Vector)
	if col != nil && col.dim > 0 {
		dim = col.dim
	}
	for _, record := range records {
		if len(record.Vector) != dim {
			return &model.DimensionMismatchError{
				Collection: name,
				Want:       dim,
				Got:        len(record.Vector),
			}
		}
	}

	if col == nil {
		col = &collection{}
		s.collections[name] = col
	}
	col.dim = dim
	col.records = append(col.records, records...)
	return nil
}

// Search ranks records of the collection by cosine similarity to vector.
// Results are sorted by descending score, ties keep insertion order.
func (s *Store) Search(ctx context.Context, name string, vector []float32, limit int, filter model.Metadata) ([]model.ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return []model.ScoredRecord{}, nil
	}
	if col.dim > 0 && len(vector) != col.dim {
		return nil, &model.DimensionMismatchError{
			Collection: name,
			Want:       col.dim,
			Got:        len(vector),
		}
	}

	results := make([]model.ScoredRecord, 0, len(col.records))
	for _, record := range col.records {
		if !record.Metadata.Matches(filter) {
			continue
		}
		results = append(results, model.ScoredRecord{
			Record: record,
			Score:  NormalizedCosine(vector, record.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteByMetadata removes all records matching the filter
func (s *Store) DeleteByMetadata(ctx context.Context, name string, filter model.Metadata) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		return 0, nil
	}

	kept := col.records[:0]
	deleted := 0
	for _, record := range col.records {
		if len(filter) > 0 && record.Metadata.Matches(filter) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	col.records = kept
	return deleted, nil
}

// Drop deletes the collection. Unknown collections are ignored.
func (s *Store) Drop(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// Count returns the number of records in the collection
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return 0, nil
	}
	return len(col.records), nil
}

// Peek returns up to limit records in insertion order
func (s *Store) Peek(ctx context.Context, name string, limit int) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return []model.Record{}, nil
	}

	n := len(col.records)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]model.Record, n)
	copy(out, col.records[:n])
	return out, nil
}

// NormalizedCosine maps the cosine similarity of a and b from [-1, 1]
// into a relevance score in [0, 1] where 1.0 is most relevant.
func NormalizedCosine(a, b []float32) float64 {
	return (1 + cosineSimilarity(a, b)) / 2
}

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
