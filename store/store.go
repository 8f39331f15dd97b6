// Package store defines the vector store collaborator used by the
// retrieval engine. Implementations must keep one fixed vector
// dimensionality per collection and report violations with
// model.DimensionMismatchError so that recovery can distinguish them
// from ordinary store failures.
package store

import (
	"context"

	"github.com/siherrmann/ragcore/model"
)

// Store is a named-collection vector store.
//
// Search returns results in descending normalized score order with ties
// broken by insertion order, so repeated identical queries against an
// unchanged collection are reproducible. The filter restricts results to
// records whose metadata contains every filter key with an equal value;
// filtering happens before ranking.
type Store interface {
	// Add inserts records into the collection, creating it on first use.
	Add(ctx context.Context, collection string, records []model.Record) error
	// Search returns up to limit records ranked by similarity to vector.
	Search(ctx context.Context, collection string, vector []float32, limit int, filter model.Metadata) ([]model.ScoredRecord, error)
	// DeleteByMetadata removes all records matching the filter exactly
	// and returns how many were removed.
	DeleteByMetadata(ctx context.Context, collection string, filter model.Metadata) (int, error)
	// Drop deletes the entire collection. Dropping a collection that
	// does not exist is not an error.
	Drop(ctx context.Context, collection string) error
	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)
	// Peek returns up to limit records in insertion order, for
	// introspection and admin tooling.
	Peek(ctx context.Context, collection string, limit int) ([]model.Record, error)
}
