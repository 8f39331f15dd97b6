// Package ragcore is a retrieval-augmented-generation backend: it chunks
// documents, embeds them with a configurable backend and retrieves them
// from a vector store with pluggable strategies. Vector stores are
// pluggable through the store.Store interface; database.CollectionsDBHandler
// persists to Postgres with pgvector and store/memory keeps everything
// in process.
package ragcore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/siherrmann/ragcore/collection"
	"github.com/siherrmann/ragcore/core/embedding"
	"github.com/siherrmann/ragcore/core/pipeline"
	"github.com/siherrmann/ragcore/core/recovery"
	"github.com/siherrmann/ragcore/core/retrieval"
	"github.com/siherrmann/ragcore/database"
	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
	"github.com/siherrmann/ragcore/store"
)

// Rag provides a unified interface to ingestion, retrieval and the
// admin operations of the engine.
type Rag struct {
	Config      *helper.Configuration
	DB          *helper.Database // nil when running on a non-database store
	Store       store.Store
	Resolver    *embedding.Resolver
	Collections *collection.Manager
	Engine      *retrieval.Engine
	Recovery    *recovery.Controller
	Pipeline    *pipeline.Pipeline
	// Logging
	log *slog.Logger
}

// New creates a Rag instance on top of the given vector store with
// configuration read from the environment.
func New(st store.Store) (*Rag, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	return NewWithConfig(helper.NewConfiguration(logger), st, logger)
}

// NewWithDatabase creates a Rag instance persisting to Postgres with
// pgvector through the collections handler.
func NewWithDatabase(dbConfig *helper.DatabaseConfiguration) (*Rag, error) {
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	db := helper.NewDatabase("ragcore", dbConfig, logger)
	handler, err := database.NewCollectionsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create collections handler", err)
	}

	rag, err := NewWithConfig(helper.NewConfiguration(logger), handler, logger)
	if err != nil {
		return nil, err
	}
	rag.DB = db

	return rag, nil
}

// NewWithConfig creates a Rag instance with explicit configuration,
// store and logger. The chunker is built from the configured chunk size
// and overlap.
func NewWithConfig(config *helper.Configuration, st store.Store, logger *slog.Logger) (*Rag, error) {
	if st == nil {
		return nil, helper.NewError("store validation", fmt.Errorf("store is nil"))
	}

	chunker := pipeline.RecursiveChunker(config.ChunkSize, config.ChunkOverlap)
	resolver := embedding.NewResolver(config, logger)
	collections := collection.NewManager(config, resolver, st, logger)
	engine := retrieval.NewEngine(st, collections, logger)
	controller := recovery.NewController(collections, resolver, logger)

	return &Rag{
		Config:      config,
		Store:       st,
		Resolver:    resolver,
		Collections: collections,
		Engine:      engine,
		Recovery:    controller,
		Pipeline:    pipeline.NewPipeline(chunker),
		log:         logger,
	}, nil
}

// Close releases the embedding backend and the database connection
func (r *Rag) Close() error {
	err := r.Resolver.Close()
	if r.DB != nil && r.DB.Instance != nil {
		if dbErr := r.DB.Instance.Close(); err == nil {
			err = dbErr
		}
	}
	return err
}

// IngestText chunks, embeds and stores a document. Previously ingested
// records with the same source are replaced, so re-ingesting a document
// never duplicates it. Returns the number of stored chunks.
//
// A vector dimensionality mismatch, which happens when the embedding
// backend changed since the collection was built, triggers a destructive
// collection reset and a single retry.
func (r *Rag) IngestText(ctx context.Context, source string, text string, metadata model.Metadata) (int, error) {
	if source == "" {
		return 0, helper.NewError("ingest text", fmt.Errorf("source must not be empty"))
	}
	// Rejected before the delete-existing-by-source step, otherwise an
	// empty re-ingest would wipe the previously stored chunks
	if strings.TrimSpace(text) == "" {
		return 0, helper.NewError("ingest text", fmt.Errorf("text must not be empty"))
	}

	base := metadata.Clone()
	if base == nil {
		base = model.Metadata{}
	}
	base["source"] = source

	stored := 0
	err := r.Recovery.Run(ctx, func(ctx context.Context) error {
		// Re-resolved on every attempt, recovery may have replaced the backend
		handle, err := r.Resolver.Resolve(ctx, false)
		if err != nil {
			return err
		}

		records, err := r.Pipeline.Process(ctx, handle.Embedder, text, base)
		if err != nil {
			return err
		}

		collectionName := r.Collections.CurrentName()
		if _, err := r.Store.DeleteByMetadata(ctx, collectionName, model.Metadata{"source": source}); err != nil {
			return err
		}
		if err := r.Store.Add(ctx, collectionName, records); err != nil {
			return err
		}

		stored = len(records)
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Info("Ingested document",
		slog.String("source", source),
		slog.Int("num_chunks", stored),
		slog.String("collection", r.Collections.CurrentName()))

	return stored, nil
}

// Query embeds the question and retrieves matching chunks with the
// configured strategy. A nil config uses the environment defaults, a
// non-positive TopK the default TopK.
func (r *Rag) Query(ctx context.Context, question string, config *model.RetrieverConfig) ([]*model.Match, error) {
	normalized, strategyName := r.queryConfig(config)
	strategy := retrieval.StrategyFor(r.Engine, strategyName)

	var results []*model.Match
	err := r.Recovery.Run(ctx, func(ctx context.Context) error {
		handle, err := r.Resolver.Resolve(ctx, false)
		if err != nil {
			return err
		}

		vector, err := handle.Embedder.Embed(ctx, question)
		if err != nil {
			return err
		}

		results, err = strategy.Retrieve(ctx, vector, &normalized)
		return err
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteBySource removes all records ingested under the given source and
// returns how many were removed.
func (r *Rag) DeleteBySource(ctx context.Context, source string) (int, error) {
	if source == "" {
		return 0, helper.NewError("delete by source", fmt.Errorf("source must not be empty"))
	}
	return r.Store.DeleteByMetadata(ctx, r.Collections.CurrentName(), model.Metadata{"source": source})
}

// Count returns the number of records in the active collection
func (r *Rag) Count(ctx context.Context) (int, error) {
	return r.Store.Count(ctx, r.Collections.CurrentName())
}

// Peek returns up to limit records of the active collection in insertion
// order, for debugging and admin tooling.
func (r *Rag) Peek(ctx context.Context, limit int) ([]model.Record, error) {
	return r.Store.Peek(ctx, r.Collections.CurrentName(), limit)
}

// Wipe drops the active collection entirely
func (r *Rag) Wipe(ctx context.Context) error {
	return r.Store.Drop(ctx, r.Collections.CurrentName())
}

// EmbeddingStatus reports the resolved embedding backend. With refresh
// the backend is reconstructed first, which verifies it still works.
func (r *Rag) EmbeddingStatus(ctx context.Context, refresh bool) (model.BackendInfo, error) {
	return r.Resolver.Status(ctx, refresh)
}

// StorageSettings returns the persisted storage directory and the active
// collection name.
func (r *Rag) StorageSettings() (string, string) {
	return r.Collections.Settings()
}

// queryConfig normalizes a caller-supplied retriever config without
// mutating it. A nil config uses the environment defaults; a
// non-positive TopK falls back to the default so the store never sees
// an unbounded query.
func (r *Rag) queryConfig(config *model.RetrieverConfig) (model.RetrieverConfig, string) {
	if config == nil {
		return r.defaultRetrieverConfig(), r.Config.Strategy
	}

	normalized := *config
	if normalized.TopK <= 0 {
		normalized.TopK = model.DefaultRetrieverConfig().TopK
	}
	return normalized, string(normalized.Kind)
}

// defaultRetrieverConfig builds the per-query config from the
// environment-driven settings.
func (r *Rag) defaultRetrieverConfig() model.RetrieverConfig {
	config := model.DefaultRetrieverConfig()
	kind, _ := model.ParseKind(r.Config.Strategy)
	config.Kind = kind
	if r.Config.TopK > 0 {
		config.TopK = r.Config.TopK
	}
	if r.Config.FetchK > 0 {
		config.FetchK = r.Config.FetchK
	}
	config.Lambda = r.Config.MMRLambda
	config.ScoreThreshold = r.Config.ScoreThreshold
	return config
}
