package ragcore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
	"github.com/siherrmann/ragcore/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRag(t *testing.T, config *helper.Configuration) (*Rag, *memory.Store) {
	t.Helper()

	st := memory.NewStore()
	logger := helper.NewTestLogger()
	rag, err := NewWithConfig(config, st, logger)
	require.NoError(t, err)
	return rag, st
}

func offlineConfig() *helper.Configuration {
	return &helper.Configuration{
		EmbeddingBackend: "gemini",
		GeminiModel:      "text-embedding-004",
		GeminiAPIKey:     "test-key",
		DataDir:          "./rag_data",
		TopK:             5,
		MMRLambda:        0.5,
		ScoreThreshold:   0.5,
		ChunkSize:        800,
		ChunkOverlap:     160,
	}
}

func TestNewWithConfig(t *testing.T) {
	t.Run("Valid call NewWithConfig", func(t *testing.T) {
		rag, _ := testRag(t, offlineConfig())

		require.NotNil(t, rag)
		assert.NotNil(t, rag.Store)
		assert.NotNil(t, rag.Resolver)
		assert.NotNil(t, rag.Collections)
		assert.NotNil(t, rag.Engine)
		assert.NotNil(t, rag.Recovery)
		assert.NotNil(t, rag.Pipeline)
		assert.Nil(t, rag.DB, "No database connection without NewWithDatabase")
	})

	t.Run("Invalid call NewWithConfig with nil store", func(t *testing.T) {
		_, err := NewWithConfig(offlineConfig(), nil, helper.NewTestLogger())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "store is nil")
	})
}

func TestStorageSettings(t *testing.T) {
	t.Run("Reports data dir and backend-derived collection", func(t *testing.T) {
		rag, _ := testRag(t, offlineConfig())

		dataDir, collection := rag.StorageSettings()
		assert.Equal(t, "./rag_data", dataDir)
		assert.Equal(t, "rag_docs_gemini", collection)
	})

	t.Run("Collection override is used verbatim", func(t *testing.T) {
		config := offlineConfig()
		config.CollectionOverride = "pinned-collection"
		rag, _ := testRag(t, config)

		_, collection := rag.StorageSettings()
		assert.Equal(t, "pinned-collection", collection)
	})
}

func TestEmbeddingStatus(t *testing.T) {
	t.Run("Status without refresh reports the configured backend", func(t *testing.T) {
		rag, _ := testRag(t, offlineConfig())

		info, err := rag.EmbeddingStatus(context.Background(), false)
		assert.NoError(t, err)
		assert.Equal(t, model.BackendGemini, info.Configured)
		assert.Empty(t, info.Resolved, "Nothing should be constructed without refresh")
	})
}

func TestAdminOperations(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, rag *Rag, st *memory.Store) {
		t.Helper()
		_, collection := rag.StorageSettings()
		require.NoError(t, st.Add(ctx, collection, []model.Record{
			{ID: uuid.New(), Vector: []float32{1, 0}, Text: "first", Metadata: model.Metadata{"source": "a.txt"}},
			{ID: uuid.New(), Vector: []float32{0, 1}, Text: "second", Metadata: model.Metadata{"source": "b.txt"}},
		}))
	}

	t.Run("Count reports the active collection size", func(t *testing.T) {
		rag, st := testRag(t, offlineConfig())
		seed(t, rag, st)

		count, err := rag.Count(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("Peek returns records in insertion order", func(t *testing.T) {
		rag, st := testRag(t, offlineConfig())
		seed(t, rag, st)

		records, err := rag.Peek(ctx, 1)
		assert.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "first", records[0].Text)
	})

	t.Run("DeleteBySource removes only that source", func(t *testing.T) {
		rag, st := testRag(t, offlineConfig())
		seed(t, rag, st)

		deleted, err := rag.DeleteBySource(ctx, "a.txt")
		assert.NoError(t, err)
		assert.Equal(t, 1, deleted)

		count, err := rag.Count(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("DeleteBySource rejects an empty source", func(t *testing.T) {
		rag, _ := testRag(t, offlineConfig())

		_, err := rag.DeleteBySource(ctx, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "source must not be empty")
	})

	t.Run("Wipe drops the active collection", func(t *testing.T) {
		rag, st := testRag(t, offlineConfig())
		seed(t, rag, st)

		require.NoError(t, rag.Wipe(ctx))

		count, err := rag.Count(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestIngestTextValidation(t *testing.T) {
	t.Run("Empty source is rejected before any work", func(t *testing.T) {
		rag, _ := testRag(t, offlineConfig())

		_, err := rag.IngestText(context.Background(), "", "some text", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "source must not be empty")
	})

	t.Run("Whitespace-only text is rejected before any work", func(t *testing.T) {
		rag, _ := testRag(t, offlineConfig())

		_, err := rag.IngestText(context.Background(), "doc.txt", "   \n  ", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "text must not be empty")
	})

	t.Run("Rejected empty re-ingest keeps the stored chunks", func(t *testing.T) {
		ctx := context.Background()
		rag, st := testRag(t, offlineConfig())

		_, collection := rag.StorageSettings()
		require.NoError(t, st.Add(ctx, collection, []model.Record{
			{ID: uuid.New(), Vector: []float32{1, 0}, Text: "kept", Metadata: model.Metadata{"source": "doc.txt"}},
		}))

		_, err := rag.IngestText(ctx, "doc.txt", "   \n  ", nil)
		require.Error(t, err)

		count, err := rag.Count(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 1, count, "Previously ingested chunks must survive a rejected ingest")
	})
}

func TestQueryConfigNormalization(t *testing.T) {
	t.Run("Nil config uses the environment defaults", func(t *testing.T) {
		config := offlineConfig()
		config.Strategy = "mmr"
		rag, _ := testRag(t, config)

		normalized, strategyName := rag.queryConfig(nil)
		assert.Equal(t, "mmr", strategyName)
		assert.Equal(t, model.KindDiversity, normalized.Kind)
		assert.Equal(t, 5, normalized.TopK)
	})

	t.Run("Non-positive TopK falls back to the default", func(t *testing.T) {
		rag, _ := testRag(t, offlineConfig())

		supplied := model.RetrieverConfig{Kind: model.KindSimilarity, TopK: 0}
		normalized, strategyName := rag.queryConfig(&supplied)
		assert.Equal(t, string(model.KindSimilarity), strategyName)
		assert.Equal(t, model.DefaultRetrieverConfig().TopK, normalized.TopK, "A store must never see an unbounded query")
		assert.Equal(t, 0, supplied.TopK, "The caller's config must not be mutated")
	})

	t.Run("Explicit settings pass through unchanged", func(t *testing.T) {
		rag, _ := testRag(t, offlineConfig())

		supplied := model.RetrieverConfig{Kind: model.KindThreshold, TopK: 7, ScoreThreshold: 0.8}
		normalized, strategyName := rag.queryConfig(&supplied)
		assert.Equal(t, string(model.KindThreshold), strategyName)
		assert.Equal(t, 7, normalized.TopK)
		assert.Equal(t, 0.8, normalized.ScoreThreshold)
	})
}

// TestEndToEnd exercises the full ingest-and-query path against the real
// Gemini embedding API. It only runs when a key is configured.
func TestEndToEnd(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping end-to-end test")
	}

	ctx := context.Background()
	config := offlineConfig()
	config.GeminiAPIKey = apiKey
	rag, _ := testRag(t, config)
	defer rag.Close()

	t.Run("Ingest and query round trip", func(t *testing.T) {
		stored, err := rag.IngestText(ctx, "animals.txt",
			"Cats are small carnivorous mammals. Dogs are loyal companions that love to play fetch.",
			model.Metadata{"topic": "animals"})
		require.NoError(t, err)
		assert.Greater(t, stored, 0)

		matches, err := rag.Query(ctx, "What do dogs like to do?", nil)
		require.NoError(t, err)
		require.NotEmpty(t, matches)
		assert.Contains(t, matches[0].Chunk.Text, "Dogs")
		assert.Equal(t, "animals.txt", matches[0].Chunk.Metadata["source"])
	})

	t.Run("Re-ingesting a source replaces it", func(t *testing.T) {
		_, err := rag.IngestText(ctx, "animals.txt", "Birds can fly.", nil)
		require.NoError(t, err)

		count, err := rag.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "Old chunks of the source must be gone")
	})
}
