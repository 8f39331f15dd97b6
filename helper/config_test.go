package helper

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clearConfigEnvs(t *testing.T) {
	keys := []string{
		"EMBEDDING_BACKEND", "GEMINI_EMBED_MODEL", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"LOCAL_EMBED_MODEL", "RAG_COLLECTION", "RAG_DATA_DIR",
		"RETRIEVER_STRATEGY", "RETRIEVER_TOP_K", "RETRIEVER_FETCH_K",
		"RETRIEVER_MMR_LAMBDA", "RETRIEVER_SCORE_THRESHOLD",
		"CHUNK_SIZE", "CHUNK_OVERLAP",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestNewConfiguration(t *testing.T) {
	t.Run("Defaults without environment", func(t *testing.T) {
		clearConfigEnvs(t)

		config := NewConfiguration(testLogger())

		assert.Equal(t, "gemini", config.EmbeddingBackend)
		assert.Equal(t, "text-embedding-004", config.GeminiModel)
		assert.Empty(t, config.GeminiAPIKey)
		assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", config.LocalModel)
		assert.Empty(t, config.CollectionOverride)
		assert.Equal(t, "./rag_data", config.DataDir)
		assert.Empty(t, config.Strategy)
		assert.Equal(t, 5, config.TopK)
		assert.Equal(t, 0, config.FetchK)
		assert.Equal(t, 0.5, config.MMRLambda)
		assert.Equal(t, 0.5, config.ScoreThreshold)
		assert.Equal(t, 800, config.ChunkSize)
		assert.Equal(t, 160, config.ChunkOverlap)
	})

	t.Run("Environment values are picked up", func(t *testing.T) {
		clearConfigEnvs(t)
		t.Setenv("EMBEDDING_BACKEND", "LOCAL")
		t.Setenv("RETRIEVER_STRATEGY", "MMR")
		t.Setenv("RETRIEVER_TOP_K", "8")
		t.Setenv("RETRIEVER_MMR_LAMBDA", "0.7")
		t.Setenv("RAG_COLLECTION", "pinned")
		t.Setenv("CHUNK_SIZE", "400")

		config := NewConfiguration(testLogger())

		assert.Equal(t, "local", config.EmbeddingBackend, "Backend should be lowercased")
		assert.Equal(t, "mmr", config.Strategy, "Strategy should be lowercased")
		assert.Equal(t, 8, config.TopK)
		assert.Equal(t, 0.7, config.MMRLambda)
		assert.Equal(t, "pinned", config.CollectionOverride)
		assert.Equal(t, 400, config.ChunkSize)
	})

	t.Run("GEMINI_API_KEY wins over GOOGLE_API_KEY", func(t *testing.T) {
		clearConfigEnvs(t)
		t.Setenv("GEMINI_API_KEY", "primary")
		t.Setenv("GOOGLE_API_KEY", "secondary")

		config := NewConfiguration(testLogger())
		assert.Equal(t, "primary", config.GeminiAPIKey)
	})

	t.Run("GOOGLE_API_KEY is honored as fallback", func(t *testing.T) {
		clearConfigEnvs(t)
		t.Setenv("GOOGLE_API_KEY", "secondary")

		config := NewConfiguration(testLogger())
		assert.Equal(t, "secondary", config.GeminiAPIKey)
	})

	t.Run("Invalid numeric values fall back to defaults", func(t *testing.T) {
		clearConfigEnvs(t)
		t.Setenv("RETRIEVER_TOP_K", "many")
		t.Setenv("RETRIEVER_SCORE_THRESHOLD", "high")

		config := NewConfiguration(testLogger())
		assert.Equal(t, 5, config.TopK, "Invalid ints should not fail startup")
		assert.Equal(t, 0.5, config.ScoreThreshold, "Invalid floats should not fail startup")
	})
}
