package helper

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Configuration is the environment-driven settings surface of the
// retrieval engine. It is read once at startup; per-query knobs are
// copied into an immutable query config before use.
type Configuration struct {
	// Embedding backend selection
	EmbeddingBackend string // "gemini" or "local"
	GeminiModel      string
	GeminiAPIKey     string
	LocalModel       string

	// Storage
	CollectionOverride string // explicit collection name, pins the namespace
	DataDir            string // persisted storage directory

	// Retrieval strategy knobs
	Strategy       string
	TopK           int
	FetchK         int
	MMRLambda      float64
	ScoreThreshold float64

	// Chunking
	ChunkSize    int
	ChunkOverlap int
}

// NewConfiguration loads a Configuration from the environment. A .env
// file is honored when present. Invalid numeric values are logged and
// replaced by their defaults instead of failing startup.
func NewConfiguration(logger *slog.Logger) *Configuration {
	// Missing .env files are fine, the environment may be set directly
	_ = godotenv.Load()

	return &Configuration{
		EmbeddingBackend:   strings.ToLower(envOrDefault("EMBEDDING_BACKEND", "gemini")),
		GeminiModel:        envOrDefault("GEMINI_EMBED_MODEL", "text-embedding-004"),
		GeminiAPIKey:       firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		LocalModel:         envOrDefault("LOCAL_EMBED_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		CollectionOverride: os.Getenv("RAG_COLLECTION"),
		DataDir:            envOrDefault("RAG_DATA_DIR", "./rag_data"),
		Strategy:           strings.ToLower(strings.TrimSpace(os.Getenv("RETRIEVER_STRATEGY"))),
		TopK:               intEnv(logger, "RETRIEVER_TOP_K", 5),
		FetchK:             intEnv(logger, "RETRIEVER_FETCH_K", 0),
		MMRLambda:          floatEnv(logger, "RETRIEVER_MMR_LAMBDA", 0.5),
		ScoreThreshold:     floatEnv(logger, "RETRIEVER_SCORE_THRESHOLD", 0.5),
		ChunkSize:          intEnv(logger, "CHUNK_SIZE", 800),
		ChunkOverlap:       intEnv(logger, "CHUNK_OVERLAP", 160),
	}
}

func envOrDefault(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func intEnv(logger *slog.Logger, key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("Invalid integer environment value, using default",
			slog.String("key", key), slog.String("value", raw), slog.Int("default", fallback))
		return fallback
	}
	return value
}

func floatEnv(logger *slog.Logger, key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Warn("Invalid float environment value, using default",
			slog.String("key", key), slog.String("value", raw), slog.Float64("default", fallback))
		return fallback
	}
	return value
}
