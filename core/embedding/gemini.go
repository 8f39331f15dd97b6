package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
	"google.golang.org/genai"
)

// GeminiEmbedder maps text to vectors through the Gemini embedding API.
// The default text-embedding-004 model produces 768-dimensional vectors.
type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
}

// NewGeminiEmbedder creates a Gemini-backed embedder. A missing API key
// is a configuration error the user has to fix, not a dependency
// failure, so no further fallback happens.
func NewGeminiEmbedder(ctx context.Context, modelName string, apiKey string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, &model.ConfigurationError{
			Err: errors.New("GEMINI_API_KEY is not set, provide a key or set EMBEDDING_BACKEND=local"),
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &model.DependencyError{
			Backend: model.BackendGemini,
			Err:     fmt.Errorf("failed to create gemini client: %w", err),
		}
	}

	return &GeminiEmbedder{
		client:    client,
		modelName: modelName,
	}, nil
}

// Embed generates an embedding for the text
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx, e.modelName, genai.Text(text), nil)
	if err != nil {
		return nil, helper.NewError("gemini embed content", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return result.Embeddings[0].Values, nil
}

// Model returns the configured embedding model name
func (e *GeminiEmbedder) Model() string {
	return e.modelName
}
