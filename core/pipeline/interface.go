package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
)

// ChunkFunc is a function that splits text into ordered chunks.
// Each chunk's metadata is a deep copy of base plus a zero-based
// "chunk_index" field.
type ChunkFunc func(text string, base model.Metadata) ([]model.Chunk, error)

// Embedder generates a fixed-length vector for a text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Pipeline combines chunking and embedding into ready-to-store records
type Pipeline struct {
	Chunker ChunkFunc
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc) *Pipeline {
	return &Pipeline{Chunker: chunker}
}

// Process splits text into chunks and embeds each one with the given
// embedder. The embedder is passed per call because the active backend
// can change between calls after a fallback or recovery refresh.
func (p *Pipeline) Process(ctx context.Context, embedder Embedder, text string, base model.Metadata) ([]model.Record, error) {
	if strings.TrimSpace(text) == "" {
		return []model.Record{}, nil
	}

	chunks, err := p.Chunker(text, base)
	if err != nil {
		return nil, helper.NewError("chunk text", err)
	}

	records := make([]model.Record, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, helper.NewError("embed chunk", err)
		}
		records = append(records, model.Record{
			ID:       uuid.New(),
			Vector:   vector,
			Text:     chunk.Text,
			Metadata: chunk.Metadata,
		})
	}

	return records, nil
}
