package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is a bounded span of document text produced by the chunker.
// Metadata carries the source document fields plus the zero-based
// "chunk_index" assigned during splitting.
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Record is a chunk as persisted in a vector store collection:
// the chunk text and metadata together with its embedding vector.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Vector    []float32 `json:"vector,omitempty"`
	Text      string    `json:"text"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Chunk returns the stored text and metadata without the vector.
func (r *Record) Chunk() Chunk {
	return Chunk{Text: r.Text, Metadata: r.Metadata.Clone()}
}
