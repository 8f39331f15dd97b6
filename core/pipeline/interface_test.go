package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/ragcore/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps each text to a deterministic two-dimensional vector
type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestPipelineProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("Process chunks and embeds text", func(t *testing.T) {
		pipeline := NewPipeline(RecursiveChunker(100, 0))
		embedder := &fakeEmbedder{}

		records, err := pipeline.Process(ctx, embedder, "A short document.", model.Metadata{"source": "doc.txt"})
		require.NoError(t, err)
		require.Len(t, records, 1)

		assert.NotEqual(t, uuid.Nil, records[0].ID)
		assert.Equal(t, "A short document.", records[0].Text)
		assert.Equal(t, "doc.txt", records[0].Metadata["source"])
		assert.Equal(t, 0, records[0].Metadata["chunk_index"])
		assert.Equal(t, []float32{17, 1}, records[0].Vector)
		assert.Equal(t, 1, embedder.calls)
	})

	t.Run("Whitespace-only text yields no records", func(t *testing.T) {
		pipeline := NewPipeline(RecursiveChunker(100, 0))
		embedder := &fakeEmbedder{}

		records, err := pipeline.Process(ctx, embedder, "   \n\t  ", nil)
		assert.NoError(t, err)
		assert.Empty(t, records)
		assert.Equal(t, 0, embedder.calls, "Nothing should be embedded for empty input")
	})

	t.Run("Every chunk is embedded once", func(t *testing.T) {
		pipeline := NewPipeline(RecursiveChunker(50, 0))
		embedder := &fakeEmbedder{}

		text := "one two three four five six seven eight nine ten eleven twelve thirteen fourteen"
		records, err := pipeline.Process(ctx, embedder, text, nil)
		require.NoError(t, err)
		require.Greater(t, len(records), 1)
		assert.Equal(t, len(records), embedder.calls)
	})

	t.Run("Records get unique IDs", func(t *testing.T) {
		pipeline := NewPipeline(RecursiveChunker(50, 0))
		embedder := &fakeEmbedder{}

		records, err := pipeline.Process(ctx, embedder, "one two three four five six seven eight nine ten eleven twelve", nil)
		require.NoError(t, err)
		require.Greater(t, len(records), 1)
		assert.NotEqual(t, records[0].ID, records[1].ID)
	})

	t.Run("Embedding errors are propagated", func(t *testing.T) {
		pipeline := NewPipeline(RecursiveChunker(100, 0))
		embedder := &fakeEmbedder{err: errors.New("backend down")}

		_, err := pipeline.Process(ctx, embedder, "some text", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "backend down")
	})

	t.Run("Chunker errors are propagated", func(t *testing.T) {
		pipeline := NewPipeline(RecursiveChunker(0, 0))
		embedder := &fakeEmbedder{}

		_, err := pipeline.Process(ctx, embedder, "some text", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "chunk size must be positive")
	})
}
