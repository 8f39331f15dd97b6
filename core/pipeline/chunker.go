package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/ragcore/model"
)

// DefaultChunkSize and DefaultChunkOverlap are the product-wide chunking
// defaults, measured in characters.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 160
)

// DefaultSeparators is the layered separator preference: paragraph
// breaks first, then line breaks, then spaces, then single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker creates a chunker that splits text into chunks of at
// most chunkSize characters, always preferring the largest separator
// that still yields pieces within the limit. Every chunk after the
// first repeats the trailing overlap characters of its predecessor so
// context survives chunk boundaries. Separators are kept attached to
// the preceding piece, which makes the split reversible: concatenating
// the non-overlapping spans reproduces the input.
func RecursiveChunker(chunkSize int, overlap int) ChunkFunc {
	return func(text string, base model.Metadata) ([]model.Chunk, error) {
		if chunkSize <= 0 {
			return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
		}
		if overlap < 0 || overlap >= chunkSize {
			return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, overlap)
		}
		if text == "" {
			return []model.Chunk{}, nil
		}

		pieces := splitRecursive(text, chunkSize, DefaultSeparators)
		contents := mergePieces(pieces, chunkSize, overlap)

		chunks := make([]model.Chunk, 0, len(contents))
		for i, content := range contents {
			metadata := base.Clone()
			metadata["chunk_index"] = i
			chunks = append(chunks, model.Chunk{
				Text:     content,
				Metadata: metadata,
			})
		}
		return chunks, nil
	}
}

// splitRecursive breaks text into pieces of at most size characters,
// trying each separator in order and recursing with the next one for
// pieces that are still too long. The empty separator cuts at the
// character level and guarantees termination.
func splitRecursive(text string, size int, separators []string) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	if len(separators) == 0 {
		separators = []string{""}
	}

	separator := separators[0]
	rest := separators[1:]

	if separator == "" {
		return hardCut(text, size)
	}
	if !strings.Contains(text, separator) {
		return splitRecursive(text, size, rest)
	}

	var pieces []string
	for _, part := range strings.SplitAfter(text, separator) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= size {
			pieces = append(pieces, part)
			continue
		}
		pieces = append(pieces, splitRecursive(part, size, rest)...)
	}
	return pieces
}

// hardCut slices text into runs of exactly size characters
func hardCut(text string, size int) []string {
	runes := []rune(text)
	pieces := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// mergePieces greedily packs pieces into chunks of at most size
// characters. When a chunk is emitted the next one is seeded with its
// trailing overlap characters; the seed shrinks if the following piece
// would otherwise push the chunk past the limit.
func mergePieces(pieces []string, size int, overlap int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)

		if currentLen > 0 && currentLen+pieceLen > size {
			chunk := current.String()
			chunks = append(chunks, chunk)

			seedLen := overlap
			if seedLen > size-pieceLen {
				seedLen = size - pieceLen
			}
			seed := trailingRunes(chunk, seedLen)

			current.Reset()
			current.WriteString(seed)
			currentLen = utf8.RuneCountInString(seed)
		}

		current.WriteString(piece)
		currentLen += pieceLen
	}

	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// trailingRunes returns the last n characters of s
func trailingRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
