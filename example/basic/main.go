package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/siherrmann/ragcore"
	"github.com/siherrmann/ragcore/model"
	"github.com/siherrmann/ragcore/store/memory"
)

const sampleContent = `This is a sample document about retrieval-augmented generation.

Retrieval-augmented generation grounds language model answers in documents
retrieved from a vector store. Documents are split into overlapping chunks,
each chunk is embedded into a vector, and at query time the question is
embedded the same way and compared against the stored vectors.

PostgreSQL with the pgvector extension can serve as the vector store for
production deployments, while an in-memory store is enough for prototyping.
Retrieval strategies like similarity search, maximal marginal relevance and
score thresholding decide which chunks make it into the final answer context.`

func main() {
	// In-memory store, no database needed. The embedding backend and the
	// chunking settings come from the environment (EMBEDDING_BACKEND,
	// GEMINI_API_KEY, CHUNK_SIZE, ...).
	rag, err := ragcore.New(memory.NewStore())
	if err != nil {
		log.Fatalf("Failed to create rag instance: %v", err)
	}
	defer rag.Close()

	ctx := context.Background()

	fmt.Println("Ingesting document...")
	numChunks, err := rag.IngestText(ctx, "basic_example", sampleContent, model.Metadata{
		"author": "Example Author",
		"topic":  "retrieval",
	})
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Stored %d chunks\n", numChunks)

	dataDir, collection := rag.StorageSettings()
	fmt.Printf("Data dir: %s, collection: %s\n", dataDir, collection)

	queryText := "What is retrieval-augmented generation?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	// A nil config uses the environment defaults (similarity, top 5)
	matches, err := rag.Query(ctx, queryText, nil)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}

	fmt.Printf("\nFound %d matches:\n", len(matches))
	for i, match := range matches {
		fmt.Printf("\n--- Match %d ---\n", i+1)
		fmt.Printf("Score: %.4f\n", match.Score)
		fmt.Printf("Strategy: %s\n", match.Strategy)
		fmt.Printf("Source: %v\n", match.Chunk.Metadata["source"])
		fmt.Printf("Text: %s\n", strings.TrimSpace(match.Chunk.Text))
	}

	fmt.Println("\nBasic example completed successfully!")
}
