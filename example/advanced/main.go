package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/ragcore"
	"github.com/siherrmann/ragcore/database"
	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
)

const sampleContent1 = `This is a comprehensive document about vector databases and their applications.

Vector databases are designed to store embeddings and answer nearest-neighbour queries.
They index high-dimensional vectors so that semantically similar documents can be found quickly.

PostgreSQL with the pgvector extension can be used to build a production-grade vector store.
Approximate indexes like HNSW and IVFFlat trade a little recall for much faster queries.

Combining vector search with metadata filtering allows retrieval that respects both
semantic similarity and structured constraints like source or topic.`

const sampleContent2 = `Machine learning is transforming how we process and retrieve information.

Vector embeddings capture the semantic meaning of text, enabling similarity-based search.
Neural networks can learn representations that understand context and relationships.

Modern retrieval systems combine traditional database indexing with machine learning models
to provide more intelligent and context-aware search capabilities.`

func main() {
	// Start a test PostgreSQL container with pgvector
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	rag, err := ragcore.NewWithDatabase(dbConfig)
	if err != nil {
		log.Fatalf("Failed to create rag instance: %v", err)
	}
	defer rag.Close()

	ctx := context.Background()

	// 1. Check the embedding backend before doing any work
	fmt.Println("=== 1. Embedding Status ===")
	info, err := rag.EmbeddingStatus(ctx, true)
	if err != nil {
		log.Fatalf("Embedding backend unusable: %v", err)
	}
	fmt.Printf("Configured: %s, resolved: %s, model: %s\n", info.Configured, info.Resolved, info.Model)
	if info.Fallback {
		fmt.Printf("Running on fallback backend: %s\n", info.Error)
	}

	// 2. Ingest two documents
	fmt.Println("\n=== 2. Ingesting Documents ===")
	numChunks1, err := rag.IngestText(ctx, "vector_databases.md", sampleContent1, model.Metadata{
		"author": "Example Author",
		"topic":  "vector databases",
	})
	if err != nil {
		log.Fatalf("Failed to ingest document 1: %v", err)
	}
	fmt.Printf("Document 1: %d chunks\n", numChunks1)

	numChunks2, err := rag.IngestText(ctx, "machine_learning.md", sampleContent2, model.Metadata{
		"author": "Example Author",
		"topic":  "machine learning",
	})
	if err != nil {
		log.Fatalf("Failed to ingest document 2: %v", err)
	}
	fmt.Printf("Document 2: %d chunks\n", numChunks2)

	queryText := "How do vector databases find similar documents?"

	// 3. Similarity search
	fmt.Println("\n=== 3. Similarity Search ===")
	simConfig := model.DefaultRetrieverConfig()
	simConfig.TopK = 3
	simMatches, err := rag.Query(ctx, queryText, &simConfig)
	if err != nil {
		log.Fatalf("Similarity search failed: %v", err)
	}
	printMatches("Similarity", simMatches)

	// 4. Maximal marginal relevance, trading relevance for diversity
	fmt.Println("\n=== 4. MMR Search ===")
	mmrConfig := model.DefaultRetrieverConfig()
	mmrConfig.Kind = model.KindDiversity
	mmrConfig.TopK = 3
	mmrConfig.FetchK = 10
	mmrConfig.Lambda = 0.5
	mmrMatches, err := rag.Query(ctx, queryText, &mmrConfig)
	if err != nil {
		log.Fatalf("MMR search failed: %v", err)
	}
	printMatches("MMR", mmrMatches)

	// 5. Score threshold, only well-matching chunks
	fmt.Println("\n=== 5. Score Threshold Search ===")
	thresholdConfig := model.DefaultRetrieverConfig()
	thresholdConfig.Kind = model.KindThreshold
	thresholdConfig.TopK = 5
	thresholdConfig.ScoreThreshold = 0.6
	thresholdMatches, err := rag.Query(ctx, queryText, &thresholdConfig)
	if err != nil {
		log.Fatalf("Threshold search failed: %v", err)
	}
	printMatches("Threshold", thresholdMatches)

	// 6. Filtered search scoped to one topic
	fmt.Println("\n=== 6. Metadata-Filtered Search ===")
	filterConfig := model.DefaultRetrieverConfig()
	filterConfig.TopK = 3
	filterConfig.Filter = model.Metadata{"topic": "machine learning"}
	filteredMatches, err := rag.Query(ctx, "How does machine learning help with search?", &filterConfig)
	if err != nil {
		log.Fatalf("Filtered search failed: %v", err)
	}
	printMatches("Filtered", filteredMatches)

	// 7. Index type switching on the active collection
	fmt.Println("\n=== 7. Changing Index Type ===")
	handler, ok := rag.Store.(*database.CollectionsDBHandler)
	if !ok {
		log.Fatalf("Store is not a database handler")
	}
	_, collection := rag.StorageSettings()

	fmt.Println("Switching to IVFFlat index...")
	err = handler.ChangeIndexType(ctx, collection, "ivfflat", map[string]interface{}{
		"lists": 100,
	})
	if err != nil {
		log.Printf("Warning: Index change failed (this is okay for small datasets): %v", err)
	} else {
		fmt.Println("Successfully switched to IVFFlat index")
	}

	fmt.Println("Switching back to HNSW index...")
	err = handler.ChangeIndexType(ctx, collection, "hnsw", map[string]interface{}{
		"m":               16,
		"ef_construction": 64,
	})
	if err != nil {
		log.Printf("Warning: Index change failed: %v", err)
	} else {
		fmt.Println("Successfully switched to HNSW index")
	}

	// 8. Admin operations
	fmt.Println("\n=== 8. Admin Operations ===")
	count, err := rag.Count(ctx)
	if err != nil {
		log.Fatalf("Count failed: %v", err)
	}
	fmt.Printf("Records in collection: %d\n", count)

	records, err := rag.Peek(ctx, 2)
	if err != nil {
		log.Fatalf("Peek failed: %v", err)
	}
	for _, record := range records {
		fmt.Printf("  - %s (source: %v, chunk %v)\n", record.ID, record.Metadata["source"], record.Metadata["chunk_index"])
	}

	deleted, err := rag.DeleteBySource(ctx, "machine_learning.md")
	if err != nil {
		log.Fatalf("DeleteBySource failed: %v", err)
	}
	fmt.Printf("Deleted %d chunks of machine_learning.md\n", deleted)

	count, err = rag.Count(ctx)
	if err != nil {
		log.Fatalf("Count failed: %v", err)
	}
	fmt.Printf("Records remaining: %d\n", count)

	fmt.Println("\n=== Advanced Example Completed Successfully! ===")
	fmt.Println("\nKey features demonstrated:")
	fmt.Println("✓ Embedding backend status and refresh")
	fmt.Println("✓ Similarity search")
	fmt.Println("✓ MMR search (relevance vs. diversity)")
	fmt.Println("✓ Score threshold search")
	fmt.Println("✓ Metadata-filtered search")
	fmt.Println("✓ Index type switching (HNSW ↔ IVFFlat)")
	fmt.Println("✓ Count, Peek and DeleteBySource")
}

func printMatches(title string, matches []*model.Match) {
	fmt.Printf("\n%s - Found %d matches:\n", title, len(matches))
	for i, match := range matches {
		if i >= 3 {
			break // Show only first 3
		}
		fmt.Printf("\n  Match %d:\n", i+1)
		fmt.Printf("    Score: %.4f\n", match.Score)
		fmt.Printf("    Strategy: %s\n", match.Strategy)
		fmt.Printf("    Source: %v\n", match.Chunk.Metadata["source"])
		text := match.Chunk.Text
		if len(text) > 80 {
			text = text[:80] + "..."
		}
		fmt.Printf("    Text: %s\n", text)
	}
}
