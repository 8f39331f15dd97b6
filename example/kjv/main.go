package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/siherrmann/ragcore"
	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const kjvRepoURL = "https://raw.githubusercontent.com/arleym/kjv-markdown/master"

// List of KJV books to download
var kjvBooks = []string{
	"01 - Genesis - KJV.md",
	// "02 - Exodus - KJV.md", "03 - Leviticus - KJV.md",
	// "04 - Numbers - KJV.md", "05 - Deuteronomy - KJV.md",
	// "06 - Joshua - KJV.md", "07 - Judges - KJV.md", "08 - Ruth - KJV.md",
	// "09 - 1 Samuel - KJV.md", "10 - 2 Samuel - KJV.md",
	// "11 - 1 Kings - KJV.md", "12 - 2 Kings - KJV.md",
	// "13 - 1 Chronicles - KJV.md", "14 - 2 Chronicles - KJV.md",
	// "15 - Ezra - KJV.md", "16 - Nehemiah - KJV.md", "17 - Esther - KJV.md",
	// "18 - Job - KJV.md", "19 - Psalms - KJV.md",
	// "20 - Proverbs - KJV.md", "21 - Ecclesiastes - KJV.md",
	// "22 - The Song of Solomon - KJV.md", "23 - Isaiah - KJV.md",
	// "24 - Jeremiah - KJV.md", "25 - Lamentations - KJV.md",
	// "26 - Ezekiel - KJV.md", "27 - Daniel - KJV.md",
	// "28 - Hosea - KJV.md", "29 - Joel - KJV.md", "30 - Amos - KJV.md",
	// "31 - Obadiah - KJV.md", "32 - Jonah - KJV.md",
	// "33 - Micah - KJV.md", "34 - Nahum - KJV.md", "35 - Habakkuk - KJV.md",
	// "36 - Zephaniah - KJV.md", "37 - Haggai - KJV.md",
	// "38 - Zechariah - KJV.md", "39 - Malachi - KJV.md",
	// "40 - Matthew - KJV.md", "41 - Mark - KJV.md", "42 - Luke - KJV.md",
	// "43 - John - KJV.md", "44 - Acts - KJV.md", "45 - Romans - KJV.md",
	// "46 - 1 Corinthians - KJV.md", "47 - 2 Corinthians - KJV.md",
	// "48 - Galatians - KJV.md", "49 - Ephesians - KJV.md",
	// "50 - Philippians - KJV.md", "51 - Colossians - KJV.md",
	// "52 - 1 Thessalonians - KJV.md", "53 - 2 Thessalonians - KJV.md",
	// "54 - 1 Timothy - KJV.md", "55 - 2 Timothy - KJV.md",
	// "56 - Titus - KJV.md", "57 - Philemon - KJV.md", "58 - Hebrews - KJV.md",
	// "59 - James - KJV.md", "60 - 1 Peter - KJV.md",
	// "61 - 2 Peter - KJV.md", "62 - 1 John - KJV.md", "63 - 2 John - KJV.md",
	// "64 - 3 John - KJV.md", "65 - Jude - KJV.md", "66 - Revelation - KJV.md",
}

// startPostgresContainer starts a pgvector PostgreSQL container with a
// bind-mounted data directory so ingested embeddings persist between runs.
func startPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	// Create data directory if it doesn't exist
	dataDir := "./data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create data directory: %w", err)
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get absolute path for data directory: %w", err)
	}

	// Check if database already exists (data directory has PG_VERSION file)
	pgVersionFile := filepath.Join(absDataDir, "PG_VERSION")
	_, err = os.Stat(pgVersionFile)
	dbExists := err == nil

	// When database already exists, PostgreSQL doesn't re-initialize,
	// so the ready message only appears once instead of twice
	waitOccurrences := 2
	if dbExists {
		waitOccurrences = 1
		fmt.Printf("Using existing persistent database in: %s\n", absDataDir)
	} else {
		fmt.Printf("Creating new persistent database in: %s\n", absDataDir)
	}

	options := []testcontainers.ContainerCustomizer{
		postgres.WithDatabase("database"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(waitOccurrences),
		),
		testcontainers.WithHostConfigModifier(func(hc *container.HostConfig) {
			hc.Mounts = append(hc.Mounts, mount.Mount{
				Type:   mount.TypeBind,
				Source: absDataDir,
				Target: "/var/lib/postgresql/data",
			})
		}),
	}

	pgContainer, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg17",
		options...,
	)
	if err != nil {
		return nil, "", fmt.Errorf("error starting postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("error getting connection string: %w", err)
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return nil, "", fmt.Errorf("error parsing connection string: %v", err)
	}

	return pgContainer.Terminate, u.Port(), nil
}

func downloadBook(bookName string, outputDir string) (string, error) {
	// URL-encode the filename to handle spaces
	encodedName := url.PathEscape(bookName)
	downloadURL := fmt.Sprintf("%s/%s", kjvRepoURL, encodedName)
	resp, err := http.Get(downloadURL)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", bookName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %d", bookName, resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", bookName, err)
	}

	outputPath := filepath.Join(outputDir, bookName)
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", bookName, err)
	}

	return outputPath, nil
}

func main() {
	// Start a PostgreSQL container with persistent storage
	teardown, dbPort, err := startPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
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

	// Create temporary directory for downloads
	tmpDir, err := os.MkdirTemp("", "kjv-books-*")
	if err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	fmt.Println("Downloading KJV books from GitHub...")

	// Check existing sources to avoid re-embedding on restarts
	existingSources, err := checkExistingSources(ctx, rag)
	if err != nil {
		log.Printf("Warning: could not check existing sources: %v", err)
		existingSources = make(map[string]bool)
	}

	if len(existingSources) > 0 {
		fmt.Printf("Found %d existing books in database\n", len(existingSources))
	}

	// Download and ingest each book
	totalChunks := 0
	skipped := 0
	processed := 0
	for i, bookName := range kjvBooks {
		source := fmt.Sprintf("kjv/%s", bookName)

		// Skip if the book was already ingested
		if existingSources[source] {
			fmt.Printf("Skipping %s (%d/%d) - already ingested\n", bookName, i+1, len(kjvBooks))
			skipped++
			continue
		}

		fmt.Printf("Downloading %s (%d/%d)...\n", bookName, i+1, len(kjvBooks))

		bookPath, err := downloadBook(bookName, tmpDir)
		if err != nil {
			log.Printf("Warning: %v, skipping...", err)
			continue
		}

		content, err := os.ReadFile(bookPath)
		if err != nil {
			log.Printf("Warning: failed to read %s, skipping...", bookName)
			continue
		}

		bookTitle := extractBookTitle(bookName)
		fmt.Printf("Ingesting %s...\n", bookTitle)
		numChunks, err := rag.IngestText(ctx, source, string(content), model.Metadata{
			"testament": getTestament(bookTitle),
			"book":      bookTitle,
			"edition":   "King James Version (KJV)",
		})
		if err != nil {
			log.Printf("Warning: failed to ingest %s: %v, skipping...", bookTitle, err)
			continue
		}

		fmt.Printf("  ✓ Stored %d chunks from %s\n", numChunks, bookTitle)
		totalChunks += numChunks
		processed++
	}

	fmt.Printf("\n✓ KJV Bible Status:\n")
	fmt.Printf("  - Ingested: %d books (%d chunks)\n", processed, totalChunks)
	fmt.Printf("  - Skipped (already in DB): %d books\n", skipped)
	fmt.Printf("  - Total: %d books\n\n", len(kjvBooks))

	// Search for information about Moses
	query := "What did Moses do on the mountain?"
	fmt.Printf("Searching: %q\n", query)
	fmt.Println(strings.Repeat("=", 20))

	// 1. Similarity search
	fmt.Println("\n1. SIMILARITY SEARCH")
	fmt.Println(strings.Repeat("-", 20))
	simConfig := model.DefaultRetrieverConfig()
	simConfig.TopK = 5
	matches, err := rag.Query(ctx, query, &simConfig)
	if err != nil {
		log.Printf("Similarity search error: %v", err)
	} else {
		printMatches(matches, "Similarity Search")
	}

	// 2. MMR search for more varied passages
	fmt.Println("\n2. MMR SEARCH (diverse passages)")
	fmt.Println(strings.Repeat("-", 20))
	mmrConfig := model.DefaultRetrieverConfig()
	mmrConfig.Kind = model.KindDiversity
	mmrConfig.TopK = 3
	mmrConfig.FetchK = 15
	mmrConfig.Lambda = 0.5
	matches, err = rag.Query(ctx, query, &mmrConfig)
	if err != nil {
		log.Printf("MMR search error: %v", err)
	} else {
		printMatches(matches, "MMR Search")
	}

	// 3. Threshold search, only strong matches
	fmt.Println("\n3. THRESHOLD SEARCH (only strong matches)")
	fmt.Println(strings.Repeat("-", 20))
	thresholdConfig := model.DefaultRetrieverConfig()
	thresholdConfig.Kind = model.KindThreshold
	thresholdConfig.TopK = 5
	thresholdConfig.ScoreThreshold = 0.7
	matches, err = rag.Query(ctx, query, &thresholdConfig)
	if err != nil {
		log.Printf("Threshold search error: %v", err)
	} else {
		printMatches(matches, "Threshold Search")
	}

	fmt.Println("\n" + strings.Repeat("=", 20))
	fmt.Println("Search complete!")
}

// checkExistingSources scans the active collection for records ingested
// under a "kjv/" source and returns the set of those sources.
func checkExistingSources(ctx context.Context, rag *ragcore.Rag) (map[string]bool, error) {
	records, err := rag.Peek(ctx, 100000)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	existingSources := make(map[string]bool)
	for _, record := range records {
		source, ok := record.Metadata["source"].(string)
		if ok && strings.HasPrefix(source, "kjv/") {
			existingSources[source] = true
		}
	}

	return existingSources, nil
}

func getTestament(bookTitle string) string {
	// List of Old Testament books
	oldTestament := map[string]bool{
		"Genesis": true, "Exodus": true, "Leviticus": true, "Numbers": true, "Deuteronomy": true,
		"Joshua": true, "Judges": true, "Ruth": true, "1 Samuel": true, "2 Samuel": true,
		"1 Kings": true, "2 Kings": true, "1 Chronicles": true, "2 Chronicles": true,
		"Ezra": true, "Nehemiah": true, "Esther": true, "Job": true, "Psalms": true,
		"Proverbs": true, "Ecclesiastes": true, "The Song of Solomon": true, "Isaiah": true,
		"Jeremiah": true, "Lamentations": true, "Ezekiel": true, "Daniel": true,
		"Hosea": true, "Joel": true, "Amos": true, "Obadiah": true, "Jonah": true,
		"Micah": true, "Nahum": true, "Habakkuk": true, "Zephaniah": true, "Haggai": true,
		"Zechariah": true, "Malachi": true,
	}

	if oldTestament[bookTitle] {
		return "Old Testament"
	}
	return "New Testament"
}

func extractBookTitle(filename string) string {
	// Extract book name from format like "01 - Genesis - KJV.md"
	parts := strings.Split(filename, " - ")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSuffix(filename, ".md")
}

func printMatches(matches []*model.Match, searchType string) {
	if len(matches) == 0 {
		fmt.Printf("No matches found for %s\n", searchType)
		return
	}

	for i, match := range matches {
		book := "Unknown"
		if b, ok := match.Chunk.Metadata["book"].(string); ok {
			book = b
		}

		fmt.Printf("\n[%d] Score: %.4f | Book: %s | Strategy: %s\n",
			i+1, match.Score, book, match.Strategy)

		// Print text (truncated if too long)
		text := match.Chunk.Text
		if len(text) > 300 {
			text = text[:300] + "..."
		}
		fmt.Printf("    %s\n", strings.ReplaceAll(text, "\n", "\n    "))

		if testament, ok := match.Chunk.Metadata["testament"].(string); ok {
			fmt.Printf("    [%s]\n", testament)
		}
	}
}
