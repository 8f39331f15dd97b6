package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/ragcore/helper"
)

// ChangeIndexType changes the vector index type of a collection between
// HNSW and IVFFlat.
// indexType: "hnsw" or "ivfflat"
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
func (h *CollectionsDBHandler) ChangeIndexType(ctx context.Context, collection string, indexType string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	indexName := fmt.Sprintf("idx_%s_embedding", collection)

	// Drop existing index
	_, err := h.db.Instance.ExecContext(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %q;`, indexName))
	if err != nil {
		return helper.NewError("drop index", err)
	}

	h.db.Logger.Info("Dropped existing vector index")

	// Create new index based on type
	var createIndexSQL string

	switch indexType {
	case "hnsw":
		m := 16
		efConstruction := 64

		if mVal, ok := params["m"].(int); ok {
			m = mVal
		}
		if efVal, ok := params["ef_construction"].(int); ok {
			efConstruction = efVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX %q ON %q USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			indexName, collection, m, efConstruction,
		)

	case "ivfflat":
		lists := 100
		if listsVal, ok := params["lists"].(int); ok {
			lists = listsVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX %q ON %q USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			indexName, collection, lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	// Create the new index
	_, err = h.db.Instance.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	h.db.Logger.Info(fmt.Sprintf("Created %s index on %s with params: %v", indexType, collection, params))

	return nil
}
