package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/ragcore/helper"
	"github.com/siherrmann/ragcore/model"
	loadSql "github.com/siherrmann/ragcore/sql"
)

// CollectionsDBHandlerFunctions defines the interface for collection database operations.
type CollectionsDBHandlerFunctions interface {
	Add(ctx context.Context, collection string, records []model.Record) error
	Search(ctx context.Context, collection string, vector []float32, limit int, filter model.Metadata) ([]model.ScoredRecord, error)
	DeleteByMetadata(ctx context.Context, collection string, filter model.Metadata) (int, error)
	Drop(ctx context.Context, collection string) error
	Count(ctx context.Context, collection string) (int, error)
	Peek(ctx context.Context, collection string, limit int) ([]model.Record, error)
}

// CollectionsDBHandler stores vector records in per-collection Postgres
// tables through the embedded plpgsql functions. A collection's vector
// dimensionality is fixed by the first insert; later inserts or searches
// with a different length surface as model.DimensionMismatchError.
type CollectionsDBHandler struct {
	db *helper.Database
}

// NewCollectionsDBHandler creates a new collections database handler.
// It initializes the database extensions and loads collection-related
// SQL functions. If force is true, it will reload the SQL functions even
// if they already exist.
func NewCollectionsDBHandler(db *helper.Database, force bool) (*CollectionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	handler := &CollectionsDBHandler{
		db: db,
	}

	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("init database extensions", err)
	}

	err = loadSql.LoadCollectionsSql(db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load collections sql", err)
	}

	db.Logger.Info("Initialized CollectionsDBHandler")

	return handler, nil
}

// Add inserts records into the collection, creating the table on first
// use with the dimensionality of the first record. All records are
// inserted in one transaction so a mismatch mid-batch leaves nothing
// behind.
func (h *CollectionsDBHandler) Add(ctx context.Context, collection string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`SELECT ensure_collection($1, $2)`,
		collection,
		len(records[0].Vector),
	)
	if err != nil {
		return helper.NewError("ensure collection", err)
	}

	for _, record := range records {
		_, err = tx.ExecContext(
			ctx,
			`SELECT insert_record($1, $2, $3, $4, $5)`,
			collection,
			record.ID,
			pgvector.NewVector(record.Vector),
			record.Text,
			record.Metadata,
		)
		if err != nil {
			return translateDimensionError(collection, err)
		}
	}

	return tx.Commit()
}

// Search returns up to limit records ranked by cosine similarity to
// vector. Scores are normalized into [0, 1], ties keep insertion order.
func (h *CollectionsDBHandler) Search(ctx context.Context, collection string, vector []float32, limit int, filter model.Metadata) ([]model.ScoredRecord, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM search_collection($1, $2, $3, $4)`,
		collection,
		pgvector.NewVector(vector),
		limit,
		filterParam(filter),
	)
	if err != nil {
		return nil, translateDimensionError(collection, err)
	}
	defer rows.Close()

	results := []model.ScoredRecord{}
	for rows.Next() {
		var record model.Record
		var embedding pgvector.Vector
		var score float64

		err := rows.Scan(
			&record.ID,
			&embedding,
			&record.Text,
			&record.Metadata,
			&record.CreatedAt,
			&score,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		record.Vector = embedding.Slice()
		results = append(results, model.ScoredRecord{Record: record, Score: score})
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// DeleteByMetadata removes all records whose metadata contains the
// filter and returns how many were removed. An empty filter removes
// nothing.
func (h *CollectionsDBHandler) DeleteByMetadata(ctx context.Context, collection string, filter model.Metadata) (int, error) {
	if len(filter) == 0 {
		return 0, nil
	}

	var deleted int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT delete_by_metadata($1, $2)`,
		collection,
		filter,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("delete by metadata", err)
	}

	return deleted, nil
}

// Drop deletes the collection table, missing collections included
func (h *CollectionsDBHandler) Drop(ctx context.Context, collection string) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT drop_collection($1)`,
		collection,
	)
	if err != nil {
		return helper.NewError("drop collection", err)
	}
	return nil
}

// Count returns the number of records in the collection, 0 when it does
// not exist.
func (h *CollectionsDBHandler) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT count_records($1)`,
		collection,
	).Scan(&count)
	if err != nil {
		return 0, helper.NewError("count records", err)
	}
	return count, nil
}

// Peek returns up to limit records in insertion order
func (h *CollectionsDBHandler) Peek(ctx context.Context, collection string, limit int) ([]model.Record, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM peek_records($1, $2)`,
		collection,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("peek records", err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var record model.Record
		var embedding pgvector.Vector

		err := rows.Scan(
			&record.ID,
			&embedding,
			&record.Text,
			&record.Metadata,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		record.Vector = embedding.Slice()
		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return records, nil
}

// filterParam converts the metadata filter to a query argument, nil when
// empty so the SQL side skips filtering entirely.
func filterParam(filter model.Metadata) interface{} {
	if len(filter) == 0 {
		return nil
	}
	return filter
}

// dimensionErrorPatterns match the pgvector errors raised when a
// vector's length differs from the column's declared dimensionality.
// Inserts report "expected N dimensions, not M", distance operators
// report "different vector dimensions N and M".
var dimensionErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`expected (\d+) dimensions, not (\d+)`),
	regexp.MustCompile(`different vector dimensions (\d+) and (\d+)`),
}

// translateDimensionError converts the pgvector dimensionality errors
// into model.DimensionMismatchError so recovery can act on them. Every
// other error is wrapped unchanged.
func translateDimensionError(collection string, err error) error {
	if err == nil || err == sql.ErrNoRows {
		return err
	}

	var groups []string
	for _, pattern := range dimensionErrorPatterns {
		if groups = pattern.FindStringSubmatch(err.Error()); groups != nil {
			break
		}
	}
	if groups == nil {
		return helper.NewError("exec", err)
	}

	want, _ := strconv.Atoi(groups[1])
	got, _ := strconv.Atoi(groups[2])
	return &model.DimensionMismatchError{
		Collection: collection,
		Want:       want,
		Got:        got,
	}
}
