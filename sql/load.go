package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed collections.sql
var collectionsSQL string

// Function list for verification
var CollectionsFunctions = []string{
	"ensure_collection",
	"insert_record",
	"search_collection",
	"delete_by_metadata",
	"drop_collection",
	"count_records",
	"peek_records",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadCollectionsSql loads collection-related SQL functions
func LoadCollectionsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, CollectionsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing collections functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(collectionsSQL)
	if err != nil {
		return fmt.Errorf("error executing collections SQL: %w", err)
	}

	exist, err := checkFunctions(db, CollectionsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL collections functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	return LoadCollectionsSql(db, force)
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
