package database

import (
	"database/sql"
	"testing"
)

// NewTestDB creates a fresh in-memory sqlite database with the schema applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	// A pooled second connection would see its own empty :memory: database.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
