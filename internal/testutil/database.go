package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package

	"github.com/nido-app/nido-backend/internal/database"
)

// SetupTestDB creates an in-memory SQLite database for testing, with the full
// migration set applied. Migrations also seed the instrument registry, so the
// Instrument* ID constants below are valid in every test database.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// Each pooled connection would get its own :memory: database; pin the
	// pool to one connection so schema and data stay visible.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Same migrations as production, so test schema never drifts.
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// Seeded instrument IDs from the initial migration.
const (
	InstrumentICOLCAP = "d2a7c460-1cf3-4f4a-9e8c-111111111111" // COP, reference price 12500
	InstrumentHCOLSEL = "d2a7c460-1cf3-4f4a-9e8c-222222222222" // COP, reference price 9800
	InstrumentCSPX    = "d2a7c460-1cf3-4f4a-9e8c-333333333333" // USD, reference price 480
)
