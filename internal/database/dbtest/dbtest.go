// Package dbtest provides a migrated in-memory SQLite database for tests.
package dbtest

import (
	"database/sql"
	"testing"

	"github.com/iliyamo/ordermgmt/internal/config"
	"github.com/iliyamo/ordermgmt/internal/database"
)

// New opens a fresh in-memory database with every migration applied.
// It is closed when the test ends.
func New(t testing.TB) *sql.DB {
	t.Helper()
	cfg := config.DBConfig{Driver: config.DriverSQLite, Path: ":memory:"}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db, cfg, database.Up); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}
