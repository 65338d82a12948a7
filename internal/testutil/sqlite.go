package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cimillas/item-reservations/internal/storage/sqlite"
	"github.com/cimillas/item-reservations/migrations"
)

// NewSQLite opens a migrated database in a fresh temp dir.
func NewSQLite(t *testing.T) *sqlite.DB {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "reservations.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := migrations.ApplySQLite(ctx, db.SQL()); err != nil {
		t.Fatalf("apply sqlite migrations: %v", err)
	}
	return db
}
