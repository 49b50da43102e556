package testsupport

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-book-catalog/store"
	"github.com/uptrace/bun"
)

var dbCounter atomic.Int64

// OpenDB returns an empty in-memory SQLite catalog with the schema applied.
// Every call gets its own database, closed when the test ends.
func OpenDB(t testing.TB) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:catalog_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbCounter.Add(1))

	db, err := store.Open(store.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := store.CreateSchema(context.Background(), db, false); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// SeedDB inserts doc into db, failing the test on error.
func SeedDB(t testing.TB, db *bun.DB, doc store.Catalog) store.SeedResult {
	t.Helper()

	res, err := store.SeedCatalog(context.Background(), db, doc, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to seed database: %v", err)
	}
	return res
}

// SeedDBFromFixture seeds db from a JSON catalog fixture.
func SeedDBFromFixture(t testing.TB, db *bun.DB, path string) store.SeedResult {
	t.Helper()

	return SeedDB(t, db, LoadCatalog(t, path))
}
