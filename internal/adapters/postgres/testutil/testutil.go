package testutil

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/postgres"
)

// OpenMigratedPool connects to TEST_DATABASE_URL and applies db/schema.sql.
// Tests are skipped when the variable is unset, so the postgres contract
// suites only run where a disposable database is available.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{})
	if err != nil {
		t.Fatalf("open test pool: %v", err)
	}
	t.Cleanup(pool.Close)

	ddl, err := os.ReadFile(schemaPath(t))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(ddl)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return pool
}

// TruncateCache empties the cache table between contract sub-suites.
func TruncateCache(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), `TRUNCATE api_response_cache`); err != nil {
		t.Fatalf("truncate cache: %v", err)
	}
}

// TruncateHistory empties the search history table.
func TruncateHistory(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), `TRUNCATE search_history`); err != nil {
		t.Fatalf("truncate history: %v", err)
	}
}

func schemaPath(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate schema file")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "..", "db", "schema.sql")
}
