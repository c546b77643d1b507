package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/routinebuzz/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConcurrentTestDB creates a file-backed SQLite database in a temp directory.
// Unlike :memory:, a file-backed DB shares state across all connections in the
// pool, which is required to test real concurrent access with WAL mode.
func newConcurrentTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(filepath.Join(t.TempDir(), "concurrent_test.db"))
	require.NoError(t, err, "failed to create concurrent test database")
	t.Cleanup(func() { database.Close() })
	return database
}

// Viewers opening the same share at once must each be counted.
func TestConcurrentAccess_RecordAccessCountsEveryOpen(t *testing.T) {
	database := newConcurrentTestDB(t)
	repo := NewSQLiteSharedRoutineRepo(database)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newStoredRoutine("HOT001", 1, 2)))

	const viewers = 8
	const opensEach = 5
	var wg sync.WaitGroup
	for v := 0; v < viewers; v++ {
		wg.Add(1)
		go func(viewer int) {
			defer wg.Done()
			for i := 0; i < opensEach; i++ {
				if err := repo.RecordAccess(ctx, "HOT001", time.Now()); err != nil {
					t.Errorf("viewer %d: record access: %v", viewer, err)
					return
				}
			}
		}(v)
	}
	wg.Wait()

	got, err := repo.GetByShortCode(ctx, "HOT001")
	require.NoError(t, err)
	assert.Equal(t, viewers*opensEach, got.AccessCount)
}

// A watch session reads the routine while CLI commands write it.
func TestConcurrentAccess_KVReadDuringWrite(t *testing.T) {
	database := newConcurrentTestDB(t)
	repo := NewSQLiteKVRepo(database)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "routinebuzz_routine_courses", "[]"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if err := repo.Set(ctx, "routinebuzz_routine_courses", fmt.Sprintf("[%d]", i)); err != nil {
				t.Errorf("writer: set %d: %v", i, err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(reader int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				v, err := repo.Get(ctx, "routinebuzz_routine_courses")
				if err != nil {
					t.Errorf("reader %d: get: %v", reader, err)
					return
				}
				if v == "" {
					t.Errorf("reader %d: observed empty value", reader)
				}
			}
		}(r)
	}
	wg.Wait()

	final, err := repo.Get(ctx, "routinebuzz_routine_courses")
	require.NoError(t, err)
	assert.Equal(t, "[19]", final)
}
