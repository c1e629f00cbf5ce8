package testutils

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/feedloop/securenotes/internal/database"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	testDB     *sqlx.DB
	dbInitOnce sync.Once
	dbInitErr  error
)

// TestDB returns a migrated connection to the database named by
// TEST_DATABASE_URL. Tests are skipped when the variable is unset.
func TestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	dbInitOnce.Do(func() {
		if dbInitErr = database.Migrate(dbURL); dbInitErr != nil {
			return
		}
		testDB, dbInitErr = sqlx.Connect("postgres", dbURL)
	})
	if dbInitErr != nil {
		t.Fatalf("Failed to initialize test database: %v", dbInitErr)
	}

	truncate(t)
	t.Cleanup(func() { truncate(t) })

	return testDB
}

func truncate(t *testing.T) {
	// TRUNCATE does not fire the row-level append-only trigger on audit_events.
	if _, err := testDB.Exec("TRUNCATE TABLE notes, users, audit_events RESTART IDENTITY CASCADE"); err != nil {
		t.Errorf("Failed to clean up test data: %v", err)
	}
}

// RandomUsername returns a unique username for tests sharing one database.
func RandomUsername(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}
