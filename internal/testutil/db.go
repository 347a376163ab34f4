// Package testutil provides shared test fixtures.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/internal/repository"
)

// NewTestDB opens a private in-memory SQLite database with all migrations
// applied. The database is closed when the test completes. Each call gets
// its own named in-memory instance, so tests never share state.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:test-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.NewDB(dsn)
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}
