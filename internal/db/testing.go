package db

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_api/internal/config"
)

// OpenTest returns a migrated in-memory sqlite database closed at test cleanup.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := Open(context.Background(), config.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	t.Cleanup(func() {
		_ = Close(gdb)
	})
	return gdb
}
