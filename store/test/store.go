package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/slotfinder/internal/profile"
	"github.com/hrygo/slotfinder/store"
	"github.com/hrygo/slotfinder/store/db"
)

// NewTestingStore creates a migrated store for tests. DRIVER selects the
// backend; postgres runs only when POSTGRES_TEST_DSN is set.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	return newTestingStoreWithMode(ctx, t, "dev")
}

func newTestingStoreWithMode(ctx context.Context, t *testing.T, mode string) *store.Store {
	t.Helper()
	p := getTestingProfile(t, mode)

	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	s := store.New(dbDriver, p)
	t.Cleanup(func() {
		_ = s.Close()
	})

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return s
}

func getTestingProfile(t *testing.T, mode string) *profile.Profile {
	t.Helper()
	driver := getDriverFromEnv()
	dir := t.TempDir()

	p := &profile.Profile{
		Mode:            mode,
		Data:            dir,
		Driver:          driver,
		DefaultTimezone: "UTC",
	}
	switch driver {
	case "sqlite":
		p.DSN = filepath.Join(dir, fmt.Sprintf("slotfinder_%s.db", mode))
	case "postgres":
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN not set")
		}
		p.DSN = dsn
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
