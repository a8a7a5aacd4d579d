//go:build integration

package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/adapters/repository/storetest"
)

// Requires a disposable database: every path truncates all tables.
func TestSuite(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	storetest.Run(t, func(t *testing.T) repository.Store {
		_, err := s.pool.Exec(ctx,
			`TRUNCATE matches, ratings, criteria, criteria_groups, titles RESTART IDENTITY CASCADE`)
		if err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}
