// Package dbtest opens throwaway SQLite databases with the full schema applied.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disgoorg/productivity-bot/prodbot/database"
	"github.com/uptrace/bun"
)

var seq atomic.Int64

// New returns an in-memory database private to t.
func New(t testing.TB) *database.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.New(context.Background(), database.DBConfig{
		Driver: database.DriverSQLite,
		Path:   dsn,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)

	if err = db.InitializeSchema(context.Background()); err != nil {
		t.Fatalf("initialize schema: %v", err)
	}
	return db
}

// Bun is a shortcut for New(t).BunDB().
func Bun(t testing.TB) *bun.DB {
	t.Helper()
	return New(t).BunDB()
}
