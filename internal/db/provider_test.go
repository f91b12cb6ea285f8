package db_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	dbfs "github.com/dynamicdna/academy/db"
	"github.com/dynamicdna/academy/internal/db"
)

func TestProvider_NotConfigured(t *testing.T) {
	p := db.NewProvider("", dbfs.Migrations)
	if _, err := p.Get(context.Background()); !errors.Is(err, db.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close on unopened provider: %v", err)
	}
}

func TestProvider_OpensOnceAndMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "academy.db")

	p := db.NewProvider("sqlite://"+path, dbfs.Migrations)
	defer p.Close()

	first, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same *DB on repeated Get")
	}

	var n int
	if err := first.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatalf("users table missing after Get: %v", err)
	}
}

func TestProvider_FailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "missing", "academy.db")

	p := db.NewProvider("sqlite://"+path, nil)
	defer p.Close()

	// the parent directory does not exist yet
	if _, err := p.Get(ctx); err == nil {
		t.Fatalf("expected open failure for %s", path)
	}

	if err := mkdir(filepath.Dir(path)); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := p.Get(ctx); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	d, err := db.New(ctx, "file:static_provider?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p := db.StaticProvider(d)
	got, err := p.Get(ctx)
	if err != nil || got != d {
		t.Fatalf("StaticProvider.Get = %v, %v", got, err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func mkdir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
