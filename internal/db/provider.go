package db

import (
	"context"
	"io/fs"
	"sync"
)

// Provider hands out a process-wide DB, opening it on first use and reusing it
// afterwards. A failed open is not cached: the next call tries again.
type Provider struct {
	url        string
	migrations fs.FS

	mu sync.Mutex
	db *DB
}

// NewProvider returns a Provider for databaseURL. When migrations is non-nil
// they are applied right after the connection is first opened.
func NewProvider(databaseURL string, migrations fs.FS) *Provider {
	return &Provider{url: databaseURL, migrations: migrations}
}

// StaticProvider wraps an already-open DB.
func StaticProvider(d *DB) *Provider {
	return &Provider{db: d}
}

// Get returns the shared DB, opening it if needed.
func (p *Provider) Get(ctx context.Context) (*DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return p.db, nil
	}

	d, err := Open(ctx, p.url)
	if err != nil {
		if err != ErrNotConfigured {
			logger.Warn("database open failed", "err", err)
		}
		return nil, err
	}
	if p.migrations != nil {
		if err := Migrate(ctx, d, p.migrations); err != nil {
			d.Close()
			logger.Error("database migration failed", "err", err)
			return nil, err
		}
	}

	logger.Info("database connected", "dialect", string(d.dialect))
	p.db = d
	return d, nil
}

// Close releases the connection if one was opened.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
