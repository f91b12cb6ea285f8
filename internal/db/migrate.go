package db

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// Migrate applies the embedded goose migrations for the connection's dialect.
// Migrations live under migrations/<dialect>/ in migrationFS.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{})

	dialect := "sqlite3"
	if d.dialect == DialectMySQL {
		dialect = "mysql"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	dir := path.Join("migrations", string(d.dialect))
	if err := goose.UpContext(ctx, d.conn, dir); err != nil {
		return fmt.Errorf("apply migrations from %s: %w", dir, err)
	}
	return nil
}

// gooseLogger routes goose output to the package logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}
