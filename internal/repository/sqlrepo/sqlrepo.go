package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dynamicdna/academy/internal/db"
	"github.com/dynamicdna/academy/pkg/repository"
)

// Repo implements the repository interfaces on top of a lazily opened
// database. Writes fail with repository.ErrDatabaseUnavailable when no
// connection can be made; reads log and return empty results instead.
type Repo struct {
	provider    *db.Provider
	ownerOpenID string
	logger      *slog.Logger
}

var _ repository.Store = (*Repo)(nil)

// Option configures a Repo.
type Option func(*Repo)

// WithOwnerOpenID makes user upserts for openID default to the admin role.
func WithOwnerOpenID(openID string) Option {
	return func(r *Repo) { r.ownerOpenID = openID }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Repo) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(p *db.Provider, opts ...Option) *Repo {
	r := &Repo{
		provider: p,
		logger:   slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// writer returns the connection for a mutating operation.
func (r *Repo) writer(ctx context.Context) (*db.DB, error) {
	d, err := r.provider.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrDatabaseUnavailable, err)
	}
	return d, nil
}

// reader returns the connection for a query, or false when the database is
// unreachable and the caller should return an empty result.
func (r *Repo) reader(ctx context.Context, op string) (*db.DB, bool) {
	d, err := r.provider.Get(ctx)
	if err != nil {
		r.logger.Warn("database unavailable, returning empty result", "op", op, "err", err)
		return nil, false
	}
	return d, true
}

type scanner interface {
	Scan(dest ...any) error
}

// expectRow maps a zero-row update or delete to repository.ErrNotFound.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// updateBuilder accumulates "col = ?" assignments for partial updates.
type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) set(col string, v any) {
	b.sets = append(b.sets, col+" = ?")
	b.args = append(b.args, v)
}

func (b *updateBuilder) sql(table string) string {
	return "UPDATE " + table + " SET " + strings.Join(b.sets, ", ") + " WHERE id = ?"
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func millisPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// nullString binds a nil pointer as NULL.
func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// emptyAsNull binds both a nil pointer and an empty string as NULL.
func emptyAsNull(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
