package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dynamicdna/academy/internal/db"
	"github.com/dynamicdna/academy/pkg/models"
)

const userColumns = `id, open_id, name, email, login_method, role, created_at, updated_at, last_signed_in`

// UpsertUser inserts the user or updates the provided fields of an existing
// row with the same openId. Nil text fields leave stored values untouched.
func (r *Repo) UpsertUser(ctx context.Context, u *models.UserUpsert) error {
	if u == nil || u.OpenID == "" {
		return fmt.Errorf("user openId is required")
	}
	d, err := r.writer(ctx)
	if err != nil {
		return err
	}

	ts := now()
	cols := []string{"open_id", "created_at", "updated_at"}
	vals := []any{u.OpenID, ts, ts}
	var upd updateBuilder
	upd.set("updated_at", ts)

	field := func(col string, v *string) {
		if v == nil {
			return
		}
		cols = append(cols, col)
		vals = append(vals, *v)
		upd.set(col, *v)
	}
	field("name", u.Name)
	field("email", u.Email)
	field("login_method", u.LoginMethod)

	switch {
	case u.Role != nil:
		field("role", u.Role)
	case r.ownerOpenID != "" && u.OpenID == r.ownerOpenID:
		admin := models.RoleAdmin
		field("role", &admin)
	}

	signed := ts
	if u.LastSignedIn != nil {
		signed = u.LastSignedIn.UTC().UnixMilli()
	}
	cols = append(cols, "last_signed_in")
	vals = append(vals, signed)
	if u.LastSignedIn != nil || len(upd.sets) == 1 {
		upd.set("last_signed_in", signed)
	}

	conflict := "ON CONFLICT(open_id) DO UPDATE SET "
	if d.Dialect() == db.DialectMySQL {
		conflict = "ON DUPLICATE KEY UPDATE "
	}
	q := "INSERT INTO users (" + strings.Join(cols, ", ") + ") VALUES (?" + strings.Repeat(", ?", len(cols)-1) + ") " +
		conflict + strings.Join(upd.sets, ", ")

	if _, err := d.Exec(ctx, q, append(vals, upd.args...)...); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *Repo) GetUserByOpenID(ctx context.Context, openID string) (*models.User, error) {
	d, ok := r.reader(ctx, "GetUserByOpenID")
	if !ok {
		return nil, nil
	}
	return scanUser(d.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE open_id = ? LIMIT 1`, openID))
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	d, ok := r.reader(ctx, "GetUserByEmail")
	if !ok {
		return nil, nil
	}
	return scanUser(d.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? ORDER BY id LIMIT 1`, email))
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u                            models.User
		name, email, method          sql.NullString
		created, updated, lastSigned int64
	)
	if err := row.Scan(&u.ID, &u.OpenID, &name, &email, &method, &u.Role, &created, &updated, &lastSigned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Name = strPtr(name)
	u.Email = strPtr(email)
	u.LoginMethod = strPtr(method)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	u.LastSignedIn = fromMillis(lastSigned)
	return &u, nil
}
