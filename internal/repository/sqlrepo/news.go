package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dynamicdna/academy/pkg/models"
	"github.com/dynamicdna/academy/pkg/repository"
)

const newsColumns = `id, title, slug, excerpt, content, image_url, category, published, author_id, created_at, updated_at, published_at`

const defaultCategory = "General"

func (r *Repo) CreateNews(ctx context.Context, n *models.News) (int64, error) {
	if n == nil {
		return 0, fmt.Errorf("news is nil")
	}
	d, err := r.writer(ctx)
	if err != nil {
		return 0, err
	}

	category := n.Category
	if category == "" {
		category = defaultCategory
	}
	ts := now()
	res, err := d.Exec(ctx, `INSERT INTO news (title, slug, excerpt, content, image_url, category, published, author_id, created_at, updated_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Title, n.Slug, n.Excerpt, n.Content, emptyAsNull(n.ImageURL), category, n.Published, n.AuthorID, ts, ts, millisPtr(n.PublishedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("news slug %q: %w", n.Slug, repository.ErrConflict)
		}
		return 0, fmt.Errorf("insert news: %w", err)
	}
	return res.LastInsertId()
}

// ListNews returns every article newest first, or only published ones ordered
// by publication time.
func (r *Repo) ListNews(ctx context.Context, publishedOnly bool) ([]models.News, error) {
	d, ok := r.reader(ctx, "ListNews")
	if !ok {
		return []models.News{}, nil
	}

	q := `SELECT ` + newsColumns + ` FROM news ORDER BY created_at DESC, id DESC`
	if publishedOnly {
		q = `SELECT ` + newsColumns + ` FROM news WHERE published = ? ORDER BY published_at DESC, id DESC`
	}
	var args []any
	if publishedOnly {
		args = append(args, true)
	}

	rows, err := d.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.News{}
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *Repo) GetNewsByID(ctx context.Context, id int64) (*models.News, error) {
	d, ok := r.reader(ctx, "GetNewsByID")
	if !ok {
		return nil, nil
	}
	return scanNews(d.QueryRow(ctx, `SELECT `+newsColumns+` FROM news WHERE id = ?`, id))
}

func (r *Repo) GetNewsBySlug(ctx context.Context, slug string) (*models.News, error) {
	d, ok := r.reader(ctx, "GetNewsBySlug")
	if !ok {
		return nil, nil
	}
	return scanNews(d.QueryRow(ctx, `SELECT `+newsColumns+` FROM news WHERE slug = ? LIMIT 1`, slug))
}

// UpdateNews applies the non-nil fields of p. An empty image URL clears it.
func (r *Repo) UpdateNews(ctx context.Context, id int64, p *models.NewsPatch) error {
	if p == nil {
		return fmt.Errorf("news patch is nil")
	}
	d, err := r.writer(ctx)
	if err != nil {
		return err
	}

	var b updateBuilder
	if p.Title != nil {
		b.set("title", *p.Title)
	}
	if p.Slug != nil {
		b.set("slug", *p.Slug)
	}
	if p.Excerpt != nil {
		b.set("excerpt", *p.Excerpt)
	}
	if p.Content != nil {
		b.set("content", *p.Content)
	}
	if p.Category != nil {
		b.set("category", *p.Category)
	}
	if p.Published != nil {
		b.set("published", *p.Published)
	}
	if p.ImageURL != nil {
		b.set("image_url", emptyAsNull(p.ImageURL))
	}
	if p.PublishedAt != nil {
		b.set("published_at", millisPtr(p.PublishedAt))
	}
	b.set("updated_at", now())

	res, err := d.Exec(ctx, b.sql("news"), append(b.args, id)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("news slug: %w", repository.ErrConflict)
		}
		return fmt.Errorf("update news: %w", err)
	}
	return expectRow(res)
}

func (r *Repo) DeleteNews(ctx context.Context, id int64) error {
	d, err := r.writer(ctx)
	if err != nil {
		return err
	}
	res, err := d.Exec(ctx, `DELETE FROM news WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete news: %w", err)
	}
	return expectRow(res)
}

func scanNews(row scanner) (*models.News, error) {
	var (
		n                models.News
		image            sql.NullString
		publishedAt      sql.NullInt64
		created, updated int64
	)
	err := row.Scan(&n.ID, &n.Title, &n.Slug, &n.Excerpt, &n.Content, &image, &n.Category, &n.Published,
		&n.AuthorID, &created, &updated, &publishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	n.ImageURL = strPtr(image)
	n.PublishedAt = timePtr(publishedAt)
	n.CreatedAt = fromMillis(created)
	n.UpdatedAt = fromMillis(updated)
	return &n, nil
}
