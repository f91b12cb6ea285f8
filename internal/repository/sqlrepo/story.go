package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dynamicdna/academy/pkg/models"
)

const storyColumns = `id, student_name, program, graduation_year, current_position, company, image_url, story, quote,
	featured, published, created_at, updated_at`

func (r *Repo) CreateStory(ctx context.Context, s *models.StudentStory) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("student story is nil")
	}
	d, err := r.writer(ctx)
	if err != nil {
		return 0, err
	}

	ts := now()
	res, err := d.Exec(ctx, `INSERT INTO student_stories (student_name, program, graduation_year, current_position, company,
		image_url, story, quote, featured, published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.StudentName, s.Program, s.GraduationYear, emptyAsNull(s.CurrentPosition), emptyAsNull(s.Company),
		emptyAsNull(s.ImageURL), s.Story, emptyAsNull(s.Quote), s.Featured, s.Published, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("insert student story: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repo) ListStories(ctx context.Context, publishedOnly bool) ([]models.StudentStory, error) {
	q := `SELECT ` + storyColumns + ` FROM student_stories`
	var args []any
	if publishedOnly {
		q += ` WHERE published = ?`
		args = append(args, true)
	}
	return r.listStories(ctx, "ListStories", q+` ORDER BY created_at DESC, id DESC`, args...)
}

// ListFeaturedStories returns stories that are both published and featured.
func (r *Repo) ListFeaturedStories(ctx context.Context) ([]models.StudentStory, error) {
	return r.listStories(ctx, "ListFeaturedStories",
		`SELECT `+storyColumns+` FROM student_stories WHERE published = ? AND featured = ? ORDER BY created_at DESC, id DESC`,
		true, true)
}

func (r *Repo) listStories(ctx context.Context, op, q string, args ...any) ([]models.StudentStory, error) {
	d, ok := r.reader(ctx, op)
	if !ok {
		return []models.StudentStory{}, nil
	}

	rows, err := d.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.StudentStory{}
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repo) GetStoryByID(ctx context.Context, id int64) (*models.StudentStory, error) {
	d, ok := r.reader(ctx, "GetStoryByID")
	if !ok {
		return nil, nil
	}
	return scanStory(d.QueryRow(ctx, `SELECT `+storyColumns+` FROM student_stories WHERE id = ?`, id))
}

// UpdateStory applies the non-nil fields of p. Empty optional text clears the
// column.
func (r *Repo) UpdateStory(ctx context.Context, id int64, p *models.StoryPatch) error {
	if p == nil {
		return fmt.Errorf("story patch is nil")
	}
	d, err := r.writer(ctx)
	if err != nil {
		return err
	}

	var b updateBuilder
	if p.StudentName != nil {
		b.set("student_name", *p.StudentName)
	}
	if p.Program != nil {
		b.set("program", *p.Program)
	}
	if p.GraduationYear != nil {
		b.set("graduation_year", *p.GraduationYear)
	}
	if p.CurrentPosition != nil {
		b.set("current_position", emptyAsNull(p.CurrentPosition))
	}
	if p.Company != nil {
		b.set("company", emptyAsNull(p.Company))
	}
	if p.ImageURL != nil {
		b.set("image_url", emptyAsNull(p.ImageURL))
	}
	if p.Story != nil {
		b.set("story", *p.Story)
	}
	if p.Quote != nil {
		b.set("quote", emptyAsNull(p.Quote))
	}
	if p.Featured != nil {
		b.set("featured", *p.Featured)
	}
	if p.Published != nil {
		b.set("published", *p.Published)
	}
	b.set("updated_at", now())

	res, err := d.Exec(ctx, b.sql("student_stories"), append(b.args, id)...)
	if err != nil {
		return fmt.Errorf("update student story: %w", err)
	}
	return expectRow(res)
}

func (r *Repo) DeleteStory(ctx context.Context, id int64) error {
	d, err := r.writer(ctx)
	if err != nil {
		return err
	}
	res, err := d.Exec(ctx, `DELETE FROM student_stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student story: %w", err)
	}
	return expectRow(res)
}

func scanStory(row scanner) (*models.StudentStory, error) {
	var (
		s                               models.StudentStory
		position, company, image, quote sql.NullString
		created, updated                int64
	)
	err := row.Scan(&s.ID, &s.StudentName, &s.Program, &s.GraduationYear, &position, &company, &image, &s.Story,
		&quote, &s.Featured, &s.Published, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.CurrentPosition = strPtr(position)
	s.Company = strPtr(company)
	s.ImageURL = strPtr(image)
	s.Quote = strPtr(quote)
	s.CreatedAt = fromMillis(created)
	s.UpdatedAt = fromMillis(updated)
	return &s, nil
}
