package procedures

import (
	"context"
	"strings"

	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/internal/session"
	"github.com/dynamicdna/academy/internal/slug"
	"github.com/dynamicdna/academy/pkg/models"
)

type slugInput struct {
	Slug string `json:"slug"`
}

type newsCreateInput struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Excerpt   string `json:"excerpt"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageUrl"`
	Category  string `json:"category"`
	Published bool   `json:"published"`
}

type newsUpdateInput struct {
	ID        int64   `json:"id"`
	Title     *string `json:"title"`
	Slug      *string `json:"slug"`
	Excerpt   *string `json:"excerpt"`
	Content   *string `json:"content"`
	ImageURL  *string `json:"imageUrl"`
	Category  *string `json:"category"`
	Published *bool   `json:"published"`
}

func (p *procedures) registerNews(reg *rpc.Registry) {
	reg.Query("news.getPublished", rpc.Public, func(ctx context.Context, _ *rpc.Call) (any, error) {
		return p.store.ListNews(ctx, true)
	})

	reg.Query("news.getBySlug", rpc.Public, rpc.Bind(func(ctx context.Context, in slugInput) (any, error) {
		// lookups are normalized the same way stored slugs are
		s := in.Slug
		if !slug.Valid(s) {
			s = slug.Slugify(s)
		}
		if s == "" {
			return (*models.News)(nil), nil
		}
		return p.store.GetNewsBySlug(ctx, s)
	}), p.schema("slug"))

	reg.Query("news.getAll", rpc.Admin, func(ctx context.Context, _ *rpc.Call) (any, error) {
		return p.store.ListNews(ctx, false)
	})

	reg.Query("news.getById", rpc.Admin, rpc.Bind(func(ctx context.Context, in idInput) (any, error) {
		return p.store.GetNewsByID(ctx, in.ID)
	}), p.schema("id"))

	reg.Mutation("news.create", rpc.Admin, rpc.Bind(p.createNews), p.schema("news_create"))
	reg.Mutation("news.update", rpc.Admin, rpc.Bind(p.updateNews), p.schema("news_update"))

	reg.Mutation("news.delete", rpc.Admin, rpc.Bind(func(ctx context.Context, in idInput) (any, error) {
		if err := p.store.DeleteNews(ctx, in.ID); err != nil {
			return nil, err
		}
		return success{Success: true}, nil
	}), p.schema("id"))
}

func (p *procedures) createNews(ctx context.Context, in newsCreateInput) (any, error) {
	s, err := normalizeSlug(in.Slug)
	if err != nil {
		return nil, err
	}

	n := &models.News{
		Title:     in.Title,
		Slug:      s,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		Category:  strings.TrimSpace(in.Category),
		Published: in.Published,
		AuthorID:  session.IdentityFrom(ctx).ID,
	}
	if in.ImageURL != "" {
		n.ImageURL = &in.ImageURL
	}
	if in.Published {
		now := p.now()
		n.PublishedAt = &now
	}

	id, err := p.store.CreateNews(ctx, n)
	if err != nil {
		return nil, err
	}
	return success{Success: true, ID: id}, nil
}

func (p *procedures) updateNews(ctx context.Context, in newsUpdateInput) (any, error) {
	patch := &models.NewsPatch{
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		Category:  in.Category,
		Published: in.Published,
	}
	if in.Slug != nil {
		s, err := normalizeSlug(*in.Slug)
		if err != nil {
			return nil, err
		}
		patch.Slug = &s
	}

	// publishedAt is stamped once, on the unpublished -> published flip
	if in.Published != nil && *in.Published {
		existing, err := p.store.GetNewsByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		// a missing row is reported by UpdateNews
		if existing != nil && !existing.Published {
			now := p.now()
			patch.PublishedAt = &now
		}
	}

	if err := p.store.UpdateNews(ctx, in.ID, patch); err != nil {
		return nil, err
	}
	return success{Success: true}, nil
}

func normalizeSlug(raw string) (string, error) {
	s := slug.Slugify(raw)
	if s == "" {
		return "", &rpc.Error{
			Code:    rpc.CodeBadRequest,
			Message: "Invalid input: slug: must contain letters or digits",
			Fields:  []rpc.FieldError{{Field: "slug", Message: "must contain letters or digits"}},
		}
	}
	return s, nil
}
