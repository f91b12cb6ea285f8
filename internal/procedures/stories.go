package procedures

import (
	"context"

	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/pkg/models"
)

type storyCreateInput struct {
	StudentName     string  `json:"studentName"`
	Program         string  `json:"program"`
	GraduationYear  int     `json:"graduationYear"`
	CurrentPosition *string `json:"currentPosition"`
	Company         *string `json:"company"`
	ImageURL        *string `json:"imageUrl"`
	Story           string  `json:"story"`
	Quote           *string `json:"quote"`
	Featured        bool    `json:"featured"`
	Published       bool    `json:"published"`
}

type storyUpdateInput struct {
	ID              int64   `json:"id"`
	StudentName     *string `json:"studentName"`
	Program         *string `json:"program"`
	GraduationYear  *int    `json:"graduationYear"`
	CurrentPosition *string `json:"currentPosition"`
	Company         *string `json:"company"`
	ImageURL        *string `json:"imageUrl"`
	Story           *string `json:"story"`
	Quote           *string `json:"quote"`
	Featured        *bool   `json:"featured"`
	Published       *bool   `json:"published"`
}

func (p *procedures) registerStories(reg *rpc.Registry) {
	reg.Query("studentStories.getPublished", rpc.Public, func(ctx context.Context, _ *rpc.Call) (any, error) {
		return p.store.ListStories(ctx, true)
	})

	reg.Query("studentStories.getFeatured", rpc.Public, func(ctx context.Context, _ *rpc.Call) (any, error) {
		return p.store.ListFeaturedStories(ctx)
	})

	reg.Query("studentStories.getAll", rpc.Admin, func(ctx context.Context, _ *rpc.Call) (any, error) {
		return p.store.ListStories(ctx, false)
	})

	reg.Query("studentStories.getById", rpc.Admin, rpc.Bind(func(ctx context.Context, in idInput) (any, error) {
		return p.store.GetStoryByID(ctx, in.ID)
	}), p.schema("id"))

	reg.Mutation("studentStories.create", rpc.Admin, rpc.Bind(func(ctx context.Context, in storyCreateInput) (any, error) {
		id, err := p.store.CreateStory(ctx, &models.StudentStory{
			StudentName:     in.StudentName,
			Program:         in.Program,
			GraduationYear:  in.GraduationYear,
			CurrentPosition: in.CurrentPosition,
			Company:         in.Company,
			ImageURL:        in.ImageURL,
			Story:           in.Story,
			Quote:           in.Quote,
			Featured:        in.Featured,
			Published:       in.Published,
		})
		if err != nil {
			return nil, err
		}
		return success{Success: true, ID: id}, nil
	}), p.schema("story_create"))

	reg.Mutation("studentStories.update", rpc.Admin, rpc.Bind(func(ctx context.Context, in storyUpdateInput) (any, error) {
		err := p.store.UpdateStory(ctx, in.ID, &models.StoryPatch{
			StudentName:     in.StudentName,
			Program:         in.Program,
			GraduationYear:  in.GraduationYear,
			CurrentPosition: in.CurrentPosition,
			Company:         in.Company,
			ImageURL:        in.ImageURL,
			Story:           in.Story,
			Quote:           in.Quote,
			Featured:        in.Featured,
			Published:       in.Published,
		})
		if err != nil {
			return nil, err
		}
		return success{Success: true}, nil
	}), p.schema("story_update"))

	reg.Mutation("studentStories.delete", rpc.Admin, rpc.Bind(func(ctx context.Context, in idInput) (any, error) {
		if err := p.store.DeleteStory(ctx, in.ID); err != nil {
			return nil, err
		}
		return success{Success: true}, nil
	}), p.schema("id"))
}
