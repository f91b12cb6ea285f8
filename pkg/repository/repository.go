package repository

import (
	"context"
	"errors"

	"github.com/dynamicdna/academy/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

// ErrDatabaseUnavailable is returned by write operations when no database
// connection can be established. Read operations degrade to empty results.
var ErrDatabaseUnavailable = errors.New("database not available")

// ErrNotFound is returned when an update or delete targets a missing row.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a unique column (news slug) is already taken.
var ErrConflict = errors.New("record already exists")

type UserRepo interface {
	UpsertUser(ctx context.Context, u *models.UserUpsert) error
	GetUserByOpenID(ctx context.Context, openID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type LearnerApplicationRepo interface {
	CreateLearnerApplication(ctx context.Context, a *models.LearnerApplication) (*models.LearnerApplication, error)
	ListLearnerApplications(ctx context.Context, status string) ([]models.LearnerApplication, error)
	GetLearnerApplication(ctx context.Context, id int64) (*models.LearnerApplication, error)
	UpdateLearnerApplicationStatus(ctx context.Context, id int64, status string, reviewerID int64, notes *string) error
}

type ClientApplicationRepo interface {
	CreateClientApplication(ctx context.Context, a *models.ClientApplication) (*models.ClientApplication, error)
	ListClientApplications(ctx context.Context, status string) ([]models.ClientApplication, error)
	GetClientApplication(ctx context.Context, id int64) (*models.ClientApplication, error)
	UpdateClientApplicationStatus(ctx context.Context, id int64, status string, reviewerID int64, notes *string) error
}

type NewsRepo interface {
	CreateNews(ctx context.Context, n *models.News) (int64, error)
	ListNews(ctx context.Context, publishedOnly bool) ([]models.News, error)
	GetNewsByID(ctx context.Context, id int64) (*models.News, error)
	GetNewsBySlug(ctx context.Context, slug string) (*models.News, error)
	UpdateNews(ctx context.Context, id int64, p *models.NewsPatch) error
	DeleteNews(ctx context.Context, id int64) error
}

type StoryRepo interface {
	CreateStory(ctx context.Context, s *models.StudentStory) (int64, error)
	ListStories(ctx context.Context, publishedOnly bool) ([]models.StudentStory, error)
	ListFeaturedStories(ctx context.Context) ([]models.StudentStory, error)
	GetStoryByID(ctx context.Context, id int64) (*models.StudentStory, error)
	UpdateStory(ctx context.Context, id int64, p *models.StoryPatch) error
	DeleteStory(ctx context.Context, id int64) error
}

// Store groups every repository the RPC surface needs.
type Store interface {
	UserRepo
	LearnerApplicationRepo
	ClientApplicationRepo
	NewsRepo
	StoryRepo
}
