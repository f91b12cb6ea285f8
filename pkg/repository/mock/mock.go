package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dynamicdna/academy/pkg/models"
	"github.com/dynamicdna/academy/pkg/repository"
)

// Store is an in-memory repository.Store for tests. Set Unavailable to mimic
// a missing database; set WriteErr to make the next writes fail.
type Store struct {
	mu sync.Mutex

	Unavailable bool
	WriteErr    error

	Users    map[string]*models.User
	Learners map[int64]*models.LearnerApplication
	Clients  map[int64]*models.ClientApplication
	News     map[int64]*models.News
	Stories  map[int64]*models.StudentStory

	nextID int64
	Now    func() time.Time
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		Users:    map[string]*models.User{},
		Learners: map[int64]*models.LearnerApplication{},
		Clients:  map[int64]*models.ClientApplication{},
		News:     map[int64]*models.News{},
		Stories:  map[int64]*models.StudentStory{},
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) writeErr() error {
	if s.Unavailable {
		return repository.ErrDatabaseUnavailable
	}
	return s.WriteErr
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddUser stores u directly, assigning an id when missing.
func (s *Store) AddUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	}
	if u.Role == "" {
		u.Role = models.RoleAdmin
	}
	s.Users[u.OpenID] = &u
	return &u
}

func (s *Store) UpsertUser(ctx context.Context, in *models.UserUpsert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}

	now := s.Now()
	u, ok := s.Users[in.OpenID]
	if !ok {
		u = &models.User{ID: s.id(), OpenID: in.OpenID, Role: models.RoleAdmin, CreatedAt: now}
		s.Users[in.OpenID] = u
	}
	if in.Name != nil {
		u.Name = in.Name
	}
	if in.Email != nil {
		u.Email = in.Email
	}
	if in.LoginMethod != nil {
		u.LoginMethod = in.LoginMethod
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	u.LastSignedIn = now
	if in.LastSignedIn != nil {
		u.LastSignedIn = *in.LastSignedIn
	}
	u.UpdatedAt = now
	return nil
}

func (s *Store) GetUserByOpenID(ctx context.Context, openID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return nil, nil
	}
	if u, ok := s.Users[openID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return nil, nil
	}
	for _, u := range s.Users {
		if u.Email != nil && *u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateLearnerApplication(ctx context.Context, a *models.LearnerApplication) (*models.LearnerApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return nil, err
	}
	cp := *a
	cp.ID = s.id()
	cp.Review = models.Review{Status: models.StatusPending}
	cp.CreatedAt, cp.UpdatedAt = s.Now(), s.Now()
	s.Learners[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) ListLearnerApplications(ctx context.Context, status string) ([]models.LearnerApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.LearnerApplication{}
	if s.Unavailable {
		return out, nil
	}
	for _, a := range s.Learners {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) GetLearnerApplication(ctx context.Context, id int64) (*models.LearnerApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.Learners[id]; ok && !s.Unavailable {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) UpdateLearnerApplicationStatus(ctx context.Context, id int64, status string, reviewerID int64, notes *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	a, ok := s.Learners[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.review(&a.Review, status, reviewerID, notes)
	a.UpdatedAt = s.Now()
	return nil
}

func (s *Store) CreateClientApplication(ctx context.Context, a *models.ClientApplication) (*models.ClientApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return nil, err
	}
	cp := *a
	cp.ID = s.id()
	cp.Review = models.Review{Status: models.StatusPending}
	cp.CreatedAt, cp.UpdatedAt = s.Now(), s.Now()
	s.Clients[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) ListClientApplications(ctx context.Context, status string) ([]models.ClientApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ClientApplication{}
	if s.Unavailable {
		return out, nil
	}
	for _, a := range s.Clients {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) GetClientApplication(ctx context.Context, id int64) (*models.ClientApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.Clients[id]; ok && !s.Unavailable {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) UpdateClientApplicationStatus(ctx context.Context, id int64, status string, reviewerID int64, notes *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	a, ok := s.Clients[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.review(&a.Review, status, reviewerID, notes)
	a.UpdatedAt = s.Now()
	return nil
}

func (s *Store) review(r *models.Review, status string, reviewerID int64, notes *string) {
	at := s.Now()
	r.Status = status
	r.ReviewedBy = &reviewerID
	r.ReviewedAt = &at
	r.AdminNotes = nil
	if notes != nil && *notes != "" {
		n := *notes
		r.AdminNotes = &n
	}
}

func (s *Store) CreateNews(ctx context.Context, n *models.News) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return 0, err
	}
	for _, existing := range s.News {
		if existing.Slug == n.Slug {
			return 0, repository.ErrConflict
		}
	}
	cp := *n
	cp.ID = s.id()
	if cp.Category == "" {
		cp.Category = "General"
	}
	cp.CreatedAt, cp.UpdatedAt = s.Now(), s.Now()
	s.News[cp.ID] = &cp
	return cp.ID, nil
}

func (s *Store) ListNews(ctx context.Context, publishedOnly bool) ([]models.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.News{}
	if s.Unavailable {
		return out, nil
	}
	for _, n := range s.News {
		if !publishedOnly || n.Published {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) GetNewsByID(ctx context.Context, id int64) (*models.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.News[id]; ok && !s.Unavailable {
		cp := *n
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) GetNewsBySlug(ctx context.Context, slug string) (*models.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return nil, nil
	}
	for _, n := range s.News {
		if n.Slug == slug {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateNews(ctx context.Context, id int64, p *models.NewsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	n, ok := s.News[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Slug != nil {
		n.Slug = *p.Slug
	}
	if p.Excerpt != nil {
		n.Excerpt = *p.Excerpt
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Category != nil {
		n.Category = *p.Category
	}
	if p.Published != nil {
		n.Published = *p.Published
	}
	if p.ImageURL != nil {
		n.ImageURL = emptyAsNil(p.ImageURL)
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		n.PublishedAt = &t
	}
	n.UpdatedAt = s.Now()
	return nil
}

func (s *Store) DeleteNews(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	if _, ok := s.News[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.News, id)
	return nil
}

func (s *Store) CreateStory(ctx context.Context, st *models.StudentStory) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return 0, err
	}
	cp := *st
	cp.ID = s.id()
	cp.CurrentPosition = emptyAsNil(cp.CurrentPosition)
	cp.Company = emptyAsNil(cp.Company)
	cp.ImageURL = emptyAsNil(cp.ImageURL)
	cp.Quote = emptyAsNil(cp.Quote)
	cp.CreatedAt, cp.UpdatedAt = s.Now(), s.Now()
	s.Stories[cp.ID] = &cp
	return cp.ID, nil
}

func (s *Store) ListStories(ctx context.Context, publishedOnly bool) ([]models.StudentStory, error) {
	return s.listStories(func(st *models.StudentStory) bool { return !publishedOnly || st.Published })
}

func (s *Store) ListFeaturedStories(ctx context.Context) ([]models.StudentStory, error) {
	return s.listStories(func(st *models.StudentStory) bool { return st.Published && st.Featured })
}

func (s *Store) listStories(keep func(*models.StudentStory) bool) ([]models.StudentStory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.StudentStory{}
	if s.Unavailable {
		return out, nil
	}
	for _, st := range s.Stories {
		if keep(st) {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) GetStoryByID(ctx context.Context, id int64) (*models.StudentStory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.Stories[id]; ok && !s.Unavailable {
		cp := *st
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) UpdateStory(ctx context.Context, id int64, p *models.StoryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	st, ok := s.Stories[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.StudentName != nil {
		st.StudentName = *p.StudentName
	}
	if p.Program != nil {
		st.Program = *p.Program
	}
	if p.GraduationYear != nil {
		st.GraduationYear = *p.GraduationYear
	}
	if p.CurrentPosition != nil {
		st.CurrentPosition = emptyAsNil(p.CurrentPosition)
	}
	if p.Company != nil {
		st.Company = emptyAsNil(p.Company)
	}
	if p.ImageURL != nil {
		st.ImageURL = emptyAsNil(p.ImageURL)
	}
	if p.Story != nil {
		st.Story = *p.Story
	}
	if p.Quote != nil {
		st.Quote = emptyAsNil(p.Quote)
	}
	if p.Featured != nil {
		st.Featured = *p.Featured
	}
	if p.Published != nil {
		st.Published = *p.Published
	}
	st.UpdatedAt = s.Now()
	return nil
}

func (s *Store) DeleteStory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr(); err != nil {
		return err
	}
	if _, ok := s.Stories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.Stories, id)
	return nil
}

func emptyAsNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	s := *v
	return &s
}
