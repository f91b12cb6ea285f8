// Package procedures registers the academy's RPC procedures: auth, news,
// learner and client applications, the contact form, and student stories.
package procedures

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/qri-io/jsonschema"

	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/pkg/models"
	"github.com/dynamicdna/academy/pkg/repository"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// package-level logger; can be replaced by callers via SetLogger
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the procedures package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Notifier receives the events that trigger email. Implementations must not
// fail the caller; the rows are already persisted when they are called.
type Notifier interface {
	LearnerSubmitted(ctx context.Context, a *models.LearnerApplication)
	ClientSubmitted(ctx context.Context, a *models.ClientApplication)
	ContactSubmitted(ctx context.Context, m *models.ContactMessage)
	LearnerReviewed(ctx context.Context, a *models.LearnerApplication)
	ClientReviewed(ctx context.Context, a *models.ClientApplication)
}

// Deps are the collaborators the procedures need.
type Deps struct {
	Store    repository.Store
	Notifier Notifier
	// FormLimiter throttles the public submission procedures per client IP. Optional.
	FormLimiter *rpc.IPLimiter
	// Now is used for publish timestamps; defaults to time.Now.
	Now func() time.Time
}

type procedures struct {
	store    repository.Store
	notifier Notifier
	now      func() time.Time
	schemas  map[string]*jsonschema.Schema
	public   []rpc.Option
}

// Register adds every procedure to reg.
func Register(reg *rpc.Registry, d Deps) error {
	if d.Store == nil {
		return errors.New("procedures: store is required")
	}
	if d.Notifier == nil {
		return errors.New("procedures: notifier is required")
	}

	p := &procedures{
		store:    d.Store,
		notifier: d.Notifier,
		now:      d.Now,
		schemas:  map[string]*jsonschema.Schema{},
	}
	if p.now == nil {
		p.now = time.Now
	}
	if d.FormLimiter != nil {
		p.public = append(p.public, rpc.Use(rpc.RateLimit(d.FormLimiter)))
	}
	if err := p.loadSchemas(); err != nil {
		return err
	}

	p.registerAuth(reg)
	p.registerNews(reg)
	p.registerLearnerApplications(reg)
	p.registerClientApplications(reg)
	p.registerContact(reg)
	p.registerStories(reg)
	return nil
}

func (p *procedures) loadSchemas() error {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return fmt.Errorf("read schemas: %w", err)
	}
	for _, e := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		s, err := rpc.CompileSchema(raw)
		if err != nil {
			return fmt.Errorf("schema %s: %w", e.Name(), err)
		}
		p.schemas[e.Name()] = s
	}
	return nil
}

// schema returns the registration option for an embedded schema file.
func (p *procedures) schema(name string) rpc.Option {
	s, ok := p.schemas[name+".json"]
	if !ok {
		panic("procedures: missing schema " + name)
	}
	return rpc.WithSchema(s)
}

// submitOptions are the options shared by the public form procedures.
func (p *procedures) submitOptions(schema string) []rpc.Option {
	return append([]rpc.Option{p.schema(schema)}, p.public...)
}

type success struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id,omitempty"`
}

type idInput struct {
	ID int64 `json:"id"`
}

type statusFilter struct {
	Status string `json:"status"`
}

type reviewInput struct {
	ID         int64   `json:"id"`
	Status     string  `json:"status"`
	AdminNotes *string `json:"adminNotes"`
}
