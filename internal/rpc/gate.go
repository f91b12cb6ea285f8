package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dynamicdna/academy/internal/session"
	"github.com/dynamicdna/academy/pkg/models"
)

// Kind distinguishes read procedures (GET) from mutations (POST).
type Kind int

const (
	Query Kind = iota
	Mutation
)

func (k Kind) String() string {
	if k == Mutation {
		return "mutation"
	}
	return "query"
}

// Tier is the authorization level of a procedure.
type Tier int

const (
	Public Tier = iota
	Protected
	Admin
)

func (t Tier) String() string {
	switch t {
	case Protected:
		return "protected"
	case Admin:
		return "admin"
	}
	return "public"
}

// Call describes one procedure invocation.
type Call struct {
	Path    string
	Kind    Kind
	Input   json.RawMessage
	Request *http.Request
	Writer  http.ResponseWriter
}

// Middleware runs before a procedure body. It returns the context the body
// sees, or an error that aborts the call.
type Middleware func(ctx context.Context, c *Call) (context.Context, error)

// RequireIdentity rejects calls without a resolved user.
func RequireIdentity(ctx context.Context, c *Call) (context.Context, error) {
	if session.IdentityFrom(ctx) == nil {
		return ctx, Unauthorized()
	}
	return ctx, nil
}

// RequireRole rejects calls whose user does not have role. It expects
// RequireIdentity to have run first.
func RequireRole(role string) Middleware {
	return func(ctx context.Context, c *Call) (context.Context, error) {
		u := session.IdentityFrom(ctx)
		if u == nil {
			return ctx, Unauthorized()
		}
		if u.Role != role {
			return ctx, Forbidden()
		}
		return ctx, nil
	}
}

// TierChain returns the gate for a tier: public runs nothing, protected
// requires an identity, admin additionally requires the admin role.
func TierChain(t Tier) []Middleware {
	switch t {
	case Protected:
		return []Middleware{RequireIdentity}
	case Admin:
		return []Middleware{RequireIdentity, RequireRole(models.RoleAdmin)}
	}
	return nil
}

func runChain(ctx context.Context, c *Call, chain []Middleware) (context.Context, error) {
	for _, mw := range chain {
		var err error
		if ctx, err = mw(ctx, c); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}
