package session

import (
	"context"

	"github.com/dynamicdna/academy/pkg/models"
)

type ctxKey struct{}

// WithIdentity stores the resolved user in ctx. A nil user is stored as-is.
func WithIdentity(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// IdentityFrom returns the user resolved for the request, or nil.
func IdentityFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKey{}).(*models.User)
	return u
}
