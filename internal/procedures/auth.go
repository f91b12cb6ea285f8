package procedures

import (
	"context"

	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/internal/session"
)

func (p *procedures) registerAuth(reg *rpc.Registry) {
	reg.Query("auth.me", rpc.Public, func(ctx context.Context, _ *rpc.Call) (any, error) {
		return session.IdentityFrom(ctx), nil
	})

	reg.Mutation("auth.logout", rpc.Public, func(_ context.Context, c *rpc.Call) (any, error) {
		if c.Writer != nil && c.Request != nil {
			session.ClearCookie(c.Writer, c.Request)
		}
		return success{Success: true}, nil
	})
}
