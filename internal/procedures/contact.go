package procedures

import (
	"context"

	"github.com/dynamicdna/academy/internal/rpc"
	"github.com/dynamicdna/academy/pkg/models"
)

func (p *procedures) registerContact(reg *rpc.Registry) {
	// contact enquiries are mailed only, never stored
	reg.Mutation("contact.submit", rpc.Public, rpc.Bind(func(ctx context.Context, in models.ContactMessage) (any, error) {
		if in.Phone != nil && *in.Phone == "" {
			in.Phone = nil
		}
		p.notifier.ContactSubmitted(ctx, &in)
		return success{Success: true}, nil
	}), p.submitOptions("contact")...)
}
