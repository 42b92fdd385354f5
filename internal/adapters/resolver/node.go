package resolver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/core/ports"
)

// NodeID is the graft node that provides the resolver factory.
const NodeID graft.ID = "adapter.resolver"

func init() {
	graft.Register(graft.Node[ports.ResolverFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.ResolverFactory, error) {
			return NewFromConfig, nil
		},
	})
}
