package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/core/ports"
)

// NodeID is the unique identifier for the build cache Graft node.
const NodeID graft.ID = "adapter.build_cache"

func init() {
	graft.Register(graft.Node[ports.BuildCacheFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.BuildCacheFactory, error) {
			return NewFromRoot, nil
		},
	})
}
