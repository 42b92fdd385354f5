package transform

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/adapters/fs"
	"go.trai.ch/sling/internal/core/ports"
)

// NodeID is the graft node that provides the transform registry.
const NodeID graft.ID = "adapter.transform.registry"

func init() {
	graft.Register(graft.Node[ports.TransformRegistry]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.HasherNodeID},
		Run: func(ctx context.Context) (ports.TransformRegistry, error) {
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return NewDefaultRegistry(hasher), nil
		},
	})
}
