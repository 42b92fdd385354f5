package pipeline

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/adapters/transform" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/core/ports"
)

// NodeID is the unique identifier for the pipeline Graft node.
const NodeID graft.ID = "engine.pipeline"

func init() {
	graft.Register(graft.Node[*Pipeline]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{transform.NodeID, fs.HasherNodeID},
		Run: func(ctx context.Context) (*Pipeline, error) {
			registry, err := graft.Dep[ports.TransformRegistry](ctx)
			if err != nil {
				return nil, err
			}
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			return New(registry, hasher), nil
		},
	})
}
