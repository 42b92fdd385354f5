package splitter

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/core/ports"
)

// NodeID is the unique identifier for the chunk splitter Graft node.
const NodeID graft.ID = "engine.splitter"

func init() {
	graft.Register(graft.Node[*Splitter]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.HasherNodeID, telemetry.TracerNodeID},
		Run: func(ctx context.Context) (*Splitter, error) {
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			return New(hasher, tracer), nil
		},
	})
}
