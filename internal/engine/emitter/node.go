package emitter

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/core/ports"
)

// NodeID is the unique identifier for the emitter Graft node.
const NodeID graft.ID = "engine.emitter"

func init() {
	graft.Register(graft.Node[*Emitter]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.HasherNodeID, telemetry.TracerNodeID},
		Run: func(ctx context.Context) (*Emitter, error) {
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
