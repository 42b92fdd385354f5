package bundle

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/sling/internal/engine/emitter"
	"go.trai.ch/sling/internal/engine/graphbuilder"
	"go.trai.ch/sling/internal/engine/splitter"
)

// NodeID is the unique identifier for the bundler Graft node.
const NodeID graft.ID = "engine.bundle"

func init() {
	graft.Register(graft.Node[*Bundler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			graphbuilder.NodeID,
			splitter.NodeID,
			emitter.NodeID,
			telemetry.TracerNodeID,
		},
		Run: func(ctx context.Context) (*Bundler, error) {
			builder, err := graft.Dep[*graphbuilder.Builder](ctx)
			if err != nil {
				return nil, err
			}

			split, err := graft.Dep[*splitter.Splitter](ctx)
			if err != nil {
				return nil, err
			}

			emit, err := graft.Dep[*emitter.Emitter](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			return New(builder, split, emit, tracer), nil
		},
	})
}
