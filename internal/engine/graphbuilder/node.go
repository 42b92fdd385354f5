package graphbuilder

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/adapters/fs"        //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/sling/internal/engine/pipeline"
)

// NodeID is the unique identifier for the graph builder Graft node.
const NodeID graft.ID = "engine.graphbuilder"

func init() {
	graft.Register(graft.Node[*Builder]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			pipeline.NodeID,
			fs.HasherNodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Builder, error) {
			p, err := graft.Dep[*pipeline.Pipeline](ctx)
			if err != nil {
				return nil, err
			}

			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(p, hasher, tracer, log), nil
		},
	})
}
