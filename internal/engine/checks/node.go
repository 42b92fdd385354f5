package checks

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/adapters/checker"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sling/internal/core/ports"
)

// NodeID is the unique identifier for the checker supervisor Graft node.
const NodeID graft.ID = "engine.checks"

func init() {
	graft.Register(graft.Node[*Supervisor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{checker.NodeID, telemetry.TracerNodeID},
		Run: func(ctx context.Context) (*Supervisor, error) {
			c, err := graft.Dep[ports.Checker](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			return New(c, tracer), nil
		},
	})
}
