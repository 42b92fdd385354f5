package checker

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/core/ports"
)

// NodeID is the unique identifier for the checker runner Graft node.
const NodeID graft.ID = "adapter.checker"

func init() {
	graft.Register(graft.Node[ports.Checker]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Checker, error) {
			return NewRunner(), nil
		},
	})
}
