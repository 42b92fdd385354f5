package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for progress output.
// It decouples telemetry collection from presentation.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Stop flushes buffered output.
	Stop() error

	// OnTaskStart is called when a phase begins.
	// spanID: unique identifier for this phase
	// parentID: spanID of the parent phase (empty if root)
	// name: human-readable phase name
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a phase emits output.
	// data may contain partial lines.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a phase finishes; err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
