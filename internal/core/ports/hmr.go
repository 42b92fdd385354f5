package ports

import "go.trai.ch/sling/internal/core/domain"

// Broadcaster pushes hot update messages to connected clients.
//
//go:generate mockgen -destination=mocks/mock_broadcaster.go -package=mocks -source=hmr.go
type Broadcaster interface {
	// Broadcast queues msg for every connected client without blocking.
	Broadcast(msg domain.HMRMessage)
	// Clients returns the number of connected clients.
	Clients() int
}
