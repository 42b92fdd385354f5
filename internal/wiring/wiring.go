// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/sling/internal/adapters/cas"
	_ "go.trai.ch/sling/internal/adapters/checker"
	_ "go.trai.ch/sling/internal/adapters/config"
	_ "go.trai.ch/sling/internal/adapters/fs"
	_ "go.trai.ch/sling/internal/adapters/hmr"
	_ "go.trai.ch/sling/internal/adapters/linear"
	_ "go.trai.ch/sling/internal/adapters/logger"
	_ "go.trai.ch/sling/internal/adapters/resolver"
	_ "go.trai.ch/sling/internal/adapters/telemetry"
	_ "go.trai.ch/sling/internal/adapters/transform"
	_ "go.trai.ch/sling/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/sling/internal/app"
	_ "go.trai.ch/sling/internal/engine/bundle"
	_ "go.trai.ch/sling/internal/engine/checks"
	_ "go.trai.ch/sling/internal/engine/emitter"
	_ "go.trai.ch/sling/internal/engine/graphbuilder"
	_ "go.trai.ch/sling/internal/engine/pipeline"
	_ "go.trai.ch/sling/internal/engine/splitter"
)
