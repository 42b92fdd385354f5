package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sling/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/hmr"       //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/linear"    //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/resolver"  //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/sling/internal/engine/bundle"
	"go.trai.ch/sling/internal/engine/checks"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			logger.NodeID,
			bundle.NodeID,
			checks.NodeID,
			resolver.NodeID,
			cas.NodeID,
			fs.VerifierNodeID,
			telemetry.TracerNodeID,
			linear.NodeID,
			watcher.WatcherNodeID,
			watcher.ContentCacheNodeID,
			hmr.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewComponents(app, log), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	bundler, err := graft.Dep[*bundle.Bundler](ctx)
	if err != nil {
		return nil, err
	}

	supervisor, err := graft.Dep[*checks.Supervisor](ctx)
	if err != nil {
		return nil, err
	}

	resolvers, err := graft.Dep[ports.ResolverFactory](ctx)
	if err != nil {
		return nil, err
	}

	caches, err := graft.Dep[ports.BuildCacheFactory](ctx)
	if err != nil {
		return nil, err
	}

	verifier, err := graft.Dep[ports.Verifier](ctx)
	if err != nil {
		return nil, err
	}

	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	renderer, err := graft.Dep[*linear.Renderer](ctx)
	if err != nil {
		return nil, err
	}

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	content, err := graft.Dep[ports.ContentCache](ctx)
	if err != nil {
		return nil, err
	}

	hub, err := graft.Dep[*hmr.Hub](ctx)
	if err != nil {
		return nil, err
	}

	a := New(loader, log, bundler, supervisor, resolvers, caches, verifier, tracer, renderer)
	return a.WithDevServer(w, content, hub), nil
}
