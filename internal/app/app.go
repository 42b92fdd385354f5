// Package app implements the application layer for sling.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/sling/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/detector"  //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/hmr"       //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/sling/internal/engine/bundle"
	"go.trai.ch/sling/internal/engine/checks"
	"go.trai.ch/sling/internal/engine/devloop"
	"go.trai.ch/sling/internal/engine/graphbuilder"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	loader    ports.ConfigLoader
	logger    ports.Logger
	bundler   *bundle.Bundler
	checks    *checks.Supervisor
	resolvers ports.ResolverFactory
	caches    ports.BuildCacheFactory
	verifier  ports.Verifier
	tracer    ports.Tracer
	renderer  ports.Renderer
	watcher   ports.Watcher
	content   ports.ContentCache
	hub       *hmr.Hub
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	bundler *bundle.Bundler,
	supervisor *checks.Supervisor,
	resolvers ports.ResolverFactory,
	caches ports.BuildCacheFactory,
	verifier ports.Verifier,
	tracer ports.Tracer,
	renderer ports.Renderer,
) *App {
	return &App{
		loader:    loader,
		logger:    log,
		bundler:   bundler,
		checks:    supervisor,
		resolvers: resolvers,
		caches:    caches,
		verifier:  verifier,
		tracer:    tracer,
		renderer:  renderer,
	}
}

// WithDevServer adds the collaborators of watch mode.
func (a *App) WithDevServer(w ports.Watcher, content ports.ContentCache, hub *hmr.Hub) *App {
	a.watcher = w
	a.content = content
	a.hub = hub
	return a
}

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	// Dir is the directory the configuration is searched from.
	Dir       string
	Mode      domain.Mode
	OutputDir string
	NoCache   bool
	// NoCheck skips the configured checkers.
	NoCheck      bool
	OutputFormat string
}

// Build runs a single build generation and the configured checkers.
func (a *App) Build(ctx context.Context, opts BuildOptions) (*bundle.Generation, error) {
	stop, err := a.setupOutput(ctx, opts.OutputFormat)
	if err != nil {
		return nil, err
	}
	defer stop()

	cfg, err := a.loader.Load(opts.Dir, domain.Overrides{
		Mode:        opts.Mode,
		DefaultMode: domain.ModeProduction,
		OutputDir:   opts.OutputDir,
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	gen, err := a.bundler.Run(ctx, bundle.Request{
		Env:           a.env(cfg, opts.NoCache),
		EmitOnFailure: true,
	})
	if err != nil {
		return nil, errors.Join(domain.ErrBuildFailed, err)
	}

	var report checks.Report
	if !opts.NoCheck {
		report = a.checks.Run(ctx, cfg, gen.Number)
	}
	if report.Err != nil {
		a.logger.Warn("checker failed: " + report.Err.Error())
	}
	for _, d := range report.Diagnostics {
		a.logger.Warn(d.String())
	}

	if gen.Failed() {
		if len(gen.Skipped) > 0 {
			a.logger.Warn(fmt.Sprintf("skipped chunks touching failed modules: %v", gen.Skipped))
		}
		return gen, errors.Join(domain.ErrBuildFailed, gen.Err)
	}
	if cfg.FailOnDiagnostics && report.HasErrors() {
		return gen, zerr.With(zerr.Wrap(domain.ErrDiagnosticsFailed, "fail-fast mode is enabled"),
			"diagnostics", len(report.Diagnostics))
	}

	a.logger.Info(fmt.Sprintf("built %d modules into %d chunks in %s",
		gen.Graph.Len(), gen.Chunks.Len(), relativeTo(cfg.Root, cfg.Output.Dir)))
	return gen, nil
}

// ServeOptions configuration for the Serve method.
type ServeOptions struct {
	Dir          string
	Mode         domain.Mode
	Port         int
	OutputDir    string
	NoCache      bool
	OutputFormat string
}

// Serve builds, serves the output over HTTP and rebuilds on every change
// until ctx is cancelled.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	if a.hub == nil {
		return zerr.Wrap(domain.ErrServerFailed, "dev server is not configured")
	}
	stop, err := a.setupOutput(ctx, opts.OutputFormat)
	if err != nil {
		return err
	}
	defer stop()

	var cfg *domain.Config
	load := func() (graphbuilder.Env, error) {
		loaded, err := a.loader.Load(opts.Dir, domain.Overrides{
			Mode:        opts.Mode,
			DefaultMode: domain.ModeDevelopment,
			Port:        opts.Port,
			OutputDir:   opts.OutputDir,
		})
		if err != nil {
			return graphbuilder.Env{}, zerr.Wrap(err, "failed to load configuration")
		}
		cfg = loaded
		return a.env(loaded, opts.NoCache), nil
	}

	loop := devloop.New(devloop.Options{
		Builder: a.bundler,
		Watcher: a.watcher,
		Cache:   a.content,
		Hub:     a.hub,
		Checks:  a.checks,
		Logger:  a.logger,
		Load:    load,
	})
	gen, err := loop.Build(ctx)
	if err != nil {
		return err
	}
	// The server keeps the settings of the first load; later config changes
	// rebuild but do not move the listener.
	first := cfg
	if gen.Failed() && !gen.Emitted {
		if a.previousOutputIntact(first) {
			a.logger.Warn("initial build failed, serving previous output from " + relativeTo(first.Root, first.Output.Dir))
		} else {
			a.logger.Warn("initial build failed, waiting for changes")
		}
	}

	server := hmr.NewServer(first.DevServer, first.Output.Dir, a.hub, a.logger)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})
	g.Go(func() error {
		return loop.Watch(ctx)
	})
	a.logger.Info(fmt.Sprintf("serving %s on http://localhost:%d", relativeTo(first.Root, first.Output.Dir), first.DevServer.Port))

	err = g.Wait()
	a.hub.Close()
	return err
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Dir    string
	Cache  bool
	Output bool
}

// Clean removes the module cache and the output directory based on the
// provided options.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	cfg, err := a.loader.Load(options.Dir, domain.Overrides{DefaultMode: domain.ModeProduction})
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	var errs error
	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, "failed to remove "+name), "path", path))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Cache {
		remove(filepath.Join(cfg.Root, domain.DefaultCachePath()), "module cache")
	}
	if options.Output {
		remove(cfg.Output.Dir, "output directory")
	}
	return errs
}

func (a *App) env(cfg *domain.Config, noCache bool) graphbuilder.Env {
	env := graphbuilder.Env{
		Config:   cfg,
		Resolver: a.resolvers(cfg),
		Cache:    cas.Discard{},
	}
	if !noCache {
		env.Cache = a.caches(cfg.Root)
	}
	return env
}

// previousOutputIntact reports whether the output root still holds every
// file of the last manifest.
func (a *App) previousOutputIntact(cfg *domain.Config) bool {
	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, domain.ManifestFileName))
	if err != nil {
		return false
	}
	manifest, err := domain.ParseManifest(data)
	if err != nil {
		return false
	}
	ok, err := a.verifier.VerifyOutputs(cfg.Output.Dir, manifest.Paths())
	if err != nil {
		a.logger.Warn("failed to verify previous output: " + err.Error())
		return false
	}
	return ok
}

// setupOutput selects text or JSON output. Text output renders build phases
// through the telemetry bridge; JSON output only logs.
func (a *App) setupOutput(ctx context.Context, flag string) (func(), error) {
	requested, ok := detector.ParseFormat(flag)
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown output format"), "output", flag)
	}
	format := detector.ResolveFormat(detector.DetectEnvironment(os.Stderr), requested)

	if j, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		j.SetJSON(format == detector.FormatJSON)
	}
	sink, _ := a.tracer.(interface{ SetLogSink(telemetry.LogSink) })

	if format == detector.FormatJSON || a.renderer == nil {
		setupOTel(nil)
		if sink != nil {
			sink.SetLogSink(nil)
		}
		return func() {}, nil
	}

	if err := a.renderer.Start(ctx); err != nil {
		return nil, err
	}
	setupOTel(telemetry.NewBridge(a.renderer))
	if sink != nil {
		sink.SetLogSink(a.renderer)
	}
	return func() {
		_ = a.renderer.Stop()
	}, nil
}

// setupOTel configures the OpenTelemetry SDK with the renderer bridge.
func setupOTel(bridge *telemetry.Bridge) {
	var opts []sdktrace.TracerProviderOption
	if bridge != nil {
		opts = append(opts, sdktrace.WithSpanProcessor(bridge))
	}
	otel.SetTracerProvider(sdktrace.NewTracerProvider(opts...))
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
