// Package devloop keeps a bundle up to date while files change and pushes
// the result to connected hot update clients.
package devloop

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/sling/internal/adapters/watcher" //nolint:depguard // Debouncer is shared with the watcher adapter
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/sling/internal/engine/bundle"
	"go.trai.ch/sling/internal/engine/checks"
	"go.trai.ch/sling/internal/engine/graphbuilder"
	"go.trai.ch/zerr"
)

// Builder runs build generations.
type Builder interface {
	Run(ctx context.Context, req bundle.Request) (*bundle.Generation, error)
}

// Checks runs the advisory checkers of a generation in the background.
type Checks interface {
	Restart(ctx context.Context, cfg *domain.Config, generation int, deliver func(checks.Report))
	Stop()
}

// EnvLoader reads the configuration and returns the collaborators of the
// next build. It is called once at start and again when the config file
// changes.
type EnvLoader func() (graphbuilder.Env, error)

// Options configures a Loop.
type Options struct {
	Builder Builder
	Watcher ports.Watcher
	Cache   ports.ContentCache
	Hub     ports.Broadcaster
	Checks  Checks
	Logger  ports.Logger
	Load    EnvLoader
	// Window is the debounce quiet period. Zero uses the watcher default.
	Window time.Duration
}

// Loop is the single-flight watch and rebuild loop.
type Loop struct {
	opts Options
	wake chan struct{}

	mu    sync.Mutex
	state domain.BuildState
	env   graphbuilder.Env
	last  *bundle.Generation
	// served is the last generation that emitted, the code clients run.
	served  *bundle.Generation
	pending map[string]struct{}
	full    bool
}

// New creates a Loop.
func New(opts Options) *Loop {
	if opts.Window == 0 {
		opts.Window = watcher.DefaultDebounceWindow
	}
	return &Loop{
		opts:    opts,
		wake:    make(chan struct{}, 1),
		pending: make(map[string]struct{}),
	}
}

// State returns the current build state.
func (l *Loop) State() domain.BuildState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Last returns the most recent generation, or nil before the first build.
func (l *Loop) Last() *bundle.Generation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func (l *Loop) setState(s domain.BuildState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Build loads the configuration and runs the first generation.
func (l *Loop) Build(ctx context.Context) (*bundle.Generation, error) {
	env, err := l.opts.Load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.env = env
	l.mu.Unlock()

	gen, err := l.run(ctx, bundle.Request{Env: env, HotReload: true})
	if err != nil {
		return nil, err
	}
	l.seed(env.Config, gen.Graph)
	return gen, nil
}

// Watch rebuilds on every change below the project root until ctx is
// cancelled. Build must have been called first.
func (l *Loop) Watch(ctx context.Context) error {
	l.mu.Lock()
	root := l.env.Config.Root
	l.mu.Unlock()

	if err := l.opts.Watcher.Start(ctx, root); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrWatcherFailed, err.Error()), "root", root)
	}

	debouncer := watcher.NewDebouncer(l.opts.Window, l.enqueue)
	go func() {
		for event := range l.opts.Watcher.Events() {
			if l.relevant(event.Path) {
				debouncer.Add(event.Path)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if l.opts.Checks != nil {
				l.opts.Checks.Stop()
			}
			if err := l.opts.Watcher.Stop(); err != nil {
				l.opts.Logger.Warn("failed to stop file watcher: " + err.Error())
			}
			return nil
		case <-l.wake:
			if err := l.next(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				l.opts.Logger.Error(err)
			}
		}
	}
}

// enqueue records changed paths and wakes the loop. Paths whose content did
// not change are dropped.
func (l *Loop) enqueue(paths []string) {
	changed := l.opts.Cache.Changed(paths)
	if len(changed) == 0 {
		return
	}

	l.mu.Lock()
	cfgPath := l.env.Config.Path
	for _, p := range changed {
		l.pending[p] = struct{}{}
		if p == cfgPath {
			l.full = true
		}
	}
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// relevant drops events for files the build writes itself.
func (l *Loop) relevant(path string) bool {
	l.mu.Lock()
	cfg := l.env.Config
	l.mu.Unlock()

	for _, dir := range []string{cfg.Output.Dir, filepath.Join(cfg.Root, domain.DefaultStatePath())} {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return false
		}
	}
	return true
}

// next processes the union of every change queued since the last build.
func (l *Loop) next(ctx context.Context) error {
	l.mu.Lock()
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return nil
	}
	changed := make([]string, 0, len(l.pending))
	for p := range l.pending {
		changed = append(changed, p)
	}
	clear(l.pending)
	slices.Sort(changed)
	full := l.full
	l.full = false
	env := l.env
	prev := l.last
	served := l.served
	l.mu.Unlock()

	if full {
		reloaded, err := l.opts.Load()
		if err != nil {
			l.opts.Hub.Broadcast(domain.HMRMessage{
				Type:        domain.HMRError,
				Generation:  prev.Number,
				Diagnostics: []domain.Diagnostic{{Source: "sling", File: env.Config.Path, Severity: domain.SeverityError, Message: err.Error()}},
			})
			return err
		}
		env = reloaded
		l.mu.Lock()
		l.env = env
		l.mu.Unlock()
	}

	gen, err := l.run(ctx, bundle.Request{
		Env:       env,
		Previous:  prev,
		Changed:   changed,
		Full:      full,
		HotReload: true,
	})
	if err != nil {
		return err
	}
	if full {
		l.seed(env.Config, gen.Graph)
	}
	l.publish(served, gen, full)
	return nil
}

// run executes one generation and moves the state machine along.
func (l *Loop) run(ctx context.Context, req bundle.Request) (*bundle.Generation, error) {
	l.setState(domain.StateBuilding)
	start := time.Now()

	gen, err := l.opts.Builder.Run(ctx, req)
	if err != nil {
		l.setState(domain.StateIdle)
		return nil, err
	}

	l.mu.Lock()
	l.last = gen
	if gen.Emitted {
		l.served = gen
	}
	if gen.Failed() {
		l.state = domain.StateFailed
	} else {
		l.state = domain.StateReady
	}
	l.mu.Unlock()

	if gen.Failed() {
		l.opts.Logger.Error(gen.Err)
	} else {
		l.opts.Logger.Info(fmt.Sprintf("generation %d: %d modules rebuilt, %d transformed in %s",
			gen.Number, len(gen.Recomputed), gen.Transformed, time.Since(start).Round(time.Millisecond)))
	}

	if l.opts.Checks != nil {
		l.opts.Checks.Restart(ctx, req.Env.Config, gen.Number, l.deliver)
	}
	l.setState(domain.StateIdle)
	return gen, nil
}

// publish tells clients running served about a finished generation.
func (l *Loop) publish(served, gen *bundle.Generation, full bool) {
	switch {
	case gen.Failed():
		l.opts.Hub.Broadcast(domain.HMRMessage{
			Type:        domain.HMRError,
			Generation:  gen.Number,
			Diagnostics: diagnostics(gen.Graph),
		})
	case full:
		l.opts.Hub.Broadcast(domain.HMRMessage{Type: domain.HMRReload, Generation: gen.Number, Reason: reasonConfig})
	case served == nil:
		l.opts.Hub.Broadcast(domain.HMRMessage{Type: domain.HMRReload, Generation: gen.Number, Reason: reasonLayout})
	default:
		ids, reason := plan(served.Graph, gen.Graph, served.Chunks, gen.Chunks)
		switch {
		case reason != "":
			l.opts.Hub.Broadcast(domain.HMRMessage{Type: domain.HMRReload, Generation: gen.Number, Reason: reason})
		case len(ids) > 0:
			l.opts.Hub.Broadcast(domain.HMRMessage{
				Type:       domain.HMRUpdate,
				Generation: gen.Number,
				Updates:    updates(gen.Graph, ids),
			})
		}
	}
}

// deliver forwards checker findings to the log and to connected clients.
func (l *Loop) deliver(report checks.Report) {
	if report.Err != nil {
		l.opts.Logger.Warn("checker failed: " + report.Err.Error())
	}
	for _, d := range report.Diagnostics {
		l.opts.Logger.Warn(d.String())
	}
	if len(report.Diagnostics) > 0 {
		l.opts.Hub.Broadcast(domain.HMRMessage{
			Type:        domain.HMRError,
			Generation:  report.Generation,
			Diagnostics: report.Diagnostics,
		})
	}
}

// seed records the content of every file the build depends on so that
// touches without edits are ignored.
func (l *Loop) seed(cfg *domain.Config, g *domain.Graph) {
	paths := []string{cfg.Path}
	for _, id := range g.IDs() {
		if !id.IsExternal() {
			paths = append(paths, id.Path())
		}
	}
	l.opts.Cache.Seed(paths)
}
