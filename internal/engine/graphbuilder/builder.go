// Package graphbuilder expands the module graph from the configured entries,
// transforming every reachable module and reusing cached work where the
// content and transform configuration are unchanged.
package graphbuilder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/sling/internal/engine/pipeline"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Env carries the per-invocation collaborators of a build.
type Env struct {
	Config   *domain.Config
	Resolver ports.Resolver
	Cache    ports.BuildCache
}

// Result is the outcome of one graph generation.
type Result struct {
	Graph *domain.Graph
	// Recomputed lists, in lexical order, every module processed in this
	// generation, whether transformed or restored from the cache.
	Recomputed []domain.ModuleID
	// Transformed counts the modules that actually ran their transform chain.
	Transformed int
	// Removed lists the modules pruned because no entry reaches them any more.
	Removed []domain.ModuleID
	// Err joins every module level failure. The graph is still usable for
	// the parts that do not depend on a failed module.
	Err error
}

// Builder builds module graphs.
type Builder struct {
	pipeline *pipeline.Pipeline
	hasher   ports.Hasher
	tracer   ports.Tracer
	logger   ports.Logger
}

// New creates a Builder.
func New(p *pipeline.Pipeline, hasher ports.Hasher, tracer ports.Tracer, logger ports.Logger) *Builder {
	return &Builder{pipeline: p, hasher: hasher, tracer: tracer, logger: logger}
}

// Build expands the whole graph from the configured entries.
func (b *Builder) Build(ctx context.Context, env Env) (*Result, error) {
	ctx, span := b.tracer.Start(ctx, "graph")
	defer span.End()

	cfg := env.Config
	if len(cfg.Entries) == 0 {
		return nil, zerr.Wrap(domain.ErrNoEntries, "declare at least one entry")
	}

	r := b.newRun(ctx, env, domain.NewGraph(cfg.Root))
	for _, entry := range cfg.Entries {
		id, err := r.resolve(entry.Specifier, cfg.Root)
		if err != nil {
			r.fail(zerr.With(err, "entry", entry.Name))
			continue
		}
		if err := r.graph.AddEntry(entry.Name, id); err != nil {
			r.fail(err)
			continue
		}
		r.visit(id)
	}

	return b.finish(r, span)
}

// Rebuild updates prev after the files at changed paths were modified. Only
// the changed modules, their transitive dependents and previously failed
// modules are processed again; every other record is reused as is.
func (b *Builder) Rebuild(ctx context.Context, env Env, prev *domain.Graph, changed []string) (*Result, error) {
	ctx, span := b.tracer.Start(ctx, "graph")
	defer span.End()

	paths := make(map[string]struct{}, len(changed))
	for _, p := range changed {
		paths[filepath.Clean(p)] = struct{}{}
	}
	var seeds []domain.ModuleID
	for _, id := range prev.IDs() {
		if _, ok := paths[id.Path()]; ok {
			seeds = append(seeds, id)
		}
	}
	for _, rec := range prev.Failed() {
		seeds = append(seeds, rec.ID)
	}
	invalid := prev.Invalidated(seeds)

	graph := prev.Clone()
	r := b.newRun(ctx, env, graph)
	for _, id := range graph.IDs() {
		r.visited[id] = true
	}
	for _, id := range invalid {
		r.visited[id] = false
	}
	for _, id := range invalid {
		r.visit(id)
	}

	span.SetAttribute("graph.invalidated", len(invalid))
	return b.finish(r, span)
}

func (b *Builder) finish(r *run, span ports.Span) (*Result, error) {
	if err := r.group.Wait(); err != nil {
		return nil, err
	}

	removed := r.graph.Prune()
	for _, id := range removed {
		delete(r.processed, id)
	}
	cycles := r.graph.DetectCycles()

	recomputed := make([]domain.ModuleID, 0, len(r.processed))
	for id := range r.processed {
		recomputed = append(recomputed, id)
	}
	slices.SortFunc(recomputed, domain.ModuleID.Compare)

	// Module errors are reported for live modules only.
	var errs []error
	for _, rec := range r.graph.Failed() {
		errs = append(errs, rec.Err)
	}
	errs = append(errs, r.errs...)

	span.SetAttribute("graph.modules", r.graph.Len())
	span.SetAttribute("graph.recomputed", len(recomputed))
	span.SetAttribute("graph.transformed", r.transformed)
	span.SetAttribute("graph.cycles", len(cycles))

	res := &Result{
		Graph:       r.graph,
		Recomputed:  recomputed,
		Transformed: r.transformed,
		Removed:     removed,
		Err:         errors.Join(errs...),
	}
	if res.Err != nil {
		span.RecordError(res.Err)
	}
	return res, nil
}

// run is the shared state of one graph generation.
type run struct {
	builder *Builder
	env     Env
	ctx     context.Context
	group   *errgroup.Group
	slots   *semaphore.Weighted

	resolutions singleflight.Group
	resolveMu   sync.Mutex
	resolved    map[string]resolution

	mu          sync.Mutex
	graph       *domain.Graph
	visited     map[domain.ModuleID]bool
	processed   map[domain.ModuleID]struct{}
	transformed int
	errs        []error
}

type resolution struct {
	id  domain.ModuleID
	err error
}

func (b *Builder) newRun(ctx context.Context, env Env, graph *domain.Graph) *run {
	group, ctx := errgroup.WithContext(ctx)
	return &run{
		builder:   b,
		env:       env,
		ctx:       ctx,
		group:     group,
		slots:     semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		resolved:  make(map[string]resolution),
		graph:     graph,
		visited:   make(map[domain.ModuleID]bool),
		processed: make(map[domain.ModuleID]struct{}),
	}
}

// visit schedules id for processing unless it was already scheduled in this generation.
func (r *run) visit(id domain.ModuleID) {
	r.mu.Lock()
	if r.visited[id] {
		r.mu.Unlock()
		return
	}
	r.visited[id] = true
	r.mu.Unlock()

	r.group.Go(func() error { return r.process(id) })
}

func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// resolve maps a specifier imported from dir. Concurrent lookups of the same
// pair share one resolution, and results are memoized for the generation.
func (r *run) resolve(specifier, dir string) (domain.ModuleID, error) {
	key := dir + "\x00" + specifier

	r.resolveMu.Lock()
	res, ok := r.resolved[key]
	r.resolveMu.Unlock()
	if ok {
		return res.id, res.err
	}

	v, _, _ := r.resolutions.Do(key, func() (any, error) {
		id, err := r.env.Resolver.Resolve(specifier, dir)
		res := resolution{id: id, err: err}
		r.resolveMu.Lock()
		r.resolved[key] = res
		r.resolveMu.Unlock()
		return res, nil
	})
	res = v.(resolution) //nolint:forcetypeassert // the closure always returns a resolution
	return res.id, res.err
}

// process loads id, records it in the graph and schedules its dependencies.
// Module failures are attached to the record; only cancellation aborts the run.
func (r *run) process(id domain.ModuleID) error {
	// Parallelism is bounded here rather than on the group so that a worker
	// scheduling its dependencies never waits for a slot it holds itself.
	if err := r.slots.Acquire(r.ctx, 1); err != nil {
		return err
	}
	rec, transformed := r.load(id)
	r.slots.Release(1)
	if err := r.ctx.Err(); err != nil {
		return err
	}

	var edges []domain.Edge
	var resolveErrs []error
	if rec.Err == nil && !rec.External() {
		dir := filepath.Dir(id.Path())
		rec.Resolved = make(map[string]domain.ModuleID, len(rec.Dependencies))
		for _, dep := range rec.Dependencies {
			target, err := r.resolve(dep.Specifier, dir)
			if err != nil {
				err = zerr.With(err, "file", id.Key(r.env.Config.Root))
				err = zerr.With(err, "line", dep.Line)
				resolveErrs = append(resolveErrs, err)
				continue
			}
			rec.Resolved[dep.Specifier] = target
			edges = append(edges, domain.Edge{From: id, To: target, Kind: dep.Kind, Specifier: dep.Specifier})
		}
		if len(resolveErrs) > 0 {
			rec.Err = errors.Join(resolveErrs...)
		}
	}
	rec.Digest = r.digest(rec)

	r.mu.Lock()
	r.graph.Put(rec)
	r.graph.SetEdges(id, edges)
	r.processed[id] = struct{}{}
	if transformed {
		r.transformed++
	}
	r.mu.Unlock()

	for _, e := range edges {
		r.visit(e.To)
	}
	return nil
}

// load produces the record of id from the cache or by running its transform chain.
func (r *run) load(id domain.ModuleID) (*domain.ModuleRecord, bool) {
	cfg := r.env.Config
	if id.IsExternal() {
		return r.external(id), false
	}

	source, err := os.ReadFile(id.Path())
	if err != nil {
		err = zerr.With(zerr.Wrap(domain.ErrSourceReadFailed, err.Error()), "file", id.Key(cfg.Root))
		return &domain.ModuleRecord{ID: id, Err: err}, false
	}
	contentHash := r.builder.hasher.HashBytes(source)

	fingerprint, err := r.builder.pipeline.Fingerprint(cfg, id)
	if err != nil {
		return &domain.ModuleRecord{ID: id, ContentHash: contentHash, Err: err}, false
	}

	entry, err := r.env.Cache.Get(id)
	if err != nil {
		r.builder.logger.Warn("ignoring unreadable cache entry for " + id.Key(cfg.Root) + ": " + err.Error())
		entry = nil
	}
	if entry.Fresh(contentHash, fingerprint) {
		return &domain.ModuleRecord{
			ID:           id,
			ContentHash:  contentHash,
			Output:       entry.Output,
			Dependencies: entry.Dependencies,
			Transforms:   entry.Transforms,
			Asset:        entry.Asset,
			HotAccept:    entry.HotAccept,
		}, false
	}

	res, err := r.builder.pipeline.Run(r.ctx, cfg, id, source)
	if err != nil {
		return &domain.ModuleRecord{ID: id, ContentHash: contentHash, Err: err}, true
	}

	if err := r.env.Cache.Put(domain.CacheEntry{
		ID:           id.String(),
		ContentHash:  contentHash,
		Fingerprint:  fingerprint,
		Output:       res.Code,
		Dependencies: res.Dependencies,
		Transforms:   res.Transforms,
		Asset:        res.Asset,
		HotAccept:    res.HotAccept,
	}); err != nil {
		r.builder.logger.Warn("failed to cache " + id.Key(cfg.Root) + ": " + err.Error())
	}

	return &domain.ModuleRecord{
		ID:           id,
		ContentHash:  contentHash,
		Output:       res.Code,
		Dependencies: res.Dependencies,
		Transforms:   res.Transforms,
		Asset:        res.Asset,
		HotAccept:    res.HotAccept,
	}, true
}

// external builds the placeholder of a module provided outside the bundle.
func (r *run) external(id domain.ModuleID) *domain.ModuleRecord {
	spec := strings.TrimPrefix(id.String(), domain.ExternalPrefix)
	global, ok := r.env.Config.Externals[spec]
	if !ok {
		// Subpaths share the global of their package; the longest package name wins.
		best := ""
		for name, expr := range r.env.Config.Externals {
			if strings.HasPrefix(spec, name+"/") && len(name) > len(best) {
				best, global = name, expr
			}
		}
		if best == "" {
			global = "undefined"
		}
	}
	return &domain.ModuleRecord{
		ID:          id,
		ContentHash: r.builder.hasher.HashStrings(spec, global),
		Output:      []byte("module.exports = " + global + ";\n"),
	}
}

// digest hashes the output together with the keys its dependencies resolved to.
func (r *run) digest(rec *domain.ModuleRecord) string {
	root := r.env.Config.Root
	parts := []string{rec.ContentHash, string(rec.Output)}
	if rec.Asset != nil {
		parts = append(parts, rec.Asset.Path, strconv.FormatBool(rec.Asset.Inline))
	}
	specs := make([]string, 0, len(rec.Resolved))
	for spec := range rec.Resolved {
		specs = append(specs, spec)
	}
	slices.Sort(specs)
	for _, spec := range specs {
		parts = append(parts, spec, rec.Resolved[spec].Key(root))
	}
	return r.builder.hasher.HashStrings(parts...)
}
