// Package splitter partitions a module graph into deliverable chunks.
package splitter

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	graphlib "github.com/dominikbraun/graph"
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

// RuntimeChunkName is the name of the chunk carrying the loader bootstrap.
const RuntimeChunkName = "runtime"

// Splitter assigns every module of a graph to one or more chunks.
type Splitter struct {
	hasher ports.Hasher
	tracer ports.Tracer
}

// New creates a Splitter.
func New(hasher ports.Hasher, tracer ports.Tracer) *Splitter {
	return &Splitter{hasher: hasher, tracer: tracer}
}

// Split partitions g. Entries and dynamic import targets become chunk roots;
// modules owned by several roots are hoisted into vendor or shared chunks.
func (s *Splitter) Split(ctx context.Context, g *domain.Graph, cfg domain.SplitConfig) (*domain.ChunkSet, error) {
	_, span := s.tracer.Start(ctx, "split")
	defer span.End()

	set, err := s.split(g, cfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("split.chunks", set.Len())
	return set, nil
}

// root is an entry or async chunk before hoisting.
type root struct {
	name    string
	kind    domain.ChunkKind
	id      domain.ModuleID
	members map[domain.ModuleID]struct{}
}

func (s *Splitter) split(g *domain.Graph, cfg domain.SplitConfig) (*domain.ChunkSet, error) {
	root := g.Root()
	roots := s.roots(g)

	owners := make(map[domain.ModuleID][]*rootChunk, g.Len())
	chunks := make([]*rootChunk, len(roots))
	for i, r := range roots {
		rc := &rootChunk{root: r}
		chunks[i] = rc
		for id := range r.members {
			owners[id] = append(owners[id], rc)
		}
	}

	// hoisted maps chunk names to vendor or shared chunks, in creation order.
	hoisted := make(map[string]*domain.Chunk)
	var hoistOrder []string
	hoist := func(name string, kind domain.ChunkKind, id domain.ModuleID, from []*rootChunk) {
		c, ok := hoisted[name]
		if !ok {
			c = &domain.Chunk{Name: name, Kind: kind}
			hoisted[name] = c
			hoistOrder = append(hoistOrder, name)
		}
		c.Modules = append(c.Modules, id)
		for _, rc := range from {
			rc.requires[name] = struct{}{}
		}
	}
	for _, rc := range chunks {
		rc.requires = make(map[string]struct{})
	}

	for _, id := range g.IDs() {
		own := owners[id]
		if len(own) == 0 {
			continue
		}
		rec, _ := g.Module(id)

		if group, ok := vendorFor(cfg.Vendors, id); ok && len(own) >= max(group.MinChunks, 1) {
			hoist(group.Name, domain.ChunkVendor, id, own)
			continue
		}
		if len(own) >= 2 && !duplicate(rec, len(own), cfg.DuplicateBelow) {
			hoist(sharedName(cfg.CommonName, own), domain.ChunkShared, id, own)
			continue
		}
		for _, rc := range own {
			rc.modules = append(rc.modules, id)
		}
	}

	var all []*domain.Chunk
	for _, rc := range chunks {
		c := &domain.Chunk{
			Name:    rc.name,
			Kind:    rc.kind,
			Root:    rc.id,
			Modules: rc.modules,
		}
		rc.chunk = c
		all = append(all, c)
	}
	for _, name := range hoistOrder {
		all = append(all, hoisted[name])
	}

	vendorRank := make(map[string]int, len(cfg.Vendors))
	for i, v := range cfg.Vendors {
		if _, ok := vendorRank[v.Name]; !ok {
			vendorRank[v.Name] = i
		}
	}
	for _, rc := range chunks {
		rc.chunk.Requires = orderRequires(rc.requires, hoisted, vendorRank)
	}

	// Empty async chunks had every member hoisted; they only forward to
	// their prerequisites.
	var kept []*domain.Chunk
	for _, c := range all {
		if len(c.Modules) == 0 && c.Kind == domain.ChunkAsync {
			continue
		}
		kept = append(kept, c)
	}

	needRuntime := len(kept) > 1
	for _, c := range kept {
		sortByKey(c.Modules, root)
		c.Hash = s.identity(g, c.Modules)
		if c.Kind == domain.ChunkEntry && needRuntime {
			c.Requires = append([]string{RuntimeChunkName}, c.Requires...)
		}
	}
	if needRuntime {
		kept = append(kept, &domain.Chunk{Name: RuntimeChunkName, Kind: domain.ChunkRuntime, Bootstrap: true})
	} else if len(kept) == 1 {
		kept[0].Bootstrap = true
	}

	ordered, err := loadOrder(kept)
	if err != nil {
		return nil, err
	}

	set := domain.NewChunkSet()
	for _, c := range ordered {
		if err := set.Add(c); err != nil {
			return nil, err
		}
	}

	// Load lists of dynamic import targets.
	assigned := make(map[domain.ModuleID]bool)
	for _, rc := range chunks {
		if rc.kind != domain.ChunkAsync {
			continue
		}
		load := rc.chunk.Requires
		if _, ok := set.Chunk(rc.name); ok {
			load = withoutRuntime(set.Closure(rc.name))
		}
		set.SetImport(rc.id, load)
		assigned[rc.id] = true
	}
	dynamic := dynamicTargets(g)
	for _, e := range g.Entries() {
		if assigned[e.ID] || !dynamic[e.ID] {
			continue
		}
		set.SetImport(e.ID, withoutRuntime(set.Closure(e.Name)))
	}

	return set, nil
}

type rootChunk struct {
	root
	modules  []domain.ModuleID
	requires map[string]struct{}
	chunk    *domain.Chunk
}

// roots returns the entry roots ordered by entry name followed by the async
// roots in module key order.
func (s *Splitter) roots(g *domain.Graph) []root {
	var roots []root
	taken := map[string]bool{RuntimeChunkName: true}
	isEntry := make(map[domain.ModuleID]bool)
	for _, e := range g.Entries() {
		if _, ok := g.Module(e.ID); !ok {
			continue
		}
		roots = append(roots, root{name: e.Name, kind: domain.ChunkEntry, id: e.ID, members: staticClosure(g, e.ID)})
		taken[e.Name] = true
		isEntry[e.ID] = true
	}

	for _, target := range asyncTargets(g, isEntry) {
		name := uniqueName(chunkBaseName(target), taken)
		taken[name] = true
		roots = append(roots, root{name: name, kind: domain.ChunkAsync, id: target, members: staticClosure(g, target)})
	}
	return roots
}

// asyncTargets returns, in module key order, the dynamic import targets that
// need their own chunk: targets that are neither entries nor already part of
// the importer's static closure.
func asyncTargets(g *domain.Graph, isEntry map[domain.ModuleID]bool) []domain.ModuleID {
	seen := make(map[domain.ModuleID]bool)
	var targets []domain.ModuleID
	for _, from := range g.IDs() {
		var closure map[domain.ModuleID]struct{}
		for _, e := range g.Edges(from) {
			if e.Kind != domain.EdgeDynamic || seen[e.To] || isEntry[e.To] {
				continue
			}
			if _, ok := g.Module(e.To); !ok {
				continue
			}
			if closure == nil {
				closure = staticClosure(g, from)
			}
			if _, ok := closure[e.To]; ok {
				continue
			}
			seen[e.To] = true
			targets = append(targets, e.To)
		}
	}
	root := g.Root()
	slices.SortFunc(targets, func(a, b domain.ModuleID) int {
		return strings.Compare(a.Key(root), b.Key(root))
	})
	return targets
}

func dynamicTargets(g *domain.Graph) map[domain.ModuleID]bool {
	targets := make(map[domain.ModuleID]bool)
	for _, from := range g.IDs() {
		for _, e := range g.Edges(from) {
			if e.Kind == domain.EdgeDynamic {
				targets[e.To] = true
			}
		}
	}
	return targets
}

func withoutRuntime(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name != RuntimeChunkName {
			out = append(out, name)
		}
	}
	return out
}

// staticClosure returns id and every module reachable from it over static
// and asset edges.
func staticClosure(g *domain.Graph, id domain.ModuleID) map[domain.ModuleID]struct{} {
	seen := map[domain.ModuleID]struct{}{id: {}}
	stack := []domain.ModuleID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Edges(cur) {
			if e.Kind == domain.EdgeDynamic {
				continue
			}
			if _, ok := g.Module(e.To); !ok {
				continue
			}
			if _, ok := seen[e.To]; ok {
				continue
			}
			seen[e.To] = struct{}{}
			stack = append(stack, e.To)
		}
	}
	return seen
}

// vendorFor returns the first vendor group matching the module path.
func vendorFor(groups []domain.VendorGroup, id domain.ModuleID) (domain.VendorGroup, bool) {
	if id.IsExternal() {
		return domain.VendorGroup{}, false
	}
	for _, v := range groups {
		if v.Matches(id.Path()) {
			return v, true
		}
	}
	return domain.VendorGroup{}, false
}

// duplicate reports whether copying the module into every owner costs less
// extra output than the configured threshold.
func duplicate(rec *domain.ModuleRecord, owners int, below int64) bool {
	if below <= 0 || rec == nil {
		return false
	}
	return int64(rec.Size())*int64(owners-1) < below
}

func sharedName(common string, owners []*rootChunk) string {
	names := make([]string, len(owners))
	for i, rc := range owners {
		names[i] = rc.name
	}
	slices.Sort(names)
	return common + "~" + strings.Join(names, "~")
}

func chunkBaseName(id domain.ModuleID) string {
	base := filepath.Base(id.Path())
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func uniqueName(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s-%d", base, n)
		if !taken[name] {
			return name
		}
	}
}

// orderRequires lists vendor chunks in configuration order, then shared
// chunks by name.
func orderRequires(names map[string]struct{}, hoisted map[string]*domain.Chunk, vendorRank map[string]int) []string {
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	slices.SortFunc(out, func(a, b string) int {
		va, vb := hoisted[a].Kind == domain.ChunkVendor, hoisted[b].Kind == domain.ChunkVendor
		switch {
		case va && vb:
			return cmp.Or(cmp.Compare(vendorRank[a], vendorRank[b]), strings.Compare(a, b))
		case va:
			return -1
		case vb:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
	return out
}

func sortByKey(ids []domain.ModuleID, root string) {
	slices.SortFunc(ids, func(a, b domain.ModuleID) int {
		return strings.Compare(a.Key(root), b.Key(root))
	})
}

// identity hashes the sorted digests of the members. Each digest is paired
// with the member key, which the rendered chunk registers the factory under.
func (s *Splitter) identity(g *domain.Graph, members []domain.ModuleID) string {
	digests := make([]string, 0, len(members))
	for _, id := range members {
		if rec, ok := g.Module(id); ok {
			digests = append(digests, id.Key(g.Root())+"\x00"+rec.Digest)
		}
	}
	slices.Sort(digests)
	return s.hasher.HashStrings(digests...)
}

// loadOrder checks that prerequisites form a DAG and returns the chunks with
// every prerequisite ahead of its dependents, ties broken by name.
func loadOrder(chunks []*domain.Chunk) ([]*domain.Chunk, error) {
	dag := graphlib.New(graphlib.StringHash, graphlib.Directed(), graphlib.PreventCycles())
	byName := make(map[string]*domain.Chunk, len(chunks))
	for _, c := range chunks {
		byName[c.Name] = c
		if err := dag.AddVertex(c.Name); err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrDuplicateChunk, err.Error()), "chunk", c.Name)
		}
	}
	for _, c := range chunks {
		for _, req := range c.Requires {
			if _, ok := byName[req]; !ok {
				continue
			}
			err := dag.AddEdge(req, c.Name)
			switch {
			case err == nil, errors.Is(err, graphlib.ErrEdgeAlreadyExists):
			case errors.Is(err, graphlib.ErrEdgeCreatesCycle):
				return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrChunkCycle, ""), "from", c.Name), "to", req)
			default:
				return nil, zerr.Wrap(domain.ErrGraphBuildFailed, err.Error())
			}
		}
	}

	names, err := graphlib.StableTopologicalSort(dag, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, zerr.Wrap(domain.ErrChunkCycle, err.Error())
	}
	ordered := make([]*domain.Chunk, len(names))
	for i, name := range names {
		ordered[i] = byName[name]
	}
	return ordered, nil
}
