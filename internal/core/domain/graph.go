// Package domain contains the core domain models of the bundler: modules,
// the module graph, chunks, manifests and their errors.
package domain

import (
	"iter"
	"maps"
	"slices"

	"go.trai.ch/zerr"
)

// Entry is a named entry point of the build.
type Entry struct {
	Name string
	ID   ModuleID
}

// Graph is the module dependency graph of one build generation. It may
// contain cycles at the module level.
type Graph struct {
	root       string
	entries    []Entry
	modules    map[ModuleID]*ModuleRecord
	edges      map[ModuleID][]Edge
	dependents map[ModuleID]map[ModuleID]int
	cycles     []Edge
}

// NewGraph creates an empty Graph for the project rooted at root.
func NewGraph(root string) *Graph {
	return &Graph{
		root:       root,
		modules:    make(map[ModuleID]*ModuleRecord),
		edges:      make(map[ModuleID][]Edge),
		dependents: make(map[ModuleID]map[ModuleID]int),
	}
}

// Root returns the project root the graph was built for.
func (g *Graph) Root() string {
	return g.root
}

// AddEntry registers a named entry point.
func (g *Graph) AddEntry(name string, id ModuleID) error {
	for _, e := range g.entries {
		if e.Name == name {
			return zerr.With(zerr.Wrap(ErrDuplicateEntry, ""), "entry", name)
		}
	}
	g.entries = append(g.entries, Entry{Name: name, ID: id})
	slices.SortFunc(g.entries, func(a, b Entry) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return nil
}

// Entries returns the entry points ordered by name.
func (g *Graph) Entries() []Entry {
	return slices.Clone(g.entries)
}

// IsEntry reports whether id is the module of some entry point.
func (g *Graph) IsEntry(id ModuleID) bool {
	for _, e := range g.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Put inserts or replaces a module record.
func (g *Graph) Put(rec *ModuleRecord) {
	g.modules[rec.ID] = rec
}

// Module returns the record for id.
func (g *Graph) Module(id ModuleID) (*ModuleRecord, bool) {
	rec, ok := g.modules[id]
	return rec, ok
}

// Len returns the number of modules in the graph.
func (g *Graph) Len() int {
	return len(g.modules)
}

// IDs returns every module id in lexical order.
func (g *Graph) IDs() []ModuleID {
	ids := slices.Collect(maps.Keys(g.modules))
	slices.SortFunc(ids, ModuleID.Compare)
	return ids
}

// Modules yields every record in lexical id order.
func (g *Graph) Modules() iter.Seq[*ModuleRecord] {
	return func(yield func(*ModuleRecord) bool) {
		for _, id := range g.IDs() {
			if !yield(g.modules[id]) {
				return
			}
		}
	}
}

// SetEdges replaces the outgoing edges of from. Edge order is the discovery
// order and is preserved.
func (g *Graph) SetEdges(from ModuleID, edges []Edge) {
	for _, old := range g.edges[from] {
		g.unlinkDependent(old.To, from)
	}
	if len(edges) == 0 {
		delete(g.edges, from)
		return
	}
	g.edges[from] = edges
	for _, e := range edges {
		deps, ok := g.dependents[e.To]
		if !ok {
			deps = make(map[ModuleID]int)
			g.dependents[e.To] = deps
		}
		deps[from]++
	}
}

func (g *Graph) unlinkDependent(to, from ModuleID) {
	deps := g.dependents[to]
	if deps == nil {
		return
	}
	deps[from]--
	if deps[from] <= 0 {
		delete(deps, from)
	}
	if len(deps) == 0 {
		delete(g.dependents, to)
	}
}

// Edges returns the outgoing edges of id in discovery order.
func (g *Graph) Edges(id ModuleID) []Edge {
	return g.edges[id]
}

// Dependents returns the modules with an edge pointing to id, in lexical order.
func (g *Graph) Dependents(id ModuleID) []ModuleID {
	ids := slices.Collect(maps.Keys(g.dependents[id]))
	slices.SortFunc(ids, ModuleID.Compare)
	return ids
}

// Remove deletes a module together with its outgoing edges.
func (g *Graph) Remove(id ModuleID) {
	g.SetEdges(id, nil)
	delete(g.modules, id)
}

// Invalidated returns the changed modules that are part of the graph plus
// every module that transitively depends on them, in lexical order.
func (g *Graph) Invalidated(changed []ModuleID) []ModuleID {
	seen := make(map[ModuleID]struct{})
	queue := make([]ModuleID, 0, len(changed))
	for _, id := range changed {
		if _, ok := g.modules[id]; !ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for parent := range g.dependents[id] {
			if _, ok := seen[parent]; ok {
				continue
			}
			seen[parent] = struct{}{}
			queue = append(queue, parent)
		}
	}
	ids := slices.Collect(maps.Keys(seen))
	slices.SortFunc(ids, ModuleID.Compare)
	return ids
}

// Reachable returns the set of modules reachable from any entry over any edge kind.
func (g *Graph) Reachable() map[ModuleID]struct{} {
	seen := make(map[ModuleID]struct{}, len(g.modules))
	var stack []ModuleID
	for _, e := range g.entries {
		if _, ok := g.modules[e.ID]; ok {
			stack = append(stack, e.ID)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		for _, e := range g.edges[id] {
			if _, ok := g.modules[e.To]; ok {
				stack = append(stack, e.To)
			}
		}
	}
	return seen
}

// Prune removes every module no entry can reach and returns their ids.
func (g *Graph) Prune() []ModuleID {
	live := g.Reachable()
	var removed []ModuleID
	for _, id := range g.IDs() {
		if _, ok := live[id]; ok {
			continue
		}
		g.Remove(id)
		removed = append(removed, id)
	}
	return removed
}

// DetectCycles walks the graph depth first from the entries and records every
// edge that closes a cycle. A node is marked in progress while it is on the
// current path, so revisiting it yields a cycle edge instead of re-entry.
func (g *Graph) DetectCycles() []Edge {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[ModuleID]int, len(g.modules))
	var cycles []Edge

	var visit func(id ModuleID)
	visit = func(id ModuleID) {
		state[id] = inProgress
		for _, e := range g.edges[id] {
			if _, ok := g.modules[e.To]; !ok {
				continue
			}
			switch state[e.To] {
			case inProgress:
				cycles = append(cycles, e)
			case unvisited:
				visit(e.To)
			}
		}
		state[id] = done
	}

	for _, e := range g.entries {
		if _, ok := g.modules[e.ID]; ok && state[e.ID] == unvisited {
			visit(e.ID)
		}
	}
	for _, id := range g.IDs() {
		if state[id] == unvisited {
			visit(id)
		}
	}

	g.cycles = cycles
	return slices.Clone(cycles)
}

// Cycles returns the cycle edges found by the last DetectCycles call.
func (g *Graph) Cycles() []Edge {
	return slices.Clone(g.cycles)
}

// Failed returns the records carrying an error, in lexical id order.
func (g *Graph) Failed() []*ModuleRecord {
	var failed []*ModuleRecord
	for rec := range g.Modules() {
		if rec.Err != nil {
			failed = append(failed, rec)
		}
	}
	return failed
}

// LeavesFirst orders the given modules so that every module comes after the
// modules it imports. Cycles are broken deterministically.
func (g *Graph) LeavesFirst(ids []ModuleID) []ModuleID {
	want := make(map[ModuleID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, ModuleID.Compare)

	visited := make(map[ModuleID]bool, len(ids))
	order := make([]ModuleID, 0, len(ids))
	var visit func(id ModuleID)
	visit = func(id ModuleID) {
		visited[id] = true
		for _, e := range g.edges[id] {
			if _, ok := want[e.To]; !ok || visited[e.To] {
				continue
			}
			visit(e.To)
		}
		order = append(order, id)
	}
	for _, id := range sorted {
		if !visited[id] {
			visit(id)
		}
	}
	return order
}

// Clone returns a copy that can be modified without affecting g. Records are
// shared; they are replaced, never mutated, once a generation completes.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		root:       g.root,
		entries:    slices.Clone(g.entries),
		modules:    maps.Clone(g.modules),
		edges:      maps.Clone(g.edges),
		dependents: make(map[ModuleID]map[ModuleID]int, len(g.dependents)),
		cycles:     slices.Clone(g.cycles),
	}
	for k, v := range g.dependents {
		c.dependents[k] = maps.Clone(v)
	}
	return c
}
