package domain

import (
	"maps"
	"slices"

	"go.trai.ch/zerr"
)

// ChunkKind classifies a chunk by how it came into existence.
type ChunkKind uint8

const (
	// ChunkEntry holds the code owned by a single entry point.
	ChunkEntry ChunkKind = iota
	// ChunkAsync is rooted at the target of a dynamic import.
	ChunkAsync
	// ChunkShared holds modules hoisted out of several owners.
	ChunkShared
	// ChunkVendor holds modules matched by a vendor predicate.
	ChunkVendor
	// ChunkRuntime holds the module-loading bootstrap.
	ChunkRuntime
)

// String returns the name of the chunk kind.
func (k ChunkKind) String() string {
	switch k {
	case ChunkEntry:
		return "entry"
	case ChunkAsync:
		return "async"
	case ChunkShared:
		return "shared"
	case ChunkVendor:
		return "vendor"
	case ChunkRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Initial reports whether chunks of this kind are loaded by a script tag
// rather than on demand.
func (k ChunkKind) Initial() bool {
	return k == ChunkEntry || k == ChunkRuntime
}

// Chunk is a deliverable, independently cacheable bundle of modules.
type Chunk struct {
	Name string
	Kind ChunkKind
	// Modules are ordered by module key.
	Modules []ModuleID
	// Hash is the chunk identity.
	Hash string
	// Requires names the chunks that must be loaded before this one runs.
	Requires []string
	// Root is the entry or dynamic import target the chunk was built from.
	Root ModuleID
	// Bootstrap is set when the chunk carries the loader runtime itself.
	Bootstrap bool
}

// Contains reports whether id is a member of the chunk.
func (c *Chunk) Contains(id ModuleID) bool {
	return slices.Contains(c.Modules, id)
}

// ChunkSet is the outcome of splitting one graph.
type ChunkSet struct {
	chunks  []*Chunk
	byName  map[string]*Chunk
	owners  map[ModuleID][]string
	async   map[ModuleID]string
	imports map[ModuleID][]string
}

// NewChunkSet creates an empty ChunkSet.
func NewChunkSet() *ChunkSet {
	return &ChunkSet{
		byName:  make(map[string]*Chunk),
		owners:  make(map[ModuleID][]string),
		async:   make(map[ModuleID]string),
		imports: make(map[ModuleID][]string),
	}
}

// Add inserts a chunk. Names are unique within a set.
func (s *ChunkSet) Add(c *Chunk) error {
	if _, ok := s.byName[c.Name]; ok {
		return zerr.With(zerr.Wrap(ErrDuplicateChunk, ""), "chunk", c.Name)
	}
	s.chunks = append(s.chunks, c)
	s.byName[c.Name] = c
	for _, id := range c.Modules {
		s.owners[id] = append(s.owners[id], c.Name)
	}
	if c.Kind == ChunkAsync {
		s.async[c.Root] = c.Name
	}
	return nil
}

// Chunks returns the chunks in insertion order.
func (s *ChunkSet) Chunks() []*Chunk {
	return slices.Clone(s.chunks)
}

// Chunk looks up a chunk by name.
func (s *ChunkSet) Chunk(name string) (*Chunk, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Len returns the number of chunks.
func (s *ChunkSet) Len() int {
	return len(s.chunks)
}

// Owners returns the names of the chunks containing id.
func (s *ChunkSet) Owners(id ModuleID) []string {
	return slices.Clone(s.owners[id])
}

// AsyncChunk returns the name of the chunk rooted at a dynamic import target.
func (s *ChunkSet) AsyncChunk(id ModuleID) (string, bool) {
	name, ok := s.async[id]
	return name, ok
}

// AsyncRoots returns the dynamic import targets and their chunk names.
func (s *ChunkSet) AsyncRoots() map[ModuleID]string {
	return maps.Clone(s.async)
}

// Runtime returns the chunk carrying the bootstrap, if any.
func (s *ChunkSet) Runtime() (*Chunk, bool) {
	for _, c := range s.chunks {
		if c.Bootstrap {
			return c, true
		}
	}
	return nil, false
}

// Closure returns name and every chunk it transitively requires, with
// prerequisites ordered before their dependents.
func (s *ChunkSet) Closure(name string) []string {
	var order []string
	seen := make(map[string]bool)
	var visit func(n string)
	visit = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		c, ok := s.byName[n]
		if !ok {
			return
		}
		for _, r := range c.Requires {
			visit(r)
		}
		order = append(order, n)
	}
	visit(name)
	return order
}

// SetImport records the chunks, in load order, that must be present before
// the dynamic import target id can be required.
func (s *ChunkSet) SetImport(id ModuleID, chunks []string) {
	s.imports[id] = slices.Clone(chunks)
}

// Imports returns the load list of every dynamic import target.
func (s *ChunkSet) Imports() map[ModuleID][]string {
	out := make(map[ModuleID][]string, len(s.imports))
	for id, chunks := range s.imports {
		out[id] = slices.Clone(chunks)
	}
	return out
}
