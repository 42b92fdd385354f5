package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/core/domain"
)

func id(name string) domain.ModuleID {
	return domain.NewModuleID("/p/"+name, "")
}

func static(from, to string) domain.Edge {
	return domain.Edge{From: id(from), To: id(to), Kind: domain.EdgeStatic, Specifier: "./" + to}
}

// newGraph builds a graph from an adjacency list; every named module is added.
func newGraph(t *testing.T, entries []string, adj map[string][]string) *domain.Graph {
	t.Helper()
	g := domain.NewGraph("/p")
	for from, tos := range adj {
		g.Put(&domain.ModuleRecord{ID: id(from)})
		edges := make([]domain.Edge, 0, len(tos))
		for _, to := range tos {
			g.Put(&domain.ModuleRecord{ID: id(to)})
			edges = append(edges, static(from, to))
		}
		g.SetEdges(id(from), edges)
	}
	for _, e := range entries {
		require.NoError(t, g.AddEntry(e, id(e)))
	}
	return g
}

func TestGraph_AddEntry_Duplicate(t *testing.T) {
	g := domain.NewGraph("/p")
	require.NoError(t, g.AddEntry("main", id("a.js")))

	err := g.AddEntry("main", id("b.js"))
	require.ErrorIs(t, err, domain.ErrDuplicateEntry)

	v, ok := domain.Meta(err, "entry")
	require.True(t, ok)
	assert.Equal(t, "main", v)
}

func TestGraph_Dependents(t *testing.T) {
	g := newGraph(t, []string{"a.js", "d.js"}, map[string][]string{
		"a.js": {"b.js"},
		"d.js": {"b.js"},
		"b.js": {"c.js"},
	})

	assert.Equal(t, []domain.ModuleID{id("a.js"), id("d.js")}, g.Dependents(id("b.js")))
	assert.Equal(t, []domain.ModuleID{id("b.js")}, g.Dependents(id("c.js")))

	// Replacing edges unlinks the old reverse index.
	g.SetEdges(id("a.js"), nil)
	assert.Equal(t, []domain.ModuleID{id("d.js")}, g.Dependents(id("b.js")))
}

func TestGraph_Invalidated(t *testing.T) {
	g := newGraph(t, []string{"a.js", "d.js"}, map[string][]string{
		"a.js": {"b.js", "x.js"},
		"d.js": {"b.js"},
		"b.js": {"c.js"},
		"x.js": {"y.js"},
	})

	got := g.Invalidated([]domain.ModuleID{id("c.js")})
	assert.Equal(t, []domain.ModuleID{id("a.js"), id("b.js"), id("c.js"), id("d.js")}, got)

	assert.Empty(t, g.Invalidated([]domain.ModuleID{id("unknown.js")}))
}

func TestGraph_DetectCycles(t *testing.T) {
	tests := []struct {
		name   string
		adj    map[string][]string
		cycles []domain.Edge
	}{
		{
			name:   "Self import",
			adj:    map[string][]string{"a.js": {"a.js"}},
			cycles: []domain.Edge{static("a.js", "a.js")},
		},
		{
			name: "Two node cycle",
			adj: map[string][]string{
				"a.js": {"b.js"},
				"b.js": {"a.js"},
			},
			cycles: []domain.Edge{static("b.js", "a.js")},
		},
		{
			name: "Diamond is not a cycle",
			adj: map[string][]string{
				"a.js": {"b.js", "c.js"},
				"b.js": {"d.js"},
				"c.js": {"d.js"},
			},
			cycles: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGraph(t, []string{"a.js"}, tt.adj)
			assert.Equal(t, tt.cycles, g.DetectCycles())
			assert.Equal(t, tt.cycles, g.Cycles())
		})
	}
}

func TestGraph_Prune(t *testing.T) {
	g := newGraph(t, []string{"a.js"}, map[string][]string{
		"a.js":      {"b.js"},
		"orphan.js": {"b.js"},
	})

	removed := g.Prune()
	assert.Equal(t, []domain.ModuleID{id("orphan.js")}, removed)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []domain.ModuleID{id("a.js")}, g.Dependents(id("b.js")))
}

func TestGraph_LeavesFirst(t *testing.T) {
	g := newGraph(t, []string{"a.js"}, map[string][]string{
		"a.js": {"b.js"},
		"b.js": {"c.js"},
		"c.js": {"b.js"},
	})

	order := g.LeavesFirst([]domain.ModuleID{id("a.js"), id("b.js"), id("c.js")})
	assert.Equal(t, []domain.ModuleID{id("c.js"), id("b.js"), id("a.js")}, order)
}

func TestGraph_Clone(t *testing.T) {
	g := newGraph(t, []string{"a.js"}, map[string][]string{"a.js": {"b.js"}})

	c := g.Clone()
	c.SetEdges(id("a.js"), nil)
	c.Remove(id("b.js"))

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []domain.ModuleID{id("a.js")}, g.Dependents(id("b.js")))
	assert.Equal(t, 1, c.Len())
}
