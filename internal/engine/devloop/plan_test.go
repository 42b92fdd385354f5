package devloop

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/zerr"
)

const root = "/project"

func id(key string) domain.ModuleID {
	return domain.NewModuleID(filepath.Join(root, key), "")
}

// fixtureGraph builds main.js -> app.js -> {widget.js, util.js}. app.js
// accepts hot updates. digests overrides the digest of individual modules.
func fixtureGraph(t *testing.T, digests map[string]string) *domain.Graph {
	t.Helper()

	g := domain.NewGraph(root)
	edges := map[string][]string{
		"main.js": {"app.js"},
		"app.js":  {"widget.js", "util.js"},
	}
	for _, key := range []string{"main.js", "app.js", "widget.js", "util.js"} {
		rec := &domain.ModuleRecord{
			ID:        id(key),
			Output:    []byte("// " + key),
			Digest:    key,
			HotAccept: key == "app.js",
			Resolved:  map[string]domain.ModuleID{},
		}
		if d, ok := digests[key]; ok {
			rec.Digest = d
			rec.Output = []byte("// " + d)
		}
		var out []domain.Edge
		for _, to := range edges[key] {
			out = append(out, domain.Edge{From: id(key), To: id(to), Kind: domain.EdgeStatic, Specifier: "./" + to})
			rec.Resolved["./"+to] = id(to)
		}
		g.Put(rec)
		g.SetEdges(id(key), out)
	}
	require.NoError(t, g.AddEntry("main", id("main.js")))
	return g
}

func chunks(t *testing.T, names ...string) *domain.ChunkSet {
	t.Helper()
	s := domain.NewChunkSet()
	for _, name := range names {
		require.NoError(t, s.Add(&domain.Chunk{Name: name}))
	}
	return s
}

func keys(ids []domain.ModuleID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Key(root))
	}
	return out
}

func TestPlan_PushesUpToTheHotBoundary(t *testing.T) {
	prev := fixtureGraph(t, nil)
	next := fixtureGraph(t, map[string]string{"util.js": "util2"})
	set := chunks(t, "main", "runtime")

	ids, reason := plan(prev, next, set, set)
	require.Empty(t, reason)
	assert.Equal(t, []string{"util.js", "app.js"}, keys(ids))

	ups := updates(next, ids)
	require.Len(t, ups, 2)
	assert.Equal(t, "util.js", ups[0].ID)
	assert.Equal(t, "// util2", ups[0].Code)
	assert.Equal(t, map[string]string{"./widget.js": "widget.js", "./util.js": "util.js"}, ups[1].Deps)
}

func TestPlan_EntryWithoutBoundaryReloads(t *testing.T) {
	prev := fixtureGraph(t, nil)
	next := fixtureGraph(t, map[string]string{"main.js": "main2"})
	set := chunks(t, "main", "runtime")

	ids, reason := plan(prev, next, set, set)
	assert.Nil(t, ids)
	assert.Equal(t, reasonEntry, reason)
}

func TestPlan_ChunkLayoutChangeReloads(t *testing.T) {
	prev := fixtureGraph(t, nil)
	next := fixtureGraph(t, map[string]string{"util.js": "util2"})

	_, reason := plan(prev, next, chunks(t, "main", "runtime"), chunks(t, "main", "runtime", "vendor"))
	assert.Equal(t, reasonLayout, reason)
}

func TestPlan_NothingChanged(t *testing.T) {
	set := chunks(t, "main", "runtime")
	ids, reason := plan(fixtureGraph(t, nil), fixtureGraph(t, nil), set, set)
	assert.Empty(t, reason)
	assert.Empty(t, ids)
}

func TestDiagnostics_ReadLocationFromErrorMetadata(t *testing.T) {
	g := fixtureGraph(t, nil)
	rec, _ := g.Module(id("util.js"))
	broken := *rec
	broken.Err = zerr.With(zerr.With(zerr.Wrap(domain.ErrTransformFailed, "unexpected end of file"), "line", 3), "column", 7)
	g.Put(&broken)

	diags := diagnostics(g)
	require.Len(t, diags, 1)
	assert.Equal(t, "util.js", diags[0].File)
	assert.Equal(t, 3, diags[0].Line)
	assert.Equal(t, 7, diags[0].Column)
	assert.Equal(t, domain.SeverityError, diags[0].Severity)
}
