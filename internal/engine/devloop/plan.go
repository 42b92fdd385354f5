package devloop

import (
	"slices"

	"go.trai.ch/sling/internal/core/domain"
)

// Reload reasons reported in HMR reload messages.
const (
	reasonConfig = "config changed"
	reasonLayout = "chunk layout changed"
	reasonEntry  = "change reached an entry without a hot boundary"
)

// plan decides how clients running prev pick up next. It returns the modules
// to push in application order, or a non-empty reload reason.
func plan(prev, next *domain.Graph, prevChunks, nextChunks *domain.ChunkSet) ([]domain.ModuleID, string) {
	if !sameLayout(prev.Root(), prevChunks, nextChunks) {
		return nil, reasonLayout
	}

	var queue []domain.ModuleID
	for rec := range next.Modules() {
		if old, ok := prev.Module(rec.ID); ok && old.Digest == rec.Digest {
			continue
		}
		queue = append(queue, rec.ID)
	}

	push := make(map[domain.ModuleID]struct{})
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := push[id]; ok {
			continue
		}
		push[id] = struct{}{}

		rec, ok := next.Module(id)
		if ok && rec.HotAccept {
			continue
		}
		if next.IsEntry(id) {
			return nil, reasonEntry
		}
		queue = append(queue, next.Dependents(id)...)
	}

	ids := make([]domain.ModuleID, 0, len(push))
	for id := range push {
		ids = append(ids, id)
	}
	return next.LeavesFirst(ids), ""
}

// sameLayout reports whether two chunk sets load the same chunks for the
// same dynamic imports, so the runtime's chunk table is still valid.
func sameLayout(root string, a, b *domain.ChunkSet) bool {
	names := func(s *domain.ChunkSet) []string {
		out := make([]string, 0, s.Len())
		for _, c := range s.Chunks() {
			out = append(out, c.Name)
		}
		slices.Sort(out)
		return out
	}
	if !slices.Equal(names(a), names(b)) {
		return false
	}

	imports := func(s *domain.ChunkSet) map[string][]string {
		out := make(map[string][]string)
		for id, chunks := range s.Imports() {
			out[id.Key(root)] = chunks
		}
		return out
	}
	ia, ib := imports(a), imports(b)
	if len(ia) != len(ib) {
		return false
	}
	for key, chunks := range ia {
		if !slices.Equal(chunks, ib[key]) {
			return false
		}
	}
	return true
}

// updates renders the pushed modules as HMR updates.
func updates(g *domain.Graph, ids []domain.ModuleID) []domain.ModuleUpdate {
	root := g.Root()
	out := make([]domain.ModuleUpdate, 0, len(ids))
	for _, id := range ids {
		rec, ok := g.Module(id)
		if !ok {
			continue
		}
		u := domain.ModuleUpdate{ID: id.Key(root), Code: string(rec.Output)}
		if len(rec.Resolved) > 0 {
			u.Deps = make(map[string]string, len(rec.Resolved))
			for spec, to := range rec.Resolved {
				u.Deps[spec] = to.Key(root)
			}
		}
		out = append(out, u)
	}
	return out
}

// diagnostics converts the module failures of a graph into diagnostics for
// the browser overlay.
func diagnostics(g *domain.Graph) []domain.Diagnostic {
	root := g.Root()
	var out []domain.Diagnostic
	for _, rec := range g.Failed() {
		d := domain.Diagnostic{
			Source:   "sling",
			File:     rec.ID.Key(root),
			Severity: domain.SeverityError,
			Message:  rec.Err.Error(),
		}
		if v, ok := domain.Meta(rec.Err, "line"); ok {
			d.Line = asInt(v)
		}
		if v, ok := domain.Meta(rec.Err, "column"); ok {
			d.Column = asInt(v)
		}
		out = append(out, d)
	}
	return out
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint32:
		return int(n)
	default:
		return 0
	}
}
