// Package emitter writes the chunks, assets, manifest and HTML page of a build
// generation to the output root.
package emitter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

// Input is one build generation ready for emission.
type Input struct {
	Config *domain.Config
	Graph  *domain.Graph
	Chunks *domain.ChunkSet
	// Full marks a non-incremental build. The output root is emptied first.
	Full bool
	// Previous is the manifest of the last emission. Skipped chunks of an
	// incremental build keep the files it lists.
	Previous *domain.Manifest
	// HotReload enables the update client of the runtime.
	HotReload bool
	// Generation is stamped into hot reloading runtimes.
	Generation int
}

// Result describes what an emission produced.
type Result struct {
	Manifest *domain.Manifest
	// Written lists the paths, relative to the output root, whose content
	// changed on disk.
	Written []string
	// Skipped names the chunks left out because they touch a failed module.
	Skipped []string
}

// Emitter renders chunks and writes them under content addressed names.
type Emitter struct {
	hasher ports.Hasher
	tracer ports.Tracer
}

// New creates an Emitter.
func New(hasher ports.Hasher, tracer ports.Tracer) *Emitter {
	return &Emitter{hasher: hasher, tracer: tracer}
}

// Emit writes every chunk that does not touch a failed module, the emitted
// assets, and finally the manifest and the HTML page.
func (e *Emitter) Emit(ctx context.Context, in Input) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "emit")
	defer span.End()

	res, err := e.emit(ctx, in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("emit.written", len(res.Written))
	span.SetAttribute("emit.skipped", len(res.Skipped))
	return res, nil
}

func (e *Emitter) emit(ctx context.Context, in Input) (*Result, error) {
	cfg := in.Config
	g := in.Graph
	outDir := cfg.Output.Dir
	if !strictlyInside(cfg.Root, outDir) {
		return nil, zerr.With(zerr.Wrap(domain.ErrOutputPathOutsideRoot, ""), "path", outDir)
	}
	if in.Full {
		if err := clean(outDir); err != nil {
			return nil, err
		}
	}

	var previous *domain.Manifest
	if !in.Full && in.Previous != nil {
		previous = in.Previous
	}

	w := newFileWriter(outDir)
	publicPath := normalizePublicPath(cfg.Output.PublicPath)
	skip := skippedChunks(g, in.Chunks)
	files := make(map[string]string)
	res := &Result{}

	var bootstrap *domain.Chunk
	for _, c := range in.Chunks.Chunks() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if skip[c.Name] {
			res.Skipped = append(res.Skipped, c.Name)
			if p, ok := previousFile(previous, c.Name); ok {
				files[c.Name] = p
			}
			continue
		}
		if c.Bootstrap {
			bootstrap = c
			continue
		}
		var buf bytes.Buffer
		if err := renderChunk(&buf, g, c); err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrEmitFailed, err.Error()), "chunk", c.Name)
		}
		path := domain.ExpandTemplate(filenameTemplate(cfg.Output, c.Kind), c.Name, ".js", c.Hash)
		if err := w.write(path, buf.Bytes()); err != nil {
			return nil, err
		}
		files[c.Name] = path
	}

	if bootstrap != nil {
		path, err := e.emitBootstrap(w, in, bootstrap, publicPath, files)
		if err != nil {
			return nil, err
		}
		files[bootstrap.Name] = path
	}

	manifest := domain.NewManifest()
	for name, path := range files {
		manifest.Set(name, path)
	}
	for rec := range g.Modules() {
		if rec.Err != nil || rec.Asset == nil || rec.Asset.Inline {
			continue
		}
		if err := w.write(rec.Asset.Path, rec.Asset.Content); err != nil {
			return nil, err
		}
		manifest.Set(rec.Asset.Name, rec.Asset.Path)
	}
	for _, entry := range g.Entries() {
		if skip[entry.Name] {
			if prev, ok := previousEntrypoint(previous, entry.Name); ok {
				manifest.Entrypoints[entry.Name] = prev
			}
			continue
		}
		var paths []string
		for _, name := range in.Chunks.Closure(entry.Name) {
			if p, ok := files[name]; ok {
				paths = append(paths, p)
			}
		}
		manifest.Entrypoints[entry.Name] = paths
	}

	data, err := manifest.Marshal()
	if err != nil {
		return nil, zerr.Wrap(domain.ErrManifestWriteFailed, err.Error())
	}
	if err := writeAtomic(filepath.Join(outDir, domain.ManifestFileName), data); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestWriteFailed, err.Error()), "path", domain.ManifestFileName)
	}

	if cfg.HTML.Template != "" {
		if err := e.emitHTML(w, cfg.HTML.Template, publicPath, g, manifest); err != nil {
			return nil, err
		}
	}

	res.Manifest = manifest
	res.Written = w.changed
	return res, nil
}

// emitBootstrap writes the chunk carrying the runtime. Its name hashes its
// own content, which includes the location of every other chunk.
func (e *Emitter) emitBootstrap(w *fileWriter, in Input, c *domain.Chunk, publicPath string,
	files map[string]string,
) (string, error) {
	root := in.Graph.Root()
	rc := runtimeConfig{
		PublicPath: publicPath,
		Chunks:     make(map[string]string, len(files)),
		Imports:    make(map[string][]string),
	}
	for name, path := range files {
		rc.Chunks[name] = path
	}
	for id, names := range in.Chunks.Imports() {
		rc.Imports[id.Key(root)] = names
	}
	if in.HotReload {
		rc.HMR = domain.HMRPath
		rc.Generation = in.Generation
	}

	content, err := renderRuntime(rc)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrEmitFailed, err.Error()), "chunk", c.Name)
	}
	buf := bytes.NewBuffer(content)
	if c.Kind != domain.ChunkRuntime {
		if err := renderChunk(buf, in.Graph, c); err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrEmitFailed, err.Error()), "chunk", c.Name)
		}
	}

	path := domain.ExpandTemplate(in.Config.Output.Filename, c.Name, ".js", e.hasher.HashBytes(buf.Bytes()))
	if err := w.write(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// emitHTML injects the scripts of every entry into the page template.
func (e *Emitter) emitHTML(w *fileWriter, template, publicPath string, g *domain.Graph, m *domain.Manifest) error {
	page, err := os.ReadFile(template)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrEmitFailed, "failed to read html template"), "path", template)
	}

	var scripts []string
	seen := make(map[string]bool)
	for _, entry := range g.Entries() {
		for _, p := range m.Entrypoints[entry.Name] {
			if seen[p] {
				continue
			}
			seen[p] = true
			scripts = append(scripts, p)
		}
	}
	return w.write(domain.HTMLFileName, injectScripts(page, publicPath, scripts))
}

func filenameTemplate(out domain.OutputConfig, kind domain.ChunkKind) string {
	if kind.Initial() {
		return out.Filename
	}
	return out.ChunkFilename
}

// skippedChunks returns the chunks that contain a failed module, a module
// statically depending on one, or that require a skipped chunk.
func skippedChunks(g *domain.Graph, set *domain.ChunkSet) map[string]bool {
	skip := make(map[string]bool)
	bad := tainted(g)
	if len(bad) == 0 {
		return skip
	}
	// Chunks are in load order, so prerequisites are decided first.
	for _, c := range set.Chunks() {
		if slices.ContainsFunc(c.Modules, func(id domain.ModuleID) bool { return bad[id] }) ||
			slices.ContainsFunc(c.Requires, func(name string) bool { return skip[name] }) {
			skip[c.Name] = true
		}
	}
	return skip
}

// tainted returns the failed modules and every module that reaches one over
// static or asset edges.
func tainted(g *domain.Graph) map[domain.ModuleID]bool {
	bad := make(map[domain.ModuleID]bool)
	var queue []domain.ModuleID
	for _, rec := range g.Failed() {
		bad[rec.ID] = true
		queue = append(queue, rec.ID)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, parent := range g.Dependents(id) {
			if bad[parent] || !importsStatically(g, parent, id) {
				continue
			}
			bad[parent] = true
			queue = append(queue, parent)
		}
	}
	return bad
}

func importsStatically(g *domain.Graph, from, to domain.ModuleID) bool {
	return slices.ContainsFunc(g.Edges(from), func(e domain.Edge) bool {
		return e.To == to && e.Kind != domain.EdgeDynamic
	})
}

func previousFile(m *domain.Manifest, name string) (string, bool) {
	if m == nil {
		return "", false
	}
	return m.Lookup(name)
}

func previousEntrypoint(m *domain.Manifest, name string) ([]string, bool) {
	if m == nil {
		return nil, false
	}
	paths, ok := m.Entrypoints[name]
	return slices.Clone(paths), ok
}

// strictlyInside reports whether dir lies below root and is not root itself.
func strictlyInside(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	return err == nil && rel != "." && filepath.IsLocal(rel)
}
