// Package bundle runs build generations: graph expansion, chunk splitting
// and emission, in that order.
package bundle

import (
	"context"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/sling/internal/engine/emitter"
	"go.trai.ch/sling/internal/engine/graphbuilder"
	"go.trai.ch/sling/internal/engine/splitter"
)

// Generation is the outcome of one build generation.
type Generation struct {
	Number int
	Graph  *domain.Graph
	// Chunks and Manifest belong to the last emitted generation. They are
	// carried forward unchanged by generations that did not emit.
	Chunks   *domain.ChunkSet
	Manifest *domain.Manifest
	// Emitted is set when this generation wrote its output.
	Emitted bool
	// Recomputed lists the modules processed in this generation.
	Recomputed  []domain.ModuleID
	Removed     []domain.ModuleID
	Transformed int
	// Skipped names the chunks left out of a partial emission.
	Skipped []string
	// Err joins the module level failures of the generation.
	Err error
}

// Failed reports whether the generation has module level failures.
func (g *Generation) Failed() bool {
	return g.Err != nil
}

// Request describes the generation to run.
type Request struct {
	Env graphbuilder.Env
	// Previous is the last generation. A nil Previous runs a full build. The
	// output root is cleaned until a generation has emitted.
	Previous *Generation
	// Changed lists the absolute paths modified since Previous.
	Changed []string
	// Full rebuilds the whole graph even when Previous is set. Numbering
	// continues from Previous.
	Full bool
	// EmitOnFailure emits the chunks that do not touch a failed module even
	// when the generation has failures.
	EmitOnFailure bool
	// HotReload enables the update client of the runtime.
	HotReload bool
}

// Bundler chains the graph builder, the splitter and the emitter.
type Bundler struct {
	builder  *graphbuilder.Builder
	splitter *splitter.Splitter
	emitter  *emitter.Emitter
	tracer   ports.Tracer
}

// New creates a Bundler.
func New(b *graphbuilder.Builder, s *splitter.Splitter, e *emitter.Emitter, tracer ports.Tracer) *Bundler {
	return &Bundler{builder: b, splitter: s, emitter: e, tracer: tracer}
}

// Run executes one generation. The returned error is fatal: the context was
// cancelled, the graph could not be completed, chunks formed a cycle or
// emission failed. Module failures are reported in Generation.Err instead.
func (b *Bundler) Run(ctx context.Context, req Request) (*Generation, error) {
	full := req.Previous == nil || req.Full
	number := 1
	if req.Previous != nil {
		number = req.Previous.Number + 1
	}

	ctx, span := b.tracer.Start(ctx, "build")
	defer span.End()
	span.SetAttribute("build.generation", number)
	span.SetAttribute("build.full", full)

	var (
		res *graphbuilder.Result
		err error
	)
	if full {
		res, err = b.builder.Build(ctx, req.Env)
	} else {
		res, err = b.builder.Rebuild(ctx, req.Env, req.Previous.Graph, req.Changed)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	gen := &Generation{
		Number:      number,
		Graph:       res.Graph,
		Recomputed:  res.Recomputed,
		Removed:     res.Removed,
		Transformed: res.Transformed,
		Err:         res.Err,
	}
	var prevManifest *domain.Manifest
	if req.Previous != nil {
		gen.Chunks = req.Previous.Chunks
		gen.Manifest = req.Previous.Manifest
		if !full {
			prevManifest = req.Previous.Manifest
		}
	}
	if gen.Failed() && !req.EmitOnFailure {
		span.RecordError(gen.Err)
		return gen, nil
	}

	chunks, err := b.splitter.Split(ctx, res.Graph, req.Env.Config.Split)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out, err := b.emitter.Emit(ctx, emitter.Input{
		Config:     req.Env.Config,
		Graph:      res.Graph,
		Chunks:     chunks,
		Full:       prevManifest == nil,
		Previous:   prevManifest,
		HotReload:  req.HotReload,
		Generation: number,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	gen.Chunks = chunks
	gen.Manifest = out.Manifest
	gen.Skipped = out.Skipped
	gen.Emitted = true
	if gen.Failed() {
		span.RecordError(gen.Err)
	}
	return gen, nil
}
