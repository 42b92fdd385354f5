// Package pipeline runs the ordered transform chain selected for a module.
package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

// Step is one resolved link of a transform chain.
type Step struct {
	Transformer ports.Transformer
	Options     map[string]any
}

// Result is the outcome of running a module through its chain.
type Result struct {
	Code         []byte
	Dependencies []domain.Dependency
	Transforms   []string
	Asset        *domain.AssetRef
	HotAccept    bool
}

// Pipeline selects and runs transform chains.
type Pipeline struct {
	registry ports.TransformRegistry
	hasher   ports.Hasher
}

// New creates a Pipeline.
func New(registry ports.TransformRegistry, hasher ports.Hasher) *Pipeline {
	return &Pipeline{registry: registry, hasher: hasher}
}

// Chain resolves the transform chain of id: the first rule whose pattern
// matches wins.
func (p *Pipeline) Chain(cfg *domain.Config, id domain.ModuleID) ([]Step, error) {
	rule, ok := cfg.MatchRule(id.Path())
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrNoMatchingRule, "add a rule whose test matches the file"),
			"file", id.Key(cfg.Root))
	}

	steps := make([]Step, 0, len(rule.Use))
	for _, ref := range rule.Use {
		t, ok := p.registry.Lookup(ref.Name)
		if !ok {
			err := zerr.Wrap(domain.ErrUnknownTransform, "transform is not registered")
			err = zerr.With(err, "transform", ref.Name)
			return nil, zerr.With(err, "file", id.Key(cfg.Root))
		}
		steps = append(steps, Step{Transformer: t, Options: ref.Options})
	}
	return steps, nil
}

// Fingerprint identifies every input of id's transformation other than its
// source: the chain, the options and versions of its transforms, and the
// build settings transforms read.
func (p *Pipeline) Fingerprint(cfg *domain.Config, id domain.ModuleID) (string, error) {
	steps, err := p.Chain(cfg, id)
	if err != nil {
		return "", err
	}

	parts := []string{
		string(cfg.Mode),
		boolString(cfg.Minify),
		string(cfg.SourceMap),
		cfg.Output.PublicPath,
		cfg.Output.AssetFilename,
	}
	for _, step := range steps {
		options, err := json.Marshal(step.Options)
		if err != nil {
			err = zerr.Wrap(domain.ErrInvalidTransformOption, err.Error())
			return "", zerr.With(err, "transform", step.Transformer.Name())
		}
		parts = append(parts, step.Transformer.Name(), step.Transformer.Version(), string(options))
	}
	return p.hasher.HashStrings(parts...), nil
}

// Run transforms source through id's chain. Each transform consumes the
// previous output. An asset transform ends the chain.
func (p *Pipeline) Run(ctx context.Context, cfg *domain.Config, id domain.ModuleID, source []byte) (*Result, error) {
	steps, err := p.Chain(cfg, id)
	if err != nil {
		return nil, err
	}

	in := &ports.TransformInput{
		ID:            id,
		Source:        source,
		Loader:        strings.TrimPrefix(filepath.Ext(id.Path()), "."),
		Root:          cfg.Root,
		PublicPath:    cfg.Output.PublicPath,
		AssetFilename: cfg.Output.AssetFilename,
		Minify:        cfg.Minify,
		SourceMap:     cfg.SourceMap,
	}
	result := &Result{Code: source}
	seen := make(map[domain.Dependency]bool)

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		in.Options = step.Options
		out, err := step.Transformer.Transform(ctx, in)
		if err != nil {
			return nil, err
		}

		result.Code = out.Code
		result.Transforms = append(result.Transforms, step.Transformer.Name())
		result.HotAccept = result.HotAccept || out.HotAccept
		for _, dep := range out.Dependencies {
			key := domain.Dependency{Specifier: dep.Specifier, Kind: dep.Kind}
			if seen[key] {
				continue
			}
			seen[key] = true
			result.Dependencies = append(result.Dependencies, dep)
		}

		if step.Transformer.Kind() == ports.TransformAsset {
			result.Asset = out.Asset
			break
		}

		in.Source = out.Code
		if out.Loader != "" {
			in.Loader = out.Loader
		}
	}
	return result, nil
}

func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
