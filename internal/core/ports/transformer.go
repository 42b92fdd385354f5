package ports

import (
	"context"

	"go.trai.ch/sling/internal/core/domain"
)

// TransformKind tells the pipeline how a transform participates in a chain.
type TransformKind uint8

const (
	// TransformInline maps content to content; its output feeds the next transform.
	TransformInline TransformKind = iota
	// TransformAsset maps content to an emitted file reference and ends the chain.
	TransformAsset
)

// TransformInput is the input of one transform in a chain.
type TransformInput struct {
	ID      domain.ModuleID
	Source  []byte
	Options map[string]any
	// Loader is the source language, derived from the module extension and
	// rewritten by transforms that change it.
	Loader        string
	Root          string
	PublicPath    string
	AssetFilename string
	Minify        bool
	SourceMap     domain.SourceMapMode
}

// TransformOutput is the result of one transform.
type TransformOutput struct {
	Code         []byte
	Loader       string
	Dependencies []domain.Dependency
	Asset        *domain.AssetRef
	HotAccept    bool
}

// Transformer is a named content transform.
//
//go:generate mockgen -destination=mocks/transformer_mock.go -package=mocks -source=transformer.go
type Transformer interface {
	Name() string
	// Version changes whenever the transform's output for a given input may change.
	Version() string
	Kind() TransformKind
	Transform(ctx context.Context, in *TransformInput) (*TransformOutput, error)
}

// TransformRegistry looks up transforms by name.
type TransformRegistry interface {
	Lookup(name string) (Transformer, bool)
}
