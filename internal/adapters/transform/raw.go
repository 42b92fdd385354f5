package transform

import (
	"context"

	"go.trai.ch/sling/internal/core/ports"
)

// RawName is the rule name of the raw transform.
const RawName = "raw"

// Raw exports the module content as a string.
type Raw struct{}

// NewRaw creates the raw transform.
func NewRaw() *Raw {
	return &Raw{}
}

// Name implements ports.Transformer.
func (r *Raw) Name() string { return RawName }

// Version implements ports.Transformer.
func (r *Raw) Version() string { return "1" }

// Kind implements ports.Transformer.
func (r *Raw) Kind() ports.TransformKind { return ports.TransformInline }

// Transform implements ports.Transformer.
func (r *Raw) Transform(_ context.Context, in *ports.TransformInput) (*ports.TransformOutput, error) {
	code := "module.exports = " + jsString(string(in.Source)) + ";\n"
	return &ports.TransformOutput{Code: []byte(code), Loader: "js"}, nil
}
