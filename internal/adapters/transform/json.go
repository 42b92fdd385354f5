package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.trai.ch/sling/internal/core/ports"
)

// JSONName is the rule name of the JSON transform.
const JSONName = "json"

// JSON turns a JSON document into a module exporting its value.
type JSON struct{}

// NewJSON creates the JSON transform.
func NewJSON() *JSON {
	return &JSON{}
}

// Name implements ports.Transformer.
func (j *JSON) Name() string { return JSONName }

// Version implements ports.Transformer.
func (j *JSON) Version() string { return "1" }

// Kind implements ports.Transformer.
func (j *JSON) Kind() ports.TransformKind { return ports.TransformInline }

// Transform implements ports.Transformer.
func (j *JSON) Transform(_ context.Context, in *ports.TransformInput) (*ports.TransformOutput, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, in.Source); err != nil {
		line, column := 0, 0
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			line, column = position(in.Source, int(min(syntaxErr.Offset, int64(len(in.Source)))))
		}
		return nil, transformError(JSONName, in, line, column, err.Error())
	}

	code := make([]byte, 0, compact.Len()+20)
	code = append(code, "module.exports = "...)
	code = append(code, compact.Bytes()...)
	code = append(code, ";\n"...)
	return &ports.TransformOutput{Code: code, Loader: "js"}, nil
}
