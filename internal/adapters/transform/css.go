package transform

import (
	"context"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/sling/internal/core/ports"
)

// CSSName is the rule name of the CSS transform.
const CSSName = "css"

// CSS turns a stylesheet into a module that injects it into the document.
// @import rules become static dependencies and local url() references become
// asset dependencies. Style modules always accept hot updates.
type CSS struct{}

// NewCSS creates the CSS transform.
func NewCSS() *CSS {
	return &CSS{}
}

// Name implements ports.Transformer.
func (c *CSS) Name() string { return CSSName }

// Version implements ports.Transformer.
func (c *CSS) Version() string { return esbuildVersion() + "+2" }

// Kind implements ports.Transformer.
func (c *CSS) Kind() ports.TransformKind { return ports.TransformInline }

// Transform implements ports.Transformer.
func (c *CSS) Transform(_ context.Context, in *ports.TransformInput) (*ports.TransformOutput, error) {
	collector := newDepCollector(in.Source)
	compiled, err := build(CSSName, in, api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   string(in.Source),
			Sourcefile: in.ID.Key(in.Root),
			Loader:     api.LoaderCSS,
		},
		Bundle:           true,
		Write:            false,
		MinifyWhitespace: in.Minify,
		MinifySyntax:     in.Minify,
		LogLevel:         api.LogLevelSilent,
		Plugins:          []api.Plugin{collector.plugin()},
	})
	if err != nil {
		return nil, err
	}

	code, deps := collector.restoreCSS(compiled)
	return &ports.TransformOutput{
		Code:         code,
		Loader:       "js",
		Dependencies: deps,
		HotAccept:    true,
	}, nil
}

func isExternalURL(target string) bool {
	for _, prefix := range []string{"data:", "http:", "https:", "//", "#", "/"} {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}
