package transform

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
)

// ESBuildName is the rule name of the esbuild transform.
const ESBuildName = "esbuild"

var loaders = map[string]api.Loader{
	"js":  api.LoaderJS,
	"mjs": api.LoaderJS,
	"cjs": api.LoaderJS,
	"jsx": api.LoaderJSX,
	"ts":  api.LoaderTS,
	"mts": api.LoaderTS,
	"cts": api.LoaderTS,
	"tsx": api.LoaderTSX,
}

var targets = map[string]api.Target{
	"esnext": api.ESNext,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

const esbuildModule = "github.com/evanw/esbuild"

// ESBuild compiles TypeScript, JSX and modern JavaScript to CommonJS shaped JavaScript.
//
// Options:
//
//	loader      js | jsx | ts | tsx, inferred from the extension by default
//	target      esnext (default) or es2015 through es2022
//	jsx         automatic (default) | classic | preserve
//	jsxFactory  factory of the classic runtime, React.createElement by default
type ESBuild struct{}

// NewESBuild creates the esbuild transform.
func NewESBuild() *ESBuild {
	return &ESBuild{}
}

// Name implements ports.Transformer.
func (e *ESBuild) Name() string { return ESBuildName }

// Version implements ports.Transformer.
func (e *ESBuild) Version() string { return "esbuild-" + esbuildVersion() + "+2" }

// Kind implements ports.Transformer.
func (e *ESBuild) Kind() ports.TransformKind { return ports.TransformInline }

// Transform implements ports.Transformer.
func (e *ESBuild) Transform(_ context.Context, in *ports.TransformInput) (*ports.TransformOutput, error) {
	collector := newDepCollector(in.Source)
	opts, err := e.options(in, collector)
	if err != nil {
		return nil, err
	}

	compiled, err := build(ESBuildName, in, opts)
	if err != nil {
		return nil, err
	}

	code, deps := collector.restore(compiled)
	return &ports.TransformOutput{
		Code:         code,
		Loader:       "js",
		Dependencies: deps,
		HotAccept:    DetectHotAccept(code),
	}, nil
}

// build compiles a single module with every import left external and returns
// the generated code.
func build(name string, in *ports.TransformInput, opts api.BuildOptions) ([]byte, error) {
	result := api.Build(opts)
	if len(result.Errors) > 0 {
		errs := make([]error, 0, len(result.Errors))
		for _, msg := range result.Errors {
			line, column := 0, 0
			if msg.Location != nil {
				line, column = msg.Location.Line, msg.Location.Column+1
			}
			errs = append(errs, transformError(name, in, line, column, msg.Text))
		}
		return nil, errors.Join(errs...)
	}
	if len(result.OutputFiles) == 0 {
		return nil, transformError(name, in, 0, 0, "esbuild produced no output")
	}
	return result.OutputFiles[0].Contents, nil
}

// esbuildVersion reports the esbuild module version linked into the binary.
var esbuildVersion = sync.OnceValue(func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == esbuildModule {
				if dep.Replace != nil {
					dep = dep.Replace
				}
				return strings.TrimPrefix(dep.Version, "v")
			}
		}
	}
	return "unknown"
})

func (e *ESBuild) options(in *ports.TransformInput, collector *depCollector) (api.BuildOptions, error) {
	loaderName, err := stringOption(ESBuildName, in.Options, "loader", in.Loader)
	if err != nil {
		return api.BuildOptions{}, err
	}
	loader, ok := loaders[strings.ToLower(loaderName)]
	if !ok {
		return api.BuildOptions{}, optionError(ESBuildName, "loader", loaderName)
	}

	targetName, err := stringOption(ESBuildName, in.Options, "target", "esnext")
	if err != nil {
		return api.BuildOptions{}, err
	}
	target, ok := targets[strings.ToLower(targetName)]
	if !ok {
		return api.BuildOptions{}, optionError(ESBuildName, "target", targetName)
	}

	opts := api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   string(in.Source),
			Sourcefile: in.ID.Key(in.Root),
			Loader:     loader,
		},
		Bundle:            true,
		Write:             false,
		Format:            api.FormatCommonJS,
		Platform:          api.PlatformBrowser,
		Target:            target,
		TreeShaking:       api.TreeShakingFalse,
		MinifyWhitespace:  in.Minify,
		MinifyIdentifiers: in.Minify,
		MinifySyntax:      in.Minify,
		Define: map[string]string{
			"import.meta.hot": "module.hot",
			"import.meta.url": collector.baseURL(),
		},
		Supported: map[string]bool{"dynamic-import": true},
		LogLevel:  api.LogLevelSilent,
		Plugins:   []api.Plugin{collector.plugin()},
	}
	if in.SourceMap != "" && in.SourceMap != domain.SourceMapNone {
		opts.Sourcemap = api.SourceMapInline
	}

	jsx, err := stringOption(ESBuildName, in.Options, "jsx", "automatic")
	if err != nil {
		return api.BuildOptions{}, err
	}
	switch jsx {
	case "automatic":
		opts.JSX = api.JSXAutomatic
	case "classic":
		opts.JSX = api.JSXTransform
		if opts.JSXFactory, err = stringOption(ESBuildName, in.Options, "jsxFactory", "React.createElement"); err != nil {
			return api.BuildOptions{}, err
		}
	case "preserve":
		opts.JSX = api.JSXPreserve
	default:
		return api.BuildOptions{}, optionError(ESBuildName, "jsx", jsx)
	}
	return opts, nil
}
