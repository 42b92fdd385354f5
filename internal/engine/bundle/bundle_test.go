package bundle_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/adapters/cas"
	"go.trai.ch/sling/internal/adapters/fs"
	"go.trai.ch/sling/internal/adapters/resolver"
	"go.trai.ch/sling/internal/adapters/telemetry"
	"go.trai.ch/sling/internal/adapters/transform"
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports/mocks"
	"go.trai.ch/sling/internal/engine/bundle"
	"go.trai.ch/sling/internal/engine/emitter"
	"go.trai.ch/sling/internal/engine/graphbuilder"
	"go.trai.ch/sling/internal/engine/pipeline"
	"go.trai.ch/sling/internal/engine/splitter"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	root    string
	cfg     *domain.Config
	env     graphbuilder.Env
	bundler *bundle.Bundler
}

func newFixture(t *testing.T, files map[string]string, entries ...domain.EntryPoint) *fixture {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		write(t, root, name, content)
	}
	if len(entries) == 0 {
		entries = []domain.EntryPoint{{Name: "main", Specifier: "./src/index.js"}}
	}

	cfg := &domain.Config{
		Root:    root,
		Mode:    domain.ModeDevelopment,
		Entries: entries,
		Output: domain.OutputConfig{
			Dir:           filepath.Join(root, "dist"),
			PublicPath:    "/",
			Filename:      "js/[name].js",
			ChunkFilename: "js/[name].chunk.js",
		},
		Resolve: domain.ResolveConfig{Extensions: []string{".js"}},
		Rules: []domain.Rule{
			{Test: regexp.MustCompile(`\.js$`), Use: []domain.TransformRef{{Name: transform.ESBuildName}}},
		},
		Split:     domain.SplitConfig{CommonName: "common"},
		SourceMap: domain.SourceMapNone,
	}

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	hasher := fs.NewHasher()
	tracer := telemetry.NewNoOpTracer()
	p := pipeline.New(transform.NewDefaultRegistry(hasher), hasher)

	return &fixture{
		root: root,
		cfg:  cfg,
		env: graphbuilder.Env{
			Config:   cfg,
			Resolver: resolver.NewFromConfig(cfg),
			Cache:    cas.Discard{},
		},
		bundler: bundle.New(
			graphbuilder.New(p, hasher, tracer, logger),
			splitter.New(hasher, tracer),
			emitter.New(hasher, tracer),
			tracer,
		),
	}
}

func write(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.root, filepath.FromSlash(name))
}

func (f *fixture) keys(ids []domain.ModuleID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Key(f.root))
	}
	return out
}

var app = map[string]string{
	"src/index.js":  "import a from './a.js';\nconsole.log(a);\n",
	"src/a.js":      "import s from './shared.js';\nexport default s + 1;\n",
	"src/shared.js": "export default 40;\n",
}

func TestRun_FullThenIncremental(t *testing.T) {
	f := newFixture(t, app)
	ctx := context.Background()

	first, err := f.bundler.Run(ctx, bundle.Request{Env: f.env})
	require.NoError(t, err)
	require.NoError(t, first.Err)
	assert.Equal(t, 1, first.Number)
	assert.True(t, first.Emitted)
	assert.Equal(t, "js/main.js", first.Manifest.Files["main"])
	assert.FileExists(t, filepath.Join(f.cfg.Output.Dir, "js", "main.js"))

	write(t, f.root, "src/shared.js", "export default 41;\n")
	second, err := f.bundler.Run(ctx, bundle.Request{
		Env:      f.env,
		Previous: first,
		Changed:  []string{f.path("src/shared.js")},
	})
	require.NoError(t, err)
	require.NoError(t, second.Err)
	assert.Equal(t, 2, second.Number)
	assert.True(t, second.Emitted)
	assert.Equal(t, []string{"src/a.js", "src/index.js", "src/shared.js"}, f.keys(second.Recomputed))

	code, err := os.ReadFile(filepath.Join(f.cfg.Output.Dir, "js", "main.js"))
	require.NoError(t, err)
	assert.Contains(t, string(code), "41")
}

func TestRun_FailureKeepsPreviousOutput(t *testing.T) {
	f := newFixture(t, app)
	ctx := context.Background()

	first, err := f.bundler.Run(ctx, bundle.Request{Env: f.env})
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(f.cfg.Output.Dir, "js", "main.js"))
	require.NoError(t, err)

	write(t, f.root, "src/a.js", "export default {\n")
	second, err := f.bundler.Run(ctx, bundle.Request{
		Env:      f.env,
		Previous: first,
		Changed:  []string{f.path("src/a.js")},
	})
	require.NoError(t, err)
	require.ErrorIs(t, second.Err, domain.ErrTransformFailed)
	assert.False(t, second.Emitted)
	assert.Same(t, first.Manifest, second.Manifest)

	after, err := os.ReadFile(filepath.Join(f.cfg.Output.Dir, "js", "main.js"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Fixing the file recovers on the next generation.
	write(t, f.root, "src/a.js", "export default 2;\n")
	third, err := f.bundler.Run(ctx, bundle.Request{
		Env:      f.env,
		Previous: second,
		Changed:  []string{f.path("src/a.js")},
	})
	require.NoError(t, err)
	require.NoError(t, third.Err)
	assert.True(t, third.Emitted)
	assert.Equal(t, 3, third.Number)
}

func TestRun_EmitOnFailureIsPartial(t *testing.T) {
	f := newFixture(t, map[string]string{
		"src/broken.js": "import x from './x.js';\nconsole.log(x);\n",
		"src/x.js":      "export default {\n",
		"src/fine.js":   "console.log('fine');\n",
	},
		domain.EntryPoint{Name: "broken", Specifier: "./src/broken.js"},
		domain.EntryPoint{Name: "fine", Specifier: "./src/fine.js"},
	)

	gen, err := f.bundler.Run(context.Background(), bundle.Request{Env: f.env, EmitOnFailure: true})
	require.NoError(t, err)
	require.ErrorIs(t, gen.Err, domain.ErrTransformFailed)
	assert.True(t, gen.Emitted)
	assert.Equal(t, []string{"broken"}, gen.Skipped)
	assert.Contains(t, gen.Manifest.Entrypoints, "fine")
	assert.NotContains(t, gen.Manifest.Entrypoints, "broken")
}

func TestRun_NoEntriesIsFatal(t *testing.T) {
	f := newFixture(t, app)
	f.cfg.Entries = nil

	_, err := f.bundler.Run(context.Background(), bundle.Request{Env: f.env})
	require.ErrorIs(t, err, domain.ErrNoEntries)
}
