package transform_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/adapters/fs"
	"go.trai.ch/sling/internal/adapters/transform"
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
)

func TestJSON_Transform(t *testing.T) {
	out, err := transform.NewJSON().Transform(context.Background(), input("src/data.json", "{\n  \"a\": [1, 2]\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, "module.exports = {\"a\":[1,2]};\n", string(out.Code))
	assert.Empty(t, out.Dependencies)
}

func TestJSON_Transform_Invalid(t *testing.T) {
	_, err := transform.NewJSON().Transform(context.Background(), input("src/data.json", "{\n  \"a\": ,\n}"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransformFailed))

	line, ok := domain.Meta(err, "line")
	require.True(t, ok)
	assert.Equal(t, 2, line)
}

func TestRaw_Transform(t *testing.T) {
	out, err := transform.NewRaw().Transform(context.Background(), input("src/logo.svg", "<svg>\"</svg>"))
	require.NoError(t, err)
	assert.Equal(t, "module.exports = \"\\u003csvg\\u003e\\\"\\u003c/svg\\u003e\";\n", string(out.Code))
}

func TestCSS_Transform(t *testing.T) {
	src := `@import "./reset.css";
@import url("https://fonts.example.com/inter.css");
body { background: url(./bg.png); }
.icon { background: url("data:image/png;base64,AAAA"); }
`
	out, err := transform.NewCSS().Transform(context.Background(), input("src/site.css", src))
	require.NoError(t, err)

	code := string(out.Code)
	assert.True(t, strings.HasPrefix(code, "require(\"./reset.css\");\n"))
	assert.Contains(t, code, `require.asset("./bg.png")`)
	assert.Contains(t, code, "https://fonts.example.com/inter.css")
	assert.Contains(t, code, "require.style(module.id, css);")
	assert.True(t, out.HotAccept)

	require.Len(t, out.Dependencies, 2)
	assert.Equal(t, domain.Dependency{Specifier: "./reset.css", Kind: domain.EdgeStatic, Line: 1, Column: 1}, out.Dependencies[0])
	assert.Equal(t, []string{"./bg.png"}, specifiers(out.Dependencies, domain.EdgeAsset))
	assert.Equal(t, 2, out.Dependencies[1].Line)
}

func TestCSS_Transform_Minify(t *testing.T) {
	in := input("src/site.css", "body {\n  color: red;\n}\n")
	in.Minify = true

	out, err := transform.NewCSS().Transform(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, string(out.Code), `var css = "body{color:red}\n";`)
}

func TestAsset_Transform(t *testing.T) {
	hasher := fs.NewHasher()
	content := strings.Repeat("x", transform.DefaultMaxInlineSize)
	hash := hasher.HashBytes([]byte(content))

	out, err := transform.NewAsset(hasher).Transform(context.Background(), input("src/img/photo.png", content))
	require.NoError(t, err)

	require.NotNil(t, out.Asset)
	assert.Equal(t, "src/img/photo.png", out.Asset.Name)
	assert.Equal(t, "assets/photo."+hash[:8]+".png", out.Asset.Path)
	assert.Equal(t, []byte(content), out.Asset.Content)
	assert.False(t, out.Asset.Inline)
	assert.Equal(t, "module.exports = \"/assets/photo."+hash[:8]+".png\";\n", string(out.Code))
}

func TestAsset_Transform_Inline(t *testing.T) {
	out, err := transform.NewAsset(fs.NewHasher()).Transform(context.Background(), input("src/dot.png", "abc"))
	require.NoError(t, err)

	require.NotNil(t, out.Asset)
	assert.True(t, out.Asset.Inline)
	assert.Empty(t, out.Asset.Path)
	assert.Equal(t, "module.exports = \"data:image/png;base64,YWJj\";\n", string(out.Code))
}

func TestAsset_Transform_Options(t *testing.T) {
	hasher := fs.NewHasher()
	in := input("src/fonts/inter.woff2", "abc")
	in.PublicPath = "/static"
	in.Options = map[string]any{"resource": true, "filename": "fonts/[name].[hash:8][ext]"}

	out, err := transform.NewAsset(hasher).Transform(context.Background(), in)
	require.NoError(t, err)

	want := "fonts/inter." + hasher.HashBytes([]byte("abc"))[:8] + ".woff2"
	assert.Equal(t, want, out.Asset.Path)
	assert.Contains(t, string(out.Code), `"/static/`+want+`"`)

	in.Options = map[string]any{"maxInlineSize": "big"}
	_, err = transform.NewAsset(hasher).Transform(context.Background(), in)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransformOption))
}

func TestRegistry(t *testing.T) {
	registry := transform.NewDefaultRegistry(fs.NewHasher())
	assert.Equal(t, []string{"asset", "css", "esbuild", "json", "raw"}, registry.Names())

	asset, ok := registry.Lookup("asset")
	require.True(t, ok)
	assert.Equal(t, ports.TransformAsset, asset.Kind())

	_, ok = registry.Lookup("babel")
	assert.False(t, ok)
}
