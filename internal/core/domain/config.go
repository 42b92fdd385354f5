package domain

import (
	"path/filepath"
	"regexp"
)

// Mode selects the defaults of a build.
type Mode string

const (
	// ModeProduction emits content hashed, minified output.
	ModeProduction Mode = "production"
	// ModeDevelopment emits stable names and inline source maps.
	ModeDevelopment Mode = "development"
)

// SourceMapMode selects how source maps are produced.
type SourceMapMode string

const (
	// SourceMapNone disables source maps.
	SourceMapNone SourceMapMode = "none"
	// SourceMapInline embeds a map in each compiled module.
	SourceMapInline SourceMapMode = "inline"
	// SourceMapEval is the development flavor of inline maps.
	SourceMapEval SourceMapMode = "eval"
)

// EntryPoint is a configured entry specifier.
type EntryPoint struct {
	Name      string
	Specifier string
}

// OutputConfig controls where and under which names files are emitted.
type OutputConfig struct {
	// Dir is the absolute output root.
	Dir           string
	PublicPath    string
	Filename      string
	ChunkFilename string
	AssetFilename string
}

// Alias rewrites a specifier prefix to a path.
type Alias struct {
	From string
	// To is an absolute path.
	To string
}

// ResolveConfig parameterizes the module resolver.
type ResolveConfig struct {
	Extensions []string
	Aliases    []Alias
	Platforms  []string
	MainFields []string
}

// TransformRef names a transform and its options.
type TransformRef struct {
	Name    string
	Options map[string]any
}

// Rule binds a path pattern to a transform chain.
type Rule struct {
	Test    *regexp.Regexp
	Exclude *regexp.Regexp
	Use     []TransformRef
}

// Matches reports whether the rule applies to the given path.
func (r Rule) Matches(path string) bool {
	p := filepath.ToSlash(path)
	if r.Test == nil || !r.Test.MatchString(p) {
		return false
	}
	return r.Exclude == nil || !r.Exclude.MatchString(p)
}

// VendorGroup isolates matching modules into a named chunk.
type VendorGroup struct {
	Name      string
	Test      *regexp.Regexp
	MinChunks int
}

// Matches reports whether a module path belongs to the group.
func (v VendorGroup) Matches(path string) bool {
	return v.Test != nil && v.Test.MatchString(filepath.ToSlash(path))
}

// SplitConfig holds the chunk splitting predicates.
type SplitConfig struct {
	CommonName string
	// DuplicateBelow is the extra output, in bytes, below which a shared
	// module is copied into each owner instead of being hoisted.
	DuplicateBelow int64
	Vendors        []VendorGroup
}

// DevServerConfig configures the watch server.
type DevServerConfig struct {
	Port int
	// Static is the absolute path of the static root.
	Static             string
	HistoryAPIFallback bool
}

// HTMLConfig configures HTML injection.
type HTMLConfig struct {
	// Template is the absolute path of the page template, empty to disable.
	Template string
}

// CheckerConfig declares an external advisory checker.
type CheckerConfig struct {
	Name    string
	Command []string
	Format  string
}

// Config is the validated project configuration.
type Config struct {
	// Root is the absolute project root.
	Root string
	// Path is the absolute path of the file the config was read from.
	Path              string
	Mode              Mode
	Entries           []EntryPoint
	Output            OutputConfig
	Resolve           ResolveConfig
	Externals         map[string]string
	Rules             []Rule
	Split             SplitConfig
	Minify            bool
	SourceMap         SourceMapMode
	DevServer         DevServerConfig
	HTML              HTMLConfig
	Checkers          []CheckerConfig
	FailOnDiagnostics bool
}

// MatchRule returns the first rule matching path.
func (c *Config) MatchRule(path string) (Rule, bool) {
	for _, r := range c.Rules {
		if r.Matches(path) {
			return r, true
		}
	}
	return Rule{}, false
}

// Overrides are settings supplied outside the config file. Zero values leave
// the file's setting in place.
type Overrides struct {
	Mode Mode
	// DefaultMode applies when neither the file nor Mode selects one.
	DefaultMode Mode
	Port        int
	// OutputDir is relative to the project root unless absolute.
	OutputDir string
}
