// Package config loads and validates the sling.yaml project configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
	FS     FileSystem
}

// NewLoader creates a new Loader reading from the OS filesystem.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, FS: NewOSFS()}
}

var _ ports.ConfigLoader = (*Loader)(nil)

// Load finds sling.yaml from cwd upwards and returns the validated configuration.
func (l *Loader) Load(cwd string, overrides domain.Overrides) (*domain.Config, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	file, err := l.readFile(configPath)
	if err != nil {
		return nil, err
	}

	return l.build(configPath, file, overrides)
}

// DiscoverRoot returns the directory containing the nearest sling.yaml.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return "", err
	}
	return filepath.Dir(configPath), nil
}

func (l *Loader) findConfiguration(cwd string) (string, error) {
	currentDir := filepath.Clean(cwd)
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if info, err := l.FS.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, ""), "cwd", cwd)
}

func (l *Loader) readFile(configPath string) (*File, error) {
	data, err := l.FS.ReadFile(configPath)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", configPath)
	}

	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, err.Error()), "path", configPath)
	}
	return &file, nil
}

// build converts the file into a domain.Config: overrides first, then mode
// defaults, then validation.
func (l *Loader) build(configPath string, file *File, overrides domain.Overrides) (*domain.Config, error) {
	if file.Version != "" && file.Version != supportedVersion {
		return nil, invalid("version", file.Version, "unsupported version, expected "+strconv.Quote(supportedVersion))
	}

	root := resolvePath(filepath.Dir(configPath), file.Root)

	mode, err := resolveMode(file.Mode, overrides)
	if err != nil {
		return nil, err
	}
	defaults := defaultsFor(mode)

	cfg := &domain.Config{
		Root:      root,
		Path:      configPath,
		Mode:      mode,
		Externals: file.Externals,
		Minify:    defaults.minify,
		SourceMap: defaults.sourceMap,
	}
	if cfg.Externals == nil {
		cfg.Externals = map[string]string{}
	}
	if file.Minify != nil {
		cfg.Minify = *file.Minify
	}
	if file.FailOnDiagnostics != nil {
		cfg.FailOnDiagnostics = *file.FailOnDiagnostics
	}
	if file.SourceMap != "" {
		cfg.SourceMap = domain.SourceMapMode(file.SourceMap)
	}

	steps := []func() error{
		func() error { return l.buildEntries(cfg, file.Entries) },
		func() error { return buildOutput(cfg, file.Output, overrides, defaults) },
		func() error { return buildResolve(cfg, file.Resolve) },
		func() error { return buildRules(cfg, file.Rules) },
		func() error { return buildSplit(cfg, file.Split) },
		func() error { return l.buildDevServer(cfg, file.DevServer, overrides) },
		func() error { return l.buildHTML(cfg, file.HTML) },
		func() error { return buildCheckers(cfg, file.Checkers) },
		func() error { return validateExternals(cfg.Externals) },
		func() error { return validateSourceMap(cfg.SourceMap) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, zerr.With(err, "config", configPath)
		}
	}
	return cfg, nil
}

func resolveMode(fromFile string, overrides domain.Overrides) (domain.Mode, error) {
	mode := domain.ModeProduction
	switch {
	case overrides.Mode != "":
		mode = overrides.Mode
	case fromFile != "":
		mode = domain.Mode(fromFile)
	case overrides.DefaultMode != "":
		mode = overrides.DefaultMode
	}
	if mode != domain.ModeProduction && mode != domain.ModeDevelopment {
		return "", invalid("mode", string(mode), "expected production or development")
	}
	return mode, nil
}

func (l *Loader) buildEntries(cfg *domain.Config, entries Entries) error {
	if len(entries) == 0 {
		return zerr.With(zerr.Wrap(domain.ErrNoEntries, ""), "field", "entries")
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		field := "entries." + e.Name
		if e.Name == "" {
			return invalid("entries", e.Specifier, "entry name must not be empty")
		}
		if e.Specifier == "" {
			return invalid(field, "", "entry specifier must not be empty")
		}
		if _, ok := seen[e.Name]; ok {
			return zerr.With(zerr.Wrap(domain.ErrDuplicateEntry, ""), "field", field)
		}
		seen[e.Name] = struct{}{}
		cfg.Entries = append(cfg.Entries, domain.EntryPoint{Name: e.Name, Specifier: e.Specifier})
	}
	return nil
}

func buildOutput(cfg *domain.Config, dto OutputDTO, overrides domain.Overrides, defaults modeDefaults) error {
	dir := orDefault(dto.Dir, defaultOutputDir)
	if overrides.OutputDir != "" {
		dir = overrides.OutputDir
	}

	cfg.Output = domain.OutputConfig{
		Dir:           resolvePath(cfg.Root, dir),
		PublicPath:    orDefault(dto.PublicPath, defaultPublicPath),
		Filename:      orDefault(dto.Filename, defaults.filename),
		ChunkFilename: orDefault(dto.ChunkFilename, defaults.chunkFilename),
		AssetFilename: orDefault(dto.AssetFilename, defaultAssetFilename),
	}

	rel, err := filepath.Rel(cfg.Root, cfg.Output.Dir)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) || hasParentPrefix(rel) {
		return zerr.With(zerr.Wrap(domain.ErrOutputPathOutsideRoot, ""), "field", "output.dir")
	}

	templates := map[string]string{
		"output.filename":      cfg.Output.Filename,
		"output.chunkFilename": cfg.Output.ChunkFilename,
	}
	for field, tmpl := range templates {
		if !domain.TemplateHasName(tmpl) {
			return invalid(field, tmpl, "template must contain [name]")
		}
	}
	return nil
}

func buildResolve(cfg *domain.Config, dto ResolveDTO) error {
	rc := domain.ResolveConfig{
		Extensions: dto.Extensions,
		Platforms:  dto.Platforms,
		MainFields: dto.MainFields,
	}
	if rc.Extensions == nil {
		rc.Extensions = defaultExtensions
	}
	if rc.MainFields == nil {
		rc.MainFields = defaultMainFields
	}
	for i, ext := range rc.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			return invalid(fmt.Sprintf("resolve.extensions[%d]", i), ext, "extension must start with a dot")
		}
	}

	aliases := defaultAliases
	if dto.Alias != nil {
		aliases = *dto.Alias
	}
	for i, a := range aliases {
		if a.From == "" || a.To == "" {
			return invalid(fmt.Sprintf("resolve.alias[%d]", i), a.From, "alias needs both from and to")
		}
		rc.Aliases = append(rc.Aliases, domain.Alias{From: a.From, To: resolvePath(cfg.Root, a.To)})
	}

	cfg.Resolve = rc
	return nil
}

func buildRules(cfg *domain.Config, dtos []RuleDTO) error {
	if dtos == nil {
		dtos = defaultRules()
	}
	for i, dto := range dtos {
		field := fmt.Sprintf("rules[%d]", i)
		test, err := compile(field+".test", dto.Test)
		if err != nil {
			return err
		}
		if test == nil {
			return invalid(field+".test", "", "rule needs a test pattern")
		}
		exclude, err := compile(field+".exclude", dto.Exclude)
		if err != nil {
			return err
		}
		if len(dto.Use) == 0 {
			return invalid(field+".use", "", "rule needs at least one transform")
		}

		rule := domain.Rule{Test: test, Exclude: exclude}
		for j, use := range dto.Use {
			if use.Name == "" {
				return invalid(fmt.Sprintf("%s.use[%d].name", field, j), "", "transform name must not be empty")
			}
			rule.Use = append(rule.Use, domain.TransformRef{Name: use.Name, Options: use.Options})
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
	return nil
}

func buildSplit(cfg *domain.Config, dto SplitDTO) error {
	if dto.DuplicateBelow < 0 {
		return invalid("split.duplicateBelow", strconv.FormatInt(dto.DuplicateBelow, 10), "must not be negative")
	}
	cfg.Split = domain.SplitConfig{
		CommonName:     orDefault(dto.CommonName, defaultCommonName),
		DuplicateBelow: dto.DuplicateBelow,
	}

	vendors := defaultVendors()
	if dto.Vendors != nil {
		vendors = *dto.Vendors
	}
	seen := make(map[string]struct{}, len(vendors))
	for i, v := range vendors {
		field := fmt.Sprintf("split.vendors[%d]", i)
		if v.Name == "" {
			return invalid(field+".name", "", "vendor group needs a name")
		}
		if _, ok := seen[v.Name]; ok {
			return zerr.With(zerr.Wrap(domain.ErrDuplicateChunk, ""), "field", field+".name")
		}
		seen[v.Name] = struct{}{}
		test, err := compile(field+".test", v.Test)
		if err != nil {
			return err
		}
		if test == nil {
			return invalid(field+".test", "", "vendor group needs a test pattern")
		}
		minChunks := v.MinChunks
		if minChunks <= 0 {
			minChunks = defaultMinChunks
		}
		cfg.Split.Vendors = append(cfg.Split.Vendors, domain.VendorGroup{Name: v.Name, Test: test, MinChunks: minChunks})
	}
	return nil
}

func (l *Loader) buildDevServer(cfg *domain.Config, dto DevServerDTO, overrides domain.Overrides) error {
	port := dto.Port
	if overrides.Port != 0 {
		port = overrides.Port
	}
	if port == 0 {
		port = defaultPort
	}
	if port < 0 || port > 65535 {
		return invalid("devServer.port", strconv.Itoa(port), "port must be between 1 and 65535")
	}

	fallback := true
	if dto.HistoryAPIFallback != nil {
		fallback = *dto.HistoryAPIFallback
	}

	static := resolvePath(cfg.Root, orDefault(dto.Static, defaultStatic))
	if dto.Static != "" {
		if ok, err := l.FS.IsDir(static); err != nil || !ok {
			l.Logger.Warn(fmt.Sprintf("devServer.static %s is not a directory, nothing will be served from it", dto.Static))
		}
	}

	cfg.DevServer = domain.DevServerConfig{Port: port, Static: static, HistoryAPIFallback: fallback}
	return nil
}

func (l *Loader) buildHTML(cfg *domain.Config, dto HTMLDTO) error {
	if dto.Template != "" {
		path := resolvePath(cfg.Root, dto.Template)
		if _, err := l.FS.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return invalid("html.template", dto.Template, "template file does not exist")
			}
			return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "field", "html.template")
		}
		cfg.HTML.Template = path
		return nil
	}

	// The conventional template is picked up when present.
	path := resolvePath(cfg.Root, defaultTemplate)
	if info, err := l.FS.Stat(path); err == nil && !info.IsDir() {
		cfg.HTML.Template = path
	}
	return nil
}

func buildCheckers(cfg *domain.Config, dtos []CheckerDTO) error {
	seen := make(map[string]struct{}, len(dtos))
	for i, dto := range dtos {
		field := fmt.Sprintf("checkers[%d]", i)
		if dto.Name == "" {
			return invalid(field+".name", "", "checker needs a name")
		}
		if _, ok := seen[dto.Name]; ok {
			return invalid(field+".name", dto.Name, "duplicate checker name")
		}
		seen[dto.Name] = struct{}{}
		if len(dto.Command) == 0 {
			return invalid(field+".command", "", "checker needs a command")
		}
		format := orDefault(dto.Format, domain.CheckerFormatUnix)
		if format != domain.CheckerFormatUnix && format != domain.CheckerFormatTSC {
			return invalid(field+".format", format, "expected tsc or unix")
		}
		cfg.Checkers = append(cfg.Checkers, domain.CheckerConfig{Name: dto.Name, Command: dto.Command, Format: format})
	}
	return nil
}

func validateExternals(externals map[string]string) error {
	for spec, global := range externals {
		if spec == "" {
			return invalid("externals", global, "external specifier must not be empty")
		}
		if global == "" {
			return invalid("externals."+spec, "", "external needs a global expression")
		}
	}
	return nil
}

func validateSourceMap(mode domain.SourceMapMode) error {
	switch mode {
	case domain.SourceMapNone, domain.SourceMapInline, domain.SourceMapEval:
		return nil
	default:
		return invalid("sourceMap", string(mode), "expected none, inline or eval")
	}
}

func compile(field, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, invalid(field, pattern, err.Error())
	}
	return re, nil
}

func invalid(field, value, reason string) error {
	err := zerr.With(zerr.Wrap(domain.ErrInvalidConfig, reason), "field", field)
	if value != "" {
		err = zerr.With(err, "value", value)
	}
	return err
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}

// resolvePath resolves p against base unless it is absolute.
func resolvePath(base, p string) string {
	if p == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}
