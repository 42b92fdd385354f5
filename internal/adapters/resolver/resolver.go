// Package resolver maps import specifiers to module identities on disk.
package resolver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Resolver = (*Resolver)(nil)

const (
	nodeModules = "node_modules"
	packageJSON = "package.json"
	indexName   = "index"
)

// Resolver implements the Resolver interface with node-style lookup, ordered
// aliases, platform overrides and an externals boundary.
type Resolver struct {
	extensions []string
	aliases    []domain.Alias
	platforms  []string
	mainFields []string
	externals  map[string]string
}

// New creates a Resolver for the given resolve options and externals.
func New(cfg domain.ResolveConfig, externals map[string]string) *Resolver {
	return &Resolver{
		extensions: cfg.Extensions,
		aliases:    cfg.Aliases,
		platforms:  cfg.Platforms,
		mainFields: cfg.MainFields,
		externals:  externals,
	}
}

// NewFromConfig creates a Resolver from a project configuration.
func NewFromConfig(cfg *domain.Config) ports.Resolver {
	return New(cfg.Resolve, cfg.Externals)
}

// Resolve maps specifier, imported from a module living in fromDir, to a ModuleID.
func (r *Resolver) Resolve(specifier, fromDir string) (domain.ModuleID, error) {
	path, query, _ := strings.Cut(specifier, "?")

	if r.isExternal(path) {
		return domain.ExternalModuleID(path), nil
	}

	lookup := &lookup{resolver: r}

	for _, target := range r.aliasTargets(path) {
		if found, ok, err := lookup.path(target); err != nil || ok {
			return r.result(found, query, err)
		}
	}

	switch {
	case isRelative(path):
		found, ok, err := lookup.path(filepath.Join(fromDir, filepath.FromSlash(path)))
		if err != nil || ok {
			return r.result(found, query, err)
		}
	case filepath.IsAbs(path):
		found, ok, err := lookup.path(filepath.Clean(path))
		if err != nil || ok {
			return r.result(found, query, err)
		}
	default:
		found, ok, err := lookup.bare(path, fromDir)
		if err != nil || ok {
			return r.result(found, query, err)
		}
	}

	return domain.ModuleID{}, r.unresolved(specifier, fromDir, lookup.searched)
}

func (r *Resolver) result(path, query string, err error) (domain.ModuleID, error) {
	if err != nil {
		return domain.ModuleID{}, err
	}
	return domain.NewModuleID(path, query), nil
}

func (r *Resolver) unresolved(specifier, fromDir string, searched []string) error {
	err := zerr.Wrap(domain.ErrUnresolvedSpecifier, "no candidate file exists")
	err = zerr.With(err, "specifier", specifier)
	err = zerr.With(err, "importer", fromDir)
	return zerr.With(err, "searched_paths", searched)
}

// isExternal reports whether a bare specifier crosses a declared external
// boundary, either exactly or as a subpath of an external package.
func (r *Resolver) isExternal(path string) bool {
	if len(r.externals) == 0 || isRelative(path) || filepath.IsAbs(path) {
		return false
	}
	if _, ok := r.externals[path]; ok {
		return true
	}
	for name := range r.externals {
		if strings.HasPrefix(path, name+"/") {
			return true
		}
	}
	return false
}

// aliasTargets rewrites path with every alias whose prefix matches it, in
// declared order.
func (r *Resolver) aliasTargets(path string) []string {
	var targets []string
	for _, alias := range r.aliases {
		if path == alias.From {
			targets = append(targets, alias.To)
			continue
		}
		if rest, ok := strings.CutPrefix(path, alias.From+"/"); ok {
			targets = append(targets, filepath.Join(alias.To, filepath.FromSlash(rest)))
		}
	}
	return targets
}

func isRelative(path string) bool {
	return path == "." || path == ".." || strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../")
}

// lookup records every candidate touched while resolving one specifier.
type lookup struct {
	resolver *Resolver
	searched []string
}

// bare walks up the node_modules directories starting at fromDir.
func (l *lookup) bare(path, fromDir string) (string, bool, error) {
	dir := fromDir
	for {
		if filepath.Base(dir) != nodeModules {
			candidate := filepath.Join(dir, nodeModules, filepath.FromSlash(path))
			if found, ok, err := l.path(candidate); err != nil || ok {
				return found, ok, err
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// path resolves a filesystem candidate as a file first, then as a directory.
func (l *lookup) path(candidate string) (string, bool, error) {
	if found, ok := l.file(candidate); ok {
		return found, true, nil
	}
	return l.directory(candidate)
}

// file tries candidate as written, then with each extension. Platform
// variants of an extension are tried before the extension itself.
func (l *lookup) file(candidate string) (string, bool) {
	if l.isFile(candidate) {
		return candidate, true
	}
	for _, ext := range l.resolver.extensions {
		for _, platform := range l.resolver.platforms {
			if variant := candidate + "." + platform + ext; l.isFile(variant) {
				return variant, true
			}
		}
		if variant := candidate + ext; l.isFile(variant) {
			return variant, true
		}
	}
	return "", false
}

// directory resolves a directory through its package.json main fields, then its index file.
func (l *lookup) directory(dir string) (string, bool, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false, nil
	}

	mains, err := l.mainEntries(dir)
	if err != nil {
		return "", false, err
	}
	for _, main := range mains {
		target := filepath.Join(dir, filepath.FromSlash(main))
		if found, ok := l.file(target); ok {
			return found, true, nil
		}
		if found, ok := l.file(filepath.Join(target, indexName)); ok {
			return found, true, nil
		}
	}

	if found, ok := l.file(filepath.Join(dir, indexName)); ok {
		return found, true, nil
	}
	return "", false, nil
}

// mainEntries returns the string-valued main fields of dir's package.json in
// configured order. Non-string fields, such as a browser replacement map, are skipped.
func (l *lookup) mainEntries(dir string) ([]string, error) {
	path := filepath.Join(dir, packageJSON)
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the resolution walk
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidPackageJSON, err.Error()), "path", path)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidPackageJSON, err.Error()), "path", path)
	}

	var mains []string
	for _, name := range l.resolver.mainFields {
		if value, ok := fields[name].(string); ok && value != "" {
			mains = append(mains, value)
		}
	}
	return mains, nil
}

func (l *lookup) isFile(path string) bool {
	l.searched = append(l.searched, path)
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
