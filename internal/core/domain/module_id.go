package domain

import (
	"path/filepath"
	"strings"
	"unique"
)

// ExternalPrefix marks the pseudo path of modules provided outside the bundle.
const ExternalPrefix = "external:"

// ModuleID is the canonical identity of a resolved source unit: an absolute
// path plus optional query parameters. It wraps a unique.Handle so that
// comparisons and map lookups are pointer-cheap.
type ModuleID struct {
	h unique.Handle[string]
}

// NewModuleID creates a ModuleID from an absolute path and a query string.
// The query is given without the leading '?'.
func NewModuleID(path, query string) ModuleID {
	s := filepath.Clean(path)
	if query != "" {
		s += "?" + query
	}
	return ModuleID{h: unique.Make(s)}
}

// ExternalModuleID returns the placeholder identity for an external specifier.
func ExternalModuleID(specifier string) ModuleID {
	return ModuleID{h: unique.Make(ExternalPrefix + specifier)}
}

// ParseModuleID restores a ModuleID from its String form.
func ParseModuleID(s string) ModuleID {
	return ModuleID{h: unique.Make(s)}
}

// String returns the full identity.
func (id ModuleID) String() string {
	var zero unique.Handle[string]
	if id.h == zero {
		return ""
	}
	return id.h.Value()
}

// IsZero reports whether the ModuleID is unset.
func (id ModuleID) IsZero() bool {
	var zero unique.Handle[string]
	return id.h == zero
}

// IsExternal reports whether the module is an external placeholder.
func (id ModuleID) IsExternal() bool {
	return strings.HasPrefix(id.String(), ExternalPrefix)
}

// Path returns the filesystem path without the query.
func (id ModuleID) Path() string {
	p, _, _ := strings.Cut(id.String(), "?")
	return p
}

// Query returns the query parameters without the leading '?'.
func (id ModuleID) Query() string {
	_, q, _ := strings.Cut(id.String(), "?")
	return q
}

// Key returns the deterministic runtime id of the module: the slash separated
// path relative to root, followed by the query. External ids are returned as is.
func (id ModuleID) Key(root string) string {
	if id.IsExternal() {
		return id.String()
	}
	rel, err := filepath.Rel(root, id.Path())
	if err != nil {
		rel = id.Path()
	}
	key := filepath.ToSlash(rel)
	if q := id.Query(); q != "" {
		key += "?" + q
	}
	return key
}

// Compare orders ModuleIDs lexically by their string form.
func (id ModuleID) Compare(other ModuleID) int {
	return strings.Compare(id.String(), other.String())
}

// MarshalText implements encoding.TextMarshaler.
func (id ModuleID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ModuleID) UnmarshalText(text []byte) error {
	id.h = unique.Make(string(text))
	return nil
}
