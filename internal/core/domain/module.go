package domain

import "go.trai.ch/zerr"

// EdgeKind classifies an import between two modules.
type EdgeKind uint8

const (
	// EdgeStatic is an import resolved and included unconditionally at build time.
	EdgeStatic EdgeKind = iota
	// EdgeDynamic is an import resolved lazily at run time. It is a split point.
	EdgeDynamic
	// EdgeAsset references a module whose bytes are emitted as a separate file.
	EdgeAsset
)

// String returns the name of the edge kind.
func (k EdgeKind) String() string {
	switch k {
	case EdgeStatic:
		return "static"
	case EdgeDynamic:
		return "dynamic"
	case EdgeAsset:
		return "asset"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EdgeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "static":
		*k = EdgeStatic
	case "dynamic":
		*k = EdgeDynamic
	case "asset":
		*k = EdgeAsset
	default:
		return zerr.With(zerr.Wrap(ErrUnknownEdgeKind, ""), "kind", string(text))
	}
	return nil
}

// Dependency is a specifier discovered in a module's transformed output.
type Dependency struct {
	Specifier string   `json:"specifier"`
	Kind      EdgeKind `json:"kind"`
	Line      int      `json:"line,omitzero"`
	Column    int      `json:"column,omitzero"`
}

// Edge connects two modules in the graph.
type Edge struct {
	From      ModuleID
	To        ModuleID
	Kind      EdgeKind
	Specifier string
}

// AssetRef describes a file produced by an asset transform.
type AssetRef struct {
	// Name is the logical manifest name of the asset, the source key.
	Name string `json:"name"`
	// Path is the emitted path relative to the output root.
	Path string `json:"path"`
	// Content holds the bytes to write. It is empty for inlined assets.
	Content []byte `json:"content,omitempty"`
	// Inline is set when the asset was embedded as a data URL.
	Inline bool `json:"inline,omitzero"`
}

// ModuleRecord is the Graph Builder's view of one module.
type ModuleRecord struct {
	ID ModuleID
	// ContentHash is the hash of the raw source bytes.
	ContentHash string
	// Output is the compiled module body.
	Output []byte
	// Dependencies are listed in discovery order.
	Dependencies []Dependency
	// Transforms lists the transforms applied, in order.
	Transforms []string
	// Asset is set for modules handled by an asset transform.
	Asset *AssetRef
	// HotAccept marks modules that can replace themselves in place.
	HotAccept bool
	// Resolved maps each dependency specifier to its target.
	Resolved map[string]ModuleID
	// Digest covers the output and the resolved dependency keys. Chunk
	// identities are derived from it.
	Digest string
	// Err is the resolution or transform failure attached to this module.
	Err error
}

// External reports whether the record is an external placeholder.
func (r *ModuleRecord) External() bool {
	return r.ID.IsExternal()
}

// Size returns the length of the compiled output.
func (r *ModuleRecord) Size() int {
	return len(r.Output)
}
