package domain

import (
	"encoding/json"
	"maps"
	"slices"
)

// Manifest maps logical names to emitted paths relative to the output root.
type Manifest struct {
	Files       map[string]string   `json:"files"`
	Entrypoints map[string][]string `json:"entrypoints"`
}

// NewManifest creates an empty Manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Files:       make(map[string]string),
		Entrypoints: make(map[string][]string),
	}
}

// ParseManifest decodes a manifest file.
func ParseManifest(data []byte) (*Manifest, error) {
	m := NewManifest()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	if m.Files == nil {
		m.Files = make(map[string]string)
	}
	if m.Entrypoints == nil {
		m.Entrypoints = make(map[string][]string)
	}
	return m, nil
}

// Set records the emitted path of a logical name.
func (m *Manifest) Set(name, path string) {
	m.Files[name] = path
}

// Lookup returns the emitted path of a logical name.
func (m *Manifest) Lookup(name string) (string, bool) {
	p, ok := m.Files[name]
	return p, ok
}

// Paths returns every emitted path in lexical order.
func (m *Manifest) Paths() []string {
	set := make(map[string]struct{}, len(m.Files))
	for _, p := range m.Files {
		set[p] = struct{}{}
	}
	paths := slices.Collect(maps.Keys(set))
	slices.Sort(paths)
	return paths
}

// Clone returns a deep copy of the manifest.
func (m *Manifest) Clone() *Manifest {
	c := &Manifest{
		Files:       maps.Clone(m.Files),
		Entrypoints: make(map[string][]string, len(m.Entrypoints)),
	}
	for k, v := range m.Entrypoints {
		c.Entrypoints[k] = slices.Clone(v)
	}
	return c
}

// Marshal encodes the manifest as indented JSON with sorted keys.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
