package config

import (
	"gopkg.in/yaml.v3"
)

// File represents the structure of the sling.yaml configuration file.
type File struct {
	Version           string            `yaml:"version"`
	Root              string            `yaml:"root"`
	Mode              string            `yaml:"mode"`
	Entries           Entries           `yaml:"entries"`
	Output            OutputDTO         `yaml:"output"`
	Resolve           ResolveDTO        `yaml:"resolve"`
	Externals         map[string]string `yaml:"externals"`
	Rules             []RuleDTO         `yaml:"rules"`
	Split             SplitDTO          `yaml:"split"`
	Minify            *bool             `yaml:"minify"`
	SourceMap         string            `yaml:"sourceMap"`
	DevServer         DevServerDTO      `yaml:"devServer"`
	HTML              HTMLDTO           `yaml:"html"`
	Checkers          []CheckerDTO      `yaml:"checkers"`
	FailOnDiagnostics *bool             `yaml:"failOnDiagnostics"`
}

// EntryDTO is one named entry specifier.
type EntryDTO struct {
	Name      string
	Specifier string
}

// Entries keeps the declaration order of the entries mapping. A plain
// string declares a single entry named "main".
type Entries []EntryDTO

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Entries) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*e = Entries{{Name: DefaultEntryName, Specifier: value.Value}}
		return nil
	}

	var m map[string]string
	if err := value.Decode(&m); err != nil {
		return err
	}
	out := make(Entries, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value
		out = append(out, EntryDTO{Name: name, Specifier: m[name]})
	}
	*e = out
	return nil
}

// OutputDTO represents the output section.
type OutputDTO struct {
	Dir           string `yaml:"dir"`
	PublicPath    string `yaml:"publicPath"`
	Filename      string `yaml:"filename"`
	ChunkFilename string `yaml:"chunkFilename"`
	AssetFilename string `yaml:"assetFilename"`
}

// AliasDTO rewrites a specifier prefix.
type AliasDTO struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ResolveDTO represents the resolve section. Nil slices select the defaults;
// an explicit empty list disables them.
type ResolveDTO struct {
	Extensions []string    `yaml:"extensions"`
	Alias      *[]AliasDTO `yaml:"alias"`
	Platforms  []string    `yaml:"platforms"`
	MainFields []string    `yaml:"mainFields"`
}

// TransformDTO names a transform. A plain string is the name without options.
type TransformDTO struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TransformDTO) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		t.Name = value.Value
		return nil
	}
	type plain TransformDTO
	return value.Decode((*plain)(t))
}

// RuleDTO binds a path pattern to a transform chain.
type RuleDTO struct {
	Test    string         `yaml:"test"`
	Exclude string         `yaml:"exclude"`
	Use     []TransformDTO `yaml:"use"`
}

// VendorDTO declares a vendor group.
type VendorDTO struct {
	Name      string `yaml:"name"`
	Test      string `yaml:"test"`
	MinChunks int    `yaml:"minChunks"`
}

// SplitDTO represents the split section.
type SplitDTO struct {
	CommonName     string       `yaml:"commonName"`
	DuplicateBelow int64        `yaml:"duplicateBelow"`
	Vendors        *[]VendorDTO `yaml:"vendors"`
}

// DevServerDTO represents the devServer section.
type DevServerDTO struct {
	Port               int    `yaml:"port"`
	Static             string `yaml:"static"`
	HistoryAPIFallback *bool  `yaml:"historyApiFallback"`
}

// HTMLDTO represents the html section.
type HTMLDTO struct {
	Template string `yaml:"template"`
}

// CheckerDTO declares an advisory checker.
type CheckerDTO struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
	Format  string   `yaml:"format"`
}
