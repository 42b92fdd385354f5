package emitter

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"

	"go.trai.ch/sling/internal/core/domain"
)

//go:embed runtime.js
var runtimeSource string

const configMarker = "/*sling:config*/null"

// runtimeConfig is the data the bootstrap needs to locate chunks.
type runtimeConfig struct {
	PublicPath string              `json:"publicPath"`
	Chunks     map[string]string   `json:"chunks"`
	Imports    map[string][]string `json:"imports"`
	HMR        string              `json:"hmr,omitempty"`
	Generation int                 `json:"generation,omitempty"`
}

// renderRuntime returns the bootstrap with its configuration inlined.
func renderRuntime(cfg runtimeConfig) ([]byte, error) {
	data, err := jsonText(cfg)
	if err != nil {
		return nil, err
	}
	return []byte(strings.Replace(runtimeSource, configMarker, data, 1)), nil
}

// renderChunk writes the registration call of c: every member as
// key → [factory, dependency map], followed by the modules to run once the
// chunk is registered.
func renderChunk(buf *bytes.Buffer, g *domain.Graph, c *domain.Chunk) error {
	root := g.Root()

	name, err := jsonText(c.Name)
	if err != nil {
		return err
	}
	buf.WriteString("(self.slingChunks = self.slingChunks || []).push([")
	buf.WriteString(name)
	buf.WriteString(", {\n")

	first := true
	for _, id := range c.Modules {
		rec, ok := g.Module(id)
		if !ok {
			continue
		}
		if !first {
			buf.WriteString(",\n")
		}
		first = false

		key, err := jsonText(id.Key(root))
		if err != nil {
			return err
		}
		deps := make(map[string]string, len(rec.Resolved))
		for spec, target := range rec.Resolved {
			deps[spec] = target.Key(root)
		}
		depMap, err := jsonText(deps)
		if err != nil {
			return err
		}

		buf.WriteString(key)
		buf.WriteString(": [function (module, exports, require) {\n")
		buf.Write(rec.Output)
		if len(rec.Output) > 0 && rec.Output[len(rec.Output)-1] != '\n' {
			buf.WriteByte('\n')
		}
		buf.WriteString("}, ")
		buf.WriteString(depMap)
		buf.WriteString("]")
	}

	run := []string{}
	if c.Kind == domain.ChunkEntry && !c.Root.IsZero() {
		run = append(run, c.Root.Key(root))
	}
	runList, err := jsonText(run)
	if err != nil {
		return err
	}
	buf.WriteString("\n}, ")
	buf.WriteString(runList)
	buf.WriteString("]);\n")
	return nil
}

// jsonText encodes v without HTML escaping, so that module code and keys
// read the same in the bundle as in the source tree.
func jsonText(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
