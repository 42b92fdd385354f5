package transform

import (
	"bytes"
	"strconv"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/sling/internal/core/domain"
)

const (
	depMarker  = "__sling_dep_"
	importCall = "import("
	newURLCall = "new URL("
)

var hotAcceptSig = []byte("module.hot.accept")

// DetectHotAccept reports whether compiled code accepts hot updates of itself.
func DetectHotAccept(code []byte) bool {
	return bytes.Contains(code, hotAcceptSig)
}

type depRecord struct {
	spec string
	kind domain.EdgeKind
}

// depCollector records the import records esbuild reports while compiling one
// module. Every import is marked external under a placeholder path, which
// restore and restoreCSS swap back for the runtime require forms.
type depCollector struct {
	marker string

	mu    sync.Mutex
	index map[depRecord]int
	deps  []depRecord
}

// newDepCollector picks a placeholder prefix that does not occur in source.
func newDepCollector(source []byte) *depCollector {
	marker := depMarker
	for bytes.Contains(source, []byte(marker)) {
		marker = "_" + marker
	}
	return &depCollector{marker: marker, index: make(map[depRecord]int)}
}

// baseURL is the identifier import.meta.url compiles to.
func (c *depCollector) baseURL() string { return c.marker + "base" }

func (c *depCollector) plugin() api.Plugin {
	return api.Plugin{
		Name: "sling-deps",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, c.onResolve)
		},
	}
}

func (c *depCollector) onResolve(args api.OnResolveArgs) (api.OnResolveResult, error) {
	var kind domain.EdgeKind
	switch args.Kind {
	case api.ResolveJSImportStatement, api.ResolveJSRequireCall, api.ResolveJSRequireResolve:
		kind = domain.EdgeStatic
	case api.ResolveJSDynamicImport:
		kind = domain.EdgeDynamic
	case api.ResolveCSSImportRule, api.ResolveCSSComposesFrom:
		kind = domain.EdgeStatic
		if isExternalURL(args.Path) {
			return api.OnResolveResult{Path: args.Path, External: true}, nil
		}
	case api.ResolveCSSURLToken:
		kind = domain.EdgeAsset
		if isExternalURL(args.Path) {
			return api.OnResolveResult{Path: args.Path, External: true}, nil
		}
	default:
		return api.OnResolveResult{Path: args.Path, External: true}, nil
	}
	return api.OnResolveResult{Path: c.marker + strconv.Itoa(c.add(args.Path, kind)), External: true}, nil
}

func (c *depCollector) add(spec string, kind domain.EdgeKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := depRecord{spec, kind}
	if i, ok := c.index[rec]; ok {
		return i
	}
	c.index[rec] = len(c.deps)
	c.deps = append(c.deps, rec)
	return len(c.deps) - 1
}

func (c *depCollector) lookup(i int) (depRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.deps) {
		return depRecord{}, false
	}
	return c.deps[i], true
}

// placeholder matches a quoted or bare placeholder at the start of code. It
// returns the record index and the length consumed, closing quote included.
func (c *depCollector) placeholder(code []byte, quote byte) (int, int, bool) {
	if !bytes.HasPrefix(code, []byte(c.marker)) {
		return 0, 0, false
	}
	n := len(c.marker)
	end := n
	for end < len(code) && code[end] >= '0' && code[end] <= '9' {
		end++
	}
	if end == n {
		return 0, 0, false
	}
	i, err := strconv.Atoi(string(code[n:end]))
	if err != nil {
		return 0, 0, false
	}
	if quote != 0 {
		if end >= len(code) || code[end] != quote {
			return 0, 0, false
		}
		end++
	}
	return i, end, true
}

// depList accumulates dependencies in order of first appearance.
type depList struct {
	seen map[depRecord]bool
	deps []domain.Dependency
	offs []int
}

func (l *depList) add(rec depRecord, offset int) {
	if l.seen == nil {
		l.seen = make(map[depRecord]bool)
	}
	if rec.spec == "" || l.seen[rec] {
		return
	}
	l.seen[rec] = true
	l.deps = append(l.deps, domain.Dependency{Specifier: rec.spec, Kind: rec.kind})
	l.offs = append(l.offs, offset)
}

// resolve fills in the 1-based positions against the final code.
func (l *depList) resolve(code []byte) []domain.Dependency {
	for i, off := range l.offs {
		l.deps[i].Line, l.deps[i].Column = position(code, off)
	}
	return l.deps
}

// restore rewrites compiled JavaScript so that every placeholder becomes the
// original specifier under the runtime require function, and returns the
// dependencies in order of appearance.
func (c *depCollector) restore(code []byte) ([]byte, []domain.Dependency) {
	var (
		out  bytes.Buffer
		list depList
	)
	mark := []byte(c.marker)
	base := c.baseURL()

	for {
		i := bytes.Index(code, mark)
		if i < 0 {
			out.Write(code)
			break
		}

		if bytes.HasPrefix(code[i:], []byte(base)) && !identByte(code, i+len(base)) {
			out.Write(code[:i])
			c.wrapAssetURL(&out, &list)
			out.WriteString("document.baseURI")
			code = code[i+len(base):]
			continue
		}

		if i > 0 && isQuote(code[i-1]) {
			if n, size, ok := c.placeholder(code[i:], code[i-1]); ok {
				if rec, ok := c.lookup(n); ok {
					out.Write(code[:i-1])
					if rec.kind == domain.EdgeDynamic && bytes.HasSuffix(out.Bytes(), []byte(importCall)) {
						out.Truncate(out.Len() - len(importCall))
						out.WriteString("require.import(")
					}
					list.add(rec, out.Len())
					out.WriteString(jsString(rec.spec))
					code = code[i+size:]
					continue
				}
			}
		}

		out.Write(code[:i+len(mark)])
		code = code[i+len(mark):]
	}

	result := out.Bytes()
	return result, list.resolve(result)
}

// wrapAssetURL turns a trailing `new URL("x", ` in out into
// `new URL(require.asset("x"), ` and records x as an asset dependency.
func (c *depCollector) wrapAssetURL(out *bytes.Buffer, list *depList) {
	buf := out.Bytes()
	head := bytes.TrimRight(buf, " \t\r\n")
	if !bytes.HasSuffix(head, []byte{','}) {
		return
	}
	head = bytes.TrimRight(head[:len(head)-1], " \t\r\n")
	if len(head) == 0 || !isQuote(head[len(head)-1]) {
		return
	}
	start := openingQuote(head)
	if start < 0 || !bytes.HasSuffix(bytes.TrimRight(head[:start], " \t\r\n"), []byte(newURLCall)) {
		return
	}
	lit := string(head[start:])
	spec, ok := unquote(lit)
	if !ok || spec == "" || isExternalURL(spec) {
		return
	}

	tail := string(buf[len(head):])
	out.Truncate(start)
	out.WriteString("require.asset(")
	list.add(depRecord{spec, domain.EdgeAsset}, out.Len())
	out.WriteString(lit)
	out.WriteString(")")
	out.WriteString(tail)
}

// openingQuote returns the offset of the quote opening the string literal that
// ends code, or -1.
func openingQuote(code []byte) int {
	quote := code[len(code)-1]
	for i := len(code) - 2; i >= 0; i-- {
		if code[i] != quote {
			continue
		}
		slashes := 0
		for j := i - 1; j >= 0 && code[j] == '\\'; j-- {
			slashes++
		}
		if slashes%2 == 0 {
			return i
		}
	}
	return -1
}

// restoreCSS renders compiled CSS as a style module. Placeholder @import
// rules become static requires and placeholder url() tokens become runtime
// asset URLs.
func (c *depCollector) restoreCSS(css []byte) ([]byte, []domain.Dependency) {
	var (
		imports []depRecord
		parts   []string
		text    strings.Builder
	)
	mark := []byte(c.marker)

	for {
		i := bytes.Index(css, mark)
		if i < 0 {
			text.Write(css)
			break
		}

		var quote byte
		if i > 0 && isQuote(css[i-1]) {
			quote = css[i-1]
		}
		n, size, ok := c.placeholder(css[i:], quote)
		var rec depRecord
		if ok {
			rec, ok = c.lookup(n)
		}
		if !ok {
			text.Write(css[:i+len(mark)])
			css = css[i+len(mark):]
			continue
		}

		start := i
		if quote != 0 {
			start--
		}
		switch rec.kind {
		case domain.EdgeAsset:
			text.Write(css[:start])
			parts = append(parts, jsString(text.String()), "")
			text.Reset()
			imports = append(imports, rec)
			css = css[i+size:]
		default:
			rule := bytes.LastIndex(css[:start], []byte("@import"))
			end := bytes.IndexByte(css[i+size:], ';')
			if rule < 0 || end < 0 {
				text.Write(css[:i+size])
				css = css[i+size:]
				continue
			}
			text.Write(css[:rule])
			imports = append(imports, rec)
			css = bytes.TrimPrefix(css[i+size+end+1:], []byte("\n"))
		}
	}
	parts = append(parts, jsString(text.String()))

	var (
		out  bytes.Buffer
		list depList
	)
	assets := make([]depRecord, 0, len(imports))
	for _, rec := range imports {
		if rec.kind == domain.EdgeAsset {
			assets = append(assets, rec)
			continue
		}
		out.WriteString("require(")
		list.add(rec, out.Len()-len("require("))
		out.WriteString(jsString(rec.spec))
		out.WriteString(");\n")
	}

	out.WriteString("var css = ")
	next := 0
	for i, part := range parts {
		if i > 0 {
			out.WriteString(" + ")
		}
		if part != "" {
			out.WriteString(part)
			continue
		}
		rec := assets[next]
		next++
		list.add(rec, out.Len())
		out.WriteString("require.asset(" + jsString(rec.spec) + ")")
	}
	out.WriteString(";\nrequire.style(module.id, css);\nmodule.hot && module.hot.accept();\n")

	result := out.Bytes()
	return result, list.resolve(result)
}

func isQuote(b byte) bool {
	return b == '"' || b == '\'' || b == '`'
}

func identByte(code []byte, i int) bool {
	if i >= len(code) {
		return false
	}
	b := code[i]
	return b == '_' || b == '$' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func unquote(lit string) (string, bool) {
	if strings.HasPrefix(lit, "'") {
		body := lit[1 : len(lit)-1]
		body = strings.ReplaceAll(body, `\'`, `'`)
		body = strings.ReplaceAll(body, `"`, `\"`)
		lit = `"` + body + `"`
	}
	s, err := strconv.Unquote(lit)
	return s, err == nil
}

// position returns the 1-based line and column of offset.
func position(code []byte, offset int) (int, int) {
	before := code[:offset]
	line := bytes.Count(before, []byte{'\n'}) + 1
	column := offset - bytes.LastIndexByte(before, '\n')
	return line, column
}
