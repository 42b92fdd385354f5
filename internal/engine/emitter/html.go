package emitter

import (
	"html"
	"regexp"
	"strings"
)

var bodyEndRe = regexp.MustCompile(`(?i)</body\s*>`)

// injectScripts inserts one deferred script tag per path before the closing
// body tag, or appends them when the page has none.
func injectScripts(page []byte, publicPath string, paths []string) []byte {
	var tags strings.Builder
	for _, p := range paths {
		tags.WriteString(`<script defer src="`)
		tags.WriteString(html.EscapeString(publicPath + p))
		tags.WriteString("\"></script>\n")
	}

	matches := bodyEndRe.FindAllIndex(page, -1)
	if len(matches) == 0 {
		out := append([]byte{}, page...)
		return append(out, tags.String()...)
	}
	at := matches[len(matches)-1][0]
	out := make([]byte, 0, len(page)+tags.Len())
	out = append(out, page[:at]...)
	out = append(out, tags.String()...)
	return append(out, page[at:]...)
}

// normalizePublicPath makes a non-empty public path end in a slash so that
// emitted paths can be appended to it.
func normalizePublicPath(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
