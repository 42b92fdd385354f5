package emitter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/sling/internal/engine/emitter"
)

func TestInjectScripts(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "before body end",
			page: "<body><p>x</p></body>",
			want: "<body><p>x</p><script defer src=\"/js/a.js\"></script>\n</body>",
		},
		{
			name: "case insensitive, last body end",
			page: "<!-- </body> --><BODY></BODY >",
			want: "<!-- </body> --><BODY><script defer src=\"/js/a.js\"></script>\n</BODY >",
		},
		{
			name: "appended without body",
			page: "<p>x</p>\n",
			want: "<p>x</p>\n<script defer src=\"/js/a.js\"></script>\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := emitter.InjectScripts([]byte(tt.page), "/", []string{"js/a.js"})
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestInjectScripts_EscapesAttribute(t *testing.T) {
	got := emitter.InjectScripts([]byte("</body>"), "/", []string{`js/a"b.js`})
	assert.Equal(t, "<script defer src=\"/js/a&#34;b.js\"></script>\n</body>", string(got))
}
