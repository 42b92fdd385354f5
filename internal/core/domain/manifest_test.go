package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/core/domain"
)

func TestManifest_RoundTrip(t *testing.T) {
	m := domain.NewManifest()
	m.Set("main", "js/main.01234567.js")
	m.Set("runtime", "js/runtime.89abcdef.js")
	m.Entrypoints["main"] = []string{"js/runtime.89abcdef.js", "js/main.01234567.js"}

	data, err := m.Marshal()
	require.NoError(t, err)

	parsed, err := domain.ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
	assert.Equal(t, []string{"js/main.01234567.js", "js/runtime.89abcdef.js"}, parsed.Paths())
}

func TestManifest_CloneIsIndependent(t *testing.T) {
	m := domain.NewManifest()
	m.Set("main", "a.js")
	m.Entrypoints["main"] = []string{"a.js"}

	c := m.Clone()
	c.Set("main", "b.js")
	c.Entrypoints["main"][0] = "b.js"

	p, _ := m.Lookup("main")
	assert.Equal(t, "a.js", p)
	assert.Equal(t, []string{"a.js"}, m.Entrypoints["main"])
}
