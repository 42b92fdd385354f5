package linear_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/adapters/linear"
)

func newRenderer(t *testing.T) (*linear.Renderer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)
	require.NoError(t, r.Start(context.Background()))
	return r, &stdout, &stderr
}

func TestRenderer_PhaseLifecycle(t *testing.T) {
	r, stdout, stderr := newRenderer(t)

	start := time.Now()
	r.OnTaskStart("s1", "", "graph", start)
	assert.Contains(t, stderr.String(), "○ [graph]")

	r.OnTaskLog("s1", []byte("resolved 12 modules\n"))
	r.OnTaskLog("s1", []byte("transformed 3\n"))
	assert.Equal(t, "[graph] resolved 12 modules\n[graph] transformed 3\n", stdout.String())

	r.OnTaskComplete("s1", start.Add(120*time.Millisecond), nil)
	assert.Contains(t, stderr.String(), "✓ [graph] done in 120ms")

	require.NoError(t, r.Stop())
}

func TestRenderer_PartialLines(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	start := time.Now()
	r.OnTaskStart("s1", "", "tsc", start)

	r.OnTaskLog("s1", []byte("src/a.ts(1,2): err"))
	assert.Empty(t, stdout.String())

	r.OnTaskLog("s1", []byte("or TS2304: x\nnext"))
	assert.Equal(t, "[tsc] src/a.ts(1,2): error TS2304: x\n", stdout.String())

	r.OnTaskComplete("s1", start, nil)
	assert.Equal(t, "[tsc] src/a.ts(1,2): error TS2304: x\n[tsc] next\n", stdout.String())
}

func TestRenderer_Failure(t *testing.T) {
	r, _, stderr := newRenderer(t)

	start := time.Now()
	r.OnTaskStart("s1", "", "emit", start)
	r.OnTaskComplete("s1", start.Add(time.Second), errors.New("output path collision"))

	assert.Contains(t, stderr.String(), "✗ [emit] failed after 1s: output path collision")
}

func TestRenderer_NestedLabel(t *testing.T) {
	r, stdout, stderr := newRenderer(t)

	start := time.Now()
	r.OnTaskStart("p", "", "checkers", start)
	r.OnTaskStart("c", "p", "eslint", start)
	r.OnTaskLog("c", []byte("clean\n"))

	assert.Contains(t, stderr.String(), "[checkers › eslint]")
	assert.Equal(t, "[checkers › eslint] clean\n", stdout.String())
}

func TestRenderer_UnknownSpanIgnored(t *testing.T) {
	r, stdout, stderr := newRenderer(t)

	r.OnTaskLog("missing", []byte("x\n"))
	r.OnTaskComplete("missing", time.Now(), nil)

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRenderer_StopFlushesPartialLines(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	r.OnTaskStart("s1", "", "graph", time.Now())
	r.OnTaskLog("s1", []byte("tail"))
	require.NoError(t, r.Stop())

	assert.Equal(t, "[graph] tail\n", stdout.String())
}

func TestRenderer_BlankLinesSkipped(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	r.OnTaskStart("s1", "", "graph", time.Now())
	r.OnTaskLog("s1", []byte("\n\r\nok\n"))

	assert.Equal(t, "[graph] ok\n", stdout.String())
}
