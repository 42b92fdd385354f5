package checker_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/adapters/checker"
	"go.trai.ch/sling/internal/core/domain"
)

func collect(t *testing.T, spec domain.CheckerConfig, root string) ([]domain.Diagnostic, string, error) {
	t.Helper()
	diags := make(chan domain.Diagnostic, 64)
	var out bytes.Buffer
	err := checker.NewRunner().Check(context.Background(), spec, root, &out, diags)
	close(diags)

	var got []domain.Diagnostic
	for d := range diags {
		got = append(got, d)
	}
	return got, out.String(), err
}

func TestRunner_ParsesDiagnostics(t *testing.T) {
	root := t.TempDir()
	script := `echo "src/a.ts(1,2): error TS2304: Cannot find name 'x'."; ` +
		`echo "Found 1 error." >&2; exit 2`

	got, out, err := collect(t, domain.CheckerConfig{
		Name:    "tsc",
		Command: []string{"sh", "-c", script},
		Format:  domain.CheckerFormatTSC,
	}, root)

	require.NoError(t, err, "a failing exit status with findings is not an error")
	require.Len(t, got, 1)
	assert.Equal(t, "tsc", got[0].Source)
	assert.Equal(t, "src/a.ts", got[0].File)
	assert.Equal(t, 1, got[0].Line)
	assert.Equal(t, 2, got[0].Column)
	assert.Contains(t, out, "Found 1 error.")
}

func TestRunner_AbsolutePathsBecomeRelative(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "src", "index.js")

	got, _, err := collect(t, domain.CheckerConfig{
		Name:    "eslint",
		Command: []string{"sh", "-c", `echo "` + file + `:3:7: unused [Warning/no-unused-vars]"`},
		Format:  domain.CheckerFormatUnix,
	}, root)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "src/index.js", got[0].File)
	assert.Equal(t, domain.SeverityWarning, got[0].Severity)
}

func TestRunner_CleanRun(t *testing.T) {
	got, out, err := collect(t, domain.CheckerConfig{
		Name:    "eslint",
		Command: []string{"sh", "-c", "echo all good"},
		Format:  domain.CheckerFormatUnix,
	}, t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "all good\n", out)
}

func TestRunner_FailureWithoutFindings(t *testing.T) {
	_, _, err := collect(t, domain.CheckerConfig{
		Name:    "tsc",
		Command: []string{"sh", "-c", "echo boom; exit 3"},
		Format:  domain.CheckerFormatTSC,
	}, t.TempDir())

	require.ErrorIs(t, err, domain.ErrCheckerFailed)
	code, ok := domain.Meta(err, "exit_code")
	require.True(t, ok)
	assert.Equal(t, 3, code)
}

func TestRunner_CommandNotFound(t *testing.T) {
	_, _, err := collect(t, domain.CheckerConfig{
		Name:    "missing",
		Command: []string{"definitely-not-a-checker-binary"},
		Format:  domain.CheckerFormatUnix,
	}, t.TempDir())

	require.ErrorIs(t, err, domain.ErrCheckerFailed)
}

func TestRunner_InvalidSpec(t *testing.T) {
	_, _, err := collect(t, domain.CheckerConfig{Name: "empty", Format: domain.CheckerFormatUnix}, t.TempDir())
	require.ErrorIs(t, err, domain.ErrCheckerFailed)

	_, _, err = collect(t, domain.CheckerConfig{
		Name: "odd", Command: []string{"true"}, Format: "xml",
	}, t.TempDir())
	require.ErrorIs(t, err, domain.ErrCheckerFailed)
}

func TestRunner_NoColorEnvironment(t *testing.T) {
	t.Setenv("SLING_TEST_SECRET", "leak")
	_, out, err := collect(t, domain.CheckerConfig{
		Name:    "env",
		Command: []string{"sh", "-c", `echo "NO_COLOR=$NO_COLOR SECRET=$SLING_TEST_SECRET"`},
		Format:  domain.CheckerFormatUnix,
	}, t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "NO_COLOR=1 SECRET=\n", out)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	diags := make(chan domain.Diagnostic) // unbuffered and never read

	done := make(chan error, 1)
	go func() {
		done <- checker.NewRunner().Check(ctx, domain.CheckerConfig{
			Name:    "slow",
			Command: []string{"sh", "-c", `echo "a.js:1:1: x"; exec sleep 30`},
			Format:  domain.CheckerFormatUnix,
		}, t.TempDir(), nil, diags)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("checker was not cancelled")
	}
}
