// Package checker runs external advisory checkers such as tsc or eslint and
// parses their output into diagnostics.
package checker

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Checker = (*Runner)(nil)

const waitDelay = 2 * time.Second

// Runner implements ports.Checker with os/exec. Stdout and stderr are merged
// into one pipe so that diagnostics keep their relative order.
type Runner struct{}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Check runs the checker in root and streams its findings to diags. A non-zero
// exit status is expected when findings exist and is only reported as an
// error when the checker produced no diagnostics at all.
func (r *Runner) Check(
	ctx context.Context,
	spec domain.CheckerConfig,
	root string,
	out io.Writer,
	diags chan<- domain.Diagnostic,
) error {
	if len(spec.Command) == 0 {
		return zerr.With(zerr.Wrap(domain.ErrCheckerFailed, "empty command"), "checker", spec.Name)
	}
	parse, ok := Parser(spec.Format)
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrCheckerFailed, "unknown output format"), "format", spec.Format)
	}

	env := resolveEnvironment(os.Environ(), checkerEnv)
	name := spec.Command[0]
	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, spec.Command[1:]...) //nolint:gosec // user configured command
	cmd.Args[0] = name
	cmd.Dir = root
	cmd.Env = env
	// Grandchildren may keep the pipe open after the checker is killed.
	cmd.WaitDelay = waitDelay

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return zerr.With(zerr.Wrap(domain.ErrCheckerFailed, err.Error()), "checker", spec.Name)
	}

	var (
		wg    sync.WaitGroup
		found int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		found = scan(ctx, pr, out, spec.Name, root, parse, diags)
	}()

	waitErr := cmd.Wait()
	_ = pw.Close()
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) && found > 0 {
		return nil
	}
	exitCode := -1
	if exitErr != nil {
		exitCode = exitErr.ExitCode()
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrCheckerFailed, waitErr.Error()),
		"checker", spec.Name), "exit_code", exitCode)
}

// scan copies every line to out and forwards the parseable ones. It keeps
// draining the pipe after cancellation so the process never blocks on write.
func scan(
	ctx context.Context,
	r io.Reader,
	out io.Writer,
	source, root string,
	parse LineParser,
	diags chan<- domain.Diagnostic,
) int {
	found := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if out != nil {
			_, _ = io.WriteString(out, line+"\n")
		}
		d, ok := parse(line)
		if !ok {
			continue
		}
		d.Source = source
		d.File = relativeTo(root, d.File)
		found++
		select {
		case diags <- d:
		case <-ctx.Done():
		}
	}
	_, _ = io.Copy(io.Discard, r)
	return found
}

// relativeTo reports files below root relative to it, slash separated.
func relativeTo(root, file string) string {
	if !filepath.IsAbs(file) {
		return filepath.ToSlash(filepath.Clean(file))
	}
	rel, err := filepath.Rel(root, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return file
	}
	return filepath.ToSlash(rel)
}

// checkerEnv disables colored output, which would break line parsing.
var checkerEnv = map[string]string{
	"NO_COLOR":    "1",
	"FORCE_COLOR": "0",
}

// allowListedEnvVars are the system variables a checker inherits. Node based
// tools additionally need their package manager and cache locations.
var allowListedEnvVars = map[string]struct{}{
	"HOME":             {},
	"USER":             {},
	"PATH":             {},
	"TERM":             {},
	"TMPDIR":           {},
	"NODE_PATH":        {},
	"NODE_ENV":         {},
	"npm_config_cache": {},
}

// resolveEnvironment filters the system environment and applies overrides.
func resolveEnvironment(sysEnv []string, overrides map[string]string) []string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, allowed := allowListedEnvVars[k]; allowed {
			envMap[k] = v
		}
	}
	for k, v := range overrides {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	return result
}

// lookPath searches for an executable in the PATH of env rather than of the
// current process.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if p, ok := strings.CutPrefix(e, "PATH="); ok {
			path = p
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
