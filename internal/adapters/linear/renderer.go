// Package linear provides a synchronous, line-buffered progress renderer for build phases.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/sling/internal/ui/output"
	"go.trai.ch/sling/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer prints chronological phase progress. Phase output goes to stdout
// prefixed with the phase label; lifecycle lines go to stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu     sync.Mutex
	phases map[string]*phase
}

type phase struct {
	label   string
	started time.Time
	buf     bytes.Buffer
}

// NewRenderer creates a Renderer. Nil writers default to the process streams.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		output: output.NewWithProfile(stderr, output.ColorProfileANSI),
		phases: make(map[string]*phase),
	}
}

// Start implements ports.Renderer.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop prints any partial lines still buffered.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.phases {
		r.flushLocked(p)
	}
	return nil
}

// OnTaskStart records a phase. Nested phases are labelled with their parent.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	label := name
	if parent, ok := r.phases[parentID]; ok {
		label = parent.label + " › " + name
	}
	r.phases[spanID] = &phase{label: label, started: startTime}

	marker := r.output.String(style.Circle).Faint().String()
	_, _ = fmt.Fprintf(r.stderr, "%s %s\n", marker, r.prefix(label))
}

// OnTaskLog prints the complete lines of data and keeps the remainder buffered.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.phases[spanID]
	if !ok {
		return
	}
	p.buf.Write(data)

	for {
		i := bytes.IndexByte(p.buf.Bytes(), '\n')
		if i < 0 {
			return
		}
		line := p.buf.Next(i + 1)
		r.printLocked(p.label, line)
	}
}

// OnTaskComplete prints the outcome and duration of a phase.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.phases[spanID]
	if !ok {
		return
	}
	r.flushLocked(p)
	delete(r.phases, spanID)

	elapsed := endTime.Sub(p.started).Round(time.Millisecond)
	if err != nil {
		icon := r.output.String(style.Cross).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s failed after %v: %v\n", icon, r.prefix(p.label), elapsed, err)
		return
	}
	icon := r.output.String(style.Check).Foreground(termenv.ANSIGreen).String()
	_, _ = fmt.Fprintf(r.stderr, "%s %s done in %v\n", icon, r.prefix(p.label), elapsed)
}

func (r *Renderer) prefix(label string) string {
	return r.output.String("[" + label + "]").Bold().String()
}

func (r *Renderer) flushLocked(p *phase) {
	if p.buf.Len() == 0 {
		return
	}
	r.printLocked(p.label, p.buf.Bytes())
	p.buf.Reset()
}

func (r *Renderer) printLocked(label string, line []byte) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", label, line)
}
