// Package checks supervises the advisory checkers that run next to a build.
package checks

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// Report collects the findings of every checker for one build generation.
type Report struct {
	Generation  int
	Diagnostics []domain.Diagnostic
	// Err joins the failures of checkers that could not run.
	Err error
}

// HasErrors reports whether any finding has error severity.
func (r Report) HasErrors() bool {
	return slices.ContainsFunc(r.Diagnostics, func(d domain.Diagnostic) bool {
		return d.Severity == domain.SeverityError
	})
}

// Supervisor runs checkers in the background and restarts them for every
// new build generation.
type Supervisor struct {
	checker ports.Checker
	tracer  ports.Tracer

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Supervisor.
func New(checker ports.Checker, tracer ports.Tracer) *Supervisor {
	return &Supervisor{checker: checker, tracer: tracer}
}

// Run runs every configured checker to completion and returns their findings
// ordered by location.
func (s *Supervisor) Run(ctx context.Context, cfg *domain.Config, generation int) Report {
	var (
		mu    sync.Mutex
		diags []domain.Diagnostic
		errs  []error
		g     errgroup.Group
	)
	for _, spec := range cfg.Checkers {
		g.Go(func() error {
			found, err := s.runOne(ctx, cfg.Root, spec)
			mu.Lock()
			defer mu.Unlock()
			diags = append(diags, found...)
			if err != nil {
				errs = append(errs, err)
			}
			// Checker failures are advisory and never stop the others.
			return nil
		})
	}
	_ = g.Wait()

	slices.SortStableFunc(diags, func(a, b domain.Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.Source, b.Source),
		)
	})
	return Report{Generation: generation, Diagnostics: diags, Err: errors.Join(errs...)}
}

func (s *Supervisor) runOne(ctx context.Context, root string, spec domain.CheckerConfig) ([]domain.Diagnostic, error) {
	ctx, span := s.tracer.Start(ctx, "check "+spec.Name)
	defer span.End()

	ch := make(chan domain.Diagnostic)
	done := make(chan struct{})
	var found []domain.Diagnostic
	go func() {
		defer close(done)
		for d := range ch {
			found = append(found, d)
		}
	}()

	// Raw checker output goes to the span, which streams it to the renderer.
	err := s.checker.Check(ctx, spec, root, span, ch)
	close(ch)
	<-done

	span.SetAttribute("check.diagnostics", len(found))
	if err != nil {
		span.RecordError(err)
	}
	return found, err
}

// Restart cancels the checkers of the previous generation and starts them
// again. deliver receives the report unless a later Restart or Stop
// superseded it. Once Restart or Stop returns, no earlier generation is
// delivered; deliver must not call back into the Supervisor.
func (s *Supervisor) Restart(ctx context.Context, cfg *domain.Config, generation int, deliver func(Report)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if len(cfg.Checkers) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		report := s.Run(ctx, cfg, generation)
		// Cancellation happens under mu, so the check and the delivery are
		// atomic with respect to a superseding Restart or Stop.
		s.mu.Lock()
		defer s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		deliver(report)
	}()
}

// Stop cancels running checkers and waits for them to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
