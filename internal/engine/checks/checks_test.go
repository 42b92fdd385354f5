package checks_test

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sling/internal/adapters/telemetry"
	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports/mocks"
	"go.trai.ch/sling/internal/engine/checks"
	"go.uber.org/mock/gomock"
)

var (
	lint = domain.CheckerConfig{Name: "lint", Command: []string{"eslint"}}
	tsc  = domain.CheckerConfig{Name: "tsc", Command: []string{"tsc", "--noEmit"}}
)

func emit(found ...domain.Diagnostic) func(context.Context, domain.CheckerConfig, string, io.Writer, chan<- domain.Diagnostic) error {
	return func(_ context.Context, _ domain.CheckerConfig, _ string, _ io.Writer, diags chan<- domain.Diagnostic) error {
		for _, d := range found {
			diags <- d
		}
		return nil
	}
}

func TestRun_CollectsAndOrdersDiagnostics(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mocks.NewMockChecker(ctrl)

	checker.EXPECT().Check(gomock.Any(), lint, "/project", gomock.Any(), gomock.Any()).DoAndReturn(emit(
		domain.Diagnostic{Source: "lint", File: "src/b.js", Line: 3, Severity: domain.SeverityWarning},
		domain.Diagnostic{Source: "lint", File: "src/a.js", Line: 9, Severity: domain.SeverityWarning},
	))
	checker.EXPECT().Check(gomock.Any(), tsc, "/project", gomock.Any(), gomock.Any()).DoAndReturn(emit(
		domain.Diagnostic{Source: "tsc", File: "src/a.js", Line: 2, Severity: domain.SeverityError},
	))

	s := checks.New(checker, telemetry.NewNoOpTracer())
	report := s.Run(context.Background(), &domain.Config{Root: "/project", Checkers: []domain.CheckerConfig{lint, tsc}}, 4)

	require.NoError(t, report.Err)
	assert.Equal(t, 4, report.Generation)
	assert.True(t, report.HasErrors())

	var order []string
	for _, d := range report.Diagnostics {
		order = append(order, d.String())
	}
	assert.Equal(t, []string{
		"src/a.js:2:0: error:  (tsc)",
		"src/a.js:9:0: warning:  (lint)",
		"src/b.js:3:0: warning:  (lint)",
	}, order)
}

func TestRun_CheckerFailureIsAdvisory(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mocks.NewMockChecker(ctrl)

	checker.EXPECT().Check(gomock.Any(), lint, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.ErrCheckerFailed)
	checker.EXPECT().Check(gomock.Any(), tsc, gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(emit(
		domain.Diagnostic{Source: "tsc", File: "src/a.js", Severity: domain.SeverityWarning},
	))

	s := checks.New(checker, telemetry.NewNoOpTracer())
	report := s.Run(context.Background(), &domain.Config{Checkers: []domain.CheckerConfig{lint, tsc}}, 1)

	require.ErrorIs(t, report.Err, domain.ErrCheckerFailed)
	assert.Len(t, report.Diagnostics, 1)
	assert.False(t, report.HasErrors())
}

func TestRestart_CancelsPreviousGeneration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		checker := mocks.NewMockChecker(ctrl)

		// The first run blocks until it is superseded.
		checker.EXPECT().Check(gomock.Any(), lint, gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ domain.CheckerConfig, _ string, _ io.Writer, _ chan<- domain.Diagnostic) error {
				<-ctx.Done()
				return ctx.Err()
			})
		checker.EXPECT().Check(gomock.Any(), lint, gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(emit(domain.Diagnostic{Source: "lint", File: "src/a.js"}))

		s := checks.New(checker, telemetry.NewNoOpTracer())
		cfg := &domain.Config{Checkers: []domain.CheckerConfig{lint}}

		var delivered []int
		deliver := func(r checks.Report) { delivered = append(delivered, r.Generation) }

		s.Restart(context.Background(), cfg, 1, deliver)
		synctest.Wait()
		s.Restart(context.Background(), cfg, 2, deliver)
		synctest.Wait()
		s.Stop()

		assert.Equal(t, []int{2}, delivered)
	})
}

func TestRestart_WithoutCheckersDeliversNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mocks.NewMockChecker(ctrl)

	s := checks.New(checker, telemetry.NewNoOpTracer())
	var calls atomic.Int32
	s.Restart(context.Background(), &domain.Config{}, 1, func(checks.Report) { calls.Add(1) })
	s.Stop()

	assert.Zero(t, calls.Load())
}

func TestStop_CancelsRunningCheckers(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		checker := mocks.NewMockChecker(ctrl)

		var cancelled atomic.Bool
		checker.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ domain.CheckerConfig, _ string, _ io.Writer, _ chan<- domain.Diagnostic) error {
				<-ctx.Done()
				cancelled.Store(true)
				return ctx.Err()
			})

		s := checks.New(checker, telemetry.NewNoOpTracer())
		s.Restart(context.Background(), &domain.Config{Checkers: []domain.CheckerConfig{lint}}, 1, func(checks.Report) {
			t.Error("cancelled run must not deliver")
		})
		synctest.Wait()
		s.Stop()

		assert.True(t, cancelled.Load())
	})
}

func TestRestart_NoStaleDeliveryAfterRestartReturns(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mocks.NewMockChecker(ctrl)
	checker.EXPECT().Check(gomock.Any(), lint, gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(emit()).Times(2)

	s := checks.New(checker, telemetry.NewNoOpTracer())
	cfg := &domain.Config{Checkers: []domain.CheckerConfig{lint}}

	entered := make(chan struct{})
	release := make(chan struct{})
	var restarted atomic.Bool
	s.Restart(context.Background(), cfg, 1, func(checks.Report) {
		close(entered)
		<-release
		assert.False(t, restarted.Load(), "generation 1 delivered after a later Restart returned")
	})
	<-entered

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Restart(context.Background(), cfg, 2, func(checks.Report) {})
		restarted.Store(true)
	}()

	// A Restart racing an in-flight delivery waits for it.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, restarted.Load())
	close(release)
	<-done
	s.Stop()
}
