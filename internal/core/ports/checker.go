package ports

import (
	"context"
	"io"

	"go.trai.ch/sling/internal/core/domain"
)

// Checker runs an external advisory checker.
//
//go:generate mockgen -destination=mocks/mock_checker.go -package=mocks -source=checker.go
type Checker interface {
	// Check runs spec in root until it exits or ctx is cancelled. Findings
	// are sent to diags as they are parsed; raw output is copied to out.
	Check(ctx context.Context, spec domain.CheckerConfig, root string, out io.Writer, diags chan<- domain.Diagnostic) error
}
