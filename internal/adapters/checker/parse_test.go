package checker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/sling/internal/adapters/checker"
	"go.trai.ch/sling/internal/core/domain"
)

func TestParseTSC(t *testing.T) {
	tests := []struct {
		name string
		line string
		want domain.Diagnostic
		ok   bool
	}{
		{
			name: "error",
			line: "src/App.tsx(12,5): error TS2304: Cannot find name 'foo'.",
			want: domain.Diagnostic{
				File: "src/App.tsx", Line: 12, Column: 5,
				Severity: domain.SeverityError, Rule: "TS2304", Message: "Cannot find name 'foo'.",
			},
			ok: true,
		},
		{
			name: "path with parentheses",
			line: "src/(group)/page.ts(1,1): warning TS6133: 'x' is declared but never used.",
			want: domain.Diagnostic{
				File: "src/(group)/page.ts", Line: 1, Column: 1,
				Severity: domain.SeverityWarning, Rule: "TS6133", Message: "'x' is declared but never used.",
			},
			ok: true,
		},
		{name: "summary line", line: "Found 2 errors in 1 file.", ok: false},
		{name: "continuation", line: "  Type 'string' is not assignable to type 'number'.", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := checker.ParseTSC(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseUnix(t *testing.T) {
	tests := []struct {
		name string
		line string
		want domain.Diagnostic
		ok   bool
	}{
		{
			name: "eslint error",
			line: "/app/src/index.js:3:7: 'x' is assigned a value but never used. [Error/no-unused-vars]",
			want: domain.Diagnostic{
				File: "/app/src/index.js", Line: 3, Column: 7,
				Severity: domain.SeverityError, Rule: "no-unused-vars",
				Message: "'x' is assigned a value but never used.",
			},
			ok: true,
		},
		{
			name: "eslint warning",
			line: "src/a.js:10:1: Unexpected console statement. [Warning/no-console]",
			want: domain.Diagnostic{
				File: "src/a.js", Line: 10, Column: 1,
				Severity: domain.SeverityWarning, Rule: "no-console",
				Message: "Unexpected console statement.",
			},
			ok: true,
		},
		{
			name: "no bracket",
			line: "src/a.js:1:2: Parsing error: Unexpected token",
			want: domain.Diagnostic{
				File: "src/a.js", Line: 1, Column: 2,
				Severity: domain.SeverityError, Message: "Parsing error: Unexpected token",
			},
			ok: true,
		},
		{
			name: "severity only",
			line: "src/a.js:1:2: Fatal thing [Error]",
			want: domain.Diagnostic{
				File: "src/a.js", Line: 1, Column: 2,
				Severity: domain.SeverityError, Message: "Fatal thing",
			},
			ok: true,
		},
		{name: "summary", line: "2 problems", ok: false},
		{name: "empty", line: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := checker.ParseUnix(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParser(t *testing.T) {
	_, ok := checker.Parser(domain.CheckerFormatTSC)
	assert.True(t, ok)
	_, ok = checker.Parser(domain.CheckerFormatUnix)
	assert.True(t, ok)
	_, ok = checker.Parser("checkstyle")
	assert.False(t, ok)
}
