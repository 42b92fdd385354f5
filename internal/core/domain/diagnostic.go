package domain

import (
	"fmt"
	"strings"
)

// Severity ranks an advisory diagnostic.
type Severity string

const (
	// SeverityInfo is informational.
	SeverityInfo Severity = "info"
	// SeverityWarning does not indicate a broken build.
	SeverityWarning Severity = "warning"
	// SeverityError fails the build only in fail-fast mode.
	SeverityError Severity = "error"
)

// ParseSeverity normalizes checker severities such as "Error" or "warn".
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "err", "fatal":
		return SeverityError
	case "warning", "warn":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Output formats understood by the checker runner.
const (
	// CheckerFormatTSC parses "file(line,col): error TS1234: message".
	CheckerFormatTSC = "tsc"
	// CheckerFormatUnix parses "file:line:col: message [severity/rule]".
	CheckerFormatUnix = "unix"
)

// Diagnostic is a finding reported by an advisory checker.
type Diagnostic struct {
	Source   string   `json:"source"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Rule     string   `json:"rule,omitempty"`
}

// String formats the diagnostic the way compilers print locations.
func (d Diagnostic) String() string {
	msg := d.Message
	if d.Rule != "" {
		msg += " [" + d.Rule + "]"
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s (%s)", d.File, d.Line, d.Column, d.Severity, msg, d.Source)
}
