package checker

import (
	"regexp"
	"strconv"
	"strings"

	"go.trai.ch/sling/internal/core/domain"
)

// LineParser extracts a diagnostic from one line of checker output.
type LineParser func(line string) (domain.Diagnostic, bool)

// Parser returns the LineParser for a configured output format.
func Parser(format string) (LineParser, bool) {
	switch format {
	case domain.CheckerFormatTSC:
		return ParseTSC, true
	case domain.CheckerFormatUnix:
		return ParseUnix, true
	default:
		return nil, false
	}
}

var (
	tscLine  = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\): (error|warning|message) (TS\d+): (.*)$`)
	unixLine = regexp.MustCompile(`^(.+?):(\d+):(\d+): (.*?)(?: \[([^/\]]+)(?:/([^\]]+))?\])?$`)
)

// ParseTSC parses "file(line,col): error TS1234: message".
func ParseTSC(line string) (domain.Diagnostic, bool) {
	m := tscLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return domain.Diagnostic{}, false
	}
	return domain.Diagnostic{
		File:     m[1],
		Line:     atoi(m[2]),
		Column:   atoi(m[3]),
		Severity: domain.ParseSeverity(m[4]),
		Rule:     m[5],
		Message:  m[6],
	}, true
}

// ParseUnix parses "file:line:col: message [Severity/rule]". The bracketed
// suffix is optional; without it the finding is an error.
func ParseUnix(line string) (domain.Diagnostic, bool) {
	m := unixLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return domain.Diagnostic{}, false
	}
	severity := domain.SeverityError
	if m[5] != "" {
		severity = domain.ParseSeverity(m[5])
	}
	return domain.Diagnostic{
		File:     m[1],
		Line:     atoi(m[2]),
		Column:   atoi(m[3]),
		Severity: severity,
		Message:  m[4],
		Rule:     m[6],
	}, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
