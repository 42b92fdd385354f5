// Package detector selects the output format from the terminal environment.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputFormat represents how progress and logs are printed.
type OutputFormat int

const (
	// FormatAuto detects the format from the environment.
	FormatAuto OutputFormat = iota
	// FormatText prints human-readable lines.
	FormatText
	// FormatJSON prints one JSON object per line.
	FormatJSON
)

// String returns the flag value of the format.
func (f OutputFormat) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the recommended format for output written to f.
// Terminals and CI logs get text; anything else, such as a pipe into a log
// collector, gets JSON.
func DetectEnvironment(f *os.File) OutputFormat {
	ci := os.Getenv("CI")
	if ci == "true" || ci == "1" {
		return FormatText
	}
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat parses an --output flag value.
func ParseFormat(flag string) (OutputFormat, bool) {
	switch flag {
	case "auto", "":
		return FormatAuto, true
	case "text":
		return FormatText, true
	case "json":
		return FormatJSON, true
	default:
		return FormatAuto, false
	}
}

// ResolveFormat applies the user's choice to the detected format.
func ResolveFormat(detected, requested OutputFormat) OutputFormat {
	if requested == FormatAuto {
		return detected
	}
	return requested
}
