package logger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// messager describes an error that can report its own message without the chain.
// This matches the Message() method provided by zerr.Error.
type messager interface {
	Message() string
}

// metadataer matches the Metadata() method provided by zerr.Error.
type metadataer interface {
	Metadata() map[string]any
}

// ErrorEntry is one layer of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries walks err's chain. Layers without a message of their
// own, such as a sentinel wrapped only to attach metadata, hand their
// metadata down to the next layer. The walk stops at the first error that
// is not a zerr error.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	var pending map[string]any

	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error(), Metadata: pending})
			break
		}

		var meta map[string]any
		if md, ok := current.(metadataer); ok {
			meta = md.Metadata()
		}
		if pending != nil {
			if meta == nil {
				meta = pending
			} else {
				maps.Copy(meta, pending)
			}
			pending = nil
		}

		next := errors.Unwrap(current)
		if m.Message() == "" && next != nil {
			pending = meta
			current = next
			continue
		}
		entries = append(entries, ErrorEntry{Message: m.Message(), Metadata: meta})
		current = next
	}
	return entries
}

// formatErrorEntries renders entries as "Error: …" followed by an indented
// "Caused by:" list. Metadata is printed under its layer in key order.
func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string

	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")
		head, indent := "Error: ", "       "
		if i > 0 {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			head, indent = "    → ", "      "
		}

		lines = append(lines, head+msgLines[0])
		for _, line := range msgLines[1:] {
			lines = append(lines, indent+line)
		}
		for _, key := range slices.Sorted(maps.Keys(entry.Metadata)) {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, key, entry.Metadata[key]))
		}
	}

	return strings.Join(lines, "\n")
}

// splitJoined flattens errors.Join trees into their branches.
func splitJoined(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, splitJoined(e)...)
	}
	return out
}

// formatError renders every branch of err as its own block.
func formatError(err error) string {
	blocks := make([]string, 0, 1)
	for _, branch := range splitJoined(err) {
		blocks = append(blocks, formatErrorEntries(collectErrorEntries(branch)))
	}
	return strings.Join(blocks, "\n\n")
}

// errorAttrs flattens the metadata of err's chain into slog arguments.
func errorAttrs(err error) []any {
	args := []any{"error", err.Error()}
	for _, branch := range splitJoined(err) {
		for _, entry := range collectErrorEntries(branch) {
			for _, key := range slices.Sorted(maps.Keys(entry.Metadata)) {
				args = append(args, key, entry.Metadata[key])
			}
		}
	}
	return args
}
