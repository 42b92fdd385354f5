// Package transform provides the built-in module transforms and their registry.
//
// Every JavaScript producing transform emits CommonJS shaped code that the
// runtime wraps in a factory taking (module, exports, require). Imports are
// expressed through that require function:
//
//	require("x")         static dependency
//	require.import("x")  dynamic dependency, a split point
//	require.asset("x")   asset dependency, evaluates to the asset URL
package transform

import (
	"encoding/json"
	"path"
	"strings"

	"go.trai.ch/sling/internal/core/domain"
	"go.trai.ch/sling/internal/core/ports"
	"go.trai.ch/zerr"
)

// transformError builds an ErrTransformFailed carrying the file, the transform
// and, when known, the position of the failure.
func transformError(name string, in *ports.TransformInput, line, column int, msg string) error {
	err := zerr.Wrap(domain.ErrTransformFailed, msg)
	err = zerr.With(err, "file", in.ID.Key(in.Root))
	err = zerr.With(err, "transform", name)
	if line > 0 {
		err = zerr.With(err, "line", line)
		err = zerr.With(err, "column", column)
	}
	return err
}

func optionError(name, key string, value any) error {
	err := zerr.Wrap(domain.ErrInvalidTransformOption, "unexpected option type")
	err = zerr.With(err, "transform", name)
	err = zerr.With(err, "option", key)
	return zerr.With(err, "value", value)
}

func stringOption(name string, opts map[string]any, key, def string) (string, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", optionError(name, key, raw)
	}
	return s, nil
}

func boolOption(name string, opts map[string]any, key string, def bool) (bool, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, optionError(name, key, raw)
	}
	return b, nil
}

func intOption(name string, opts map[string]any, key string, def int) (int, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil //nolint:gosec // option values are small sizes
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, optionError(name, key, raw)
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// splitName returns the base name of the module's path without its extension, and the extension.
func splitName(id domain.ModuleID) (string, string) {
	base := path.Base(strings.ReplaceAll(id.Path(), "\\", "/"))
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}
