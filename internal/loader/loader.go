// Package loader discovers schema definition files on disk and feeds them
// to the registry.
package loader

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/unbywyd/schemareg/internal/registry"
	"github.com/unbywyd/schemareg/internal/schema"
)

// DefaultPattern matches the schema definition files a project
// conventionally keeps under its schema directory.
const DefaultPattern = "**/*.{json,yaml,yml}"

// Loader reads schema definition files.
type Loader struct {
	logger *slog.Logger
}

// New creates a loader.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadFile decodes one schema definition file. JSON and YAML are selected
// by extension.
func (l *Loader) LoadFile(path string) (*schema.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var v any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%s: invalid JSON: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%s: invalid YAML: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported extension", path)
	}

	n, err := schema.FromValue(normalizeYAML(v))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// LoadGlob loads every file under root matching the doublestar pattern,
// in sorted path order.
func (l *Loader) LoadGlob(root, pattern string) (map[string]*schema.Node, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	nodes := make(map[string]*schema.Node, len(matches))
	for _, rel := range matches {
		n, err := l.LoadFile(filepath.Join(root, rel))
		if err != nil {
			return nil, err
		}
		nodes[rel] = n
		l.logger.Debug("schema file loaded", slog.String("path", rel), slog.String("id", n.ID))
	}
	return nodes, nil
}

// Discover loads all matching files and registers them through the
// registry's bulk discovery, returning the registered schemas.
func (l *Loader) Discover(reg *registry.Registry, root, pattern string) ([]*schema.Node, error) {
	nodes, err := l.LoadGlob(root, pattern)
	if err != nil {
		return nil, err
	}
	exports := make(map[string]any, len(nodes))
	for path, n := range nodes {
		exports[path] = n
	}
	return reg.BulkDiscover(exports)
}

// normalizeYAML converts the map[any]any trees older YAML decoders produce
// into the map[string]any shape the schema codec expects. yaml.v3 already
// yields string-keyed maps for string keys, so this mostly rewrites nested
// sequences.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
