package plugins

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// OrderEntry places a class in the global extension order and optionally
// overrides whether its extensions are enabled.
type OrderEntry struct {
	Class   string `yaml:"class"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

type orderingDocument struct {
	Extensions []OrderEntry `yaml:"extensions"`
}

// Enable returns an entry that forces the class on
func Enable(class string) OrderEntry {
	enabled := true
	return OrderEntry{Class: class, Enabled: &enabled}
}

// Disable returns an entry that forces the class off
func Disable(class string) OrderEntry {
	enabled := false
	return OrderEntry{Class: class, Enabled: &enabled}
}

// LoadOrdering reads an ordering file. Files ending in .yaml or .yml hold
// an extensions list, anything else is parsed as plain text.
func LoadOrdering(path string) ([]OrderEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ordering file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc orderingDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse ordering file: %w", err)
		}
		for i, e := range doc.Extensions {
			if strings.TrimSpace(e.Class) == "" {
				return nil, fmt.Errorf("ordering entry %d has no class", i)
			}
		}
		return doc.Extensions, nil
	default:
		return ParseOrderingText(bytes.NewReader(data))
	}
}

// ParseOrderingText reads one class per line. Blank lines and lines
// starting with # are skipped; a leading ! disables the class.
func ParseOrderingText(r io.Reader) ([]OrderEntry, error) {
	var entries []OrderEntry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if class, ok := strings.CutPrefix(line, "!"); ok {
			class = strings.TrimSpace(class)
			if class == "" {
				return nil, fmt.Errorf("ordering line %q has no class", line)
			}
			entries = append(entries, Disable(class))
			continue
		}

		entries = append(entries, OrderEntry{Class: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ordering: %w", err)
	}

	return entries, nil
}

// SaveOrdering writes entries as a YAML ordering file
func SaveOrdering(path string, entries []OrderEntry) error {
	data, err := yaml.Marshal(&orderingDocument{Extensions: entries})
	if err != nil {
		return fmt.Errorf("failed to marshal ordering: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ordering file: %w", err)
	}

	return nil
}

// EnabledOverride returns the enabled flag configured for class.
// The first entry for the class that sets Enabled wins.
func EnabledOverride(order []OrderEntry, class string) (enabled, ok bool) {
	for _, e := range order {
		if e.Class == class && e.Enabled != nil {
			return *e.Enabled, true
		}
	}
	return false, false
}

// ApplyOrdering returns exts with configured classes first, in configured
// order, followed by the rest. Relative discovery order is kept within
// each class and within the remainder.
func ApplyOrdering(exts []ExtensionInfo, order []OrderEntry) []ExtensionInfo {
	if len(order) == 0 {
		return append([]ExtensionInfo(nil), exts...)
	}

	rank := make(map[string]int, len(order))
	for _, e := range order {
		if _, ok := rank[e.Class]; !ok {
			rank[e.Class] = len(rank)
		}
	}

	buckets := make([][]ExtensionInfo, len(rank))
	var rest []ExtensionInfo
	for _, ext := range exts {
		if r, ok := rank[ext.ClassName()]; ok {
			buckets[r] = append(buckets[r], ext)
			continue
		}
		rest = append(rest, ext)
	}

	ordered := make([]ExtensionInfo, 0, len(exts))
	for _, b := range buckets {
		ordered = append(ordered, b...)
	}
	return append(ordered, rest...)
}

// applyEnabled replaces each extension's default enabled flag with the
// configured override, if any.
func applyEnabled(exts []ExtensionInfo, order []OrderEntry) []ExtensionInfo {
	out := make([]ExtensionInfo, len(exts))
	for i, ext := range exts {
		if enabled, ok := EnabledOverride(order, ext.ClassName()); ok {
			ext.Enabled = enabled
		}
		out[i] = ext
	}
	return out
}
