// Package importmap implements import-map substitution of module specifiers:
// exact and trailing-slash prefix keys under "imports", plus per-referrer
// "scopes" that take precedence over the top-level table.
package importmap

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ImportMap mirrors the JSON document {"imports": {...}, "scopes": {...}}.
type ImportMap struct {
	Imports map[string]string            `json:"imports"`
	Scopes  map[string]map[string]string `json:"scopes,omitempty"`
}

// Load reads and validates an import map file.
func Load(path string) (*ImportMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import map: %w", err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates an import map document.
func Parse(raw []byte) (*ImportMap, error) {
	var m ImportMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode import map: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate rejects empty targets and prefix keys whose target lacks a trailing slash.
func (m *ImportMap) Validate() error {
	if m == nil {
		return nil
	}
	if err := validateTable("imports", m.Imports); err != nil {
		return err
	}
	for scope, table := range m.Scopes {
		if err := validateTable(fmt.Sprintf("scopes[%s]", scope), table); err != nil {
			return err
		}
	}
	return nil
}

func validateTable(name string, table map[string]string) error {
	for key, target := range table {
		if key == "" {
			return fmt.Errorf("%s: empty specifier key", name)
		}
		if target == "" {
			return fmt.Errorf("%s[%s]: empty target", name, key)
		}
		if strings.HasSuffix(key, "/") && !strings.HasSuffix(target, "/") {
			return fmt.Errorf("%s[%s]: prefix key requires a target ending in \"/\"", name, key)
		}
	}
	return nil
}

// Resolve substitutes specifier using the scope that best matches referrer,
// then the top-level imports. Unmapped specifiers are returned unchanged.
// A nil map is the identity.
func (m *ImportMap) Resolve(specifier, referrer string) string {
	if m == nil {
		return specifier
	}
	if referrer != "" {
		for _, scope := range m.matchingScopes(referrer) {
			if mapped, ok := resolveIn(m.Scopes[scope], specifier); ok {
				return mapped
			}
		}
	}
	if mapped, ok := resolveIn(m.Imports, specifier); ok {
		return mapped
	}
	return specifier
}

// matchingScopes returns scope keys applicable to referrer, most specific first.
func (m *ImportMap) matchingScopes(referrer string) []string {
	var matches []string
	for scope := range m.Scopes {
		if scope == referrer || (strings.HasSuffix(scope, "/") && strings.HasPrefix(referrer, scope)) {
			matches = append(matches, scope)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return len(matches[i]) > len(matches[j])
	})
	return matches
}

func resolveIn(table map[string]string, specifier string) (string, bool) {
	if len(table) == 0 {
		return "", false
	}
	if target, ok := table[specifier]; ok {
		return target, true
	}
	best := ""
	for key := range table {
		if strings.HasSuffix(key, "/") && strings.HasPrefix(specifier, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return "", false
	}
	return table[best] + specifier[len(best):], true
}
