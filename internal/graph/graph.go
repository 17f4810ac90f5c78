// Package graph holds the static dependency table between topics.
package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tailscale/hujson"
)

// Graph maps a source topic to the ordered list of topics that become stale
// when the source changes. It is read-only after construction.
type Graph struct {
	related map[string][]string
}

// New creates a graph from table. The table is copied.
func New(table map[string][]string) *Graph {
	g := &Graph{related: make(map[string][]string, len(table))}
	for source, dependents := range table {
		deps := make([]string, len(dependents))
		copy(deps, dependents)
		g.related[source] = deps
	}
	return g
}

// Default returns the graph used when no table is configured
func Default() *Graph {
	return New(map[string][]string{
		"threat-feeds":  {"indicators", "dashboard", "notifications", "assets"},
		"organizations": {"dashboard", "assets", "users"},
		"indicators":    {"dashboard", "threat-feeds", "notifications"},
		"users":         {"organizations", "dashboard"},
		"assets":        {"dashboard", "organizations"},
		"settings":      {"dashboard"},
	})
}

// RelatedTopics returns the dependents of topic in configured order. Unknown
// topics yield an empty slice.
func (g *Graph) RelatedTopics(topic string) []string {
	deps := g.related[topic]
	result := make([]string, len(deps))
	copy(result, deps)
	return result
}

// Sources returns the configured source topics, sorted
func (g *Graph) Sources() []string {
	sources := make([]string, 0, len(g.related))
	for source := range g.related {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}

// Table returns a copy of the whole table
func (g *Graph) Table() map[string][]string {
	table := make(map[string][]string, len(g.related))
	for _, source := range g.Sources() {
		table[source] = g.RelatedTopics(source)
	}
	return table
}

// Merge returns a new graph with the entries of other replacing those of g
func (g *Graph) Merge(other *Graph) *Graph {
	table := g.Table()
	for source, deps := range other.Table() {
		table[source] = deps
	}
	return New(table)
}

// LoadFile reads a graph table from a HuJSON file (JSON with comments and
// trailing commas allowed).
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read dependency graph file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a HuJSON graph table
func Parse(data []byte) (*Graph, error) {
	standard, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dependency graph: %w", err)
	}

	var table map[string][]string
	if err := json.Unmarshal(standard, &table); err != nil {
		return nil, fmt.Errorf("failed to decode dependency graph: %w", err)
	}
	return New(table), nil
}
