// Package colmap provides column-keyed maps that keep declaration order.
package colmap

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Map is an insertion-ordered map from column name to V.
type Map[V any] struct {
	keys []string
	vals map[string]V
}

// Of builds a map from pairs in order.
func Of[V any](pairs ...Pair[V]) Map[V] {
	var m Map[V]
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Pair is one key/value entry.
type Pair[V any] struct {
	Key   string
	Value V
}

// Set inserts or replaces the value for key, keeping the original position.
func (m *Map[V]) Set(key string, v V) {
	if m.vals == nil {
		m.vals = map[string]V{}
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the value for key.
func (m Map[V]) Get(key string) (V, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// GetOr returns the value for key or def when absent.
func (m Map[V]) GetOr(key string, def V) V {
	if v, ok := m.vals[key]; ok {
		return v
	}
	return def
}

// Keys returns keys in insertion order.
func (m Map[V]) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m Map[V]) Len() int { return len(m.keys) }

// Each calls fn for every entry in order.
func (m Map[V]) Each(fn func(key string, v V)) {
	for _, k := range m.keys {
		fn(k, m.vals[k])
	}
}

// UnmarshalYAML decodes a YAML mapping preserving key order.
func (m *Map[V]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of column to value", node.Line)
	}
	*m = Map[V]{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v V
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("column %q: %w", node.Content[i].Value, err)
		}
		m.Set(node.Content[i].Value, v)
	}
	return nil
}

// MarshalYAML encodes the map as an ordered YAML mapping.
func (m Map[V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range m.keys {
		var val yaml.Node
		if err := val.Encode(m.vals[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &val)
	}
	return node, nil
}

// IsZero reports an empty map, so omitempty drops it when encoding.
func (m Map[V]) IsZero() bool { return len(m.keys) == 0 }
