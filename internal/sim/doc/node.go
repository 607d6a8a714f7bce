// Package doc is the narrow document-access capability the loaders consume.
// Adapters translate a concrete format into Node at the boundary.
package doc

import (
	"errors"
	"fmt"
)

var ErrMissingKey = errors.New("missing key")

// Node is one element of a structured document.
type Node interface {
	// Get returns the child stored under key of a mapping node.
	Get(key string) (Node, bool)
	// Tag returns the application type tag (without the leading "!").
	Tag() (string, bool)
	Seq() ([]Node, bool)
	Map() ([]Entry, bool)
	Str() (string, bool)
}

type Entry struct {
	Key   string
	Value Node
}

// GetStr reads a scalar child.
func GetStr(n Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	c, ok := n.Get(key)
	if !ok {
		return "", false
	}
	return c.Str()
}

// RequireStr is GetStr with an ErrMissingKey error.
func RequireStr(n Node, key string) (string, error) {
	s, ok := GetStr(n, key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return s, nil
}

func GetSeq(n Node, key string) ([]Node, bool) {
	if n == nil {
		return nil, false
	}
	c, ok := n.Get(key)
	if !ok {
		return nil, false
	}
	return c.Seq()
}

func GetMap(n Node, key string) ([]Entry, bool) {
	if n == nil {
		return nil, false
	}
	c, ok := n.Get(key)
	if !ok {
		return nil, false
	}
	return c.Map()
}

// Plain converts n into JSON-shaped data (map[string]any, []any, string).
// Scalars stay strings; tags are dropped.
func Plain(n Node) any {
	if n == nil {
		return nil
	}
	if entries, ok := n.Map(); ok {
		out := make(map[string]any, len(entries))
		for _, e := range entries {
			out[e.Key] = Plain(e.Value)
		}
		return out
	}
	if items, ok := n.Seq(); ok {
		out := make([]any, 0, len(items))
		for _, it := range items {
			out = append(out, Plain(it))
		}
		return out
	}
	if s, ok := n.Str(); ok {
		return s
	}
	return nil
}
