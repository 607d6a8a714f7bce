package doc

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// YAML adapts a yaml.v3 node tree. Aliases and "<<" merge keys are resolved
// transparently.
type YAML struct {
	n *yaml.Node
}

func NewYAML(n *yaml.Node) YAML {
	return YAML{n: resolve(n)}
}

func ParseYAML(b []byte) (Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		return nil, fmt.Errorf("empty document")
	}
	return NewYAML(&root), nil
}

// ReadFile parses a YAML document; files ending in .zst are zstd-compressed.
func ReadFile(path string) (Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(dec); err != nil {
			return nil, fmt.Errorf("%s: zstd: %w", path, err)
		}
		raw = buf.Bytes()
	}
	n, err := ParseYAML(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) > 0:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func (y YAML) Get(key string) (Node, bool) {
	if y.n == nil || y.n.Kind != yaml.MappingNode {
		return nil, false
	}
	var merges []*yaml.Node
	for i := 0; i+1 < len(y.n.Content); i += 2 {
		k := resolve(y.n.Content[i])
		if k == nil || k.Kind != yaml.ScalarNode {
			continue
		}
		if k.Value == key {
			return NewYAML(y.n.Content[i+1]), true
		}
		if k.Tag == "!!merge" || k.Value == "<<" {
			merges = append(merges, resolve(y.n.Content[i+1]))
		}
	}
	for _, m := range merges {
		if m == nil {
			continue
		}
		if m.Kind == yaml.SequenceNode {
			for _, c := range m.Content {
				if v, ok := NewYAML(c).Get(key); ok {
					return v, true
				}
			}
			continue
		}
		if v, ok := (YAML{n: m}).Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

func (y YAML) Tag() (string, bool) {
	if y.n == nil {
		return "", false
	}
	tag := y.n.Tag
	if tag == "" || tag == "!" || strings.HasPrefix(tag, "!!") || strings.HasPrefix(tag, "tag:yaml.org,2002:") {
		return "", false
	}
	return strings.TrimPrefix(tag, "!"), true
}

func (y YAML) Seq() ([]Node, bool) {
	if y.n == nil || y.n.Kind != yaml.SequenceNode {
		return nil, false
	}
	out := make([]Node, 0, len(y.n.Content))
	for _, c := range y.n.Content {
		out = append(out, NewYAML(c))
	}
	return out, true
}

func (y YAML) Map() ([]Entry, bool) {
	if y.n == nil || y.n.Kind != yaml.MappingNode {
		return nil, false
	}
	out := make([]Entry, 0, len(y.n.Content)/2)
	for i := 0; i+1 < len(y.n.Content); i += 2 {
		k := resolve(y.n.Content[i])
		if k == nil || k.Kind != yaml.ScalarNode || k.Value == "<<" {
			continue
		}
		out = append(out, Entry{Key: k.Value, Value: NewYAML(y.n.Content[i+1])})
	}
	return out, true
}

func (y YAML) Str() (string, bool) {
	if y.n == nil || y.n.Kind != yaml.ScalarNode {
		return "", false
	}
	if y.n.Tag == "!!null" {
		return "", false
	}
	return y.n.Value, true
}

// Line reports the source line, for diagnostics.
func (y YAML) Line() int {
	if y.n == nil {
		return 0
	}
	return y.n.Line
}
