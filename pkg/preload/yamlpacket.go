package preload

import (
	"fmt"
	"io"

	"github.com/archsim/cachesim/pkg/simerr"
	"gopkg.in/yaml.v3"
)

// YAMLPacket wraps a decoded YAML value (map[string]any, []any or a
// scalar): read-only, cheap to construct, no copy of the underlying
// document.
type YAMLPacket struct {
	value any
}

// NewYAMLPacket wraps an already-decoded YAML value.
func NewYAMLPacket(value any) *YAMLPacket { return &YAMLPacket{value: value} }

// ParseYAMLDocument decodes every top-level key of a YAML stream as an
// (entityPath -> Packet) pair: one dictionary per tree-node path found
// at the document root.
func ParseYAMLDocument(r io.Reader) (map[string]Packet, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, simerr.Wrap(simerr.CorruptData, component, "failed to parse preload yaml", err)
	}
	out := make(map[string]Packet, len(doc))
	for path, v := range doc {
		out[path] = NewYAMLPacket(v)
	}
	return out, nil
}

func (y *YAMLPacket) asMap() (map[string]any, bool) {
	m, ok := y.value.(map[string]any)
	return m, ok
}

func (y *YAMLPacket) asList() ([]any, bool) {
	l, ok := y.value.([]any)
	return l, ok
}

func (y *YAMLPacket) HasKey(key string) bool {
	m, ok := y.asMap()
	if !ok {
		return false
	}
	_, present := m[key]
	return present
}

func (y *YAMLPacket) ScalarValue(key string) (string, error) {
	m, ok := y.asMap()
	if !ok {
		return "", simerr.Newf(simerr.ContractError, component, "preload packet is not a map, cannot read key %q", key)
	}
	v, present := m[key]
	if !present {
		return "", simerr.Newf(simerr.ContractError, component, "preload packet does not have key %q", key)
	}
	return fmt.Sprintf("%v", v), nil
}

func (y *YAMLPacket) Map(key string) (Packet, error) {
	m, ok := y.asMap()
	if !ok {
		return nil, simerr.Newf(simerr.ContractError, component, "preload packet is not a map, cannot read key %q", key)
	}
	v, present := m[key]
	if !present {
		return nil, simerr.Newf(simerr.ContractError, component, "preload packet does not have key %q", key)
	}
	return NewYAMLPacket(v), nil
}

func (y *YAMLPacket) List(key string) ([]Packet, error) {
	m, ok := y.asMap()
	if !ok {
		return nil, simerr.Newf(simerr.ContractError, component, "preload packet is not a map, cannot read key %q", key)
	}
	v, present := m[key]
	if !present {
		return nil, simerr.Newf(simerr.ContractError, component, "preload packet does not have key %q", key)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, simerr.Newf(simerr.ContractError, component, "preload packet key %q is not a list", key)
	}
	return y.wrapList(items), nil
}

func (y *YAMLPacket) ListSelf() ([]Packet, error) {
	items, ok := y.asList()
	if !ok {
		return nil, simerr.New(simerr.ContractError, component, "preload packet is not itself a list")
	}
	return y.wrapList(items), nil
}

func (y *YAMLPacket) wrapList(items []any) []Packet {
	out := make([]Packet, len(items))
	for i, it := range items {
		out[i] = NewYAMLPacket(it)
	}
	return out
}

func (y *YAMLPacket) Print() string {
	b, err := yaml.Marshal(y.value)
	if err != nil {
		return fmt.Sprintf("<unprintable preload packet: %v>", err)
	}
	return "{" + string(b) + "}"
}
