package preload

import (
	"bytes"

	"github.com/archsim/cachesim/pkg/simerr"
	"gopkg.in/yaml.v3"
)

// Emitter accumulates preload data as a generic tree and serializes it to
// YAML. It is a thin wrapper so the output format can change without
// touching callers.
type Emitter struct {
	root map[string]any
}

// NewEmitter returns an emitter ready to accept top-level entity entries.
func NewEmitter() *Emitter {
	return &Emitter{root: map[string]any{}}
}

// PutEntity stores the dumped value for one preloadable entity's path.
func (e *Emitter) PutEntity(path string, value any) {
	e.root[path] = value
}

// NewListBuilder returns a helper for building the "list of maps" shape
// PreloadDump implementations typically emit (e.g. a cache's "lines" key).
func NewListBuilder() *ListBuilder { return &ListBuilder{} }

// ListBuilder accumulates a []map[string]any in emission order.
type ListBuilder struct {
	items []map[string]any
}

// Begin starts a new map entry and returns it for the caller to populate.
func (lb *ListBuilder) Begin() map[string]any {
	m := map[string]any{}
	lb.items = append(lb.items, m)
	return m
}

func (lb *ListBuilder) Build() []any {
	out := make([]any, len(lb.items))
	for i, m := range lb.items {
		out[i] = m
	}
	return out
}

// AssertValid verifies the accumulated tree actually marshals to YAML;
// this can only fail on cyclic or unmarshalable Go values.
func (e *Emitter) AssertValid() error {
	if _, err := yaml.Marshal(e.root); err != nil {
		return simerr.Wrap(simerr.ContractError, component, "preload emitter produced invalid data", err)
	}
	return nil
}

// Print renders the accumulated tree as YAML.
func (e *Emitter) Print() (string, error) {
	if err := e.AssertValid(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(e.root); err != nil {
		return "", simerr.Wrap(simerr.IoError, component, "failed to encode preload emitter output", err)
	}
	_ = enc.Close()
	return buf.String(), nil
}
