package preload

import (
	"fmt"
	"sort"

	"github.com/archsim/cachesim/pkg/simerr"
)

// FlatPacket wraps a single flat dictionary of strings. It only supports
// scalars; nested maps and lists are unimplemented, matching the
// original's flat-preload-file parser.
type FlatPacket struct {
	values map[string]string
}

func NewFlatPacket() *FlatPacket {
	return &FlatPacket{values: map[string]string{}}
}

func (f *FlatPacket) AddValue(key, val string) { f.values[key] = val }

func (f *FlatPacket) HasKey(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *FlatPacket) ScalarValue(key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", simerr.Newf(simerr.ContractError, component, "preload packet does not have key %q", key)
	}
	return v, nil
}

func (f *FlatPacket) Map(key string) (Packet, error) {
	return nil, simerr.New(simerr.Unsupported, component, "flat preload packets do not implement nested packets")
}

func (f *FlatPacket) List(key string) ([]Packet, error) {
	return nil, simerr.New(simerr.Unsupported, component, "flat preload packets do not implement lists")
}

func (f *FlatPacket) ListSelf() ([]Packet, error) {
	return nil, simerr.New(simerr.Unsupported, component, "flat preload packets do not implement lists")
}

func (f *FlatPacket) Print() string {
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for _, k := range keys {
		s += fmt.Sprintf("%s: %s ", k, f.values[k])
	}
	return s
}
