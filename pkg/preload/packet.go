// Package preload implements the hierarchical preload-descriptor tree
// (Packet), a YAML-backed and a flat concrete implementation of it, an
// emitter for dumping cache contents back to the same descriptor form,
// and the Preloader that routes descriptors to preloadable entities by
// path pattern.
//
// Packet is an interface plus one Go type per concrete backend, and the
// typed scalar accessor is a generic function rather than a method
// specialized per type.
package preload

import (
	"fmt"
	"strconv"

	"github.com/archsim/cachesim/pkg/simerr"
)

const component = "PRELOAD"

// Packet is a node in a preload descriptor tree: at any node, either a
// scalar (lexically cast to a requested type on demand), a map of keyed
// children, or a list of ordered children.
type Packet interface {
	// HasKey reports whether the packet has the given key (as a scalar,
	// map or list entry).
	HasKey(key string) bool
	// ScalarValue returns the raw string form of a scalar at key, for
	// GetScalar to lexically cast. Fails with a typed error if key is
	// unknown or not a scalar.
	ScalarValue(key string) (string, error)
	// Map returns the nested packet at key.
	Map(key string) (Packet, error)
	// List returns the ordered children at key.
	List(key string) ([]Packet, error)
	// ListSelf returns the current node's own children as a list, for
	// when the packet itself represents a list.
	ListSelf() ([]Packet, error)
	// Print renders the packet for diagnostics/logging.
	Print() string
}

// GetScalar extracts the value at key and lexically casts it to T. T is
// restricted to the scalar kinds the preload format actually carries.
func GetScalar[T string | int | int64 | uint64 | uint32 | bool | float64](p Packet, key string) (T, error) {
	var zero T
	if !p.HasKey(key) {
		return zero, simerr.Newf(simerr.ContractError, component, "preload packet does not have key %q", key)
	}
	raw, err := p.ScalarValue(key)
	if err != nil {
		return zero, err
	}
	return lexicalCast[T](raw)
}

func lexicalCast[T string | int | int64 | uint64 | uint32 | bool | float64](s string) (T, error) {
	var zero T
	var result any
	switch any(zero).(type) {
	case string:
		result = s
	case int:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return zero, simerr.Wrap(simerr.ContractError, component, "lexical cast to int failed", err)
		}
		result = int(v)
	case int64:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return zero, simerr.Wrap(simerr.ContractError, component, "lexical cast to int64 failed", err)
		}
		result = v
	case uint64:
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return zero, simerr.Wrap(simerr.ContractError, component, "lexical cast to uint64 failed", err)
		}
		result = v
	case uint32:
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return zero, simerr.Wrap(simerr.ContractError, component, "lexical cast to uint32 failed", err)
		}
		result = uint32(v)
	case bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return zero, simerr.Wrap(simerr.ContractError, component, "lexical cast to bool failed", err)
		}
		result = v
	case float64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return zero, simerr.Wrap(simerr.ContractError, component, "lexical cast to float64 failed", err)
		}
		result = v
	default:
		return zero, fmt.Errorf("[%s]> unsupported scalar type", component)
	}
	return result.(T), nil
}
