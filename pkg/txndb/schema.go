package txndb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/archsim/cachesim/pkg/simerr"
)

// fieldType is the per-field type code carried by data.dat: 0 = integer,
// 1 = string, anything else is rendered as "none".
type fieldType uint16

const (
	fieldInt fieldType = iota
	fieldString
	fieldNone = fieldType(0xFFFF)
)

// format is the display rendering selected by display_format.dat.
type format uint16

const (
	formatDecimal format = iota
	formatHex
	formatOctal
)

// pairSchema describes one pair type: field count, names, per-field byte
// sizes, types and display formats. Position 0 is always the synthetic
// "pairid" field.
type pairSchema struct {
	length  uint16
	names   []string
	sizes   []uint16
	types   []fieldType
	formats []format
}

// stringMapKey is the lookup key for the string-interning table:
// (pairID, fieldIndex, integerValue). fieldIndex is 0-based over the
// non-synthetic fields (field 1 of the record is index 0 here).
type stringMapKey struct {
	pairID     uint16
	fieldIndex uint16
	intValue   uint64
}

// schemaTables holds the three in-memory lookup structures built once at
// open from map.dat, data.dat, display_format.dat and string_map.dat.
// All three are fully known at parse time - string_map.dat is read
// exhaustively in one pass before the reader serves a single query, so
// all three are plain maps rather than anything bounded.
type schemaTables struct {
	locMap      map[uint32]uint16
	pairSchemas map[uint16]*pairSchema
	stringMap   map[stringMapKey]string
}

func newSchemaTables() *schemaTables {
	return &schemaTables{
		locMap:      map[uint32]uint16{},
		pairSchemas: map[uint16]*pairSchema{},
		stringMap:   map[stringMapKey]string{},
	}
}

// loadSchemaTables parses the four auxiliary files found under dir,
// building the in-memory tables used for Pair reconstruction.
func loadSchemaTables(dir string) (*schemaTables, error) {
	t := newSchemaTables()

	if err := parseColonFile(dir+"/map.dat", func(fields []string) error {
		if len(fields) < 2 {
			return corrupt("map.dat line has too few fields: %v", fields)
		}
		loc, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return corrupt("map.dat: bad location id %q", fields[0])
		}
		pairID, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			return corrupt("map.dat: bad pair id %q", fields[1])
		}
		t.locMap[uint32(loc)] = uint16(pairID)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := parseColonFile(dir+"/data.dat", func(fields []string) error {
		if len(fields) < 2 {
			return corrupt("data.dat line has too few fields: %v", fields)
		}
		pairID, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			return corrupt("data.dat: bad pair id %q", fields[0])
		}
		fieldCount, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			return corrupt("data.dat: bad field count %q", fields[1])
		}

		s := &pairSchema{
			length:  uint16(fieldCount) + 1,
			names:   []string{"pairid"},
			sizes:   []uint16{2},
			types:   []fieldType{fieldInt},
			formats: []format{formatDecimal},
		}

		rest := fields[2:]
		for i := 0; i < int(fieldCount); i++ {
			base := i * 3
			if base+2 >= len(rest) {
				return corrupt("data.dat: pair %d truncated field list", pairID)
			}
			size, err := strconv.ParseUint(rest[base+1], 10, 16)
			if err != nil {
				return corrupt("data.dat: pair %d bad field size %q", pairID, rest[base+1])
			}
			typ, err := strconv.ParseUint(rest[base+2], 10, 16)
			if err != nil {
				return corrupt("data.dat: pair %d bad field type %q", pairID, rest[base+2])
			}
			s.names = append(s.names, rest[base])
			s.sizes = append(s.sizes, uint16(size))
			s.types = append(s.types, fieldTypeFromCode(typ))
			s.formats = append(s.formats, formatDecimal)
		}

		t.pairSchemas[uint16(pairID)] = s
		return nil
	}); err != nil {
		return nil, err
	}

	if err := parseColonFile(dir+"/display_format.dat", func(fields []string) error {
		if len(fields) < 1 {
			return nil
		}
		pairID, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			return corrupt("display_format.dat: bad pair id %q", fields[0])
		}
		s, ok := t.pairSchemas[uint16(pairID)]
		if !ok {
			return corrupt("display_format.dat: unknown pair id %d", pairID)
		}
		codes := fields[1:]
		for i := 1; i < len(s.formats) && i-1 < len(codes); i++ {
			s.formats[i] = formatFromCode(codes[i-1])
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := parseColonFile(dir+"/string_map.dat", func(fields []string) error {
		if len(fields) < 4 {
			return corrupt("string_map.dat line has too few fields: %v", fields)
		}
		pairID, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			return corrupt("string_map.dat: bad pair id %q", fields[0])
		}
		fieldIndex, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			return corrupt("string_map.dat: bad field index %q", fields[1])
		}
		intValue, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return corrupt("string_map.dat: bad int value %q", fields[2])
		}
		t.stringMap[stringMapKey{uint16(pairID), uint16(fieldIndex), intValue}] = fields[3]
		return nil
	}); err != nil {
		return nil, err
	}

	return t, nil
}

func fieldTypeFromCode(code uint64) fieldType {
	switch code {
	case 0:
		return fieldInt
	case 1:
		return fieldString
	default:
		return fieldNone
	}
}

func formatFromCode(code string) format {
	switch strings.ToLower(code) {
	case "hex", "1":
		return formatHex
	case "octal", "oct", "2":
		return formatOctal
	default:
		return formatDecimal
	}
}

// renderInt renders v per f: hex gets a "0x" prefix, octal gets a "0"
// prefix, decimal gets none.
func renderInt(v uint64, f format) string {
	switch f {
	case formatHex:
		return fmt.Sprintf("0x%x", v)
	case formatOctal:
		return fmt.Sprintf("0%o", v)
	default:
		return strconv.FormatUint(v, 10)
	}
}

// parseColonFile reads path line by line, splits each non-empty line on
// ':', and hands the fields to fn. Unknown trailing tokens are tolerated
// by construction since fn only looks at the fields it needs.
func parseColonFile(path string, fn func(fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return simerr.Wrap(simerr.IoError, component, "failed to open "+path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if err := fn(fields); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return simerr.Wrap(simerr.IoError, component, "failed to read "+path, err)
	}
	return nil
}
