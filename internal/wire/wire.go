// Package wire implements the trace store behind the CLI's `match -record`
// flag and `replay` subcommand: a small
// bit-packed header (spec SPEC_FULL.md §3's DOMAIN STACK) framing a
// YAML-encoded body of recorded (pattern, subject, substitutions) triples.
// The header is built and parsed with the real funbit builder/matcher API
// the teacher embeds for its native bitstring (<<...>>) construct
// (internal/evaluator/builtins_ws.go's WebSocket framer is the closest
// teacher analogue: a fixed bit-field header in front of a variable-length
// body), adapted here from a network frame to a file format.
package wire

import (
	"fmt"
	"os"
	"sort"

	"github.com/funvibe/funbit/pkg/funbit"
	"gopkg.in/yaml.v3"

	"github.com/acmatch/acmatch/internal/term"
)

// Magic identifies an acmatch trace file; Version lets the body format
// change without breaking old readers' ability to at least recognize the
// file and report a clear "unsupported version" error.
const (
	Magic   byte = 0xAC
	Version byte = 1
)

// Flag bits carried in the header's flags byte. None are defined yet; the
// byte exists so a future format revision (e.g. compressed bodies) does not
// need to grow the header.
const (
	FlagNone byte = 0
)

// Binding is one recorded variable binding, printed to text rather than
// carrying a live term.Value: Value can hold a term.Expression with
// func fields (Wildcard.SymbolType, Operation.FromArgs) that YAML
// cannot round-trip, and a trace file is a record of what matched, not a
// replayable program.
type Binding struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Record is one recorded match call: the pattern and subject as
// patternlang source text, and every substitution the core yielded for
// them.
type Record struct {
	Pattern       string      `yaml:"pattern"`
	Subject       string      `yaml:"subject"`
	Substitutions [][]Binding `yaml:"substitutions"`
}

// RecordSubstitutions converts the live substitutions a match call yielded
// into the text form a Record stores, in a stable name order so two runs
// over the same inputs produce byte-identical trace files.
func RecordSubstitutions(subs []term.Substitution) [][]Binding {
	out := make([][]Binding, len(subs))
	for i, s := range subs {
		names := s.Names()
		sort.Strings(names)
		bindings := make([]Binding, len(names))
		for j, name := range names {
			value, _ := s.Get(name)
			bindings[j] = Binding{Name: name, Value: value.String()}
		}
		out[i] = bindings
	}
	return out
}

// WriteFile frames records behind the bit-packed header and writes the
// whole trace to path.
func WriteFile(path string, records []Record) error {
	if len(records) > 1<<32-1 {
		return fmt.Errorf("wire: %d records exceeds the 32-bit record count field", len(records))
	}

	body, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("wire: encoding records: %w", err)
	}

	header, err := buildHeader(FlagNone, uint32(len(records)))
	if err != nil {
		return fmt.Errorf("wire: building header: %w", err)
	}

	out := append(header, body...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("wire: writing %s: %w", path, err)
	}
	return nil
}

// ReadFile parses the header and decodes the trailing YAML body, verifying
// the body's record count matches the header's.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wire: reading %s: %w", path, err)
	}

	const headerBytes = 7 // magic(8) + version(8) + flags(8) + count(32), byte-aligned
	if len(data) < headerBytes {
		return nil, fmt.Errorf("wire: %s is too short to contain a header", path)
	}

	_, _, count, err := parseHeader(data[:headerBytes])
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := yaml.Unmarshal(data[headerBytes:], &records); err != nil {
		return nil, fmt.Errorf("wire: decoding records: %w", err)
	}
	if uint32(len(records)) != count {
		return nil, fmt.Errorf("wire: header declares %d records, body has %d", count, len(records))
	}
	return records, nil
}

// buildHeader constructs the 7-byte header: magic, version, flags (each one
// byte) followed by a big-endian 32-bit record count, using funbit's
// Erlang-style segment builder rather than hand-rolled byte shifting.
func buildHeader(flags byte, count uint32) ([]byte, error) {
	b := funbit.NewBuilder()
	funbit.AddInteger(b, int64(Magic), funbit.WithSize(8))
	funbit.AddInteger(b, int64(Version), funbit.WithSize(8))
	funbit.AddInteger(b, int64(flags), funbit.WithSize(8))
	funbit.AddInteger(b, int64(count), funbit.WithSize(32), funbit.WithEndianness("big"))

	bs, err := funbit.Build(b)
	if err != nil {
		return nil, err
	}
	return bs.ToBytes(), nil
}

// parseHeader matches the 7-byte header built by buildHeader back into its
// fields, using funbit's matcher rather than manual bit masking.
func parseHeader(data []byte) (version, flags byte, count uint32, err error) {
	bs := funbit.NewBitStringFromBytes(data)
	m := funbit.NewMatcher()

	var magic, ver, fl, cnt int
	funbit.Integer(m, &magic, funbit.WithSize(8))
	funbit.Integer(m, &ver, funbit.WithSize(8))
	funbit.Integer(m, &fl, funbit.WithSize(8))
	funbit.Integer(m, &cnt, funbit.WithSize(32), funbit.WithEndianness("big"))

	if _, err := funbit.Match(m, bs); err != nil {
		return 0, 0, 0, fmt.Errorf("wire: parsing header: %w", err)
	}
	if byte(magic) != Magic {
		return 0, 0, 0, fmt.Errorf("wire: bad magic byte 0x%02X, want 0x%02X", magic, Magic)
	}
	if byte(ver) != Version {
		return 0, 0, 0, fmt.Errorf("wire: unsupported version %d, want %d", ver, Version)
	}
	return byte(ver), byte(fl), uint32(cnt), nil
}
