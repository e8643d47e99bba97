package patternlang

import (
	"strconv"
	"strings"

	"github.com/acmatch/acmatch/internal/term"
)

// Print renders an expression back into pattern-language source, the
// inverse of Parse's grammar (minus where-clauses and type= attributes:
// constraints and SymbolType predicates are opaque closures once attached
// and cannot be printed back to a name).
// internal/rpc and internal/wire use this to carry expressions as text
// across process boundaries.
func Print(e term.Expression) string {
	var b strings.Builder
	print1(&b, e)
	return b.String()
}

func print1(b *strings.Builder, e term.Expression) {
	switch v := e.(type) {
	case term.Symbol:
		b.WriteString(v.Name)
	case term.Wildcard:
		printWildcard(b, "", v)
	case term.Variable:
		printWildcard(b, v.Name, v.Inner)
	case term.Operation:
		b.WriteString(v.OpType)
		b.WriteByte('#')
		if v.Commutative || v.Associative {
			var flags []string
			if v.Commutative {
				flags = append(flags, "comm")
			}
			if v.Associative {
				flags = append(flags, "assoc")
			}
			b.WriteString(strings.Join(flags, ","))
		}
		b.WriteByte('(')
		for i, operand := range v.Operands {
			if i > 0 {
				b.WriteString(", ")
			}
			print1(b, operand)
		}
		b.WriteByte(')')
	default:
		b.WriteString("<?>")
	}
}

func printWildcard(b *strings.Builder, name string, w term.Wildcard) {
	b.WriteString(name)
	switch {
	case w.FixedSize:
		b.WriteString("_")
	case w.MinCount == 0:
		b.WriteString("___")
	default:
		b.WriteString("__")
	}

	var attrs []string
	if w.FixedSize && w.MinCount != 1 {
		attrs = append(attrs, "min="+strconv.Itoa(w.MinCount))
	}
	if !w.FixedSize && w.MinCount != 0 && w.MinCount != 1 {
		attrs = append(attrs, "min="+strconv.Itoa(w.MinCount))
	}
	if len(attrs) > 0 {
		b.WriteByte('{')
		b.WriteString(strings.Join(attrs, ","))
		b.WriteByte('}')
	}
}
