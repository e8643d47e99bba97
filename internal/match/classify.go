package match

import "github.com/acmatch/acmatch/internal/term"

// VarInfo records, for one variable name referenced within a commutative
// pattern, its shared minimum absorbed length and the conjunction of every
// constraint attached to any of its occurrences (spec §3).
type VarInfo struct {
	MinCount   int
	Constraint term.Constraint
}

// CommutativeParts is the classification of a commutative operation's
// operand list into the buckets spec §3/§4.1 define: constants, syntactic
// non-constants, sequence and fixed named variables, unnamed wildcards, and
// everything else ("rest"). It is computed once per commutative operation
// encountered during a match and is immutable thereafter (spec §3
// lifecycle).
type CommutativeParts struct {
	OpType      string
	Associative bool

	// FromArgs is the pattern operation's own from-args constructor, carried
	// through classification so the associative re-wrap of spec §4.4.3.d
	// ("a fresh P.op_type-operation built from value (via its from-args
	// constructor)") builds a real operator instance rather than falling
	// through to term.Operation's generic default. Set by the caller after
	// ClassifyCommutative returns (ClassifyCommutative itself only sees the
	// operand list, not the owning Operation).
	FromArgs func(args []term.Expression) term.Operation

	Constant  *term.Multiset
	Syntactic *term.Multiset
	Rest      *term.Multiset

	SequenceVarCounts map[string]int
	SequenceVarInfos  map[string]VarInfo
	FixedVarCounts    map[string]int
	FixedVarInfos     map[string]VarInfo

	Length                    int
	SequenceVariableMinLength int
	FixedVariableLength       int
	WildcardMinLength         int
	WildcardFixed             *bool // nil: no unnamed wildcard occurs

	// byHead indexes Rest∪Syntactic expressions by Head() (see SPEC_FULL.md
	// §4). Nothing reads it: the rest-expression factories of §4.4 step 3.b
	// filter the residual multiset by Head() directly, so it changes no
	// yielded substitution.
	byHead map[string][]term.Expression
}

// ClassifyCommutative implements spec §4.1 (C1).
func ClassifyCommutative(opType string, associative bool, operands []term.Expression) (*CommutativeParts, error) {
	p := &CommutativeParts{
		OpType:            opType,
		Associative:       associative,
		Constant:          term.NewMultiset(),
		Syntactic:         term.NewMultiset(),
		Rest:              term.NewMultiset(),
		SequenceVarCounts: map[string]int{},
		SequenceVarInfos:  map[string]VarInfo{},
		FixedVarCounts:    map[string]int{},
		FixedVarInfos:     map[string]VarInfo{},
		byHead:            map[string][]term.Expression{},
	}

	for _, operand := range operands {
		p.Length++

		if operand.IsConstant() {
			p.Constant.Add(operand, 1)
			continue
		}

		switch v := operand.(type) {
		case term.Variable:
			inner := v.Inner
			if inner.FixedSize {
				if err := updateVarInfo(p.FixedVarInfos, v.Name, inner.MinCount, v.Constraint); err != nil {
					return nil, err
				}
				p.FixedVarCounts[v.Name]++
				p.FixedVariableLength += inner.MinCount
			} else {
				if err := updateVarInfo(p.SequenceVarInfos, v.Name, inner.MinCount, v.Constraint); err != nil {
					return nil, err
				}
				p.SequenceVarCounts[v.Name]++
				p.SequenceVariableMinLength += inner.MinCount
			}
		case term.Wildcard:
			p.WildcardMinLength += v.MinCount
			if p.WildcardFixed == nil {
				fixed := v.FixedSize
				p.WildcardFixed = &fixed
			} else {
				fixed := *p.WildcardFixed && v.FixedSize
				p.WildcardFixed = &fixed
			}
		default:
			if operand.IsSyntactic() {
				p.Syntactic.Add(operand, 1)
				p.byHead[operand.Head()] = append(p.byHead[operand.Head()], operand)
			} else {
				p.Rest.Add(operand, 1)
				p.byHead[operand.Head()] = append(p.byHead[operand.Head()], operand)
			}
		}
	}

	return p, nil
}

// updateVarInfo applies spec §4.1(a): store on first sight; on a repeat,
// assert min_count agreement and combine constraints by conjunction.
func updateVarInfo(infos map[string]VarInfo, name string, minCount int, constraint term.Constraint) error {
	existing, ok := infos[name]
	if !ok {
		infos[name] = VarInfo{MinCount: minCount, Constraint: constraint}
		return nil
	}
	if existing.MinCount != minCount {
		return preconditionf("variable %q reused with inconsistent min_count (%d vs %d)", name, existing.MinCount, minCount)
	}
	infos[name] = VarInfo{MinCount: minCount, Constraint: term.CombineConstraints(existing.Constraint, constraint)}
	return nil
}
