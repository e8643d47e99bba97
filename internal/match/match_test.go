package match

import (
	"iter"
	"sort"
	"testing"

	"github.com/acmatch/acmatch/internal/term"
)

func sym(name string) term.Symbol { return term.NewSymbol(name) }

func fixedWildcard(min int) term.Wildcard  { return term.Wildcard{MinCount: min, FixedSize: true} }
func sequenceWildcard(min int) term.Wildcard { return term.Wildcard{MinCount: min, FixedSize: false} }

func fixedVar(name string, min int) term.Variable {
	return term.Variable{Name: name, Inner: fixedWildcard(min)}
}

func sequenceVar(name string, min int) term.Variable {
	return term.Variable{Name: name, Inner: sequenceWildcard(min)}
}

func comm(opType string, operands ...term.Expression) term.Operation {
	return term.Operation{OpType: opType, Operands: operands, Commutative: true}
}

func assoc(opType string, operands ...term.Expression) term.Operation {
	return term.Operation{OpType: opType, Operands: operands, Associative: true}
}

func matchAll(t *testing.T, subjects []term.Expression, pattern term.Expression) []term.Substitution {
	t.Helper()
	var got []term.Substitution
	for s := range Match(subjects, pattern, term.NewSubstitution()) {
		got = append(got, s)
	}
	return got
}

func single(e term.Expression) []term.Expression { return []term.Expression{e} }

// Scenario 1: f(a, x_) vs f(a,b) -> one match x=b.
func TestScenarioFixedVariableOrderMatches(t *testing.T) {
	pattern := comm("f", sym("a"), fixedVar("x", 1))
	subject := comm("f", sym("a"), sym("b"))
	results := matchAll(t, single(subject), pattern)
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match, got %d", len(results))
	}
	v, ok := results[0].Get("x")
	if !ok || !v.Equal(term.Single(sym("b"))) {
		t.Fatalf("want x=b, got %v", v)
	}
}

// Scenario 2: f(a, x_) vs f(b, a) -> one match x=b (commutativity).
func TestScenarioFixedVariableCommutes(t *testing.T) {
	pattern := comm("f", sym("a"), fixedVar("x", 1))
	subject := comm("f", sym("b"), sym("a"))
	results := matchAll(t, single(subject), pattern)
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match, got %d", len(results))
	}
	v, _ := results[0].Get("x")
	if !v.Equal(term.Single(sym("b"))) {
		t.Fatalf("want x=b, got %v", v)
	}
}

// Scenario 3: f(x__) vs f(a,b,c) -> one match x=sorted[a,b,c].
func TestScenarioSequenceVariableBindsSortedTuple(t *testing.T) {
	pattern := comm("f", sequenceVar("x", 1))
	subject := comm("f", sym("a"), sym("b"), sym("c"))
	results := matchAll(t, single(subject), pattern)
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match, got %d", len(results))
	}
	v, _ := results[0].Get("x")
	if !v.IsTuple() || len(v.Tuple) != 3 {
		t.Fatalf("want a 3-element tuple binding, got %v", v)
	}
	names := make([]string, 3)
	for i, e := range v.Tuple {
		names[i] = e.(term.Symbol).Name
	}
	if !sort.StringsAreSorted(names) {
		t.Fatalf("want canonically sorted tuple, got %v", names)
	}
}

// Scenario 4: f(x_, x_) (repeated name) vs f(a,a) -> one match x=a; vs f(a,b) -> no match.
func TestScenarioRepeatedVariableNameRequiresEqualBinding(t *testing.T) {
	pattern := comm("f", fixedVar("x", 1), fixedVar("x", 1))

	matchSubject := comm("f", sym("a"), sym("a"))
	results := matchAll(t, single(matchSubject), pattern)
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match for f(a,a), got %d", len(results))
	}
	v, _ := results[0].Get("x")
	if !v.Equal(term.Single(sym("a"))) {
		t.Fatalf("want x=a, got %v", v)
	}

	noMatchSubject := comm("f", sym("a"), sym("b"))
	noResults := matchAll(t, single(noMatchSubject), pattern)
	if len(noResults) != 0 {
		t.Fatalf("want no matches for f(a,b) against a repeated-name pattern, got %d", len(noResults))
	}
}

// Scenario 5: g(a, x_, b) with g associative, subject g(a,c,d,b) -> one match x=g(c,d).
func TestScenarioAssociativeRewrap(t *testing.T) {
	pattern := term.Operation{OpType: "g", Associative: true, Operands: []term.Expression{sym("a"), fixedVar("x", 1), sym("b")}}
	subject := term.Operation{OpType: "g", Associative: true, Operands: []term.Expression{sym("a"), sym("c"), sym("d"), sym("b")}}
	results := matchAll(t, single(subject), pattern)
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match, got %d", len(results))
	}
	v, _ := results[0].Get("x")
	if v.IsTuple() {
		t.Fatalf("want a single wrapped operation, got tuple %v", v)
	}
	wrapped, ok := v.Single.(term.Operation)
	if !ok || wrapped.OpType != "g" || len(wrapped.Operands) != 2 {
		t.Fatalf("want x=g(c,d), got %v", v)
	}
	if wrapped.Operands[0].(term.Symbol).Name != "c" || wrapped.Operands[1].(term.Symbol).Name != "d" {
		t.Fatalf("want operands [c,d] in original order, got %v", wrapped.Operands)
	}
}

// Scenario 6: f(x___, y___) (both min_count 0) on f(a,b). With two distinguishable symbols, the
// complete set of distinct slot assignments is (x=[],y=[a,b]), (x=[a],y=[b]),
// (x=[b],y=[a]), (x=[a,b],y=[]) — four, not three: the size-1 split has two
// genuinely distinct assignments (which element goes to which variable), and
// the spec's own completeness invariant (§8: "the enumerator must produce
// every partition; duplicates only arise from genuinely distinct slot
// assignments") requires both to be enumerated.
func TestScenarioTwoSequenceVariablesFullPartition(t *testing.T) {
	pattern := comm("f", sequenceVar("x", 0), sequenceVar("y", 0))
	subject := comm("f", sym("a"), sym("b"))
	results := matchAll(t, single(subject), pattern)
	if len(results) != 4 {
		t.Fatalf("want exactly 4 matches, got %d", len(results))
	}
	seen := map[string]bool{}
	for _, r := range results {
		xv, _ := r.Get("x")
		yv, _ := r.Get("y")
		seen[tupleKey(xv)+"|"+tupleKey(yv)] = true
	}
	want := []string{"|a,b", "a|b", "b|a", "a,b|"}
	for _, k := range want {
		if !seen[k] {
			t.Fatalf("missing expected split %q among results %v", k, seen)
		}
	}
}

func tupleKey(v term.Value) string {
	if !v.IsTuple() {
		return v.Single.(term.Symbol).Name
	}
	names := make([]string, len(v.Tuple))
	for i, e := range v.Tuple {
		names[i] = e.(term.Symbol).Name
	}
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

// Boundary: empty pattern operands match only empty subjects.
func TestBoundaryEmptyOperandsMatchOnlyEmptySubjects(t *testing.T) {
	pattern := comm("f")
	if got := matchAll(t, single(comm("f")), pattern); len(got) != 1 {
		t.Fatalf("want empty pattern to match empty subject, got %d", len(got))
	}
	if got := matchAll(t, single(comm("f", sym("a"))), pattern); len(got) != 0 {
		t.Fatalf("want empty pattern not to match a non-empty subject, got %d", len(got))
	}
}

// Boundary: sequence wildcard with min_count=0 may bind the empty tuple.
func TestBoundarySequenceWildcardMinZeroBindsEmpty(t *testing.T) {
	pattern := comm("f", sequenceVar("x", 0))
	results := matchAll(t, single(comm("f")), pattern)
	if len(results) != 1 {
		t.Fatalf("want 1 match, got %d", len(results))
	}
	v, _ := results[0].Get("x")
	if !v.IsTuple() || len(v.Tuple) != 0 {
		t.Fatalf("want x bound to the empty tuple, got %v", v)
	}
}

// Boundary: fixed-size wildcard requires exact arity.
func TestBoundaryFixedWildcardRequiresExactArity(t *testing.T) {
	pattern := term.Operation{OpType: "g", Operands: []term.Expression{fixedVar("x", 2)}}
	tooFew := term.Operation{OpType: "g", Operands: []term.Expression{sym("a")}}
	exact := term.Operation{OpType: "g", Operands: []term.Expression{sym("a"), sym("b")}}

	if got := matchAll(t, single(tooFew), pattern); len(got) != 0 {
		t.Fatalf("want no match with too few operands, got %d", len(got))
	}
	if got := matchAll(t, single(exact), pattern); len(got) != 1 {
		t.Fatalf("want exactly 1 match with the exact arity, got %d", len(got))
	}
}

// A symbol pattern carrying a constraint rejects substitutions that fail it.
func TestSymbolConstraintGatesMatch(t *testing.T) {
	never := term.FuncConstraint{Fn: func(term.Substitution) bool { return false }}
	pattern := term.Symbol{Name: "a", Constraint: never}
	if got := matchAll(t, single(sym("a")), pattern); len(got) != 0 {
		t.Fatalf("want a failing constraint to suppress the match, got %d", len(got))
	}
}

// A variable's constraint is applied once it is bound, not before.
func TestVariableConstraintAppliedAfterBinding(t *testing.T) {
	onlyB := term.FuncConstraint{
		Vars: []string{"x"},
		Fn: func(s term.Substitution) bool {
			v, ok := s.Get("x")
			return ok && v.Single.(term.Symbol).Name == "b"
		},
	}
	pattern := comm("f", sym("a"), term.Variable{Name: "x", Inner: fixedWildcard(1), Constraint: onlyB})

	if got := matchAll(t, single(comm("f", sym("a"), sym("b"))), pattern); len(got) != 1 {
		t.Fatalf("want x=b to satisfy the constraint, got %d matches", len(got))
	}
	if got := matchAll(t, single(comm("f", sym("a"), sym("c"))), pattern); len(got) != 0 {
		t.Fatalf("want x=c to fail the constraint, got %d matches", len(got))
	}
}

func TestNonCommutativeOrderMatters(t *testing.T) {
	pattern := term.Operation{OpType: "g", Operands: []term.Expression{sym("a"), sym("b")}}
	if got := matchAll(t, single(term.Operation{OpType: "g", Operands: []term.Expression{sym("a"), sym("b")}}), pattern); len(got) != 1 {
		t.Fatalf("want ordered match to succeed, got %d", len(got))
	}
	if got := matchAll(t, single(term.Operation{OpType: "g", Operands: []term.Expression{sym("b"), sym("a")}}), pattern); len(got) != 0 {
		t.Fatalf("want a non-commutative operator not to accept reordered operands, got %d", len(got))
	}
}

func TestPreconditionViolationOnRepeatedVariableMinCountMismatch(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("want a PreconditionError panic for inconsistent min_count on a repeated variable name")
		}
		if _, ok := r.(*PreconditionError); !ok {
			t.Fatalf("want a *PreconditionError, got %T: %v", r, r)
		}
	}()
	pattern := comm("f", fixedVar("x", 1), fixedVar("x", 2))
	matchAll(t, single(comm("f", sym("a"), sym("b"), sym("c"))), pattern)
}

func TestPreconditionViolationOnNonConstantSubject(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("want a PreconditionError panic when a commutative subject is not constant")
		}
		if _, ok := r.(*PreconditionError); !ok {
			t.Fatalf("want a *PreconditionError, got %T: %v", r, r)
		}
	}()
	pattern := comm("f", fixedVar("x", 1))
	nonConstantSubject := comm("f", sequenceVar("y", 0))
	matchAll(t, single(nonConstantSubject), pattern)
}

// A fixed-size SymbolWildcard (spec §4.2) checks only subjects[0]'s subtype,
// even when further absorbed operands disagree.
func TestFixedSymbolWildcardChecksOnlyFirstSubject(t *testing.T) {
	isNumber := func(e term.Expression) bool {
		s, ok := e.(term.Symbol)
		return ok && s.SubType == "number"
	}
	pattern := term.Wildcard{MinCount: 2, FixedSize: true, SymbolType: isNumber}
	subjects := []term.Expression{
		term.Symbol{Name: "1", SubType: "number"},
		term.Symbol{Name: "x", SubType: "string"},
	}
	var got []term.Substitution
	for s := range Match(subjects, pattern, term.NewSubstitution()) {
		got = append(got, s)
	}
	if len(got) != 1 {
		t.Fatalf("want subjects[0]'s subtype alone to satisfy the wildcard, got %d matches", len(got))
	}

	mismatchFirst := []term.Expression{
		term.Symbol{Name: "x", SubType: "string"},
		term.Symbol{Name: "1", SubType: "number"},
	}
	got = nil
	for s := range Match(mismatchFirst, pattern, term.NewSubstitution()) {
		got = append(got, s)
	}
	if len(got) != 0 {
		t.Fatalf("want a mismatching subjects[0] to reject the match, got %d matches", len(got))
	}
}

// A sequence (non-fixed) SymbolWildcard never enforces a symbol subtype —
// spec §4.2 nests the SymbolWildcard check inside the fixed_size branch only.
func TestSequenceSymbolWildcardNeverChecksSymbolType(t *testing.T) {
	neverMatches := func(term.Expression) bool { return false }
	pattern := term.Wildcard{MinCount: 1, FixedSize: false, SymbolType: neverMatches}
	subjects := []term.Expression{sym("a"), sym("b")}
	var got []term.Substitution
	for s := range Match(subjects, pattern, term.NewSubstitution()) {
		got = append(got, s)
	}
	if len(got) != 1 {
		t.Fatalf("want a sequence wildcard to ignore SymbolType entirely, got %d matches", len(got))
	}
}

// The optional syntactic fast path of spec §4.4 step 2: MatchCommutativeOperation,
// called directly with a non-nil syntacticMatcher, splits residual subjects into
// syntactic and rest buckets, delegates the syntactic bucket to the hook, and
// folds its leftover back in with rest before finishing the sequence-variable
// allocation.
func TestSyntacticFastPathFoldsLeftoverIntoSequenceVariable(t *testing.T) {
	syntacticPatternOperand := term.Operation{OpType: "g", Operands: []term.Expression{fixedWildcard(1)}}
	pattern := comm("f", syntacticPatternOperand, sequenceVar("y", 0))

	parts, err := ClassifyCommutative(pattern.OpType, pattern.Associative, pattern.Operands)
	if err != nil {
		t.Fatalf("unexpected classification error: %v", err)
	}
	if parts.Syntactic.IsEmpty() {
		t.Fatal("want the g(_) operand classified as syntactic")
	}

	gOfA := term.Operation{OpType: "g", Operands: []term.Expression{sym("a")}}
	subjects := []term.Expression{gOfA, sym("b"), sym("c")}

	var fastPath SyntacticMatcher = func(syntacticSubjects, syntacticPattern *term.Multiset) iter.Seq[SyntacticMatchResult] {
		return func(yield func(SyntacticMatchResult) bool) {
			for _, entry := range syntacticSubjects.Entries() {
				op, ok := entry.Expr.(term.Operation)
				if !ok || op.Head() != syntacticPattern.Flatten()[0].Head() {
					continue
				}
				leftover := syntacticSubjects.Clone()
				leftover.Remove(entry.Expr, 1)
				if !yield(SyntacticMatchResult{Subst: term.NewSubstitution(), Leftover: leftover}) {
					return
				}
			}
		}
	}

	var results []term.Substitution
	for s := range MatchCommutativeOperation(subjects, parts, term.NewSubstitution(), Match, fastPath) {
		results = append(results, s)
	}
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match, got %d", len(results))
	}
	v, ok := results[0].Get("y")
	if !ok || !v.IsTuple() || len(v.Tuple) != 2 {
		t.Fatalf("want y bound to the 2-element leftover tuple, got %v", v)
	}
	names := []string{v.Tuple[0].(term.Symbol).Name, v.Tuple[1].(term.Symbol).Name}
	if names[0] != "b" || names[1] != "c" {
		t.Fatalf("want y=[b,c], got %v", names)
	}
}

// A commutative fixed variable with MinCount > 1 exercises fixedVarFactory's
// multi-slot enumeration (enumerate.FixedIntegerVectors), not the MinCount==1
// single-entry loop.
func TestCommutativeFixedVariableMinCountGreaterThanOne(t *testing.T) {
	pattern := comm("f", fixedVar("x", 2))

	repeated := comm("f", sym("a"), sym("a"))
	results := matchAll(t, single(repeated), pattern)
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match for f(a,a), got %d", len(results))
	}
	v, _ := results[0].Get("x")
	if !v.IsTuple() || len(v.Tuple) != 2 {
		t.Fatalf("want a 2-element tuple, got %v", v)
	}
	if v.Tuple[0].(term.Symbol).Name != "a" || v.Tuple[1].(term.Symbol).Name != "a" {
		t.Fatalf("want x=[a,a], got %v", v.Tuple)
	}

	distinct := comm("f", sym("a"), sym("b"))
	results = matchAll(t, single(distinct), pattern)
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match for f(a,b), got %d", len(results))
	}
	v, _ = results[0].Get("x")
	if !v.IsTuple() || len(v.Tuple) != 2 {
		t.Fatalf("want a 2-element tuple, got %v", v)
	}
	if v.Tuple[0].(term.Symbol).Name != "a" || v.Tuple[1].(term.Symbol).Name != "b" {
		t.Fatalf("want the sorted tuple x=[a,b], got %v", v.Tuple)
	}

	tooFew := comm("f", sym("a"))
	if got := matchAll(t, single(tooFew), pattern); len(got) != 0 {
		t.Fatalf("want no match when fewer than MinCount operands are available, got %d", len(got))
	}
}

// A genuine sequence wildcard/variable inside a plain, non-commutative,
// non-associative operation exercises C2's integer-composition slot logic
// directly, and — unlike the commutative matcher's canonicalized binding —
// preserves the subjects' original order.
func TestNonCommutativeSequenceVariablePreservesOrder(t *testing.T) {
	pattern := term.Operation{OpType: "g", Operands: []term.Expression{sym("a"), sequenceVar("x", 1), sym("b")}}
	subject := term.Operation{OpType: "g", Operands: []term.Expression{sym("a"), sym("d"), sym("c"), sym("b")}}

	results := matchAll(t, single(subject), pattern)
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match, got %d", len(results))
	}
	v, ok := results[0].Get("x")
	if !ok || !v.IsTuple() || len(v.Tuple) != 2 {
		t.Fatalf("want x bound to a 2-element tuple, got %v", v)
	}
	if v.Tuple[0].(term.Symbol).Name != "d" || v.Tuple[1].(term.Symbol).Name != "c" {
		t.Fatalf("want x=[d,c] in subject order (not sorted), got %v", v.Tuple)
	}

	if got := matchAll(t, single(term.Operation{OpType: "g", Operands: []term.Expression{sym("a"), sym("b")}}), pattern); len(got) != 0 {
		t.Fatalf("want the sequence variable's min_count=1 to reject an empty span, got %d", len(got))
	}
}

// Associative re-wrap (spec §4.4.3.d) must invoke the pattern operation's own
// FromArgs constructor, not term.Operation's generic default — the bug fixed
// alongside CommutativeParts.FromArgs threading in operation.go.
func TestAssociativeRewrapUsesPatternFromArgs(t *testing.T) {
	wrapCalls := 0
	customFromArgs := func(args []term.Expression) term.Operation {
		wrapCalls++
		return term.Operation{OpType: "wrapped", Operands: args, Associative: true, Commutative: true, FromArgs: nil}
	}
	pattern := term.Operation{
		OpType:      "g",
		Associative: true,
		Commutative: true,
		Operands:    []term.Expression{sym("a"), fixedVar("x", 1)},
		FromArgs:    customFromArgs,
	}
	subject := term.Operation{
		OpType:      "g",
		Associative: true,
		Commutative: true,
		Operands:    []term.Expression{sym("a"), sym("c"), sym("d")},
	}

	results := matchAll(t, single(subject), pattern)
	if len(results) != 1 {
		t.Fatalf("want exactly 1 match, got %d", len(results))
	}
	if wrapCalls == 0 {
		t.Fatal("want the pattern's own FromArgs constructor to be invoked during the associative rewrap")
	}
	v, _ := results[0].Get("x")
	if v.IsTuple() {
		t.Fatalf("want a single wrapped operation, got tuple %v", v)
	}
	wrapped, ok := v.Single.(term.Operation)
	if !ok || wrapped.OpType != "wrapped" {
		t.Fatalf("want the custom FromArgs's \"wrapped\" op type, got %v (generic fallback would keep OpType %q)", v, pattern.OpType)
	}
	if len(wrapped.Operands) != 2 || wrapped.Operands[0].(term.Symbol).Name != "c" || wrapped.Operands[1].(term.Symbol).Name != "d" {
		t.Fatalf("want wrapped operands [c,d], got %v", wrapped.Operands)
	}
}
