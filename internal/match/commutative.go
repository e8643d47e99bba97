package match

import (
	"iter"

	"github.com/acmatch/acmatch/internal/match/enumerate"
	"github.com/acmatch/acmatch/internal/term"
)

// unnamedWildcardSlot is the sentinel slot name used internally for the
// collective unnamed-wildcard allocation of spec §4.4.3.b/3.d. It can never
// collide with a real pattern variable name (those are non-empty
// identifiers produced by the pattern language).
const unnamedWildcardSlot = ""

// csState is the (residual multiset, substitution) pair threaded through
// the commutative matcher's factory chain (spec §4.4 steps 3.b/3.c).
type csState struct {
	E     *term.Multiset
	Subst term.Substitution
}

// MatchCommutativeOperation is the commutative matcher (C3) of spec §4.4:
// it peels off constants, optionally runs a syntactic sub-matcher, then
// drives the sequence-variable multiset-partition enumeration. Every
// subject must be constant (spec §6); a violation is reported eagerly as a
// PreconditionError, never as an empty result.
func MatchCommutativeOperation(subjects []term.Expression, parts *CommutativeParts, subst term.Substitution, matcher MatchFunc, syntacticMatcher SyntacticMatcher) iter.Seq[term.Substitution] {
	for _, s := range subjects {
		if !s.IsConstant() {
			panic(preconditionf("match_commutative_operation requires constant subjects, got %s", s.String()))
		}
	}

	return func(yield func(term.Substitution) bool) {
		// Step 1: constants.
		E := term.NewMultiset(subjects...)
		if !parts.Constant.IsSubsetOf(E) {
			return
		}
		E = E.Minus(parts.Constant)

		// Step 2: optional syntactic fast path.
		if syntacticMatcher != nil && !parts.Syntactic.IsEmpty() {
			restSubjects := term.NewMultiset()
			syntacticSubjects := term.NewMultiset()
			for _, entry := range E.Entries() {
				if isSyntacticSubject(entry.Expr) {
					syntacticSubjects.Add(entry.Expr, entry.Count)
				} else {
					restSubjects.Add(entry.Expr, entry.Count)
				}
			}
			if parts.Syntactic.Len() > syntacticSubjects.Len() {
				return
			}
			for res := range syntacticMatcher(syntacticSubjects, parts.Syntactic) {
				unioned, ok := subst.Union(res.Subst)
				if !ok {
					continue
				}
				combined := res.Leftover.Plus(restSubjects)
				for result := range finishCommutativeMatch(combined, unioned, parts, matcher, false) {
					if !yield(result) {
						return
					}
				}
			}
			return
		}

		// Step 2 skipped: finisher runs directly, including syntactic in rest.
		for result := range finishCommutativeMatch(E, subst, parts, matcher, true) {
			if !yield(result) {
				return
			}
		}
	}
}

// isSyntacticSubject implements the open-question classification of spec
// §4.4 step 2 / §9: a ground subject counts as "syntactic" for the fast
// path's splitting purpose either because it genuinely is (no nested AC
// head, no sequence placeholders — vacuous here since subjects are ground)
// or because, at its own top level, it is a symbol or a non-associative
// non-commutative operation (even if it nests AC sub-operations deeper).
func isSyntacticSubject(e term.Expression) bool {
	if e.IsSyntactic() {
		return true
	}
	switch v := e.(type) {
	case term.Symbol:
		return true
	case term.Operation:
		return !v.Associative && !v.Commutative
	default:
		return false
	}
}

// finishCommutativeMatch is _matches_from_matching of spec §4.4 step 3: it
// always runs, either directly or after the syntactic fast path folds its
// leftovers in.
func finishCommutativeMatch(E *term.Multiset, subst term.Substitution, parts *CommutativeParts, matcher MatchFunc, includeSyntactic bool) iter.Seq[term.Substitution] {
	return func(yield func(term.Substitution) bool) {
		restExpr := parts.Rest
		if includeSyntactic {
			restExpr = parts.Rest.Plus(parts.Syntactic)
		}

		needed := parts.SequenceVariableMinLength + parts.FixedVariableLength + restExpr.Len() + parts.WildcardMinLength
		if E.Len() < needed {
			return
		}

		// 3.a: pre-bind check of fixed variables already present in subst.
		unresolvedFixed := map[string]int{}
		for name, count := range parts.FixedVarCounts {
			unresolvedFixed[name] = count
		}
		for name, count := range parts.FixedVarCounts {
			value, ok := subst.Get(name)
			if !ok {
				continue
			}
			consumed := valueAsMultiset(value, parts.Associative, parts.OpType).Times(count)
			if !consumed.IsSubsetOf(E) {
				return
			}
			E = E.Minus(consumed)
			delete(unresolvedFixed, name)
		}

		factories := buildCommutativeFactories(parts, restExpr, unresolvedFixed, matcher)

		initial := csState{E: E, Subst: subst}
		for state := range enumerate.StateChain(initial, factories) {
			for result := range allocateSequenceVariables(state, parts, unresolvedFixed) {
				if !yield(result) {
					return
				}
			}
		}
	}
}

// valueAsMultiset converts an already-bound variable value into the
// multiset of expressions it represents (spec §4.4.3.a): an associative
// operation of the pattern's own operator type flattens to its operand
// multiset; any other single expression is a singleton; a tuple flattens
// directly.
func valueAsMultiset(v term.Value, associative bool, opType string) *term.Multiset {
	if associative && !v.IsTuple() {
		if op, ok := v.Single.(term.Operation); ok && op.OpType == opType {
			return term.NewMultiset(op.Operands...)
		}
	}
	if !v.IsTuple() {
		return term.NewMultiset(v.Single)
	}
	return term.NewMultiset(v.Tuple...)
}

// buildCommutativeFactories is spec §4.4 step 3.b: one factory per
// rest-expression occurrence, plus — only for a non-associative operator —
// one factory per unbound fixed variable and, when every unnamed wildcard is
// fixed-size, one collective unnamed-wildcard factory. Under an associative
// operator those are deferred entirely to the sequence-variable allocation
// of step 3.d, because a fixed-size slot may absorb surplus operands by
// re-wrapping only when the enumerator, not a fixed exact-count factory,
// handles it.
func buildCommutativeFactories(parts *CommutativeParts, restExpr *term.Multiset, unresolvedFixed map[string]int, matcher MatchFunc) []func(csState) iter.Seq[csState] {
	var factories []func(csState) iter.Seq[csState]

	for _, expr := range restExpr.Flatten() {
		expr := expr
		factories = append(factories, func(s csState) iter.Seq[csState] {
			return func(yield func(csState) bool) {
				for _, entry := range s.E.Entries() {
					if entry.Expr.Head() != expr.Head() {
						continue
					}
					for result := range matcher([]term.Expression{entry.Expr}, expr, s.Subst) {
						newE := s.E.Clone()
						newE.Remove(entry.Expr, 1)
						if !yield(csState{E: newE, Subst: result}) {
							return
						}
					}
				}
			}
		})
	}

	if parts.Associative {
		return factories
	}

	for name, count := range unresolvedFixed {
		name, count := name, count
		info := parts.FixedVarInfos[name]
		factories = append(factories, func(s csState) iter.Seq[csState] {
			return fixedVarFactory(s, name, count, info, parts)
		})
	}

	if parts.WildcardFixed != nil && *parts.WildcardFixed {
		ell := parts.WildcardMinLength
		factories = append(factories, func(s csState) iter.Seq[csState] {
			return unnamedWildcardFactory(s, ell)
		})
	}

	return factories
}

func fixedVarFactory(s csState, name string, count int, info VarInfo, parts *CommutativeParts) iter.Seq[csState] {
	return func(yield func(csState) bool) {
		if existing, ok := s.Subst.Get(name); ok {
			consumed := valueAsMultiset(existing, false, parts.OpType).Times(count)
			if !consumed.IsSubsetOf(s.E) {
				return
			}
			newE := s.E.Minus(consumed)
			yield(csState{E: newE, Subst: s.Subst})
			return
		}

		entries := s.E.Entries()
		if info.MinCount == 1 {
			for _, entry := range entries {
				if entry.Count < count {
					continue
				}
				value := term.Single(entry.Expr)
				extended, ok := s.Subst.Extend(name, value)
				if !ok || !term.CheckConstraint(info.Constraint, extended) {
					continue
				}
				newE := s.E.Clone()
				newE.Remove(entry.Expr, count)
				if !yield(csState{E: newE, Subst: extended}) {
					return
				}
			}
			return
		}

		maxVector := make([]int, len(entries))
		for i, e := range entries {
			maxVector[i] = e.Count / count
		}
		for vec := range enumerate.FixedIntegerVectors(maxVector, info.MinCount) {
			selected := make([]term.Expression, 0, info.MinCount)
			for i, q := range vec {
				for j := 0; j < q; j++ {
					selected = append(selected, entries[i].Expr)
				}
			}
			value := term.Tuple(term.SortExpressions(selected))
			extended, ok := s.Subst.Extend(name, value)
			if !ok || !term.CheckConstraint(info.Constraint, extended) {
				continue
			}
			newE := s.E.Clone()
			for i, q := range vec {
				if q > 0 {
					newE.Remove(entries[i].Expr, q*count)
				}
			}
			if !yield(csState{E: newE, Subst: extended}) {
				return
			}
		}
	}
}

func unnamedWildcardFactory(s csState, ell int) iter.Seq[csState] {
	return func(yield func(csState) bool) {
		if ell == 0 {
			yield(s)
			return
		}
		entries := s.E.Entries()
		maxVector := make([]int, len(entries))
		for i, e := range entries {
			maxVector[i] = e.Count
		}
		for vec := range enumerate.FixedIntegerVectors(maxVector, ell) {
			newE := s.E.Clone()
			for i, q := range vec {
				if q > 0 {
					newE.Remove(entries[i].Expr, q)
				}
			}
			if !yield(csState{E: newE, Subst: s.Subst}) {
				return
			}
		}
	}
}

// allocateSequenceVariables is spec §4.4 step 3.d: invoke the
// multiset-partition enumerator (C4) over the residual multiset and the
// collected sequence-variable slots, materialize each assignment's ordered
// tuple, apply the associative re-wrap rule, and union into subst.
func allocateSequenceVariables(state csState, parts *CommutativeParts, unresolvedFixed map[string]int) iter.Seq[term.Substitution] {
	return func(yield func(term.Substitution) bool) {
		var slots []enumerate.Slot
		var combinedConstraint term.Constraint
		isFixedSlot := map[string]bool{}

		for name, count := range parts.SequenceVarCounts {
			info := parts.SequenceVarInfos[name]
			slots = append(slots, enumerate.Slot{Name: name, Count: count, MinCount: info.MinCount})
			combinedConstraint = term.CombineConstraints(combinedConstraint, info.Constraint)
		}

		if parts.Associative {
			for name, count := range unresolvedFixed {
				info := parts.FixedVarInfos[name]
				slots = append(slots, enumerate.Slot{Name: name, Count: count, MinCount: info.MinCount})
				combinedConstraint = term.CombineConstraints(combinedConstraint, info.Constraint)
				isFixedSlot[name] = true
			}
			if parts.WildcardFixed != nil && *parts.WildcardFixed {
				slots = append(slots, enumerate.Slot{Name: unnamedWildcardSlot, Count: 1, MinCount: parts.WildcardMinLength})
			}
		}
		if parts.WildcardFixed != nil && !*parts.WildcardFixed {
			slots = append(slots, enumerate.Slot{Name: unnamedWildcardSlot, Count: 1, MinCount: parts.WildcardMinLength})
		}

		for assignment := range enumerate.CommutativeSequenceVariablePartitions(state.E, slots) {
			newSubst := state.Subst
			ok := true
			for name, ms := range assignment {
				if name == unnamedWildcardSlot {
					continue
				}
				sorted := term.SortExpressions(ms.Flatten())
				value := bindValueFor(name, sorted, parts, isFixedSlot)
				newSubst, ok = newSubst.Extend(name, value)
				if !ok {
					break
				}
			}
			if !ok {
				continue
			}
			if !term.CheckConstraint(combinedConstraint, newSubst) {
				continue
			}
			if !yield(newSubst) {
				return
			}
		}
	}
}

// bindValueFor materializes the canonical value for one sequence-allocated
// slot: true sequence variables always bind a tuple (spec §4.2); a fixed
// variable promoted into the sequence allocator under associativity either
// stays a tuple, collapses to a single expression (ℓ==1, exact length), or
// gets wrapped into a fresh operation (length exceeds ℓ) per spec §4.4.3.d.
func bindValueFor(name string, sorted []term.Expression, parts *CommutativeParts, isFixedSlot map[string]bool) term.Value {
	if !isFixedSlot[name] {
		return term.Tuple(sorted)
	}
	ell := parts.FixedVarInfos[name].MinCount
	if len(sorted) > ell {
		template := term.Operation{OpType: parts.OpType, Associative: true, Commutative: true, FromArgs: parts.FromArgs}
		wrapped := term.WrapAssociative(template, sorted)
		return term.Single(wrapped)
	}
	if ell == 1 && len(sorted) == 1 {
		return term.Single(sorted[0])
	}
	return term.Tuple(sorted)
}
