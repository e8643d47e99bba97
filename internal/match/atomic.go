package match

import (
	"iter"

	"github.com/acmatch/acmatch/internal/term"
)

// MatchFunc is the recursive "matcher" callback §4.3/§4.4 thread through
// the search: match a subject list against one pattern expression under an
// incoming substitution, lazily yielding every resulting substitution.
type MatchFunc func(subjects []term.Expression, pattern term.Expression, subst term.Substitution) iter.Seq[term.Substitution]

// Match is the single public entry point of spec §6: it dispatches by the
// pattern's kind to the atomic matchers (C5) or to operation matching
// (which in turn dispatches to C2 or C3).
func Match(subjects []term.Expression, pattern term.Expression, subst term.Substitution) iter.Seq[term.Substitution] {
	switch p := pattern.(type) {
	case term.Variable:
		return matchVariable(subjects, p, subst, Match)
	case term.Wildcard:
		return matchWildcard(subjects, p, subst)
	case term.Symbol:
		return matchSymbol(subjects, p, subst)
	case term.Operation:
		return matchOperationHead(subjects, p, subst, Match)
	default:
		return empty
	}
}

func empty(yield func(term.Substitution) bool) {}

func singleResult(s term.Substitution) iter.Seq[term.Substitution] {
	return func(yield func(term.Substitution) bool) { yield(s) }
}

// matchSymbol implements the Symbol case of spec §4.2: yields subst iff
// subjects is a single expression whose Head/Name match and whose
// constraint (if any) accepts.
func matchSymbol(subjects []term.Expression, pattern term.Symbol, subst term.Substitution) iter.Seq[term.Substitution] {
	if len(subjects) != 1 {
		return empty
	}
	sym, ok := subjects[0].(term.Symbol)
	if !ok || sym.Name != pattern.Name || sym.SubType != pattern.SubType {
		return empty
	}
	if !term.CheckConstraint(pattern.Constraint, subst) {
		return empty
	}
	return singleResult(subst)
}

// matchOperationHead implements the Operation case of spec §4.2: the
// subject must be a single Operation of the same operator type; the
// operands are matched via matchOperation (C2/C3 dispatch), and the
// pattern's own constraint (if any) is applied to each surviving
// substitution.
func matchOperationHead(subjects []term.Expression, pattern term.Operation, subst term.Substitution, matcher MatchFunc) iter.Seq[term.Substitution] {
	return func(yield func(term.Substitution) bool) {
		if len(subjects) != 1 {
			return
		}
		subjectOp, ok := subjects[0].(term.Operation)
		if !ok || subjectOp.OpType != pattern.OpType {
			return
		}
		for result := range MatchOperation(subjectOp.Operands, pattern, subst, matcher) {
			if !term.CheckConstraint(pattern.Constraint, result) {
				continue
			}
			if !yield(result) {
				return
			}
		}
	}
}

// matchVariable implements spec §4.2's match_variable.
func matchVariable(subjects []term.Expression, v term.Variable, subst term.Substitution, matcher MatchFunc) iter.Seq[term.Substitution] {
	return func(yield func(term.Substitution) bool) {
		var value term.Value
		if len(subjects) == 1 && v.Inner.FixedSize {
			value = term.Single(subjects[0])
		} else {
			value = term.Tuple(subjects)
		}

		if existing, ok := subst.Get(v.Name); ok {
			if !existing.Equal(value) {
				return
			}
			if !term.CheckConstraint(v.Constraint, subst) {
				return
			}
			yield(subst)
			return
		}

		for result := range matcher(subjects, v.Inner, subst) {
			extended, ok := result.Extend(v.Name, value)
			if !ok {
				continue
			}
			if !term.CheckConstraint(v.Constraint, extended) {
				continue
			}
			if !yield(extended) {
				return
			}
		}
	}
}

// matchWildcard implements spec §4.2's match_wildcard. The SymbolType check
// applies only to a fixed-size wildcard and only against subjects[0] (spec
// §4.2: "for a SymbolWildcard, subjects[0]'s type is the required symbol
// subtype"; original_source/.../common.py:197 nests the same check inside
// `if wildcard.fixed_size:` and tests only `expressions[0]`).
func matchWildcard(subjects []term.Expression, w term.Wildcard, subst term.Substitution) iter.Seq[term.Substitution] {
	if w.FixedSize {
		if len(subjects) != w.MinCount {
			return empty
		}
		if w.SymbolType != nil && !w.SymbolType(subjects[0]) {
			return empty
		}
	} else if len(subjects) < w.MinCount {
		return empty
	}
	return singleResult(subst)
}
