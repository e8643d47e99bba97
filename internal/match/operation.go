package match

import (
	"iter"

	"github.com/acmatch/acmatch/internal/term"
)

// SyntacticMatchResult is one answer from a pluggable syntactic matcher
// hook: a partial substitution for the syntactic sub-pattern, plus the
// syntactic subjects it left unconsumed (spec §6).
type SyntacticMatchResult struct {
	Subst    term.Substitution
	Leftover *term.Multiset
}

// SyntacticMatcher is the optional fast-path hook of spec §4.4 step 2 / §6.
type SyntacticMatcher func(syntacticSubjects, syntacticPattern *term.Multiset) iter.Seq[SyntacticMatchResult]

// MatchOperation is match_operation of spec §6: match an ordered operand
// list against a pattern operation, dispatching to the non-commutative
// matcher (C2) or, for a commutative operator, classifying it (C1) and
// dispatching to the commutative matcher (C3) with no syntactic fast path.
func MatchOperation(subjects []term.Expression, pattern term.Operation, subst term.Substitution, matcher MatchFunc) iter.Seq[term.Substitution] {
	if !pattern.Commutative {
		return MatchNonCommutative(subjects, pattern, subst, matcher)
	}
	return func(yield func(term.Substitution) bool) {
		parts, err := ClassifyCommutative(pattern.OpType, pattern.Associative, pattern.Operands)
		if err != nil {
			panic(err) // precondition violation (spec §7 mode 2): pattern-construction error
		}
		parts.FromArgs = pattern.FromArgs
		for result := range MatchCommutativeOperation(subjects, parts, subst, matcher, nil) {
			if !yield(result) {
				return
			}
		}
	}
}
