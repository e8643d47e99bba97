package match

import (
	"iter"

	"github.com/acmatch/acmatch/internal/term"

	"github.com/acmatch/acmatch/internal/match/enumerate"
)

// innerWildcardOf returns the Wildcard an operand is or wraps (a bare
// Wildcard, or a Variable whose Inner is one), and whether it is one at all.
func innerWildcardOf(e term.Expression) (term.Wildcard, bool) {
	switch v := e.(type) {
	case term.Wildcard:
		return v, true
	case term.Variable:
		return v.Inner, true
	default:
		return term.Wildcard{}, false
	}
}

// MatchNonCommutative is the non-commutative matcher (C2) of spec §4.3: it
// matches an ordered subject sequence against an ordered pattern operand
// list, distributing any surplus subjects among sequence-wildcard slots via
// integer-composition enumeration.
func MatchNonCommutative(subjects []term.Expression, pattern term.Operation, subst term.Substitution, matcher MatchFunc) iter.Seq[term.Substitution] {
	return func(yield func(term.Substitution) bool) {
		// Step 1: slack computation.
		fixedConsumption := 0
		sequenceSlots := 0
		for _, operand := range pattern.Operands {
			w, isWildcard := innerWildcardOf(operand)
			if !isWildcard {
				fixedConsumption++
				continue
			}
			isSequenceSlot := !w.FixedSize || pattern.Associative
			if isSequenceSlot {
				fixedConsumption += w.MinCount
				sequenceSlots++
			} else {
				fixedConsumption += w.MinCount
			}
		}
		remaining := len(subjects) - fixedConsumption
		if remaining < 0 {
			return
		}

		for composition := range enumerate.IntegerPartitionVectors(remaining, sequenceSlots) {
			factories := buildSlotFactories(subjects, pattern, composition, matcher)
			if factories == nil {
				continue // this composition could not be realized (slicing overran subjects)
			}
			for result := range enumerate.StateChain(subst, factories) {
				if !yield(result) {
					return
				}
			}
		}
	}
}

// buildSlotFactories performs step 3/4 of spec §4.3: walk the pattern
// operands again, consuming subjects per slot according to composition, and
// return one factory per slot to be composed by the state-chaining
// enumerator (step 5). Returns nil if composition is inconsistent with
// len(subjects) (can only happen for malformed callers; defensive only).
func buildSlotFactories(subjects []term.Expression, pattern term.Operation, composition []int, matcher MatchFunc) []func(term.Substitution) iter.Seq[term.Substitution] {
	factories := make([]func(term.Substitution) iter.Seq[term.Substitution], 0, len(pattern.Operands))
	pos := 0
	seqIdx := 0

	for _, operand := range pattern.Operands {
		w, isWildcard := innerWildcardOf(operand)
		var count int
		isSequenceSlot := false
		if !isWildcard {
			count = 1
		} else {
			isSequenceSlot = !w.FixedSize || pattern.Associative
			if isSequenceSlot {
				count = w.MinCount + composition[seqIdx]
				seqIdx++
			} else {
				count = w.MinCount
			}
		}

		if pos+count > len(subjects) {
			return nil
		}
		slotSubjects := subjects[pos : pos+count]
		pos += count

		if pattern.Associative && isWildcard && w.FixedSize && w.MinCount >= 1 && count > w.MinCount {
			m := w.MinCount
			wrapped := term.WrapAssociative(pattern, append([]term.Expression(nil), slotSubjects[m-1:]...))
			rewrapped := make([]term.Expression, 0, m)
			rewrapped = append(rewrapped, slotSubjects[:m-1]...)
			rewrapped = append(rewrapped, wrapped)
			slotSubjects = rewrapped
		}

		operandCopy := operand
		subjectsCopy := slotSubjects
		factories = append(factories, func(s term.Substitution) iter.Seq[term.Substitution] {
			return matcher(subjectsCopy, operandCopy, s)
		})
	}

	if pos != len(subjects) {
		return nil
	}
	return factories
}
