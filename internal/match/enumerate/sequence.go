package enumerate

import (
	"iter"
	"sort"

	"github.com/acmatch/acmatch/internal/term"
)

// Slot describes one sequence-variable slot for
// CommutativeSequenceVariablePartitions: a variable bound Count times in the
// pattern (so its eventual value contributes Count copies to the consumed
// multiset) with a minimum tuple length MinCount.
type Slot struct {
	Name     string
	Count    int
	MinCount int
}

// CommutativeSequenceVariablePartitions is spec §6's
// commutative_sequence_variable_partition_iter / C4: for a multiset of
// expressions and a set of (variable, multiplicity, min-length) slots, it
// enumerates every distribution — slot name -> bound multiset — such that
// each slot's value has length >= its MinCount and, summed with multiplicity
// Count per slot, the values exactly exhaust the input multiset.
func CommutativeSequenceVariablePartitions(ms *term.Multiset, slots []Slot) iter.Seq[map[string]*term.Multiset] {
	return func(yield func(map[string]*term.Multiset) bool) {
		assign(ms, slots, map[string]*term.Multiset{}, yield)
	}
}

func assign(remaining *term.Multiset, slots []Slot, acc map[string]*term.Multiset, yield func(map[string]*term.Multiset) bool) bool {
	if len(slots) == 0 {
		if remaining.IsEmpty() {
			return yield(copyAssignment(acc))
		}
		return true
	}

	slot := slots[0]
	rest := slots[1:]

	entries := remaining.Entries()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Expr.Equal(entries[j].Expr) {
			return false
		}
		return entries[i].Expr.Less(entries[j].Expr)
	})

	maxVector := make([]int, len(entries))
	maxTotal := 0
	for i, e := range entries {
		maxVector[i] = e.Count / slot.Count
		maxTotal += maxVector[i]
	}

	if slot.MinCount > maxTotal {
		return true // no candidate value can satisfy this slot; prune
	}

	for size := slot.MinCount; size <= maxTotal; size++ {
		keepGoing := true
		for vec := range FixedIntegerVectors(maxVector, size) {
			value := term.NewMultiset()
			for i, q := range vec {
				if q > 0 {
					value.Add(entries[i].Expr, q)
				}
			}

			consumed := value.Times(slot.Count)
			if !consumed.IsSubsetOf(remaining) {
				continue
			}
			newRemaining := remaining.Minus(consumed)

			acc[slot.Name] = value
			if !assign(newRemaining, rest, acc, yield) {
				keepGoing = false
				delete(acc, slot.Name)
				break
			}
			delete(acc, slot.Name)
		}
		if !keepGoing {
			return false
		}
	}
	return true
}

func copyAssignment(acc map[string]*term.Multiset) map[string]*term.Multiset {
	out := make(map[string]*term.Multiset, len(acc))
	for k, v := range acc {
		out[k] = v
	}
	return out
}
