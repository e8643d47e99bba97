// Package enumerate supplies the combinatorial iterators spec.md §6 treats
// as external collaborators (C4): integer-composition and integer-vector
// enumerators, the commutative sequence-variable multiset-partition
// enumerator, and the generic state-chaining iterator of §9. Every iterator
// is expressed as a Go standard-library range-over-func sequence
// (iter.Seq[T]) so that callers get the pull-driven, lazily-suspended
// enumeration spec §5 requires without goroutines or buffering.
package enumerate

import "iter"

// IntegerPartitionVectors enumerates every non-negative integer vector of
// length k summing to total, in lexicographic order (spec §4.3 step 2's
// "weak-composition / integer-partition-vector iterator").
func IntegerPartitionVectors(total, k int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if k == 0 {
			if total == 0 {
				yield(nil)
			}
			return
		}
		vec := make([]int, k)
		var rec func(pos, remaining int) bool
		rec = func(pos, remaining int) bool {
			if pos == k-1 {
				vec[pos] = remaining
				return yield(append([]int(nil), vec...))
			}
			for v := 0; v <= remaining; v++ {
				vec[pos] = v
				if !rec(pos+1, remaining-v) {
					return false
				}
			}
			return true
		}
		rec(0, total)
	}
}

// FixedIntegerVectors enumerates every non-negative integer vector v of
// length len(maxVector) with v[i] <= maxVector[i] for all i and sum(v) ==
// total (spec §4.4.3.b.ii's fixed_integer_vector_iter).
func FixedIntegerVectors(maxVector []int, total int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		n := len(maxVector)
		if n == 0 {
			if total == 0 {
				yield(nil)
			}
			return
		}
		vec := make([]int, n)
		var rec func(pos, remaining int) bool
		rec = func(pos, remaining int) bool {
			if pos == n-1 {
				if remaining < 0 || remaining > maxVector[pos] {
					return true
				}
				vec[pos] = remaining
				return yield(append([]int(nil), vec...))
			}
			maxHere := maxVector[pos]
			if maxHere > remaining {
				maxHere = remaining
			}
			for v := 0; v <= maxHere; v++ {
				vec[pos] = v
				if !rec(pos+1, remaining-v) {
					return false
				}
			}
			return true
		}
		rec(0, total)
	}
}
