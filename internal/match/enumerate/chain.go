package enumerate

import "iter"

// StateChain is the generic helper of spec §9: given an initial state and a
// sequence of factories fᵢ(state) -> seq<state'>, it produces every
// composition f_n ∘ … ∘ f_1(state₀), depth-first, stopping as soon as the
// consumer stops pulling (the canonical "stack of active sub-iterators"
// implementation the spec suggests, expressed with range-over-func instead
// of an explicit stack).
func StateChain[S any](initial S, factories []func(S) iter.Seq[S]) iter.Seq[S] {
	return func(yield func(S) bool) {
		var rec func(i int, s S) bool
		rec = func(i int, s S) bool {
			if i == len(factories) {
				return yield(s)
			}
			keepGoing := true
			for next := range factories[i](s) {
				if !rec(i+1, next) {
					keepGoing = false
					break
				}
			}
			return keepGoing
		}
		rec(0, initial)
	}
}
