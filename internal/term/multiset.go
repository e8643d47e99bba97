package term

// Multiset is a mapping from Expression (compared by content equality, not
// Go identity — Operation and Wildcard carry func fields and are therefore
// not valid map keys on their own) to a positive multiplicity, per the
// multiset abstraction of spec §9. It supports the subset/subtraction/
// scalar-multiplication operations §4.4 and §9 require.
type Multiset struct {
	buckets map[uint32][]msEntry
	length  int
}

type msEntry struct {
	expr  Expression
	count int
}

// NewMultiset builds a Multiset from a slice of expressions, counting
// duplicates by content equality.
func NewMultiset(exprs ...Expression) *Multiset {
	m := &Multiset{buckets: make(map[uint32][]msEntry)}
	for _, e := range exprs {
		m.Add(e, 1)
	}
	return m
}

// Clone returns a deep-enough copy safe to mutate independently; branch
// state is meant to be cheap to clone per spec §5.
func (m *Multiset) Clone() *Multiset {
	out := &Multiset{buckets: make(map[uint32][]msEntry, len(m.buckets)), length: m.length}
	for h, entries := range m.buckets {
		cp := make([]msEntry, len(entries))
		copy(cp, entries)
		out.buckets[h] = cp
	}
	return out
}

func (m *Multiset) Len() int { return m.length }

func (m *Multiset) findIndex(e Expression) (uint32, int) {
	h := e.Hash()
	for i, entry := range m.buckets[h] {
		if entry.expr.Equal(e) {
			return h, i
		}
	}
	return h, -1
}

// Count returns the multiplicity of e (0 if absent).
func (m *Multiset) Count(e Expression) int {
	h, i := m.findIndex(e)
	if i < 0 {
		return 0
	}
	return m.buckets[h][i].count
}

// Add increases e's multiplicity by n (n may be negative; multiplicities
// are clamped to remove entries that reach zero).
func (m *Multiset) Add(e Expression, n int) {
	if n == 0 {
		return
	}
	h, i := m.findIndex(e)
	if i < 0 {
		if n <= 0 {
			return
		}
		m.buckets[h] = append(m.buckets[h], msEntry{expr: e, count: n})
		m.length += n
		return
	}
	entries := m.buckets[h]
	entries[i].count += n
	m.length += n
	if entries[i].count <= 0 {
		m.length -= entries[i].count // remove the (now non-positive) remainder too
		m.buckets[h] = append(entries[:i], entries[i+1:]...)
	}
}

// Remove decreases e's multiplicity by n.
func (m *Multiset) Remove(e Expression, n int) { m.Add(e, -n) }

// IsSubsetOf reports whether m's multiplicities are all ≤ other's.
func (m *Multiset) IsSubsetOf(other *Multiset) bool {
	for _, entries := range m.buckets {
		for _, entry := range entries {
			if other.Count(entry.expr) < entry.count {
				return false
			}
		}
	}
	return true
}

// Minus returns a new Multiset equal to m with other's multiplicities
// subtracted (floored at zero per element, matching "E ← E − P.constant").
func (m *Multiset) Minus(other *Multiset) *Multiset {
	out := m.Clone()
	for _, entries := range other.buckets {
		for _, entry := range entries {
			out.Remove(entry.expr, entry.count)
		}
	}
	return out
}

// Plus returns a new Multiset that is the sum of m and other.
func (m *Multiset) Plus(other *Multiset) *Multiset {
	out := m.Clone()
	for _, entries := range other.buckets {
		for _, entry := range entries {
			out.Add(entry.expr, entry.count)
		}
	}
	return out
}

// Times scales every multiplicity by n.
func (m *Multiset) Times(n int) *Multiset {
	out := &Multiset{buckets: make(map[uint32][]msEntry, len(m.buckets))}
	for h, entries := range m.buckets {
		cp := make([]msEntry, len(entries))
		for i, e := range entries {
			cp[i] = msEntry{expr: e.expr, count: e.count * n}
			out.length += cp[i].count
		}
		out.buckets[h] = cp
	}
	return out
}

// Entries returns the distinct (expression, multiplicity) pairs in
// unspecified order.
type MultisetEntry struct {
	Expr  Expression
	Count int
}

func (m *Multiset) Entries() []MultisetEntry {
	out := make([]MultisetEntry, 0, m.length)
	for _, entries := range m.buckets {
		for _, e := range entries {
			out = append(out, MultisetEntry{Expr: e.expr, Count: e.count})
		}
	}
	return out
}

// Flatten expands the multiset back into a slice with each expression
// repeated by its multiplicity.
func (m *Multiset) Flatten() []Expression {
	out := make([]Expression, 0, m.length)
	for _, entries := range m.buckets {
		for _, e := range entries {
			for i := 0; i < e.count; i++ {
				out = append(out, e.expr)
			}
		}
	}
	return out
}

func (m *Multiset) IsEmpty() bool { return m.length == 0 }
