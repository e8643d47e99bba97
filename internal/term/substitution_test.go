package term

import "testing"

func TestSubstitutionExtendNewBinding(t *testing.T) {
	s := NewSubstitution()
	s2, ok := s.Extend("x", Single(sym("a")))
	if !ok {
		t.Fatal("extending an empty substitution must succeed")
	}
	v, ok := s2.Get("x")
	if !ok || !v.Equal(Single(sym("a"))) {
		t.Fatal("binding was not recorded correctly")
	}
	if s.Contains("x") {
		t.Fatal("Extend must not mutate the receiver")
	}
}

func TestSubstitutionExtendSameValueSucceeds(t *testing.T) {
	s, _ := NewSubstitution().Extend("x", Single(sym("a")))
	s2, ok := s.Extend("x", Single(sym("a")))
	if !ok {
		t.Fatal("re-binding to an equal value must succeed")
	}
	if s2.Len() != 1 {
		t.Fatalf("want 1 binding, got %d", s2.Len())
	}
}

func TestSubstitutionExtendConflictFails(t *testing.T) {
	s, _ := NewSubstitution().Extend("x", Single(sym("a")))
	_, ok := s.Extend("x", Single(sym("b")))
	if ok {
		t.Fatal("re-binding to a conflicting value must fail")
	}
}

func TestSubstitutionUnion(t *testing.T) {
	a, _ := NewSubstitution().Extend("x", Single(sym("a")))
	b, _ := NewSubstitution().Extend("y", Single(sym("b")))
	u, ok := a.Union(b)
	if !ok || u.Len() != 2 {
		t.Fatalf("expected union of disjoint substitutions to merge, got ok=%v len=%d", ok, u.Len())
	}
}

func TestSubstitutionUnionConflict(t *testing.T) {
	a, _ := NewSubstitution().Extend("x", Single(sym("a")))
	b, _ := NewSubstitution().Extend("x", Single(sym("b")))
	_, ok := a.Union(b)
	if ok {
		t.Fatal("union over a conflicting binding must fail")
	}
}

func TestValueEqualTuple(t *testing.T) {
	v1 := Tuple([]Expression{sym("a"), sym("b")})
	v2 := Tuple([]Expression{sym("a"), sym("b")})
	v3 := Tuple([]Expression{sym("b"), sym("a")})
	if !v1.Equal(v2) {
		t.Fatal("identical tuples must be equal")
	}
	if v1.Equal(v3) {
		t.Fatal("tuples differing in order must not be equal")
	}
}

func TestValueSingleVsTuple(t *testing.T) {
	single := Single(sym("a"))
	tuple := Tuple([]Expression{sym("a")})
	if single.Equal(tuple) {
		t.Fatal("a single binding and a one-element tuple must not compare equal")
	}
}
