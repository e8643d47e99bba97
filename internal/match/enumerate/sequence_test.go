package enumerate

import (
	"testing"

	"github.com/acmatch/acmatch/internal/term"
)

func sym(name string) term.Symbol { return term.NewSymbol(name) }

func TestCommutativeSequenceVariablePartitionsSingleSlotExhausts(t *testing.T) {
	ms := term.NewMultiset(sym("a"), sym("b"), sym("c"))
	slots := []Slot{{Name: "x", Count: 1, MinCount: 0}}
	var results []map[string]*term.Multiset
	for assignment := range CommutativeSequenceVariablePartitions(ms, slots) {
		results = append(results, assignment)
	}
	if len(results) != 1 {
		t.Fatalf("a single slot with count 1 has exactly one way to exhaust the multiset, got %d", len(results))
	}
	if results[0]["x"].Len() != 3 {
		t.Fatalf("want x bound to all 3 elements, got %d", results[0]["x"].Len())
	}
}

func TestCommutativeSequenceVariablePartitionsTwoWaySplit(t *testing.T) {
	ms := term.NewMultiset(sym("a"), sym("b"))
	slots := []Slot{
		{Name: "x", Count: 1, MinCount: 0},
		{Name: "y", Count: 1, MinCount: 0},
	}
	count := 0
	for assignment := range CommutativeSequenceVariablePartitions(ms, slots) {
		total := assignment["x"].Len() + assignment["y"].Len()
		if total != 2 {
			t.Fatalf("x and y together must exhaust the 2-element multiset, got %d", total)
		}
		count++
	}
	// {}+{a,b}, {a}+{b}, {b}+{a}, {a,b}+{} - distinct elements each split 4 ways.
	if count != 4 {
		t.Fatalf("want 4 distinct partitions for two distinguishable elements, got %d", count)
	}
}

func TestCommutativeSequenceVariablePartitionsRespectsMinCount(t *testing.T) {
	ms := term.NewMultiset(sym("a"))
	slots := []Slot{{Name: "x", Count: 1, MinCount: 2}}
	count := 0
	for range CommutativeSequenceVariablePartitions(ms, slots) {
		count++
	}
	if count != 0 {
		t.Fatalf("a slot requiring min_count=2 cannot be satisfied by a 1-element multiset, got %d results", count)
	}
}

func TestCommutativeSequenceVariablePartitionsMultiplicity(t *testing.T) {
	// x occurs twice in the pattern (Count: 2), so its bound value is
	// consumed twice; against an odd-sized multiset no value can exhaust it.
	ms := term.NewMultiset(sym("a"), sym("a"), sym("b"))
	slots := []Slot{{Name: "x", Count: 2, MinCount: 0}}
	var got []map[string]*term.Multiset
	for assignment := range CommutativeSequenceVariablePartitions(ms, slots) {
		got = append(got, assignment)
	}
	if len(got) != 0 {
		t.Fatalf("want 0 matches for an odd-sized multiset against a doubly-occurring variable, got %d", len(got))
	}
}

func TestCommutativeSequenceVariablePartitionsMultiplicityEven(t *testing.T) {
	ms := term.NewMultiset(sym("a"), sym("a"))
	slots := []Slot{{Name: "x", Count: 2, MinCount: 0}}
	var got []map[string]*term.Multiset
	for assignment := range CommutativeSequenceVariablePartitions(ms, slots) {
		got = append(got, assignment)
	}
	if len(got) != 1 || got[0]["x"].Count(sym("a")) != 1 {
		t.Fatalf("want x bound to a single {a} (doubled to consume both), got %v", got)
	}
}
