package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"la32rstats/internal/disasm"
	"la32rstats/internal/elfx"
)

var cats = []string{"Arithmetic", "Logic", "Branch"}

func stream(ops ...string) disasm.Stream {
	catOf := map[string]uint8{"add.w": 0, "sub.w": 0, "or": 1, "and": 1, "beq": 2}
	s := make(disasm.Stream, len(ops))
	for i, op := range ops {
		s[i] = disasm.Inst{Offset: uint64(4 * i), Op: op, Category: catOf[op]}
	}
	return s
}

func TestTally(t *testing.T) {
	tests := []struct {
		name string
		in   disasm.Stream
		want []Stat
	}{
		{"empty", nil, nil},
		{
			"count order",
			stream("or", "add.w", "add.w", "beq", "add.w", "or"),
			[]Stat{
				{Mnemonic: "add.w", Category: "Arithmetic", Count: 3},
				{Mnemonic: "or", Category: "Logic", Count: 2},
				{Mnemonic: "beq", Category: "Branch", Count: 1},
			},
		},
		{
			"ties keep first-seen order",
			stream("beq", "and", "sub.w", "and", "sub.w", "beq"),
			[]Stat{
				{Mnemonic: "beq", Category: "Branch", Count: 2},
				{Mnemonic: "and", Category: "Logic", Count: 2},
				{Mnemonic: "sub.w", Category: "Arithmetic", Count: 2},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Tally(tt.in, cats)); diff != "" {
				t.Errorf("Tally() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTallyUnknownCategory(t *testing.T) {
	got := Tally(disasm.Stream{{Op: "x", Category: 9}}, cats)
	assert.Equal(t, "Category(9)", got[0].Category)
}

func TestCategoryTotals(t *testing.T) {
	got := CategoryTotals(stream("or", "beq", "and", "or"), cats)
	want := []CategoryTotal{
		{Category: "Arithmetic", Count: 0},
		{Category: "Logic", Count: 3},
		{Category: "Branch", Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CategoryTotals() mismatch (-want +got):\n%s", diff)
	}
}

func TestTop(t *testing.T) {
	stats := Tally(stream("or", "and", "beq"), cats)
	assert.Len(t, Top(stats, 0), 3)
	assert.Len(t, Top(stats, 2), 2)
	assert.Len(t, Top(stats, 10), 3)
}

func TestBySymbol(t *testing.T) {
	// Offsets 0..28, eight instructions.
	s := stream("add.w", "add.w", "or", "beq", "and", "and", "and", "sub.w")
	syms := []elfx.Symbol{
		{Name: "_start", Addr: 0, Size: 8},
		{Name: "_ZN3foo3barEv", Addr: 16, Size: 12},
		{Name: "empty", Addr: 64, Size: 4},
	}
	got := BySymbol(s, syms)
	want := []FuncStat{
		{Name: "_start", Demangled: "_start", Addr: 0, Size: 8, Count: 2, Top: "add.w"},
		{Name: "_ZN3foo3barEv", Demangled: "foo::bar()", Addr: 16, Size: 12, Count: 3, Top: "and"},
		{Name: Unattributed, Demangled: Unattributed, Count: 3, Top: "beq"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BySymbol() mismatch (-want +got):\n%s", diff)
	}
}

func TestBySymbolNoSymbols(t *testing.T) {
	got := BySymbol(stream("or"), nil)
	assert.Equal(t, []FuncStat{{Name: Unattributed, Demangled: Unattributed, Count: 1, Top: "or"}}, got)
	assert.Empty(t, BySymbol(nil, nil))
}

func TestCachedDemangle(t *testing.T) {
	assert.Equal(t, "foo::bar()", CachedDemangle("_ZN3foo3barEv"))
	_, hits := DemangleCacheStats()
	assert.Equal(t, "foo::bar()", CachedDemangle("_ZN3foo3barEv"))
	_, after := DemangleCacheStats()
	assert.Greater(t, after, hits)
	assert.Equal(t, "main", CachedDemangle("main"))
}

func TestSectionLabel(t *testing.T) {
	assert.Equal(t, "?", SectionLabel(""))
	assert.Equal(t, ".text", SectionLabel(".text"))
	assert.Equal(t, `.t\u0007x`, SectionLabel(".t\ax"))
}
