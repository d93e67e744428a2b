package analysis

import (
	"fmt"
	"slices"

	"la32rstats/internal/disasm"
)

// Stat is one histogram row.
type Stat struct {
	Mnemonic string `json:"mnemonic"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryTotal counts instructions of one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Tally counts instructions per mnemonic. Rows are sorted by count,
// highest first; equal counts keep the order in which the mnemonic first
// appeared in s. cats resolves category indices to names.
func Tally(s disasm.Stream, cats []string) []Stat {
	index := make(map[string]int)
	var out []Stat
	for _, in := range s {
		i, ok := index[in.Op]
		if !ok {
			i = len(out)
			index[in.Op] = i
			out = append(out, Stat{Mnemonic: in.Op, Category: categoryName(cats, in.Category)})
		}
		out[i].Count++
	}
	slices.SortStableFunc(out, func(a, b Stat) int {
		return b.Count - a.Count
	})
	return out
}

// CategoryTotals counts instructions per category in canonical category
// order. Categories with no instructions are included with a zero count.
func CategoryTotals(s disasm.Stream, cats []string) []CategoryTotal {
	out := make([]CategoryTotal, len(cats))
	for i, name := range cats {
		out[i].Category = name
	}
	for _, in := range s {
		if int(in.Category) < len(out) {
			out[in.Category].Count++
		}
	}
	return out
}

// Top returns at most n rows of stats. n <= 0 means all rows.
func Top(stats []Stat, n int) []Stat {
	if n <= 0 || n >= len(stats) {
		return stats
	}
	return stats[:n]
}

func categoryName(cats []string, c uint8) string {
	if int(c) < len(cats) {
		return cats[c]
	}
	return fmt.Sprintf("Category(%d)", c)
}
