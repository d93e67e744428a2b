package elfx

import (
	"bytes"
	"debug/elf"
	"fmt"
	"sort"
)

// Symbol is a function symbol from the static symbol table.
type Symbol struct {
	Name    string
	Addr    uint64
	Size    uint64
	Section int
}

// FuncSymbols loads STT_FUNC symbols with a nonzero address, sorted by
// address. It goes through debug/elf, which is stricter than Parse, so a
// failure here only means no symbol information is available.
func (im *Image) FuncSymbols() ([]Symbol, error) {
	f, err := elf.NewFile(bytes.NewReader(im.All))
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("read symbols: %w", err)
	}

	var out []Symbol
	for _, sym := range syms {
		// Skip undefined and non-function symbols
		if sym.Value == 0 || elf.ST_TYPE(sym.Info) != elf.STT_FUNC {
			continue
		}
		out = append(out, Symbol{
			Name:    sym.Name,
			Addr:    sym.Value,
			Size:    sym.Size,
			Section: int(sym.Section),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Addr < out[j].Addr
	})
	return out, nil
}
