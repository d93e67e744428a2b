package analysis

import (
	"sort"
	"sync"

	"github.com/ianlancetaylor/demangle"

	"la32rstats/internal/disasm"
	"la32rstats/internal/elfx"
)

// FuncStat counts the instructions decoded inside one function symbol.
type FuncStat struct {
	Name      string `json:"name"`
	Demangled string `json:"demangled"`
	Addr      uint64 `json:"addr"`
	Size      uint64 `json:"size"`
	Count     int    `json:"count"`
	Top       string `json:"top"` // most frequent mnemonic
}

// demangleCache memoizes demangled names.
type demangleCache struct {
	mu    sync.RWMutex
	names map[string]string
	hits  int
}

var cache = &demangleCache{names: make(map[string]string)}

// CachedDemangle demangles an Itanium C++ or Rust symbol name. Names that
// are not mangled are returned unchanged.
func CachedDemangle(mangled string) string {
	cache.mu.RLock()
	if d, ok := cache.names[mangled]; ok {
		cache.mu.RUnlock()
		cache.mu.Lock()
		cache.hits++
		cache.mu.Unlock()
		return d
	}
	cache.mu.RUnlock()

	d := demangle.Filter(mangled, demangle.NoClones)

	cache.mu.Lock()
	cache.names[mangled] = d
	cache.mu.Unlock()
	return d
}

// DemangleCacheStats returns the number of cached names and cache hits.
func DemangleCacheStats() (names, hits int) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	return len(cache.names), cache.hits
}

// BySymbol attributes every instruction in s to the function symbol whose
// [Addr, Addr+Size) range contains its address. Symbols must be sorted by
// address, as elfx.Image.FuncSymbols returns them. Instructions outside
// every symbol land in a trailing Unattributed row when there are any.
// Rows keep symbol order; symbols without instructions are omitted.
func BySymbol(s disasm.Stream, syms []elfx.Symbol) []FuncStat {
	counts := make([]map[string]int, len(syms))
	rows := make([]FuncStat, len(syms))
	var (
		loose    FuncStat
		looseOps = map[string]int{}
	)
	loose.Name, loose.Demangled = Unattributed, Unattributed

	for _, in := range s {
		i := sort.Search(len(syms), func(i int) bool { return syms[i].Addr > in.Offset }) - 1
		if i < 0 || in.Offset-syms[i].Addr >= max(syms[i].Size, 1) {
			loose.Count++
			looseOps[in.Op]++
			continue
		}
		if counts[i] == nil {
			counts[i] = map[string]int{}
		}
		counts[i][in.Op]++
		rows[i].Count++
	}

	var out []FuncStat
	for i, sym := range syms {
		if rows[i].Count == 0 {
			continue
		}
		r := rows[i]
		r.Name = sym.Name
		r.Demangled = CachedDemangle(sym.Name)
		r.Addr, r.Size = sym.Addr, sym.Size
		r.Top = topOp(counts[i])
		out = append(out, r)
	}
	if loose.Count > 0 {
		loose.Top = topOp(looseOps)
		out = append(out, loose)
	}
	return out
}

// topOp returns the most frequent mnemonic, breaking ties by name.
func topOp(ops map[string]int) string {
	best, n := "", 0
	for op, c := range ops {
		if c > n || (c == n && op < best) {
			best, n = op, c
		}
	}
	return best
}
