package la32r

import "fmt"

// Category classifies an instruction by functional kind. Values are
// positional indices into Categories() and must not be reordered.
type Category uint8

const (
	Arithmetic Category = iota
	Logic
	Shift
	Compare
	Branch
	Jump
	Load
	Store
	Atomic
	Barrier
	Cache
	Counter
	System
	Privileged

	numCategories
)

var categoryNames = [numCategories]string{
	Arithmetic: "Arithmetic",
	Logic:      "Logic",
	Shift:      "Shift",
	Compare:    "Compare",
	Branch:     "Branch",
	Jump:       "Jump",
	Load:       "Load",
	Store:      "Store",
	Atomic:     "Atomic",
	Barrier:    "Barrier",
	Cache:      "Cache",
	Counter:    "Counter",
	System:     "System",
	Privileged: "Privileged",
}

func (c Category) String() string {
	if c >= numCategories {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// Categories returns every category name in canonical order. The returned
// slice is a copy and may be modified by the caller.
func Categories() []string {
	out := make([]string, numCategories)
	copy(out, categoryNames[:])
	return out
}
