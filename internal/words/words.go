// Package words splits raw code bytes into fixed-width little-endian
// instruction words.
package words

import (
	"encoding/binary"
	"iter"
)

// Size is the width of one instruction word in bytes.
const Size = 4

// Count returns the number of complete words in b.
func Count(b []byte) int {
	return len(b) / Size
}

// All yields (byte offset, word) for every complete 4-byte chunk of b,
// left to right. A trailing remainder shorter than Size is never yielded.
func All(b []byte) iter.Seq2[int, uint32] {
	return func(yield func(int, uint32) bool) {
		n := Count(b) * Size
		for off := 0; off < n; off += Size {
			if !yield(off, binary.LittleEndian.Uint32(b[off:off+Size])) {
				return
			}
		}
	}
}

// Slice returns the words of b as a slice.
func Slice(b []byte) []uint32 {
	out := make([]uint32, 0, Count(b))
	for _, w := range All(b) {
		out = append(out, w)
	}
	return out
}
