// Package disasm defines a common instruction representation used
// across architecture-specific decoders, and the linear sweep that
// drives a decoder over a code buffer.
package disasm

import (
	"la32rstats/internal/words"
)

// Inst is a simplified decoded instruction.
type Inst struct {
	Offset   uint64 // base address plus byte offset of the word
	Word     uint32 // raw little-endian encoding
	Op       string // mnemonic in lowercase
	Category uint8  // index into the decoder's category list
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Decoder maps one machine word to a decoded instruction. Implementations
// must be pure: the same word always yields the same result, and Decode is
// safe to call from several goroutines at once.
type Decoder interface {
	// Decode returns the mnemonic and category of word, or an error if the
	// encoding is not recognized. Offset and Word of the result are ignored.
	Decode(word uint32) (Inst, error)

	// Categories returns the ordered category names. Inst.Category indexes
	// into this list.
	Categories() []string
}

// DropFunc is called for every word the decoder rejects.
type DropFunc func(off int, word uint32, err error)

// Sweep decodes every complete word of code in byte order. base is added
// to each word's offset. Undecodable words are skipped and reported to
// drop when it is non-nil.
func Sweep(code []byte, base uint64, dec Decoder, drop DropFunc) Stream {
	out := make(Stream, 0, words.Count(code))
	for off, w := range words.All(code) {
		inst, err := dec.Decode(w)
		if err != nil {
			if drop != nil {
				drop(off, w, err)
			}
			continue
		}
		inst.Offset = base + uint64(off)
		inst.Word = w
		out = append(out, inst)
	}
	return out
}

// Ops returns the mnemonics of s in order.
func (s Stream) Ops() []string {
	ops := make([]string, len(s))
	for i, in := range s {
		ops[i] = in.Op
	}
	return ops
}
