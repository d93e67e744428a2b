// Package la32r decodes LoongArch32 Reduced instruction words into
// mnemonics and categories.
//
// Decoding is a linear scan over a match/mask table. Entries that share
// an opcode prefix are ordered from the most to the least specific mask,
// so the first hit wins.
package la32r

import (
	"encoding/binary"
	"errors"
	"strings"

	"golang.org/x/arch/loong64/loong64asm"

	"la32rstats/internal/disasm"
)

// ErrUnknown is returned for words that match no LA32R encoding.
var ErrUnknown = errors.New("la32r: unknown instruction encoding")

type opcode struct {
	mnemonic string
	match    uint32
	mask     uint32
	category Category
}

const (
	mask3R    = 0xffff8000 // opcode[31:15]
	mask2RI12 = 0xffc00000 // opcode[31:22]
	mask2RI14 = 0xff000000 // opcode[31:24]
	mask1RI20 = 0xfe000000 // opcode[31:25]
	maskI26   = 0xfc000000 // opcode[31:26]
	maskExact = 0xffffffff
	maskNoRJ  = 0xffffffe0 // opcode[31:10] with rj == 0
	maskNoRD  = 0xfffffc1f // opcode[31:10] with rd == 0
	maskCSR   = 0xff0003e0 // opcode[31:24] with fixed rj
)

var opcodes = []opcode{
	// 2R counters
	{"rdcntvl.w", 0x00006000, maskNoRJ, Counter},
	{"rdcntid.w", 0x00006000, maskNoRD, Counter},
	{"rdcntvh.w", 0x00006400, maskNoRJ, Counter},

	// 3R
	{"add.w", 0x00100000, mask3R, Arithmetic},
	{"sub.w", 0x00110000, mask3R, Arithmetic},
	{"slt", 0x00120000, mask3R, Compare},
	{"sltu", 0x00128000, mask3R, Compare},
	{"nor", 0x00140000, mask3R, Logic},
	{"and", 0x00148000, mask3R, Logic},
	{"or", 0x00150000, mask3R, Logic},
	{"xor", 0x00158000, mask3R, Logic},
	{"sll.w", 0x00170000, mask3R, Shift},
	{"srl.w", 0x00178000, mask3R, Shift},
	{"sra.w", 0x00180000, mask3R, Shift},
	{"mul.w", 0x001c0000, mask3R, Arithmetic},
	{"mulh.w", 0x001c8000, mask3R, Arithmetic},
	{"mulh.wu", 0x001d0000, mask3R, Arithmetic},
	{"div.w", 0x00200000, mask3R, Arithmetic},
	{"mod.w", 0x00208000, mask3R, Arithmetic},
	{"div.wu", 0x00210000, mask3R, Arithmetic},
	{"mod.wu", 0x00218000, mask3R, Arithmetic},
	{"break", 0x002a0000, mask3R, System},
	{"syscall", 0x002b0000, mask3R, System},

	// 2RI5
	{"slli.w", 0x00408000, mask3R, Shift},
	{"srli.w", 0x00448000, mask3R, Shift},
	{"srai.w", 0x00488000, mask3R, Shift},

	// 2RI12
	{"slti", 0x02000000, mask2RI12, Compare},
	{"sltui", 0x02400000, mask2RI12, Compare},
	{"addi.w", 0x02800000, mask2RI12, Arithmetic},
	{"andi", 0x03400000, mask2RI12, Logic},
	{"ori", 0x03800000, mask2RI12, Logic},
	{"xori", 0x03c00000, mask2RI12, Logic},

	// CSR access: rj selects the form
	{"csrrd", 0x04000000, maskCSR, Privileged},
	{"csrwr", 0x04000020, maskCSR, Privileged},
	{"csrxchg", 0x04000000, mask2RI14, Privileged},

	// privileged
	{"cacop", 0x06000000, mask2RI12, Cache},
	{"tlbsrch", 0x06482800, maskExact, Privileged},
	{"tlbrd", 0x06482c00, maskExact, Privileged},
	{"tlbwr", 0x06483000, maskExact, Privileged},
	{"tlbfill", 0x06483400, maskExact, Privileged},
	{"ertn", 0x06483800, maskExact, Privileged},
	{"idle", 0x06488000, mask3R, Privileged},
	{"invtlb", 0x06498000, mask3R, Privileged},

	// 1RI20
	{"lu12i.w", 0x14000000, mask1RI20, Arithmetic},
	{"pcaddu12i", 0x1c000000, mask1RI20, Arithmetic},

	// 2RI14
	{"ll.w", 0x20000000, mask2RI14, Atomic},
	{"sc.w", 0x21000000, mask2RI14, Atomic},

	// 2RI12 memory
	{"ld.b", 0x28000000, mask2RI12, Load},
	{"ld.h", 0x28400000, mask2RI12, Load},
	{"ld.w", 0x28800000, mask2RI12, Load},
	{"st.b", 0x29000000, mask2RI12, Store},
	{"st.h", 0x29400000, mask2RI12, Store},
	{"st.w", 0x29800000, mask2RI12, Store},
	{"ld.bu", 0x2a000000, mask2RI12, Load},
	{"ld.hu", 0x2a400000, mask2RI12, Load},
	{"preld", 0x2ac00000, mask2RI12, Cache},

	// barriers
	{"dbar", 0x38720000, mask3R, Barrier},
	{"ibar", 0x38728000, mask3R, Barrier},

	// branches
	{"jirl", 0x4c000000, maskI26, Jump},
	{"b", 0x50000000, maskI26, Jump},
	{"bl", 0x54000000, maskI26, Jump},
	{"beq", 0x58000000, maskI26, Branch},
	{"bne", 0x5c000000, maskI26, Branch},
	{"blt", 0x60000000, maskI26, Branch},
	{"bge", 0x64000000, maskI26, Branch},
	{"bltu", 0x68000000, maskI26, Branch},
	{"bgeu", 0x6c000000, maskI26, Branch},
}

// Decode returns the mnemonic and category of word.
func Decode(word uint32) (disasm.Inst, error) {
	for i := range opcodes {
		op := &opcodes[i]
		if word&op.mask == op.match {
			return disasm.Inst{Op: op.mnemonic, Category: uint8(op.category)}, nil
		}
	}
	return disasm.Inst{}, ErrUnknown
}

// Decoder is the LA32R implementation of disasm.Decoder.
type Decoder struct{}

// Decode implements disasm.Decoder.
func (Decoder) Decode(word uint32) (disasm.Inst, error) { return Decode(word) }

// Categories implements disasm.Decoder.
func (Decoder) Categories() []string { return Categories() }

// Syntax renders word as GNU assembly. LA32R encodings are a subset of
// LoongArch64, so the loong64 disassembler formats the operands; when it
// cannot, the bare mnemonic from the LA32R table is returned.
func Syntax(word uint32) string {
	inst, err := Decode(word)
	if err != nil {
		return ".word"
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], word)
	full, err := loong64asm.Decode(buf[:])
	if err != nil {
		return inst.Op
	}
	text := loong64asm.GNUSyntax(full)
	if !strings.HasPrefix(text, inst.Op) {
		return inst.Op
	}
	return text
}
