package instrstats

import (
	"errors"

	"la32rstats/internal/disasm"
	"la32rstats/internal/elfx"
	"la32rstats/internal/la32r"
)

// Boundary messages for whole-call ELF failures.
const (
	MsgInvalidFormat       = "Not a valid ELF file."
	MsgUnsupportedArch     = "Not an LA32 ELF file."
	MsgSectionHeaders      = "Can not find section headers with strtab"
	MsgMissingSectionTable = "Can not find section headers."
	MsgMissingStringTable  = "Can not find strtab."
)

// Error is a whole-call decode failure. Its message is one of the fixed
// boundary messages; the parser error is kept as the cause.
type Error struct {
	Msg   string
	Cause error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Cause }

// AsError maps a parser error onto its boundary message. Unknown errors
// are reported as an invalid format.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	msg := MsgInvalidFormat
	switch {
	case errors.Is(err, elfx.ErrUnsupportedArch):
		msg = MsgUnsupportedArch
	case errors.Is(err, elfx.ErrSectionHeaders):
		msg = MsgSectionHeaders
	case errors.Is(err, elfx.ErrMissingSectionTable):
		msg = MsgMissingSectionTable
	case errors.Is(err, elfx.ErrMissingStringTable):
		msg = MsgMissingStringTable
	}
	return &Error{Msg: msg, Cause: err}
}

// Instruction is the boundary form of a decoded word. Category indexes
// into GetInstructionCategories.
type Instruction struct {
	Mnemonic string `json:"mnemonic"`
	Category uint8  `json:"category"`
}

var defaultPipeline = New()

// DecodeElfInstructions decodes the code sections of an LA32R executable.
// On failure the returned error is an *Error and no instructions are
// returned.
func DecodeElfInstructions(data []byte) ([]Instruction, error) {
	res, err := defaultPipeline.DecodeELF(data)
	if err != nil {
		return nil, AsError(err)
	}
	return Instructions(res.Instructions), nil
}

// DecodeBinInstructions decodes data as a flat run of instruction words.
func DecodeBinInstructions(data []byte) []Instruction {
	return Instructions(defaultPipeline.DecodeBin(data).Instructions)
}

// GetInstructionCategories returns the ordered category names.
func GetInstructionCategories() []string {
	return la32r.Categories()
}

// Instructions converts a decoded stream to its boundary form. The result
// is never nil.
func Instructions(s disasm.Stream) []Instruction {
	out := make([]Instruction, len(s))
	for i, in := range s {
		out[i] = Instruction{Mnemonic: in.Op, Category: in.Category}
	}
	return out
}
