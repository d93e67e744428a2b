package elfx

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"la32rstats/internal/elfx/elftest"
)

func TestParseErrors(t *testing.T) {
	valid := elftest.Builder{Sections: []elftest.Section{{Name: ".text", Data: elftest.Words(0x001018a4)}}}.Bytes()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrInvalidFormat},
		{"short ident", []byte("\x7fELF"), ErrInvalidFormat},
		{"bad magic", append([]byte("\x7fELG"), valid[4:]...), ErrInvalidFormat},
		{"bad class", patch(valid, elf.EI_CLASS, 9), ErrInvalidFormat},
		{"bad data encoding", patch(valid, elf.EI_DATA, 7), ErrInvalidFormat},
		{"bad ident version", patch(valid, elf.EI_VERSION, 2), ErrInvalidFormat},
		{"truncated header", valid[:40], ErrInvalidFormat},
		{"truncated section table", valid[:len(valid)-8], ErrInvalidFormat},
		{
			"bad section entry size",
			patch16(valid, 46, 12),
			ErrInvalidFormat,
		},
		{
			"64-bit image",
			elftest.Builder{Class: elf.ELFCLASS64, Sections: []elftest.Section{{Name: ".text", Data: elftest.Words(1)}}}.Bytes(),
			ErrUnsupportedArch,
		},
		{
			"relocatable object",
			elftest.Builder{Type: elf.ET_REL}.Bytes(),
			ErrUnsupportedArch,
		},
		{
			"shared object",
			elftest.Builder{Type: elf.ET_DYN}.Bytes(),
			ErrUnsupportedArch,
		},
		{
			"riscv machine",
			elftest.Builder{Machine: elf.EM_RISCV}.Bytes(),
			ErrUnsupportedArch,
		},
		{
			"no section table",
			elftest.Builder{NoSectionTable: true}.Bytes(),
			ErrMissingSectionTable,
		},
		{
			"no string table",
			elftest.Builder{NoStrtab: true}.Bytes(),
			ErrMissingStringTable,
		},
		{
			"string table index out of range",
			elftest.Builder{StrtabIndex: 40}.Bytes(),
			ErrSectionHeaders,
		},
		{
			"string table out of bounds",
			elftest.Builder{StrtabOffset: 0x7fffff00}.Bytes(),
			ErrSectionHeaders,
		},
		{
			"nobits string table out of bounds",
			elftest.Builder{StrtabType: elf.SHT_NOBITS, StrtabOffset: 0x7fffff00}.Bytes(),
			ErrSectionHeaders,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im, err := Parse(tt.data)
			assert.Nil(t, im)
			require.Error(t, err)
			assert.Truef(t, errors.Is(err, tt.want), "Parse() err = %v, want %v", err, tt.want)
		})
	}
}

func TestParseArchBeforeSectionLookup(t *testing.T) {
	// Wrong machine and missing string table: the architecture error wins.
	data := elftest.Builder{Machine: elf.EM_386, NoStrtab: true}.Bytes()
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrUnsupportedArch)
}

func TestParseBigEndianHeader(t *testing.T) {
	data := elftest.Builder{
		Data:     elf.ELFDATA2MSB,
		Sections: []elftest.Section{{Name: ".text", Data: elftest.Words(0x001018a4)}},
	}.Bytes()
	im, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, elf.ELFDATA2MSB, im.Header.Data)

	secs, _ := im.CodeSections()
	require.Len(t, secs, 1)
	// Section payload bytes are untouched by header byte order.
	assert.Equal(t, elftest.Words(0x001018a4), secs[0].Data)
}

func TestCodeSectionsOrderAndFiltering(t *testing.T) {
	data := elftest.Builder{Sections: []elftest.Section{
		{Name: ".text.init", Addr: 0x1000, Data: elftest.Words(1, 2)},
		{Name: ".data", Data: elftest.Words(3)},
		{Name: ".text", Addr: 0x2000, Data: elftest.Words(4)},
		{Name: ".textual", Data: elftest.Words(5)},
		{Name: ".TEXT", Data: elftest.Words(6)},
		{Name: "text", Data: elftest.Words(7)},
		{Name: ".text.zip", Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR | elf.SHF_COMPRESSED, Data: make([]byte, 24)},
		{Name: ".text.bss", Type: elf.SHT_NOBITS, Data: make([]byte, 64)},
	}}.Bytes()

	im, err := Parse(data)
	require.NoError(t, err)

	secs, skips := im.CodeSections()
	var names []string
	for _, s := range secs {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{".text.init", ".text", ".textual", ".text.bss"}, names)
	assert.Equal(t, Skips{Compressed: 1}, skips)

	assert.Equal(t, elftest.Words(1, 2), secs[0].Data)
	assert.Equal(t, uint64(0x1000), secs[0].Addr)
	assert.Equal(t, elftest.Words(4), secs[1].Data)
	assert.Empty(t, secs[3].Data, "NOBITS sections carry no bytes")
}

func TestCodeSectionsBorrowImage(t *testing.T) {
	data := elftest.Builder{Sections: []elftest.Section{{Name: ".text", Data: elftest.Words(0xdeadbeef)}}}.Bytes()
	im, err := Parse(data)
	require.NoError(t, err)

	secs, _ := im.CodeSections()
	require.Len(t, secs, 1)
	off := secs[0].Offset
	data[off] = 0x42
	assert.Equal(t, byte(0x42), secs[0].Data[0], "section data must alias the image buffer")
}

func TestCodeSectionsSkipsDefects(t *testing.T) {
	data := elftest.Builder{Sections: []elftest.Section{
		{Name: ".text", Data: elftest.Words(1)},
		{Name: ".text.bad", BadName: true, Data: elftest.Words(2)},
		{Name: ".text.far", BadPayload: true, Data: elftest.Words(3)},
		{Name: ".text.last", Data: elftest.Words(4)},
	}}.Bytes()

	im, err := Parse(data)
	require.NoError(t, err)

	secs, skips := im.CodeSections()
	require.Len(t, secs, 2)
	assert.Equal(t, ".text", secs[0].Name)
	assert.Equal(t, ".text.last", secs[1].Name)
	assert.Equal(t, Skips{UnresolvedNames: 1, BadPayloads: 1}, skips)

	verdicts := map[string]Verdict{}
	for _, s := range im.Sections() {
		verdicts[s.Name] = s.Verdict
	}
	assert.Equal(t, BadPayload, verdicts[".text.far"])
	assert.Equal(t, Unnamed, verdicts[""])
	assert.Equal(t, NotCode, verdicts[".shstrtab"])
}

func TestSectionNameRequiresTerminator(t *testing.T) {
	im := &Image{strtab: []byte("\x00.text")}
	_, ok := im.sectionName(1)
	assert.False(t, ok)

	im.strtab = []byte("\x00.text\x00\xff\xfe\x00")
	name, ok := im.sectionName(1)
	assert.True(t, ok)
	assert.Equal(t, ".text", name)

	_, ok = im.sectionName(7)
	assert.False(t, ok, "invalid UTF-8 must not resolve")
}

func TestNoCodeSections(t *testing.T) {
	im, err := Parse(elftest.Builder{Sections: []elftest.Section{{Name: ".data", Data: elftest.Words(1)}}}.Bytes())
	require.NoError(t, err)
	secs, skips := im.CodeSections()
	assert.Empty(t, secs)
	assert.Equal(t, Skips{}, skips)
}

func TestFuncSymbols(t *testing.T) {
	data := elftest.Builder{
		Sections: []elftest.Section{{Name: ".text", Addr: 0x1c000000, Data: elftest.Words(1, 2, 3, 4)}},
		Symbols: []elftest.Symbol{
			{Name: "second", Value: 0x1c000008, Size: 8, Section: 1},
			{Name: "_start", Value: 0x1c000000, Size: 8, Section: 1},
		},
	}.Bytes()
	im, err := Parse(data)
	require.NoError(t, err)

	syms, err := im.FuncSymbols()
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "_start", syms[0].Name)
	assert.Equal(t, uint64(0x1c000008), syms[1].Addr)
	assert.Equal(t, uint64(8), syms[1].Size)
}

func TestFuncSymbolsMissing(t *testing.T) {
	im, err := Parse(elftest.Builder{Sections: []elftest.Section{{Name: ".text", Data: elftest.Words(1)}}}.Bytes())
	require.NoError(t, err)
	_, err = im.FuncSymbols()
	assert.Error(t, err)
}

func FuzzParse(f *testing.F) {
	f.Add(elftest.Builder{Sections: []elftest.Section{{Name: ".text", Data: elftest.Words(0x001018a4)}}}.Bytes())
	f.Add(elftest.Builder{Class: elf.ELFCLASS64}.Bytes())
	f.Add([]byte("\x7fELF\x01\x01\x01"))
	f.Fuzz(func(t *testing.T, data []byte) {
		im, err := Parse(data)
		if err != nil {
			return
		}
		for _, s := range im.Sections() {
			if s.Verdict == Selected && s.Type != elf.SHT_NOBITS && uint64(len(s.Data)) != s.Size {
				t.Fatalf("section %d: %d bytes for size %d", s.Index, len(s.Data), s.Size)
			}
		}
	})
}

func patch(b []byte, off int, v byte) []byte {
	out := append([]byte(nil), b...)
	out[off] = v
	return out
}

func patch16(b []byte, off int, v uint16) []byte {
	out := append([]byte(nil), b...)
	binary.LittleEndian.PutUint16(out[off:], v)
	return out
}
