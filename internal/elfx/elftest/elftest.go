// Package elftest builds small synthetic ELF images for tests.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Section describes one section to emit after the null section.
type Section struct {
	Name  string
	Type  elf.SectionType // defaults to SHT_PROGBITS
	Flags elf.SectionFlag // defaults to SHF_ALLOC|SHF_EXECINSTR for .text names
	Addr  uint64
	Data  []byte

	BadName    bool // sh_name points outside the string table
	BadPayload bool // sh_offset points past the end of the file
}

// Symbol is a function symbol emitted into .symtab. Section is the
// 1-based index into Builder.Sections.
type Symbol struct {
	Name    string
	Value   uint64
	Size    uint64
	Section int
}

// Builder describes an image. The zero value, plus sections, is a valid
// little-endian 32-bit LoongArch executable.
type Builder struct {
	Class    elf.Class
	Data     elf.Data
	Type     elf.Type
	Machine  elf.Machine
	Sections []Section
	Symbols  []Symbol

	NoSectionTable bool // e_shoff = 0
	NoStrtab       bool // e_shstrndx = SHN_UNDEF
	StrtabIndex    int  // overrides e_shstrndx when nonzero

	StrtabType   elf.SectionType // overrides the .shstrtab header type when nonzero
	StrtabOffset uint64          // overrides the .shstrtab sh_offset when nonzero
}

type shdr struct {
	name, typ            uint32
	flags, addr, off, sz uint64
	link, info           uint32
	align, entsize       uint64
}

// Bytes lays out the image: ELF header, section payloads, string tables,
// then the section header table.
func (b Builder) Bytes() []byte {
	class := b.Class
	if class == elf.ELFCLASSNONE {
		class = elf.ELFCLASS32
	}
	data := b.Data
	if data == elf.ELFDATANONE {
		data = elf.ELFDATA2LSB
	}
	typ := b.Type
	if typ == elf.ET_NONE {
		typ = elf.ET_EXEC
	}
	machine := b.Machine
	if machine == elf.EM_NONE {
		machine = elf.EM_LOONGARCH
	}
	var order binary.ByteOrder = binary.LittleEndian
	if data == elf.ELFDATA2MSB {
		order = binary.BigEndian
	}
	is64 := class == elf.ELFCLASS64

	ehsize, shentsize := 52, 40
	if is64 {
		ehsize, shentsize = 64, 64
	}

	var body bytes.Buffer
	body.Write(make([]byte, ehsize))

	shstrtab := []byte{0}
	addName := func(name string) uint32 {
		off := uint32(len(shstrtab))
		shstrtab = append(shstrtab, name...)
		shstrtab = append(shstrtab, 0)
		return off
	}

	hdrs := []shdr{{}}
	for _, s := range b.Sections {
		st := s.Type
		if st == elf.SHT_NULL {
			st = elf.SHT_PROGBITS
		}
		flags := s.Flags
		if flags == 0 && len(s.Name) >= 5 && s.Name[:5] == ".text" {
			flags = elf.SHF_ALLOC | elf.SHF_EXECINSTR
		}
		h := shdr{
			name:  addName(s.Name),
			typ:   uint32(st),
			flags: uint64(flags),
			addr:  s.Addr,
			off:   uint64(body.Len()),
			sz:    uint64(len(s.Data)),
			align: 4,
		}
		if s.BadName {
			h.name = 0xffffff
		}
		if st != elf.SHT_NOBITS {
			body.Write(s.Data)
		}
		if s.BadPayload {
			h.off = 1 << 30
		}
		hdrs = append(hdrs, h)
	}

	if len(b.Symbols) > 0 && !is64 {
		strtab := []byte{0}
		var symtab bytes.Buffer
		binary.Write(&symtab, order, elf.Sym32{})
		for _, sym := range b.Symbols {
			binary.Write(&symtab, order, elf.Sym32{
				Name:  uint32(len(strtab)),
				Value: uint32(sym.Value),
				Size:  uint32(sym.Size),
				Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC),
				Shndx: uint16(sym.Section),
			})
			strtab = append(strtab, sym.Name...)
			strtab = append(strtab, 0)
		}
		symIndex := len(hdrs)
		hdrs = append(hdrs, shdr{
			name:    addName(".symtab"),
			typ:     uint32(elf.SHT_SYMTAB),
			off:     uint64(body.Len()),
			sz:      uint64(symtab.Len()),
			link:    uint32(symIndex + 1),
			info:    1,
			align:   4,
			entsize: 16,
		})
		body.Write(symtab.Bytes())
		hdrs = append(hdrs, shdr{
			name:  addName(".strtab"),
			typ:   uint32(elf.SHT_STRTAB),
			off:   uint64(body.Len()),
			sz:    uint64(len(strtab)),
			align: 1,
		})
		body.Write(strtab)
	}

	strndx := len(hdrs)
	nameOff := addName(".shstrtab")
	strHdr := shdr{
		name:  nameOff,
		typ:   uint32(elf.SHT_STRTAB),
		off:   uint64(body.Len()),
		sz:    uint64(len(shstrtab)),
		align: 1,
	}
	if b.StrtabType != elf.SHT_NULL {
		strHdr.typ = uint32(b.StrtabType)
	}
	if b.StrtabOffset != 0 {
		strHdr.off = b.StrtabOffset
	}
	hdrs = append(hdrs, strHdr)
	body.Write(shstrtab)
	for body.Len()%8 != 0 {
		body.WriteByte(0)
	}

	shoff := uint64(body.Len())
	for _, h := range hdrs {
		if is64 {
			binary.Write(&body, order, elf.Section64{
				Name: h.name, Type: h.typ, Flags: h.flags, Addr: h.addr, Off: h.off,
				Size: h.sz, Link: h.link, Info: h.info, Addralign: h.align, Entsize: h.entsize,
			})
		} else {
			binary.Write(&body, order, elf.Section32{
				Name: h.name, Type: h.typ, Flags: uint32(h.flags), Addr: uint32(h.addr), Off: uint32(h.off),
				Size: uint32(h.sz), Link: h.link, Info: h.info, Addralign: uint32(h.align), Entsize: uint32(h.entsize),
			})
		}
	}

	shnum := len(hdrs)
	if b.NoSectionTable {
		shoff, shnum = 0, 0
	}
	switch {
	case b.NoStrtab:
		strndx = int(elf.SHN_UNDEF)
	case b.StrtabIndex != 0:
		strndx = b.StrtabIndex
	}

	out := body.Bytes()
	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(class)
	ident[elf.EI_DATA] = byte(data)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var hdr bytes.Buffer
	if is64 {
		binary.Write(&hdr, order, elf.Header64{
			Ident: ident, Type: uint16(typ), Machine: uint16(machine), Version: uint32(elf.EV_CURRENT),
			Shoff: shoff, Ehsize: uint16(ehsize), Shentsize: uint16(shentsize),
			Shnum: uint16(shnum), Shstrndx: uint16(strndx),
		})
	} else {
		binary.Write(&hdr, order, elf.Header32{
			Ident: ident, Type: uint16(typ), Machine: uint16(machine), Version: uint32(elf.EV_CURRENT),
			Shoff: uint32(shoff), Ehsize: uint16(ehsize), Shentsize: uint16(shentsize),
			Shnum: uint16(shnum), Shstrndx: uint16(strndx),
		})
	}
	copy(out, hdr.Bytes())
	return out
}

// Words encodes ws as little-endian instruction words.
func Words(ws ...uint32) []byte {
	out := make([]byte, 4*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}
