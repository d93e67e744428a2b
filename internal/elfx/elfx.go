// Package elfx validates in-memory ELF images, locates code sections,
// and maps input files into memory.
//
// Parsing is deliberately minimal: only the ELF header, the section header
// table and the section name string table are read. Section payloads are
// returned as subslices of the caller's buffer and never copied.
package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat means the buffer is not a well-formed ELF container.
	ErrInvalidFormat = errors.New("invalid ELF format")
	// ErrUnsupportedArch means the image is not a 32-bit LoongArch executable.
	ErrUnsupportedArch = errors.New("unsupported ELF architecture")
	// ErrSectionHeaders means the section name string table could not be located.
	ErrSectionHeaders = errors.New("section headers with string table not found")
	// ErrMissingSectionTable means the image has no section header table.
	ErrMissingSectionTable = errors.New("section header table not found")
	// ErrMissingStringTable means the image has no section name string table.
	ErrMissingStringTable = errors.New("section name string table not found")
)

// MachineLA32 is the only accepted e_machine value.
const MachineLA32 = elf.EM_LOONGARCH // 258

const (
	shdr32Size = 40
	shdr64Size = 64
	phdr32Size = 32
	phdr64Size = 56
	pnXNum     = 0xffff
)

// Header holds the ELF header fields the pipeline cares about.
type Header struct {
	Class     elf.Class
	Data      elf.Data
	Type      elf.Type
	Machine   elf.Machine
	Entry     uint64
	Shoff     uint64
	Shnum     int
	Shstrndx  int
	Phoff     uint64
	Phnum     int
	shentsize int
	phentsize int
}

type sectionHeader struct {
	Name   uint32
	Type   elf.SectionType
	Flags  elf.SectionFlag
	Addr   uint64
	Offset uint64
	Size   uint64
	Link   uint32
	Info   uint32
}

// Image is a validated, read-only view of an ELF buffer.
type Image struct {
	All    []byte
	Header Header
	order  binary.ByteOrder
	shdrs  []sectionHeader
	strtab []byte
}

// Parse validates data as a 32-bit LoongArch executable and locates its
// section header table and section name string table.
//
// Structural problems yield ErrInvalidFormat; a well-formed image for the
// wrong class, type or machine yields ErrUnsupportedArch. Both are checked
// before the section table lookup errors.
func Parse(data []byte) (*Image, error) {
	im := &Image{All: data}
	if err := im.parseHeader(); err != nil {
		return nil, err
	}
	if err := im.parseSectionTable(); err != nil {
		return nil, err
	}
	if err := im.checkProgramTable(); err != nil {
		return nil, err
	}

	h := im.Header
	if h.Class != elf.ELFCLASS32 || h.Type != elf.ET_EXEC || h.Machine != MachineLA32 {
		return nil, fmt.Errorf("%w: class %v, type %v, machine %d", ErrUnsupportedArch, h.Class, h.Type, uint16(h.Machine))
	}

	if err := im.locateStringTable(); err != nil {
		return nil, err
	}
	return im, nil
}

func (im *Image) parseHeader() error {
	data := im.All
	if len(data) < elf.EI_NIDENT {
		return fmt.Errorf("%w: %d bytes is shorter than e_ident", ErrInvalidFormat, len(data))
	}
	if !bytes.Equal(data[:4], []byte(elf.ELFMAG)) {
		return fmt.Errorf("%w: bad magic %x", ErrInvalidFormat, data[:4])
	}

	h := &im.Header
	h.Class = elf.Class(data[elf.EI_CLASS])
	h.Data = elf.Data(data[elf.EI_DATA])

	switch h.Data {
	case elf.ELFDATA2LSB:
		im.order = binary.LittleEndian
	case elf.ELFDATA2MSB:
		im.order = binary.BigEndian
	default:
		return fmt.Errorf("%w: unknown data encoding %d", ErrInvalidFormat, data[elf.EI_DATA])
	}
	if v := elf.Version(data[elf.EI_VERSION]); v != elf.EV_CURRENT {
		return fmt.Errorf("%w: unknown ident version %d", ErrInvalidFormat, v)
	}

	r := bytes.NewReader(data)
	switch h.Class {
	case elf.ELFCLASS32:
		var hdr elf.Header32
		if err := binary.Read(r, im.order, &hdr); err != nil {
			return fmt.Errorf("%w: truncated header: %v", ErrInvalidFormat, err)
		}
		h.Type, h.Machine = elf.Type(hdr.Type), elf.Machine(hdr.Machine)
		h.Entry, h.Phoff, h.Shoff = uint64(hdr.Entry), uint64(hdr.Phoff), uint64(hdr.Shoff)
		h.Phnum, h.phentsize = int(hdr.Phnum), int(hdr.Phentsize)
		h.Shnum, h.shentsize, h.Shstrndx = int(hdr.Shnum), int(hdr.Shentsize), int(hdr.Shstrndx)
	case elf.ELFCLASS64:
		var hdr elf.Header64
		if err := binary.Read(r, im.order, &hdr); err != nil {
			return fmt.Errorf("%w: truncated header: %v", ErrInvalidFormat, err)
		}
		h.Type, h.Machine = elf.Type(hdr.Type), elf.Machine(hdr.Machine)
		h.Entry, h.Phoff, h.Shoff = hdr.Entry, hdr.Phoff, hdr.Shoff
		h.Phnum, h.phentsize = int(hdr.Phnum), int(hdr.Phentsize)
		h.Shnum, h.shentsize, h.Shstrndx = int(hdr.Shnum), int(hdr.Shentsize), int(hdr.Shstrndx)
	default:
		return fmt.Errorf("%w: unknown class %d", ErrInvalidFormat, data[elf.EI_CLASS])
	}
	return nil
}

func (im *Image) shdrSize() int {
	if im.Header.Class == elf.ELFCLASS64 {
		return shdr64Size
	}
	return shdr32Size
}

// parseSectionTable bounds-checks and decodes the section header table.
// A zero e_shoff means the image has no table, which is not a format error.
func (im *Image) parseSectionTable() error {
	h := &im.Header
	if h.Shoff == 0 {
		h.Shnum = 0
		return nil
	}
	if h.shentsize != im.shdrSize() {
		return fmt.Errorf("%w: section header entry size %d", ErrInvalidFormat, h.shentsize)
	}

	first, err := im.readSectionHeader(h.Shoff)
	if err != nil {
		return err
	}
	// Extended numbering keeps the real counts in section 0.
	if h.Shnum == 0 {
		if first.Size > uint64(len(im.All))/uint64(h.shentsize) {
			return fmt.Errorf("%w: section count %d exceeds file", ErrInvalidFormat, first.Size)
		}
		h.Shnum = int(first.Size)
	}
	if h.Shstrndx == int(elf.SHN_XINDEX) {
		h.Shstrndx = int(first.Link)
	}
	if h.Phnum == pnXNum {
		h.Phnum = int(first.Info)
	}
	if h.Shnum == 0 {
		return nil
	}

	if _, ok := span(im.All, h.Shoff, uint64(h.Shnum)*uint64(h.shentsize)); !ok {
		return fmt.Errorf("%w: section header table [%#x, +%d entries) out of bounds", ErrInvalidFormat, h.Shoff, h.Shnum)
	}
	im.shdrs = make([]sectionHeader, h.Shnum)
	for i := range im.shdrs {
		sh, err := im.readSectionHeader(h.Shoff + uint64(i*h.shentsize))
		if err != nil {
			return err
		}
		im.shdrs[i] = sh
	}
	return nil
}

func (im *Image) readSectionHeader(off uint64) (sectionHeader, error) {
	raw, ok := span(im.All, off, uint64(im.shdrSize()))
	if !ok {
		return sectionHeader{}, fmt.Errorf("%w: section header at %#x out of bounds", ErrInvalidFormat, off)
	}
	r := bytes.NewReader(raw)
	if im.Header.Class == elf.ELFCLASS64 {
		var s elf.Section64
		if err := binary.Read(r, im.order, &s); err != nil {
			return sectionHeader{}, fmt.Errorf("%w: section header at %#x: %v", ErrInvalidFormat, off, err)
		}
		return sectionHeader{
			Name: s.Name, Type: elf.SectionType(s.Type), Flags: elf.SectionFlag(s.Flags),
			Addr: s.Addr, Offset: s.Off, Size: s.Size, Link: s.Link, Info: s.Info,
		}, nil
	}
	var s elf.Section32
	if err := binary.Read(r, im.order, &s); err != nil {
		return sectionHeader{}, fmt.Errorf("%w: section header at %#x: %v", ErrInvalidFormat, off, err)
	}
	return sectionHeader{
		Name: s.Name, Type: elf.SectionType(s.Type), Flags: elf.SectionFlag(s.Flags),
		Addr: uint64(s.Addr), Offset: uint64(s.Off), Size: uint64(s.Size), Link: s.Link, Info: s.Info,
	}, nil
}

func (im *Image) checkProgramTable() error {
	h := im.Header
	if h.Phoff == 0 || h.Phnum == 0 {
		return nil
	}
	want := phdr32Size
	if h.Class == elf.ELFCLASS64 {
		want = phdr64Size
	}
	if h.phentsize != want {
		return fmt.Errorf("%w: program header entry size %d", ErrInvalidFormat, h.phentsize)
	}
	if _, ok := span(im.All, h.Phoff, uint64(h.Phnum)*uint64(h.phentsize)); !ok {
		return fmt.Errorf("%w: program header table [%#x, +%d entries) out of bounds", ErrInvalidFormat, h.Phoff, h.Phnum)
	}
	return nil
}

func (im *Image) locateStringTable() error {
	h := im.Header
	if len(im.shdrs) == 0 {
		return ErrMissingSectionTable
	}
	if h.Shstrndx == int(elf.SHN_UNDEF) {
		return ErrMissingStringTable
	}
	if h.Shstrndx >= len(im.shdrs) {
		return fmt.Errorf("%w: e_shstrndx %d >= %d sections", ErrSectionHeaders, h.Shstrndx, len(im.shdrs))
	}
	sh := im.shdrs[h.Shstrndx]
	tab, ok := span(im.All, sh.Offset, sh.Size)
	if !ok {
		return fmt.Errorf("%w: string table [%#x, +%#x) out of bounds", ErrSectionHeaders, sh.Offset, sh.Size)
	}
	im.strtab = tab
	return nil
}

// span returns b[off:off+size] when the range lies inside b.
func span(b []byte, off, size uint64) ([]byte, bool) {
	end := off + size
	if end < off || end > uint64(len(b)) {
		return nil, false
	}
	return b[off:end], true
}

// NumSections returns the number of section headers.
func (im *Image) NumSections() int {
	return len(im.shdrs)
}
