package elfx

import (
	"bytes"
	"debug/elf"
	"strings"
	"unicode/utf8"
)

// CodePrefix selects code-bearing sections by name.
const CodePrefix = ".text"

// Verdict records why a section header was or was not selected.
type Verdict int

const (
	Selected   Verdict = iota
	NotCode            // name lacks CodePrefix
	Unnamed            // name could not be resolved through the string table
	Compressed         // SHF_COMPRESSED code section, skipped without decompression
	BadPayload         // section data lies outside the image
)

func (v Verdict) String() string {
	switch v {
	case Selected:
		return "selected"
	case NotCode:
		return "not code"
	case Unnamed:
		return "unresolved name"
	case Compressed:
		return "compressed"
	case BadPayload:
		return "bad payload"
	default:
		return "unknown"
	}
}

// Section is a borrowed view of one section. Data aliases Image.All.
type Section struct {
	Index   int
	Name    string
	Type    elf.SectionType
	Flags   elf.SectionFlag
	Addr    uint64
	Offset  uint64
	Size    uint64
	Data    []byte
	Verdict Verdict
}

// Skips counts the section headers dropped by CodeSections.
type Skips struct {
	UnresolvedNames int
	Compressed      int
	BadPayloads     int
}

// Sections returns every section header in table order together with its
// selection verdict. Data is only set for selected sections.
func (im *Image) Sections() []Section {
	out := make([]Section, 0, len(im.shdrs))
	for i, sh := range im.shdrs {
		s := Section{
			Index:  i,
			Type:   sh.Type,
			Flags:  sh.Flags,
			Addr:   sh.Addr,
			Offset: sh.Offset,
			Size:   sh.Size,
		}
		name, ok := im.sectionName(sh.Name)
		if !ok {
			s.Verdict = Unnamed
			out = append(out, s)
			continue
		}
		s.Name = name
		s.Verdict = im.classify(&s)
		out = append(out, s)
	}
	return out
}

func (im *Image) classify(s *Section) Verdict {
	if !strings.HasPrefix(s.Name, CodePrefix) {
		return NotCode
	}
	if s.Type == elf.SHT_NOBITS {
		s.Data = im.All[:0]
		return Selected
	}
	data, ok := span(im.All, s.Offset, s.Size)
	if !ok {
		return BadPayload
	}
	if s.Flags&elf.SHF_COMPRESSED != 0 {
		return Compressed
	}
	s.Data = data
	return Selected
}

// CodeSections returns the sections whose name starts with CodePrefix and
// that carry no compression, in section header order. Headers that cannot
// be used are skipped and counted, never reported as errors.
func (im *Image) CodeSections() ([]Section, Skips) {
	var (
		out   []Section
		skips Skips
	)
	for _, s := range im.Sections() {
		switch s.Verdict {
		case Selected:
			out = append(out, s)
		case Unnamed:
			skips.UnresolvedNames++
		case Compressed:
			skips.Compressed++
		case BadPayload:
			skips.BadPayloads++
		}
	}
	return out, skips
}

// sectionName reads a NUL-terminated UTF-8 name at off in the section name
// string table.
func (im *Image) sectionName(off uint32) (string, bool) {
	if uint64(off) >= uint64(len(im.strtab)) {
		return "", false
	}
	rest := im.strtab[off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", false
	}
	name := rest[:end]
	if !utf8.Valid(name) {
		return "", false
	}
	return string(name), true
}
