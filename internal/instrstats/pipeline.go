// Package instrstats turns LA32R executables and raw code buffers into
// ordered instruction sequences.
package instrstats

import (
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"la32rstats/internal/disasm"
	"la32rstats/internal/elfx"
	"la32rstats/internal/la32r"
)

// Drops counts the items a decode call skipped without failing.
type Drops struct {
	UnresolvedNames  int `json:"unresolved_names"`
	Compressed       int `json:"compressed"`
	BadPayloads      int `json:"bad_payloads"`
	UndecodableWords int `json:"undecodable_words"`
}

// Total returns the number of dropped items of every kind.
func (d Drops) Total() int {
	return d.UnresolvedNames + d.Compressed + d.BadPayloads + d.UndecodableWords
}

// Result is the outcome of one decode call.
type Result struct {
	Instructions disasm.Stream
	Drops        Drops
}

// Pipeline decodes buffers with a fixed decoder. A Pipeline holds no
// per-call state and may be shared between goroutines.
type Pipeline struct {
	dec      disasm.Decoder
	logger   *log.Logger
	parallel int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDecoder replaces the LA32R decoder.
func WithDecoder(dec disasm.Decoder) Option {
	return func(p *Pipeline) {
		if dec != nil {
			p.dec = dec
		}
	}
}

// WithLogger sets the logger used to trace dropped items.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithParallelism decodes up to n code sections at once. Values below 2
// keep decoding sequential.
func WithParallelism(n int) Option {
	return func(p *Pipeline) {
		p.parallel = max(n, 1)
	}
}

// New returns a Pipeline using the LA32R decoder unless overridden.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		dec:      la32r.Decoder{},
		logger:   log.New(io.Discard),
		parallel: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Categories returns the decoder's ordered category names.
func (p *Pipeline) Categories() []string {
	return p.dec.Categories()
}

// DecodeBin decodes every complete word of data. It never fails.
func (p *Pipeline) DecodeBin(data []byte) *Result {
	res := &Result{}
	res.Instructions = disasm.Sweep(data, 0, p.dec, p.dropFunc("", &res.Drops.UndecodableWords))
	return res
}

// DecodeELF validates data as an LA32R executable and decodes its code
// sections in section header order. Any validation failure is returned
// with no instructions.
func (p *Pipeline) DecodeELF(data []byte) (*Result, error) {
	im, err := elfx.Parse(data)
	if err != nil {
		p.logger.Debug("rejected image", "err", err)
		return nil, err
	}
	return p.decodeImage(im), nil
}

// DecodeImage decodes an image that was already parsed.
func (p *Pipeline) DecodeImage(im *elfx.Image) *Result {
	return p.decodeImage(im)
}

func (p *Pipeline) decodeImage(im *elfx.Image) *Result {
	secs, skips := im.CodeSections()
	p.traceSkipped(im)

	res := &Result{Drops: Drops{
		UnresolvedNames: skips.UnresolvedNames,
		Compressed:      skips.Compressed,
		BadPayloads:     skips.BadPayloads,
	}}

	streams := make([]disasm.Stream, len(secs))
	undecodable := make([]int, len(secs))
	sweep := func(i int) {
		s := secs[i]
		streams[i] = disasm.Sweep(s.Data, s.Addr, p.dec, p.dropFunc(s.Name, &undecodable[i]))
	}

	if p.parallel > 1 && len(secs) > 1 {
		var g errgroup.Group
		g.SetLimit(p.parallel)
		for i := range secs {
			g.Go(func() error {
				sweep(i)
				return nil
			})
		}
		// Workers never fail.
		_ = g.Wait()
	} else {
		for i := range secs {
			sweep(i)
		}
	}

	n := 0
	for i, st := range streams {
		n += len(st)
		res.Drops.UndecodableWords += undecodable[i]
	}
	res.Instructions = make(disasm.Stream, 0, n)
	for _, st := range streams {
		res.Instructions = append(res.Instructions, st...)
	}
	return res
}

func (p *Pipeline) dropFunc(section string, counter *int) disasm.DropFunc {
	return func(off int, word uint32, err error) {
		*counter++
		p.logger.Debug("dropped word", "section", section, "offset", off, "word", word, "err", err)
	}
}

func (p *Pipeline) traceSkipped(im *elfx.Image) {
	if p.logger.GetLevel() > log.DebugLevel {
		return
	}
	for _, s := range im.Sections() {
		switch s.Verdict {
		case elfx.Selected, elfx.NotCode:
			continue
		}
		p.logger.Debug("skipped section", "index", s.Index, "name", s.Name, "reason", s.Verdict)
	}
}
