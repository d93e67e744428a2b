package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"la32rstats/internal/config"
	"la32rstats/internal/elfx"
	"la32rstats/internal/instrstats"
	applog "la32rstats/internal/instrstats/log"
	"la32rstats/internal/logging"
)

// session carries the resolved settings of one command invocation.
type session struct {
	cfg      config.Config
	log      *logging.LoggerCloser
	pipeline *instrstats.Pipeline
	unwrap   bool // decompress gzip and zip inputs first
	snapshot bool // read files into memory instead of mapping them
}

// decoded is everything the commands need from one input file. Nothing in
// it aliases the input buffer, so it outlives the file mapping.
type decoded struct {
	Path     string
	Type     string
	Result   *instrstats.Result
	Sections []elfx.Section
	Symbols  []elfx.Symbol
}

// loadSettings merges defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("type") {
		cfg.Type, _ = flags.GetString("type")
	}
	if flags.Changed("parallel") {
		cfg.Parallelism, _ = flags.GetInt("parallel")
	}
	if flags.Changed("top") {
		cfg.Top, _ = flags.GetInt("top")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("no-color") {
		cfg.NoColor, _ = flags.GetBool("no-color")
	}
	return cfg, cfg.Validate()
}

func newSession(cmd *cobra.Command) (*session, error) {
	if _, err := ResolveCwd(cmd); err != nil {
		return nil, err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}

	lg := logging.NewLogger()
	if cfg.Debug {
		lg.ForceDebug()
	}
	applog.Setup(cfg.Debug)
	if cfg.NoColor {
		os.Setenv("LA32RSTATS_NO_COLOR", "1")
	}

	decompress, _ := cmd.Flags().GetBool("decompress")

	return &session{
		cfg:    cfg,
		log:    lg,
		unwrap: decompress,
		pipeline: instrstats.New(
			instrstats.WithLogger(lg.Logger),
			instrstats.WithParallelism(cfg.Parallelism),
		),
	}, nil
}

func (s *session) Close() error {
	return s.log.Close()
}

// decodeFile decodes path, or stdin when path is "-".
func (s *session) decodeFile(stdin io.Reader, path string) (*decoded, error) {
	data, release, err := s.load(stdin, path)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.decode(path, data)
}

// load returns the bytes of path and a func that releases them. Files are
// mapped unless the session takes snapshots; a mapping faults on access
// if another process truncates the file, a snapshot does not.
func (s *session) load(stdin io.Reader, path string) ([]byte, func(), error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, func() {}, nil
	}
	if s.snapshot {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read file: %w", err)
		}
		return data, func() {}, nil
	}

	m, err := elfx.MapFile(path)
	if err != nil {
		return nil, nil, err
	}
	return m.Data, func() { m.Close() }, nil
}

func (s *session) decode(path string, data []byte) (*decoded, error) {
	if s.unwrap {
		var err error
		if data, err = unwrap(data, path); err != nil {
			return nil, err
		}
	}

	d := &decoded{Path: path, Type: s.cfg.Type}
	if s.cfg.Type == config.TypeBin {
		d.Result = s.pipeline.DecodeBin(data)
		s.log.Debug("decoded raw buffer", "file", path, "bytes", len(data), "instructions", len(d.Result.Instructions))
		return d, nil
	}

	im, err := elfx.Parse(data)
	if err != nil {
		s.log.Debug("rejected image", "file", path, "err", err)
		return nil, instrstats.AsError(err)
	}
	d.Result = s.pipeline.DecodeImage(im)

	d.Sections = im.Sections()
	for i := range d.Sections {
		d.Sections[i].Data = nil
	}
	syms, err := im.FuncSymbols()
	if err != nil {
		s.log.Debug("no function symbols", "file", path, "err", err)
	}
	d.Symbols = syms

	s.log.Debug("decoded image",
		"file", path,
		"sections", im.NumSections(),
		"instructions", len(d.Result.Instructions),
		"dropped", d.Result.Drops.Total())
	return d, nil
}
