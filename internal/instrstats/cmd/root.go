package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	pathpkg "path/filepath"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Every call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "la32rstats [file]",
		Short: "Instruction statistics for LA32R binaries",
		Long: `la32rstats decodes the code sections of a LoongArch32 Reduced executable,
or a raw code buffer, and reports how often each instruction is used.
Pass - as the file to read standard input.`,
		Example: `
# Browse the histogram interactively
la32rstats kernel.elf

# Top 10 mnemonics of a flat binary as JSON
la32rstats --type bin --top 10 --json firmware.bin
  `,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runRoot,
	}

	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/la32rstats/config.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().StringP("type", "t", "elf", "Input type: elf or bin")
	rootCmd.PersistentFlags().IntP("parallel", "p", 1, "Code sections decoded at once")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colors")
	rootCmd.PersistentFlags().BoolP("decompress", "z", false, "Unwrap gzip or zip input before decoding")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Show summary without TUI")
	rootCmd.Flags().BoolP("json", "j", false, "Output results as JSON")
	rootCmd.Flags().IntP("top", "k", 20, "Histogram rows to show (0 shows all)")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")

	rootCmd.AddCommand(
		newListCmd(),
		newSectionsCmd(),
		newSymbolsCmd(),
		newCategoriesCmd(),
		newWatchCmd(),
		newSchemaCmd(),
	)
	return rootCmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	memprofile, _ := cmd.Flags().GetString("memprofile")
	if memprofile != "" {
		defer func() {
			f, err := os.Create(memprofile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
				return
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
			}
		}()
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	file, err := checkInput(args[0])
	if err != nil {
		return err
	}

	noTUI, _ := cmd.Flags().GetBool("no-tui")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// No TUI when output is piped or the input is stdin
	if file == "-" || !isTerminal(cmd) {
		noTUI = true
		os.Setenv("LA32RSTATS_NO_COLOR", "1")
	}

	if jsonOutput || noTUI {
		d, err := s.decodeFile(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}
		r := newReport(d, s.pipeline.Categories(), s.cfg.Top)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), r.JSON())
		}
		return writeReport(cmd.OutOrStdout(), r, 100)
	}

	program := tea.NewProgram(
		NewModel(s, file),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := program.Run(); err != nil {
		slog.Error("TUI run error", "error", err)
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// checkInput resolves file to an absolute path and checks that it exists.
// "-" is passed through.
func checkInput(file string) (string, error) {
	if file == "-" {
		return file, nil
	}
	absPath, err := pathpkg.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %v", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", file)
		}
		return "", fmt.Errorf("cannot access file: %v", err)
	}
	return absPath, nil
}

// isTerminal reports whether the command writes to a terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func Execute() {
	// fang renders errors and help as styled markdown, which is only
	// wanted on an interactive terminal
	plain := !term.IsTerminal(os.Stdout.Fd())
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" || arg == "--json" || arg == "-j" {
			plain = true
			break
		}
	}

	rootCmd := NewRootCmd()
	if plain {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}
