package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"la32rstats/internal/analysis"
	"la32rstats/internal/config"
	"la32rstats/internal/elfx"
	"la32rstats/internal/instrstats"
	"la32rstats/internal/la32r"
	"la32rstats/internal/ui/colorize"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [file]",
		Short: "Print every decoded instruction",
		Long: `Print one line per decoded instruction: address, raw word and GNU assembly.
Undecodable words are left out, as in the histogram.`,
		Example: `
la32rstats list kernel.elf | less -R
la32rstats list --type bin firmware.bin
  `,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			file, err := checkInput(args[0])
			if err != nil {
				return err
			}
			if !isTerminal(cmd) {
				s.cfg.NoColor = true
			}
			d, err := s.decodeFile(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			w := bufio.NewWriter(cmd.OutOrStdout())
			for _, in := range d.Result.Instructions {
				line := colorize.ListingLine(in.Offset, in.Word, la32r.Syntax(in.Word))
				if !s.cfg.NoColor {
					line = colorize.ColorizeInstructionLine(line)
				}
				fmt.Fprintln(w, line)
			}
			return w.Flush()
		},
	}
	return cmd
}

func newSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections [file]",
		Short: "Show the section table and which sections are decoded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			s.cfg.Type = config.TypeELF

			file, err := checkInput(args[0])
			if err != nil {
				return err
			}
			d, err := s.decodeFile(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "IDX\tNAME\tTYPE\tADDR\tOFFSET\tSIZE\tVERDICT")
			for _, sec := range d.Sections {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%08x\t%08x\t%x\t%s\n",
					sec.Index, analysis.SectionLabel(sec.Name), sec.Type, sec.Addr, sec.Offset, sec.Size, sec.Verdict)
			}
			return tw.Flush()
		},
	}
}

func newSymbolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols [file]",
		Short: "Count instructions per function symbol",
		Long: `Attribute decoded instructions to the STT_FUNC symbols that contain them.
C++ and Rust names are demangled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			s.cfg.Type = config.TypeELF

			file, err := checkInput(args[0])
			if err != nil {
				return err
			}
			d, err := s.decodeFile(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			rows := analysis.BySymbol(d.Result.Instructions, d.Symbols)

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				if rows == nil {
					rows = []analysis.FuncStat{}
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ADDR\tSIZE\tCOUNT\tTOP\tFUNCTION")
			for _, r := range rows {
				fmt.Fprintf(tw, "%08x\t%d\t%d\t%s\t%s\n", r.Addr, r.Size, r.Count, r.Top, r.Demangled)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output results as JSON")
	return cmd
}

func newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List instruction categories in index order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats := instrstats.GetInstructionCategories()
			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return writeJSON(cmd.OutOrStdout(), cats)
			}
			for i, c := range cats {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i, c)
			}
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output results as JSON")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "schema",
		Short:  "Generate JSON schema for configuration",
		Long:   "Generate JSON schema for the la32rstats configuration file",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reflector := new(jsonschema.Reflector)
			bts, err := json.MarshalIndent(reflector.Reflect(&config.Config{}), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		},
	}
}

// sectionVerdicts counts sections per verdict, for the watch summary line.
func sectionVerdicts(secs []elfx.Section) map[elfx.Verdict]int {
	out := make(map[elfx.Verdict]int)
	for _, s := range secs {
		out[s.Verdict]++
	}
	return out
}
