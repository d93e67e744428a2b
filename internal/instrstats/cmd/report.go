package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	pathpkg "path/filepath"
	"strings"
	"unicode/utf8"

	"la32rstats/internal/analysis"
	"la32rstats/internal/instrstats"
	"la32rstats/internal/instrstats/styles"
	"la32rstats/internal/ui/colorize"
)

// JSONOutput is the --json report.
type JSONOutput struct {
	File       string                   `json:"file"`
	Type       string                   `json:"type"`
	Total      int                      `json:"total"`
	Stats      []analysis.Stat          `json:"stats"`
	Categories []analysis.CategoryTotal `json:"categories"`
	Drops      instrstats.Drops         `json:"drops"`
}

// report is the histogram view of a decoded file.
type report struct {
	d      *decoded
	cats   []string
	stats  []analysis.Stat
	totals []analysis.CategoryTotal
	top    int
}

func newReport(d *decoded, cats []string, top int) *report {
	return &report{
		d:      d,
		cats:   cats,
		stats:  analysis.Tally(d.Result.Instructions, cats),
		totals: analysis.CategoryTotals(d.Result.Instructions, cats),
		top:    top,
	}
}

func (r *report) total() int {
	return len(r.d.Result.Instructions)
}

// sanitizeForJSON cleans a string to be valid UTF-8 and safe for JSON encoding
func sanitizeForJSON(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

func (r *report) JSON() JSONOutput {
	stats := analysis.Top(r.stats, r.top)
	if stats == nil {
		stats = []analysis.Stat{}
	}
	return JSONOutput{
		File:       sanitizeForJSON(r.d.Path),
		Type:       r.d.Type,
		Total:      r.total(),
		Stats:      stats,
		Categories: r.totals,
		Drops:      r.d.Result.Drops,
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// escapeCell keeps user-controlled text from breaking a markdown table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "`", "'")
}

func share(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}

// Markdown renders the report as a markdown document.
func (r *report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# la32rstats\n\n")
	fmt.Fprintf(&b, "`%s` (%s): **%d** instructions, %d distinct mnemonics\n\n",
		escapeCell(pathpkg.Base(r.d.Path)), r.d.Type, r.total(), len(r.stats))

	if drops := r.d.Result.Drops; drops.Total() > 0 {
		fmt.Fprintf(&b, "> skipped %d undecodable words, %d compressed sections, %d unnamed sections, %d sections out of bounds\n\n",
			drops.UndecodableWords, drops.Compressed, drops.UnresolvedNames, drops.BadPayloads)
	}

	if len(r.stats) == 0 {
		b.WriteString("No instructions decoded.\n")
		return b.String()
	}

	rows := analysis.Top(r.stats, r.top)
	b.WriteString("## Mnemonics\n\n")
	b.WriteString("| # | Mnemonic | Category | Count | Share |\n")
	b.WriteString("|--:|----------|----------|------:|------:|\n")
	for i, s := range rows {
		fmt.Fprintf(&b, "| %d | `%s` | %s | %d | %s |\n", i+1, s.Mnemonic, s.Category, s.Count, share(s.Count, r.total()))
	}
	if n := len(r.stats) - len(rows); n > 0 {
		fmt.Fprintf(&b, "\n%d more mnemonics not shown.\n", n)
	}

	b.WriteString("\n## Categories\n\n")
	b.WriteString("| Category | Count | Share |\n")
	b.WriteString("|----------|------:|------:|\n")
	for _, c := range r.totals {
		if c.Count == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %s |\n", c.Category, c.Count, share(c.Count, r.total()))
	}
	return b.String()
}

// writeReport renders the markdown report for a non-interactive terminal
// or pipe.
func writeReport(w io.Writer, r *report, width int) error {
	out, err := styles.Render(r.Markdown(), width, colorize.Disabled())
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
