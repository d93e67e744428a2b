package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"la32rstats/internal/analysis"
	"la32rstats/internal/instrstats/styles"
	"la32rstats/internal/la32r"
	"la32rstats/internal/ui/colorize"
)

type viewMode int

const (
	viewStats viewMode = iota
	viewMnemonics
	viewListing
)

// maxListing caps the listing view; the list command prints everything.
const maxListing = 20000

type mnemonicItem struct {
	stat     analysis.Stat
	catIndex int
	share    float64 // of the largest count, for the bar
}

func (i mnemonicItem) FilterValue() string {
	return i.stat.Mnemonic + " " + i.stat.Category
}

// Custom item delegate for the mnemonic list
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(mnemonicItem)
	if !ok {
		return
	}

	indicator := " "
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	if index == m.Index() {
		indicator = ">"
		nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	}
	catStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(styles.CategoryColor(i.catIndex)))

	barWidth := max(m.Width()-48, 0)
	bar := strings.Repeat("█", int(i.share*float64(barWidth)))

	fmt.Fprintf(w, " %s  %s %s %7d  %s",
		indicator,
		nameStyle.Render(fmt.Sprintf("%-10s", i.stat.Mnemonic)),
		catStyle.Render(fmt.Sprintf("%-11s", i.stat.Category)),
		i.stat.Count,
		catStyle.Render(bar))
}

type model struct {
	viewport  viewport.Model
	mnemonics list.Model
	listing   viewport.Model
	spinner   spinner.Model
	mode      viewMode
	sess      *session
	path      string
	decoded   *decoded
	report    *report
	err       error
	loading   bool
	listed    bool
	width     int
	height    int
}

type decodedMsg struct {
	d   *decoded
	err error
}

func decodeCmd(s *session, path string) tea.Cmd {
	return func() tea.Msg {
		d, err := s.decodeFile(nil, path)
		return decodedMsg{d: d, err: err}
	}
}

func NewModel(s *session, path string) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	mnemonics := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	mnemonics.SetShowStatusBar(false)
	mnemonics.SetFilteringEnabled(true)
	mnemonics.Title = "Mnemonics"
	mnemonics.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)
	mnemonics.SetShowHelp(true)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	lvp := viewport.New()
	lvp.SetWidth(80)
	lvp.SetHeight(24)

	m := model{
		viewport:  vp,
		mnemonics: mnemonics,
		listing:   lvp,
		spinner:   sp,
		mode:      viewStats,
		sess:      s,
		path:      path,
		loading:   true,
		width:     80,
		height:    24,
	}
	m.updateContent()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		decodeCmd(m.sess, m.path),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case decodedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.decoded = msg.d
			m.report = newReport(msg.d, m.sess.pipeline.Categories(), m.sess.cfg.Top)
			m.updateMnemonics()
		}
		m.updateContent()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateContent()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.mnemonics.SetWidth(msg.Width)
			m.mnemonics.SetHeight(msg.Height - 2)
			m.listing.SetWidth(msg.Width)
			m.listing.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		// Let the list own the keyboard while its filter is open
		if m.mode == viewMnemonics && m.mnemonics.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			m.mode = viewStats
			return m, nil
		case "m":
			if m.report != nil {
				m.mode = viewMnemonics
			}
			return m, nil
		case "l":
			if m.report != nil {
				m.showListing()
			}
			return m, nil
		case "tab":
			if m.report == nil {
				return m, nil
			}
			switch m.mode {
			case viewStats:
				m.mode = viewMnemonics
			case viewMnemonics:
				m.showListing()
			case viewListing:
				m.mode = viewStats
			}
			return m, nil
		case "shift+tab":
			if m.report == nil {
				return m, nil
			}
			switch m.mode {
			case viewStats:
				m.showListing()
			case viewMnemonics:
				m.mode = viewStats
			case viewListing:
				m.mode = viewMnemonics
			}
			return m, nil
		}
	}

	switch m.mode {
	case viewMnemonics:
		m.mnemonics, cmd = m.mnemonics.Update(msg)
	case viewListing:
		m.listing, cmd = m.listing.Update(msg)
	default:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var content string
	switch m.mode {
	case viewMnemonics:
		content = m.mnemonics.View()
	case viewListing:
		content = m.listing.View()
	default:
		content = m.viewport.View()
	}

	var menu string
	switch {
	case m.report == nil:
		menu = " Q: quit "
	case m.mode == viewMnemonics:
		menu = " /: filter • S: stats • L: listing • Tab: cycle • Q: quit "
	case m.mode == viewListing:
		menu = " S: stats • M: mnemonics • Tab: cycle • Q: quit "
	default:
		menu = " M: mnemonics • L: listing • Tab: cycle • Q: quit "
	}

	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	return content + "\n" + menuStyle.Render(menu)
}

func (m *model) updateContent() {
	var md string
	switch {
	case m.loading:
		md = fmt.Sprintf("# la32rstats\n\n%s Decoding `%s`...", m.spinner.View(), escapeCell(m.path))
	case m.err != nil:
		md = fmt.Sprintf("# la32rstats\n\n**%s**", m.err)
	default:
		md = m.report.Markdown()
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	rendered, err := styles.Render(md, width-2, colorize.Disabled())
	if err != nil {
		rendered = md
	}
	m.viewport.SetContent(strings.TrimSuffix(rendered, "\n"))
}

func (m *model) updateMnemonics() {
	catIndex := make(map[string]int, len(m.report.cats))
	for i, c := range m.report.cats {
		catIndex[c] = i
	}
	highest := 1
	if len(m.report.stats) > 0 {
		highest = m.report.stats[0].Count
	}

	items := make([]list.Item, 0, len(m.report.stats))
	for _, s := range m.report.stats {
		items = append(items, mnemonicItem{
			stat:     s,
			catIndex: catIndex[s.Category],
			share:    float64(s.Count) / float64(highest),
		})
	}
	m.mnemonics.SetItems(items)
	m.mnemonics.Title = fmt.Sprintf("Mnemonics (%d distinct, %d total)", len(items), m.report.total())
}

// showListing switches to the listing view, rendering it on first use.
func (m *model) showListing() {
	m.mode = viewListing
	if m.listed {
		return
	}
	m.listed = true

	insts := m.decoded.Result.Instructions
	var b strings.Builder
	for i, in := range insts {
		if i == maxListing {
			fmt.Fprintf(&b, "; %d more instructions, use `la32rstats list` for the full listing\n", len(insts)-i)
			break
		}
		b.WriteString(colorize.ColorizeInstructionLine(colorize.ListingLine(in.Offset, in.Word, la32r.Syntax(in.Word))))
		b.WriteByte('\n')
	}
	m.listing.SetContent(strings.TrimSuffix(b.String(), "\n"))
	m.listing.GotoTop()
}
