package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/pithecene-io/codestory/align"
	"github.com/pithecene-io/codestory/analysis"
	"github.com/pithecene-io/codestory/types"
)

type pane int

const (
	sourcePane pane = iota
	stepsPane
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	tabWidth      = 4

	// header line, help margin and help line, two border rows
	chromeRows = 5
	// blank, location and note rows under the step list
	stepDetailRows = 3
)

// WalkthroughModel shows the source next to the walkthrough steps and keeps
// the two selections in sync: selecting a step highlights its trimmed range,
// and moving the source cursor selects the step that owns the line.
type WalkthroughModel struct {
	result *analysis.Result
	snap   *align.Snapshot
	lines  []string
	steps  []string

	focus pane
	// cursor is the 1-based source line, 0 when the source is empty.
	cursor int
	// step is the selected walkthrough step, -1 for none.
	step       int
	lineOffset int
	stepOffset int

	width    int
	height   int
	overview bool
	quitting bool
}

// NewWalkthroughModel creates a walkthrough model with the first step
// selected.
func NewWalkthroughModel(result *analysis.Result) WalkthroughModel {
	m := WalkthroughModel{
		result: result,
		focus:  stepsPane,
		step:   -1,
		width:  defaultWidth,
		height: defaultHeight,
	}
	if result.Explanation != nil {
		m.steps = result.Explanation.Walkthrough
	}
	m.snap = result.Alignment
	if m.snap == nil {
		m.snap = align.Build(result.Source, len(m.steps), nil)
	}
	m.lines = m.snap.Lines()
	if len(m.lines) > 0 {
		m.cursor = 1
	}
	if len(m.steps) > 0 {
		m.selectStep(0)
	}
	return m
}

// Init implements tea.Model.
func (m WalkthroughModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m WalkthroughModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scrollIntoView()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Overview):
			m.overview = !m.overview
		case m.overview:
			// only quit and toggle while the overview is open
		case key.Matches(msg, keys.Tab):
			if m.focus == sourcePane {
				m.focus = stepsPane
			} else {
				m.focus = sourcePane
			}
		case key.Matches(msg, keys.Up):
			m.move(-1)
		case key.Matches(msg, keys.Down):
			m.move(1)
		}
	}

	return m, nil
}

func (m *WalkthroughModel) move(delta int) {
	if m.focus == stepsPane {
		if len(m.steps) > 0 {
			m.selectStep(clamp(m.step+delta, 0, len(m.steps)-1))
		}
		return
	}
	if len(m.lines) > 0 {
		m.selectLine(clamp(m.cursor+delta, 1, len(m.lines)))
	}
}

// selectStep selects a step and moves the source cursor to the start of
// its highlight.
func (m *WalkthroughModel) selectStep(step int) {
	m.step = step
	if hl, ok := m.snap.HighlightRangeForStep(step); ok {
		m.cursor = hl.StartLine
	}
	m.scrollIntoView()
}

// selectLine moves the source cursor and selects the owning step. Lines no
// step covers clear the selection.
func (m *WalkthroughModel) selectLine(line int) {
	m.cursor = line
	if step, ok := m.snap.StepForLine(line); ok {
		m.step = step
	} else {
		m.step = -1
	}
	m.scrollIntoView()
}

func (m *WalkthroughModel) scrollIntoView() {
	if m.cursor > 0 {
		m.lineOffset = scrollTo(m.lineOffset, m.cursor-1, m.sourceRows())
	}
	if m.step >= 0 {
		m.stepOffset = scrollTo(m.stepOffset, m.step, m.stepRows())
	}
}

func scrollTo(offset, idx, rows int) int {
	if idx < offset {
		return idx
	}
	if idx >= offset+rows {
		return idx - rows + 1
	}
	return offset
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func (m WalkthroughModel) sourceRows() int {
	return max(m.height-chromeRows, 3)
}

func (m WalkthroughModel) stepRows() int {
	return max(m.sourceRows()-stepDetailRows, 1)
}

// paneWidths returns the content width (padding included) of each pane.
func (m WalkthroughModel) paneWidths() (int, int) {
	avail := max(m.width-4, 24)
	source := avail * 3 / 5
	return source, avail - source
}

// View implements tea.Model.
func (m WalkthroughModel) View() string {
	if m.quitting {
		return ""
	}
	if m.overview {
		return m.renderOverview() + "\n" + HelpStyle.Render("o back · q quit")
	}

	sourceWidth, stepsWidth := m.paneWidths()
	rows := m.sourceRows()
	source := m.paneStyle(sourcePane).Width(sourceWidth).Height(rows).
		Render(m.renderSource(sourceWidth-2, rows))
	steps := m.paneStyle(stepsPane).Width(stepsWidth).Height(rows).
		Render(m.renderSteps(stepsWidth-2, rows))

	help := HelpStyle.Render("tab switch pane · ↑/↓ move · o overview · q quit")
	return m.renderHeader() + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, source, steps) + "\n" + help
}

func (m WalkthroughModel) paneStyle(p pane) lipgloss.Style {
	if m.focus == p {
		return FocusedPaneStyle
	}
	return PaneStyle
}

func (m WalkthroughModel) renderHeader() string {
	meta := []string{m.result.Model}
	if m.result.Language != "" {
		meta = append(meta, m.result.Language)
	}
	meta = append(meta, fmt.Sprintf("%d steps", len(m.steps)))
	return TitleStyle.Render("Code walkthrough") + " " + MutedStyle.Render(strings.Join(meta, " · "))
}

func (m WalkthroughModel) renderSource(width, rows int) string {
	if len(m.lines) == 0 {
		return MutedStyle.Render("(empty source)")
	}

	gutter := len(strconv.Itoa(len(m.lines)))
	hl, hasRange := m.snap.HighlightRangeForStep(m.step)
	end := min(m.lineOffset+rows, len(m.lines))

	out := make([]string, 0, end-m.lineOffset)
	for i := m.lineOffset; i < end; i++ {
		n := i + 1
		marker := " "
		if n == m.cursor && m.focus == sourcePane {
			marker = ">"
		}
		inRange := hasRange && n >= hl.StartLine && n <= hl.EndLine
		bar := " "
		if inRange {
			bar = "┃"
		}
		prefix := fmt.Sprintf("%s%*d %s ", marker, gutter, n, bar)
		avail := max(width-runewidth.StringWidth(prefix), 1)
		text := strings.ReplaceAll(m.lines[i], "\t", strings.Repeat(" ", tabWidth))
		text = runewidth.FillRight(runewidth.Truncate(text, avail, "…"), avail)
		if inRange {
			text = RangeStyle.Render(text)
		}
		out = append(out, MutedStyle.Render(prefix)+text)
	}
	return strings.Join(out, "\n")
}

func (m WalkthroughModel) renderSteps(width, rows int) string {
	if len(m.steps) == 0 {
		return MutedStyle.Render("(no walkthrough)")
	}

	listRows := max(rows-stepDetailRows, 1)
	end := min(m.stepOffset+listRows, len(m.steps))
	out := make([]string, 0, rows)
	for i := m.stepOffset; i < end; i++ {
		marker := "  "
		if i == m.step {
			marker = "> "
		}
		text := runewidth.Truncate(fmt.Sprintf("%s%d. %s", marker, i+1, oneLine(m.steps[i])), width, "…")
		if i == m.step {
			text = SelectedStepStyle.Render(text)
		}
		out = append(out, text)
	}

	if m.step >= 0 {
		out = append(out, "", MutedStyle.Render(runewidth.Truncate(m.stepLocation(), width, "…")))
		if r, ok := m.snap.RangeForStep(m.step); ok && r.Note != "" {
			out = append(out, runewidth.Truncate(oneLine(r.Note), width, "…"))
		}
	}
	return strings.Join(out, "\n")
}

// stepLocation describes the highlighted lines of the selected step.
func (m WalkthroughModel) stepLocation() string {
	hl, ok := m.snap.HighlightRangeForStep(m.step)
	switch {
	case !ok:
		return fmt.Sprintf("Step %d: no lines", m.step+1)
	case hl.StartLine == hl.EndLine:
		return fmt.Sprintf("Step %d: line %d", m.step+1, hl.StartLine)
	default:
		return fmt.Sprintf("Step %d: lines %d–%d", m.step+1, hl.StartLine, hl.EndLine)
	}
}

func (m WalkthroughModel) renderOverview() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Overview"))
	b.WriteString("\n\n")

	var issues types.Issues
	var summary, risk string
	if e := m.result.Explanation; e != nil {
		issues, summary, risk = e.Issues, e.Summary, e.RiskOverview
	}

	boxes := []string{
		renderStatBox("Lines", m.snap.TotalLines(), highlightColor),
		renderStatBox("Steps", len(m.steps), primaryColor),
		renderStatBox("Aligned", m.snap.Stats().Aligned, successColor),
		renderStatBox("Issues", issues.Total(), warningColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

	wrap := lipgloss.NewStyle().Width(max(m.width-4, 20))
	if summary != "" {
		b.WriteString("\n\n" + SectionStyle.Render("Summary") + "\n" + wrap.Render(summary))
	}
	if risk != "" {
		b.WriteString("\n\n" + SectionStyle.Render("Risk overview") + "\n" + wrap.Render(risk))
	}

	for _, group := range []struct {
		name  string
		items []types.IssueItem
	}{
		{"Performance", issues.Performance},
		{"Security", issues.Security},
		{"Maintainability", issues.Maintainability},
	} {
		if len(group.items) == 0 {
			continue
		}
		b.WriteString("\n\n" + SectionStyle.Render(group.name))
		for _, item := range group.items {
			sev := SeverityStyle(item.Severity).Render("[" + string(item.Severity) + "]")
			b.WriteString("\n  " + sev + " " + item.Message)
		}
	}

	return b.String()
}

func renderStatBox(label string, value int, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(strconv.Itoa(value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// keyMap defines key bindings.
type keyMap struct {
	Quit     key.Binding
	Tab      key.Binding
	Up       key.Binding
	Down     key.Binding
	Overview key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Overview: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "overview"),
	),
}
