package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"hindsight/internal/resolve"
)

type recallModel struct {
	input   textinput.Model
	spinner spinner.Model
	config  Config

	result    resolve.RecallResult
	cursor    int
	seq       int
	searching bool
	width     int
	height    int

	chosen string
}

// recallResultMsg is sent when a recall query completes. Results of
// superseded queries are dropped by seq.
type recallResultMsg struct {
	seq    int
	result resolve.RecallResult
}

func newRecallModel(cfg Config) recallModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "What was that command..."
	ti.CharLimit = 500
	ti.SetValue(cfg.Query)
	ti.Focus()

	return recallModel{input: ti, spinner: sp, config: cfg}
}

func (m recallModel) Init() tea.Cmd {
	if strings.TrimSpace(m.input.Value()) == "" {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.search(m.input.Value(), 0))
}

func (m *recallModel) focus() tea.Cmd {
	return m.input.Focus()
}

func (m *recallModel) resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width-4, 10)
}

func (m recallModel) search(query string, seq int) tea.Cmd {
	cfg := m.config
	return func() tea.Msg {
		return recallResultMsg{seq: seq, result: cfg.Resolver.Recall(cfg.Ctx, cfg.Dir, query)}
	}
}

func (m recallModel) Update(msg tea.Msg) (recallModel, tea.Cmd) {
	switch msg := msg.(type) {
	case recallResultMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.searching = false
		m.result = msg.result
		m.cursor = 0
		return m, nil

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.result.Candidates)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			if len(m.result.Candidates) > 0 {
				m.chosen = m.result.Candidates[m.cursor].Command
			}
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	after := m.input.Value()
	if after == before {
		return m, cmd
	}

	m.seq++
	if strings.TrimSpace(after) == "" {
		m.searching = false
		m.result = resolve.RecallResult{}
		m.cursor = 0
		return m, cmd
	}
	wasSearching := m.searching
	m.searching = true
	cmds := []tea.Cmd{cmd, m.search(after, m.seq)}
	if !wasSearching {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m recallModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.input.View() + "\n\n")

	switch {
	case m.searching && len(m.result.Candidates) == 0:
		sb.WriteString(m.spinner.View() + " " + dimStyle.Render("Searching...") + "\n")
	case len(m.result.Candidates) == 0 && strings.TrimSpace(m.input.Value()) != "":
		sb.WriteString(dimStyle.Render("No matching commands.") + "\n")
	}

	for i, c := range m.result.Candidates {
		line := fmt.Sprintf("%-48s %s", c.Command, dimStyle.Render(describe(c)))
		if i == m.cursor {
			sb.WriteString(selectedStyle.Render("> ") + commandStyle.Render(line) + "\n")
		} else {
			sb.WriteString("  " + listItemStyle.Render(line) + "\n")
		}
	}
	for _, w := range m.result.Warnings {
		sb.WriteString(warnStyle.Render("! "+w) + "\n")
	}

	status := fmt.Sprintf(" %d results", len(m.result.Candidates))
	if m.searching {
		status = " searching..."
	}
	sb.WriteString("\n" + statusBarStyle.Width(max(m.width, 20)).Render(status+" • ↑/↓ select • enter pick"))
	return sb.String()
}

func describe(c resolve.Candidate) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%.2f", c.Score), string(c.Source))
	if c.Frequency > 0 {
		parts = append(parts, fmt.Sprintf("used %dx", c.Frequency))
	}
	if c.Source == resolve.SourceCommunity {
		parts = append(parts, fmt.Sprintf("%.0f%% success", c.SuccessRate))
	}
	if c.Boosted {
		parts = append(parts, "context")
	}
	return strings.Join(parts, " · ")
}
