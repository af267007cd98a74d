// Package tui is the interactive browser for recall and fix requests.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hindsight/internal/resolve"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewRecall ViewState = iota
	ViewFix
)

// Resolver is the subset of *resolve.Resolver the browser drives.
type Resolver interface {
	Recall(ctx context.Context, dir, query string) resolve.RecallResult
	Fix(ctx context.Context, dir, errText string) resolve.Outcome
	Feedback(ctx context.Context, o resolve.Outcome, worked bool) error
}

// Config holds what the CLI layer passes in.
type Config struct {
	Dir      string
	Query    string
	Tags     []string
	Resolver Resolver
	Ctx      context.Context
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	recall recallModel
	fix    fixModel

	// chosen is the command picked with Enter in the recall view.
	chosen string
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	if cfg.Ctx == nil {
		cfg.Ctx = context.Background()
	}
	return Model{
		state:  ViewRecall,
		config: cfg,
		recall: newRecallModel(cfg),
		fix:    newFixModel(cfg),
	}
}

func (m Model) Init() tea.Cmd {
	return m.recall.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recall.resize(msg.Width, msg.Height)
		m.fix.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if m.state == ViewRecall {
				m.state = ViewFix
				return m, m.fix.focus()
			}
			m.state = ViewRecall
			return m, m.recall.focus()
		}

	// Async results go to the view that asked for them, whichever is shown.
	case recallResultMsg:
		var cmd tea.Cmd
		m.recall, cmd = m.recall.Update(msg)
		return m, cmd
	case fixOutcomeMsg, feedbackMsg:
		var cmd tea.Cmd
		m.fix, cmd = m.fix.Update(msg)
		return m, cmd
	case spinner.TickMsg:
		var rc, fc tea.Cmd
		m.recall, rc = m.recall.Update(msg)
		m.fix, fc = m.fix.Update(msg)
		return m, tea.Batch(rc, fc)
	}

	var cmd tea.Cmd
	switch m.state {
	case ViewRecall:
		m.recall, cmd = m.recall.Update(msg)
		if m.recall.chosen != "" {
			m.chosen = m.recall.chosen
			return m, tea.Quit
		}
	case ViewFix:
		m.fix, cmd = m.fix.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	tabs := []string{"recall", "fix"}
	for i, t := range tabs {
		if ViewState(i) == m.state {
			tabs[i] = selectedStyle.Render("[" + t + "]")
		} else {
			tabs[i] = dimStyle.Render(" " + t + " ")
		}
	}
	header := titleStyle.Render("hindsight") + "  " + strings.Join(tabs, " ")
	if len(m.config.Tags) > 0 {
		var tags []string
		for _, t := range m.config.Tags {
			tags = append(tags, tagStyle.Render(t))
		}
		header += "  " + strings.Join(tags, " ")
	}

	var body string
	switch m.state {
	case ViewRecall:
		body = m.recall.View()
	case ViewFix:
		body = m.fix.View()
	}
	help := helpStyle.Render("tab switch view • esc quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", help)
}

// Run starts the TUI program and returns the command chosen in the recall
// view, if any.
func Run(cfg Config) (string, error) {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(Model); ok {
		return m.chosen, nil
	}
	return "", nil
}
