package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"hindsight/internal/resolve"
)

type fixState int

const (
	fixIdle fixState = iota
	fixResolving
	fixAwaitingFeedback
	fixDone
)

type fixModel struct {
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	config   Config

	state   fixState
	outcome resolve.Outcome
	note    string
	width   int
}

// fixOutcomeMsg is sent when a fix request completes.
type fixOutcomeMsg struct {
	outcome resolve.Outcome
}

// feedbackMsg is sent once feedback has been recorded.
type feedbackMsg struct {
	worked bool
	err    error
}

func newFixModel(cfg Config) fixModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "Paste the error message..."
	ti.CharLimit = 4000

	return fixModel{input: ti, spinner: sp, config: cfg, viewport: viewport.New(80, 12)}
}

func (m *fixModel) focus() tea.Cmd {
	if m.state == fixAwaitingFeedback {
		return nil
	}
	return m.input.Focus()
}

func (m *fixModel) resize(width, height int) {
	m.width = width
	m.input.Width = max(width-4, 10)
	m.viewport.Width = width
	m.viewport.Height = max(height-10, 5)

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-2, 20)),
	)
	if err == nil {
		m.renderer = r
	}
	m.viewport.SetContent(m.renderOutcome())
}

func (m fixModel) resolve(errText string) tea.Cmd {
	cfg := m.config
	return func() tea.Msg {
		return fixOutcomeMsg{outcome: cfg.Resolver.Fix(cfg.Ctx, cfg.Dir, errText)}
	}
}

func (m fixModel) feedback(worked bool) tea.Cmd {
	cfg, o := m.config, m.outcome
	return func() tea.Msg {
		return feedbackMsg{worked: worked, err: cfg.Resolver.Feedback(cfg.Ctx, o, worked)}
	}
}

func (m fixModel) Update(msg tea.Msg) (fixModel, tea.Cmd) {
	switch msg := msg.(type) {
	case fixOutcomeMsg:
		m.outcome = msg.outcome
		m.note = ""
		if m.outcome.Found() {
			m.state = fixAwaitingFeedback
			m.input.Blur()
		} else {
			m.state = fixIdle
		}
		m.viewport.SetContent(m.renderOutcome())
		return m, nil

	case feedbackMsg:
		m.state = fixDone
		switch {
		case msg.err != nil:
			m.note = errorStyle.Render("Could not record feedback: " + msg.err.Error())
		case msg.worked:
			m.note = successStyle.Render("Recorded. This fix will rank higher next time.")
		default:
			m.note = dimStyle.Render("Recorded as not working.")
		}
		m.viewport.SetContent(m.renderOutcome())
		return m, m.input.Focus()

	case spinner.TickMsg:
		if m.state != fixResolving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.state {
		case fixResolving:
			return m, nil
		case fixAwaitingFeedback:
			switch msg.String() {
			case "y", "Y":
				return m, m.feedback(true)
			case "n", "N":
				return m, m.feedback(false)
			case "s":
				m.state = fixDone
				return m, m.input.Focus()
			}
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if msg.Type == tea.KeyEnter {
			errText := strings.TrimSpace(m.input.Value())
			if errText == "" {
				return m, nil
			}
			m.input.Reset()
			m.state = fixResolving
			m.outcome = resolve.Outcome{}
			m.note = ""
			return m, tea.Batch(m.spinner.Tick, m.resolve(errText))
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m fixModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return listItemStyle.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return listItemStyle.Render(content)
	}
	return strings.TrimRight(rendered, "\n")
}

func (m fixModel) renderOutcome() string {
	o := m.outcome
	if o.ID == "" {
		return dimStyle.Render("Paste an error and press enter. Rules are tried first, then community fixes, then the model.")
	}

	var sb strings.Builder
	if !o.Found() {
		sb.WriteString(warnStyle.Render("No fix found.") + " ")
		sb.WriteString(dimStyle.Render("Tried: "+joinStages(o.Attempted)) + "\n")
		if o.Explanation != "" {
			sb.WriteString("\n" + m.renderMarkdown(o.Explanation) + "\n")
		}
	} else {
		sb.WriteString(subtitleStyle.Render(sourceLabel(o)) + "\n\n")
		sb.WriteString("  " + commandStyle.Render(o.Command) + "\n")
		if o.Explanation != "" {
			sb.WriteString("\n" + m.renderMarkdown(o.Explanation) + "\n")
		}
		if len(o.Alternates) > 0 {
			sb.WriteString("\n" + dimStyle.Render("Alternatives:") + "\n")
			for _, a := range o.Alternates {
				sb.WriteString(fmt.Sprintf("  %s %s\n", listItemStyle.Render(a.Command),
					dimStyle.Render(fmt.Sprintf("(%.0f%%, %d uses)", a.SuccessRate, a.Uses))))
			}
		}
	}
	for _, w := range o.Warnings {
		sb.WriteString(warnStyle.Render("! "+w) + "\n")
	}
	if m.state == fixAwaitingFeedback {
		sb.WriteString("\n" + helpStyle.Render("Did it work? y yes • n no • s skip"))
	}
	if m.note != "" {
		sb.WriteString("\n" + m.note)
	}
	return sb.String()
}

func (m fixModel) View() string {
	if m.state == fixResolving {
		return m.input.View() + "\n\n" + m.spinner.View() + " " + dimStyle.Render("Resolving...")
	}
	return m.input.View() + "\n\n" + m.viewport.View()
}

func sourceLabel(o resolve.Outcome) string {
	switch o.Stage {
	case resolve.StageRule:
		return fmt.Sprintf("Rule %s (confidence %.0f%%)", o.Rule, o.Confidence*100)
	case resolve.StageCommunity:
		return fmt.Sprintf("Community fix (%.0f%% success, %d uses)", o.SuccessRate, o.Uses)
	case resolve.StageModel:
		return "Model suggestion (unverified)"
	}
	return ""
}

func joinStages(stages []resolve.Stage) string {
	s := make([]string, len(stages))
	for i, st := range stages {
		s[i] = string(st)
	}
	return strings.Join(s, ", ")
}
