// Package tui renders batch progress in the terminal with bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/titledate-verifier/internal/entity"
)

const (
	maxLines = 500
	// rows above the log viewport: title, progress, current row, counts, blank
	headerHeight = 6
)

// EventMsg carries one progress event into the program.
type EventMsg entity.ProgressEvent

// closedMsg is sent once the event stream ends.
type closedMsg struct{}

// Model is the progress screen for a single batch.
type Model struct {
	title    string
	cancel   context.CancelFunc
	progress progress.Model
	viewport viewport.Model
	styles   styles

	lines      []string
	counts     entity.Counts
	index      int
	total      int
	current    string
	status     string
	cancelling bool
	done       bool
}

// NewModel creates the progress screen. cancel is invoked when the user asks
// to stop; the batch then ends after the row in flight.
func NewModel(title string, cancel context.CancelFunc) Model {
	vp := viewport.New(80, 14)
	vp.SetContent("")
	return Model{
		title:    title,
		cancel:   cancel,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(60)),
		viewport: vp,
		styles:   defaultStyles(),
		status:   "starting",
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = max(msg.Width-4, 10)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-1, 3)
		m.refresh()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelling {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
				m.appendLine(m.styles.Warning.Render("Stopping after the current row..."))
			}
			return m, nil
		}
	case EventMsg:
		m.apply(entity.ProgressEvent(msg))
		return m, nil
	case closedMsg:
		m.done = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) apply(ev entity.ProgressEvent) {
	if ev.Total > 0 {
		m.total = ev.Total
	}
	switch ev.Kind {
	case entity.ProgressBatchStarted:
		m.status = "running"
		m.appendLine(m.styles.Info.Render(fmt.Sprintf("Verifying %d rows from %s", ev.Total, ev.Message)))
	case entity.ProgressRowStarted:
		m.index = ev.Index
		m.current = fmt.Sprintf("row %d: %s", ev.Row, ev.Message)
		m.appendLine(fmt.Sprintf("[%d/%d] row %d: %s", ev.Index, ev.Total, ev.Row, ev.Message))
	case entity.ProgressRowLog:
		m.appendLine(m.styles.Muted.Render("    " + ev.Message))
	case entity.ProgressRowSkipped:
		m.index = ev.Index
		m.counts.Total++
		m.counts.Skipped++
		m.appendLine(m.styles.Warning.Render(fmt.Sprintf("[%d/%d] row %d skipped: %s", ev.Index, ev.Total, ev.Row, ev.Message)))
	case entity.ProgressRowVerdict:
		m.index = ev.Index
		m.counts.Total++
		style := m.styles.Warning
		if ev.Outcome != nil && ev.Outcome.Verdict != nil {
			switch ev.Outcome.Verdict.Kind {
			case entity.VerdictMatched:
				m.counts.Matched++
				style = m.styles.Success
			case entity.VerdictNotMatched:
				m.counts.NotMatched++
				style = m.styles.Error
			default:
				m.counts.Inconclusive++
			}
		}
		m.appendLine(style.Render(fmt.Sprintf("[%d/%d] row %d %s", ev.Index, ev.Total, ev.Row, ev.Message)))
	case entity.ProgressBatchFinished:
		m.status = ev.Message
		m.current = ""
		m.appendLine(m.styles.Info.Render("Batch " + ev.Message))
	}
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// Fraction is the share of rows finished so far.
func (m Model) Fraction() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.counts.Total) / float64(m.total)
}

// Counts returns the tallies seen so far.
func (m Model) Counts() entity.Counts {
	return m.counts
}

func (m Model) View() string {
	var sb strings.Builder

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.Title.Render(m.title), "  ", m.styles.Status.Render(strings.ToUpper(m.status)))
	sb.WriteString(header + "\n")
	sb.WriteString(m.progress.ViewAs(m.Fraction()) + "\n")
	if m.current != "" {
		sb.WriteString(fmt.Sprintf("Current %d/%d  %s\n", m.index, m.total, m.current))
	} else {
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("%s  %s  %s  %s\n\n",
		m.styles.Success.Render(fmt.Sprintf("matched %d", m.counts.Matched)),
		m.styles.Error.Render(fmt.Sprintf("not matched %d", m.counts.NotMatched)),
		m.styles.Warning.Render(fmt.Sprintf("inconclusive %d", m.counts.Inconclusive)),
		m.styles.Muted.Render(fmt.Sprintf("skipped %d", m.counts.Skipped)),
	))
	sb.WriteString(m.viewport.View() + "\n")

	hint := "q: stop after current row  up/down: scroll"
	if m.cancelling {
		hint = "stopping..."
	}
	sb.WriteString(m.styles.Muted.Render(hint))
	return sb.String()
}
