// Package tui shows the progress of long running model calls in a
// terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/stateful/labdoc/internal/ansi"
	"github.com/stateful/labdoc/pkg/ai"
)

const (
	MaxWidth = 120

	// thoughtLines is how many trailing lines of reasoning are shown.
	thoughtLines = 6
)

var ErrAborted = errors.New("aborted")

func Width(width int) int {
	if width > MaxWidth {
		return MaxWidth
	}
	return width
}

type Styles struct {
	Status  lipgloss.Style
	Model   lipgloss.Style
	Thought lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style
}

var (
	ColorError = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF0000", Dark: "#FF0000"})
	ColorMuted = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"})
)

var DefaultStyles = &Styles{
	Status:  lipgloss.NewStyle().Bold(true),
	Model:   lipgloss.NewStyle().Inherit(ColorMuted),
	Thought: lipgloss.NewStyle().Inherit(ColorMuted).Italic(true).PaddingLeft(2),
	Error:   lipgloss.NewStyle().Inherit(ColorError).Padding(1, 0),
	Help:    lipgloss.NewStyle().Inherit(ColorMuted).Padding(1, 0, 0, 2),
}

// EventMsg carries one stream event into the program.
type EventMsg struct {
	Event ai.Event
}

// DoneMsg ends the program with the result of the call.
type DoneMsg struct {
	Err error
}

// Progress renders a spinner, the answering model and the tail of the
// reasoning while a generation is running. Messages are pulled one at a
// time with next.
type Progress struct {
	KeyMap *KeyMap
	Styles *Styles

	spinner  spinner.Model
	help     help.Model
	next     tea.Cmd
	status   string
	model    string
	thought  *strings.Builder
	tokens   int
	width    int
	hide     bool
	finished bool
	err      error
}

func NewProgress(status string, next tea.Cmd) Progress {
	return Progress{
		KeyMap:  ProgressKeyMap,
		Styles:  DefaultStyles,
		spinner: spinner.New(spinner.WithSpinner(spinner.Pulse)),
		help:    help.New(),
		next:    next,
		status:  status,
		thought: &strings.Builder{},
		width:   MaxWidth,
	}
}

// Err is the error the program finished with, or ErrAborted.
func (m Progress) Err() error { return m.err }

func (m Progress) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next)
}

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = Width(msg.Width)
		m.help.Width = m.width
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.KeyMap.Matches(msg, "quit"):
			m.err = ErrAborted
			m.finished = true
			return m, tea.Quit
		case m.KeyMap.Matches(msg, "thoughts"):
			m.hide = !m.hide
		}
		return m, nil

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, m.next

	case DoneMsg:
		m.err = msg.Err
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Progress) handleEvent(e ai.Event) {
	switch e.Type {
	case ai.EventMeta:
		m.model = e.Model
	case ai.EventThought:
		m.thought.WriteString(ansi.Strip(e.Text))
	case ai.EventContent:
		m.status = "Writing document..."
	case ai.EventUsage:
		if e.Usage != nil {
			m.tokens = e.Usage.TotalTokens
		}
	}
}

func (m Progress) View() string {
	if m.finished {
		if m.err != nil && !errors.Is(m.err, ErrAborted) {
			return m.Styles.Error.Render("Error: "+m.err.Error()) + "\n"
		}
		return ""
	}

	var b strings.Builder
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.Styles.Status.Render(m.status))
	if m.model != "" {
		b.WriteString(" ")
		b.WriteString(m.Styles.Model.Render(fmt.Sprintf("(%s)", m.model)))
	}
	if m.tokens > 0 {
		b.WriteString(m.Styles.Model.Render(fmt.Sprintf(" %d tokens", m.tokens)))
	}
	b.WriteString("\n")

	if !m.hide {
		if tail := Tail(m.thought.String(), thoughtLines, m.width-2); tail != "" {
			b.WriteString(m.Styles.Thought.Render(tail))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.Styles.Help.Render(m.help.View(m.KeyMap)))
	return b.String()
}

// Tail returns the last n non-empty lines of s, each cut to width runes.
func Tail(s string, n, width int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, line := range lines {
		if r := []rune(line); width > 0 && len(r) > width {
			lines[i] = string(r[:width-1]) + "…"
		}
	}
	return strings.Join(lines, "\n")
}
