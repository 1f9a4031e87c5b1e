package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flarexio/zoningqa"
)

const (
	Title               = "NYC Zoning Q&A"
	Subtitle            = "Ask the Zoning Handbook (2018)"
	PlaceholderInterval = 4 * time.Second
	threadPaneWidth     = 30
)

var Placeholders = []string{
	"e.g., What are the different zoning districts?",
	"e.g., What are the three zoning district categories?",
	"e.g., What is floor area ratio?",
	"e.g., How are building heights regulated in R6 districts?",
	"e.g., address: 120 Broadway, Manhattan",
}

type threadsMsg struct {
	threads []zoningqa.ThreadSummary
	thread  *zoningqa.Thread
}

type answerMsg struct {
	exchange *zoningqa.Exchange
	err      error
}

type errMsg struct {
	err error
}

type placeholderMsg struct{}

// Model is the Bubble Tea model of one chat session. ctx carries the
// session id every service call is made with.
type Model struct {
	ctx context.Context
	svc zoningqa.Service

	threads []zoningqa.ThreadSummary
	thread  *zoningqa.Thread

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	pending     bool
	status      string
	placeholder int
	width       int
	ready       bool
}

func New(ctx context.Context, svc zoningqa.Service) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = Placeholders[0]
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		svc:      svc,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Type a question and press Enter. ctrl+n new thread, ctrl+↑/↓ switch, ctrl+c quit.",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refresh(), rotatePlaceholder())
}

func rotatePlaceholder() tea.Cmd {
	return tea.Tick(PlaceholderInterval, func(time.Time) tea.Msg {
		return placeholderMsg{}
	})
}

// refresh reloads the thread list and the active thread.
func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		threads, err := m.svc.ListThreads(m.ctx)
		if err != nil {
			return errMsg{err}
		}

		var active *zoningqa.Thread
		for _, summary := range threads {
			if !summary.Active {
				continue
			}

			active, err = m.svc.Thread(m.ctx, summary.ID)
			if err != nil {
				return errMsg{err}
			}
		}

		return threadsMsg{threads, active}
	}
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		exchange, err := m.svc.Ask(m.ctx, question)
		return answerMsg{exchange, err}
	}
}

func (m Model) createThread() tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.CreateThread(m.ctx); err != nil {
			return errMsg{err}
		}

		return m.refresh()()
	}
}

func (m Model) selectThread(id zoningqa.ThreadID) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.SelectThread(m.ctx, id); err != nil {
			return errMsg{err}
		}

		return m.refresh()()
	}
}

// neighbour returns the thread offset positions away from the active one
// in list order.
func (m Model) neighbour(offset int) (zoningqa.ThreadID, bool) {
	n := len(m.threads)
	if n < 2 {
		return 0, false
	}

	for i, summary := range m.threads {
		if summary.Active {
			return m.threads[(i+offset+n)%n].ID, true
		}
	}

	return 0, false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width

		_, ih := inputBoxStyle.GetFrameSize()
		_, ch := chatBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header, status, input line

		m.viewport.Width = max(20, msg.Width-threadPaneWidth-4)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.input.Width = max(10, msg.Width-6)
		m.viewport.SetContent(m.renderThread())
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit

		case tea.KeyCtrlN:
			if m.pending {
				return m, nil
			}

			return m, m.createThread()

		case tea.KeyCtrlUp, tea.KeyCtrlDown:
			if m.pending {
				return m, nil
			}

			offset := 1
			if msg.Type == tea.KeyCtrlUp {
				offset = -1
			}

			id, ok := m.neighbour(offset)
			if !ok {
				return m, nil
			}

			return m, m.selectThread(id)

		case tea.KeyEnter:
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.pending {
				return m, nil
			}

			m.pending = true
			m.status = "Thinking..."
			m.input.Reset()

			return m, tea.Batch(m.ask(question), m.spinner.Tick)
		}

	case threadsMsg:
		m.threads = msg.threads
		m.thread = msg.thread
		m.viewport.SetContent(m.renderThread())
		m.viewport.GotoBottom()
		return m, nil

	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}

		m.status = fmt.Sprintf("Answered in thread %d.", msg.exchange.ThreadID)
		return m, m.refresh()

	case errMsg:
		m.status = "Error: " + msg.err.Error()
		return m, nil

	case placeholderMsg:
		m.placeholder = (m.placeholder + 1) % len(Placeholders)
		m.input.Placeholder = Placeholders[m.placeholder]
		return m, rotatePlaceholder()

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := titleStyle.Render(Title) + "  " + subtleStyle.Render(Subtitle)

	threads := threadBoxStyle.
		Width(threadPaneWidth).
		Height(m.viewport.Height).
		Render(m.renderThreads())

	chat := chatBoxStyle.Render(m.viewport.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, threads, chat)
	input := inputBoxStyle.Render(m.input.View())

	status := statusStyle.Render(m.status)
	if m.pending {
		status = m.spinner.View() + " " + status
	}

	return header + "\n\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderThreads() string {
	if len(m.threads) == 0 {
		return subtleStyle.Render("No conversations yet.")
	}

	var b strings.Builder
	for _, summary := range m.threads {
		title := truncate(summary.Title, threadPaneWidth-4)
		if summary.Active {
			b.WriteString(activeStyle.Render("▸ " + title))
		} else {
			b.WriteString("  " + title)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderThread() string {
	if m.thread == nil || len(m.thread.Turns) == 0 {
		return subtleStyle.Render("Ask a question about New York City zoning to get started.")
	}

	width := max(20, m.viewport.Width-2)

	var b strings.Builder
	for _, turn := range m.thread.Turns {
		switch turn.Role {
		case zoningqa.RoleUser:
			b.WriteString(userStyle.Render("You"))
		case zoningqa.RoleAssistant:
			b.WriteString(assistantStyle.Render("Assistant"))
		}

		b.WriteString(subtleStyle.Render("  " + turn.CreatedAt.Format("15:04")))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(turn.Content))
		b.WriteString("\n\n")
	}

	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n-1]) + "…"
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	threadBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
