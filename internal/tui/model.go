package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragagent/internal/agent"
	"ragagent/internal/domain"
)

// AgentPort is the TUI-facing subset of the service.
type AgentPort interface {
	Ask(ctx context.Context, question string) (*agent.Turn, error)
}

type chatEntry struct {
	question string
	answer   string
	sources  string
	err      error
}

type answerMsg struct {
	question string
	turn     *agent.Turn
	err      error
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	service  AgentPort
	input    textinput.Model
	viewport viewport.Model
	history  []chatEntry
	summary  string
	status   string
	waiting  bool
	ready    bool
}

// New creates a chat model over the service. The summary line is shown in
// the header after ingestion.
func New(service AgentPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, summary: summary, status: "Ready."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := questionBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + summary
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case answerMsg:
		m.waiting = false
		entry := chatEntry{question: msg.question, err: msg.err}
		if msg.turn != nil {
			entry.answer = msg.turn.Answer
			entry.sources = retrievedSources(msg.turn)
		}
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Ready."
		}
		m.history = append(m.history, entry)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.waiting = true
				m.status = "Thinking..."
				m.input.SetValue("")
				return m, m.askCmd(q)
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// askCmd runs one agent turn off the update loop.
func (m Model) askCmd(question string) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		turn, err := service.Ask(context.Background(), question)
		return answerMsg{question: question, turn: turn, err: err}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Agent")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := questionBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "Ask a question to get started."
	}
	var parts []string
	for _, e := range m.history {
		block := questionStyle.Render("You: "+e.question) + "\n"
		switch {
		case e.err != nil:
			block += errorStyle.Render("Error: " + e.err.Error())
		default:
			block += "Agent: " + e.answer
			if e.sources != "" {
				block += "\n\n" + sourceStyle.Render("Sources:\n"+e.sources)
			}
		}
		parts = append(parts, block)
	}
	return strings.Join(parts, "\n\n")
}

// retrievedSources pulls the tool-role evidence out of a finished turn.
func retrievedSources(turn *agent.Turn) string {
	var out []string
	for _, msg := range turn.Messages {
		if msg.Role == domain.RoleTool && strings.TrimSpace(msg.Content) != "" {
			out = append(out, msg.Content)
		}
	}
	return strings.Join(out, "\n\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
