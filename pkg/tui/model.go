// Package tui is the terminal front end of the Smart Guide chat client.
//
// The Model renders the orchestrator's State and forwards user actions to it.
// It never mutates the conversation itself.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/smartguide/smartguide/pkg/chat"
	"github.com/smartguide/smartguide/pkg/llm"
)

const (
	headerHeight = 3
	inputHeight  = 3
	// notice line and help line
	footerHeight = 2
)

// StateMsg carries a fresh orchestrator State into the program.
type StateMsg chat.State

// sendDoneMsg follows a finished Send. Failures reach the screen through the
// state's notice.
type sendDoneMsg struct{}

type clearedMsg struct{}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithColorProfile sets the colour profile used for markdown rendering.
func WithColorProfile(profile termenv.Profile) ModelOption {
	return func(m *Model) {
		m.profile = profile
	}
}

// WithDarkBackground selects the dark or light markdown style.
func WithDarkBackground(dark bool) ModelOption {
	return func(m *Model) {
		m.dark = dark
	}
}

// Model is the bubbletea model for the chat screen.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	orch   *chat.Orchestrator

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	markdown *glamour.TermRenderer

	profile termenv.Profile
	dark    bool

	state  chat.State
	width  int
	height int
	ready  bool
}

// NewModel creates the chat screen for orch. Sends made from the screen run
// under a child of ctx that is cancelled when the screen quits or Close is
// called, so an in-flight reply never outlives the view.
func NewModel(ctx context.Context, orch *chat.Orchestrator, opts ...ModelOption) Model {
	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Ask me anything about your homework..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(primary)

	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		orch:     orch,
		input:    ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		profile:  termenv.TrueColor,
		dark:     true,
		state:    orch.State(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.markdown = m.newRenderer(80)
	return m
}

// Close abandons any in-flight reply and releases its connection.
func (m Model) Close() {
	m.cancel()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc:
			m.Close()
			return m, tea.Quit
		case msg.Type == tea.KeyCtrlL:
			// Clear notifies observers, which feed back into this loop.
			orch := m.orch
			return m, func() tea.Msg {
				orch.Clear()
				return clearedMsg{}
			}
		case msg.Type == tea.KeyEnter && !msg.Alt:
			return m.submit()
		}

	case StateMsg:
		m.state = chat.State(msg)
		m.refresh()
		return m, nil

	case sendDoneMsg, clearedMsg:
		m.state = m.orch.State()
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Loading {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit hands the input to the orchestrator. The send runs as a command so
// the program keeps rendering deltas while it blocks.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" || m.state.Loading {
		return m, nil
	}
	m.input.Reset()

	ctx, orch := m.ctx, m.orch
	return m, func() tea.Msg {
		_ = orch.Send(ctx, text)
		return sendDoneMsg{}
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	m.input.SetWidth(width)
	m.viewport.Width = width
	m.viewport.Height = max(height-headerHeight-inputHeight-footerHeight, 1)

	m.markdown = m.newRenderer(width - 4)
	m.ready = true
	m.refresh()
}

func (m *Model) newRenderer(wrap int) *glamour.TermRenderer {
	style := "dark"
	if !m.dark {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithColorProfile(m.profile),
		glamour.WithWordWrap(max(wrap, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.state.Messages) == 0 {
		return renderWelcome()
	}

	var b strings.Builder
	for _, t := range m.state.Messages {
		switch t.Role {
		case llm.RoleUser:
			b.WriteString(userLabelStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(userTextStyle.Width(max(m.viewport.Width-2, 10)).Render(t.Content))
		default:
			b.WriteString(assistantLabelStyle.Render("Smart Guide"))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(t.Content))
		}
		b.WriteString("\n\n")
	}

	// Thinking indicator until the first delta opens the assistant turn.
	last := m.state.Messages[len(m.state.Messages)-1]
	if m.state.Loading && last.Role == llm.RoleUser {
		b.WriteString(assistantLabelStyle.Render("Smart Guide"))
		b.WriteString("\n  ")
		b.WriteString(m.spinner.View())
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderMarkdown(content string) string {
	if m.markdown == nil {
		return content
	}
	out, err := m.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func renderWelcome() string {
	features := []string{
		"📚 Explain Concepts: clear explanations of any topic in simple language",
		"📝 Study Guides: organized guides with key points and examples",
		"🎯 Step-by-Step Help: complex problems broken into easy steps",
		"💡 Practice Questions: problems to test your understanding",
	}

	var b strings.Builder
	b.WriteString(welcomeTitleStyle.Render("Welcome to Smart Guide!"))
	b.WriteString("\n")
	b.WriteString("I'm here to help you understand your homework, explain concepts clearly, and create study guides. Ask me anything!\n\n")
	for _, f := range features {
		b.WriteString(featureStyle.Render(f))
		b.WriteString("\n")
	}
	return b.String()
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	header := headerStyle.Width(m.width).Render(
		titleStyle.Render("Smart Guide") + "\n" + subtitleStyle.Render("Your friendly homework helper"),
	)

	notice := ""
	if m.state.Notice != "" {
		notice = noticeStyle.Render(ansi.Truncate("⚠ "+m.state.Notice, m.width, "…"))
	}

	help := helpStyle.Render("enter send • alt+enter newline • ctrl+l clear chat • esc quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		notice,
		m.input.View(),
		help,
	)
}
