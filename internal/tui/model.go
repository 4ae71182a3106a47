// Package tui provides a watch-and-reply terminal view over a running
// conversation: a transcript viewport, a phase/status header, and an input
// line that activates when the conversation pauses for the human.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/config"
	"github.com/roundtable-dev/roundtable/internal/controller"
	"github.com/roundtable-dev/roundtable/internal/conversation"
)

// stepMsg carries the outcome of one Advance call back into the program.
type stepMsg struct {
	res *controller.StepResult
	err error
}

// appendedMsg carries a message observed on the event bus, typically from
// another process advancing the same conversation.
type appendedMsg struct {
	message conversation.Message
}

// replySentMsg reports the outcome of submitting the human's reply.
type replySentMsg struct {
	err error
}

// Model is the bubbletea model for one conversation.
type Model struct {
	ctrl           *controller.Controller
	conversationID string
	cfg            config.TUIConfig
	roster         map[string]agent.Participant

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	conv      *conversation.Conversation
	lines     []string
	seen      map[string]bool
	advancing bool
	err       error
	ready     bool
	width     int
	height    int
}

// NewModel builds the model and preloads the persisted transcript.
func NewModel(ctrl *controller.Controller, conversationID string, cfg config.TUIConfig) (Model, error) {
	conv, err := ctrl.Conversation(conversationID)
	if err != nil {
		return Model{}, err
	}

	roster := make(map[string]agent.Participant)
	for _, p := range ctrl.Participants() {
		roster[p.ID] = p
	}

	input := textinput.New()
	input.Placeholder = "your reply"
	input.CharLimit = 2000

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := Model{
		ctrl:           ctrl,
		conversationID: conversationID,
		cfg:            cfg,
		roster:         roster,
		input:          input,
		spin:           spin,
		conv:           conv,
		seen:           make(map[string]bool),
	}

	history, err := ctrl.History(conversationID)
	if err != nil {
		return Model{}, err
	}
	for _, msg := range history {
		m.appendMessage(msg)
	}
	return m, nil
}

// Init starts the spinner and, for unfinished conversations, the advance loop.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick}
	if !m.conv.Finished() && m.conv.Status != conversation.StatusAwaitingHuman {
		cmds = append(cmds, m.advanceCmd())
	}
	return tea.Batch(cmds...)
}

// advanceCmd performs one conversation step off the UI goroutine.
func (m Model) advanceCmd() tea.Cmd {
	ctrl, id := m.ctrl, m.conversationID
	return func() tea.Msg {
		res, err := ctrl.Advance(context.Background(), id)
		return stepMsg{res: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		headerHeight := 2
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.input.Focused() {
				content := strings.TrimSpace(m.input.Value())
				if content == "" {
					return m, nil
				}
				m.input.SetValue("")
				m.input.Blur()
				return m, m.replyCmd(content)
			}
		default:
			if !m.input.Focused() && msg.String() == "q" {
				return m, tea.Quit
			}
		}

	case stepMsg:
		m.advancing = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.conv = msg.res.Conversation
		for _, appended := range msg.res.Messages {
			m.appendMessage(appended)
		}
		m.refreshViewport()

		switch {
		case m.conv.Finished():
			// Stay open so the final summary can be read; q quits.
		case m.conv.Status == conversation.StatusAwaitingHuman:
			cmds = append(cmds, m.input.Focus())
		default:
			m.advancing = true
			cmds = append(cmds, m.advanceCmd())
		}

	case appendedMsg:
		m.appendMessage(msg.message)
		m.refreshViewport()

	case replySentMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.advancing = true
		cmds = append(cmds, m.advanceCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// replyCmd submits the human's reply off the UI goroutine.
func (m Model) replyCmd(content string) tea.Cmd {
	ctrl, id := m.ctrl, m.conversationID
	return func() tea.Msg {
		_, err := ctrl.Reply(id, content)
		return replySentMsg{err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	title := titleStyle.Render("roundtable")
	header := headerStyle.Render(fmt.Sprintf("phase %s · status %s · round %d",
		m.conv.Phase, m.conv.Status, m.conv.Round))
	top := lipgloss.JoinHorizontal(lipgloss.Top, title, header)

	var footer string
	switch {
	case m.err != nil:
		footer = errorStyle.Render("error: " + m.err.Error())
	case m.conv.Finished():
		outcome := "completed"
		if m.conv.Status == conversation.StatusAborted {
			outcome = "aborted: " + m.conv.AbortReason
		} else if m.conv.ForcedDecision {
			outcome = "completed (forced decision)"
		}
		footer = finishedStyle.Render(outcome + " (press q to quit)")
	case m.input.Focused():
		footer = m.input.View()
	case m.advancing:
		footer = statusBarStyle.Render(m.spin.View() + " thinking...")
	default:
		footer = statusBarStyle.Render("press q to quit")
	}

	return fmt.Sprintf("%s\n%s\n%s", top, m.viewport.View(), footer)
}

// appendMessage renders a message into the transcript, skipping messages
// already shown.
func (m *Model) appendMessage(msg conversation.Message) {
	if m.seen[msg.ID] {
		return
	}
	m.seen[msg.ID] = true

	var label string
	switch msg.SenderKind {
	case conversation.SenderParticipant:
		name := msg.SenderID
		if p, ok := m.roster[msg.SenderID]; ok {
			name = fmt.Sprintf("%s (%s)", p.Name, p.Role)
		}
		label = speakerStyle.Render(name)
	case conversation.SenderHuman:
		label = humanStyle.Render("you")
	default:
		label = systemStyle.Render("system")
	}

	m.lines = append(m.lines, fmt.Sprintf("%s\n%s\n", label, msg.Content))

	if limit := m.cfg.MaxTranscriptLines; limit > 0 && len(m.lines) > limit {
		m.lines = m.lines[len(m.lines)-limit:]
	}
}

// refreshViewport re-renders the transcript and follows the tail.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}
