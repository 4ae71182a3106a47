package tui

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roundtable-dev/roundtable/internal/config"
	"github.com/roundtable-dev/roundtable/internal/controller"
	"github.com/roundtable-dev/roundtable/internal/event"
)

// Run drives a conversation inside the terminal UI until it finishes or the
// user quits. Messages appended by this process arrive through step results;
// messages observed on the bus (e.g. another process advancing the same
// conversation) are merged in by ID.
func Run(ctrl *controller.Controller, bus *event.Bus, conversationID string, cfg config.TUIConfig) error {
	model, err := NewModel(ctrl, conversationID, cfg)
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen())

	var subID string
	if bus != nil {
		subID = bus.Subscribe(event.EventMessageAppended, func(ev event.Event) {
			if me, ok := ev.(event.MessageAppendedEvent); ok && me.ConversationID == conversationID {
				program.Send(appendedMsg{message: me.Message})
			}
		})
		defer bus.Unsubscribe(subID)
	}

	// Preserve conversation state on termination; the persisted log resumes
	// cleanly.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		program.Send(tea.Quit())
	}()

	_, err = program.Run()
	return err
}
