package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/tui"
	"github.com/spf13/cobra"
)

var startTUI bool

var startCmd = &cobra.Command{
	Use:   "start <goal>",
	Short: "Start a new conversation and drive it to a decision",
	Long: `Start creates a conversation for the given goal and advances it until the
team reaches a decision, the conversation aborts, or it pauses for your
input. With --tui the conversation runs inside the terminal UI.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startTUI, "tui", false, "run inside the terminal UI")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	goal := strings.TrimSpace(strings.Join(args, " "))
	if goal == "" {
		return fmt.Errorf("goal must not be empty")
	}

	conv, err := rt.controller.Start(goal)
	if err != nil {
		return fmt.Errorf("failed to start conversation: %w", err)
	}
	if err := rt.claim(conv.ID); err != nil {
		return err
	}
	fmt.Printf("Conversation %s started.\n\n", conv.ID)

	if startTUI {
		return tui.Run(rt.controller, rt.bus, conv.ID, rt.cfg.TUI)
	}
	return driveHeadless(rt, conv.ID)
}

// driveHeadless advances the conversation in a loop, printing messages as
// they are appended and reading replies from stdin when the conversation
// pauses for the human.
func driveHeadless(rt *runtime, conversationID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := bufio.NewReader(os.Stdin)
	for {
		if ctx.Err() != nil {
			fmt.Println("\nInterrupted; the conversation can be resumed with `roundtable resume`.")
			return nil
		}

		res, err := rt.controller.Advance(ctx, conversationID)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Println("\nInterrupted; the conversation can be resumed with `roundtable resume`.")
				return nil
			}
			return err
		}

		for _, msg := range res.Messages {
			printMessage(rt, msg)
		}

		conv := res.Conversation
		switch {
		case conv.Finished():
			printOutcome(conv)
			return nil
		case conv.Status == conversation.StatusAwaitingHuman:
			fmt.Print("your reply> ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read reply: %w", err)
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if _, err := rt.controller.Reply(conversationID, line); err != nil {
				return err
			}
		}
	}
}

// printMessage renders one message for headless output.
func printMessage(rt *runtime, msg conversation.Message) {
	label := string(msg.SenderKind)
	switch msg.SenderKind {
	case conversation.SenderParticipant:
		if p, ok := rt.team.ByID(msg.SenderID); ok {
			label = fmt.Sprintf("%s (%s)", p.Name, p.Role)
		} else {
			label = msg.SenderID
		}
	case conversation.SenderHuman:
		label = "you"
	}
	fmt.Printf("[%d] %s: %s\n\n", msg.Sequence, label, msg.Content)
}

// printOutcome summarizes a finished conversation.
func printOutcome(conv *conversation.Conversation) {
	switch conv.Status {
	case conversation.StatusCompleted:
		if conv.ForcedDecision {
			fmt.Println("Conversation completed by forced decision.")
		} else {
			fmt.Println("Conversation completed with consensus.")
		}
		if conv.FinalSummary != "" {
			fmt.Printf("\n%s\n", conv.FinalSummary)
		}
	case conversation.StatusAborted:
		fmt.Printf("Conversation aborted: %s\n", conv.AbortReason)
	}
}
