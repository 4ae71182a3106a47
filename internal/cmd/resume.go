package cmd

import (
	"fmt"

	"github.com/roundtable-dev/roundtable/internal/tui"
	"github.com/spf13/cobra"
)

var resumeTUI bool

var resumeCmd = &cobra.Command{
	Use:   "resume <conversation-id>",
	Short: "Resume a persisted conversation",
	Long: `Resume continues a conversation exactly where it left off: the next
speaker, sequence numbers, and any pending human question are recovered
from the persisted log.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().BoolVar(&resumeTUI, "tui", false, "run inside the terminal UI")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	conv, err := rt.controller.Conversation(args[0])
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv.Finished() {
		printOutcome(conv)
		return nil
	}

	if err := rt.claim(conv.ID); err != nil {
		return err
	}
	fmt.Printf("Resuming conversation %s (phase %s, round %d).\n\n", conv.ID, conv.Phase, conv.Round)

	if resumeTUI {
		return tui.Run(rt.controller, rt.bus, conv.ID, rt.cfg.TUI)
	}
	return driveHeadless(rt, conv.ID)
}
