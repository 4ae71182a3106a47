package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "List conversations, or print one conversation's transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if len(args) == 0 {
		return listConversations(rt)
	}
	return showTranscript(rt, args[0])
}

func listConversations(rt *runtime) error {
	convs, err := rt.store.ListConversations()
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPHASE\tROUND\tGOAL")
	for _, c := range convs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", c.ID, c.Status, c.Phase, c.Round, c.Goal)
	}
	return w.Flush()
}

func showTranscript(rt *runtime, conversationID string) error {
	conv, err := rt.controller.Conversation(conversationID)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	fmt.Printf("Goal: %s\nStatus: %s  Phase: %s  Round: %d\n\n", conv.Goal, conv.Status, conv.Phase, conv.Round)

	msgs, err := rt.controller.History(conversationID)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		printMessage(rt, msg)
	}

	if conv.FinalSummary != "" {
		fmt.Printf("Final summary:\n%s\n", conv.FinalSummary)
	}
	return nil
}
