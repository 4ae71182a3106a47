// Package prompt assembles generation requests from conversation state and
// classifies the marker tags participants embed in their responses.
package prompt

import (
	"fmt"
	"strings"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/gateway"
)

// phaseDirectives tells the actor what this phase is for and which marker
// tags are honored in it.
var phaseDirectives = map[conversation.Phase]string{
	conversation.PhaseExploring: `The conversation is in the EXPLORING phase. Share your initial perspective on the goal: surface considerations, constraints, and directions worth pursuing. Do not propose a final solution yet.
If you need information only the human can provide, wrap one concise question in <question_for_user></question_for_user> tags.`,

	conversation.PhaseDiscussing: `The conversation is in the DISCUSSING phase. Engage with what others have said: support, challenge, or refine the directions on the table.
If you want to put a concrete solution to a vote, wrap a self-contained description of it in <proposal></proposal> tags.
If you need information only the human can provide, wrap one concise question in <question_for_user></question_for_user> tags.`,

	conversation.PhaseVoting: `The conversation is in the VOTING phase. Judge the proposal quoted above on its merits.
Reply with exactly one <vote></vote> tag containing approve, reject, or abstain, followed by a short rationale.`,
}

// Build assembles the generation request for one participant turn.
func Build(ctx conversation.Context) gateway.Request {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Goal\n\n%s\n\n", ctx.Goal)

	if len(ctx.Messages) > 0 {
		sb.WriteString("## Conversation so far\n\n")
		for _, msg := range ctx.Messages {
			fmt.Fprintf(&sb, "[%d] %s: %s\n\n", msg.Sequence, senderLabel(msg), msg.Content)
		}
	}

	if directive, ok := phaseDirectives[ctx.Phase]; ok {
		fmt.Fprintf(&sb, "## Your turn\n\n%s\n", directive)
	}

	return gateway.Request{
		System: ctx.Actor.SystemPrompt,
		Prompt: sb.String(),
	}
}

// BuildBallot assembles the voting request for one participant and proposal.
// The proposal is quoted explicitly so the ballot is unambiguous even when
// the transcript holds several proposals.
func BuildBallot(ctx conversation.Context, proposal conversation.Proposal) gateway.Request {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Goal\n\n%s\n\n", ctx.Goal)
	fmt.Fprintf(&sb, "## Proposal under vote\n\n%s\n\n", proposal.Description)

	if len(ctx.Messages) > 0 {
		sb.WriteString("## Conversation so far\n\n")
		for _, msg := range ctx.Messages {
			fmt.Fprintf(&sb, "[%d] %s: %s\n\n", msg.Sequence, senderLabel(msg), msg.Content)
		}
	}

	fmt.Fprintf(&sb, "## Your turn\n\n%s\n", phaseDirectives[conversation.PhaseVoting])

	return gateway.Request{
		System: ctx.Actor.SystemPrompt,
		Prompt: sb.String(),
	}
}

// BuildSynthesis assembles the facilitator's closing request: either the
// consensus summary after approval or the deciding synthesis when budgets
// ran out without consensus.
func BuildSynthesis(ctx conversation.Context, approved *conversation.Proposal) gateway.Request {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Goal\n\n%s\n\n", ctx.Goal)

	if len(ctx.Messages) > 0 {
		sb.WriteString("## Conversation so far\n\n")
		for _, msg := range ctx.Messages {
			fmt.Fprintf(&sb, "[%d] %s: %s\n\n", msg.Sequence, senderLabel(msg), msg.Content)
		}
	}

	sb.WriteString("## Your turn\n\n")
	if approved != nil {
		fmt.Fprintf(&sb, "The team approved this proposal:\n\n%s\n\n", approved.Description)
		sb.WriteString("Write the final decision summary: what was decided, the key reasons, and any noted follow-ups. Write it as the conversation's conclusion, not as a new contribution.\n")
	} else {
		sb.WriteString("The team could not reach consensus within its budget. As facilitator, settle the question: weigh the discussion and pick the most defensible direction. State the decision, the reasons, and the strongest objection you are overruling.\n")
	}

	return gateway.Request{
		System: ctx.Actor.SystemPrompt,
		Prompt: sb.String(),
	}
}

// senderLabel renders a message author for the transcript section.
func senderLabel(msg conversation.Message) string {
	switch msg.SenderKind {
	case conversation.SenderHuman:
		return "Human"
	case conversation.SenderSystem:
		return "System"
	default:
		if msg.SenderID != "" {
			return msg.SenderID
		}
		return "Participant"
	}
}

// Kickoff returns the system message content that opens a conversation.
func Kickoff(goal string, team agent.Team) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "The team convenes to decide: %s\n\nParticipants:\n", goal)
	for _, p := range team {
		fmt.Fprintf(&sb, "- %s (%s)\n", p.Name, p.Role)
	}
	return sb.String()
}
