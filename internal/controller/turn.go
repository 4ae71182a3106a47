package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/errors"
	"github.com/roundtable-dev/roundtable/internal/event"
	"github.com/roundtable-dev/roundtable/internal/prompt"
)

// stepExploring exits to discussion once every participant has had a turn,
// otherwise runs the next participant's turn.
func (c *Controller) stepExploring(ctx context.Context, conv *conversation.Conversation, res *StepResult) error {
	if conv.PhaseTurns >= c.sched.RoundSize() {
		conv.StuckRounds = 0
		c.setPhase(conv, conversation.PhaseDiscussing)
		conv.Touch()
		return c.save(conv)
	}

	actor, err := c.sched.NextActor(conv.Phase, conv.PhaseTurns)
	if err != nil {
		return err
	}
	return c.participantTurn(ctx, conv, actor, res)
}

// stepDiscussing evaluates the discussion exit conditions, then runs the
// next turn. A proposal plus the minimum discussion rounds sends the
// conversation to voting; the stuck detector forces the vote early when a
// proposal exists, and hands the floor to the facilitator when none does.
func (c *Controller) stepDiscussing(ctx context.Context, conv *conversation.Conversation, res *StepResult) error {
	proposals, err := c.store.Proposals(conv.ID)
	if err != nil {
		return err
	}

	roundsInPhase := conv.PhaseTurns / c.sched.RoundSize()
	stuck := conv.StuckRounds >= c.cfg.Budgets.StuckThreshold

	if len(proposals) > 0 && (roundsInPhase >= c.cfg.Budgets.MinDiscussionRounds || stuck) {
		latest := proposals[len(proposals)-1]
		conv.ActiveProposalID = latest.ID
		conv.VotingRetries = 0
		conv.StuckRounds = 0
		c.setPhase(conv, conversation.PhaseVoting)
		conv.Touch()
		return c.save(conv)
	}

	var actor agent.Participant
	if stuck {
		// Nothing concrete on the table for several rounds; the facilitator
		// takes the floor to push toward a proposal.
		actor = c.sched.Facilitator()
		conv.StuckRounds = 0
	} else {
		actor, err = c.sched.NextActor(conv.Phase, conv.PhaseTurns)
		if err != nil {
			return err
		}
	}
	return c.participantTurn(ctx, conv, actor, res)
}

// participantTurn generates one utterance for the actor, classifies it, and
// appends the resulting message. Generation failures are absorbed into
// bounded retries; an exhausted turn is consumed with a system placeholder
// so the conversation never silently skips a speaker.
func (c *Controller) participantTurn(ctx context.Context, conv *conversation.Conversation, actor agent.Participant, res *StepResult) error {
	history, err := c.router.History(conv.ID)
	if err != nil {
		return err
	}

	cctx := conversation.NewContext(conv.Goal, conv.Phase, history, actor)
	out, err := c.gen.Generate(ctx, prompt.Build(cctx))
	if err != nil {
		return c.handleGenerationFailure(ctx, conv, actor, err, res)
	}
	c.retries.Reset(conv.ID, actor.ID)

	cls := prompt.Classify(out.Text)
	if cls.Category == conversation.CategoryProposal && !c.sched.CanPropose(actor) {
		// The role critiques rather than proposes; keep the text as plain
		// discussion.
		cls = prompt.Classification{Category: conversation.CategoryDiscussion, Body: cls.Body}
	}

	draft := conversation.Draft{
		SenderKind: conversation.SenderParticipant,
		SenderID:   actor.ID,
		Category:   cls.Category,
	}
	switch cls.Category {
	case conversation.CategoryQuestionToHuman:
		draft.Content = cls.Question
	case conversation.CategoryProposal:
		if cls.Body == cls.Proposal {
			draft.Content = "Proposal: " + cls.Proposal
		} else {
			draft.Content = strings.TrimSpace(fmt.Sprintf("%s\n\nProposal: %s", cls.Body, cls.Proposal))
		}
	default:
		draft.Content = cls.Body
	}

	msg, err := c.router.Append(conv.ID, draft)
	if err != nil {
		return err
	}
	res.Messages = append(res.Messages, msg)

	log := c.logger.WithConversation(conv.ID).WithParticipant(actor.ID)
	log.Info("turn completed",
		"category", string(cls.Category), "backend", out.Backend, "latency_ms", out.Latency.Milliseconds())

	if cls.Category == conversation.CategoryProposal {
		p := conversation.Proposal{
			ID:             conversation.NewID(),
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			Description:    cls.Proposal,
			Round:          conv.Round,
		}
		if err := c.store.AppendProposal(p); err != nil {
			return errors.Wrapf(err, "controller: persist proposal")
		}
		log.Info("proposal raised", "proposal_id", p.ID)
	}

	if msg.RequiresHumanResponse {
		c.setStatus(conv, conversation.StatusAwaitingHuman, "")
	}

	if err := c.consumeTurn(conv); err != nil {
		return err
	}
	conv.Touch()
	return c.save(conv)
}

// handleGenerationFailure converts a failed generation into a bounded
// retry. The turn is not consumed while retries remain; once exhausted, a
// system placeholder message consumes it.
func (c *Controller) handleGenerationFailure(ctx context.Context, conv *conversation.Conversation, actor agent.Participant, genErr error, res *StepResult) error {
	// An abandoned caller is not a backend failure; surface it untouched
	// and leave the turn unclaimed.
	if ctx.Err() != nil {
		return genErr
	}

	maxRetries := c.cfg.Budgets.MaxTurnRetries
	if conv.Phase == conversation.PhaseVoting {
		maxRetries = c.cfg.Budgets.MaxVotingRetries
	}
	c.retries.GetOrCreateState(conv.ID, actor.ID, maxRetries)
	c.retries.RecordAttempt(conv.ID, actor.ID, genErr)

	attempt := len(c.retries.GetOrCreateState(conv.ID, actor.ID, maxRetries).Errors)
	c.publish(event.NewGenerationFailedEvent(conv.ID, actor.ID, attempt, genErr.Error()))
	log := c.logger.WithConversation(conv.ID).WithParticipant(actor.ID)

	if c.retries.ShouldRetry(conv.ID, actor.ID) {
		log.Warn("turn generation failed, will retry", "attempt", attempt, "error", genErr.Error())
		conv.Touch()
		return c.save(conv)
	}
	c.retries.Reset(conv.ID, actor.ID)

	if conv.Phase == conversation.PhaseVoting {
		log.Warn("ballot generation exhausted, recording abstention", "attempts", attempt)
		return c.recordBallot(conv, actor, conversation.Vote{
			ConversationID: conv.ID,
			ProposalID:     conv.ActiveProposalID,
			ParticipantID:  actor.ID,
			Value:          conversation.VoteAbstain,
			Rationale:      "vote could not be generated",
		}, res)
	}

	log.Warn("turn generation exhausted, recording placeholder", "attempts", attempt)
	msg, err := c.router.Append(conv.ID, conversation.Draft{
		SenderKind: conversation.SenderSystem,
		Content:    fmt.Sprintf("%s's turn could not be generated after %d attempts; continuing without it.", actor.Name, attempt),
		Category:   conversation.CategoryDiscussion,
	})
	if err != nil {
		return err
	}
	res.Messages = append(res.Messages, msg)

	if err := c.consumeTurn(conv); err != nil {
		return err
	}
	conv.Touch()
	return c.save(conv)
}

// consumeTurn advances the per-phase turn counter and, on round completion,
// the round counter plus the discussion stuck detector.
func (c *Controller) consumeTurn(conv *conversation.Conversation) error {
	conv.PhaseTurns++
	if conv.PhaseTurns%c.sched.RoundSize() != 0 {
		return nil
	}

	finished := conv.Round
	conv.Round++

	if conv.Phase != conversation.PhaseDiscussing {
		return nil
	}

	proposals, err := c.store.Proposals(conv.ID)
	if err != nil {
		return err
	}
	for _, p := range proposals {
		if p.Round == finished {
			conv.StuckRounds = 0
			return nil
		}
	}
	conv.StuckRounds++
	return nil
}
