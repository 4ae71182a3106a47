package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/consensus"
	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/errors"
	"github.com/roundtable-dev/roundtable/internal/event"
	"github.com/roundtable-dev/roundtable/internal/prompt"
)

// stepVoting collects one ballot per call until the round is complete, then
// tallies it.
func (c *Controller) stepVoting(ctx context.Context, conv *conversation.Conversation, res *StepResult) error {
	if conv.ActiveProposalID == "" {
		return errors.Wrapf(errors.ErrUnknownProposal, "controller: voting without an active proposal in %q", conv.ID)
	}

	if conv.PhaseTurns >= c.sched.RoundSize() {
		return c.tallyRound(ctx, conv, res)
	}

	actor, err := c.sched.NextActor(conv.Phase, conv.PhaseTurns)
	if err != nil {
		return err
	}
	return c.ballotTurn(ctx, conv, actor, res)
}

// ballotTurn asks one participant to vote on the active proposal. A
// malformed ballot is re-requested on later advances up to the voting retry
// cap, then counted as an abstention.
func (c *Controller) ballotTurn(ctx context.Context, conv *conversation.Conversation, actor agent.Participant, res *StepResult) error {
	proposal, err := c.activeProposal(conv)
	if err != nil {
		return err
	}

	history, err := c.router.History(conv.ID)
	if err != nil {
		return err
	}

	cctx := conversation.NewContext(conv.Goal, conv.Phase, history, actor)
	out, err := c.gen.Generate(ctx, prompt.BuildBallot(cctx, proposal))
	if err != nil {
		return c.handleGenerationFailure(ctx, conv, actor, err, res)
	}

	ballot, err := prompt.ParseBallot(out.Text)
	if err != nil {
		c.retries.GetOrCreateState(conv.ID, actor.ID, c.cfg.Budgets.MaxVotingRetries)
		c.retries.RecordAttempt(conv.ID, actor.ID, err)
		log := c.logger.WithConversation(conv.ID).WithParticipant(actor.ID)

		if c.retries.ShouldRetry(conv.ID, actor.ID) {
			log.Warn("malformed ballot, re-requesting", "error", err.Error())
			conv.Touch()
			return c.save(conv)
		}
		c.retries.Reset(conv.ID, actor.ID)

		log.Warn("ballot retries exhausted, recording abstention")
		return c.recordBallot(conv, actor, conversation.Vote{
			ConversationID: conv.ID,
			ProposalID:     conv.ActiveProposalID,
			ParticipantID:  actor.ID,
			Value:          conversation.VoteAbstain,
			Rationale:      "ballot could not be parsed",
		}, res)
	}
	c.retries.Reset(conv.ID, actor.ID)

	return c.recordBallot(conv, actor, conversation.Vote{
		ConversationID: conv.ID,
		ProposalID:     conv.ActiveProposalID,
		ParticipantID:  actor.ID,
		Value:          ballot.Value,
		Rationale:      ballot.Rationale,
	}, res)
}

// recordBallot persists a vote, mirrors it into the round's ballot box,
// appends the vote message, and consumes the turn.
func (c *Controller) recordBallot(conv *conversation.Conversation, actor agent.Participant, vote conversation.Vote, res *StepResult) error {
	box, err := c.ballotBox(conv)
	if err != nil {
		return err
	}
	if err := box.Cast(vote); err != nil {
		return err
	}
	if err := c.store.AppendVote(vote); err != nil {
		return errors.Wrapf(err, "controller: persist vote")
	}

	content := fmt.Sprintf("Vote: %s.", vote.Value)
	if vote.Rationale != "" {
		content = fmt.Sprintf("Vote: %s. %s", vote.Value, vote.Rationale)
	}
	msg, err := c.router.Append(conv.ID, conversation.Draft{
		SenderKind: conversation.SenderParticipant,
		SenderID:   actor.ID,
		Content:    content,
		Category:   conversation.CategoryVote,
	})
	if err != nil {
		return err
	}
	res.Messages = append(res.Messages, msg)

	c.publish(event.NewVoteRecordedEvent(conv.ID, vote))
	c.logger.WithConversation(conv.ID).WithParticipant(actor.ID).Info("vote recorded", "value", string(vote.Value))

	if err := c.consumeTurn(conv); err != nil {
		return err
	}
	conv.Touch()
	return c.save(conv)
}

// tallyRound applies the consensus rule to the completed voting round.
// Approved proposals complete the conversation with a compiled decision;
// rejected ones send it back to discussion; a hung round replays the vote
// until the retry cap triggers the forced-decision fallback.
func (c *Controller) tallyRound(ctx context.Context, conv *conversation.Conversation, res *StepResult) error {
	box, err := c.ballotBox(conv)
	if err != nil {
		return err
	}

	tally := c.engine.Tally(conv.ActiveProposalID, box.Votes(conv.ActiveProposalID))
	res.Tally = &tally
	log := c.logger.WithConversation(conv.ID)
	log.Info("voting round tallied",
		"outcome", string(tally.Outcome),
		"approve", tally.ApproveWeight, "reject", tally.RejectWeight,
		"abstain", tally.AbstainWeight, "total", tally.TotalWeight)

	switch tally.Outcome {
	case consensus.OutcomeApproved:
		proposal, err := c.activeProposal(conv)
		if err != nil {
			return err
		}
		summary := c.compileDecision(proposal, tally, box.Votes(conv.ActiveProposalID))

		msg, err := c.router.Append(conv.ID, conversation.Draft{
			SenderKind: conversation.SenderSystem,
			Content:    summary,
			Category:   conversation.CategoryConsensusSummary,
		})
		if err != nil {
			return err
		}
		res.Messages = append(res.Messages, msg)

		conv.FinalSummary = summary
		c.publish(event.NewConsensusReachedEvent(conv.ID, conv.ActiveProposalID, string(tally.Outcome), false))
		return c.complete(conv)

	case consensus.OutcomeRejected:
		box.Clear()
		c.dropBallots(conv.ID)
		conv.ActiveProposalID = ""
		conv.StuckRounds = 0
		c.publish(event.NewConsensusReachedEvent(conv.ID, tally.ProposalID, string(tally.Outcome), false))
		c.setPhase(conv, conversation.PhaseDiscussing)
		conv.Touch()
		return c.save(conv)

	default:
		conv.VotingRetries++
		if conv.VotingRetries <= c.cfg.Budgets.MaxVotingRetries {
			log.Info("no quorum, replaying voting round", "retry", conv.VotingRetries)
			conv.PhaseTurns = 0
			conv.Touch()
			return c.save(conv)
		}
		return c.forceDecision(ctx, conv, tally, res)
	}
}

// forceDecision resolves a deadlocked vote. When enabled, the facilitator
// synthesizes a deciding summary and the conversation completes with an
// explicit forced-decision marker; otherwise, or when the synthesis itself
// fails, the conversation aborts with a no-consensus reason.
func (c *Controller) forceDecision(ctx context.Context, conv *conversation.Conversation, tally consensus.Tally, res *StepResult) error {
	noConsensus := errors.NewNoConsensusError(conv.ActiveProposalID, conv.VotingRetries)

	if !c.cfg.Budgets.ForcedDecision {
		return c.abort(conv, noConsensus.Error(), res)
	}

	facilitator := c.sched.Facilitator()
	history, err := c.router.History(conv.ID)
	if err != nil {
		return err
	}

	cctx := conversation.NewContext(conv.Goal, conv.Phase, history, facilitator)
	out, err := c.gen.Generate(ctx, prompt.BuildSynthesis(cctx, nil))
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		c.logger.WithConversation(conv.ID).Error("deciding synthesis failed", "error", err.Error())
		return c.abort(conv, fmt.Sprintf("%s; deciding synthesis failed", noConsensus.Error()), res)
	}

	summary := "[forced decision] " + strings.TrimSpace(out.Text)
	msg, err := c.router.Append(conv.ID, conversation.Draft{
		SenderKind: conversation.SenderParticipant,
		SenderID:   facilitator.ID,
		Content:    summary,
		Category:   conversation.CategoryConsensusSummary,
	})
	if err != nil {
		return err
	}
	res.Messages = append(res.Messages, msg)

	conv.FinalSummary = summary
	conv.ForcedDecision = true
	c.publish(event.NewConsensusReachedEvent(conv.ID, conv.ActiveProposalID, string(tally.Outcome), true))
	return c.complete(conv)
}

// activeProposal loads the proposal under vote.
func (c *Controller) activeProposal(conv *conversation.Conversation) (conversation.Proposal, error) {
	proposals, err := c.store.Proposals(conv.ID)
	if err != nil {
		return conversation.Proposal{}, err
	}
	for _, p := range proposals {
		if p.ID == conv.ActiveProposalID {
			return p, nil
		}
	}
	return conversation.Proposal{}, errors.Wrapf(errors.ErrUnknownProposal, "controller: proposal %q", conv.ActiveProposalID)
}

// compileDecision builds the final consensus summary: the proposal, the
// weighted result, and one line per participant's effective vote.
func (c *Controller) compileDecision(proposal conversation.Proposal, tally consensus.Tally, votes []conversation.Vote) string {
	byParticipant := make(map[string]conversation.Vote, len(votes))
	for _, v := range votes {
		byParticipant[v.ParticipantID] = v
	}

	var sb strings.Builder
	sb.WriteString("Decision: approved.\n\n")
	fmt.Fprintf(&sb, "Proposal: %s\n\n", proposal.Description)
	fmt.Fprintf(&sb, "Result: approve %d / reject %d / abstain %d of %d total weight (threshold %.0f%%).\n\nVotes:\n",
		tally.ApproveWeight, tally.RejectWeight, tally.AbstainWeight, tally.TotalWeight, c.engine.Threshold()*100)

	for _, p := range c.team {
		v, ok := byParticipant[p.ID]
		value := conversation.VoteAbstain
		rationale := "no ballot recorded"
		if ok {
			value = v.Value
			rationale = v.Rationale
		}
		if rationale == "" {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", p.Name, p.Role, value)
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): %s; %s\n", p.Name, p.Role, value, rationale)
	}

	return strings.TrimSpace(sb.String())
}
