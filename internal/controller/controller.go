// Package controller drives the conversation state machine. Advance performs
// exactly one step per call: one participant turn, one ballot, or one phase
// transition. The caller owns the loop and the per-conversation serialization
// between processes; within one process the controller rejects overlapping
// advances for the same conversation.
package controller

import (
	"context"
	"sync"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/config"
	"github.com/roundtable-dev/roundtable/internal/consensus"
	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/errors"
	"github.com/roundtable-dev/roundtable/internal/event"
	"github.com/roundtable-dev/roundtable/internal/gateway"
	"github.com/roundtable-dev/roundtable/internal/logging"
	"github.com/roundtable-dev/roundtable/internal/prompt"
	"github.com/roundtable-dev/roundtable/internal/retry"
	"github.com/roundtable-dev/roundtable/internal/router"
	"github.com/roundtable-dev/roundtable/internal/scheduler"
	"github.com/roundtable-dev/roundtable/internal/store"
)

// Generator produces one utterance per request. *gateway.Gateway satisfies it.
type Generator interface {
	Generate(ctx context.Context, req gateway.Request) (gateway.UtteranceResult, error)
}

// StepResult reports what one Advance call changed.
type StepResult struct {
	Conversation *conversation.Conversation

	// Messages are the messages this step appended, in append order.
	Messages []conversation.Message

	// Tally is set when this step tallied a voting round.
	Tally *consensus.Tally
}

// Controller owns conversation state while active. All mutations flow
// through Advance and Reply; collaborators observe them on the event bus.
type Controller struct {
	cfg     *config.Config
	team    agent.Team
	store   store.Store
	router  *router.Router
	sched   *scheduler.Scheduler
	engine  *consensus.Engine
	gen     Generator
	retries *retry.Manager
	bus     *event.Bus
	logger  *logging.Logger

	mu        sync.Mutex
	advancing map[string]bool
	ballots   map[string]*consensus.BallotBox
}

// New creates a Controller. bus may be nil when no observer is attached;
// logger may be nil for a no-op logger.
func New(cfg *config.Config, team agent.Team, st store.Store, gen Generator, bus *event.Bus, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Controller{
		cfg:       cfg,
		team:      team,
		store:     st,
		router:    router.New(st, bus, team),
		sched:     scheduler.New(team),
		engine:    consensus.NewEngine(team, cfg.Consensus.Threshold),
		gen:       gen,
		retries:   retry.NewManager(),
		bus:       bus,
		logger:    logger,
		advancing: make(map[string]bool),
		ballots:   make(map[string]*consensus.BallotBox),
	}
}

// Start creates and persists a new conversation for the goal. The first
// Advance call appends the kickoff message and enters the exploring phase.
func (c *Controller) Start(goal string) (*conversation.Conversation, error) {
	if err := c.team.Validate(); err != nil {
		return nil, errors.Wrapf(err, "controller: invalid team")
	}

	conv := conversation.New(goal)
	if err := c.store.SaveConversation(conv); err != nil {
		return nil, errors.Wrapf(err, "controller: persist new conversation")
	}

	c.logger.WithConversation(conv.ID).Info("conversation started", "goal", goal)
	c.publish(event.NewConversationStartedEvent(conv.ID, goal))
	return conv.Clone(), nil
}

// Conversation returns the current persisted state of a conversation.
func (c *Controller) Conversation(id string) (*conversation.Conversation, error) {
	return c.store.LoadConversation(id)
}

// History returns a conversation's messages in sequence order.
func (c *Controller) History(id string) ([]conversation.Message, error) {
	return c.router.History(id)
}

// Reply appends the human's answer to the pending question and returns the
// conversation to active status so Advance can proceed.
func (c *Controller) Reply(conversationID, content string) (conversation.Message, error) {
	conv, err := c.store.LoadConversation(conversationID)
	if err != nil {
		return conversation.Message{}, err
	}
	if conv.Finished() {
		return conversation.Message{}, errors.Wrapf(errors.ErrConversationFinished, "controller: reply to %q", conversationID)
	}
	if conv.Status != conversation.StatusAwaitingHuman {
		return conversation.Message{}, errors.Wrapf(errors.ErrNotAwaitingHuman, "controller: reply to %q", conversationID)
	}

	pending, err := c.router.PendingHumanQuestion(conversationID)
	if err != nil {
		return conversation.Message{}, err
	}

	draft := conversation.Draft{
		SenderKind: conversation.SenderHuman,
		Content:    content,
		Category:   conversation.CategoryHumanReply,
	}
	if pending != nil {
		draft.ParentID = pending.ID
	}

	msg, err := c.router.Append(conversationID, draft)
	if err != nil {
		return conversation.Message{}, err
	}

	c.setStatus(conv, conversation.StatusActive, "")
	conv.Touch()
	if err := c.store.SaveConversation(conv); err != nil {
		return conversation.Message{}, errors.Wrapf(err, "controller: persist reply status")
	}

	c.logger.WithConversation(conversationID).Info("human reply recorded")
	return msg, nil
}

// Advance performs exactly one step of the conversation and returns the
// updated state plus any messages the step appended. Calling it on a
// finished conversation is a no-op. Overlapping calls for the same
// conversation fail with ConcurrentAdvanceError and leave state unchanged.
func (c *Controller) Advance(ctx context.Context, conversationID string) (*StepResult, error) {
	if err := c.acquire(conversationID); err != nil {
		return nil, err
	}
	defer c.release(conversationID)

	conv, err := c.store.LoadConversation(conversationID)
	if err != nil {
		return nil, err
	}

	res := &StepResult{Conversation: conv}

	if conv.Finished() {
		return res, nil
	}

	if conv.Status == conversation.StatusAwaitingHuman {
		pending, err := c.router.PendingHumanQuestion(conversationID)
		if err != nil {
			return nil, err
		}
		if pending != nil {
			return res, nil
		}
		// The pending question was answered outside Reply; reconcile.
		c.setStatus(conv, conversation.StatusActive, "")
		conv.Touch()
		return res, c.save(conv)
	}

	if done, err := c.enforceBudgets(conv, res); done || err != nil {
		return res, err
	}

	switch conv.Phase {
	case conversation.PhaseInitializing:
		err = c.stepKickoff(conv, res)
	case conversation.PhaseExploring:
		err = c.stepExploring(ctx, conv, res)
	case conversation.PhaseDiscussing:
		err = c.stepDiscussing(ctx, conv, res)
	case conversation.PhaseVoting:
		err = c.stepVoting(ctx, conv, res)
	default:
		err = errors.Newf("controller: conversation %q active in phase %q", conv.ID, conv.Phase)
	}
	return res, err
}

// acquire takes the per-conversation advance token.
func (c *Controller) acquire(conversationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.advancing[conversationID] {
		return errors.NewConcurrentAdvanceError(conversationID)
	}
	c.advancing[conversationID] = true
	return nil
}

func (c *Controller) release(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.advancing, conversationID)
}

// ballotBox returns the conversation's voting-round ballot box, seeding it
// from persisted votes so a restarted process resumes a round in progress.
func (c *Controller) ballotBox(conv *conversation.Conversation) (*consensus.BallotBox, error) {
	c.mu.Lock()
	box, ok := c.ballots[conv.ID]
	if !ok {
		box = consensus.NewBallotBox()
		c.ballots[conv.ID] = box
	}
	c.mu.Unlock()
	if ok {
		return box, nil
	}

	votes, err := c.store.Votes(conv.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "controller: seed ballots for %q", conv.ID)
	}
	for _, v := range votes {
		if v.ProposalID != conv.ActiveProposalID {
			continue
		}
		if err := box.Cast(v); err != nil {
			return nil, err
		}
	}
	return box, nil
}

// dropBallots discards a conversation's ballot box.
func (c *Controller) dropBallots(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ballots, conversationID)
}

// enforceBudgets aborts the conversation when a round or message budget is
// exceeded. Returns true when the step is consumed by the abort.
func (c *Controller) enforceBudgets(conv *conversation.Conversation, res *StepResult) (bool, error) {
	b := c.cfg.Budgets

	if b.MaxRounds > 0 && conv.Round >= b.MaxRounds {
		c.publish(event.NewBudgetExceededEvent(conv.ID, "rounds", b.MaxRounds))
		return true, c.abort(conv, errors.NewBudgetExceededError("rounds", b.MaxRounds, conv.Round).Error(), res)
	}

	if b.MaxMessages > 0 {
		msgs, err := c.router.History(conv.ID)
		if err != nil {
			return false, err
		}
		if len(msgs) >= b.MaxMessages {
			c.publish(event.NewBudgetExceededEvent(conv.ID, "messages", b.MaxMessages))
			return true, c.abort(conv, errors.NewBudgetExceededError("messages", b.MaxMessages, len(msgs)).Error(), res)
		}
	}

	return false, nil
}

// stepKickoff appends the opening system message and enters exploration.
func (c *Controller) stepKickoff(conv *conversation.Conversation, res *StepResult) error {
	msg, err := c.router.Append(conv.ID, conversation.Draft{
		SenderKind: conversation.SenderSystem,
		Content:    prompt.Kickoff(conv.Goal, c.team),
		Category:   conversation.CategoryDiscussion,
	})
	if err != nil {
		return err
	}
	res.Messages = append(res.Messages, msg)

	c.setPhase(conv, conversation.PhaseExploring)
	conv.Touch()
	return c.save(conv)
}

// setPhase transitions the phase and resets per-phase turn progress.
func (c *Controller) setPhase(conv *conversation.Conversation, next conversation.Phase) {
	prev := conv.Phase
	conv.Phase = next
	conv.PhaseTurns = 0
	c.logger.WithConversation(conv.ID).Info("phase changed",
		"previous", string(prev), "current", string(next), "round", conv.Round)
	c.publish(event.NewPhaseChangedEvent(conv.ID, prev, next, conv.Round))
}

// setStatus transitions the status. reason is recorded for aborts.
func (c *Controller) setStatus(conv *conversation.Conversation, next conversation.Status, reason string) {
	prev := conv.Status
	conv.Status = next
	c.publish(event.NewStatusChangedEvent(conv.ID, prev, next, reason))
}

// abort moves the conversation to a terminal aborted status with a
// human-readable reason. Aborts are statuses, not error returns.
func (c *Controller) abort(conv *conversation.Conversation, reason string, res *StepResult) error {
	conv.AbortReason = reason
	if conv.FinalSummary == "" {
		conv.FinalSummary = reason
	}
	c.setStatus(conv, conversation.StatusAborted, reason)
	c.dropBallots(conv.ID)
	c.retries.ResetConversation(conv.ID)
	conv.Touch()

	c.logger.WithConversation(conv.ID).Warn("conversation aborted", "reason", reason)
	return c.save(conv)
}

// complete moves the conversation to the completed terminal state.
func (c *Controller) complete(conv *conversation.Conversation) error {
	c.setPhase(conv, conversation.PhaseCompleted)
	c.setStatus(conv, conversation.StatusCompleted, "")
	c.dropBallots(conv.ID)
	c.retries.ResetConversation(conv.ID)
	conv.Touch()
	return c.save(conv)
}

func (c *Controller) save(conv *conversation.Conversation) error {
	if err := c.store.SaveConversation(conv); err != nil {
		return errors.Wrapf(err, "controller: persist conversation %q", conv.ID)
	}
	return nil
}

func (c *Controller) publish(ev event.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

// Participants returns a copy of the team roster.
func (c *Controller) Participants() []agent.Participant {
	out := make([]agent.Participant, len(c.team))
	copy(out, c.team)
	return out
}
