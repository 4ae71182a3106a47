// Package conversation defines the data model for a Roundtable orchestration
// session: the conversation record, its append-only threaded message log,
// proposals, and votes. The types here are plain data; all behavior lives in
// the controller, router, scheduler, and consensus packages.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a conversation.
type Status string

const (
	// StatusActive indicates the conversation can be advanced.
	StatusActive Status = "active"

	// StatusAwaitingHuman indicates the most recent message requires a human
	// reply and none has been appended since. The conversation may wait in
	// this state indefinitely.
	StatusAwaitingHuman Status = "awaiting_human"

	// StatusCompleted indicates the conversation reached a final decision.
	StatusCompleted Status = "completed"

	// StatusAborted indicates the conversation terminated without a decision
	// (budget exhausted, no consensus, or fatal error). AbortReason records why.
	StatusAborted Status = "aborted"
)

// Phase represents the stage of the orchestration state machine.
type Phase string

const (
	// PhaseInitializing is the pre-flight phase before any participant speaks.
	PhaseInitializing Phase = "initializing"

	// PhaseExploring is the idea-gathering phase; it exits once every
	// participant has contributed or the per-phase round cap is hit.
	PhaseExploring Phase = "exploring"

	// PhaseDiscussing is the debate phase; it exits when a proposal has been
	// raised and the minimum discussion rounds have elapsed, or when the
	// stuck detector forces an early vote.
	PhaseDiscussing Phase = "discussing"

	// PhaseVoting is the consensus phase; it exits on a decisive tally or
	// after the configured voting retries are exhausted.
	PhaseVoting Phase = "voting"

	// PhaseCompleted is the terminal phase after a decision (or abort).
	PhaseCompleted Phase = "completed"
)

// Conversation is one orchestration session. The goal is immutable after
// creation; status, phase, round, and summary fields are the mutable state
// persisted between advance steps.
type Conversation struct {
	ID           string    `json:"id"`
	Goal         string    `json:"goal"`
	Phase        Phase     `json:"phase"`
	Status       Status    `json:"status"`
	Round        int       `json:"round"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	FinalSummary string    `json:"final_summary,omitempty"`

	// AbortReason is the human-readable reason when Status is aborted.
	AbortReason string `json:"abort_reason,omitempty"`

	// PhaseTurns counts participant turns completed since the current phase
	// began. Together with the deterministic scheduler it makes the next
	// speaker a pure function of persisted state, so a restarted process
	// resumes exactly where it stopped.
	PhaseTurns int `json:"phase_turns"`

	// StuckRounds counts consecutive discussion rounds that produced no new
	// proposal. The stuck detector forces an early vote when it reaches the
	// configured threshold.
	StuckRounds int `json:"stuck_rounds,omitempty"`

	// VotingRetries counts voting rounds that ended without a decisive
	// outcome for the active proposal.
	VotingRetries int `json:"voting_retries,omitempty"`

	// ActiveProposalID is the proposal under vote while Phase is voting.
	ActiveProposalID string `json:"active_proposal_id,omitempty"`

	// ForcedDecision marks a completion produced by the facilitator's
	// deciding synthesis after voting failed to reach threshold. It is
	// always explicit, never a silent default-approve.
	ForcedDecision bool `json:"forced_decision,omitempty"`
}

// NewID returns a fresh UUID string for messages and proposals.
func NewID() string {
	return uuid.NewString()
}

// New creates a conversation in the initializing phase with a fresh UUID.
func New(goal string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.NewString(),
		Goal:      goal,
		Phase:     PhaseInitializing,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Finished returns true if the conversation is in a terminal status.
// Advancing a finished conversation is a no-op.
func (c *Conversation) Finished() bool {
	return c.Status == StatusCompleted || c.Status == StatusAborted
}

// Touch updates the modification timestamp.
func (c *Conversation) Touch() {
	c.UpdatedAt = time.Now().UTC()
}

// Clone returns a shallow copy. Stores hand out clones so callers cannot
// mutate persisted state in place.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	return &cp
}
