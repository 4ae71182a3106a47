// Package event defines the notification events emitted by the orchestration
// core after each step, and the synchronous bus that delivers them. Delivery
// and fan-out to connected clients is entirely the subscriber's concern.
package event

import (
	"time"

	"github.com/roundtable-dev/roundtable/internal/conversation"
)

// Event type identifiers, usable as Subscribe keys.
const (
	EventConversationStarted = "conversation.started"
	EventStatusChanged       = "status.changed"
	EventPhaseChanged        = "phase.changed"
	EventMessageAppended     = "message.appended"
	EventVoteRecorded        = "vote.recorded"
	EventConsensusReached    = "consensus.reached"
	EventGenerationFailed    = "generation.failed"
	EventBudgetExceeded      = "budget.exceeded"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "message.appended").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Conversation Lifecycle Events
// -----------------------------------------------------------------------------

// ConversationStartedEvent is emitted when a conversation is created.
type ConversationStartedEvent struct {
	baseEvent
	ConversationID string
	Goal           string
}

// NewConversationStartedEvent creates a ConversationStartedEvent.
func NewConversationStartedEvent(conversationID, goal string) ConversationStartedEvent {
	return ConversationStartedEvent{
		baseEvent:      newBaseEvent(EventConversationStarted),
		ConversationID: conversationID,
		Goal:           goal,
	}
}

// StatusChangedEvent is emitted when a conversation's status changes.
type StatusChangedEvent struct {
	baseEvent
	ConversationID string
	Previous       conversation.Status
	Current        conversation.Status

	// Reason carries the abort reason for transitions into aborted status.
	Reason string
}

// NewStatusChangedEvent creates a StatusChangedEvent.
func NewStatusChangedEvent(conversationID string, previous, current conversation.Status, reason string) StatusChangedEvent {
	return StatusChangedEvent{
		baseEvent:      newBaseEvent(EventStatusChanged),
		ConversationID: conversationID,
		Previous:       previous,
		Current:        current,
		Reason:         reason,
	}
}

// PhaseChangedEvent is emitted when the conversation phase transitions.
type PhaseChangedEvent struct {
	baseEvent
	ConversationID string
	Previous       conversation.Phase
	Current        conversation.Phase
	Round          int
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(conversationID string, previous, current conversation.Phase, round int) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent:      newBaseEvent(EventPhaseChanged),
		ConversationID: conversationID,
		Previous:       previous,
		Current:        current,
		Round:          round,
	}
}

// -----------------------------------------------------------------------------
// Message Events
// -----------------------------------------------------------------------------

// MessageAppendedEvent is emitted when a message becomes official in the log.
type MessageAppendedEvent struct {
	baseEvent
	ConversationID string
	Message        conversation.Message
}

// NewMessageAppendedEvent creates a MessageAppendedEvent.
func NewMessageAppendedEvent(msg conversation.Message) MessageAppendedEvent {
	return MessageAppendedEvent{
		baseEvent:      newBaseEvent(EventMessageAppended),
		ConversationID: msg.ConversationID,
		Message:        msg,
	}
}

// -----------------------------------------------------------------------------
// Consensus Events
// -----------------------------------------------------------------------------

// VoteRecordedEvent is emitted when a participant's vote is collected.
// A resubmitted vote emits a second event for the same pair.
type VoteRecordedEvent struct {
	baseEvent
	ConversationID string
	Vote           conversation.Vote
}

// NewVoteRecordedEvent creates a VoteRecordedEvent.
func NewVoteRecordedEvent(conversationID string, vote conversation.Vote) VoteRecordedEvent {
	return VoteRecordedEvent{
		baseEvent:      newBaseEvent(EventVoteRecorded),
		ConversationID: conversationID,
		Vote:           vote,
	}
}

// ConsensusReachedEvent is emitted when a tally produces a decisive outcome
// or the forced-decision fallback resolves a deadlock.
type ConsensusReachedEvent struct {
	baseEvent
	ConversationID string
	ProposalID     string
	Outcome        string
	Forced         bool
}

// NewConsensusReachedEvent creates a ConsensusReachedEvent.
func NewConsensusReachedEvent(conversationID, proposalID, outcome string, forced bool) ConsensusReachedEvent {
	return ConsensusReachedEvent{
		baseEvent:      newBaseEvent(EventConsensusReached),
		ConversationID: conversationID,
		ProposalID:     proposalID,
		Outcome:        outcome,
		Forced:         forced,
	}
}

// -----------------------------------------------------------------------------
// Failure Events
// -----------------------------------------------------------------------------

// GenerationFailedEvent is emitted when a participant's turn exhausts every
// configured backend. The turn will be retried on the next advance up to the
// per-turn retry cap.
type GenerationFailedEvent struct {
	baseEvent
	ConversationID string
	ParticipantID  string
	Attempt        int
	Error          string
}

// NewGenerationFailedEvent creates a GenerationFailedEvent.
func NewGenerationFailedEvent(conversationID, participantID string, attempt int, errMsg string) GenerationFailedEvent {
	return GenerationFailedEvent{
		baseEvent:      newBaseEvent(EventGenerationFailed),
		ConversationID: conversationID,
		ParticipantID:  participantID,
		Attempt:        attempt,
		Error:          errMsg,
	}
}

// BudgetExceededEvent is emitted when a round or message budget forces an
// abort.
type BudgetExceededEvent struct {
	baseEvent
	ConversationID string
	Budget         string
	Limit          int
}

// NewBudgetExceededEvent creates a BudgetExceededEvent.
func NewBudgetExceededEvent(conversationID, budget string, limit int) BudgetExceededEvent {
	return BudgetExceededEvent{
		baseEvent:      newBaseEvent(EventBudgetExceeded),
		ConversationID: conversationID,
		Budget:         budget,
		Limit:          limit,
	}
}
