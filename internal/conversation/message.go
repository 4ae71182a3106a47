package conversation

import "time"

// SenderKind identifies who authored a message.
type SenderKind string

const (
	// SenderParticipant marks a message generated by one of the team's agents.
	SenderParticipant SenderKind = "participant"

	// SenderHuman marks a message submitted by the external human.
	SenderHuman SenderKind = "human"

	// SenderSystem marks a message authored by the orchestration core itself:
	// the kickoff message, generation-failure placeholders, and abort notices.
	SenderSystem SenderKind = "system"
)

// Category classifies a message's role in the conversation flow.
type Category string

const (
	// CategoryDiscussion is ordinary conversational contribution.
	CategoryDiscussion Category = "discussion"

	// CategoryQuestionToHuman pauses the conversation for human input.
	CategoryQuestionToHuman Category = "question_to_human"

	// CategoryHumanReply is the human's answer to a pending question.
	CategoryHumanReply Category = "human_reply"

	// CategoryProposal introduces a candidate solution for voting.
	CategoryProposal Category = "proposal"

	// CategoryVote records a participant's ballot on a proposal.
	CategoryVote Category = "vote"

	// CategoryConsensusSummary is the final compiled decision.
	CategoryConsensusSummary Category = "consensus_summary"
)

// validCategories is the closed set of message categories.
var validCategories = map[Category]bool{
	CategoryDiscussion:       true,
	CategoryQuestionToHuman:  true,
	CategoryHumanReply:       true,
	CategoryProposal:         true,
	CategoryVote:             true,
	CategoryConsensusSummary: true,
}

// ValidCategory returns true if the given category is known.
func ValidCategory(c Category) bool {
	return validCategories[c]
}

// RequiresHumanResponse reports whether messages of this category pause the
// conversation for human input.
func (c Category) RequiresHumanResponse() bool {
	return c == CategoryQuestionToHuman
}

// Message is the atomic unit of the append-only log. Once appended, a
// message is never mutated or deleted by the core.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderKind     SenderKind `json:"sender_kind"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	Category       Category   `json:"category"`

	// ParentID optionally threads this message under an earlier one in the
	// same conversation. Threading is advisory for display; the core never
	// reorders by thread.
	ParentID string `json:"parent_id,omitempty"`

	RequiresHumanResponse bool `json:"requires_human_response"`

	// Sequence is assigned by the router at append time and is strictly
	// increasing, gap-free from 1, within a conversation.
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
}

// Draft is the caller-supplied portion of a message, validated and completed
// by the router on append.
type Draft struct {
	SenderKind SenderKind
	SenderID   string
	Content    string
	Category   Category
	ParentID   string
}
