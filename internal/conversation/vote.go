package conversation

// Proposal is a candidate solution raised during the discussion phase,
// referenced by the proposal message that introduced it.
type Proposal struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Description    string `json:"description"`

	// Round is the conversation round in which the proposal was raised.
	Round int `json:"round"`
}

// VoteValue is a participant's ternary judgment on a proposal.
type VoteValue string

const (
	// VoteApprove supports the proposal.
	VoteApprove VoteValue = "approve"

	// VoteReject opposes the proposal.
	VoteReject VoteValue = "reject"

	// VoteAbstain declines to take a side. Abstentions count toward total
	// weight but toward neither ratio, so they lower the achievable outcome.
	VoteAbstain VoteValue = "abstain"
)

// ValidVoteValue returns true if the given value is a known vote value.
func ValidVoteValue(v VoteValue) bool {
	return v == VoteApprove || v == VoteReject || v == VoteAbstain
}

// Vote records one participant's judgment on one proposal. A resubmission
// within the same voting round replaces the earlier vote for the pair.
type Vote struct {
	ConversationID string    `json:"conversation_id"`
	ProposalID     string    `json:"proposal_id"`
	ParticipantID  string    `json:"participant_id"`
	Value          VoteValue `json:"value"`
	Rationale      string    `json:"rationale,omitempty"`
}
