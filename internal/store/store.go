// Package store persists conversations, their message logs, proposals, and
// votes. Two implementations are provided: an in-memory store for tests and
// a file-backed store using append-only JSONL logs.
package store

import (
	"github.com/roundtable-dev/roundtable/internal/conversation"
)

// Store is the persistence interface used by the conversation controller.
// Message, proposal, and vote logs are append-only; conversation metadata
// is saved as a whole on each state change.
type Store interface {
	// SaveConversation persists the conversation metadata, replacing any
	// previous snapshot.
	SaveConversation(conv *conversation.Conversation) error

	// LoadConversation returns the conversation with the given ID, or
	// errors.ErrConversationNotFound.
	LoadConversation(id string) (*conversation.Conversation, error)

	// ListConversations returns all known conversations, newest first.
	ListConversations() ([]*conversation.Conversation, error)

	// AppendMessage appends a message to its conversation's log.
	AppendMessage(msg conversation.Message) error

	// Messages returns a conversation's messages in append order.
	Messages(conversationID string) ([]conversation.Message, error)

	// AppendProposal records a proposal raised during the conversation.
	AppendProposal(p conversation.Proposal) error

	// Proposals returns a conversation's proposals in append order.
	Proposals(conversationID string) ([]conversation.Proposal, error)

	// AppendVote records a ballot. Later votes by the same participant on
	// the same proposal supersede earlier ones on read.
	AppendVote(v conversation.Vote) error

	// Votes returns the effective ballots for a conversation: one per
	// (proposal, participant) pair, the latest recorded winning.
	Votes(conversationID string) ([]conversation.Vote, error)
}

// dedupeVotes collapses an append-ordered vote log to the last vote per
// (proposal, participant) pair, preserving first-appearance order.
func dedupeVotes(log []conversation.Vote) []conversation.Vote {
	type key struct{ proposal, participant string }

	index := make(map[key]int)
	var out []conversation.Vote
	for _, v := range log {
		k := key{v.ProposalID, v.ParticipantID}
		if i, ok := index[k]; ok {
			out[i] = v
			continue
		}
		index[k] = len(out)
		out = append(out, v)
	}
	return out
}
