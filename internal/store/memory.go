package store

import (
	"sort"
	"sync"

	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/errors"
)

// MemoryStore is an in-memory Store. It is safe for concurrent use and is
// the default for tests and throwaway conversations.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation.Conversation
	messages      map[string][]conversation.Message
	proposals     map[string][]conversation.Proposal
	votes         map[string][]conversation.Vote
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*conversation.Conversation),
		messages:      make(map[string][]conversation.Message),
		proposals:     make(map[string][]conversation.Proposal),
		votes:         make(map[string][]conversation.Vote),
	}
}

// SaveConversation persists a snapshot of the conversation metadata.
func (s *MemoryStore) SaveConversation(conv *conversation.Conversation) error {
	if conv == nil || conv.ID == "" {
		return errors.New("store: conversation with empty ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = conv.Clone()
	return nil
}

// LoadConversation returns the conversation with the given ID.
func (s *MemoryStore) LoadConversation(id string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrConversationNotFound, "store: load %q", id)
	}
	return conv.Clone(), nil
}

// ListConversations returns all conversations, newest first.
func (s *MemoryStore) ListConversations() ([]*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*conversation.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AppendMessage appends a message to its conversation's log.
func (s *MemoryStore) AppendMessage(msg conversation.Message) error {
	if msg.ConversationID == "" {
		return errors.New("store: message with empty conversation ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	return nil
}

// Messages returns a conversation's messages in append order.
func (s *MemoryStore) Messages(conversationID string) ([]conversation.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	out := make([]conversation.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// AppendProposal records a proposal.
func (s *MemoryStore) AppendProposal(p conversation.Proposal) error {
	if p.ConversationID == "" {
		return errors.New("store: proposal with empty conversation ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ConversationID] = append(s.proposals[p.ConversationID], p)
	return nil
}

// Proposals returns a conversation's proposals in append order.
func (s *MemoryStore) Proposals(conversationID string) ([]conversation.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	props := s.proposals[conversationID]
	out := make([]conversation.Proposal, len(props))
	copy(out, props)
	return out, nil
}

// AppendVote records a ballot in the append-only vote log.
func (s *MemoryStore) AppendVote(v conversation.Vote) error {
	if v.ConversationID == "" {
		return errors.New("store: vote with empty conversation ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[v.ConversationID] = append(s.votes[v.ConversationID], v)
	return nil
}

// Votes returns effective ballots, latest per (proposal, participant).
func (s *MemoryStore) Votes(conversationID string) ([]conversation.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return dedupeVotes(s.votes[conversationID]), nil
}
