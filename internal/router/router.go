// Package router owns the append-only message log. Every message enters a
// conversation through Router.Append, which validates the draft, assigns the
// next sequence number, persists the message, and publishes it on the event
// bus. Sequence numbers are gap-free from 1 within a conversation; the log
// is never reordered or rewritten.
package router

import (
	"strings"
	"sync"
	"time"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/errors"
	"github.com/roundtable-dev/roundtable/internal/event"
	"github.com/roundtable-dev/roundtable/internal/store"
)

// messageRef locates an appended message for parent validation.
type messageRef struct {
	conversationID string
	sequence       int
}

// Router validates and sequences message appends for any number of
// conversations. It is safe for concurrent use; appends within a
// conversation are serialized so sequence numbers never race.
type Router struct {
	store store.Store
	bus   *event.Bus
	team  agent.Team

	mu     sync.Mutex
	seqs   map[string]int        // conversation ID -> last assigned sequence
	byID   map[string]messageRef // message ID -> location
	loaded map[string]bool       // conversations whose log has been replayed
}

// New creates a Router over the given store. Appended messages are published
// on bus if it is non-nil. The team is used to reject messages from unknown
// participants.
func New(st store.Store, bus *event.Bus, team agent.Team) *Router {
	return &Router{
		store:  st,
		bus:    bus,
		team:   team,
		seqs:   make(map[string]int),
		byID:   make(map[string]messageRef),
		loaded: make(map[string]bool),
	}
}

// Append validates the draft, completes it into a Message with the next
// sequence number, persists it, and publishes a message.appended event.
// Returns the completed message.
func (r *Router) Append(conversationID string, draft conversation.Draft) (conversation.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(conversationID); err != nil {
		return conversation.Message{}, err
	}
	if err := r.validate(conversationID, draft); err != nil {
		return conversation.Message{}, err
	}

	seq := r.seqs[conversationID] + 1
	msg := conversation.Message{
		ID:                    conversation.NewID(),
		ConversationID:        conversationID,
		SenderKind:            draft.SenderKind,
		SenderID:              draft.SenderID,
		Content:               draft.Content,
		Category:              draft.Category,
		ParentID:              draft.ParentID,
		RequiresHumanResponse: draft.Category.RequiresHumanResponse(),
		Sequence:              seq,
		Timestamp:             time.Now().UTC(),
	}

	if err := r.store.AppendMessage(msg); err != nil {
		return conversation.Message{}, errors.Wrapf(err, "router: persist message")
	}

	// Commit the sequence only after the store accepted the message, so a
	// failed append leaves no gap.
	r.seqs[conversationID] = seq
	r.byID[msg.ID] = messageRef{conversationID: conversationID, sequence: seq}

	if r.bus != nil {
		r.bus.Publish(event.NewMessageAppendedEvent(msg))
	}
	return msg, nil
}

// History returns the conversation's messages in sequence order.
func (r *Router) History(conversationID string) ([]conversation.Message, error) {
	return r.store.Messages(conversationID)
}

// HistoryUpTo returns the messages with sequence numbers at or below upTo,
// in sequence order. A reader can rebuild the log as it stood at any earlier
// point without seeing messages appended since.
func (r *Router) HistoryUpTo(conversationID string, upTo int) ([]conversation.Message, error) {
	msgs, err := r.store.Messages(conversationID)
	if err != nil {
		return nil, err
	}

	out := msgs[:0]
	for _, m := range msgs {
		if m.Sequence <= upTo {
			out = append(out, m)
		}
	}
	return out, nil
}

// PendingHumanQuestion returns the latest message that requires a human
// response and has not yet been answered by a later human reply. Returns
// nil when nothing is pending.
func (r *Router) PendingHumanQuestion(conversationID string) (*conversation.Message, error) {
	msgs, err := r.store.Messages(conversationID)
	if err != nil {
		return nil, err
	}

	var pending *conversation.Message
	for i := range msgs {
		m := msgs[i]
		switch {
		case m.RequiresHumanResponse:
			pending = &msgs[i]
		case m.SenderKind == conversation.SenderHuman:
			pending = nil
		}
	}
	return pending, nil
}

// validate applies the append invariants. Caller must hold r.mu.
func (r *Router) validate(conversationID string, draft conversation.Draft) error {
	if strings.TrimSpace(draft.Content) == "" {
		return errors.NewInvalidMessageError("content is empty", errors.ErrEmptyContent).
			WithConversation(conversationID).WithField("content")
	}

	if !conversation.ValidCategory(draft.Category) {
		return errors.NewInvalidMessageError("unknown category", nil).
			WithConversation(conversationID).WithField("category")
	}

	switch draft.SenderKind {
	case conversation.SenderParticipant:
		if _, ok := r.team.ByID(draft.SenderID); !ok {
			return errors.NewInvalidMessageError("sender is not on the roster", errors.ErrUnknownSender).
				WithConversation(conversationID).WithField("sender_id")
		}
	case conversation.SenderHuman, conversation.SenderSystem:
		// Not roster-bound.
	default:
		return errors.NewInvalidMessageError("unknown sender kind", errors.ErrUnknownSender).
			WithConversation(conversationID).WithField("sender_kind")
	}

	if draft.ParentID != "" {
		ref, ok := r.byID[draft.ParentID]
		if !ok {
			return errors.NewInvalidMessageError("parent message does not exist", errors.ErrDanglingParent).
				WithConversation(conversationID).WithField("parent_id")
		}
		if ref.conversationID != conversationID {
			return errors.NewInvalidMessageError("parent belongs to another conversation", errors.ErrCrossConversationParent).
				WithConversation(conversationID).WithField("parent_id")
		}
		// Any already-appended parent has a smaller sequence than the next
		// one; this guard exists for replayed logs with corrupt ordering.
		if ref.sequence > r.seqs[conversationID] {
			return errors.NewInvalidMessageError("parent is ahead of the log", errors.ErrForwardParent).
				WithConversation(conversationID).WithField("parent_id")
		}
	}

	return nil
}

// ensureLoaded replays a conversation's persisted log into the sequence and
// parent indexes on first touch. Caller must hold r.mu.
func (r *Router) ensureLoaded(conversationID string) error {
	if r.loaded[conversationID] {
		return nil
	}

	msgs, err := r.store.Messages(conversationID)
	if err != nil {
		return errors.Wrapf(err, "router: replay log for %q", conversationID)
	}

	last := 0
	for _, m := range msgs {
		r.byID[m.ID] = messageRef{conversationID: conversationID, sequence: m.Sequence}
		if m.Sequence > last {
			last = m.Sequence
		}
	}
	r.seqs[conversationID] = last
	r.loaded[conversationID] = true
	return nil
}
