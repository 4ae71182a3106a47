// Package retry tracks generation retry state per participant turn.
//
// The controller consults the manager before re-asking a backend for a
// failed turn: each (conversation, participant) turn gets a bounded number
// of retries, and the attempt history is kept for diagnostics.
package retry

import (
	"fmt"
	"sync"
)

// TurnState tracks retry attempts for one participant's current turn.
type TurnState struct {
	ConversationID string   `json:"conversation_id"`
	ParticipantID  string   `json:"participant_id"`
	RetryCount     int      `json:"retry_count"`
	MaxRetries     int      `json:"max_retries"`
	LastError      string   `json:"last_error,omitempty"`
	Errors         []string `json:"errors,omitempty"` // Error per failed attempt
	Succeeded      bool     `json:"succeeded,omitempty"`
}

// Manager manages retry state for turns. It is thread-safe.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*TurnState
}

// NewManager creates a new retry manager.
func NewManager() *Manager {
	return &Manager{
		states: make(map[string]*TurnState),
	}
}

// turnKey builds the map key for one participant's turn.
func turnKey(conversationID, participantID string) string {
	return fmt.Sprintf("%s/%s", conversationID, participantID)
}

// GetOrCreateState returns or creates retry state for a turn.
func (m *Manager) GetOrCreateState(conversationID, participantID string, maxRetries int) *TurnState {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := turnKey(conversationID, participantID)
	state, exists := m.states[key]
	if !exists {
		state = &TurnState{
			ConversationID: conversationID,
			ParticipantID:  participantID,
			MaxRetries:     maxRetries,
		}
		m.states[key] = state
	}
	return state
}

// ShouldRetry returns whether a failed turn should be retried.
func (m *Manager) ShouldRetry(conversationID, participantID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[turnKey(conversationID, participantID)]
	if !exists {
		return false
	}
	return state.RetryCount < state.MaxRetries && !state.Succeeded
}

// RecordAttempt records the outcome of one attempt. On success the turn is
// closed to further retries; on failure the count and error history grow.
func (m *Manager) RecordAttempt(conversationID, participantID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[turnKey(conversationID, participantID)]
	if !exists {
		return
	}

	if err == nil {
		state.Succeeded = true
		return
	}
	state.RetryCount++
	state.LastError = err.Error()
	state.Errors = append(state.Errors, err.Error())
}

// Exhausted returns whether a turn has used all its retries without success.
func (m *Manager) Exhausted(conversationID, participantID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[turnKey(conversationID, participantID)]
	if !exists {
		return false
	}
	return !state.Succeeded && state.RetryCount >= state.MaxRetries
}

// Reset clears the retry state for a turn. Called when the participant's
// next turn begins so earlier failures don't bleed across turns.
func (m *Manager) Reset(conversationID, participantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, turnKey(conversationID, participantID))
}

// ResetConversation clears all retry state for one conversation.
func (m *Manager) ResetConversation(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, state := range m.states {
		if state.ConversationID == conversationID {
			delete(m.states, key)
		}
	}
}

// States returns a copy of all turn states, keyed the same way as the
// internal map. Useful for diagnostics.
func (m *Manager) States() map[string]*TurnState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*TurnState, len(m.states))
	for k, v := range m.states {
		stateCopy := *v
		if v.Errors != nil {
			stateCopy.Errors = make([]string, len(v.Errors))
			copy(stateCopy.Errors, v.Errors)
		}
		result[k] = &stateCopy
	}
	return result
}
