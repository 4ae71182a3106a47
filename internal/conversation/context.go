package conversation

import "github.com/roundtable-dev/roundtable/internal/agent"

// Context is the transient read view assembled before every generation call:
// the ordered prior messages, the goal, and the acting participant. It is
// built fresh each turn and never mutated in place.
type Context struct {
	Goal     string
	Phase    Phase
	Messages []Message
	Actor    agent.Participant
}

// NewContext builds a generation context over a copy of the history slice so
// later appends cannot leak into an in-flight generation.
func NewContext(goal string, phase Phase, history []Message, actor agent.Participant) Context {
	messages := make([]Message, len(history))
	copy(messages, history)
	return Context{
		Goal:     goal,
		Phase:    phase,
		Messages: messages,
		Actor:    actor,
	}
}
