// Package scheduler decides which participant speaks next. Turn order is a
// pure function of phase and turns already taken, so replaying the same
// conversation always yields the same speaker sequence.
package scheduler

import (
	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/errors"
)

// Scheduler computes deterministic round-robin turn order over a fixed team.
type Scheduler struct {
	team agent.Team
}

// New creates a Scheduler for the given team. The team must already be
// validated; the scheduler assumes exactly one facilitator.
func New(team agent.Team) *Scheduler {
	return &Scheduler{team: team}
}

// RoundSize returns the number of turns in one full round.
func (s *Scheduler) RoundSize() int {
	return len(s.team)
}

// Facilitator returns the team's facilitator, used for nudges and the
// deciding synthesis.
func (s *Scheduler) Facilitator() agent.Participant {
	return s.team.Facilitator()
}

// SpeakingOrder returns the per-round speaker sequence for a phase.
//
// Exploring opens with the facilitator framing the problem, then the rest of
// the roster in order. Voting collects ballots from the non-facilitators
// first and lets the facilitator close the round. Discussing uses plain
// roster order.
func (s *Scheduler) SpeakingOrder(phase conversation.Phase) []agent.Participant {
	switch phase {
	case conversation.PhaseExploring:
		return s.facilitatorFirst()
	case conversation.PhaseVoting:
		return s.facilitatorLast()
	default:
		order := make([]agent.Participant, len(s.team))
		copy(order, s.team)
		return order
	}
}

// NextActor returns the participant for the given turn within a phase.
// turnsTaken counts participant turns already completed since the phase
// began; it wraps across rounds.
func (s *Scheduler) NextActor(phase conversation.Phase, turnsTaken int) (agent.Participant, error) {
	if len(s.team) == 0 {
		return agent.Participant{}, errors.New("scheduler: empty team")
	}
	if turnsTaken < 0 {
		return agent.Participant{}, errors.New("scheduler: negative turn count")
	}

	order := s.SpeakingOrder(phase)
	return order[turnsTaken%len(order)], nil
}

// CanPropose reports whether a participant's role may raise proposals during
// discussion. Reviewers and coordinators critique and weigh; their proposal
// markers are downgraded to ordinary discussion.
func (s *Scheduler) CanPropose(p agent.Participant) bool {
	switch p.Role {
	case agent.RoleFacilitator, agent.RoleArchitect, agent.RoleStrategist:
		return true
	default:
		return false
	}
}

func (s *Scheduler) facilitatorFirst() []agent.Participant {
	order := make([]agent.Participant, 0, len(s.team))
	order = append(order, s.team.Facilitator())
	for _, p := range s.team {
		if p.Role != agent.RoleFacilitator {
			order = append(order, p)
		}
	}
	return order
}

func (s *Scheduler) facilitatorLast() []agent.Participant {
	order := make([]agent.Participant, 0, len(s.team))
	for _, p := range s.team {
		if p.Role != agent.RoleFacilitator {
			order = append(order, p)
		}
	}
	return append(order, s.team.Facilitator())
}
