// Package consensus implements the weighted ternary voting rule. Ballots are
// collected in a BallotBox with upsert semantics per (proposal, participant)
// pair; the Engine tallies them against the approval threshold.
package consensus

import (
	"sync"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/errors"
)

// Outcome is the result of tallying a voting round.
type Outcome string

const (
	// OutcomeApproved means the approval weight met the threshold.
	OutcomeApproved Outcome = "approved"

	// OutcomeRejected means the opposing weight itself met the threshold.
	OutcomeRejected Outcome = "rejected"

	// OutcomeNoQuorum means neither side was decisive: abstentions or
	// missing ballots leave both ratios short of the threshold.
	OutcomeNoQuorum Outcome = "no_quorum"
)

// Tally is the weighted result of one voting round over one proposal.
type Tally struct {
	ProposalID    string
	ApproveWeight int
	RejectWeight  int
	AbstainWeight int
	TotalWeight   int
	Outcome       Outcome
}

// ballotKey identifies one participant's ballot on one proposal.
type ballotKey struct {
	proposalID    string
	participantID string
}

// BallotBox collects votes for the current voting round. Re-casting a vote
// for the same (proposal, participant) pair replaces the earlier ballot.
// Safe for concurrent use.
type BallotBox struct {
	mu    sync.Mutex
	votes map[ballotKey]conversation.Vote
}

// NewBallotBox creates an empty BallotBox.
func NewBallotBox() *BallotBox {
	return &BallotBox{votes: make(map[ballotKey]conversation.Vote)}
}

// Cast records a ballot, replacing any earlier vote by the same participant
// on the same proposal.
func (b *BallotBox) Cast(v conversation.Vote) error {
	if v.ProposalID == "" {
		return errors.Wrapf(errors.ErrUnknownProposal, "consensus: ballot without proposal")
	}
	if v.ParticipantID == "" {
		return errors.New("consensus: ballot without participant")
	}
	if !conversation.ValidVoteValue(v.Value) {
		return errors.Newf("consensus: unknown vote value %q", v.Value)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.votes[ballotKey{v.ProposalID, v.ParticipantID}] = v
	return nil
}

// Votes returns the effective ballots for a proposal.
func (b *BallotBox) Votes(proposalID string) []conversation.Vote {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []conversation.Vote
	for k, v := range b.votes {
		if k.proposalID == proposalID {
			out = append(out, v)
		}
	}
	return out
}

// HasVoted reports whether the participant has a ballot on the proposal.
func (b *BallotBox) HasVoted(proposalID, participantID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.votes[ballotKey{proposalID, participantID}]
	return ok
}

// Clear empties the box. Called when a rejected outcome sends the
// conversation back to discussion; stale ballots never leak into the next
// voting round.
func (b *BallotBox) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.votes = make(map[ballotKey]conversation.Vote)
}

// Engine tallies ballots for a fixed team against an approval threshold.
type Engine struct {
	team      agent.Team
	threshold float64
}

// NewEngine creates an Engine. threshold is the fraction of total team
// weight that must approve, e.g. 0.8.
func NewEngine(team agent.Team, threshold float64) *Engine {
	return &Engine{team: team, threshold: threshold}
}

// Tally computes the weighted outcome for one proposal. Participants without
// a ballot are counted as abstaining: their weight stays in the denominator
// and pushes the approval ratio down.
//
// Ratios are compared as quotients, never as threshold*total products, so an
// exact boundary like 4-of-5 weight against a 0.8 threshold approves instead
// of falling to rounding.
func (e *Engine) Tally(proposalID string, votes []conversation.Vote) Tally {
	t := Tally{ProposalID: proposalID, TotalWeight: e.team.TotalWeight()}

	byParticipant := make(map[string]conversation.Vote, len(votes))
	for _, v := range votes {
		if v.ProposalID != proposalID {
			continue
		}
		if _, ok := e.team.ByID(v.ParticipantID); !ok {
			continue
		}
		byParticipant[v.ParticipantID] = v
	}

	for _, p := range e.team {
		w := p.EffectiveWeight()
		switch byParticipant[p.ID].Value {
		case conversation.VoteApprove:
			t.ApproveWeight += w
		case conversation.VoteReject:
			t.RejectWeight += w
		default:
			// Abstain or no ballot.
			t.AbstainWeight += w
		}
	}

	t.Outcome = e.outcome(t)
	return t
}

// outcome applies the decision rule to a computed tally.
func (e *Engine) outcome(t Tally) Outcome {
	if t.TotalWeight == 0 {
		return OutcomeNoQuorum
	}

	total := float64(t.TotalWeight)
	if float64(t.ApproveWeight)/total >= e.threshold {
		return OutcomeApproved
	}

	// Rejection is symmetric with approval: the opposing weight must carry
	// the same threshold on its own. A split where neither side is decisive
	// stays no_quorum so the round replays instead of killing the proposal.
	if float64(t.RejectWeight)/total >= e.threshold {
		return OutcomeRejected
	}

	return OutcomeNoQuorum
}

// Threshold returns the engine's approval threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}
