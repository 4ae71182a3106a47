package consensus

import (
	"testing"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/conversation"
)

// equalWeightTeam builds a five-member team, all weight 1, for ratio tests.
func equalWeightTeam() agent.Team {
	return agent.Team{
		{ID: "fac", Name: "Fac", Role: agent.RoleFacilitator, Weight: 1},
		{ID: "arc", Name: "Arc", Role: agent.RoleArchitect, Weight: 1},
		{ID: "str", Name: "Str", Role: agent.RoleStrategist, Weight: 1},
		{ID: "rev", Name: "Rev", Role: agent.RoleReviewer, Weight: 1},
		{ID: "coo", Name: "Coo", Role: agent.RoleCoordinator, Weight: 1},
	}
}

func vote(participantID string, value conversation.VoteValue) conversation.Vote {
	return conversation.Vote{
		ConversationID: "conv-1",
		ProposalID:     "prop-1",
		ParticipantID:  participantID,
		Value:          value,
	}
}

func TestBallotBoxCastAndUpsert(t *testing.T) {
	box := NewBallotBox()

	if err := box.Cast(vote("arc", conversation.VoteReject)); err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if err := box.Cast(vote("arc", conversation.VoteApprove)); err != nil {
		t.Fatalf("re-Cast: %v", err)
	}

	votes := box.Votes("prop-1")
	if len(votes) != 1 {
		t.Fatalf("len = %d, want 1 (upsert)", len(votes))
	}
	if votes[0].Value != conversation.VoteApprove {
		t.Errorf("value = %q, want approve (latest wins)", votes[0].Value)
	}
}

func TestBallotBoxValidation(t *testing.T) {
	box := NewBallotBox()

	if err := box.Cast(conversation.Vote{ParticipantID: "arc", Value: conversation.VoteApprove}); err == nil {
		t.Error("missing proposal ID should error")
	}
	if err := box.Cast(conversation.Vote{ProposalID: "p", Value: conversation.VoteApprove}); err == nil {
		t.Error("missing participant ID should error")
	}
	if err := box.Cast(conversation.Vote{ProposalID: "p", ParticipantID: "arc", Value: "maybe"}); err == nil {
		t.Error("unknown vote value should error")
	}
}

func TestBallotBoxHasVotedAndClear(t *testing.T) {
	box := NewBallotBox()
	if box.HasVoted("prop-1", "arc") {
		t.Error("HasVoted on empty box")
	}

	if err := box.Cast(vote("arc", conversation.VoteApprove)); err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if !box.HasVoted("prop-1", "arc") {
		t.Error("HasVoted = false after cast")
	}

	box.Clear()
	if box.HasVoted("prop-1", "arc") {
		t.Error("HasVoted = true after Clear")
	}
	if len(box.Votes("prop-1")) != 0 {
		t.Error("votes remain after Clear")
	}
}

func TestTallyOutcomes(t *testing.T) {
	team := equalWeightTeam()
	engine := NewEngine(team, 0.8)

	tests := []struct {
		name    string
		votes   []conversation.Vote
		outcome Outcome
	}{
		{
			name: "unanimous approval",
			votes: []conversation.Vote{
				vote("fac", conversation.VoteApprove),
				vote("arc", conversation.VoteApprove),
				vote("str", conversation.VoteApprove),
				vote("rev", conversation.VoteApprove),
				vote("coo", conversation.VoteApprove),
			},
			outcome: OutcomeApproved,
		},
		{
			name: "exact boundary four of five approves",
			votes: []conversation.Vote{
				vote("fac", conversation.VoteApprove),
				vote("arc", conversation.VoteApprove),
				vote("str", conversation.VoteApprove),
				vote("rev", conversation.VoteApprove),
				vote("coo", conversation.VoteAbstain),
			},
			outcome: OutcomeApproved,
		},
		{
			name: "one reject leaves threshold reachable",
			votes: []conversation.Vote{
				vote("fac", conversation.VoteApprove),
				vote("arc", conversation.VoteApprove),
				vote("str", conversation.VoteApprove),
				vote("rev", conversation.VoteReject),
				vote("coo", conversation.VoteApprove),
			},
			// 4/5 approve is exactly the threshold even with the reject.
			outcome: OutcomeApproved,
		},
		{
			name: "two rejects are not decisive opposition",
			votes: []conversation.Vote{
				vote("fac", conversation.VoteApprove),
				vote("arc", conversation.VoteApprove),
				vote("str", conversation.VoteApprove),
				vote("rev", conversation.VoteReject),
				vote("coo", conversation.VoteReject),
			},
			// 3/5 approve and 2/5 reject both fall short of 0.8.
			outcome: OutcomeNoQuorum,
		},
		{
			name: "four of five rejects carry the threshold",
			votes: []conversation.Vote{
				vote("fac", conversation.VoteApprove),
				vote("arc", conversation.VoteReject),
				vote("str", conversation.VoteReject),
				vote("rev", conversation.VoteReject),
				vote("coo", conversation.VoteReject),
			},
			outcome: OutcomeRejected,
		},
		{
			name: "abstentions starve the ratio without rejecting",
			votes: []conversation.Vote{
				vote("fac", conversation.VoteApprove),
				vote("arc", conversation.VoteApprove),
				vote("str", conversation.VoteAbstain),
				vote("rev", conversation.VoteAbstain),
				vote("coo", conversation.VoteApprove),
			},
			outcome: OutcomeNoQuorum,
		},
		{
			name:    "no ballots at all",
			votes:   nil,
			outcome: OutcomeNoQuorum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tally := engine.Tally("prop-1", tt.votes)
			if tally.Outcome != tt.outcome {
				t.Errorf("Outcome = %q, want %q (tally %+v)", tally.Outcome, tt.outcome, tally)
			}
		})
	}
}

func TestTallyThreeWaySplitIsNoQuorum(t *testing.T) {
	team := agent.Team{
		{ID: "fac", Name: "Fac", Role: agent.RoleFacilitator, Weight: 1},
		{ID: "arc", Name: "Arc", Role: agent.RoleArchitect, Weight: 1},
		{ID: "rev", Name: "Rev", Role: agent.RoleReviewer, Weight: 1},
	}
	engine := NewEngine(team, 0.8)

	// One approve, one reject, one abstain: 1/3 on each side. Neither ratio
	// reaches 0.8, so the round replays rather than rejecting outright.
	tally := engine.Tally("prop-1", []conversation.Vote{
		vote("fac", conversation.VoteApprove),
		vote("arc", conversation.VoteReject),
		vote("rev", conversation.VoteAbstain),
	})
	if tally.Outcome != OutcomeNoQuorum {
		t.Errorf("Outcome = %q, want no_quorum (tally %+v)", tally.Outcome, tally)
	}
}

func TestTallyMissingBallotsCountAsAbstain(t *testing.T) {
	team := equalWeightTeam()
	engine := NewEngine(team, 0.8)

	// Only three of five cast ballots; the silent two stay in the denominator.
	tally := engine.Tally("prop-1", []conversation.Vote{
		vote("fac", conversation.VoteApprove),
		vote("arc", conversation.VoteApprove),
		vote("str", conversation.VoteApprove),
	})
	if tally.TotalWeight != 5 {
		t.Errorf("TotalWeight = %d, want 5", tally.TotalWeight)
	}
	if tally.AbstainWeight != 2 {
		t.Errorf("AbstainWeight = %d, want 2", tally.AbstainWeight)
	}
	if tally.Outcome != OutcomeNoQuorum {
		t.Errorf("Outcome = %q, want no_quorum", tally.Outcome)
	}
}

func TestTallyWeightedVotes(t *testing.T) {
	team := agent.Team{
		{ID: "fac", Name: "Fac", Role: agent.RoleFacilitator, Weight: 3},
		{ID: "arc", Name: "Arc", Role: agent.RoleArchitect, Weight: 1},
		{ID: "rev", Name: "Rev", Role: agent.RoleReviewer, Weight: 1},
	}
	engine := NewEngine(team, 0.8)

	// Facilitator alone carries 3/5 = 0.6, short of 0.8.
	tally := engine.Tally("prop-1", []conversation.Vote{
		vote("fac", conversation.VoteApprove),
	})
	if tally.Outcome != OutcomeNoQuorum {
		t.Errorf("Outcome = %q, want no_quorum", tally.Outcome)
	}

	// Facilitator plus architect reach 4/5 = 0.8 exactly.
	tally = engine.Tally("prop-1", []conversation.Vote{
		vote("fac", conversation.VoteApprove),
		vote("arc", conversation.VoteApprove),
	})
	if tally.Outcome != OutcomeApproved {
		t.Errorf("Outcome = %q, want approved", tally.Outcome)
	}
	if tally.ApproveWeight != 4 {
		t.Errorf("ApproveWeight = %d, want 4", tally.ApproveWeight)
	}
}

func TestTallyDefaultWeightApplied(t *testing.T) {
	// Zero-weight descriptors count as weight 1, not 0.
	team := agent.Team{
		{ID: "fac", Name: "Fac", Role: agent.RoleFacilitator},
		{ID: "arc", Name: "Arc", Role: agent.RoleArchitect},
	}
	engine := NewEngine(team, 0.8)

	tally := engine.Tally("prop-1", []conversation.Vote{
		vote("fac", conversation.VoteApprove),
		vote("arc", conversation.VoteApprove),
	})
	if tally.TotalWeight != 2 {
		t.Errorf("TotalWeight = %d, want 2", tally.TotalWeight)
	}
	if tally.Outcome != OutcomeApproved {
		t.Errorf("Outcome = %q, want approved", tally.Outcome)
	}
}

func TestTallyIgnoresForeignBallots(t *testing.T) {
	team := equalWeightTeam()
	engine := NewEngine(team, 0.8)

	votes := []conversation.Vote{
		vote("fac", conversation.VoteApprove),
		vote("arc", conversation.VoteApprove),
		vote("str", conversation.VoteApprove),
		vote("rev", conversation.VoteApprove),
		// Not on the roster; must not tip the tally.
		vote("intruder", conversation.VoteReject),
	}
	// A ballot for a different proposal is also ignored.
	other := vote("coo", conversation.VoteReject)
	other.ProposalID = "prop-2"
	votes = append(votes, other)

	tally := engine.Tally("prop-1", votes)
	if tally.RejectWeight != 0 {
		t.Errorf("RejectWeight = %d, want 0", tally.RejectWeight)
	}
	if tally.Outcome != OutcomeApproved {
		t.Errorf("Outcome = %q, want approved", tally.Outcome)
	}
}
