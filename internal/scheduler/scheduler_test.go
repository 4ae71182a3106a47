package scheduler

import (
	"testing"

	"github.com/roundtable-dev/roundtable/internal/agent"
	"github.com/roundtable-dev/roundtable/internal/conversation"
)

func TestSpeakingOrderExploring(t *testing.T) {
	team := agent.DefaultTeam()
	s := New(team)

	order := s.SpeakingOrder(conversation.PhaseExploring)
	if len(order) != len(team) {
		t.Fatalf("len = %d, want %d", len(order), len(team))
	}
	if order[0].Role != agent.RoleFacilitator {
		t.Errorf("exploring must open with the facilitator, got role %q", order[0].Role)
	}

	// Everyone appears exactly once.
	seen := make(map[string]bool)
	for _, p := range order {
		if seen[p.ID] {
			t.Errorf("participant %q appears twice", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestSpeakingOrderVoting(t *testing.T) {
	team := agent.DefaultTeam()
	s := New(team)

	order := s.SpeakingOrder(conversation.PhaseVoting)
	if order[len(order)-1].Role != agent.RoleFacilitator {
		t.Errorf("voting must close with the facilitator, got role %q", order[len(order)-1].Role)
	}
}

func TestSpeakingOrderDiscussingFollowsRoster(t *testing.T) {
	team := agent.DefaultTeam()
	s := New(team)

	order := s.SpeakingOrder(conversation.PhaseDiscussing)
	for i, p := range order {
		if p.ID != team[i].ID {
			t.Errorf("order[%d] = %q, want roster order %q", i, p.ID, team[i].ID)
		}
	}
}

func TestNextActorWrapsAcrossRounds(t *testing.T) {
	team := agent.DefaultTeam()
	s := New(team)

	order := s.SpeakingOrder(conversation.PhaseDiscussing)
	for turn := 0; turn < len(team)*3; turn++ {
		actor, err := s.NextActor(conversation.PhaseDiscussing, turn)
		if err != nil {
			t.Fatalf("NextActor(%d): %v", turn, err)
		}
		want := order[turn%len(order)]
		if actor.ID != want.ID {
			t.Errorf("turn %d: actor = %q, want %q", turn, actor.ID, want.ID)
		}
	}
}

func TestNextActorDeterministic(t *testing.T) {
	team := agent.DefaultTeam()
	a := New(team)
	b := New(team)

	for turn := 0; turn < 20; turn++ {
		for _, phase := range []conversation.Phase{
			conversation.PhaseExploring,
			conversation.PhaseDiscussing,
			conversation.PhaseVoting,
		} {
			first, err := a.NextActor(phase, turn)
			if err != nil {
				t.Fatalf("NextActor: %v", err)
			}
			second, err := b.NextActor(phase, turn)
			if err != nil {
				t.Fatalf("NextActor: %v", err)
			}
			if first.ID != second.ID {
				t.Errorf("phase %s turn %d: %q != %q", phase, turn, first.ID, second.ID)
			}
		}
	}
}

func TestNextActorErrors(t *testing.T) {
	s := New(agent.Team{})
	if _, err := s.NextActor(conversation.PhaseDiscussing, 0); err == nil {
		t.Error("empty team should error")
	}

	s = New(agent.DefaultTeam())
	if _, err := s.NextActor(conversation.PhaseDiscussing, -1); err == nil {
		t.Error("negative turn count should error")
	}
}

func TestCanPropose(t *testing.T) {
	s := New(agent.DefaultTeam())

	tests := []struct {
		role agent.Role
		want bool
	}{
		{agent.RoleFacilitator, true},
		{agent.RoleArchitect, true},
		{agent.RoleStrategist, true},
		{agent.RoleReviewer, false},
		{agent.RoleCoordinator, false},
	}
	for _, tt := range tests {
		p := agent.Participant{ID: "x", Role: tt.role}
		if got := s.CanPropose(p); got != tt.want {
			t.Errorf("CanPropose(%s) = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestFacilitator(t *testing.T) {
	team := agent.DefaultTeam()
	s := New(team)
	if s.Facilitator().Role != agent.RoleFacilitator {
		t.Errorf("Facilitator() role = %q", s.Facilitator().Role)
	}
	if s.RoundSize() != len(team) {
		t.Errorf("RoundSize() = %d, want %d", s.RoundSize(), len(team))
	}
}
