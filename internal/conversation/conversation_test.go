package conversation

import (
	"testing"

	"github.com/roundtable-dev/roundtable/internal/agent"
)

func TestNew(t *testing.T) {
	c := New("pick a database")

	if c.ID == "" {
		t.Error("ID should not be empty")
	}
	if c.Goal != "pick a database" {
		t.Errorf("Goal = %q, want %q", c.Goal, "pick a database")
	}
	if c.Phase != PhaseInitializing {
		t.Errorf("Phase = %q, want %q", c.Phase, PhaseInitializing)
	}
	if c.Status != StatusActive {
		t.Errorf("Status = %q, want %q", c.Status, StatusActive)
	}
	if c.Finished() {
		t.Error("new conversation must not be finished")
	}
}

func TestFinished(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusActive, false},
		{StatusAwaitingHuman, false},
		{StatusCompleted, true},
		{StatusAborted, true},
	}
	for _, tt := range tests {
		c := &Conversation{Status: tt.status}
		if got := c.Finished(); got != tt.want {
			t.Errorf("Finished() with status %q = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestClone(t *testing.T) {
	c := New("goal")
	cp := c.Clone()
	cp.Status = StatusAborted
	cp.AbortReason = "test"

	if c.Status != StatusActive {
		t.Error("mutating a clone must not affect the original")
	}
}

func TestCategoryRequiresHumanResponse(t *testing.T) {
	for _, cat := range []Category{
		CategoryDiscussion, CategoryHumanReply, CategoryProposal,
		CategoryVote, CategoryConsensusSummary,
	} {
		if cat.RequiresHumanResponse() {
			t.Errorf("category %q should not require a human response", cat)
		}
	}
	if !CategoryQuestionToHuman.RequiresHumanResponse() {
		t.Error("question_to_human must require a human response")
	}
}

func TestValidCategory(t *testing.T) {
	if !ValidCategory(CategoryProposal) {
		t.Error("proposal should be a valid category")
	}
	if ValidCategory("gossip") {
		t.Error("gossip should not be a valid category")
	}
}

func TestValidVoteValue(t *testing.T) {
	for _, v := range []VoteValue{VoteApprove, VoteReject, VoteAbstain} {
		if !ValidVoteValue(v) {
			t.Errorf("%q should be a valid vote value", v)
		}
	}
	if ValidVoteValue("maybe") {
		t.Error("maybe should not be a valid vote value")
	}
}

func TestNewContext_CopiesHistory(t *testing.T) {
	history := []Message{
		{ID: "m1", Sequence: 1, Content: "first"},
		{ID: "m2", Sequence: 2, Content: "second"},
	}
	actor := agent.Participant{ID: "architect", Role: agent.RoleArchitect}

	ctx := NewContext("goal", PhaseExploring, history, actor)

	history[0].Content = "mutated"
	if ctx.Messages[0].Content != "first" {
		t.Error("context must hold a copy of the history, not the caller's slice")
	}
	if ctx.Actor.ID != "architect" {
		t.Errorf("Actor.ID = %q, want %q", ctx.Actor.ID, "architect")
	}
}
