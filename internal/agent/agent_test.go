package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTeam(t *testing.T) {
	team := DefaultTeam()

	if err := team.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(team) != 5 {
		t.Errorf("len(team) = %d, want 5", len(team))
	}
	if team.Facilitator().ID != "facilitator" {
		t.Errorf("Facilitator().ID = %q, want %q", team.Facilitator().ID, "facilitator")
	}
	if team.TotalWeight() != 5 {
		t.Errorf("TotalWeight() = %d, want 5", team.TotalWeight())
	}
}

func TestTeamValidate(t *testing.T) {
	base := func() Team {
		return Team{
			{ID: "f", Name: "F", Role: RoleFacilitator},
			{ID: "a", Name: "A", Role: RoleArchitect},
		}
	}

	tests := []struct {
		name    string
		mutate  func(Team) Team
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(tm Team) Team { return tm },
		},
		{
			name:    "empty",
			mutate:  func(Team) Team { return Team{} },
			wantErr: "must not be empty",
		},
		{
			name: "duplicate id",
			mutate: func(tm Team) Team {
				return append(tm, Participant{ID: "a", Name: "A2", Role: RoleReviewer})
			},
			wantErr: "duplicate participant ID",
		},
		{
			name: "no facilitator",
			mutate: func(tm Team) Team {
				tm[0].Role = RoleReviewer
				return tm
			},
			wantErr: "exactly one facilitator",
		},
		{
			name: "two facilitators",
			mutate: func(tm Team) Team {
				tm[1].Role = RoleFacilitator
				return tm
			},
			wantErr: "exactly one facilitator",
		},
		{
			name: "unknown role",
			mutate: func(tm Team) Team {
				tm[1].Role = "intern"
				return tm
			},
			wantErr: "unknown role",
		},
		{
			name: "negative weight",
			mutate: func(tm Team) Team {
				tm[1].Weight = -2
				return tm
			},
			wantErr: "weight must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(base()).Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveWeight(t *testing.T) {
	if got := (Participant{}).EffectiveWeight(); got != DefaultWeight {
		t.Errorf("EffectiveWeight() = %d, want default %d", got, DefaultWeight)
	}
	if got := (Participant{Weight: 3}).EffectiveWeight(); got != 3 {
		t.Errorf("EffectiveWeight() = %d, want 3", got)
	}
}

func TestByID(t *testing.T) {
	team := DefaultTeam()

	p, ok := team.ByID("reviewer")
	if !ok {
		t.Fatal("ByID(reviewer) not found")
	}
	if p.Role != RoleReviewer {
		t.Errorf("Role = %q, want %q", p.Role, RoleReviewer)
	}

	if _, ok := team.ByID("nobody"); ok {
		t.Error("ByID(nobody) should not be found")
	}
}

func TestLoadTeam(t *testing.T) {
	roster := `participants:
  - id: facilitator
    name: Morgan
    role: facilitator
    system_prompt: You facilitate.
  - id: architect
    name: Devin
    role: architect
    system_prompt: You design.
    weight: 2
`
	path := filepath.Join(t.TempDir(), "team.yaml")
	if err := os.WriteFile(path, []byte(roster), 0o644); err != nil {
		t.Fatal(err)
	}

	team, err := LoadTeam(path)
	if err != nil {
		t.Fatalf("LoadTeam() error = %v", err)
	}
	if len(team) != 2 {
		t.Fatalf("len(team) = %d, want 2", len(team))
	}
	if team[1].Weight != 2 {
		t.Errorf("architect weight = %d, want 2", team[1].Weight)
	}
	if team.TotalWeight() != 3 {
		t.Errorf("TotalWeight() = %d, want 3", team.TotalWeight())
	}
}

func TestLoadTeam_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.yaml")
	if err := os.WriteFile(path, []byte("participants: [{id: x, name: X, role: architect}]"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadTeam(path); err == nil {
		t.Error("LoadTeam() with no facilitator should fail")
	}

	if _, err := LoadTeam(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadTeam() with missing file should fail")
	}
}
