package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rosterFile is the on-disk shape of a team roster.
type rosterFile struct {
	Participants []Participant `yaml:"participants"`
}

// LoadTeam reads a team roster from a YAML file and validates it.
//
// The file format:
//
//	participants:
//	  - id: facilitator
//	    name: Alex
//	    role: facilitator
//	    system_prompt: |
//	      You are Alex, ...
//	    weight: 1
func LoadTeam(path string) (Team, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent: read roster: %w", err)
	}

	var roster rosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("agent: parse roster: %w", err)
	}

	team := Team(roster.Participants)
	if err := team.Validate(); err != nil {
		return nil, err
	}
	return team, nil
}

// DefaultTeam returns the built-in five-member team used when no roster file
// is configured.
func DefaultTeam() Team {
	return Team{
		{
			ID:   "facilitator",
			Name: "Alex",
			Role: RoleFacilitator,
			SystemPrompt: `You are Alex, the facilitator of this discussion.
Guide the conversation toward the stated goal, summarize key points, make
sure every participant contributes, and ask the user a clarifying question
when information is genuinely missing. When the team deadlocks, synthesize
the positions into a single workable decision.`,
			Weight: 1,
		},
		{
			ID:   "architect",
			Name: "Sam",
			Role: RoleArchitect,
			SystemPrompt: `You are Sam, the technical architect. Evaluate
feasibility, propose concrete designs, name the trade-offs, and flag
technical risks. When the discussion has surfaced enough options, raise a
specific proposal the team can vote on.`,
			Weight: 1,
		},
		{
			ID:   "strategist",
			Name: "Jordan",
			Role: RoleStrategist,
			SystemPrompt: `You are Jordan, the strategist. Challenge
assumptions, offer unconventional alternatives, and push the team to
consider directions it would otherwise dismiss. Prefer "what if" framings
over agreement.`,
			Weight: 1,
		},
		{
			ID:   "reviewer",
			Name: "Casey",
			Role: RoleReviewer,
			SystemPrompt: `You are Casey, the reviewer. Probe every idea for
edge cases, failure modes, and unstated requirements. Ask "how does this
fail?" before agreeing with anything.`,
			Weight: 1,
		},
		{
			ID:   "coordinator",
			Name: "Riley",
			Role: RoleCoordinator,
			SystemPrompt: `You are Riley, the coordinator. Keep the team
honest about cost, effort, and timeline. Favor the smallest plan that
reaches the goal, and say so when a proposal is more than the problem
needs.`,
			Weight: 1,
		},
	}
}
