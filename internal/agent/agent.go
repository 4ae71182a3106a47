// Package agent defines the static participant descriptors for a Roundtable
// conversation. Participants are configuration data, not runtime objects:
// each one is a role label, a behavioral system prompt, and a voting weight,
// fixed for the lifetime of a conversation.
package agent

import (
	"fmt"
	"strings"
)

// Role identifies a participant's function in the conversation.
// Behavior differences between roles are data (prompt, weight, scheduling
// eligibility), never subclassing.
type Role string

const (
	// RoleFacilitator guides the conversation, opens exploration, closes
	// voting, and casts the deciding synthesis when voting deadlocks.
	RoleFacilitator Role = "facilitator"

	// RoleArchitect evaluates technical feasibility and raises proposals.
	RoleArchitect Role = "architect"

	// RoleStrategist generates alternative and unconventional directions.
	RoleStrategist Role = "strategist"

	// RoleReviewer probes proposals for risks, edge cases, and gaps.
	RoleReviewer Role = "reviewer"

	// RoleCoordinator weighs cost, effort, and practicality.
	RoleCoordinator Role = "coordinator"
)

// validRoles is the closed set of known roles.
var validRoles = map[Role]bool{
	RoleFacilitator: true,
	RoleArchitect:   true,
	RoleStrategist:  true,
	RoleReviewer:    true,
	RoleCoordinator: true,
}

// ValidRole returns true if the given role is a known role.
func ValidRole(r Role) bool {
	return validRoles[r]
}

// DefaultWeight is the voting weight assigned when a descriptor omits one.
const DefaultWeight = 1

// Participant is an immutable descriptor for one conversational agent.
type Participant struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Role         Role   `yaml:"role"`
	SystemPrompt string `yaml:"system_prompt"`
	Weight       int    `yaml:"weight"`
}

// Validate checks that the descriptor is complete enough to participate.
func (p Participant) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("agent: participant ID is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("agent: participant %s: name is required", p.ID)
	}
	if !ValidRole(p.Role) {
		return fmt.Errorf("agent: participant %s: unknown role %q", p.ID, p.Role)
	}
	if p.Weight < 0 {
		return fmt.Errorf("agent: participant %s: weight must not be negative", p.ID)
	}
	return nil
}

// Team is the ordered, fixed set of participants for one conversation.
// Order is significant: the scheduler's round-robin follows it.
type Team []Participant

// Validate checks the team as a whole: every descriptor valid, IDs unique,
// and exactly one facilitator present.
func (t Team) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("agent: team must not be empty")
	}

	seen := make(map[string]bool, len(t))
	facilitators := 0
	for _, p := range t {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("agent: duplicate participant ID %q", p.ID)
		}
		seen[p.ID] = true
		if p.Role == RoleFacilitator {
			facilitators++
		}
	}

	if facilitators != 1 {
		return fmt.Errorf("agent: team must have exactly one facilitator, found %d", facilitators)
	}
	return nil
}

// ByID returns the participant with the given ID, or false if absent.
func (t Team) ByID(id string) (Participant, bool) {
	for _, p := range t {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// Facilitator returns the team's facilitator. Validate guarantees there is
// exactly one.
func (t Team) Facilitator() Participant {
	for _, p := range t {
		if p.Role == RoleFacilitator {
			return p
		}
	}
	return Participant{}
}

// TotalWeight returns the sum of effective voting weights across the team.
func (t Team) TotalWeight() int {
	total := 0
	for _, p := range t {
		total += p.EffectiveWeight()
	}
	return total
}

// EffectiveWeight returns the participant's voting weight, applying the
// default when unset.
func (p Participant) EffectiveWeight() int {
	if p.Weight == 0 {
		return DefaultWeight
	}
	return p.Weight
}
