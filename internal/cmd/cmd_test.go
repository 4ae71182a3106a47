package cmd

import (
	"testing"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "roundtable" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "roundtable")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expected := []string{"start", "resume", "agents", "show"}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestStartRequiresGoal(t *testing.T) {
	if err := startCmd.Args(startCmd, nil); err == nil {
		t.Error("start should require a goal argument")
	}
	if err := startCmd.Args(startCmd, []string{"pick a database"}); err != nil {
		t.Errorf("start with a goal: %v", err)
	}
}

func TestResumeRequiresID(t *testing.T) {
	if err := resumeCmd.Args(resumeCmd, nil); err == nil {
		t.Error("resume should require a conversation id")
	}
	if err := resumeCmd.Args(resumeCmd, []string{"id", "extra"}); err == nil {
		t.Error("resume should reject extra arguments")
	}
}
