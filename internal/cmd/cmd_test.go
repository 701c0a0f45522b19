package cmd

import (
	"testing"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}
	if rootCmd.Use != "swarmgate" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "swarmgate")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"run", "config"}
	cmdMap := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		cmdMap[c.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestConfigCommandHasSubcommands(t *testing.T) {
	sub := make(map[string]bool)
	for _, c := range configCmd.Commands() {
		sub[c.Name()] = true
	}
	for _, name := range []string{"show", "path"} {
		if !sub[name] {
			t.Errorf("config is missing subcommand %q", name)
		}
	}
}
