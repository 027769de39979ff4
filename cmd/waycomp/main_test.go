package main

import "testing"

func TestNewRootCmdHasNoFlags(t *testing.T) {
	cmd := newRootCmd()
	if cmd.Use != "waycomp" {
		t.Errorf("Use = %q, want %q", cmd.Use, "waycomp")
	}
	if cmd.Flags().HasFlags() {
		t.Error("root command should take no flags (spec.md §6)")
	}
	if len(cmd.Commands()) != 0 {
		t.Error("root command should have no subcommands (spec.md §6)")
	}
}
