package main

import (
	"context"
	"testing"
)

func TestPerftCommand(t *testing.T) {
	args := []string{"chessmind", "--log-level", "error", "perft", "--depth", "2"}
	if err := newApp().Run(context.Background(), args); err != nil {
		t.Fatal(err)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	args := []string{"chessmind", "--log-level", "error", "--seed", "3", "analyze",
		"--fen", "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1", "--depth", "1"}
	if err := newApp().Run(context.Background(), args); err != nil {
		t.Fatal(err)
	}
}

func TestSavesListUsesDataDir(t *testing.T) {
	args := []string{"chessmind", "--data-dir", t.TempDir(), "saves", "list"}
	if err := newApp().Run(context.Background(), args); err != nil {
		t.Fatal(err)
	}
}

func TestRejectsBadConfig(t *testing.T) {
	args := []string{"chessmind", "--workers", "0", "perft", "--depth", "1"}
	if err := newApp().Run(context.Background(), args); err == nil {
		t.Error("expected error for zero workers")
	}
}
