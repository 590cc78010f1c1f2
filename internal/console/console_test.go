package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hailam/chessmind/internal/board"
	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/storage"
)

func run(t *testing.T, store *storage.Storage, script string) (string, *game.Game) {
	t.Helper()
	eng := engine.NewEngine(engine.Config{Seed: 5, Workers: 2})
	g := game.New(eng, nil)

	var out bytes.Buffer
	plain := false
	c := New(g, eng, Options{
		In:    strings.NewReader(script),
		Out:   &out,
		Color: &plain,
		Store: store,
	})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String(), g
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{"moves", "moves\n", []string{"20 moves:", "e4", "Nf3"}},
		{"san move", "Nf3\nstatus\n", []string{"side to move: Black"}},
		{"board", "d\n", []string{" r  n  b  q  k  b  n  r ", "FEN: rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"}},
		{"bare move", "e2e4\nstatus\n", []string{"side to move: Black", "undo: 1 redo: 0"}},
		{"perft", "perft 2\n", []string{"Nodes: 400"}},
		{"divide", "divide 1\n", []string{"a2a3: 1", "Nodes: 20"}},
		{"illegal", "e2e5\n", []string{"error: illegal move"}},
		{"nothing to undo", "undo\n", []string{"error: nothing to undo"}},
		{"unknown", "castle\n", []string{`unknown command "castle"`}},
		{"no store", "save slot\n", []string{"error: no database available"}},
		{"fool's mate", "f2f3\ne7e5\ng2g4\nd8h4\n", []string{"checkmate, Black wins"}},
		{"fen", "fen 7k/5Q2/6K1/8/8/8/8/8 b - - 0 1\nstatus\n", []string{"status: Draw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := run(t, nil, tt.script)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestEngineReplies(t *testing.T) {
	out, g := run(t, nil, "level 1 1\nplayers human engine\ne2e4\n")
	if !strings.Contains(out, "bestmove ") {
		t.Fatalf("engine did not reply:\n%s", out)
	}
	if pos := g.Position(); pos.SideToMove != board.White {
		t.Errorf("side to move = %s after engine reply", pos.SideToMove)
	}
	t.Logf("output:\n%s", out)
}

func TestGoPlaysSideToMove(t *testing.T) {
	out, g := run(t, nil, "go 1\n")
	if !strings.Contains(out, "bestmove ") {
		t.Fatalf("no bestmove:\n%s", out)
	}
	if undo, _ := g.HistoryLen(); undo != 1 {
		t.Errorf("history = %d, want 1", undo)
	}
}

func TestSaveAndLoad(t *testing.T) {
	store, err := storage.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	out, _ := run(t, store, "d2d4\nsave opening\nsaves\n")
	if !strings.Contains(out, "saved opening") || !strings.Contains(out, "opening ") {
		t.Fatalf("save output:\n%s", out)
	}

	out, g := run(t, store, "load opening\nstatus\n")
	if !strings.Contains(out, "loaded opening") {
		t.Fatalf("load output:\n%s", out)
	}
	if pos := g.Position(); pos.SideToMove != board.Black || pos.At(board.Sq(4, 3)).Type != board.Pawn {
		t.Errorf("loaded position wrong:\n%s", pos.String())
	}
}

func TestPlayersArePersisted(t *testing.T) {
	store, err := storage.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	run(t, store, "level 3 1\nplayers engine human\nstop\n")
	prefs, err := store.LoadPreferences()
	if err != nil {
		t.Fatal(err)
	}
	if prefs.PlayerIsWhite || !prefs.PlayerIsBlack || prefs.WhiteDifficulty != 3 || prefs.BlackDifficulty != 1 {
		t.Errorf("preferences = %+v", prefs)
	}
}

func TestRenderColor(t *testing.T) {
	s := renderBoard(board.NewPosition(), true)
	if !strings.Contains(s, "♔") || !strings.Contains(s, reset) {
		t.Errorf("colored board missing glyphs or escapes:\n%s", s)
	}
}
