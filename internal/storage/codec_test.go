package storage

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/hailam/chessmind/internal/board"
)

// sampleSnapshot plays a few half-turns including a capture.
func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	pos := board.NewPosition()
	snap := &Snapshot{}
	for _, s := range []string{"e2e4", "d7d5", "e4d5", "d8d5", "b1c3"} {
		m, err := board.ParseMove(s)
		if err != nil {
			t.Fatal(err)
		}
		if target := pos.At(m.To); target.Type.IsPiece() {
			if target.Color == board.Black {
				snap.BlackLost = append(snap.BlackLost, target)
			} else {
				snap.WhiteLost = append(snap.WhiteLost, target)
			}
		}
		snap.History = append(snap.History, *pos)
		pos.Apply(m.From, m.To, true)
	}
	snap.Position = *pos
	return snap
}

func TestEncodeLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Snapshot{Position: *board.NewPosition()}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(buf.String(), "\n")
	// 9 block lines, 2 captured lines, trailing newline.
	if len(lines) != 12 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "RbNbBbQbKbBbNbRb" {
		t.Errorf("row 0 = %q", lines[0])
	}
	if lines[2] != "[ [ [ [ [ [ [ [ " {
		t.Errorf("row 2 = %q", lines[2])
	}
	if lines[7] != "RwNwBwQwKwBwNwRw" {
		t.Errorf("row 7 = %q", lines[7])
	}
	if lines[8] != "TFFFFFF0" {
		t.Errorf("flags = %q", lines[8])
	}
	if lines[9] != "" || lines[10] != "" {
		t.Errorf("captured lines should be empty: %q %q", lines[9], lines[10])
	}
}

func TestRoundTrip(t *testing.T) {
	snap := sampleSnapshot(t)
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		t.Fatal(err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Position != snap.Position {
		t.Errorf("position mismatch:\n%s\nwant%s", &got.Position, &snap.Position)
	}
	if len(got.History) != len(snap.History) {
		t.Fatalf("history length %d, want %d", len(got.History), len(snap.History))
	}
	// Markers are written as empty cells, so compare keys.
	for i := range snap.History {
		if got.History[i].Key() != snap.History[i].Key() {
			t.Errorf("history[%d] mismatch", i)
		}
	}
	if len(got.BlackLost) != 1 || got.BlackLost[0] != board.NewPiece(board.Pawn, board.Black) {
		t.Errorf("BlackLost = %v", got.BlackLost)
	}
	if len(got.WhiteLost) != 1 || got.WhiteLost[0] != board.NewPiece(board.Pawn, board.White) {
		t.Errorf("WhiteLost = %v", got.WhiteLost)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleSnapshot(t)); err != nil {
		t.Fatal(err)
	}
	valid := buf.String()
	lines := strings.Split(strings.TrimSuffix(valid, "\n"), "\n")

	mutate := func(i int, s string) string {
		out := append([]string(nil), lines...)
		out[i] = s
		return strings.Join(out, "\n") + "\n"
	}

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"truncated", strings.Join(lines[:5], "\n")},
		{"missing captured line", strings.Join(lines[:len(lines)-1], "\n") + "\n"},
		{"short row", mutate(0, "RbNb")},
		{"bad piece", mutate(0, "XbNbBb[ KbBbNbRb")},
		{"bad color", mutate(0, "RxNbBb[ KbBbNbRb")},
		{"bad flag", mutate(8, "TFXFFFF0")},
		{"bad counter", mutate(8, "TFFFFFFx")},
		{"missing counter", mutate(8, "TFFFFFF")},
		{"no black king", mutate(0, "Rb[ Bb[ [ BbNbRb")},
		{"king in captured list", mutate(len(lines)-2, "Kb")},
		{"wrong captured color", mutate(len(lines)-2, "Pw")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error should wrap ErrMalformed: %v", err)
			}
		})
	}
}
