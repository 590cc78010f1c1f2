package board

import (
	"strings"
	"testing"
)

func TestParseSquare(t *testing.T) {
	tests := []struct {
		in   string
		want Square
		ok   bool
	}{
		{"a8", Sq(0, 0), true},
		{"h1", Sq(7, 7), true},
		{"e4", Sq(4, 4), true},
		{"i1", NoSquare, false},
		{"a9", NoSquare, false},
		{"e", NoSquare, false},
	}

	for _, tc := range tests {
		got, err := ParseSquare(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseSquare(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSquare(%q) = %v, want %v", tc.in, got, tc.want)
		}
		if tc.ok && got.String() != tc.in {
			t.Errorf("String() = %q, want %q", got.String(), tc.in)
		}
	}
}

func TestStartingKey(t *testing.T) {
	pos := NewPosition()
	key := pos.Key()

	if !strings.HasPrefix(key, "00bR01bN") {
		t.Errorf("key should start with the a8 rook: %q", key)
	}
	if !strings.HasSuffix(key, "TFFFFFF") {
		t.Errorf("key should end with the flags: %q", key)
	}
	if len(key) != 32*4+7 {
		t.Errorf("key length = %d", len(key))
	}
}

func TestKeyIgnoresMarkerAndCounter(t *testing.T) {
	a := mustFEN(t, "4k3/8/8/3Pp3/8/8/8/4K3 w - e6 0 1")
	b := mustFEN(t, "4k3/8/8/3Pp3/8/8/8/4K3 w - - 37 1")
	if a.Key() != b.Key() {
		t.Errorf("keys differ:\n%s\n%s", a.Key(), b.Key())
	}

	c := b.Copy()
	c.SideToMove = Black
	if c.Key() == b.Key() {
		t.Error("side to move must be part of the key")
	}
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"4k3/8/8/3Pp3/8/8/8/4K3 w - e6 0 1",
		"r3k2r/8/8/8/8/8/8/R3K2R b Kq - 12 1",
	}

	for _, fen := range fens {
		pos := mustFEN(t, fen)
		if got := pos.ToFEN(); got != fen {
			t.Errorf("ToFEN() = %q, want %q", got, fen)
		}
	}
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"8/8/8/8/8/8/8/8 w - - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNX w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4 0 1",
	}
	for _, fen := range bad {
		if _, err := ParseFEN(fen); err == nil {
			t.Errorf("ParseFEN(%q) should fail", fen)
		}
	}
}

func TestFlagStringRoundTrip(t *testing.T) {
	pos := NewPosition()
	pos.SideToMove = Black
	pos.Moved = WhiteKingMoved | BlackSmallRookMoved

	s := pos.FlagString()
	if s != "FTFFFTF" {
		t.Errorf("FlagString() = %q", s)
	}

	var back Position
	if err := back.ParseFlagString(s); err != nil {
		t.Fatal(err)
	}
	if back.SideToMove != Black || back.Moved != pos.Moved {
		t.Errorf("round trip lost flags: %s", back.FlagString())
	}
	if err := back.ParseFlagString("TFX"); err == nil {
		t.Error("short flag string should fail")
	}
}
