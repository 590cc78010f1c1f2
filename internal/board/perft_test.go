package board

import "testing"

func runPerft(t *testing.T, fen string, tests []struct {
	depth    int
	expected int64
}) {
	t.Helper()
	pos, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}
	a := NewAnalyzer(newMapCache())

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := Perft(a, pos, tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

// TestPerftStartingPosition tests move generation from the starting position.
func TestPerftStartingPosition(t *testing.T) {
	runPerft(t, StartFEN, []struct {
		depth    int
		expected int64
	}{
		{1, 20},
		{2, 400},
		{3, 8902},
	})
}

// TestPerftKiwipete covers castling, pins and en passant. No promotions
// occur before depth 4.
// FEN: r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -
func TestPerftKiwipete(t *testing.T) {
	runPerft(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -", []struct {
		depth    int
		expected int64
	}{
		{1, 48},
		{2, 2039},
		{3, 97862},
	})
}

// TestPerftPosition3 tests en passant edge cases.
// FEN: 8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -
func TestPerftPosition3(t *testing.T) {
	runPerft(t, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -", []struct {
		depth    int
		expected int64
	}{
		{1, 14},
		{2, 191},
		{3, 2812},
		{4, 43238},
	})
}

// TestPerftEnPassantPin tests the en passant horizontal pin edge case.
// The black pawn on e4 may not take d3 en passant: both pawns would leave
// the fourth rank and expose the king on a4 to the rook on h4.
func TestPerftEnPassantPin(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	an := NewAnalyzer(nil).Analyze(pos)
	e4, _ := ParseSquare("e4")
	d3, _ := ParseSquare("d3")
	if an.IsLegal(e4, d3) {
		t.Errorf("En passant e4d3 should be illegal (horizontal pin)")
	}

	// Depth 1: Ka3, Ka5, Kb3, Kb4, Kb5, e3 = 6 moves
	runPerft(t, "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", []struct {
		depth    int
		expected int64
	}{
		{1, 6},
		{2, 94},
	})
}
