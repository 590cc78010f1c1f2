package engine

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/hailam/chessmind/internal/board"
	"github.com/hailam/chessmind/internal/cache"
)

func newTestSearcher() *Searcher {
	c := cache.New[*board.Threats](0)
	return NewSearcher(board.NewAnalyzer(c), 4)
}

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}
	return pos
}

func mustMove(t *testing.T, s string) board.Move {
	t.Helper()
	m, err := board.ParseMove(s)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{"quiet", board.StartFEN, "g1f3", 0},
		{"pawn takes knight", "4k3/8/8/3n4/4P3/8/8/4K3 w - - 0 1", "e4d5", 3},
		{"queen takes rook", "4k3/8/8/3r4/8/8/8/3QK3 w - - 0 1", "d1d5", 5},
		// Counts for any capturer, en passant included, where the older
		// evaluation only scored pawn captures and skipped en passant.
		{"en passant", "4k3/8/8/3Pp3/8/8/8/4K3 w - e6 0 1", "d5e6", 1},
		{"rook takes rook", "4k3/8/8/8/3r4/8/8/3RK3 w - - 0 1", "d1d4", 5},
		{"knight onto marker", "4k3/8/8/4p3/3N4/8/8/4K3 w - e6 0 1", "d4e6", 0},
		{"promotion", "k7/4P3/8/8/8/8/8/4K3 w - - 0 1", "e7e8", PromotionBonus},
		{"capture promotion", "k2r4/4P3/8/8/8/8/8/4K3 w - - 0 1", "e7d8", 5 + PromotionBonus},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := mustMove(t, tc.move)
			if got := evaluate(mustFEN(t, tc.fen), m.From, m.To); got != tc.want {
				t.Errorf("evaluate(%s) = %d, want %d", tc.move, got, tc.want)
			}
		})
	}
}

func TestFindsMateInOne(t *testing.T) {
	// Back rank mate: Ra1-a8.
	const fen = "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1"
	s := newTestSearcher()

	for _, depth := range []int{1, 2} {
		sc := NewSearchContext(7)
		ht, ok := s.BestMove(sc, mustFEN(t, fen), depth)
		if !ok {
			t.Fatalf("depth %d: no move", depth)
		}
		if ht.Move().String() != "a1a8" {
			t.Errorf("depth %d: got %s (value %d), want a1a8", depth, ht.Move(), ht.Value)
		}
		if ht.Value != MateScore {
			t.Errorf("depth %d: value %d, want %d", depth, ht.Value, MateScore)
		}
		if sc.State() != Completed {
			t.Errorf("state = %v", sc.State())
		}
		t.Logf("depth %d: %s = %d", depth, ht.Move(), ht.Value)
	}
}

func TestMinimaxReturnsMateScore(t *testing.T) {
	s := newTestSearcher()
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	an := s.analyzer.Analyze(pos)

	if got := s.minimax(NewSearchContext(1), an, 1); got != MateScore {
		t.Errorf("minimax = %d, want %d", got, MateScore)
	}
}

func TestTakesHangingQueen(t *testing.T) {
	s := newTestSearcher()
	pos := mustFEN(t, "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1")

	ht, ok := s.BestMove(NewSearchContext(3), pos, 2)
	if !ok {
		t.Fatal("no move")
	}
	if ht.Move().String() != "d1d5" {
		t.Errorf("got %s (value %d), want d1d5", ht.Move(), ht.Value)
	}
}

func TestSeededSearchIsDeterministic(t *testing.T) {
	s := newTestSearcher()
	pos := board.NewPosition()

	for seed := uint64(1); seed <= 5; seed++ {
		a, okA := s.BestMove(NewSearchContext(seed), pos, 1)
		b, okB := s.BestMove(NewSearchContext(seed), pos, 1)
		if !okA || !okB {
			t.Fatal("no move from starting position")
		}
		if a != b {
			t.Errorf("seed %d: %v != %v", seed, a, b)
		}
	}
}

func TestNoLegalMoves(t *testing.T) {
	s := newTestSearcher()
	sc := NewSearchContext(1)

	_, ok := s.BestMove(sc, mustFEN(t, "7k/6Q1/6K1/8/8/8/8/8 b - - 0 1"), 2)
	if ok {
		t.Error("mated side should have no move")
	}
	if sc.State() != Completed {
		t.Errorf("state = %v", sc.State())
	}
}

func TestStoppedSearchReturnsNothing(t *testing.T) {
	s := newTestSearcher()
	sc := NewSearchContext(1)
	sc.Stop()
	sc.Stop() // idempotent

	_, ok := s.BestMove(sc, board.NewPosition(), 3)
	if ok {
		t.Error("stopped search should not return a move")
	}
	if sc.State() != Interrupted {
		t.Errorf("state = %v, want interrupted", sc.State())
	}
}

func TestProgressCountsCandidates(t *testing.T) {
	s := newTestSearcher()
	sc := NewSearchContext(1)

	if _, ok := s.BestMove(sc, board.NewPosition(), 1); !ok {
		t.Fatal("no move")
	}
	done, total := sc.Progress()
	if total != 20 || done != 20 {
		t.Errorf("progress = %d/%d, want 20/20", done, total)
	}
}

// stalemateCapture has white able to take the queen with Nxa1, which
// leaves black without a move and not in check.
const stalemateCapture = "7k/5K1p/7P/8/8/8/2N5/q7 w - - 0 1"

func TestStalemateBranchScoresZero(t *testing.T) {
	s := newTestSearcher()
	pos := mustFEN(t, stalemateCapture)
	take := mustMove(t, "c2a1")
	if got := evaluate(pos, take.From, take.To); got != 9 {
		t.Fatalf("evaluate(c2a1) = %d, want 9", got)
	}

	for _, depth := range []int{1, 2} {
		if got := s.scoreCandidate(NewSearchContext(1), pos, take.From, take.To, depth); got != 0 {
			t.Errorf("depth %d: root score of stalemating capture = %d, want 0", depth, got)
		}
	}

	// One ply down the same capture contributes 0 instead of 9, and no
	// quiet white move gains anything against a free black queen.
	an := s.analyzer.Analyze(pos)
	if got := s.minimax(NewSearchContext(1), an, 1); got != 0 {
		t.Errorf("minimax = %d, want 0", got)
	}
}

func TestRootMateScoresFlat(t *testing.T) {
	s := newTestSearcher()
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	m := mustMove(t, "a1a8")

	for _, depth := range []int{1, 3} {
		if got := s.scoreCandidate(NewSearchContext(1), pos, m.From, m.To, depth); got != MateScore {
			t.Errorf("depth %d: score = %d, want %d", depth, got, MateScore)
		}
	}
}

func TestUnseededPicksFromBestSet(t *testing.T) {
	s := newTestSearcher()
	tests := []struct {
		name  string
		fen   string
		depth int
	}{
		{"start", board.StartFEN, 1},
		{"hanging queen", "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1", 2},
		{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustFEN(t, tc.fen)
			best := map[board.Move]bool{}
			top := noCandidates
			for _, ht := range candidates(s.analyzer.Analyze(pos)) {
				v := s.scoreCandidate(NewSearchContext(1), pos, ht.From, ht.To, tc.depth)
				switch {
				case v > top:
					top = v
					best = map[board.Move]bool{ht.Move(): true}
				case v == top:
					best[ht.Move()] = true
				}
			}

			for i := 0; i < 12; i++ {
				ht, ok := s.BestMove(NewSearchContext(rand.Uint64()), pos, tc.depth)
				if !ok {
					t.Fatal("no move")
				}
				if !best[ht.Move()] || ht.Value != top {
					t.Errorf("picked %s (value %d), best value %d from %d moves", ht.Move(), ht.Value, top, len(best))
				}
			}
			t.Logf("%d moves share the best value %d", len(best), top)
		})
	}
}

func TestStopDuringSearch(t *testing.T) {
	s := newTestSearcher()
	pos := mustFEN(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	sc := NewSearchContext(1)

	type result struct {
		ok bool
		at time.Time
	}
	out := make(chan result, 1)
	go func() {
		_, ok := s.BestMove(sc, pos, 4)
		out <- result{ok, time.Now()}
	}()

	time.Sleep(50 * time.Millisecond)
	stoppedAt := time.Now()
	sc.Stop()

	select {
	case r := <-out:
		if r.ok {
			t.Error("stopped search returned a move")
		}
		if sc.State() != Interrupted {
			t.Errorf("state = %v, want interrupted", sc.State())
		}
		t.Logf("search unwound %v after Stop", r.at.Sub(stoppedAt))
	case <-time.After(5 * time.Second):
		t.Fatal("search did not stop")
	}
}
