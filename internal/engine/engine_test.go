package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hailam/chessmind/internal/board"
)

func TestRequestMove(t *testing.T) {
	eng := NewEngine(Config{Seed: 42, Workers: 2})
	pos := board.NewPosition()

	req := eng.RequestMove(context.Background(), pos, Easy)
	move, ok := req.Wait()
	if !ok {
		t.Fatal("RequestMove returned no move for starting position")
	}
	if !eng.Analyzer().Analyze(pos).IsLegal(move.From, move.To) {
		t.Errorf("illegal move %s", move)
	}
	if req.State() != Completed {
		t.Errorf("state = %v", req.State())
	}
	t.Logf("Best move: %s", move)
}

func TestRequestMoveHonorsMinThinkTime(t *testing.T) {
	eng := NewEngine(Config{Seed: 1, MinThinkTime: 100 * time.Millisecond})

	start := time.Now()
	if _, ok := eng.RequestMove(context.Background(), board.NewPosition(), Easy).Wait(); !ok {
		t.Fatal("no move")
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("request finished after %v, before the minimum think time", elapsed)
	}
}

func TestCancelDuringThinkTime(t *testing.T) {
	eng := NewEngine(Config{Seed: 1, MinThinkTime: time.Hour})

	req := eng.RequestMove(context.Background(), board.NewPosition(), Easy)
	time.Sleep(20 * time.Millisecond)
	eng.CancelInFlight()

	select {
	case <-req.Done():
	default:
		t.Fatal("CancelInFlight returned before the request finished")
	}
	if _, ok := req.Wait(); ok {
		t.Error("cancelled request must not deliver a move")
	}
}

func TestContextCancelStopsRequest(t *testing.T) {
	eng := NewEngine(Config{Seed: 1, MinThinkTime: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	req := eng.RequestMove(ctx, board.NewPosition(), Easy)
	cancel()

	select {
	case <-req.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("request did not stop after context cancel")
	}
	if _, ok := req.Wait(); ok {
		t.Error("cancelled request must not deliver a move")
	}
}

func TestSeededEnginesAgree(t *testing.T) {
	pos := board.NewPosition()
	a, okA := NewEngine(Config{Seed: 99}).Search(context.Background(), pos, Easy)
	b, okB := NewEngine(Config{Seed: 99}).Search(context.Background(), pos, Easy)
	if !okA || !okB {
		t.Fatal("no move")
	}
	if a != b {
		t.Errorf("same seed, different moves: %v vs %v", a, b)
	}
}

func TestCacheIsCompactedAfterSearch(t *testing.T) {
	eng := NewEngine(Config{Seed: 1, CacheCapacity: 10})
	if _, ok := eng.Search(context.Background(), board.NewPosition(), Medium); !ok {
		t.Fatal("no move")
	}
	st := eng.CacheStats()
	if st.Len > 10 {
		t.Errorf("cache holds %d entries after search, capacity 10", st.Len)
	}
	if st.Evicted == 0 {
		t.Error("expected evictions")
	}
	t.Logf("cache stats: %+v", st)
}

func TestTimeManager(t *testing.T) {
	tm := NewTimeManager(30 * time.Millisecond)
	tm.Init()
	if !tm.WaitMinimum(nil) {
		t.Fatal("WaitMinimum should succeed without stop")
	}
	if tm.Elapsed() < 30*time.Millisecond {
		t.Errorf("waited only %v", tm.Elapsed())
	}
	if tm.Remaining() != 0 {
		t.Errorf("Remaining = %v", tm.Remaining())
	}

	stop := make(chan struct{})
	close(stop)
	tm = NewTimeManager(time.Hour)
	tm.Init()
	if tm.WaitMinimum(stop) {
		t.Error("closed stop channel should abort the wait")
	}
}

func TestPerft(t *testing.T) {
	eng := NewEngine(Config{})
	if got := eng.Perft(board.NewPosition(), 2); got != 400 {
		t.Errorf("Perft(2) = %d, want 400", got)
	}
}
