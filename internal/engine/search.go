package engine

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessmind/internal/board"
)

// Search constants
const (
	// MateScore is the value of a branch that ends in checkmate.
	MateScore = 500
	// PromotionBonus is added when a pawn reaches the last rank.
	PromotionBonus = 4

	interruptedScore = math.MaxInt32
	noCandidates     = math.MinInt32
)

// HalfTurn is a scored candidate move.
type HalfTurn struct {
	From  board.Square
	To    board.Square
	Value int
}

// Move returns the candidate as a board move.
func (h HalfTurn) Move() board.Move {
	return board.NewMove(h.From, h.To)
}

// SearchState is the lifecycle of a SearchContext.
type SearchState int32

const (
	Idle SearchState = iota
	Running
	Completed
	Interrupted
)

// String returns the state name.
func (s SearchState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// SearchContext carries the per-search state shared by the workers of one
// search: cancellation, progress counters and the random source used to
// break ties.
type SearchContext struct {
	stopFlag atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}

	state atomic.Int32
	done  atomic.Int64
	total atomic.Int64

	rng *rand.Rand
}

// NewSearchContext creates an idle context whose tie-breaking is fully
// determined by seed.
func NewSearchContext(seed uint64) *SearchContext {
	return &SearchContext{
		stopped: make(chan struct{}),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Stop signals the search to stop. It is safe to call more than once and
// from any goroutine.
func (sc *SearchContext) Stop() {
	sc.stopOnce.Do(func() {
		sc.stopFlag.Store(true)
		close(sc.stopped)
	})
}

// IsStopped returns true if the search has been stopped.
func (sc *SearchContext) IsStopped() bool {
	return sc.stopFlag.Load()
}

// Stopped is closed when Stop is called.
func (sc *SearchContext) Stopped() <-chan struct{} {
	return sc.stopped
}

// Progress returns the number of evaluated root candidates and the total.
func (sc *SearchContext) Progress() (done, total int64) {
	return sc.done.Load(), sc.total.Load()
}

// State returns the current lifecycle state.
func (sc *SearchContext) State() SearchState {
	return SearchState(sc.state.Load())
}

// Searcher runs the parallel fixed-depth negamax.
type Searcher struct {
	analyzer *board.Analyzer
	workers  int
}

// NewSearcher creates a searcher using at most workers goroutines for the
// root candidates.
func NewSearcher(analyzer *board.Analyzer, workers int) *Searcher {
	if workers < 1 {
		workers = 1
	}
	return &Searcher{analyzer: analyzer, workers: workers}
}

// BestMove searches pos to the given depth (at least 1) and returns the
// best candidate, chosen uniformly among equal values. It returns false
// when the side to move has no legal move or the search was stopped.
func (s *Searcher) BestMove(sc *SearchContext, pos *board.Position, depth int) (HalfTurn, bool) {
	if depth < 1 {
		depth = 1
	}
	sc.state.Store(int32(Running))

	root := s.analyzer.Analyze(pos)
	turns := candidates(root)
	if len(turns) == 0 {
		sc.state.Store(int32(Completed))
		return HalfTurn{}, false
	}
	sc.total.Store(int64(len(turns)))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range turns {
		g.Go(func() error {
			turns[i].Value = s.scoreCandidate(sc, pos, turns[i].From, turns[i].To, depth)
			sc.done.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if sc.IsStopped() {
		sc.state.Store(int32(Interrupted))
		return HalfTurn{}, false
	}
	sc.state.Store(int32(Completed))
	return pickBest(sc.rng, turns), true
}

// scoreCandidate values one root half-turn searched to depth. A move that
// ends the game scores a flat MateScore or 0, like inside minimax.
func (s *Searcher) scoreCandidate(sc *SearchContext, pos *board.Position, from, to board.Square, depth int) int {
	child := *pos
	child.Apply(from, to, true)
	ca := s.analyzer.Analyze(&child)
	if ca.MateOrStalemate {
		return terminalScore(ca)
	}
	return evaluate(pos, from, to) - s.minimax(sc, ca, depth-1)
}

// minimax returns the value of the analyzed position for its side to move.
func (s *Searcher) minimax(sc *SearchContext, an *board.Analysis, depth int) int {
	if sc.IsStopped() {
		return interruptedScore
	}

	pos := an.Position
	best := noCandidates
	for _, prof := range an.Pieces {
		for _, to := range prof.Moves {
			v := evaluate(pos, prof.Square, to)

			if depth == 0 {
				// Moving onto an attacked square risks losing the piece.
				if an.Threats.Attacked.Has(to) {
					v -= prof.Piece.Type.Value()
				}
			} else {
				child := *pos
				child.Apply(prof.Square, to, true)
				ca := s.analyzer.Analyze(&child)
				if ca.MateOrStalemate {
					// Nothing beats a mate; a stalemate is worth nothing.
					if terminalScore(ca) == MateScore {
						return MateScore
					}
					v = 0
				} else {
					v -= s.minimax(sc, ca, depth-1)
					if sc.IsStopped() {
						return interruptedScore
					}
				}
			}

			if v > best {
				best = v
			}
		}
	}
	if best == noCandidates {
		return 0
	}
	return best
}

// terminalScore is the value, for the side that just moved, of reaching a
// position without legal moves.
func terminalScore(an *board.Analysis) int {
	if an.Check && !an.FiftyMoveDraw {
		return MateScore
	}
	return 0
}

// evaluate scores a single half-turn: the captured material (a move onto an
// en passant marker only captures when made by a pawn) plus the promotion
// bonus.
func evaluate(pos *board.Position, from, to board.Square) int {
	mover := pos.At(from)
	target := pos.At(to)
	v := 0

	switch target.Type {
	case board.Empty:
	case board.EnPassant:
		if mover.Type == board.Pawn {
			v += target.Type.Value()
		}
	default:
		v += target.Type.Value()
	}

	if mover.Type == board.Pawn && (to.Row == 0 || to.Row == 7) {
		v += PromotionBonus
	}
	return v
}

// candidates lists every legal half-turn of the analysis in a stable order.
func candidates(an *board.Analysis) []HalfTurn {
	var turns []HalfTurn
	for _, prof := range an.Pieces {
		for _, to := range prof.Moves {
			turns = append(turns, HalfTurn{From: prof.Square, To: to})
		}
	}
	return turns
}

// pickBest returns a uniformly random candidate among those with the
// highest value.
func pickBest(rng *rand.Rand, turns []HalfTurn) HalfTurn {
	best := []int{0}
	for i := 1; i < len(turns); i++ {
		switch {
		case turns[i].Value > turns[best[0]].Value:
			best = best[:0]
			best = append(best, i)
		case turns[i].Value == turns[best[0]].Value:
			best = append(best, i)
		}
	}
	return turns[best[rng.IntN(len(best))]]
}
