// Package engine implements the move search: a parallel fixed-depth
// negamax over material gains, with cooperative cancellation.
package engine

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/chessmind/internal/board"
	"github.com/hailam/chessmind/internal/cache"
)

// Difficulty is the search depth in half-turns.
type Difficulty int

const (
	Easy   Difficulty = 1
	Medium Difficulty = 2 // default
	Hard   Difficulty = 3
)

// Config holds engine construction parameters.
type Config struct {
	CacheCapacity int           // Position cache entries (0 = cache.DefaultCapacity)
	Workers       int           // Root workers (0 = GOMAXPROCS)
	MinThinkTime  time.Duration // Floor for each request
	Seed          uint64        // Tie-breaking seed (0 = random)
	Logger        *zap.Logger
}

// Engine is the chess AI engine. It owns the position cache shared by all
// of its searches and runs at most one request at a time.
type Engine struct {
	cache    *cache.Cache[*board.Threats]
	analyzer *board.Analyzer
	searcher *Searcher
	minThink time.Duration
	log      *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu      sync.Mutex
	current *Request
}

// NewEngine creates a new chess engine.
func NewEngine(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	c := cache.New[*board.Threats](cfg.CacheCapacity)
	analyzer := board.NewAnalyzer(c)
	return &Engine{
		cache:    c,
		analyzer: analyzer,
		searcher: NewSearcher(analyzer, workers),
		minThink: cfg.MinThinkTime,
		log:      log,
		rng:      rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// Analyzer returns the analyzer backed by the engine's position cache.
func (e *Engine) Analyzer() *board.Analyzer {
	return e.analyzer
}

// SetMinThinkTime changes the floor for subsequent requests.
func (e *Engine) SetMinThinkTime(d time.Duration) {
	e.mu.Lock()
	e.minThink = d
	e.mu.Unlock()
}

// Request is an in-flight engine move. It completes exactly once.
type Request struct {
	sc   *SearchContext
	done chan struct{}

	move board.Move
	ok   bool
}

// Done is closed when the request has finished.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request finishes and returns its move. ok is false
// when there was no legal move or the request was cancelled.
func (r *Request) Wait() (board.Move, bool) {
	<-r.done
	return r.move, r.ok
}

// Cancel asks the search to stop as soon as possible. It does not wait.
func (r *Request) Cancel() {
	r.sc.Stop()
}

// Progress returns the evaluated and total root candidates.
func (r *Request) Progress() (done, total int64) {
	return r.sc.Progress()
}

// State returns the search state.
func (r *Request) State() SearchState {
	return r.sc.State()
}

// RequestMove starts a search for the best move in pos at the given
// difficulty. The position is copied. Any request still running is
// cancelled and awaited first. Cancelling ctx cancels the request.
func (e *Engine) RequestMove(ctx context.Context, pos *board.Position, d Difficulty) *Request {
	e.CancelInFlight()

	e.rngMu.Lock()
	seed := e.rng.Uint64()
	e.rngMu.Unlock()

	req := &Request{
		sc:   NewSearchContext(seed),
		done: make(chan struct{}),
	}

	e.mu.Lock()
	e.current = req
	tm := NewTimeManager(e.minThink)
	e.mu.Unlock()

	snapshot := *pos
	go e.run(ctx, req, &snapshot, int(d), tm)
	return req
}

func (e *Engine) run(ctx context.Context, req *Request, pos *board.Position, depth int, tm *TimeManager) {
	defer close(req.done)
	stop := context.AfterFunc(ctx, req.sc.Stop)
	defer stop()

	tm.Init()
	e.log.Debug("search started",
		zap.Stringer("side", pos.SideToMove),
		zap.Int("depth", depth))

	ht, ok := e.searcher.BestMove(req.sc, pos, depth)
	evicted := e.cache.Compact()

	searchTime := tm.Elapsed()
	if ok {
		ok = tm.WaitMinimum(req.sc.Stopped())
	}
	if ok {
		req.move = ht.Move()
		req.ok = true
	}

	_, total := req.sc.Progress()
	e.log.Debug("search finished",
		zap.Stringer("state", req.sc.State()),
		zap.Stringer("move", req.move),
		zap.Int("value", ht.Value),
		zap.Int64("candidates", total),
		zap.Duration("elapsed", searchTime),
		zap.Int("cache", e.cache.Len()),
		zap.Int("evicted", evicted))
}

// CancelInFlight stops the current request, if any, and waits for it to
// finish.
func (e *Engine) CancelInFlight() {
	e.mu.Lock()
	req := e.current
	e.current = nil
	e.mu.Unlock()

	if req != nil {
		req.Cancel()
		<-req.done
	}
}

// Search runs a synchronous search without the think-time floor. It returns
// false when there is no legal move or ctx is cancelled.
func (e *Engine) Search(ctx context.Context, pos *board.Position, d Difficulty) (HalfTurn, bool) {
	e.rngMu.Lock()
	seed := e.rng.Uint64()
	e.rngMu.Unlock()

	sc := NewSearchContext(seed)
	stop := context.AfterFunc(ctx, sc.Stop)
	defer stop()

	ht, ok := e.searcher.BestMove(sc, pos, int(d))
	e.cache.Compact()
	return ht, ok
}

// Clear empties the position cache.
func (e *Engine) Clear() {
	e.cache.Clear()
}

// CacheStats returns the position cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) int64 {
	return board.Perft(e.analyzer, pos, depth)
}
