// Package game holds a game session: the current position, the undo and
// redo stacks, captured pieces and the engine turn in flight.
package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/chessmind/internal/board"
	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/storage"
)

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrSearchRunning = errors.New("engine is thinking")
	ErrGameOver      = errors.New("game is over")
)

// PromotionChooser picks the piece a pawn of the given color promotes to.
// It runs while the game is locked and must not call back into it.
type PromotionChooser func(c board.Color) board.PieceType

// ResultRecorder receives the result of every finished game.
type ResultRecorder interface {
	RecordGame(storage.GameResult) error
}

// Players describes who plays each side.
type Players struct {
	WhiteHuman      bool
	BlackHuman      bool
	WhiteDifficulty engine.Difficulty
	BlackDifficulty engine.Difficulty
}

// DefaultPlayers is two humans with difficulty 2 preset for both sides.
func DefaultPlayers() Players {
	return Players{
		WhiteHuman:      true,
		BlackHuman:      true,
		WhiteDifficulty: engine.Medium,
		BlackDifficulty: engine.Medium,
	}
}

// PlayersFromPreferences converts stored preferences.
func PlayersFromPreferences(p *storage.Preferences) Players {
	return Players{
		WhiteHuman:      p.PlayerIsWhite,
		BlackHuman:      p.PlayerIsBlack,
		WhiteDifficulty: engine.Difficulty(p.WhiteDifficulty),
		BlackDifficulty: engine.Difficulty(p.BlackDifficulty),
	}
}

// Game is a chess game session. All methods are safe for concurrent use.
type Game struct {
	mu sync.Mutex

	engine   *engine.Engine
	log      *zap.Logger
	recorder ResultRecorder

	position board.Position
	analysis *board.Analysis
	history  []board.Position
	future   []board.Position

	blackLost []board.Piece
	whiteLost []board.Piece

	players  Players
	lastMove board.Move
	started  time.Time
	recorded bool

	pending *EngineTurn
}

// New creates a game at the starting position.
func New(eng *engine.Engine, log *zap.Logger) *Game {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Game{
		engine:  eng,
		log:     log,
		players: DefaultPlayers(),
	}
	g.reset(*board.NewPosition())
	return g
}

// SetRecorder sets where finished games are reported.
func (g *Game) SetRecorder(r ResultRecorder) {
	g.mu.Lock()
	g.recorder = r
	g.mu.Unlock()
}

// reset replaces the whole game state. The caller holds mu or has
// exclusive access.
func (g *Game) reset(pos board.Position) {
	g.position = pos
	g.history = nil
	g.future = nil
	g.blackLost = nil
	g.whiteLost = nil
	g.lastMove = board.NoMove
	g.started = time.Now()
	g.recorded = false
	g.analyze()
}

func (g *Game) analyze() {
	g.analysis = g.engine.Analyzer().Analyze(&g.position)
}

// NewGame cancels any engine turn and starts over from the initial position.
func (g *Game) NewGame() {
	g.lockIdle()
	defer g.mu.Unlock()
	g.reset(*board.NewPosition())
	g.log.Info("new game")
}

// SetupPosition cancels any engine turn and starts from pos.
func (g *Game) SetupPosition(pos *board.Position) error {
	if err := pos.Validate(); err != nil {
		return err
	}
	g.lockIdle()
	defer g.mu.Unlock()
	g.reset(*pos)
	return nil
}

// Players returns the current player setup.
func (g *Game) Players() Players {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.players
}

// SetPlayers changes the player setup.
func (g *Game) SetPlayers(p Players) {
	g.mu.Lock()
	g.players = p
	g.mu.Unlock()
}

// EngineToMove reports whether the side to move is played by the engine
// and the game is not over.
func (g *Game) EngineToMove() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.analysis.MateOrStalemate {
		return false
	}
	if g.position.SideToMove == board.White {
		return !g.players.WhiteHuman
	}
	return !g.players.BlackHuman
}

// Position returns a copy of the current position.
func (g *Game) Position() board.Position {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

// LegalMoves returns the legal moves of the side to move.
func (g *Game) LegalMoves() []board.Move {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.analysis.Moves()
}

// IsCheck reports whether the side to move is in check.
func (g *Game) IsCheck() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.analysis.Check
}

// IsMateOrStalemate reports whether the side to move has no legal move.
func (g *Game) IsMateOrStalemate() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.analysis.MateOrStalemate
}

// Status returns the display status of the current position.
func (g *Game) Status() board.Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.analysis.Status()
}

// LastMove returns the most recent half-turn, or NoMove.
func (g *Game) LastMove() board.Move {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastMove
}

// Lost returns the captured pieces of the given color in capture order.
func (g *Game) Lost(c board.Color) []board.Piece {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c == board.Black {
		return append([]board.Piece(nil), g.blackLost...)
	}
	return append([]board.Piece(nil), g.whiteLost...)
}

// HistoryLen returns the number of positions that can be undone and redone.
func (g *Game) HistoryLen() (undo, redo int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.history), len(g.future)
}

// ParseMove reads a move in coordinate notation ("g1f3", "a7a8n") or in
// SAN ("Nf3", "a8=N") for the current position.
func (g *Game) ParseMove(s string) (board.Move, error) {
	if m, err := board.ParseMove(s); err == nil {
		return m, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	m, err := board.ParseSAN(g.analysis, s)
	if err != nil {
		return board.NoMove, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	return m, nil
}

// SAN renders a legal move of the current position in SAN.
func (g *Game) SAN(m board.Move) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Analyzer().SAN(g.analysis, m)
}

// ApplyPlayerMove plays a legal half-turn for the side to move. When the
// move promotes and carries no promotion piece, choose is asked; a nil
// chooser or an invalid answer promotes to a queen.
func (g *Game) ApplyPlayerMove(m board.Move, choose PromotionChooser) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		return ErrSearchRunning
	}
	if !g.analysis.IsLegal(m.From, m.To) {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}

	promoting := m.IsPromotion(&g.position)
	mover := g.position.At(m.From).Color
	g.play(m, false)

	if promoting {
		pt := m.Promotion
		if !validPromotion(pt) && choose != nil {
			pt = choose(mover)
		}
		if !validPromotion(pt) {
			pt = board.Queen
		}
		g.position.Set(m.To, board.NewPiece(pt, mover))
		g.analyze()
	}
	g.afterMove()
	return nil
}

func validPromotion(pt board.PieceType) bool {
	switch pt {
	case board.Queen, board.Rook, board.Bishop, board.Knight:
		return true
	}
	return false
}

// play records and applies a half-turn. The caller holds mu.
func (g *Game) play(m board.Move, autoPromote bool) {
	if p, ok := capturedBy(&g.position, m); ok {
		g.addLost(p)
	}
	g.history = append(g.history, g.position)
	g.future = nil
	g.position.Apply(m.From, m.To, autoPromote)
	g.lastMove = m
	g.analyze()
}

// afterMove logs and records the result when the game has ended. The caller
// holds mu.
func (g *Game) afterMove() {
	status := g.analysis.Status()
	g.log.Info("move applied",
		zap.Stringer("move", g.lastMove),
		zap.Stringer("next", g.position.SideToMove),
		zap.Stringer("status", status),
		zap.Int("draw50", g.position.Draw50))

	if !g.analysis.MateOrStalemate || g.recorded || g.recorder == nil {
		return
	}
	g.recorded = true
	result := storage.GameResult{
		Winner:    board.NoColor,
		HalfTurns: len(g.history),
		Duration:  time.Since(g.started),
	}
	if status == board.Checkmate {
		result.Winner = g.position.SideToMove.Other()
	}
	if err := g.recorder.RecordGame(result); err != nil {
		g.log.Warn("recording game result failed", zap.Error(err))
	}
}

// capturedBy returns the piece m captures in p, if any.
func capturedBy(p *board.Position, m board.Move) (board.Piece, bool) {
	target := p.At(m.To)
	switch {
	case target.Type.IsPiece():
		return target, true
	case target.Type == board.EnPassant && p.At(m.From).Type == board.Pawn:
		return board.NewPiece(board.Pawn, target.Color), true
	}
	return board.NoPiece, false
}

// capturedBetween finds the piece the side to move in before lost to reach
// after. Promotions change only the mover's material, so the victim's
// counts identify the capture.
func capturedBetween(before, after *board.Position) (board.Piece, bool) {
	victim := before.SideToMove.Other()
	for _, pt := range []board.PieceType{board.Queen, board.Rook, board.Bishop, board.Knight, board.Pawn} {
		if before.Count(pt, victim) > after.Count(pt, victim) {
			return board.NewPiece(pt, victim), true
		}
	}
	return board.NoPiece, false
}

func (g *Game) addLost(p board.Piece) {
	if p.Color == board.Black {
		g.blackLost = append(g.blackLost, p)
	} else {
		g.whiteLost = append(g.whiteLost, p)
	}
}

// removeLost drops the most recent capture of p.
func (g *Game) removeLost(p board.Piece) {
	list := &g.whiteLost
	if p.Color == board.Black {
		list = &g.blackLost
	}
	for i := len(*list) - 1; i >= 0; i-- {
		if (*list)[i] == p {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// Undo takes back up to n half-turns (at least one).
func (g *Game) Undo(n int) error {
	g.lockIdle()
	defer g.mu.Unlock()

	if len(g.history) == 0 {
		return ErrNothingToUndo
	}
	for i := 0; i < max(n, 1) && len(g.history) > 0; i++ {
		prev := g.history[len(g.history)-1]
		g.history = g.history[:len(g.history)-1]
		if p, ok := capturedBetween(&prev, &g.position); ok {
			g.removeLost(p)
		}
		g.future = append(g.future, g.position)
		g.position = prev
	}
	g.lastMove = board.NoMove
	g.recorded = false
	g.analyze()
	return nil
}

// Redo replays up to n undone half-turns (at least one).
func (g *Game) Redo(n int) error {
	g.lockIdle()
	defer g.mu.Unlock()

	if len(g.future) == 0 {
		return ErrNothingToRedo
	}
	for i := 0; i < max(n, 1) && len(g.future) > 0; i++ {
		next := g.future[len(g.future)-1]
		g.future = g.future[:len(g.future)-1]
		if p, ok := capturedBetween(&g.position, &next); ok {
			g.addLost(p)
		}
		g.history = append(g.history, g.position)
		g.position = next
	}
	g.lastMove = board.NoMove
	g.analyze()
	return nil
}

// View is a consistent picture of the game at one instant.
type View struct {
	Position        board.Position
	Status          board.Status
	Check           bool
	MateOrStalemate bool
	Moves           []board.Move
	BlackLost       []board.Piece
	WhiteLost       []board.Piece
	Undo            int
	Redo            int
	LastMove        board.Move
	Players         Players
	Searching       bool
}

// View returns the current state under a single lock.
func (g *Game) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return View{
		Position:        g.position,
		Status:          g.analysis.Status(),
		Check:           g.analysis.Check,
		MateOrStalemate: g.analysis.MateOrStalemate,
		Moves:           g.analysis.Moves(),
		BlackLost:       append([]board.Piece(nil), g.blackLost...),
		WhiteLost:       append([]board.Piece(nil), g.whiteLost...),
		Undo:            len(g.history),
		Redo:            len(g.future),
		LastMove:        g.lastMove,
		Players:         g.players,
		Searching:       g.pending != nil,
	}
}

// Snapshot returns the savable state.
func (g *Game) Snapshot() *storage.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &storage.Snapshot{
		Position:  g.position,
		History:   append([]board.Position(nil), g.history...),
		BlackLost: append([]board.Piece(nil), g.blackLost...),
		WhiteLost: append([]board.Piece(nil), g.whiteLost...),
	}
}

// Restore replaces the game with a snapshot. Both sides become human.
func (g *Game) Restore(s *storage.Snapshot) {
	g.lockIdle()
	defer g.mu.Unlock()
	g.reset(s.Position)
	g.history = append([]board.Position(nil), s.History...)
	g.blackLost = append([]board.Piece(nil), s.BlackLost...)
	g.whiteLost = append([]board.Piece(nil), s.WhiteLost...)
	g.players.WhiteHuman = true
	g.players.BlackHuman = true
	g.log.Info("game restored", zap.Int("history", len(g.history)))
}

// SaveTo writes the game in the text save format.
func (g *Game) SaveTo(w io.Writer) error {
	return storage.Encode(w, g.Snapshot())
}

// LoadFrom reads a text save. On error the game is left untouched.
func (g *Game) LoadFrom(r io.Reader) error {
	s, err := storage.Decode(r)
	if err != nil {
		return err
	}
	g.Restore(s)
	return nil
}

// EngineTurn is an engine move in progress. Its move is applied to the
// game before Done is closed.
type EngineTurn struct {
	req  *engine.Request
	done chan struct{}

	from    board.Position
	move    board.Move
	applied bool
}

// Done is closed once the turn has finished.
func (t *EngineTurn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn finishes and returns the applied move.
func (t *EngineTurn) Wait() (board.Move, bool) {
	<-t.done
	return t.move, t.applied
}

// Cancel stops the search without waiting.
func (t *EngineTurn) Cancel() {
	t.req.Cancel()
}

// Progress returns the evaluated and total root candidates.
func (t *EngineTurn) Progress() (done, total int64) {
	return t.req.Progress()
}

// RequestEngineMove starts the engine on the side to move at that side's
// difficulty. The resulting move is applied automatically unless the turn
// is cancelled first.
func (g *Game) RequestEngineMove(ctx context.Context) (*EngineTurn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		return nil, ErrSearchRunning
	}
	if g.analysis.MateOrStalemate {
		return nil, ErrGameOver
	}

	d := g.players.WhiteDifficulty
	if g.position.SideToMove == board.Black {
		d = g.players.BlackDifficulty
	}
	t := &EngineTurn{
		req:  g.engine.RequestMove(ctx, &g.position, d),
		done: make(chan struct{}),
		from: g.position,
	}
	g.pending = t
	go g.finishEngineTurn(t)
	return t, nil
}

func (g *Game) finishEngineTurn(t *EngineTurn) {
	defer close(t.done)
	move, ok := t.req.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != t {
		return
	}
	g.pending = nil
	if !ok || g.position != t.from || !g.analysis.IsLegal(move.From, move.To) {
		return
	}
	g.play(move, true)
	g.afterMove()
	t.move = move
	t.applied = true
}

// Searching reports whether an engine turn is in flight.
func (g *Game) Searching() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// Progress returns the progress of the engine turn in flight.
func (g *Game) Progress() (done, total int64, ok bool) {
	g.mu.Lock()
	t := g.pending
	g.mu.Unlock()
	if t == nil {
		return 0, 0, false
	}
	done, total = t.Progress()
	return done, total, true
}

// CancelInFlightSearch stops the engine turn in flight, if any, and waits
// until it has finished. No move is applied afterwards.
func (g *Game) CancelInFlightSearch() {
	g.lockIdle()
	g.mu.Unlock()
}

// lockIdle acquires mu with no engine turn pending. A turn started while
// the lock was released for waiting is cancelled as well.
func (g *Game) lockIdle() {
	g.mu.Lock()
	for g.pending != nil {
		t := g.pending
		g.mu.Unlock()
		t.Cancel()
		<-t.done
		g.mu.Lock()
	}
}
