// Package console is a line-oriented terminal front end: play against the
// engine, inspect positions and manage saves.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/hailam/chessmind/internal/board"
	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/storage"
)

// Options configures a Console.
type Options struct {
	In     io.Reader         // nil means stdin
	Out    io.Writer         // nil means stdout
	Color  *bool             // nil detects a terminal on Out
	Store  *storage.Storage  // nil disables named saves
	Logger *zap.Logger
}

// Console reads commands and drives a game.
type Console struct {
	game   *game.Game
	engine *engine.Engine
	store  *storage.Storage
	log    *zap.Logger

	in    io.Reader
	out   io.Writer
	outMu sync.Mutex
	color bool

	turns sync.WaitGroup // engine turns whose result is not reported yet
	quit  bool
}

// New creates a console for g, whose searches run on eng.
func New(g *game.Game, eng *engine.Engine, opts Options) *Console {
	c := &Console{
		game:   g,
		engine: eng,
		store:  opts.Store,
		log:    opts.Logger,
		in:     opts.In,
		out:    opts.Out,
	}
	if c.in == nil {
		c.in = os.Stdin
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if opts.Color != nil {
		c.color = *opts.Color
	} else {
		c.color = isTerminal(c.out)
	}
	return c
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Run processes commands until quit, end of input or ctx cancellation.
// At end of input a running engine turn is allowed to finish.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	c.startEngineIfDue(ctx)
	for !c.quit {
		select {
		case <-ctx.Done():
			c.game.CancelInFlightSearch()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				c.waitEngine()
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			c.handle(ctx, line)
		}
	}
	c.game.CancelInFlightSearch()
	return nil
}

func (c *Console) handle(ctx context.Context, line string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	var err error
	switch cmd {
	case "new":
		c.game.NewGame()
		c.startEngineIfDue(ctx)
	case "fen":
		err = c.handleFEN(args)
	case "move", "m":
		if len(args) != 1 {
			err = errors.New("usage: move <e2e4>")
			break
		}
		err = c.handleMove(ctx, args[0])
	case "go":
		err = c.handleGo(ctx, args)
	case "stop":
		c.game.CancelInFlightSearch()
	case "undo":
		err = c.game.Undo(count(args))
	case "redo":
		err = c.game.Redo(count(args))
	case "d", "board":
		c.display()
	case "moves":
		c.listMoves()
	case "status":
		c.status()
	case "perft":
		err = c.handlePerft(args, false)
	case "divide":
		err = c.handlePerft(args, true)
	case "players":
		err = c.handlePlayers(ctx, args)
	case "level":
		err = c.handleLevel(args)
	case "save":
		err = c.handleSave(args)
	case "load":
		err = c.handleLoad(args)
	case "saves":
		err = c.listSaves()
	case "export":
		err = c.handleExport(args)
	case "import":
		err = c.handleImport(args)
	case "stats":
		err = c.handleStats()
	case "help":
		c.help()
	case "quit", "exit":
		c.quit = true
	default:
		// A bare move is accepted as a shortcut.
		if _, perr := c.game.ParseMove(parts[0]); perr == nil && len(args) == 0 {
			err = c.handleMove(ctx, parts[0])
		} else {
			err = fmt.Errorf("unknown command %q (try help)", cmd)
		}
	}
	if err != nil {
		c.printf("error: %v\n", err)
	}
}

func count(args []string) int {
	if len(args) == 0 {
		return 1
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (c *Console) handleFEN(args []string) error {
	pos, err := board.ParseFEN(strings.Join(args, " "))
	if err != nil {
		return err
	}
	return c.game.SetupPosition(pos)
}

// handleMove plays a player move. A promotion suffix selects the piece,
// otherwise the pawn becomes a queen.
func (c *Console) handleMove(ctx context.Context, s string) error {
	m, err := c.game.ParseMove(s)
	if err != nil {
		return err
	}
	if err := c.game.ApplyPlayerMove(m, nil); err != nil {
		return err
	}
	c.reportEnd()
	c.startEngineIfDue(ctx)
	return nil
}

// handleGo makes the engine play one half-turn for the side to move,
// optionally at a given depth.
func (c *Console) handleGo(ctx context.Context, args []string) error {
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			return fmt.Errorf("invalid depth %q", args[0])
		}
		p := c.game.Players()
		if pos := c.game.Position(); pos.SideToMove == board.White {
			p.WhiteDifficulty = engine.Difficulty(d)
		} else {
			p.BlackDifficulty = engine.Difficulty(d)
		}
		c.game.SetPlayers(p)
	}
	return c.startEngine(ctx)
}

func (c *Console) startEngineIfDue(ctx context.Context) {
	if !c.game.EngineToMove() {
		return
	}
	if err := c.startEngine(ctx); err != nil && !errors.Is(err, game.ErrSearchRunning) {
		c.printf("error: %v\n", err)
	}
}

// startEngine launches an engine turn and reports its move when done.
func (c *Console) startEngine(ctx context.Context) error {
	turn, err := c.game.RequestEngineMove(ctx)
	if err != nil {
		return err
	}
	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		m, ok := turn.Wait()
		if !ok {
			c.printf("search stopped\n")
			return
		}
		c.printf("bestmove %s\n", m)
		c.reportEnd()
		c.startEngineIfDue(ctx)
	}()
	return nil
}

// waitEngine blocks until every engine turn has been reported, including
// turns chained by engine-versus-engine play.
func (c *Console) waitEngine() {
	c.turns.Wait()
}

func (c *Console) reportEnd() {
	v := c.game.View()
	switch v.Status {
	case board.Checkmate:
		c.printf("checkmate, %s wins\n", v.Position.SideToMove.Other())
	case board.Stalemate:
		c.printf("stalemate\n")
	case board.FiftyMoveDraw:
		c.printf("draw by the fifty-move rule\n")
	case board.Check:
		c.printf("check\n")
	}
}

func (c *Console) display() {
	v := c.game.View()
	c.printf("%s", renderBoard(&v.Position, c.color))
	c.printf("FEN: %s\n", v.Position.ToFEN())
	c.printf("Key: %s\n", v.Position.Key())
}

func (c *Console) listMoves() {
	moves := c.game.LegalMoves()
	strs := make([]string, len(moves))
	for i, m := range moves {
		strs[i] = c.game.SAN(m)
	}
	c.printf("%d moves: %s\n", len(strs), strings.Join(strs, " "))
}

func (c *Console) status() {
	v := c.game.View()
	status := v.Status.String()
	if status == "" {
		status = "Normal"
	}
	c.printf("side to move: %s\n", v.Position.SideToMove)
	c.printf("status: %s\n", status)
	c.printf("fifty-move counter: %d\n", v.Position.Draw50)
	c.printf("black lost: %s\n", pieceList(v.BlackLost))
	c.printf("white lost: %s\n", pieceList(v.WhiteLost))
	c.printf("undo: %d redo: %d\n", v.Undo, v.Redo)
	if done, total, ok := c.game.Progress(); ok {
		c.printf("thinking: %d/%d\n", done, total)
	}
	st := c.engine.CacheStats()
	var rate float64
	if st.Probes > 0 {
		rate = float64(st.Hits) / float64(st.Probes) * 100
	}
	c.printf("cache: %s entries, %.1f%% hits\n", humanize.Comma(int64(st.Len)), rate)
}

func (c *Console) handlePerft(args []string, divide bool) error {
	depth := 3
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 0 {
			return fmt.Errorf("invalid depth %q", args[0])
		}
		depth = d
	}
	pos := c.game.Position()

	start := time.Now()
	var nodes int64
	if divide {
		counts := board.Divide(c.engine.Analyzer(), &pos, depth)
		keys := make([]board.Move, 0, len(counts))
		for m := range counts {
			keys = append(keys, m)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, m := range keys {
			c.printf("%s: %d\n", m, counts[m])
			nodes += counts[m]
		}
	} else {
		nodes = c.engine.Perft(&pos, depth)
	}
	elapsed := time.Since(start)

	c.printf("Nodes: %s\n", humanize.Comma(nodes))
	c.printf("Time: %v\n", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		c.printf("NPS: %s\n", humanize.Comma(int64(float64(nodes)/elapsed.Seconds())))
	}
	return nil
}

func parseSide(s string) (human bool, err error) {
	switch strings.ToLower(s) {
	case "human", "h":
		return true, nil
	case "engine", "e", "ai":
		return false, nil
	}
	return false, fmt.Errorf("expected human or engine, got %q", s)
}

func (c *Console) handlePlayers(ctx context.Context, args []string) error {
	p := c.game.Players()
	if len(args) == 0 {
		c.printf("white: %s (level %d), black: %s (level %d)\n",
			kind(p.WhiteHuman), p.WhiteDifficulty, kind(p.BlackHuman), p.BlackDifficulty)
		return nil
	}
	if len(args) != 2 {
		return errors.New("usage: players <human|engine> <human|engine>")
	}
	var err error
	if p.WhiteHuman, err = parseSide(args[0]); err != nil {
		return err
	}
	if p.BlackHuman, err = parseSide(args[1]); err != nil {
		return err
	}
	c.game.SetPlayers(p)
	c.savePreferences(p)
	c.startEngineIfDue(ctx)
	return nil
}

func kind(human bool) string {
	if human {
		return "human"
	}
	return "engine"
}

func (c *Console) handleLevel(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: level <white depth> <black depth>")
	}
	w, werr := strconv.Atoi(args[0])
	b, berr := strconv.Atoi(args[1])
	if werr != nil || berr != nil || w < 1 || b < 1 {
		return errors.New("levels must be positive integers")
	}
	p := c.game.Players()
	p.WhiteDifficulty = engine.Difficulty(w)
	p.BlackDifficulty = engine.Difficulty(b)
	c.game.SetPlayers(p)
	c.savePreferences(p)
	return nil
}

// savePreferences persists the player setup when a store is available.
func (c *Console) savePreferences(p game.Players) {
	if c.store == nil {
		return
	}
	prefs, err := c.store.LoadPreferences()
	if err != nil {
		c.log.Warn("loading preferences failed", zap.Error(err))
		prefs = storage.DefaultPreferences()
	}
	prefs.PlayerIsWhite = p.WhiteHuman
	prefs.PlayerIsBlack = p.BlackHuman
	prefs.WhiteDifficulty = int(p.WhiteDifficulty)
	prefs.BlackDifficulty = int(p.BlackDifficulty)
	prefs.LastPlayed = time.Now()
	if err := c.store.SavePreferences(prefs); err != nil {
		c.log.Warn("saving preferences failed", zap.Error(err))
	}
}

var errNoStore = errors.New("no database available")

func (c *Console) handleSave(args []string) error {
	if c.store == nil {
		return errNoStore
	}
	if len(args) != 1 {
		return errors.New("usage: save <name>")
	}
	if err := c.store.SaveGame(args[0], c.game.Snapshot()); err != nil {
		return err
	}
	c.printf("saved %s\n", args[0])
	return nil
}

func (c *Console) handleLoad(args []string) error {
	if c.store == nil {
		return errNoStore
	}
	if len(args) != 1 {
		return errors.New("usage: load <name>")
	}
	snap, err := c.store.LoadGame(args[0])
	if err != nil {
		return err
	}
	c.game.Restore(snap)
	c.printf("loaded %s\n", args[0])
	return nil
}

func (c *Console) listSaves() error {
	if c.store == nil {
		return errNoStore
	}
	saves, err := c.store.ListGames()
	if err != nil {
		return err
	}
	for _, s := range saves {
		c.printf("%-20s %s to move, %d half-turns, saved %s\n",
			s.Name, s.SideToMove, s.HalfTurns, humanize.Time(s.SavedAt))
	}
	return nil
}

func (c *Console) handleExport(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: export <file>")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := c.game.SaveTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *Console) handleImport(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: import <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return c.game.LoadFrom(f)
}

func (c *Console) handleStats() error {
	if c.store == nil {
		return errNoStore
	}
	st, err := c.store.LoadStats()
	if err != nil {
		return err
	}
	c.printf("games: %d (white %d, black %d, draws %d)\n", st.GamesPlayed, st.WhiteWins, st.BlackWins, st.Draws)
	c.printf("half-turns: %s, time played: %v\n", humanize.Comma(int64(st.TotalHalfTurn)), st.TotalPlayTime.Round(time.Second))
	return nil
}

func (c *Console) help() {
	c.printf(`commands:
  new                      start a new game
  fen <fen>                set up a position
  move <e2e4|Nf3> | <Nf3>  play a move (suffix q/r/b/n or =N to promote)
  go [depth]               engine plays the side to move
  stop                     cancel the engine
  undo [n], redo [n]       step through the history
  d                        show the board
  moves                    list legal moves
  status                   show game status
  perft <n>, divide <n>    count leaf nodes
  players <w> <b>          human or engine for each side
  level <w> <b>            engine depth for each side
  save|load <name>, saves  named saves
  export|import <file>     text save files
  stats                    finished game statistics
  quit
`)
}
