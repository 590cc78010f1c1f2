package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hailam/chessmind/internal/board"
	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/game"
)

func badRequest(format string, args ...any) error {
	return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf(format, args...))
}

func (s *Server) lookup(c *fiber.Ctx) (string, *game.Game, error) {
	id := c.Params("id")
	g, err := s.games.Get(id)
	return id, g, err
}

func (s *Server) state(c *fiber.Ctx, id string, g *game.Game) error {
	return c.JSON(newGameState(id, g.View()))
}

// maybeStartEngine begins an engine turn when the engine is to move.
func (s *Server) maybeStartEngine(g *game.Game) {
	if !g.EngineToMove() {
		return
	}
	if _, err := g.RequestEngineMove(context.Background()); err != nil && !errors.Is(err, game.ErrSearchRunning) {
		s.log.Warn("starting engine turn failed", zap.Error(err))
	}
}

func (s *Server) createGame(c *fiber.Ctx) error {
	var req CreateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest("invalid body: %v", err)
		}
	}

	players := s.defaultPlayers
	if req.WhiteHuman != nil {
		players.WhiteHuman = *req.WhiteHuman
	}
	if req.BlackHuman != nil {
		players.BlackHuman = *req.BlackHuman
	}
	if req.WhiteDifficulty < 0 || req.BlackDifficulty < 0 {
		return badRequest("difficulty must be positive")
	}
	if req.WhiteDifficulty > 0 {
		players.WhiteDifficulty = engine.Difficulty(req.WhiteDifficulty)
	}
	if req.BlackDifficulty > 0 {
		players.BlackDifficulty = engine.Difficulty(req.BlackDifficulty)
	}

	var pos *board.Position
	if req.FEN != "" {
		var err error
		if pos, err = board.ParseFEN(req.FEN); err != nil {
			return badRequest("invalid FEN: %v", err)
		}
	}

	id, g := s.games.Create()
	if pos != nil {
		if err := g.SetupPosition(pos); err != nil {
			_ = s.games.Delete(id)
			return badRequest("invalid position: %v", err)
		}
	}
	g.SetPlayers(players)
	s.maybeStartEngine(g)

	c.Status(fiber.StatusCreated)
	return s.state(c, id, g)
}

func (s *Server) getGame(c *fiber.Ctx) error {
	id, g, err := s.lookup(c)
	if err != nil {
		return err
	}
	return s.state(c, id, g)
}

func (s *Server) deleteGame(c *fiber.Ctx) error {
	if err := s.games.Delete(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) playMove(c *fiber.Ctx) error {
	id, g, err := s.lookup(c)
	if err != nil {
		return err
	}

	var req MoveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid body: %v", err)
	}
	var move board.Move
	if req.SAN != "" {
		if move, err = g.ParseMove(req.SAN); err != nil {
			return err
		}
	} else if move, err = board.ParseMove(req.From + req.To + req.Promotion); err != nil {
		return badRequest("%v", err)
	}
	if err := g.ApplyPlayerMove(move, nil); err != nil {
		return err
	}
	s.maybeStartEngine(g)
	return s.state(c, id, g)
}

func (s *Server) startEngine(c *fiber.Ctx) error {
	id, g, err := s.lookup(c)
	if err != nil {
		return err
	}

	var req EngineRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest("invalid body: %v", err)
		}
	}
	if req.Difficulty < 0 {
		return badRequest("difficulty must be positive")
	}
	if req.Difficulty > 0 {
		p := g.Players()
		if pos := g.Position(); pos.SideToMove == board.White {
			p.WhiteDifficulty = engine.Difficulty(req.Difficulty)
		} else {
			p.BlackDifficulty = engine.Difficulty(req.Difficulty)
		}
		g.SetPlayers(p)
	}

	if _, err := g.RequestEngineMove(context.Background()); err != nil {
		return err
	}
	c.Status(fiber.StatusAccepted)
	return s.state(c, id, g)
}

func (s *Server) cancelEngine(c *fiber.Ctx) error {
	id, g, err := s.lookup(c)
	if err != nil {
		return err
	}
	g.CancelInFlightSearch()
	return s.state(c, id, g)
}

func (s *Server) stepCount(c *fiber.Ctx) (int, error) {
	var req StepRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return 0, badRequest("invalid body: %v", err)
		}
	}
	return max(req.Count, 1), nil
}

func (s *Server) undo(c *fiber.Ctx) error {
	id, g, err := s.lookup(c)
	if err != nil {
		return err
	}
	n, err := s.stepCount(c)
	if err != nil {
		return err
	}
	if err := g.Undo(n); err != nil {
		return err
	}
	return s.state(c, id, g)
}

func (s *Server) redo(c *fiber.Ctx) error {
	id, g, err := s.lookup(c)
	if err != nil {
		return err
	}
	n, err := s.stepCount(c)
	if err != nil {
		return err
	}
	if err := g.Redo(n); err != nil {
		return err
	}
	return s.state(c, id, g)
}

func (s *Server) exportGame(c *fiber.Ctx) error {
	_, g, err := s.lookup(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := g.SaveTo(&buf); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(buf.Bytes())
}

func (s *Server) importGame(c *fiber.Ctx) error {
	id, g := s.games.Create()
	if err := g.LoadFrom(bytes.NewReader(c.Body())); err != nil {
		_ = s.games.Delete(id)
		return err
	}
	c.Status(fiber.StatusCreated)
	return s.state(c, id, g)
}

func (s *Server) listSaves(c *fiber.Ctx) error {
	saves, err := s.store.ListGames()
	if err != nil {
		return err
	}
	return c.JSON(saves)
}

func (s *Server) storeSave(c *fiber.Ctx) error {
	var req SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid body: %v", err)
	}
	g, err := s.games.Get(req.GameID)
	if err != nil {
		return err
	}
	name := c.Params("name")
	if err := s.store.SaveGame(name, g.Snapshot()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"name": name, "game_id": req.GameID})
}

func (s *Server) loadSave(c *fiber.Ctx) error {
	snap, err := s.store.LoadGame(c.Params("name"))
	if err != nil {
		return err
	}
	id, g := s.games.Create()
	g.Restore(snap)
	c.Status(fiber.StatusCreated)
	return s.state(c, id, g)
}

func (s *Server) deleteSave(c *fiber.Ctx) error {
	if err := s.store.DeleteGame(c.Params("name")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) stats(c *fiber.Ctx) error {
	st, err := s.store.LoadStats()
	if err != nil {
		return err
	}
	return c.JSON(st)
}
