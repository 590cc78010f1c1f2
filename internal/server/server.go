// Package server exposes games over HTTP/JSON and streams search progress
// over websockets.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/game"
	"github.com/hailam/chessmind/internal/storage"
)

// Options configures a Server.
type Options struct {
	Engine          engine.Config
	Storage         *storage.Storage // nil disables the saves routes
	WhiteDifficulty engine.Difficulty
	BlackDifficulty engine.Difficulty
	Logger          *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	app   *fiber.App
	games *Manager
	store *storage.Storage
	log   *zap.Logger

	defaultPlayers game.Players
}

// New builds the fiber app and registers all routes.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var recorder game.ResultRecorder
	if opts.Storage != nil {
		recorder = opts.Storage
	}

	players := game.DefaultPlayers()
	if opts.WhiteDifficulty > 0 {
		players.WhiteDifficulty = opts.WhiteDifficulty
	}
	if opts.BlackDifficulty > 0 {
		players.BlackDifficulty = opts.BlackDifficulty
	}

	s := &Server{
		games:          NewManager(opts.Engine, recorder, log),
		store:          opts.Storage,
		log:            log,
		defaultPlayers: players,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "chessmind",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(s.logRequests)

	s.app.Use("/ws", s.requireUpgrade)
	s.app.Get("/ws/games/:id", websocket.New(s.streamGame))

	api := s.app.Group("/api")

	games := api.Group("/games")
	games.Post("/", s.createGame)
	games.Post("/import", s.importGame)
	games.Get("/:id", s.getGame)
	games.Delete("/:id", s.deleteGame)
	games.Post("/:id/moves", s.playMove)
	games.Post("/:id/engine", s.startEngine)
	games.Delete("/:id/engine", s.cancelEngine)
	games.Post("/:id/undo", s.undo)
	games.Post("/:id/redo", s.redo)
	games.Get("/:id/export", s.exportGame)

	saves := api.Group("/saves", s.requireStorage)
	saves.Get("/", s.listSaves)
	saves.Put("/:name", s.storeSave)
	saves.Post("/:name/load", s.loadSave)
	saves.Delete("/:name", s.deleteSave)

	api.Get("/stats", s.requireStorage, s.stats)
}

// App returns the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Games returns the game manager.
func (s *Server) Games() *Manager {
	return s.games
}

// Listen serves until ctx is cancelled or the listener fails.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errc <- s.app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.games.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return err
}

func (s *Server) requireStorage(c *fiber.Ctx) error {
	if s.store == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "storage is not configured")
	}
	return c.Next()
}

// handleError maps domain errors to HTTP status codes.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, ErrGameNotFound), errors.Is(err, storage.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, game.ErrIllegalMove), errors.Is(err, storage.ErrMalformed):
		code = fiber.StatusBadRequest
	case errors.Is(err, game.ErrSearchRunning),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrNothingToUndo),
		errors.Is(err, game.ErrNothingToRedo):
		code = fiber.StatusConflict
	}
	if code == fiber.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
