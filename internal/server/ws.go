package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/hailam/chessmind/internal/game"
)

// progressInterval is how often a connected client is polled for changes.
const progressInterval = 125 * time.Millisecond

// requireUpgrade rejects plain HTTP requests and unknown games before the
// websocket handshake.
func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// streamGame sends a state event whenever the game changes and a progress
// event on every tick while the engine is thinking.
func (s *Server) streamGame(c *websocket.Conn) {
	id := c.Params("id")
	g, err := s.games.Get(id)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"type": "error", "error": err.Error()})
		return
	}
	log := s.log.With(zap.String("game", id))
	log.Debug("websocket connected")
	defer log.Debug("websocket closed")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var last watermark
	for {
		if err := s.pushChanges(c, id, g, &last); err != nil {
			log.Debug("websocket write failed", zap.Error(err))
			return
		}
		select {
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}

// watermark identifies the last state sent to a client.
type watermark struct {
	sent bool
	key  string
	undo int
	redo int
	busy bool
}

func (s *Server) pushChanges(c *websocket.Conn, id string, g *game.Game, last *watermark) error {
	if done, total, ok := g.Progress(); ok {
		if err := c.WriteJSON(progressEvent{Type: "progress", Done: done, Total: total}); err != nil {
			return err
		}
	}

	v := g.View()
	cur := watermark{sent: true, key: v.Position.Key(), undo: v.Undo, redo: v.Redo, busy: v.Searching}
	if cur == *last {
		return nil
	}
	*last = cur
	return c.WriteJSON(stateEvent{Type: "state", State: newGameState(id, v)})
}
