package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hailam/chessmind/internal/engine"
	"github.com/hailam/chessmind/internal/game"
)

var ErrGameNotFound = errors.New("game not found")

// Manager owns the running games. Each game gets its own engine so that
// searches in different games never cancel each other.
type Manager struct {
	games map[string]*game.Game
	mu    sync.RWMutex

	engineCfg engine.Config
	recorder  game.ResultRecorder
	log       *zap.Logger
}

// NewManager creates an empty manager. recorder may be nil.
func NewManager(cfg engine.Config, recorder game.ResultRecorder, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		games:     make(map[string]*game.Game),
		engineCfg: cfg,
		recorder:  recorder,
		log:       log,
	}
}

// Create starts a new game and returns its id.
func (m *Manager) Create() (string, *game.Game) {
	id := uuid.New().String()
	log := m.log.With(zap.String("game", id))

	cfg := m.engineCfg
	cfg.Logger = log
	g := game.New(engine.NewEngine(cfg), log)
	if m.recorder != nil {
		g.SetRecorder(m.recorder)
	}

	m.mu.Lock()
	m.games[id] = g
	m.mu.Unlock()

	log.Info("game created")
	return id, g
}

// Get returns the game with the given id.
func (m *Manager) Get(id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// Delete stops and forgets a game.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	g, ok := m.games[id]
	delete(m.games, id)
	m.mu.Unlock()

	if !ok {
		return ErrGameNotFound
	}
	g.CancelInFlightSearch()
	m.log.Info("game deleted", zap.String("game", id))
	return nil
}

// Len returns the number of games.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// Close cancels every search in flight.
func (m *Manager) Close() {
	m.mu.RLock()
	games := make([]*game.Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.mu.RUnlock()

	for _, g := range games {
		g.CancelInFlightSearch()
	}
}
