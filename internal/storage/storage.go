package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chessmind/internal/board"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyStats       = "stats"
	prefixGame     = "game/"
	prefixMeta     = "meta/"
)

// ErrNotFound is returned when a saved game does not exist.
var ErrNotFound = errors.New("saved game not found")

// Preferences stores the player setup.
type Preferences struct {
	PlayerIsWhite   bool          `json:"player_is_white"`
	PlayerIsBlack   bool          `json:"player_is_black"`
	WhiteDifficulty int           `json:"white_difficulty"`
	BlackDifficulty int           `json:"black_difficulty"`
	MinThinkTime    time.Duration `json:"min_think_time"`
	LastPlayed      time.Time     `json:"last_played"`
}

// DefaultPreferences returns two human players, difficulty 2 for both
// engine sides and a three second minimum think time.
func DefaultPreferences() *Preferences {
	return &Preferences{
		PlayerIsWhite:   true,
		PlayerIsBlack:   true,
		WhiteDifficulty: 2,
		BlackDifficulty: 2,
		MinThinkTime:    3 * time.Second,
	}
}

// GameStats stores game statistics
type GameStats struct {
	GamesPlayed   int           `json:"games_played"`
	WhiteWins     int           `json:"white_wins"`
	BlackWins     int           `json:"black_wins"`
	Draws         int           `json:"draws"`
	TotalHalfTurn int           `json:"total_half_turns"`
	TotalPlayTime time.Duration `json:"total_play_time"`
}

// GameResult represents the result of a completed game
type GameResult struct {
	Winner    board.Color // NoColor for a draw
	HalfTurns int
	Duration  time.Duration
}

// SaveInfo describes a stored game.
type SaveInfo struct {
	Name       string      `json:"name"`
	SavedAt    time.Time   `json:"saved_at"`
	SideToMove board.Color `json:"side_to_move"`
	HalfTurns  int         `json:"half_turns"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens or creates the database in dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dir, err)
	}

	return &Storage{db: db}, nil
}

// OpenInMemory opens a database that lives only in memory.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// getJSON decodes the value under key into v. It reports false when the
// key does not exist.
func (s *Storage) getJSON(key string, v any) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	return found, err
}

// SavePreferences saves user preferences
func (s *Storage) SavePreferences(prefs *Preferences) error {
	prefs.LastPlayed = time.Now()
	return s.putJSON(keyPreferences, prefs)
}

// LoadPreferences loads user preferences, returns defaults if not found
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()
	if _, err := s.getJSON(keyPreferences, prefs); err != nil {
		return DefaultPreferences(), fmt.Errorf("loading preferences: %w", err)
	}
	return prefs, nil
}

// LoadStats loads game statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*GameStats, error) {
	stats := &GameStats{}
	if _, err := s.getJSON(keyStats, stats); err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	return stats, nil
}

// RecordGame records a completed game and updates statistics
func (s *Storage) RecordGame(result GameResult) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.GamesPlayed++
	stats.TotalHalfTurn += result.HalfTurns
	stats.TotalPlayTime += result.Duration

	switch result.Winner {
	case board.White:
		stats.WhiteWins++
	case board.Black:
		stats.BlackWins++
	default:
		stats.Draws++
	}

	return s.putJSON(keyStats, stats)
}

// SaveGame stores a snapshot under name, replacing any previous save.
func (s *Storage) SaveGame(name string, snap *Snapshot) error {
	if name == "" || strings.ContainsAny(name, "/\n") {
		return fmt.Errorf("invalid save name %q", name)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return err
	}
	meta, err := json.Marshal(SaveInfo{
		Name:       name,
		SavedAt:    time.Now(),
		SideToMove: snap.Position.SideToMove,
		HalfTurns:  len(snap.History),
	})
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(prefixGame+name), buf.Bytes()); err != nil {
			return err
		}
		return txn.Set([]byte(prefixMeta+name), meta)
	})
}

// LoadGame decodes the save stored under name.
func (s *Storage) LoadGame(name string) (*Snapshot, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixGame + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", name, err)
	}

	snap, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", name, err)
	}
	return snap, nil
}

// DeleteGame removes a save. Deleting a missing save returns ErrNotFound.
func (s *Storage) DeleteGame(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(prefixGame + name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := txn.Delete([]byte(prefixGame + name)); err != nil {
			return err
		}
		return txn.Delete([]byte(prefixMeta + name))
	})
}

// ListGames returns the stored saves, most recent first.
func (s *Storage) ListGames() ([]SaveInfo, error) {
	var saves []SaveInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixMeta)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var info SaveInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return err
			}
			saves = append(saves, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}

	sort.Slice(saves, func(i, j int) bool {
		return saves[i].SavedAt.After(saves[j].SavedAt)
	})
	return saves, nil
}
