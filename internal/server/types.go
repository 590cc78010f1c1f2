package server

import (
	"github.com/hailam/chessmind/internal/board"
	"github.com/hailam/chessmind/internal/game"
)

// GameState is the JSON view of a game.
type GameState struct {
	ID              string    `json:"id"`
	Board           [8]string `json:"board"` // row 0 is rank 8, '.' marks a vacant cell
	FEN             string    `json:"fen"`
	SideToMove      string    `json:"side_to_move"`
	Status          string    `json:"status"`
	Check           bool      `json:"check"`
	MateOrStalemate bool      `json:"mate_or_stalemate"`
	LegalMoves      []string  `json:"legal_moves"`
	BlackLost       string    `json:"black_lost"`
	WhiteLost       string    `json:"white_lost"`
	Undo            int       `json:"undo"`
	Redo            int       `json:"redo"`
	LastMove        string    `json:"last_move,omitempty"`
	Searching       bool      `json:"searching"`
	WhiteHuman      bool      `json:"white_human"`
	BlackHuman      bool      `json:"black_human"`
	WhiteDifficulty int       `json:"white_difficulty"`
	BlackDifficulty int       `json:"black_difficulty"`
}

func newGameState(id string, v game.View) GameState {
	s := GameState{
		ID:              id,
		FEN:             v.Position.ToFEN(),
		SideToMove:      v.Position.SideToMove.String(),
		Status:          v.Status.String(),
		Check:           v.Check,
		MateOrStalemate: v.MateOrStalemate,
		LegalMoves:      make([]string, 0, len(v.Moves)),
		BlackLost:       pieceLetters(v.BlackLost),
		WhiteLost:       pieceLetters(v.WhiteLost),
		Undo:            v.Undo,
		Redo:            v.Redo,
		Searching:       v.Searching,
		WhiteHuman:      v.Players.WhiteHuman,
		BlackHuman:      v.Players.BlackHuman,
		WhiteDifficulty: int(v.Players.WhiteDifficulty),
		BlackDifficulty: int(v.Players.BlackDifficulty),
	}
	if v.LastMove != board.NoMove {
		s.LastMove = v.LastMove.String()
	}
	for row := 0; row < 8; row++ {
		line := make([]byte, 8)
		for col := 0; col < 8; col++ {
			p := v.Position.Board[row][col]
			if p.Type.IsPiece() {
				line[col] = p.FENChar()
			} else {
				line[col] = '.'
			}
		}
		s.Board[row] = string(line)
	}
	for _, m := range v.Moves {
		s.LegalMoves = append(s.LegalMoves, m.String())
	}
	return s
}

func pieceLetters(pieces []board.Piece) string {
	b := make([]byte, len(pieces))
	for i, p := range pieces {
		b[i] = p.FENChar()
	}
	return string(b)
}

// CreateRequest configures a new game. Omitted fields keep the defaults:
// two human players and difficulty 2.
type CreateRequest struct {
	FEN             string `json:"fen"`
	WhiteHuman      *bool  `json:"white_human"`
	BlackHuman      *bool  `json:"black_human"`
	WhiteDifficulty int    `json:"white_difficulty"`
	BlackDifficulty int    `json:"black_difficulty"`
}

// MoveRequest is a player move, either in coordinates
// ({"from":"e7","to":"e8","promotion":"n"}) or in SAN ({"san":"e8=N"}).
type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion"`
	SAN       string `json:"san"`
}

// EngineRequest optionally overrides the difficulty for the side to move.
type EngineRequest struct {
	Difficulty int `json:"difficulty"`
}

// StepRequest is the number of half-turns to undo or redo (default 1).
type StepRequest struct {
	Count int `json:"count"`
}

// SaveRequest names the game to store.
type SaveRequest struct {
	GameID string `json:"game_id"`
}

type progressEvent struct {
	Type  string `json:"type"`
	Done  int64  `json:"done"`
	Total int64  `json:"total"`
}

type stateEvent struct {
	Type  string    `json:"type"`
	State GameState `json:"state"`
}
