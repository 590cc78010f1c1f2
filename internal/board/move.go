package board

import "fmt"

// Move is a from/to pair. Promotion is only meaningful for a pawn reaching
// the last rank and is Empty when unspecified.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
}

// NoMove represents an invalid or null move.
var NoMove = Move{From: NoSquare, To: NoSquare}

// NewMove creates a move without a promotion choice.
func NewMove(from, to Square) Move {
	return Move{From: from, To: to}
}

// String returns the coordinate form of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if !m.From.IsValid() || !m.To.IsValid() {
		return "0000"
	}
	s := m.From.String() + m.To.String()
	if m.Promotion.IsPiece() {
		s += string(m.Promotion.Char() + 'a' - 'A')
	}
	return s
}

// ParseMove parses a coordinate move string such as "e2e4" or "e7e8n".
func ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("invalid move string: %q", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	m := NewMove(from, to)
	if len(s) == 5 {
		pt, ok := PieceTypeFromChar(s[4])
		if !ok || pt == King || pt == Pawn {
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		m.Promotion = pt
	}
	return m, nil
}

// IsPromotion reports whether m moves a pawn onto its last rank in pos.
func (m Move) IsPromotion(pos *Position) bool {
	return pos.At(m.From).Type == Pawn && (m.To.Row == 0 || m.To.Row == 7)
}
