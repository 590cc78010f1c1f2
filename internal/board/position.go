package board

import (
	"fmt"
	"strings"
)

// MovedFlags records which kings and castling rooks have left their home
// squares. Flags are only ever set, never cleared.
type MovedFlags uint8

const (
	WhiteKingMoved MovedFlags = 1 << iota
	WhiteSmallRookMoved
	WhiteLargeRookMoved
	BlackKingMoved
	BlackSmallRookMoved
	BlackLargeRookMoved
	NothingMoved MovedFlags = 0
	AllMoved     MovedFlags = WhiteKingMoved | WhiteSmallRookMoved | WhiteLargeRookMoved |
		BlackKingMoved | BlackSmallRookMoved | BlackLargeRookMoved
)

// movedFlagOrder is the order flags appear in keys and save files.
var movedFlagOrder = [6]MovedFlags{
	WhiteKingMoved, WhiteSmallRookMoved, WhiteLargeRookMoved,
	BlackKingMoved, BlackSmallRookMoved, BlackLargeRookMoved,
}

// Has reports whether all bits of f are set.
func (m MovedFlags) Has(f MovedFlags) bool {
	return m&f == f
}

// kingMoved returns the king flag of the given color.
func kingMoved(c Color) MovedFlags {
	if c == White {
		return WhiteKingMoved
	}
	return BlackKingMoved
}

// rookMoved returns the flag for the rook starting in the given corner
// column. Column 7 holds the small (kingside) rook.
func rookMoved(c Color, col int) MovedFlags {
	switch {
	case c == White && col == 7:
		return WhiteSmallRookMoved
	case c == White && col == 0:
		return WhiteLargeRookMoved
	case c == Black && col == 7:
		return BlackSmallRookMoved
	case c == Black && col == 0:
		return BlackLargeRookMoved
	}
	return NothingMoved
}

// Position is a complete game state. It is a plain value: assigning it
// copies the board.
type Position struct {
	Board      [8][8]Piece
	SideToMove Color
	// Draw50 counts half-turns since the last pawn move or capture.
	Draw50 int
	Moved  MovedFlags
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// At returns the piece on the given square.
func (p *Position) At(sq Square) Piece {
	return p.Board[sq.Row][sq.Col]
}

// Set places a piece on the given square.
func (p *Position) Set(sq Square, piece Piece) {
	p.Board[sq.Row][sq.Col] = piece
}

// Clear empties the given square.
func (p *Position) Clear(sq Square) {
	p.Board[sq.Row][sq.Col] = NoPiece
}

// KingSquare returns the square of the given color's king, or NoSquare.
func (p *Position) KingSquare(c Color) Square {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if cell := p.Board[row][col]; cell.Type == King && cell.Color == c {
				return Sq(row, col)
			}
		}
	}
	return NoSquare
}

// Key returns the canonical key of the position: every real piece as
// row, column, color and type, followed by the side to move and the six
// moved flags as T/F. En passant markers and the fifty-move counter are
// not part of the key.
func (p *Position) Key() string {
	var b strings.Builder
	b.Grow(32*4 + 7)
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			cell := p.Board[row][col]
			if !cell.Type.IsPiece() {
				continue
			}
			b.WriteByte(byte('0' + row))
			b.WriteByte(byte('0' + col))
			b.WriteByte(cell.Color.Char())
			b.WriteByte(cell.Type.Char())
		}
	}
	b.WriteString(p.FlagString())
	return b.String()
}

// FlagString returns the seven state flags as T/F characters: white to
// move, then the moved flags in save-file order.
func (p *Position) FlagString() string {
	var flags [7]byte
	flags[0] = tf(p.SideToMove == White)
	for i, f := range movedFlagOrder {
		flags[i+1] = tf(p.Moved.Has(f))
	}
	return string(flags[:])
}

// ParseFlagString is the inverse of FlagString.
func (p *Position) ParseFlagString(s string) error {
	if len(s) != 7 {
		return fmt.Errorf("invalid flags %q: need 7 characters", s)
	}
	var vals [7]bool
	for i := 0; i < 7; i++ {
		switch s[i] {
		case 'T':
			vals[i] = true
		case 'F':
		default:
			return fmt.Errorf("invalid flag character %q in %q", s[i], s)
		}
	}
	if vals[0] {
		p.SideToMove = White
	} else {
		p.SideToMove = Black
	}
	p.Moved = NothingMoved
	for i, f := range movedFlagOrder {
		if vals[i+1] {
			p.Moved |= f
		}
	}
	return nil
}

func tf(v bool) byte {
	if v {
		return 'T'
	}
	return 'F'
}

// Count returns the number of pieces of the given type and color.
func (p *Position) Count(pt PieceType, c Color) int {
	n := 0
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if cell := p.Board[row][col]; cell.Type == pt && cell.Color == c {
				n++
			}
		}
	}
	return n
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var b strings.Builder
	b.WriteByte('\n')
	for row := 0; row < 8; row++ {
		fmt.Fprintf(&b, "%d  ", 8-row)
		for col := 0; col < 8; col++ {
			cell := p.Board[row][col]
			if cell.Type.IsPiece() {
				b.WriteByte(cell.FENChar())
			} else {
				b.WriteByte('.')
			}
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	b.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&b, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&b, "Flags: %s\n", p.FlagString())
	fmt.Fprintf(&b, "Fifty-move counter: %d\n", p.Draw50)
	return b.String()
}

// Validate checks if the position is valid.
func (p *Position) Validate() error {
	if p.SideToMove != White && p.SideToMove != Black {
		return fmt.Errorf("invalid side to move: %s", p.SideToMove)
	}

	// Check that each side has exactly one king
	if p.Count(King, White) != 1 {
		return fmt.Errorf("white must have exactly one king")
	}
	if p.Count(King, Black) != 1 {
		return fmt.Errorf("black must have exactly one king")
	}

	for col := 0; col < 8; col++ {
		if p.Board[0][col].Type == Pawn || p.Board[7][col].Type == Pawn {
			return fmt.Errorf("pawns cannot be on rank 1 or 8")
		}
	}

	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			cell := p.Board[row][col]
			if cell.Type.IsPiece() && cell.Color == NoColor {
				return fmt.Errorf("%s on %s has no color", cell.Type, Sq(row, col))
			}
		}
	}

	if p.Draw50 < 0 {
		return fmt.Errorf("negative fifty-move counter: %d", p.Draw50)
	}

	return nil
}
