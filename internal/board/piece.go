package board

import "fmt"

// Color represents the color of a piece or player. The zero value is
// NoColor so that a zero Piece is an empty cell.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

// Other returns the opposite color. NoColor stays NoColor.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "NoColor"
	}
}

// Char returns the single-letter color token used in keys and save files.
func (c Color) Char() byte {
	switch c {
	case White:
		return 'w'
	case Black:
		return 'b'
	default:
		return '-'
	}
}

// PieceType is the status of a board cell.
type PieceType uint8

const (
	Empty PieceType = iota
	// EnPassant marks the square a pawn skipped over with its double step.
	// It is visible only during the following half-turn and is never a
	// blocker for sliding pieces.
	EnPassant
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case Empty:
		return "Empty"
	case EnPassant:
		return "EnPassant"
	case King:
		return "King"
	case Queen:
		return "Queen"
	case Rook:
		return "Rook"
	case Bishop:
		return "Bishop"
	case Knight:
		return "Knight"
	case Pawn:
		return "Pawn"
	default:
		return fmt.Sprintf("PieceType(%d)", uint8(pt))
	}
}

// Char returns the upper-case letter for the piece type. Empty squares and
// en passant markers both render as a space.
func (pt PieceType) Char() byte {
	switch pt {
	case King:
		return 'K'
	case Queen:
		return 'Q'
	case Rook:
		return 'R'
	case Bishop:
		return 'B'
	case Knight:
		return 'N'
	case Pawn:
		return 'P'
	default:
		return ' '
	}
}

// PieceTypeFromChar parses an upper- or lower-case piece letter.
func PieceTypeFromChar(c byte) (PieceType, bool) {
	switch c {
	case 'K', 'k':
		return King, true
	case 'Q', 'q':
		return Queen, true
	case 'R', 'r':
		return Rook, true
	case 'B', 'b':
		return Bishop, true
	case 'N', 'n':
		return Knight, true
	case 'P', 'p':
		return Pawn, true
	}
	return Empty, false
}

// IsPiece reports whether the type is a real piece (not Empty, not a marker).
func (pt PieceType) IsPiece() bool {
	return pt >= King && pt <= Pawn
}

// Vacant reports whether a cell of this type can be entered or slid through
// as if nothing stood there.
func (pt PieceType) Vacant() bool {
	return pt == Empty || pt == EnPassant
}

// Value is the material value used by the search heuristic. Kings are never
// captured and carry no value.
func (pt PieceType) Value() int {
	switch pt {
	case Pawn, EnPassant:
		return 1
	case Knight, Bishop:
		return 3
	case Rook:
		return 5
	case Queen:
		return 9
	default:
		return 0
	}
}

// Piece identifies the content of a single cell.
type Piece struct {
	Type  PieceType
	Color Color
}

// NoPiece is an empty cell. It is the zero value.
var NoPiece = Piece{}

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	return Piece{Type: pt, Color: c}
}

// String returns the two-character cell notation, e.g. "Pw" or "Kb".
// Vacant cells render as "[ ".
func (p Piece) String() string {
	if !p.Type.IsPiece() {
		return "[ "
	}
	return string([]byte{p.Type.Char(), p.Color.Char()})
}

// FENChar returns the FEN letter: upper case for white, lower case for black.
func (p Piece) FENChar() byte {
	c := p.Type.Char()
	if p.Color == Black && c != ' ' {
		c += 'a' - 'A'
	}
	return c
}
