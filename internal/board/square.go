// Package board implements the chess rules: board representation, per-piece
// move generation, legality analysis and move application.
package board

import "fmt"

// Square is a board coordinate. Row 0 is Black's back rank, row 7 is White's.
// Column 0 is the a-file.
type Square struct {
	Row int8
	Col int8
}

// NoSquare is the sentinel for "no square". Its row is out of range.
var NoSquare = Square{Row: 8, Col: 8}

// Sq creates a square from row and column.
func Sq(row, col int) Square {
	return Square{Row: int8(row), Col: int8(col)}
}

// IsValid returns true if the square lies on the board.
func (sq Square) IsValid() bool {
	return sq.Row >= 0 && sq.Row < 8 && sq.Col >= 0 && sq.Col < 8
}

// Offset returns the square shifted by the given row and column deltas.
// The result may be off the board.
func (sq Square) Offset(dRow, dCol int) Square {
	return Square{Row: sq.Row + int8(dRow), Col: sq.Col + int8(dCol)}
}

// Index returns the square as 0-63 in row-major order.
func (sq Square) Index() int {
	return int(sq.Row)*8 + int(sq.Col)
}

// SquareAt is the inverse of Index.
func SquareAt(idx int) Square {
	return Sq(idx/8, idx%8)
}

// String returns the algebraic notation for the square (e.g., "e4").
func (sq Square) String() string {
	if !sq.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.Col, '8'-sq.Row)
}

// ParseSquare parses algebraic notation (e.g., "e4") into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}

	col := int(s[0]) - 'a'
	row := '8' - int(s[1])

	if col < 0 || col > 7 || row < 0 || row > 7 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}

	return Sq(row, col), nil
}

// HomeRow returns the back rank of the given color.
func HomeRow(c Color) int {
	if c == White {
		return 7
	}
	return 0
}

// pawnDir is the row delta of a pawn step for the given color.
func pawnDir(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

// pawnStartRow is the row pawns of the given color start on.
func pawnStartRow(c Color) int {
	if c == White {
		return 6
	}
	return 1
}
