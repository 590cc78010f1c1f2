package board

import (
	"math/bits"
	"strings"
)

// SquareSet is a set of squares stored as a 64-bit mask indexed by
// Square.Index. The zero value is the empty set.
type SquareSet uint64

// Add returns the set with sq included.
func (s SquareSet) Add(sq Square) SquareSet {
	return s | 1<<uint(sq.Index())
}

// Has reports whether sq is in the set.
func (s SquareSet) Has(sq Square) bool {
	if !sq.IsValid() {
		return false
	}
	return s&(1<<uint(sq.Index())) != 0
}

// Len returns the number of squares in the set.
func (s SquareSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// Squares returns the members in row-major order.
func (s SquareSet) Squares() []Square {
	squares := make([]Square, 0, s.Len())
	for s != 0 {
		idx := bits.TrailingZeros64(uint64(s))
		squares = append(squares, SquareAt(idx))
		s &= s - 1
	}
	return squares
}

// String returns a visual representation of the set, row 0 first.
func (s SquareSet) String() string {
	var b strings.Builder
	for row := 0; row < 8; row++ {
		b.WriteByte(byte('8' - row))
		b.WriteByte(' ')
		for col := 0; col < 8; col++ {
			if s.Has(Sq(row, col)) {
				b.WriteString("1 ")
			} else {
				b.WriteString(". ")
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("  a b c d e f g h\n")
	return b.String()
}
