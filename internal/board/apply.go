package board

import "fmt"

// Apply performs the half-turn from -> to in place. It handles en passant
// capture and marker placement, castling rook relocation, the moved flags
// and the fifty-move counter, then passes the turn. With autoPromote a pawn
// reaching the last rank becomes a queen; otherwise it stays a pawn and the
// caller is responsible for replacing it.
//
// Apply does not check legality. Moving from a square without a piece
// panics.
func (p *Position) Apply(from, to Square, autoPromote bool) {
	mover := p.At(from)
	if !mover.Type.IsPiece() {
		panic(fmt.Sprintf("board: no piece to move on %s", from))
	}
	target := p.At(to)
	resetDraw50 := false

	if mover.Type == Pawn {
		resetDraw50 = true
		if target.Type == EnPassant {
			p.Clear(to.Offset(pawnDir(target.Color), 0))
		}
	}

	p.clearEnPassant()

	if mover.Type == Pawn && (to.Row-from.Row == 2 || from.Row-to.Row == 2) {
		p.Set(Sq(int(from.Row+to.Row)/2, int(from.Col)), NewPiece(EnPassant, mover.Color))
	}

	if mover.Type == Rook && int(from.Row) == HomeRow(mover.Color) {
		p.Moved |= rookMoved(mover.Color, int(from.Col))
	}
	// A rook captured in its corner can never castle.
	if target.Type == Rook && int(to.Row) == HomeRow(target.Color) {
		p.Moved |= rookMoved(target.Color, int(to.Col))
	}

	if mover.Type == King {
		p.Moved |= kingMoved(mover.Color)
		// The rook rides along inside this half-turn, so castling adds one
		// to Draw50, not two.
		if d := to.Col - from.Col; d > 1 || d < -1 {
			p.castleRook(from.Row, d > 0, mover.Color)
		}
	}

	if target.Type.IsPiece() {
		resetDraw50 = true
	}

	p.Clear(from)
	p.Set(to, mover)

	if resetDraw50 {
		p.Draw50 = 0
	} else {
		p.Draw50++
	}

	if autoPromote && mover.Type == Pawn && (to.Row == 0 || to.Row == 7) {
		p.Set(to, NewPiece(Queen, mover.Color))
	}

	p.SideToMove = p.SideToMove.Other()
}

// castleRook moves the castling rook next to the king's landing square.
func (p *Position) castleRook(row int8, kingSide bool, us Color) {
	from, to := Square{Row: row, Col: 0}, Square{Row: row, Col: 3}
	if kingSide {
		from, to = Square{Row: row, Col: 7}, Square{Row: row, Col: 5}
	}
	p.Set(to, p.At(from))
	p.Clear(from)
	p.Moved |= rookMoved(us, int(from.Col))
}

// clearEnPassant removes any marker left by the previous half-turn.
func (p *Position) clearEnPassant() {
	for _, row := range [2]int{2, 5} {
		for col := 0; col < 8; col++ {
			if p.Board[row][col].Type == EnPassant {
				p.Board[row][col] = NoPiece
			}
		}
	}
}

// EnPassantSquare returns the square of the current marker, or NoSquare.
func (p *Position) EnPassantSquare() Square {
	for _, row := range [2]int{2, 5} {
		for col := 0; col < 8; col++ {
			if p.Board[row][col].Type == EnPassant {
				return Sq(row, col)
			}
		}
	}
	return NoSquare
}
