package board

// pseudoMoves returns the destinations of the piece on sq for the side to
// move, before any self-check filtering. attacked is the set of squares the
// opponent attacks; it restricts king steps and castling.
func pseudoMoves(p *Position, sq Square, attacked SquareSet, inCheck bool) []Square {
	piece := p.At(sq)
	switch piece.Type {
	case Pawn:
		return pawnMoves(p, sq, piece.Color)
	case Knight:
		return stepMoves(p, sq, piece.Color, knightOffsets[:], 0)
	case Bishop:
		return slideMoves(p, sq, piece.Color, diagonalDirs[:], nil)
	case Rook:
		return slideMoves(p, sq, piece.Color, straightDirs[:], nil)
	case Queen:
		moves := slideMoves(p, sq, piece.Color, straightDirs[:], nil)
		return slideMoves(p, sq, piece.Color, diagonalDirs[:], moves)
	case King:
		moves := stepMoves(p, sq, piece.Color, kingOffsets[:], attacked)
		if !inCheck {
			moves = appendCastling(p, sq, piece.Color, attacked, moves)
		}
		return moves
	default:
		panic("board: pseudoMoves called on " + piece.Type.String())
	}
}

func pawnMoves(p *Position, sq Square, us Color) []Square {
	var moves []Square
	dir := pawnDir(us)

	if one := sq.Offset(dir, 0); one.IsValid() && p.At(one).Type == Empty {
		moves = append(moves, one)
		if int(sq.Row) == pawnStartRow(us) {
			if two := sq.Offset(2*dir, 0); p.At(two).Type == Empty {
				moves = append(moves, two)
			}
		}
	}

	// Captures, including onto an opposing en passant marker.
	for _, dc := range [2]int{-1, 1} {
		to := sq.Offset(dir, dc)
		if !to.IsValid() {
			continue
		}
		if cell := p.At(to); cell.Type != Empty && cell.Color != us {
			moves = append(moves, to)
		}
	}
	return moves
}

// stepMoves handles knights and kings. Squares in forbidden are skipped.
func stepMoves(p *Position, sq Square, us Color, offsets [][2]int, forbidden SquareSet) []Square {
	var moves []Square
	for _, d := range offsets {
		to := sq.Offset(d[0], d[1])
		if !to.IsValid() || forbidden.Has(to) {
			continue
		}
		if cell := p.At(to); cell.Type.Vacant() || cell.Color != us {
			moves = append(moves, to)
		}
	}
	return moves
}

func slideMoves(p *Position, sq Square, us Color, dirs [][2]int, moves []Square) []Square {
	for _, d := range dirs {
		for to := sq.Offset(d[0], d[1]); to.IsValid(); to = to.Offset(d[0], d[1]) {
			cell := p.At(to)
			if cell.Type.Vacant() {
				moves = append(moves, to)
				continue
			}
			if cell.Color != us {
				moves = append(moves, to)
			}
			break
		}
	}
	return moves
}

// appendCastling adds the king's two-column castling steps. The king and
// the rook must never have moved and the rook must still be on its corner.
// The squares the king crosses and lands on must be empty and unattacked;
// on the queen side the square next to the rook must be empty too.
func appendCastling(p *Position, sq Square, us Color, attacked SquareSet, moves []Square) []Square {
	home := HomeRow(us)
	if p.Moved.Has(kingMoved(us)) || sq != Sq(home, 4) {
		return moves
	}
	rook := NewPiece(Rook, us)
	safe := func(col int) bool {
		s := Sq(home, col)
		return p.At(s).Type == Empty && !attacked.Has(s)
	}

	if !p.Moved.Has(rookMoved(us, 7)) && p.At(Sq(home, 7)) == rook && safe(5) && safe(6) {
		moves = append(moves, Sq(home, 6))
	}
	if !p.Moved.Has(rookMoved(us, 0)) && p.At(Sq(home, 0)) == rook && safe(3) && safe(2) &&
		p.At(Sq(home, 1)).Type == Empty {
		moves = append(moves, Sq(home, 2))
	}
	return moves
}
