package board

// Direction tables as (row, col) deltas.
var (
	knightOffsets = [8][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingOffsets   = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	straightDirs  = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	diagonalDirs  = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// Threats describes what the side not on move does to the side on move:
// every square it attacks (including squares held by its own pieces, so a
// defended piece cannot be taken by the king) and every piece of the side on
// move that is pinned against its own king.
//
// Threats values are shared through the position cache and must not be
// modified after construction.
type Threats struct {
	Attacked   SquareSet
	Protectors SquareSet
}

// computeThreats scans every piece of the side not on move.
func computeThreats(p *Position) *Threats {
	t := &Threats{}
	them := p.SideToMove.Other()
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			cell := p.Board[row][col]
			if !cell.Type.IsPiece() || cell.Color != them {
				continue
			}
			attacks, pinned := attacksFrom(p, Sq(row, col))
			t.Attacked |= attacks
			if pinned != NoSquare {
				t.Protectors = t.Protectors.Add(pinned)
			}
		}
	}
	return t
}

// attacksFrom returns the squares attacked by the piece on sq and, for
// sliders, the square of an opposing piece pinned against its king
// (NoSquare if none).
func attacksFrom(p *Position, sq Square) (SquareSet, Square) {
	piece := p.At(sq)
	switch piece.Type {
	case Pawn:
		var s SquareSet
		dir := pawnDir(piece.Color)
		for _, dc := range [2]int{-1, 1} {
			if to := sq.Offset(dir, dc); to.IsValid() {
				s = s.Add(to)
			}
		}
		return s, NoSquare
	case Knight:
		return stepAttacks(sq, knightOffsets[:]), NoSquare
	case King:
		return stepAttacks(sq, kingOffsets[:]), NoSquare
	case Bishop:
		return slideAttacks(p, sq, piece.Color, diagonalDirs[:])
	case Rook:
		return slideAttacks(p, sq, piece.Color, straightDirs[:])
	case Queen:
		straight, rookPin := slideAttacks(p, sq, piece.Color, straightDirs[:])
		diagonal, bishopPin := slideAttacks(p, sq, piece.Color, diagonalDirs[:])
		pinned := rookPin
		if bishopPin != NoSquare {
			pinned = bishopPin
		}
		return straight | diagonal, pinned
	default:
		panic("board: attacksFrom called on " + piece.Type.String())
	}
}

func stepAttacks(sq Square, offsets [][2]int) SquareSet {
	var s SquareSet
	for _, d := range offsets {
		if to := sq.Offset(d[0], d[1]); to.IsValid() {
			s = s.Add(to)
		}
	}
	return s
}

// slideAttacks walks each ray up to and including the first occupied
// square. When that square holds an opposing piece, the ray is followed
// further: if the next piece on it is the opposing king, the first piece is
// pinned.
func slideAttacks(p *Position, sq Square, us Color, dirs [][2]int) (SquareSet, Square) {
	var s SquareSet
	pinned := NoSquare
	for _, d := range dirs {
		cur := sq.Offset(d[0], d[1])
		for cur.IsValid() {
			s = s.Add(cur)
			cell := p.At(cur)
			if cell.Type.Vacant() {
				cur = cur.Offset(d[0], d[1])
				continue
			}
			if cell.Color != us && cell.Type != King {
				if behind := firstPiece(p, cur, d); behind.Type == King && behind.Color == cell.Color {
					pinned = cur
				}
			}
			break
		}
	}
	return s, pinned
}

// firstPiece returns the first real piece beyond sq along d, or NoPiece.
func firstPiece(p *Position, sq Square, d [2]int) Piece {
	for cur := sq.Offset(d[0], d[1]); cur.IsValid(); cur = cur.Offset(d[0], d[1]) {
		if cell := p.At(cur); cell.Type.IsPiece() {
			return cell
		}
	}
	return NoPiece
}
