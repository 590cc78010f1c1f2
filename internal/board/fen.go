package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Position. Missing castling
// availability sets the matching moved flags; the en passant target becomes
// a marker owned by the side that just moved. The full-move number is
// accepted and ignored.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fmt.Errorf("fen %q: want at least 4 fields, have %d", fen, len(fields))
	}

	pos := &Position{}
	if err := readPlacement(pos, fields[0]); err != nil {
		return nil, err
	}
	side, ok := map[string]Color{"w": White, "b": Black}[fields[1]]
	if !ok {
		return nil, fmt.Errorf("fen: side to move must be w or b, not %q", fields[1])
	}
	pos.SideToMove = side
	if err := readCastling(pos, fields[2]); err != nil {
		return nil, err
	}
	if err := readEnPassant(pos, fields[3]); err != nil {
		return nil, err
	}
	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("fen: bad halfmove clock %q", fields[4])
		}
		pos.Draw50 = n
	}

	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("fen: %w", err)
	}
	return pos, nil
}

// readPlacement fills the board from the first FEN field. The first rank
// listed is rank 8, which is row 0.
func readPlacement(pos *Position, field string) error {
	rows := strings.Split(field, "/")
	if len(rows) != 8 {
		return fmt.Errorf("fen: board has %d ranks, want 8", len(rows))
	}
	for row, text := range rows {
		col := 0
		for i := 0; i < len(text); i++ {
			ch := text[i]
			if col >= 8 {
				return fmt.Errorf("fen: rank %d overflows", 8-row)
			}
			if '1' <= ch && ch <= '8' {
				col += int(ch - '0')
				continue
			}
			pt, ok := PieceTypeFromChar(ch)
			if !ok {
				return fmt.Errorf("fen: unknown piece %q", ch)
			}
			owner := White
			if ch >= 'a' {
				owner = Black
			}
			pos.Set(Sq(row, col), NewPiece(pt, owner))
			col++
		}
		if col != 8 {
			return fmt.Errorf("fen: rank %d covers %d squares", 8-row, col)
		}
	}
	return nil
}

var castlingFlags = map[rune]MovedFlags{
	'K': WhiteKingMoved | WhiteSmallRookMoved,
	'Q': WhiteKingMoved | WhiteLargeRookMoved,
	'k': BlackKingMoved | BlackSmallRookMoved,
	'q': BlackKingMoved | BlackLargeRookMoved,
}

// readCastling maps castling availability onto moved flags: everything
// counts as moved unless a letter clears it.
func readCastling(pos *Position, field string) error {
	pos.Moved = AllMoved
	if field == "-" {
		return nil
	}
	for _, r := range field {
		flags, ok := castlingFlags[r]
		if !ok {
			return fmt.Errorf("fen: bad castling letter %q", r)
		}
		pos.Moved &^= flags
	}
	return nil
}

func readEnPassant(pos *Position, field string) error {
	if field == "-" {
		return nil
	}
	sq, err := ParseSquare(field)
	if err != nil || (sq.Row != 2 && sq.Row != 5) {
		return fmt.Errorf("fen: bad en passant square %q", field)
	}
	if !pos.At(sq).Type.Vacant() {
		return fmt.Errorf("fen: en passant square %s is occupied", sq)
	}
	pos.Set(sq, NewPiece(EnPassant, pos.SideToMove.Other()))
	return nil
}

// ToFEN returns the FEN representation of the position with a full-move
// number of 1.
func (p *Position) ToFEN() string {
	var sb strings.Builder
	enPassant := NoSquare

	for row := 0; row < 8; row++ {
		empty := 0
		for col := 0; col < 8; col++ {
			cell := p.Board[row][col]
			if cell.Type == EnPassant {
				enPassant = Sq(row, col)
			}
			if !cell.Type.IsPiece() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(cell.FENChar())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row < 7 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(p.castlingString())

	sb.WriteByte(' ')
	sb.WriteString(enPassant.String())

	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.Draw50))
	sb.WriteString(" 1")

	return sb.String()
}

func (p *Position) castlingString() string {
	s := ""
	if !p.Moved.Has(WhiteKingMoved) && !p.Moved.Has(WhiteSmallRookMoved) {
		s += "K"
	}
	if !p.Moved.Has(WhiteKingMoved) && !p.Moved.Has(WhiteLargeRookMoved) {
		s += "Q"
	}
	if !p.Moved.Has(BlackKingMoved) && !p.Moved.Has(BlackSmallRookMoved) {
		s += "k"
	}
	if !p.Moved.Has(BlackKingMoved) && !p.Moved.Has(BlackLargeRookMoved) {
		s += "q"
	}
	if s == "" {
		return "-"
	}
	return s
}
