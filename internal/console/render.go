package console

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/hailam/chessmind/internal/board"
)

// ANSI codes for the colored board.
const (
	reset   = "\033[0m"
	lightBg = "\033[47m"
	darkBg  = "\033[100m"
	whiteF  = "\033[97m"
	blackF  = "\033[30m"
	dimF    = "\033[90m"
)

var glyphs = map[board.Piece]string{
	board.NewPiece(board.King, board.White):   "♔",
	board.NewPiece(board.Queen, board.White):  "♕",
	board.NewPiece(board.Rook, board.White):   "♖",
	board.NewPiece(board.Bishop, board.White): "♗",
	board.NewPiece(board.Knight, board.White): "♘",
	board.NewPiece(board.Pawn, board.White):   "♙",
	board.NewPiece(board.King, board.Black):   "♚",
	board.NewPiece(board.Queen, board.Black):  "♛",
	board.NewPiece(board.Rook, board.Black):   "♜",
	board.NewPiece(board.Bishop, board.Black): "♝",
	board.NewPiece(board.Knight, board.Black): "♞",
	board.NewPiece(board.Pawn, board.Black):   "♟",
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderBoard draws the position with rank 8 on top. Colored output uses
// unicode glyphs on shaded squares; plain output uses FEN letters.
func renderBoard(p *board.Position, color bool) string {
	var sb strings.Builder
	sb.WriteString("   a  b  c  d  e  f  g  h\n")
	for row := 0; row < 8; row++ {
		rank := string(rune('8' - row))
		sb.WriteString(rank + " ")
		for col := 0; col < 8; col++ {
			piece := p.Board[row][col]
			if !color {
				c := byte('.')
				if piece.Type.IsPiece() {
					c = piece.FENChar()
				}
				sb.WriteString(" " + string(c) + " ")
				continue
			}

			g, ok := glyphs[piece]
			if !ok {
				g = " "
			}
			bg, fg := darkBg, dimF
			if (row+col)%2 == 0 {
				bg = lightBg
				if ok {
					fg = blackF
				}
			} else if ok {
				fg = blackF
				if piece.Color == board.White {
					fg = whiteF
				}
			}
			sb.WriteString(bg + fg + " " + g + " " + reset)
		}
		sb.WriteString(" " + rank + "\n")
	}
	sb.WriteString("   a  b  c  d  e  f  g  h\n")
	return sb.String()
}

func pieceList(pieces []board.Piece) string {
	if len(pieces) == 0 {
		return "-"
	}
	b := make([]byte, len(pieces))
	for i, p := range pieces {
		b[i] = p.FENChar()
	}
	return string(b)
}
