package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hailam/chessmind/internal/board"
)

// ErrMalformed is returned when saved game text cannot be decoded.
var ErrMalformed = errors.New("malformed saved game")

// blockLines is the number of lines of one encoded position.
const blockLines = 9

// Snapshot is everything a saved game holds.
type Snapshot struct {
	Position board.Position
	// History holds earlier positions, oldest first.
	History []board.Position
	// BlackLost and WhiteLost list captured pieces in capture order.
	BlackLost []board.Piece
	WhiteLost []board.Piece
}

// Encode writes the snapshot as text: the current position block, the
// history blocks oldest first, then the captured black pieces and the
// captured white pieces on one line each.
//
// A block is eight board lines, row 0 first, two characters per cell
// ("Kw", "Pb", or "[ " for an empty cell or en passant marker), followed by
// the seven T/F flags and the fifty-move counter.
func Encode(w io.Writer, s *Snapshot) error {
	bw := bufio.NewWriter(w)

	writeBlock(bw, &s.Position)
	for i := range s.History {
		writeBlock(bw, &s.History[i])
	}
	writePieces(bw, s.BlackLost)
	writePieces(bw, s.WhiteLost)

	return bw.Flush()
}

func writeBlock(w *bufio.Writer, p *board.Position) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			w.WriteString(p.Board[row][col].String())
		}
		w.WriteByte('\n')
	}
	w.WriteString(p.FlagString())
	w.WriteString(strconv.Itoa(p.Draw50))
	w.WriteByte('\n')
}

func writePieces(w *bufio.Writer, pieces []board.Piece) {
	for _, p := range pieces {
		w.WriteString(p.String())
	}
	w.WriteByte('\n')
}

// Decode reads a snapshot written by Encode. Nothing is returned unless the
// whole input is valid.
func Decode(r io.Reader) (*Snapshot, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading saved game: %w", err)
	}

	if len(lines) < blockLines+2 {
		return nil, fmt.Errorf("%w: %d lines", ErrMalformed, len(lines))
	}
	body, captured := lines[:len(lines)-2], lines[len(lines)-2:]
	if len(body)%blockLines != 0 {
		return nil, fmt.Errorf("%w: %d position lines is not a multiple of %d", ErrMalformed, len(body), blockLines)
	}

	s := &Snapshot{}
	for i := 0; i < len(body); i += blockLines {
		p, err := parseBlock(body[i : i+blockLines])
		if err != nil {
			return nil, fmt.Errorf("%w: block at line %d: %v", ErrMalformed, i+1, err)
		}
		if i == 0 {
			s.Position = p
		} else {
			s.History = append(s.History, p)
		}
	}

	var err error
	if s.BlackLost, err = parsePieces(captured[0], board.Black); err != nil {
		return nil, fmt.Errorf("%w: black captured pieces: %v", ErrMalformed, err)
	}
	if s.WhiteLost, err = parsePieces(captured[1], board.White); err != nil {
		return nil, fmt.Errorf("%w: white captured pieces: %v", ErrMalformed, err)
	}
	return s, nil
}

func parseBlock(lines []string) (board.Position, error) {
	var p board.Position
	for row := 0; row < 8; row++ {
		line := lines[row]
		if len(line) != 16 {
			return p, fmt.Errorf("row %d: want 16 characters, got %d", row, len(line))
		}
		for col := 0; col < 8; col++ {
			cell, err := parseCell(line[2*col : 2*col+2])
			if err != nil {
				return p, fmt.Errorf("row %d col %d: %v", row, col, err)
			}
			p.Board[row][col] = cell
		}
	}

	flags := lines[8]
	if len(flags) < 8 {
		return p, fmt.Errorf("flag line %q too short", flags)
	}
	if err := p.ParseFlagString(flags[:7]); err != nil {
		return p, err
	}
	draw50, err := strconv.Atoi(flags[7:])
	if err != nil || draw50 < 0 || strings.HasPrefix(flags[7:], "+") {
		return p, fmt.Errorf("invalid fifty-move counter %q", flags[7:])
	}
	p.Draw50 = draw50

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func parseCell(s string) (board.Piece, error) {
	if s == "[ " {
		return board.NoPiece, nil
	}
	pt, ok := board.PieceTypeFromChar(s[0])
	if !ok || s[0] < 'A' || s[0] > 'Z' {
		return board.NoPiece, fmt.Errorf("invalid piece %q", s)
	}
	switch s[1] {
	case 'w':
		return board.NewPiece(pt, board.White), nil
	case 'b':
		return board.NewPiece(pt, board.Black), nil
	}
	return board.NoPiece, fmt.Errorf("invalid color in %q", s)
}

func parsePieces(line string, c board.Color) ([]board.Piece, error) {
	if len(line)%2 != 0 {
		return nil, fmt.Errorf("odd length %d", len(line))
	}
	var pieces []board.Piece
	for i := 0; i < len(line); i += 2 {
		p, err := parseCell(line[i : i+2])
		if err != nil || p == board.NoPiece {
			return nil, fmt.Errorf("invalid piece %q", line[i:i+2])
		}
		if p.Color != c || p.Type == board.King {
			return nil, fmt.Errorf("unexpected %s %s", p.Color, p.Type)
		}
		pieces = append(pieces, p)
	}
	return pieces, nil
}
