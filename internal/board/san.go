package board

import (
	"fmt"
	"strings"
)

// SAN renders a legal move of an.Position in Standard Algebraic Notation.
// A promotion without a chosen piece is written as a queen promotion.
func (a *Analyzer) SAN(an *Analysis, m Move) string {
	p := an.Position
	piece := p.At(m.From)
	if !piece.Type.IsPiece() {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case piece.Type == King && m.To.Col-m.From.Col == 2:
		sb.WriteString("O-O")
	case piece.Type == King && m.From.Col-m.To.Col == 2:
		sb.WriteString("O-O-O")
	default:
		target := p.At(m.To)
		capture := target.Type.IsPiece() || (piece.Type == Pawn && target.Type == EnPassant)

		if piece.Type != Pawn {
			sb.WriteByte(piece.Type.Char())
			sb.WriteString(disambiguation(an, m, piece.Type))
		}
		if capture {
			if piece.Type == Pawn {
				sb.WriteByte(fileChar(m.From))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(m.To.String())

		if m.IsPromotion(p) {
			promo := m.Promotion
			if !promo.IsPiece() {
				promo = Queen
			}
			sb.WriteByte('=')
			sb.WriteByte(promo.Char())
		}
	}

	next := *p
	next.Apply(m.From, m.To, true)
	if m.Promotion.IsPiece() && m.IsPromotion(p) {
		next.Set(m.To, NewPiece(m.Promotion, piece.Color))
	}
	after := a.Analyze(&next)
	switch {
	case after.Check && after.MateOrStalemate:
		sb.WriteByte('#')
	case after.Check:
		sb.WriteByte('+')
	}
	return sb.String()
}

func fileChar(sq Square) byte { return byte('a' + sq.Col) }
func rankChar(sq Square) byte { return byte('8' - sq.Row) }

// disambiguation returns the origin file, rank or both when another piece
// of the same type can also reach the destination.
func disambiguation(an *Analysis, m Move, pt PieceType) string {
	var others []Square
	for _, prof := range an.Pieces {
		if prof.Square == m.From || prof.Piece.Type != pt {
			continue
		}
		for _, to := range prof.Moves {
			if to == m.To {
				others = append(others, prof.Square)
				break
			}
		}
	}
	if len(others) == 0 {
		return ""
	}

	sameFile, sameRank := false, false
	for _, sq := range others {
		sameFile = sameFile || sq.Col == m.From.Col
		sameRank = sameRank || sq.Row == m.From.Row
	}
	switch {
	case !sameFile:
		return string(fileChar(m.From))
	case !sameRank:
		return string(rankChar(m.From))
	default:
		return m.From.String()
	}
}

// ParseSAN finds the legal move of an.Position written as s.
func ParseSAN(an *Analysis, s string) (Move, error) {
	orig := s
	s = strings.TrimRight(strings.TrimSpace(s), "+#!?")
	p := an.Position

	if s == "O-O" || s == "0-0" || s == "O-O-O" || s == "0-0-0" {
		king := an.King
		dc := 2
		if len(s) == 5 {
			dc = -2
		}
		to := king.Offset(0, dc)
		if !an.IsLegal(king, to) {
			return NoMove, fmt.Errorf("illegal castling %q", orig)
		}
		return NewMove(king, to), nil
	}

	promo := Empty
	if i := strings.IndexByte(s, '='); i >= 0 {
		if i+1 >= len(s) {
			return NoMove, fmt.Errorf("invalid SAN %q", orig)
		}
		pt, ok := PieceTypeFromChar(s[i+1])
		if !ok || pt == King || pt == Pawn {
			return NoMove, fmt.Errorf("invalid promotion in %q", orig)
		}
		promo = pt
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "x", "")

	pt := Pawn
	if len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z' {
		t, ok := PieceTypeFromChar(s[0])
		if !ok {
			return NoMove, fmt.Errorf("invalid piece in %q", orig)
		}
		pt = t
		s = s[1:]
	}
	if len(s) < 2 {
		return NoMove, fmt.Errorf("invalid SAN %q", orig)
	}
	dest, err := ParseSquare(s[len(s)-2:])
	if err != nil {
		return NoMove, fmt.Errorf("invalid SAN %q: %w", orig, err)
	}

	file, rank := int8(-1), int8(-1)
	for _, c := range s[:len(s)-2] {
		switch {
		case c >= 'a' && c <= 'h':
			file = int8(c - 'a')
		case c >= '1' && c <= '8':
			rank = int8('8' - c)
		default:
			return NoMove, fmt.Errorf("invalid SAN %q", orig)
		}
	}

	found := NoMove
	for _, prof := range an.Pieces {
		if prof.Piece.Type != pt || (file >= 0 && prof.Square.Col != file) || (rank >= 0 && prof.Square.Row != rank) {
			continue
		}
		for _, to := range prof.Moves {
			if to != dest {
				continue
			}
			if found != NoMove {
				return NoMove, fmt.Errorf("ambiguous move %q", orig)
			}
			found = Move{From: prof.Square, To: to}
		}
	}
	if found == NoMove {
		return NoMove, fmt.Errorf("no legal move matches %q", orig)
	}
	if promo != Empty && found.IsPromotion(p) {
		found.Promotion = promo
	}
	return found, nil
}
