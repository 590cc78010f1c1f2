package board

import "fmt"

// ThreatCache stores Threats by canonical position key. Implementations
// must be safe for concurrent use; a Put for a key that is already present
// must keep the existing value.
type ThreatCache interface {
	Get(key string) (*Threats, bool)
	Put(key string, t *Threats) bool
}

// Analyzer computes legal moves and check state. It is safe for concurrent
// use when its cache is.
type Analyzer struct {
	cache ThreatCache
}

// NewAnalyzer creates an analyzer. A nil cache disables caching.
func NewAnalyzer(cache ThreatCache) *Analyzer {
	return &Analyzer{cache: cache}
}

// Profile is the analysis of one piece of the side to move.
type Profile struct {
	Square Square
	Piece  Piece
	// Moves holds the legal destinations in generation order.
	Moves []Square
	// ProtectingKing is set when the piece is pinned against its own king.
	ProtectingKing bool
}

// Status is the displayed state of a position.
type Status uint8

const (
	Normal Status = iota
	Check
	Checkmate
	Stalemate
	FiftyMoveDraw
)

// String returns the status text.
func (s Status) String() string {
	switch s {
	case Normal:
		return ""
	case Check:
		return "Check"
	case Checkmate:
		return "Mate"
	case Stalemate:
		return "Draw"
	case FiftyMoveDraw:
		return "Draw 50"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Analysis is the derived view of one position for the side to move.
type Analysis struct {
	Position *Position
	Threats  *Threats
	// Pieces lists the side to move's pieces in row-major order.
	Pieces []Profile
	King   Square
	Check  bool
	// MateOrStalemate is set when no piece has a legal move.
	MateOrStalemate bool
	// FiftyMoveDraw is set when the fifty-move counter exceeds 99. All move
	// lists are then empty.
	FiftyMoveDraw bool
}

// Threats returns the opponent's attacks and the pinned pieces for p,
// consulting the cache first.
func (a *Analyzer) Threats(p *Position) *Threats {
	if a.cache == nil {
		return computeThreats(p)
	}
	key := p.Key()
	if t, ok := a.cache.Get(key); ok {
		return t
	}
	t := computeThreats(p)
	a.cache.Put(key, t)
	return t
}

// Analyze builds the full analysis of p. The position is referenced, not
// copied, and must not be modified while the analysis is in use.
func (a *Analyzer) Analyze(p *Position) *Analysis {
	us := p.SideToMove
	king := p.KingSquare(us)
	if king == NoSquare {
		panic(fmt.Sprintf("board: %s has no king", us))
	}

	threats := a.Threats(p)
	an := &Analysis{
		Position: p,
		Threats:  threats,
		King:     king,
		Check:    threats.Attacked.Has(king),
	}
	an.FiftyMoveDraw = p.Draw50 > 99

	hasMoves := false
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			cell := p.Board[row][col]
			if !cell.Type.IsPiece() || cell.Color != us {
				continue
			}
			sq := Sq(row, col)
			prof := Profile{
				Square:         sq,
				Piece:          cell,
				ProtectingKing: threats.Protectors.Has(sq),
			}
			if !an.FiftyMoveDraw {
				prof.Moves = a.legalMoves(p, sq, cell, threats, an.Check || prof.ProtectingKing, an.Check)
			}
			if len(prof.Moves) > 0 {
				hasMoves = true
			}
			an.Pieces = append(an.Pieces, prof)
		}
	}
	an.MateOrStalemate = !hasMoves
	return an
}

// legalMoves filters the pseudo moves of one piece. When probeAll is set
// every move is tried on a copy; en passant captures are always tried
// because a pin through two pawns on the same rank is invisible to the
// x-ray scan.
func (a *Analyzer) legalMoves(p *Position, sq Square, piece Piece, t *Threats, probeAll, inCheck bool) []Square {
	moves := pseudoMoves(p, sq, t.Attacked, inCheck)
	legal := moves[:0]
	for _, to := range moves {
		probe := probeAll || (piece.Type == Pawn && p.At(to).Type == EnPassant)
		if probe && a.LeavesKingInCheck(p, sq, to) {
			continue
		}
		legal = append(legal, to)
	}
	return legal
}

// LeavesKingInCheck plays from -> to on a copy of p and reports whether the
// mover's king is attacked afterwards. It only needs Threats, so it never
// recurses into move generation.
func (a *Analyzer) LeavesKingInCheck(p *Position, from, to Square) bool {
	us := p.SideToMove
	probe := *p
	probe.Apply(from, to, true)
	probe.SideToMove = us
	return a.Threats(&probe).Attacked.Has(probe.KingSquare(us))
}

// Profile returns the profile of the piece on sq, if it belongs to the side
// to move.
func (an *Analysis) Profile(sq Square) (*Profile, bool) {
	for i := range an.Pieces {
		if an.Pieces[i].Square == sq {
			return &an.Pieces[i], true
		}
	}
	return nil, false
}

// IsLegal reports whether from -> to is a legal half-turn.
func (an *Analysis) IsLegal(from, to Square) bool {
	prof, ok := an.Profile(from)
	if !ok {
		return false
	}
	for _, m := range prof.Moves {
		if m == to {
			return true
		}
	}
	return false
}

// Moves returns every legal half-turn in row-major order of the moving
// piece, then generation order.
func (an *Analysis) Moves() []Move {
	var moves []Move
	for _, prof := range an.Pieces {
		for _, to := range prof.Moves {
			moves = append(moves, NewMove(prof.Square, to))
		}
	}
	return moves
}

// Status returns the display status. The fifty-move draw takes precedence
// over check.
func (an *Analysis) Status() Status {
	switch {
	case an.FiftyMoveDraw:
		return FiftyMoveDraw
	case an.MateOrStalemate && an.Check:
		return Checkmate
	case an.MateOrStalemate:
		return Stalemate
	case an.Check:
		return Check
	default:
		return Normal
	}
}
