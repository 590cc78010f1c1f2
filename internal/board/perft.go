package board

// Perft counts the leaf nodes of the legal move tree to the given depth.
// Promotions are counted once, as queen promotions.
func Perft(a *Analyzer, p *Position, depth int) int64 {
	if depth == 0 {
		return 1
	}

	an := a.Analyze(p)
	var nodes int64
	for _, prof := range an.Pieces {
		if depth == 1 {
			nodes += int64(len(prof.Moves))
			continue
		}
		for _, to := range prof.Moves {
			child := *p
			child.Apply(prof.Square, to, true)
			nodes += Perft(a, &child, depth-1)
		}
	}
	return nodes
}

// Divide returns the perft count below each legal move at the root.
func Divide(a *Analyzer, p *Position, depth int) map[Move]int64 {
	out := make(map[Move]int64)
	if depth < 1 {
		return out
	}
	for _, m := range a.Analyze(p).Moves() {
		child := *p
		child.Apply(m.From, m.To, true)
		out[m] = Perft(a, &child, depth-1)
	}
	return out
}
