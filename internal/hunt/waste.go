package hunt

// ApplyExtraWaste returns a copy of players where each named player's supplies
// grow by its extra waste and its balance shrinks by the same amount.
// Non-positive amounts and unknown names are ignored.
func ApplyExtraWaste(players []Player, waste map[string]int64) []Player {
	out := make([]Player, len(players))
	copy(out, players)
	for i := range out {
		w := waste[out[i].Name]
		if w <= 0 {
			continue
		}
		out[i].Supplies += w
		out[i].Balance -= w
	}
	return out
}

// WithExtraWaste returns a new session with extra waste applied and the
// settlement recomputed from scratch. Header metadata is carried over.
func (s *Session) WithExtraWaste(waste map[string]int64) *Session {
	out := *s
	out.Players = ApplyExtraWaste(s.Players, waste)
	out.Settlement = Settle(out.Players)
	return &out
}
