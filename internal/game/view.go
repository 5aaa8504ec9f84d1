package game

// View is a room snapshot as one player may see it.
type View struct {
	Room
	You       *Player      `json:"you,omitempty"`
	Remaining map[Team]int `json:"remaining"`
}

// ViewFor hides unrevealed card roles from everyone but spymasters. A
// finished game shows the whole board. An unknown viewerID gets the
// guesser's view.
func ViewFor(r Room, viewerID string) View {
	v := View{Room: r.Clone(), Remaining: map[Team]int{
		TeamRed:  Remaining(r.Cards, TeamRed),
		TeamBlue: Remaining(r.Cards, TeamBlue),
	}}
	p, ok := r.Player(viewerID)
	if ok {
		v.You = &p
	}
	if r.GamePhase == PhaseFinished || (ok && p.Role == RoleSpymaster) {
		return v
	}
	for i := range v.Cards {
		if !v.Cards[i].Revealed {
			v.Cards[i].Role = ""
		}
	}
	return v
}
