package game

// resolveReveal applies a guess on an unrevealed card. The assassin check
// comes before the own-team check; the reveal itself always sticks.
func resolveReveal(r *Room, index int) {
	r.Cards[index].Revealed = true
	card := r.Cards[index]

	switch card.Role {
	case CardAssassin:
		finish(r, r.TurnTeam.Other())
	case CardRoleOf(r.TurnTeam):
		r.RemainingGuesses--
		switch {
		case AllRevealed(r.Cards, r.TurnTeam):
			finish(r, r.TurnTeam)
		case r.RemainingGuesses <= 0:
			flipTurn(r)
		}
	default:
		flipTurn(r)
	}
}

// AllRevealed reports whether every card of team t has been turned over.
func AllRevealed(cards []Card, t Team) bool {
	return Remaining(cards, t) == 0
}

// Remaining counts the team's unrevealed cards.
func Remaining(cards []Card, t Team) int {
	role := CardRoleOf(t)
	n := 0
	for _, c := range cards {
		if c.Role == role && !c.Revealed {
			n++
		}
	}
	return n
}
