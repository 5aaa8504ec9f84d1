package game

import (
	"fmt"
	"slices"
	"time"
)

type Action string

const (
	ActionJoin    Action = "join"
	ActionSetRole Action = "set_role"
	ActionStart   Action = "start"
	ActionHint    Action = "hint"
	ActionReveal  Action = "reveal"
	ActionEndTurn Action = "end_turn"
)

type state struct {
	game GamePhase
	turn TurnPhase
}

// permitted is the state machine. Lobby and finished ignore the turn phase;
// finished permits nothing.
var permitted = map[state][]Action{
	{game: PhaseLobby}:                            {ActionJoin, ActionSetRole, ActionStart},
	{game: PhaseInProgress, turn: TurnWaitingHint}: {ActionHint},
	{game: PhaseInProgress, turn: TurnGuessing}:    {ActionReveal, ActionEndTurn},
}

func (r Room) state() state {
	if r.GamePhase != PhaseInProgress {
		return state{game: r.GamePhase}
	}
	return state{game: r.GamePhase, turn: r.TurnPhase}
}

// Permits reports whether the room's current state accepts action a.
func (r Room) Permits(a Action) bool {
	return slices.Contains(permitted[r.state()], a)
}

func (r Room) permits(a Action) error {
	if r.Permits(a) {
		return nil
	}
	s := r.state()
	if s.turn != "" {
		return fmt.Errorf("%s during %s/%s: %w", a, s.game, s.turn, ErrInvalidPhase)
	}
	return fmt.Errorf("%s during %s: %w", a, s.game, ErrInvalidPhase)
}

// NewRoom builds a lobby room with host as its only player.
func NewRoom(id string, host Player, cards []Card, first Team, now time.Time, ttl time.Duration) (Room, error) {
	if !first.Valid() {
		return Room{}, fmt.Errorf("first team %q: %w", first, ErrInvalidTeam)
	}
	if len(cards) != BoardSize {
		return Room{}, fmt.Errorf("board has %d cards: %w", len(cards), ErrInsufficientWords)
	}
	r := Room{
		ID:        id,
		CreatedAt: now.UTC(),
		ExpiresAt: now.UTC().Add(ttl),
		GamePhase: PhaseLobby,
		TurnTeam:  first,
		TurnPhase: TurnWaitingHint,
		Cards:     append([]Card(nil), cards...),
		FirstTeam: first,
	}
	host, err := withDefaults(r, host)
	if err != nil {
		return Room{}, err
	}
	host.IsHost = true
	r.Players = []Player{host}
	return r, nil
}

// StartGame moves a lobby with two complete teams into play.
func StartGame(r Room) (Room, error) {
	if err := r.permits(ActionStart); err != nil {
		return r, err
	}
	for _, t := range []Team{TeamRed, TeamBlue} {
		if r.TeamSize(t) == 0 {
			return r, fmt.Errorf("team %s: %w", t, ErrTeamIncomplete)
		}
	}
	for _, t := range []Team{TeamRed, TeamBlue} {
		if n := r.spymasters(t); n != 1 {
			return r, fmt.Errorf("team %s has %d spymasters: %w", t, n, ErrMissingSpymaster)
		}
	}
	out := r.Clone()
	out.GamePhase = PhaseInProgress
	out.TurnTeam = r.FirstTeam
	out.TurnPhase = TurnWaitingHint
	out.CurrentHint = nil
	out.RemainingGuesses = 0
	return out, nil
}

// SubmitHint opens the guessing phase. The team gets one bonus guess beyond
// the hinted count.
func SubmitHint(r Room, h Hint) (Room, error) {
	if err := r.permits(ActionHint); err != nil {
		return r, err
	}
	h, err := NewHint(h.Word, h.Count, h.SubmittedBy, h.SubmittedAt)
	if err != nil {
		return r, err
	}
	out := r.Clone()
	out.CurrentHint = &h
	out.TurnPhase = TurnGuessing
	out.RemainingGuesses = h.Count + 1
	return out, nil
}

// EndTurn passes the turn to the other team.
func EndTurn(r Room) (Room, error) {
	if err := r.permits(ActionEndTurn); err != nil {
		return r, err
	}
	out := r.Clone()
	flipTurn(&out)
	return out, nil
}

// RevealCard resolves a guess. Revealing an already revealed card returns
// ErrUnchanged.
func RevealCard(r Room, index int) (Room, error) {
	if err := r.permits(ActionReveal); err != nil {
		return r, err
	}
	if index < 0 || index >= len(r.Cards) {
		return r, fmt.Errorf("card %d: %w", index, ErrInvalidCard)
	}
	if r.Cards[index].Revealed {
		return r, ErrUnchanged
	}
	out := r.Clone()
	resolveReveal(&out, index)
	return out, nil
}

func flipTurn(r *Room) {
	r.TurnTeam = r.TurnTeam.Other()
	r.TurnPhase = TurnWaitingHint
	r.CurrentHint = nil
	r.RemainingGuesses = 0
}

func finish(r *Room, winner Team) {
	r.GamePhase = PhaseFinished
	r.Winner = &winner
}

// CheckInvariants reports the first broken room invariant, if any.
func (r Room) CheckInvariants() error {
	if len(r.Cards) != BoardSize {
		return fmt.Errorf("board has %d cards", len(r.Cards))
	}
	counts := map[CardRole]int{}
	for i, c := range r.Cards {
		if c.Index != i {
			return fmt.Errorf("card %d has index %d", i, c.Index)
		}
		counts[c.Role]++
	}
	want := map[CardRole]int{
		CardRoleOf(r.FirstTeam):         FirstTeamCards,
		CardRoleOf(r.FirstTeam.Other()): SecondTeamCards,
		CardNeutral:                     NeutralCards,
		CardAssassin:                    AssassinCards,
	}
	for role, n := range want {
		if counts[role] != n {
			return fmt.Errorf("%d %s cards, want %d", counts[role], role, n)
		}
	}
	if (r.CurrentHint != nil) != (r.TurnPhase == TurnGuessing) {
		return fmt.Errorf("hint present=%t during %s", r.CurrentHint != nil, r.TurnPhase)
	}
	if r.TurnPhase == TurnWaitingHint && r.RemainingGuesses != 0 {
		return fmt.Errorf("%d guesses left while waiting for a hint", r.RemainingGuesses)
	}
	if r.RemainingGuesses < 0 {
		return fmt.Errorf("negative guess budget %d", r.RemainingGuesses)
	}
	if (r.Winner != nil) != (r.GamePhase == PhaseFinished) {
		return fmt.Errorf("winner set=%t during %s", r.Winner != nil, r.GamePhase)
	}
	hosts := 0
	for _, p := range r.Players {
		if p.IsHost {
			hosts++
		}
	}
	if hosts != 1 {
		return fmt.Errorf("%d hosts", hosts)
	}
	return nil
}
