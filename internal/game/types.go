package game

import (
	"time"
)

type GamePhase string

const (
	PhaseLobby      GamePhase = "lobby"
	PhaseInProgress GamePhase = "in_progress"
	PhaseFinished   GamePhase = "finished"
)

type TurnPhase string

const (
	TurnWaitingHint TurnPhase = "waiting_hint"
	TurnGuessing    TurnPhase = "guessing"
)

type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

func (t Team) Valid() bool {
	return t == TeamRed || t == TeamBlue
}

// Other returns the opposing team.
func (t Team) Other() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

type Role string

const (
	RoleSpymaster Role = "spymaster"
	RoleGuesser   Role = "guesser"
)

func (r Role) Valid() bool {
	return r == RoleSpymaster || r == RoleGuesser
}

type CardRole string

const (
	CardRed      CardRole = "red"
	CardBlue     CardRole = "blue"
	CardNeutral  CardRole = "neutral"
	CardAssassin CardRole = "assassin"
)

// CardRoleOf maps a team to the card role of its agents.
func CardRoleOf(t Team) CardRole {
	switch t {
	case TeamRed:
		return CardRed
	case TeamBlue:
		return CardBlue
	}
	return CardNeutral
}

const (
	BoardSize   = 25
	MaxPlayers  = 8
	MinHintSize = 1
	MaxHintSize = 9
	RoomIDLen   = 6
	DefaultTTL  = 3 * time.Hour
)

type Card struct {
	Index    int      `json:"index"`
	Word     string   `json:"word"`
	Role     CardRole `json:"role"`
	Revealed bool     `json:"revealed"`
}

type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Team     Team      `json:"team"`
	Role     Role      `json:"role"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Hint struct {
	Word        string    `json:"word"`
	Count       int       `json:"count"`
	SubmittedBy string    `json:"submittedBy"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Room is the authoritative state of one game. Values are treated as
// immutable snapshots; transforms work on a Clone.
type Room struct {
	ID               string    `json:"id"`
	Version          uint64    `json:"version"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	GamePhase        GamePhase `json:"gamePhase"`
	TurnTeam         Team      `json:"turnTeam"`
	TurnPhase        TurnPhase `json:"turnPhase"`
	CurrentHint      *Hint     `json:"currentHint"`
	RemainingGuesses int       `json:"remainingGuesses"`
	Cards            []Card    `json:"cards"`
	Players          []Player  `json:"players"`
	FirstTeam        Team      `json:"firstTeam"`
	Winner           *Team     `json:"winner"`
}

// Clone returns a deep copy so a transform can mutate it freely.
func (r Room) Clone() Room {
	out := r
	out.Cards = append([]Card(nil), r.Cards...)
	out.Players = append([]Player(nil), r.Players...)
	if r.CurrentHint != nil {
		h := *r.CurrentHint
		out.CurrentHint = &h
	}
	if r.Winner != nil {
		w := *r.Winner
		out.Winner = &w
	}
	return out
}

func (r Room) Player(id string) (Player, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

func (r Room) Host() (Player, bool) {
	for _, p := range r.Players {
		if p.IsHost {
			return p, true
		}
	}
	return Player{}, false
}

func (r Room) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// TeamSize counts players on a team.
func (r Room) TeamSize(t Team) int {
	n := 0
	for _, p := range r.Players {
		if p.Team == t {
			n++
		}
	}
	return n
}

func (r Room) spymasters(t Team) int {
	n := 0
	for _, p := range r.Players {
		if p.Team == t && p.Role == RoleSpymaster {
			n++
		}
	}
	return n
}
