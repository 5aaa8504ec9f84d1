package game

import (
	"fmt"
	"strings"
)

// RoleUpdate carries the fields a lobby player may change. Nil fields are
// left alone.
type RoleUpdate struct {
	Team *Team `json:"team,omitempty"`
	Role *Role `json:"role,omitempty"`
}

// Join appends p to the roster as a non-host player. An unset team puts the
// player on the smaller team, an unset role makes them a guesser.
func Join(r Room, p Player) (Room, error) {
	if err := r.permits(ActionJoin); err != nil {
		return r, err
	}
	if len(r.Players) >= MaxPlayers {
		return r, ErrRoomFull
	}
	if _, ok := r.Player(p.ID); ok {
		return r, fmt.Errorf("player %s: %w", p.ID, ErrDuplicatePlayer)
	}
	p, err := withDefaults(r, p)
	if err != nil {
		return r, err
	}
	p.IsHost = false

	out := r.Clone()
	out.Players = append(out.Players, p)
	return out, nil
}

// SetRole merges upd into the matching player. It does not check for a
// second spymaster on the team; StartGame does that.
func SetRole(r Room, playerID string, upd RoleUpdate) (Room, error) {
	if err := r.permits(ActionSetRole); err != nil {
		return r, err
	}
	if upd.Team != nil && !upd.Team.Valid() {
		return r, fmt.Errorf("team %q: %w", *upd.Team, ErrInvalidTeam)
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return r, fmt.Errorf("role %q: %w", *upd.Role, ErrInvalidRole)
	}

	out := r.Clone()
	for i := range out.Players {
		if out.Players[i].ID != playerID {
			continue
		}
		if upd.Team != nil {
			out.Players[i].Team = *upd.Team
		}
		if upd.Role != nil {
			out.Players[i].Role = *upd.Role
		}
		return out, nil
	}
	return r, fmt.Errorf("player %s: %w", playerID, ErrPlayerNotFound)
}

func withDefaults(r Room, p Player) (Player, error) {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Team == "":
		p.Team = r.FirstTeam
		if r.TeamSize(r.FirstTeam.Other()) < r.TeamSize(r.FirstTeam) {
			p.Team = r.FirstTeam.Other()
		}
	case !p.Team.Valid():
		return p, fmt.Errorf("team %q: %w", p.Team, ErrInvalidTeam)
	}
	switch {
	case p.Role == "":
		p.Role = RoleGuesser
	case !p.Role.Valid():
		return p, fmt.Errorf("role %q: %w", p.Role, ErrInvalidRole)
	}
	return p, nil
}
