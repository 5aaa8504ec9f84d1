package game

import (
	"errors"
)

var (
	ErrNotFound          = errors.New("room not found")
	ErrAlreadyExists     = errors.New("room already exists")
	ErrExpired           = errors.New("room expired")
	ErrRoomFull          = errors.New("room full")
	ErrDuplicatePlayer   = errors.New("player already joined")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrInvalidPhase      = errors.New("invalid phase for action")
	ErrInvalidHint       = errors.New("invalid hint")
	ErrInvalidCard       = errors.New("invalid card index")
	ErrInvalidTeam       = errors.New("invalid team")
	ErrInvalidRole       = errors.New("invalid role")
	ErrTeamIncomplete    = errors.New("both teams need at least one player")
	ErrMissingSpymaster  = errors.New("each team needs exactly one spymaster")
	ErrInsufficientWords = errors.New("at least 25 distinct words required")
	ErrForbidden         = errors.New("player not allowed to perform action")
	ErrTransformRejected = errors.New("update could not be committed")

	// ErrUnchanged is returned by a transform that leaves the room as is.
	// Repositories skip the commit and return the current state without error.
	ErrUnchanged = errors.New("room unchanged")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrExpired, "expired"},
	{ErrRoomFull, "room_full"},
	{ErrDuplicatePlayer, "duplicate_player"},
	{ErrPlayerNotFound, "player_not_found"},
	{ErrInvalidPhase, "invalid_phase"},
	{ErrInvalidHint, "invalid_hint"},
	{ErrInvalidCard, "invalid_card"},
	{ErrInvalidTeam, "invalid_team"},
	{ErrInvalidRole, "invalid_role"},
	{ErrTeamIncomplete, "team_incomplete"},
	{ErrMissingSpymaster, "missing_spymaster"},
	{ErrInsufficientWords, "insufficient_words"},
	{ErrForbidden, "forbidden"},
	{ErrTransformRejected, "transform_rejected"},
}

// ErrorCode maps an error to the stable code sent to clients.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
