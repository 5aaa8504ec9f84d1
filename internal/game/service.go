package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Transform computes the next room state from the committed one. It must be
// free of side effects: repositories may run it more than once.
type Transform func(Room) (Room, error)

// Repository stores rooms and publishes every committed version.
type Repository interface {
	Create(ctx context.Context, r Room) error
	Get(ctx context.Context, id string) (Room, error)
	// Update applies fn atomically against the latest state. An ErrUnchanged
	// from fn skips the commit and returns the current state.
	Update(ctx context.Context, id string, fn Transform) (Room, error)
	// Subscribe delivers the current snapshot followed by commits, in version
	// order, until ctx is done or cancel is called. Every snapshot is a full
	// room and the latest one is always delivered, but a subscriber that falls
	// behind may skip intermediate versions. Snapshots are copies; changing
	// one does not touch stored state.
	Subscribe(ctx context.Context, id string) (<-chan Room, func(), error)
}

const (
	roomIDAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	createRoomTries = 10
)

// Service is the action API used by the transports. Every mutation runs as a
// single Repository.Update.
type Service struct {
	repo       Repository
	ttl        time.Duration
	now        func() time.Time
	words      []string
	exportFile string
	rng        *rand.Rand
}

type Option func(*Service)

func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultWords sets the list used when a room is created without words.
func WithDefaultWords(words []string) Option {
	return func(s *Service) { s.words = words }
}

// WithExport appends a summary of every finished game to filename.
func WithExport(filename string) Option {
	return func(s *Service) { s.exportFile = filename }
}

// WithRand makes deck building and room codes deterministic. Tests only.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateRoom deals a new board and stores a lobby with host as its only
// player. An empty first team is picked at random.
func (s *Service) CreateRoom(ctx context.Context, host Player, words []string, first Team) (Room, error) {
	if len(words) == 0 {
		words = s.words
	}
	if first == "" {
		first = TeamRed
		if s.intN(2) == 1 {
			first = TeamBlue
		}
	}
	cards, err := BuildDeck(words, first, s.rng)
	if err != nil {
		return Room{}, err
	}
	now := s.now()
	host = s.newPlayer(host, now)

	for i := 0; i < createRoomTries; i++ {
		r, err := NewRoom(s.randomCode(RoomIDLen), host, cards, first, now, s.ttl)
		if err != nil {
			return Room{}, err
		}
		err = s.repo.Create(ctx, r)
		if errors.Is(err, ErrAlreadyExists) {
			log.Warn().Str("room", r.ID).Msg("room code collision, retrying")
			continue
		}
		if err != nil {
			return Room{}, fmt.Errorf("create room: %w", err)
		}
		log.Info().Str("room", r.ID).Str("host", host.ID).Str("firstTeam", string(first)).Msg("room:create")
		return s.repo.Get(ctx, r.ID)
	}
	return Room{}, fmt.Errorf("no free room code after %d tries: %w", createRoomTries, ErrAlreadyExists)
}

func (s *Service) Get(ctx context.Context, roomID string) (Room, error) {
	return s.repo.Get(ctx, roomID)
}

// JoinRoom adds p to a lobby that has not expired yet.
func (s *Service) JoinRoom(ctx context.Context, roomID string, p Player) (Room, Player, error) {
	now := s.now()
	p = s.newPlayer(p, now)
	r, err := s.repo.Update(ctx, roomID, func(r Room) (Room, error) {
		if r.Expired(now) {
			return r, ErrExpired
		}
		return Join(r, p)
	})
	if err != nil {
		return Room{}, Player{}, err
	}
	joined, _ := r.Player(p.ID)
	log.Info().Str("room", roomID).Str("playerId", p.ID).Str("team", string(joined.Team)).Msg("room:join")
	return r, joined, nil
}

func (s *Service) SetPlayerRole(ctx context.Context, roomID, playerID string, upd RoleUpdate) (Room, error) {
	r, err := s.repo.Update(ctx, roomID, func(r Room) (Room, error) {
		return SetRole(r, playerID, upd)
	})
	if err != nil {
		return Room{}, err
	}
	log.Info().Str("room", roomID).Str("playerId", playerID).Msg("room:setRole")
	return r, nil
}

// StartGame is reserved to the host.
func (s *Service) StartGame(ctx context.Context, roomID, actorID string) (Room, error) {
	r, err := s.repo.Update(ctx, roomID, func(r Room) (Room, error) {
		if err := r.permits(ActionStart); err != nil {
			return r, err
		}
		if err := authorize(r, actorID, func(p Player) bool { return p.IsHost }); err != nil {
			return r, err
		}
		return StartGame(r)
	})
	if err != nil {
		return Room{}, err
	}
	log.Info().Str("room", roomID).Str("turnTeam", string(r.TurnTeam)).Msg("game:start")
	return r, nil
}

// SubmitHint is reserved to the spymaster of the team on turn.
func (s *Service) SubmitHint(ctx context.Context, roomID, actorID, word string, count int) (Room, error) {
	at := s.now()
	r, err := s.repo.Update(ctx, roomID, func(r Room) (Room, error) {
		if err := r.permits(ActionHint); err != nil {
			return r, err
		}
		if err := authorize(r, actorID, func(p Player) bool {
			return p.Team == r.TurnTeam && p.Role == RoleSpymaster
		}); err != nil {
			return r, err
		}
		return SubmitHint(r, Hint{Word: word, Count: count, SubmittedBy: actorID, SubmittedAt: at})
	})
	if err != nil {
		return Room{}, err
	}
	log.Info().Str("room", roomID).Str("by", actorID).Int("count", count).Msg("game:hint")
	return r, nil
}

// RevealCard is reserved to guessers of the team on turn.
func (s *Service) RevealCard(ctx context.Context, roomID, actorID string, index int) (Room, error) {
	r, err := s.repo.Update(ctx, roomID, func(r Room) (Room, error) {
		if err := r.permits(ActionReveal); err != nil {
			return r, err
		}
		if err := authorize(r, actorID, isTurnGuesser(r)); err != nil {
			return r, err
		}
		return RevealCard(r, index)
	})
	if err != nil {
		return Room{}, err
	}
	ev := log.Info().Str("room", roomID).Str("by", actorID).Int("card", index).Str("turnTeam", string(r.TurnTeam))
	if r.Winner != nil {
		ev = ev.Str("winner", string(*r.Winner))
	}
	ev.Msg("game:reveal")
	if r.GamePhase == PhaseFinished {
		s.export(r)
	}
	return r, nil
}

// EndTurn lets the guessers on turn pass.
func (s *Service) EndTurn(ctx context.Context, roomID, actorID string) (Room, error) {
	r, err := s.repo.Update(ctx, roomID, func(r Room) (Room, error) {
		if err := r.permits(ActionEndTurn); err != nil {
			return r, err
		}
		if err := authorize(r, actorID, isTurnGuesser(r)); err != nil {
			return r, err
		}
		return EndTurn(r)
	})
	if err != nil {
		return Room{}, err
	}
	log.Info().Str("room", roomID).Str("by", actorID).Str("turnTeam", string(r.TurnTeam)).Msg("game:endTurn")
	return r, nil
}

// Subscribe streams committed snapshots of the room.
func (s *Service) Subscribe(ctx context.Context, roomID string) (<-chan Room, func(), error) {
	return s.repo.Subscribe(ctx, roomID)
}

func (s *Service) export(r Room) {
	if s.exportFile == "" {
		return
	}
	if err := ExportRoom(r, s.exportFile); err != nil {
		log.Error().Err(err).Str("room", r.ID).Msg("failed to export game")
		return
	}
	log.Info().Str("room", r.ID).Str("file", s.exportFile).Msg("exported game")
}

func (s *Service) newPlayer(p Player, now time.Time) Player {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.IsHost = false
	p.JoinedAt = now.UTC()
	return p
}

func (s *Service) randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = roomIDAlphabet[s.intN(len(roomIDAlphabet))]
	}
	return string(b)
}

func (s *Service) intN(n int) int {
	if s.rng != nil {
		return s.rng.IntN(n)
	}
	return rand.IntN(n)
}

func isTurnGuesser(r Room) func(Player) bool {
	return func(p Player) bool {
		return p.Team == r.TurnTeam && p.Role == RoleGuesser
	}
}

// authorize runs after the phase check, so a wrong-phase action reports
// ErrInvalidPhase whoever sends it.
func authorize(r Room, actorID string, allowed func(Player) bool) error {
	p, ok := r.Player(actorID)
	if !ok {
		return fmt.Errorf("player %q: %w", actorID, ErrPlayerNotFound)
	}
	if !allowed(p) {
		return fmt.Errorf("player %s (%s %s): %w", p.ID, p.Team, p.Role, ErrForbidden)
	}
	return nil
}
