package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kiliankoe/codewords/internal/game"
)

// MemoryStore keeps rooms in process. Updates are serialized by a single
// mutex, so transforms always see the latest committed version.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]game.Room
	bc    *Broadcaster
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]game.Room),
		bc:    NewBroadcaster(),
	}
}

func (s *MemoryStore) Create(ctx context.Context, r game.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[r.ID]; exists {
		return fmt.Errorf("room %s: %w", r.ID, game.ErrAlreadyExists)
	}
	r = r.Clone()
	r.Version = 1
	s.rooms[r.ID] = r
	s.bc.Publish(r.Clone())
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (game.Room, error) {
	if err := ctx.Err(); err != nil {
		return game.Room{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return game.Room{}, fmt.Errorf("room %s: %w", id, game.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn game.Transform) (game.Room, error) {
	if err := ctx.Err(); err != nil {
		return game.Room{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rooms[id]
	if !ok {
		return game.Room{}, fmt.Errorf("room %s: %w", id, game.ErrNotFound)
	}
	next, err := fn(cur.Clone())
	if errors.Is(err, game.ErrUnchanged) {
		return cur.Clone(), nil
	}
	if err != nil {
		return game.Room{}, err
	}
	next.ID = cur.ID
	next.Version = cur.Version + 1
	s.rooms[id] = next
	s.bc.Publish(next.Clone())
	return next.Clone(), nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, id string) (<-chan game.Room, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, nil, fmt.Errorf("room %s: %w", id, game.ErrNotFound)
	}
	ch, cancel := s.bc.Subscribe(ctx, r.Clone())
	return ch, cancel, nil
}

var _ game.Repository = (*MemoryStore)(nil)
