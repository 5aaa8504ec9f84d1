package store

import (
	"context"
	"sync"

	"github.com/kiliankoe/codewords/internal/game"
	"github.com/rs/zerolog/log"
)

// SubscriberBuffer is how many snapshots a slow subscriber may lag behind
// before its oldest pending snapshot is dropped.
const SubscriberBuffer = 16

type subscriber struct {
	ch   chan game.Room
	done chan struct{}
	once sync.Once
}

// Broadcaster fans committed room snapshots out to subscribers. Per room,
// snapshots are delivered in version order; stale versions are ignored.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	latest map[string]game.Room
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string]map[*subscriber]struct{}),
		latest: make(map[string]game.Room),
	}
}

// Subscribe registers a subscriber for r.ID and primes it with a copy of r,
// or of a newer published version if one exists. The subscription ends when
// ctx is done or cancel is called.
func (b *Broadcaster) Subscribe(ctx context.Context, r game.Room) (<-chan game.Room, func()) {
	s := &subscriber{ch: make(chan game.Room, SubscriberBuffer), done: make(chan struct{})}

	b.mu.Lock()
	if b.subs[r.ID] == nil {
		b.subs[r.ID] = make(map[*subscriber]struct{})
	}
	b.subs[r.ID][s] = struct{}{}
	if last, ok := b.latest[r.ID]; ok && last.Version > r.Version {
		r = last
	} else {
		b.latest[r.ID] = r.Clone()
	}
	s.ch <- r.Clone()
	b.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			b.mu.Lock()
			delete(b.subs[r.ID], s)
			b.prune(r.ID)
			close(s.ch)
			b.mu.Unlock()
			close(s.done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.done:
		}
	}()
	return s.ch, cancel
}

// Publish delivers r to every subscriber of its room unless a newer version
// was already published. It never blocks on a slow subscriber. Every
// subscriber gets its own copy.
func (b *Broadcaster) Publish(r game.Room) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if last, ok := b.latest[r.ID]; ok && r.Version <= last.Version {
		return
	}
	b.latest[r.ID] = r.Clone()
	for s := range b.subs[r.ID] {
		snap := r.Clone()
		for {
			select {
			case s.ch <- snap:
			default:
				// Buffer full: drop the oldest pending snapshot and retry.
				select {
				case <-s.ch:
					log.Debug().Str("room", r.ID).Uint64("version", r.Version).Msg("subscriber lagging, dropped snapshot")
				default:
				}
				continue
			}
			break
		}
	}
	b.prune(r.ID)
}

// prune forgets a room without subscribers once its game is over. Callers
// hold b.mu.
func (b *Broadcaster) prune(roomID string) {
	if len(b.subs[roomID]) > 0 {
		return
	}
	delete(b.subs, roomID)
	if last, ok := b.latest[roomID]; ok && last.GamePhase == game.PhaseFinished {
		delete(b.latest, roomID)
	}
}

// Subscribers reports how many subscriptions are open for a room.
func (b *Broadcaster) Subscribers(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[roomID])
}
