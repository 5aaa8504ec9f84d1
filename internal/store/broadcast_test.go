package store

import (
	"context"
	"testing"
	"time"

	"github.com/kiliankoe/codewords/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func version(id string, v uint64) game.Room {
	return game.Room{ID: id, Version: v}
}

func TestBroadcasterDropsStaleVersions(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(context.Background(), version("R", 1))
	defer cancel()

	b.Publish(version("R", 3))
	b.Publish(version("R", 2))
	b.Publish(version("R", 4))

	var got []uint64
	for i := 0; i < 3; i++ {
		got = append(got, (<-ch).Version)
	}
	assert.Equal(t, []uint64{1, 3, 4}, got)
}

func TestBroadcasterPrimesWithNewestKnownVersion(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	b.Publish(version("R", 5))

	ch, cancel := b.Subscribe(context.Background(), version("R", 4))
	defer cancel()
	assert.Equal(t, uint64(5), (<-ch).Version)
}

func TestBroadcasterSlowSubscriberConverges(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(context.Background(), version("R", 1))
	defer cancel()

	const n = SubscriberBuffer * 3
	for v := uint64(2); v <= n; v++ {
		b.Publish(version("R", v))
	}

	var last uint64
	for len(ch) > 0 {
		r := <-ch
		require.Greater(t, r.Version, last)
		last = r.Version
	}
	assert.Equal(t, uint64(n), last)
}

func TestBroadcasterIsolatesRoomsAndSubscribers(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	a, cancelA := b.Subscribe(context.Background(), version("A", 1))
	other, cancelOther := b.Subscribe(context.Background(), version("A", 1))
	bCh, cancelB := b.Subscribe(context.Background(), version("B", 1))
	defer cancelOther()
	defer cancelB()
	<-a
	<-other
	<-bCh

	assert.Equal(t, 2, b.Subscribers("A"))
	cancelA()
	cancelA()
	assert.Equal(t, 1, b.Subscribers("A"))

	b.Publish(version("A", 2))
	assert.Equal(t, uint64(2), (<-other).Version)
	select {
	case r := <-bCh:
		t.Fatalf("room B subscriber got %+v", r)
	case <-time.After(20 * time.Millisecond):
	}
	_, open := <-a
	assert.False(t, open)
}

func TestBroadcasterSubscribersGetOwnCopies(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	room := game.Room{ID: "R", Version: 1, Cards: make([]game.Card, game.BoardSize)}
	a, cancelA := b.Subscribe(context.Background(), room)
	other, cancelOther := b.Subscribe(context.Background(), room)
	defer cancelA()
	defer cancelOther()

	first := <-a
	first.Cards[0].Revealed = true
	assert.False(t, room.Cards[0].Revealed)
	assert.False(t, (<-other).Cards[0].Revealed)

	next := game.Room{ID: "R", Version: 2, Cards: make([]game.Card, game.BoardSize)}
	b.Publish(next)
	got := <-a
	got.Cards[1].Revealed = true
	assert.False(t, (<-other).Cards[1].Revealed)
	assert.False(t, next.Cards[1].Revealed)
}

func TestBroadcasterForgetsFinishedRooms(t *testing.T) {
	t.Parallel()
	b := NewBroadcaster()
	b.Publish(game.Room{ID: "done", Version: 3, GamePhase: game.PhaseFinished})
	b.Publish(game.Room{ID: "live", Version: 3, GamePhase: game.PhaseInProgress})

	b.mu.Lock()
	_, doneKept := b.latest["done"]
	_, liveKept := b.latest["live"]
	b.mu.Unlock()
	assert.False(t, doneKept)
	assert.True(t, liveKept)

	// A watcher keeps the final state until it leaves.
	ch, cancel := b.Subscribe(context.Background(), game.Room{ID: "live", Version: 3})
	<-ch
	b.Publish(game.Room{ID: "live", Version: 4, GamePhase: game.PhaseFinished})
	assert.Equal(t, game.PhaseFinished, (<-ch).GamePhase)
	b.mu.Lock()
	_, liveKept = b.latest["live"]
	b.mu.Unlock()
	assert.True(t, liveKept)

	cancel()
	b.mu.Lock()
	_, liveKept = b.latest["live"]
	b.mu.Unlock()
	assert.False(t, liveKept)
	assert.Equal(t, 0, b.Subscribers("live"))
}
