// Package sqlite provides a SQLite-backed room repository. Updates use
// optimistic compare-and-swap on a version column.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kiliankoe/codewords/internal/game"
	"github.com/kiliankoe/codewords/internal/store"
	"github.com/kiliankoe/codewords/internal/store/sqlite/migrations"
	"github.com/rs/zerolog/log"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// DefaultRetries bounds how often Update re-reads and re-applies a transform
// after losing a version race.
const DefaultRetries = 5

// Store persists rooms as JSON documents keyed by room id.
type Store struct {
	sqlDB   *sql.DB
	bc      *store.Broadcaster
	retries int
}

type Option func(*Store)

func WithRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retries = n
		}
	}
}

// Open opens a SQLite room store and applies embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{sqlDB: sqlDB, bc: store.NewBroadcaster(), retries: DefaultRetries}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Create(ctx context.Context, r game.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r = r.Clone()
	r.Version = 1
	state, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode room: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO rooms (id, version, state, game_phase, created_at, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Version, string(state), string(r.GamePhase),
		toMillis(r.CreatedAt), toMillis(r.ExpiresAt), toMillis(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("room %s: %w", r.ID, game.ErrAlreadyExists)
		}
		return fmt.Errorf("create room: %w", err)
	}
	s.bc.Publish(r)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (game.Room, error) {
	if err := ctx.Err(); err != nil {
		return game.Room{}, err
	}
	var (
		version uint64
		state   string
	)
	err := s.sqlDB.QueryRowContext(ctx, `SELECT version, state FROM rooms WHERE id = ?`, id).Scan(&version, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Room{}, fmt.Errorf("room %s: %w", id, game.ErrNotFound)
	}
	if err != nil {
		return game.Room{}, fmt.Errorf("get room: %w", err)
	}
	var r game.Room
	if err := json.Unmarshal([]byte(state), &r); err != nil {
		return game.Room{}, fmt.Errorf("decode room %s: %w", id, err)
	}
	r.Version = version
	return r, nil
}

// Update reads the room, applies fn and writes the result only if nobody
// committed in between. Lost races are retried with a fresh read.
func (s *Store) Update(ctx context.Context, id string, fn game.Transform) (game.Room, error) {
	for attempt := 1; attempt <= s.retries; attempt++ {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return game.Room{}, err
		}
		next, err := fn(cur.Clone())
		if errors.Is(err, game.ErrUnchanged) {
			return cur, nil
		}
		if err != nil {
			return game.Room{}, err
		}
		next.ID = cur.ID
		next.Version = cur.Version + 1

		ok, err := s.compareAndSwap(ctx, cur.Version, next)
		if err != nil {
			return game.Room{}, err
		}
		if ok {
			s.bc.Publish(next.Clone())
			return next, nil
		}
		log.Debug().Str("room", id).Int("attempt", attempt).Uint64("version", cur.Version).Msg("version conflict, retrying")
	}
	return game.Room{}, fmt.Errorf("room %s after %d attempts: %w", id, s.retries, game.ErrTransformRejected)
}

func (s *Store) compareAndSwap(ctx context.Context, expected uint64, next game.Room) (bool, error) {
	state, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("encode room: %w", err)
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE rooms SET version = ?, state = ?, game_phase = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		next.Version, string(state), string(next.GamePhase), toMillis(time.Now()),
		next.ID, expected,
	)
	if err != nil {
		if isBusy(err) {
			return false, nil
		}
		return false, fmt.Errorf("update room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update room: %w", err)
	}
	return n == 1, nil
}

// Subscribe only sees commits made through this Store value.
func (s *Store) Subscribe(ctx context.Context, id string) (<-chan game.Room, func(), error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.bc.Subscribe(ctx, r)
	return ch, cancel, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3lib.SQLITE_BUSY
	}
	return false
}

var _ game.Repository = (*Store)(nil)
