// Package session keeps one keypad calculator per open expense form.
//
// Key presses for a session are applied under that session's mutex in the
// order they arrive, so two requests for the same form never interleave.
// Different sessions never contend.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"viaggi/internal/cache"
	"viaggi/internal/core"
	"viaggi/internal/keypad"
	"viaggi/internal/log"
)

var ErrSessionNotFound = errors.New("entry session not found")

// KeyObserver is told the class of every key a session accepts.
type KeyObserver interface {
	KeyPressed(class string)
}

// OpenRequest describes the form a session is opened for. Seed pre-fills the
// display when an existing expense is edited.
type OpenRequest struct {
	TripID string
	Kind   core.TransactionKind
	Seed   string
}

// Snapshot is a consistent copy of a session taken under its lock.
type Snapshot struct {
	ID       string               `json:"id"`
	TripID   string               `json:"trip_id"`
	Kind     core.TransactionKind `json:"kind"`
	OpenedAt time.Time            `json:"opened_at"`
	State    keypad.State         `json:"state"`
}

type Session struct {
	ID       string
	TripID   string
	Kind     core.TransactionKind
	OpenedAt time.Time

	mu     sync.Mutex
	state  keypad.State
	closed bool
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:       s.ID,
		TripID:   s.TripID,
		Kind:     s.Kind,
		OpenedAt: s.OpenedAt,
		State:    s.state,
	}
}

type Config struct {
	TTL         time.Duration
	MaxSessions int
}

func DefaultConfig() Config {
	return Config{TTL: 30 * time.Minute, MaxSessions: 10000}
}

type Store struct {
	engine   *keypad.Engine
	sessions *cache.LRUCache[*Session]
	logger   *log.Logger
	observer KeyObserver
	now      func() time.Time
}

func NewStore(engine *keypad.Engine, cfg Config, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}

	st := &Store{
		engine:   engine,
		sessions: cache.NewLRUCache[*Session](cfg.MaxSessions, cfg.TTL),
		logger:   logger.WithComponent(log.ComponentSession),
		now:      time.Now,
	}
	st.sessions.OnEvict(func(id string, s *Session) {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		st.logger.Debug("Entry session evicted", log.FieldSessionID, id, log.FieldTripID, s.TripID)
	})
	return st
}

// SetObserver installs o; nil disables observation.
func (st *Store) SetObserver(o KeyObserver) {
	st.observer = o
}

func (st *Store) Engine() *keypad.Engine {
	return st.engine
}

func (st *Store) Open(ctx context.Context, req OpenRequest) (Snapshot, error) {
	if req.TripID == "" {
		return Snapshot{}, core.ErrEmptyTrip
	}
	if !req.Kind.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", core.ErrInvalidKind, req.Kind)
	}

	s := &Session{
		ID:       uuid.NewString(),
		TripID:   req.TripID,
		Kind:     req.Kind,
		OpenedAt: st.now().UTC(),
		state:    keypad.NewState(),
	}
	if req.Seed != "" {
		seeded, err := st.engine.Seed(req.Seed)
		if err != nil {
			return Snapshot{}, fmt.Errorf("seed %q: %w", req.Seed, err)
		}
		s.state = seeded
	}
	st.sessions.Set(s.ID, s)

	log.FromContext(ctx).DebugContext(ctx, "Entry session opened",
		log.NewFields().WithSession(s.ID, s.TripID).WithOperation(log.OpOpen).ToSlice()...)
	return s.snapshot(), nil
}

func (st *Store) lookup(id string) (*Session, error) {
	s, ok := st.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Press applies keys in order. When a key is rejected the keys before it
// stay applied and the error is returned with the resulting state.
func (st *Store) Press(ctx context.Context, id string, keys ...keypad.Token) (keypad.State, error) {
	s, err := st.lookup(id)
	if err != nil {
		return keypad.State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return keypad.State{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	next := s.state
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			s.state = next
			return next, err
		}
		n, err := st.engine.Process(next, k)
		if err != nil {
			s.state = next
			st.sessions.Set(id, s)
			return next, fmt.Errorf("key %q: %w", k, err)
		}
		next = n
		if st.observer != nil {
			st.observer.KeyPressed(k.Class())
		}
	}
	s.state = next
	st.sessions.Set(id, s)
	return next, nil
}

func (st *Store) Get(_ context.Context, id string) (Snapshot, error) {
	s, err := st.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.snapshot(), nil
}

// Complete runs fn with the session locked and closes the session when fn
// succeeds. Keys pressed concurrently wait and then find the session gone.
func (st *Store) Complete(ctx context.Context, id string, fn func(Snapshot) error) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := fn(s.snapshot()); err != nil {
		return err
	}
	s.closed = true
	st.sessions.Delete(id)

	log.FromContext(ctx).DebugContext(ctx, "Entry session completed",
		log.NewFields().WithSession(s.ID, s.TripID).WithOperation(log.OpCommit).ToSlice()...)
	return nil
}

// Close discards a session without committing it.
func (st *Store) Close(ctx context.Context, id string) error {
	s, err := st.lookup(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	st.sessions.Delete(id)
	if already {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	log.FromContext(ctx).DebugContext(ctx, "Entry session closed",
		log.NewFields().WithSession(s.ID, s.TripID).WithOperation(log.OpClose).ToSlice()...)
	return nil
}

// CleanExpired lets a cache.Manager sweep idle sessions.
func (st *Store) CleanExpired() int {
	return st.sessions.CleanExpired()
}

// Len returns the number of open sessions, expired ones included until swept.
func (st *Store) Len() int {
	return st.sessions.Size()
}
