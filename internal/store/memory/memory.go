package memory

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"parishledger/internal/core"
	"parishledger/internal/snapshot"
	"parishledger/internal/store"
)

// Store keeps the ledger in process memory.
type Store struct {
	mu       sync.Mutex
	state    core.State
	history  []snapshot.Entry
	settings map[string]string
}

var _ store.Store = (*Store)(nil)

func New(initial core.State) *Store {
	return &Store{state: initial.Clone(), settings: map[string]string{}}
}

// NewFromFile seeds the store from a snapshot file. A missing file yields an
// empty ledger with default categories; a malformed one is an error.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(core.EmptyState()), nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return New(core.EmptyState()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed snapshot: %w", err)
	}
	defer f.Close()
	s, err := snapshot.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode seed snapshot %s: %w", path, err)
	}
	return New(s), nil
}

func (s *Store) Load(_ context.Context) (core.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *Store) Save(_ context.Context, st core.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st.Clone()
	return nil
}

func (s *Store) AppendHistory(_ context.Context, e snapshot.Entry) error {
	e.State = e.State.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = snapshot.PushHistory(s.history, e)
	return nil
}

func (s *Store) ListHistory(_ context.Context) ([]snapshot.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]snapshot.Entry, len(s.history))
	for i, e := range s.history {
		out[i] = snapshot.Entry{Timestamp: e.Timestamp, State: e.State.Clone()}
	}
	return out, nil
}

func (s *Store) DeleteHistory(_ context.Context, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.history {
		if e.Timestamp.Equal(ts) {
			s.history = append(s.history[:i:i], s.history[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) Setting(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Store) PutSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = core.EmptyState()
	s.history = nil
	s.settings = map[string]string{}
	return nil
}

func (s *Store) Close() error { return nil }
