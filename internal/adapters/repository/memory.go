package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/okian/squadron/internal/domain/model"
)

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// MemoryStore keeps runs in process memory. Runs are stored as JSON so
// callers never share mutable state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]memoryEntry
	opts options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{runs: make(map[string]memoryEntry), opts: o}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, run *model.Run) error {
	if run == nil || run.ID == "" {
		return ErrInvalidRun
	}
	b, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	now := s.opts.now()
	e := memoryEntry{payload: b}
	if s.opts.ttl > 0 {
		e.expires = now.Add(s.opts.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(now)
	s.runs[run.ID] = e
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*model.Run, error) {
	s.mu.RLock()
	e, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok || e.expired(s.opts.now()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var run model.Run
	if err := json.Unmarshal(e.payload, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.opts.now())
	return len(s.runs), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// sweep drops expired runs. Must be called with s.mu held for writing.
func (s *MemoryStore) sweep(now time.Time) {
	for id, e := range s.runs {
		if e.expired(now) {
			delete(s.runs, id)
		}
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
